// Package config provides configuration loading for AgriSense Core.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and finally overridden by AGRISENSE_* environment variables. Secrets
// (broker credentials, JWT signing key, telemetry token) should always be
// supplied through the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
