package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("AGRISENSE_CONFIG")
	defer os.Setenv("AGRISENSE_CONFIG", originalEnv)

	os.Setenv("AGRISENSE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingJWTSecret verifies config validation rejects a missing secret.
func TestRun_MissingJWTSecret(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
database:
  path: "` + dbPath + `"

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("AGRISENSE_CONFIG")
	defer os.Setenv("AGRISENSE_CONFIG", originalEnv)
	os.Setenv("AGRISENSE_CONFIG", configPath)

	originalSecret := os.Getenv("AGRISENSE_JWT_SECRET")
	defer os.Setenv("AGRISENSE_JWT_SECRET", originalSecret)
	os.Unsetenv("AGRISENSE_JWT_SECRET")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail without a JWT secret")
	}
}

// TestGetConfigPath_Default verifies the default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("AGRISENSE_CONFIG")
	defer os.Setenv("AGRISENSE_CONFIG", originalEnv)

	os.Unsetenv("AGRISENSE_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies the environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("AGRISENSE_CONFIG")
	defer os.Setenv("AGRISENSE_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("AGRISENSE_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
