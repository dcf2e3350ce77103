// Package auth provides JWT-based tenant authorization for AgriSense Core.
//
// Tokens are HS256-signed and carry the holder's role plus the farm IDs
// it may observe. The subscription hub validates tokens during the
// WebSocket handshake and scopes every subscription to the granted farms.
// Validation is signature-only, no database lookup on the hot path.
package auth
