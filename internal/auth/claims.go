package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role defines what a token holder may do.
type Role string

// Available roles.
const (
	// RoleAdmin has full platform access across all farms.
	RoleAdmin Role = "admin"

	// RoleOperator manages devices and rules for its granted farms.
	RoleOperator Role = "operator"

	// RoleViewer has read-only access to its granted farms.
	RoleViewer Role = "viewer"
)

// AllRoles returns all valid roles.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleOperator, RoleViewer}
}

// CustomClaims extends JWT standard claims with AgriSense-specific fields.
//
// FarmIDs lists the farms this token may observe. Subscription requests
// for other farms are rejected at the hub. Admins bypass the list.
type CustomClaims struct {
	jwt.RegisteredClaims
	Role    Role     `json:"role"`
	FarmIDs []string `json:"farms,omitempty"`
}

// CanAccessFarm reports whether the token holder may observe the given farm.
func (c *CustomClaims) CanAccessFarm(farmID string) bool {
	if c.Role == RoleAdmin {
		return true
	}
	for _, id := range c.FarmIDs {
		if id == farmID {
			return true
		}
	}
	return false
}

// GenerateAccessToken creates a signed JWT access token.
// Access tokens are short-lived (configured TTL) and validated by signature
// only, so the hub never hits the database during handshake.
func GenerateAccessToken(subject string, role Role, farmIDs []string, secret string, ttlMinutes int) (string, error) {
	if ttlMinutes <= 0 {
		ttlMinutes = 15 //nolint:mnd // default 15-minute access token TTL
	}

	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
		Role:    role,
		FarmIDs: farmIDs,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// ParseToken validates and parses a JWT access token, returning the custom claims.
// It checks the signature, expiry, and required fields.
func ParseToken(tokenString, secret string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	if claims.Role == "" {
		return nil, fmt.Errorf("%w: missing role", ErrTokenInvalid)
	}

	return claims, nil
}
