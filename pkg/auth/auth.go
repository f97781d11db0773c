// Package auth issues and verifies the bearer tokens that guard the analysis endpoints.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authentication constants.
const (
	Issuer           = "genre-analyzer"
	DefaultTokenTTL  = 10 * time.Minute
	minSecretLength  = 32
	filePermReadOnly = 0o400 // Read-only file permissions
	filePermOwnerRW  = 0o600 // Owner read-write file permissions
	clockSkew        = 30 * time.Second
)

var (
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned when a bearer token fails verification.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Authenticator signs and verifies HS256 tokens with a shared secret.
type Authenticator struct {
	now    func() time.Time
	secret []byte
	ttl    time.Duration
}

// New creates an Authenticator. A zero ttl uses DefaultTokenTTL.
func New(secret []byte, ttl time.Duration) (*Authenticator, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret too short: %d bytes (need at least %d)", len(secret), minSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Authenticator{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Token mints a signed token for the given subject.
func (a *Authenticator) Token(subject string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks a raw token and returns its subject.
func (a *Authenticator) Verify(raw string) (string, error) {
	if raw == "" {
		return "", ErrMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims.Subject, nil
}

// VerifyHeader verifies an Authorization header value of the form "Bearer <token>".
func (a *Authenticator) VerifyHeader(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: expected Bearer scheme", ErrInvalidToken)
	}
	return a.Verify(strings.TrimSpace(raw))
}

// LoadSecret resolves the shared secret from direct content or an absolute file path.
// Content wins when both are set. Returns nil, nil when neither is set.
func LoadSecret(content, path string) ([]byte, error) {
	switch {
	case content != "":
		slog.Info("Using JWT secret from environment", "component", "auth", "bytes", len(content))
		return []byte(content), nil
	case path != "":
		secret, err := readSecretFile(path)
		if err != nil {
			return nil, err
		}
		slog.Info("Using JWT secret file", "component", "auth", "path", path)
		return []byte(strings.TrimSpace(string(secret))), nil
	default:
		return nil, nil
	}
}

// readSecretFile reads and validates a secret file.
func readSecretFile(path string) ([]byte, error) {
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		return nil, errors.New("jwt secret path must be an absolute path")
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access jwt secret file: %w", err)
	}
	if info.IsDir() {
		return nil, errors.New("jwt secret path must be a file, not a directory")
	}

	// Must be exactly 0600 or 0400
	perm := info.Mode().Perm()
	if perm != filePermOwnerRW && perm != filePermReadOnly {
		return nil, fmt.Errorf("jwt secret file has insecure permissions %04o (must be 0600 or 0400)", perm)
	}

	return os.ReadFile(cleanPath)
}
