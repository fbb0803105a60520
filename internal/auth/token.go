// Package auth provides token issuance and the access control pipeline for
// QuillPost. Every protected request passes through the middleware in this
// package before any handler logic runs.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tmarlen/quillpost/internal/domain"
)

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = time.Hour

// TokenService issues and verifies signed, time-limited identity assertions.
// It is stateless: issuance has no side effects and verification never
// consults the credential store.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a token service with the given signing secret and
// token lifetime. A zero ttl falls back to DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// tokenClaims is the JWT payload embedded in issued tokens.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue produces a signed assertion embedding the user ID and role,
// expiring after the configured lifetime.
func (s *TokenService) Issue(userID int64, role domain.Role) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// TokenIdentity is the identity a verified token asserts. The embedded role
// reflects the user's role at issuance time; the pipeline re-reads the live
// record rather than trusting it.
type TokenIdentity struct {
	UserID int64
	Role   domain.Role
}

// Verify checks the signature and expiry of a token and returns the asserted
// identity. Any verification failure (bad signature, expired, malformed
// payload) is reported as domain.ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (*TokenIdentity, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", domain.ErrInvalidToken)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: bad role claim", domain.ErrInvalidToken)
	}

	return &TokenIdentity{UserID: userID, Role: role}, nil
}
