package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/acainfo/backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is the payload of every token this service issues. The subject
// is the principal's composite identity.
type TokenClaims struct {
	Email string          `json:"email"`
	Name  string          `json:"name"`
	Type  model.TokenKind `json:"type"`
	Roles []string        `json:"roles"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 tokens with a single shared secret.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret []byte) *TokenCodec {
	return &TokenCodec{secret: secret, now: time.Now}
}

// Issue signs a token of the given kind for p that expires ttl from now.
// Every token carries a random jti, so two tokens issued in the same second
// for the same principal are still distinct strings.
func (c *TokenCodec) Issue(p *model.AuthPrincipal, kind model.TokenKind, ttl time.Duration) (string, *TokenClaims, error) {
	if kind != model.TokenAccess && kind != model.TokenRefresh {
		return "", nil, fmt.Errorf("%w: token kind %q", ErrInvalidInput, kind)
	}

	now := c.now()
	claims := &TokenClaims{
		Email: p.Email,
		Name:  p.DisplayName,
		Type:  kind,
		Roles: p.RoleNames(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.Identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Decode verifies signature and expiry and returns the claims. Failures map
// to ErrTokenMalformed, ErrTokenForged or ErrTokenExpired.
func (c *TokenCodec) Decode(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, c.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

// KindOf never fails; any token that does not decode is INVALID.
func (c *TokenCodec) KindOf(token string) model.TokenKind {
	claims, err := c.Decode(token)
	if err != nil {
		return model.TokenInvalid
	}
	switch claims.Type {
	case model.TokenAccess, model.TokenRefresh:
		return claims.Type
	default:
		return model.TokenInvalid
	}
}

// ExpiryOf reads the exp claim without verifying anything. Only use it for
// bookkeeping such as sizing a revocation entry.
func (c *TokenCodec) ExpiryOf(token string) (time.Time, bool) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (c *TokenCodec) key(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrTokenForged
	}
	return c.secret, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenForged, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
