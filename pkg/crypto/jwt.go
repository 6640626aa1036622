package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lborres/storefront/core"
)

// TokenType separates access tokens from refresh tokens signed with the same key.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var ErrEmptySecret = errors.New("signing secret is empty")

type tokenClaims struct {
	UserID   string    `json:"_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	IsAdmin  bool      `json:"isAdmin"`
	IsSeller bool      `json:"isSeller"`
	Type     TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

type SignerOption func(*Signer)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

func NewSigner(secret string, opts ...SignerOption) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	s := &Signer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign mints a token of the given type valid for ttl and returns it with the
// claims as issued (jti, iat and exp filled in).
func (s *Signer) Sign(c core.Claims, typ TokenType, ttl time.Duration) (string, *core.Claims, error) {
	jti, err := NewTokenID()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token id: %w", err)
	}

	now := s.now().Truncate(time.Second)
	exp := now.Add(ttl)

	tc := tokenClaims{
		UserID:   c.UserID,
		Name:     c.Name,
		Email:    c.Email,
		IsAdmin:  c.IsAdmin,
		IsSeller: c.IsSeller,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	c.TokenID = jti
	c.IssuedAt = now
	c.ExpiresAt = exp
	return signed, &c, nil
}

// Parse verifies signature, expiry and token type. Every failure is reported
// as core.ErrInvalidToken.
func (s *Signer) Parse(token string, typ TokenType) (*core.Claims, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	tc := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, tc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, core.ErrInvalidToken
	}
	if tc.Type != typ || tc.UserID == "" {
		return nil, core.ErrInvalidToken
	}

	claims := &core.Claims{
		UserID:    tc.UserID,
		Name:      tc.Name,
		Email:     tc.Email,
		IsAdmin:   tc.IsAdmin,
		IsSeller:  tc.IsSeller,
		TokenID:   tc.ID,
		ExpiresAt: tc.ExpiresAt.Time,
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	return claims, nil
}
