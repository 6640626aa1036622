package crypto

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lborres/storefront/core"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestSigner(t *testing.T, clock *fakeClock) *Signer {
	t.Helper()
	s, err := NewSigner(testSecret, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	return s
}

func testClaims() core.Claims {
	return core.Claims{UserID: "u1", Name: "abc", Email: "abc@x.com", IsSeller: true}
}

func TestNewSigner_EmptySecret(t *testing.T) {
	if _, err := NewSigner(""); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("NewSigner(\"\") error = %v, want ErrEmptySecret", err)
	}
}

// Requirement: a freshly signed token round-trips its identity and role claims
func TestSigner_SignAndParse(t *testing.T) {
	// Arrange
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := newTestSigner(t, clock)

	// Act
	token, issued, err := s.Sign(testClaims(), AccessToken, 5*time.Minute)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	got, err := s.Parse(token, AccessToken)

	// Assert
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.UserID != "u1" || got.Name != "abc" || got.Email != "abc@x.com" {
		t.Errorf("Parse() identity = %+v", got)
	}
	if got.IsAdmin || !got.IsSeller {
		t.Errorf("Parse() roles = admin:%v seller:%v, want false/true", got.IsAdmin, got.IsSeller)
	}
	if got.TokenID == "" || got.TokenID != issued.TokenID {
		t.Errorf("Parse() jti = %q, want %q", got.TokenID, issued.TokenID)
	}
	if !got.ExpiresAt.Equal(clock.now.Add(5 * time.Minute)) {
		t.Errorf("Parse() exp = %v, want %v", got.ExpiresAt, clock.now.Add(5*time.Minute))
	}
}

// Requirement: a token is valid strictly before its expiry and invalid after it
func TestSigner_Parse_ExpiryBoundary(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	ttl := 5 * time.Minute

	tests := []struct {
		name    string
		at      time.Time
		wantErr bool
	}{
		{name: "just issued", at: start},
		{name: "one second before expiry", at: start.Add(ttl - time.Second)},
		{name: "one second after expiry", at: start.Add(ttl + time.Second), wantErr: true},
		{name: "long after expiry", at: start.Add(24 * time.Hour), wantErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			clock := &fakeClock{now: start}
			s := newTestSigner(t, clock)
			token, _, _ := s.Sign(testClaims(), AccessToken, ttl)

			// Act
			clock.now = test.at
			_, err := s.Parse(token, AccessToken)

			// Assert
			if test.wantErr && !errors.Is(err, core.ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
			if !test.wantErr && err != nil {
				t.Errorf("Parse() error = %v, want nil", err)
			}
		})
	}
}

// Requirement: any tampering, foreign key, wrong type or unsigned token is rejected uniformly
func TestSigner_Parse_Rejects(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := newTestSigner(t, clock)
	access, _, _ := s.Sign(testClaims(), AccessToken, time.Minute)
	refresh, _, _ := s.Sign(testClaims(), RefreshToken, time.Hour)

	other, _ := NewSigner(strings.Repeat("z", 32), WithClock(clock.Now))
	foreign, _, _ := other.Sign(testClaims(), AccessToken, time.Minute)

	parts := strings.Split(access, ".")
	tamperedPayload := parts[0] + "." + parts[1] + "x." + parts[2]
	tamperedSig := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"_id": "u1", "isAdmin": true, "typ": "access", "exp": clock.now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		typ   TokenType
	}{
		{name: "empty", token: "", typ: AccessToken},
		{name: "garbage", token: "not.a.token", typ: AccessToken},
		{name: "tampered payload", token: tamperedPayload, typ: AccessToken},
		{name: "tampered signature", token: tamperedSig, typ: AccessToken},
		{name: "signed with another secret", token: foreign, typ: AccessToken},
		{name: "refresh used as access", token: refresh, typ: AccessToken},
		{name: "access used as refresh", token: access, typ: RefreshToken},
		{name: "alg none", token: none, typ: AccessToken},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			got, err := s.Parse(test.token, test.typ)

			if got != nil {
				t.Errorf("Parse() claims = %+v, want nil", got)
			}
			if !errors.Is(err, core.ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
