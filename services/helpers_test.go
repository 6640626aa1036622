package services

import (
	"testing"
	"time"

	"github.com/lborres/storefront/pkg/crypto"
	"github.com/lborres/storefront/pkg/validation"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

type authFixture struct {
	db        *FakeStorage
	allowList *FakeAllowList
	clock     *testClock
	tokens    *TokenService
	auth      *AuthService
	hasher    *crypto.Bcrypt
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	clock := &testClock{now: time.Now().Truncate(time.Second)}
	signer, err := crypto.NewSigner(testSecret, crypto.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	hasher, err := crypto.NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt() error = %v", err)
	}

	db := NewFakeStorage()
	allowList := NewFakeAllowList()
	tokens := NewTokenService(signer, allowList, 5*time.Minute, 24*time.Hour)

	return &authFixture{
		db:        db,
		allowList: allowList,
		clock:     clock,
		tokens:    tokens,
		auth:      NewAuthService(db, hasher, tokens, validation.New(), nil),
		hasher:    hasher,
	}
}
