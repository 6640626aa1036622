package services

import (
	"context"
	"time"

	"github.com/lborres/storefront/core"
	"github.com/lborres/storefront/pkg/crypto"
)

const (
	DefaultAccessTokenTTL  = 5 * time.Minute
	DefaultRefreshTokenTTL = 24 * time.Hour
)

// TokenService issues and verifies access and refresh tokens. Refresh tokens
// are honored only while they sit in the allow-list.
type TokenService struct {
	signer     *crypto.Signer
	allowList  core.RefreshTokenStore
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(signer *crypto.Signer, allowList core.RefreshTokenStore, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &TokenService{signer: signer, allowList: allowList, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (ts *TokenService) IssueAccessToken(c core.Claims) (string, error) {
	token, _, err := ts.signer.Sign(c, crypto.AccessToken, ts.accessTTL)
	return token, err
}

// IssueRefreshToken mints a refresh token and registers it in the allow-list.
func (ts *TokenService) IssueRefreshToken(ctx context.Context, c core.Claims) (string, error) {
	token, issued, err := ts.signer.Sign(c, crypto.RefreshToken, ts.refreshTTL)
	if err != nil {
		return "", err
	}

	if err := ts.allowList.Add(ctx, token, issued.ExpiresAt); err != nil {
		return "", core.StorageError("allow refresh token", err)
	}

	return token, nil
}

// VerifyAccessToken performs no I/O. Any failure is core.ErrInvalidToken.
func (ts *TokenService) VerifyAccessToken(token string) (*core.Claims, error) {
	return ts.signer.Parse(token, crypto.AccessToken)
}

// VerifyRefreshToken checks signature, expiry and allow-list membership.
// A verified token stays in the allow-list.
func (ts *TokenService) VerifyRefreshToken(ctx context.Context, token string) (*core.Claims, error) {
	claims, err := ts.signer.Parse(token, crypto.RefreshToken)
	if err != nil {
		return nil, err
	}

	allowed, err := ts.allowList.Contains(ctx, token)
	if err != nil {
		return nil, core.StorageError("check refresh token", err)
	}
	if !allowed {
		return nil, core.ErrInvalidToken
	}

	return claims, nil
}

// Revoke drops a refresh token from the allow-list.
func (ts *TokenService) Revoke(ctx context.Context, token string) error {
	if err := ts.allowList.Remove(ctx, token); err != nil {
		return core.StorageError("remove refresh token", err)
	}
	return nil
}

func (ts *TokenService) AccessTTL() time.Duration {
	return ts.accessTTL
}
