package core

import (
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Secret string

	Database StorageAdapter

	HTTP HTTPAdapter

	// Optional config
	RefreshTokens   RefreshTokenStore
	PasswordHasher  PasswordHandler
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	StoreTimeout    time.Duration
	BasePath        string
	Logger          *zap.Logger
}

type Storefront struct {
	Auth     AuthProvider
	Users    UserProvider
	Catalog  CatalogProvider
	Orders   OrderProvider
	Logger   *zap.Logger
	BasePath string

	// AccessTokenTTL sets the lifetime of the login cookie.
	AccessTokenTTL time.Duration

	// StoreTimeout bounds each request's store calls. Zero disables it.
	StoreTimeout time.Duration
}
