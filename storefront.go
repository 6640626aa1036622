package storefront

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lborres/storefront/core"
	"github.com/lborres/storefront/pkg/cache"
	"github.com/lborres/storefront/pkg/crypto"
	"github.com/lborres/storefront/pkg/validation"
	"github.com/lborres/storefront/services"
)

// interfaces
type (
	StorageAdapter    = core.StorageAdapter
	RefreshTokenStore = core.RefreshTokenStore
	HTTPAdapter       = core.HTTPAdapter
	PasswordHandler   = core.PasswordHandler
)

// structs
type (
	Storefront = core.Storefront
	Config     = core.Config
)

type (
	User    = core.User
	Claims  = core.Claims
	Product = core.Product
	Order   = core.Order
	Role    = core.Role
)

const (
	RoleAdmin  = core.RoleAdmin
	RoleSeller = core.RoleSeller
)

const (
	defaultBasePath     = "/api"
	defaultSecretLen    = 32
	defaultBcryptCost   = 8
	defaultStoreTimeout = 10 * time.Second
)

// Constructors & helpers (convenience re-exports)
var (
	NewMemoryAllowList = cache.NewMemoryAllowList
	NewArgon2          = crypto.NewArgon2
	NewBcrypt          = crypto.NewBcrypt
)

var (
	ErrUserExists         = core.ErrUserExists
	ErrUserNotFound       = core.ErrUserNotFound
	ErrInvalidCredentials = core.ErrInvalidCredentials
	ErrProductNotFound    = core.ErrProductNotFound
	ErrOrderNotFound      = core.ErrOrderNotFound
	ErrReviewExists       = core.ErrReviewExists
)

var (
	ErrMissingAuthHeader = core.ErrMissingAuthHeader
	ErrInvalidToken      = core.ErrInvalidToken
	ErrForbidden         = core.ErrForbidden
	ErrValidation        = core.ErrValidation
	ErrStorage           = core.ErrStorage
)

var (
	ErrDBAdapterRequired   = core.ErrDBAdapterRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
	ErrSecretRequired      = core.ErrSecretRequired
	ErrSecretTooShort      = core.ErrSecretTooShort
)

func New(config Config) (*Storefront, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < defaultSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, defaultSecretLen)
	}
	if config.Database == nil {
		return nil, ErrDBAdapterRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	// Set Defaults

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	refreshTokens := config.RefreshTokens
	if refreshTokens == nil {
		refreshTokens = NewMemoryAllowList()
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		bcrypt, err := NewBcrypt(defaultBcryptCost)
		if err != nil {
			return nil, err
		}
		passwordHasher = bcrypt
	}

	accessTTL := config.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = services.DefaultAccessTokenTTL
	}
	refreshTTL := config.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = services.DefaultRefreshTokenTTL
	}

	storeTimeout := config.StoreTimeout
	if storeTimeout == 0 {
		storeTimeout = defaultStoreTimeout
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	signer, err := crypto.NewSigner(config.Secret)
	if err != nil {
		return nil, err
	}
	tokens := services.NewTokenService(signer, refreshTokens, accessTTL, refreshTTL)
	v := validation.New()

	sf := &Storefront{
		Auth:           services.NewAuthService(config.Database, passwordHasher, tokens, v, logger),
		Users:          services.NewUserService(config.Database, passwordHasher, v),
		Catalog:        services.NewCatalogService(config.Database, v),
		Orders:         services.NewOrderService(config.Database, v),
		Logger:         logger,
		BasePath:       basePath,
		AccessTokenTTL: accessTTL,
		StoreTimeout:   storeTimeout,
	}

	if err := config.HTTP.RegisterRoutes(sf); err != nil {
		return nil, err
	}

	return sf, nil
}
