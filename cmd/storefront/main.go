package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lborres/storefront"
	fiberadapter "github.com/lborres/storefront/adapters/fiber"
	mongoadapter "github.com/lborres/storefront/adapters/mongo"
	pgxadapter "github.com/lborres/storefront/adapters/pgx"
	redisadapter "github.com/lborres/storefront/adapters/redis"
	"github.com/lborres/storefront/internal/config"
	"github.com/lborres/storefront/internal/metrics"
	"github.com/lborres/storefront/pkg/cache"
)

const connectTimeout = 10 * time.Second

func logFormat() string {
	format := []string{
		// Timestamp & Request ID
		"${time}|${requestid}",

		// Response metadata
		"${status}|${latency}",

		// Client info
		"${ip}:${port}",

		// Transfer size
		"${bytesReceived}|${bytesSent}",

		// Request details. Headers and bodies carry credentials and stay out.
		"${method}|${path}",

		// errors
		"${error}",
	}
	return strings.Join(format, "|") + "\n"
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	if err := run(*envFile); err != nil {
		bootLog, _ := zap.NewProduction()
		bootLog.Fatal("storefront exited", zap.Error(err))
	}
}

// run owns every connection it opens, so deferred cleanup runs on both
// startup failures and shutdown.
func run(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.UsingDevSecret {
		log.Warn("INSECURE_DEV_MODE: signing tokens with the built-in development secret")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rec := metrics.New()

	// Storage
	var db storefront.StorageAdapter
	switch cfg.DatabaseDriver {
	case "postgres":
		connectCtx, done := context.WithTimeout(ctx, connectTimeout)
		pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
		if err != nil {
			done()
			return fmt.Errorf("postgres connect: %w", err)
		}
		defer pool.Close()
		err = pool.Ping(connectCtx)
		done()
		if err != nil {
			return fmt.Errorf("postgres ping: %w", err)
		}

		pg := pgxadapter.New(pool)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		db = pg
		log.Info("using postgres store")
	default:
		connectCtx, done := context.WithTimeout(ctx, connectTimeout)
		client, err := mongoadapter.Connect(connectCtx, cfg.MongoURI)
		done()
		if err != nil {
			return fmt.Errorf("mongo connect: %w", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		mg := mongoadapter.New(client.Database(cfg.MongoDatabase))
		if err := mg.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		db = mg
		log.Info("using mongo store", zap.String("database", cfg.MongoDatabase))
	}

	// Refresh token allow-list
	var refreshTokens storefront.RefreshTokenStore
	switch cfg.RefreshStore {
	case "redis":
		connectCtx, done := context.WithTimeout(ctx, connectTimeout)
		allowList, err := redisadapter.Connect(connectCtx, redisadapter.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		done()
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer allowList.Close()
		refreshTokens = allowList
	default:
		allowList := cache.NewMemoryAllowList()
		rec.TrackAllowListSize(allowList.Len)
		defer func() {
			stats := allowList.Stats()
			log.Info("refresh allow-list stats",
				zap.Int64("adds", stats.Adds),
				zap.Int64("hits", stats.Hits),
				zap.Int64("misses", stats.Misses),
				zap.Int64("evictions", stats.Evictions),
			)
		}()
		refreshTokens = allowList
	}

	var hasher storefront.PasswordHandler
	if cfg.PasswordHasher == "argon2" {
		hasher = storefront.NewArgon2()
	} else {
		bcrypt, err := storefront.NewBcrypt(cfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("invalid BCRYPT_COST %d: %w", cfg.BcryptCost, err)
		}
		hasher = bcrypt
	}

	app := fiber.New(fiber.Config{AppName: "storefront"})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format:     logFormat(),
		TimeFormat: "2006/01/02 15:04:05",
		TimeZone:   "Local",
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("server connected")
	})
	app.Get("/metrics", adaptor.HTTPHandler(rec.Handler()))

	_, err = storefront.New(storefront.Config{
		Secret:          cfg.JWTSecret,
		Database:        db,
		HTTP:            fiberadapter.New(app, fiberadapter.WithMetrics(rec)),
		RefreshTokens:   refreshTokens,
		PasswordHasher:  hasher,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		StoreTimeout:    cfg.StoreTimeout,
		BasePath:        cfg.BasePath,
		Logger:          log,
	})
	if err != nil {
		return fmt.Errorf("create storefront: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr()), zap.String("basePath", cfg.BasePath))
		errCh <- app.Listen(cfg.Addr(), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			serveErr = fmt.Errorf("server stopped: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	return serveErr
}
