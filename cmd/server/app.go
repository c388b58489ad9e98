package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/digicapsule/capsule-api/internal/api"
	"github.com/digicapsule/capsule-api/internal/cache"
	"github.com/digicapsule/capsule-api/internal/config"
	"github.com/digicapsule/capsule-api/internal/platform/postgres"
	"github.com/digicapsule/capsule-api/internal/platform/rediscache"
	"github.com/digicapsule/capsule-api/internal/platform/s3media"
	"github.com/digicapsule/capsule-api/internal/service"
	"github.com/digicapsule/capsule-api/internal/service/auth"
	"github.com/digicapsule/capsule-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// application bundles every long-lived dependency of the server process.
type application struct {
	config *config.Config
	logger *slog.Logger

	db          *sql.DB
	redisClient *redis.Client

	userStore    store.UserStore
	capsuleStore store.CapsuleStore
	tokenStore   store.TokenStore

	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	verification     *auth.VerificationService
	capsuleService   service.CapsuleService
	mediaStorage     api.MediaStorage
}

// newApplication wires configuration, storage, caches and services into a
// ready-to-serve application.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: log}

	db, err := setupAppDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := postgres.RunMigrations(db); err != nil {
		return nil, err
	}

	app.userStore = postgres.NewPostgresUserStore(db, bcrypt.DefaultCost, log)
	app.capsuleStore = postgres.NewPostgresCapsuleStore(db, log)
	app.tokenStore = postgres.NewPostgresTokenStore(db, log)

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	app.passwordVerifier = auth.NewBcryptVerifier()

	app.verification, err = auth.NewVerificationService(
		app.userStore,
		app.tokenStore,
		auth.NewLogMailer(log),
		verificationLifetime(cfg),
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification service: %w", err)
	}

	app.capsuleService, err = service.NewCapsuleService(
		app.capsuleStore,
		app.userStore,
		app.setupListCache(ctx),
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create capsule service: %w", err)
	}

	if cfg.Media.Bucket != "" {
		storage, err := s3media.New(ctx, cfg.Media.Bucket, cfg.Media.Region, cfg.Media.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create media storage: %w", err)
		}
		app.mediaStorage = storage
		log.Info("media storage configured", "bucket", cfg.Media.Bucket)
	} else {
		log.Info("media storage disabled, no bucket configured")
	}

	return app, nil
}

// setupListCache picks the capsule list cache backend: Redis when
// configured and reachable, the in-process cache otherwise.
func (app *application) setupListCache(ctx context.Context) service.CapsuleListCache {
	if app.config.Redis.Addr == "" {
		app.logger.Info("redis not configured, using in-process capsule list cache")
		return cache.NewMemoryCache()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     app.config.Redis.Addr,
		Password: app.config.Redis.Password,
		DB:       app.config.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		app.logger.Warn("redis unreachable, falling back to in-process capsule list cache",
			"error", err,
			"addr", app.config.Redis.Addr)
		_ = rdb.Close()
		return cache.NewMemoryCache()
	}

	app.redisClient = rdb
	app.logger.Info("redis capsule list cache configured", "addr", app.config.Redis.Addr)
	return rediscache.NewCapsuleListCache(rdb)
}

func verificationLifetime(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Auth.VerificationTokenLifetimeMinutes) * time.Minute
}

// cleanup releases process-wide resources during shutdown.
func (app *application) cleanup() {
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("failed to close redis client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
