package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"satistakip/backend/internal/cache"
	"satistakip/backend/internal/config"
	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/exchange"
	"satistakip/backend/internal/httpapi"
	"satistakip/backend/internal/service"
	"satistakip/backend/internal/store"
	"satistakip/backend/internal/store/memory"
	pgstore "satistakip/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal("invalid security configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			if err := pgstore.Migrate(cfg.DatabaseURL, logger.Named("migrate")); err != nil {
				logger.Fatal("apply migrations", zap.Error(err))
			}
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, logger.Named("store"))
		if err != nil {
			logger.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		if err := bootstrapAdmin(ctx, pg, cfg.SeedAdminPassword, logger); err != nil {
			logger.Fatal("bootstrap admin account", zap.Error(err))
		}
		logger.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded(logger.Named("store"))
		logger.Info("repository: in-memory")
	}

	rateCache, closeCache := newRateCache(ctx, cfg, logger)
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	rates := exchange.NewRates(
		exchange.NewHTTPSource(cfg.ExchangeRateURL, cfg.ExchangeHTTPTimeout),
		rateCache,
		exchange.Options{TTL: cfg.ExchangeRateTTL, Logger: logger.Named("exchange")},
	)
	svc := service.New(repo, rates, service.Options{
		CommitTimeout: cfg.CommitTimeout,
		DraftIdleTTL:  cfg.DraftIdleTTL,
		Location:      cfg.Location(),
		Logger:        logger.Named("service"),
	})
	auth := httpapi.NewAuthManager(ctx, cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo, logger.Named("auth"))
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger.Named("http"))

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.CommitTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("sales backend listening", zap.String("addr", cfg.Address()), zap.String("timezone", cfg.Location().String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newRateCache prefers Redis when REDIS_ADDR is set and the server answers a
// ping; otherwise rates are cached in process memory. The returned close
// function is nil for the memory cache.
func newRateCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (cache.RateCache, func() error) {
	if cfg.RedisAddr == "" {
		logger.Info("rate cache: in-memory")
		return cache.NewMemoryRateCache(), nil
	}
	redisCache := cache.NewRedisRateCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, using in-memory rate cache", zap.Error(err))
		_ = redisCache.Close()
		return cache.NewMemoryRateCache(), nil
	}
	logger.Info("rate cache: redis", zap.String("addr", cfg.RedisAddr))
	return redisCache, redisCache.Close
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.SeedAdminPassword != "" && len(cfg.SeedAdminPassword) < 8 {
		return fmt.Errorf("SEED_ADMIN_PASSWORD must be at least 8 characters")
	}
	return nil
}

type userBootstrapper interface {
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
}

// bootstrapAdmin creates the first admin account when the user table is
// empty. Without a seed password an empty table is left as is and nobody can
// log in.
func bootstrapAdmin(ctx context.Context, users userBootstrapper, password string, logger *zap.Logger) error {
	existing, err := users.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	if password == "" {
		logger.Warn("no user accounts exist; set SEED_ADMIN_PASSWORD to create an admin")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := users.CreateUser(ctx, domain.UserAccount{
		Username:  "admin",
		Password:  string(hash),
		Role:      domain.RoleAdmin,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}
	logger.Info("created initial admin account")
	return nil
}
