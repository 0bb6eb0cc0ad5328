package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/nourabuild/finance-service/internal/app"
	"github.com/nourabuild/finance-service/internal/config"
	"github.com/nourabuild/finance-service/internal/core/avatar"
	"github.com/nourabuild/finance-service/internal/core/credential"
	"github.com/nourabuild/finance-service/internal/core/report"
	"github.com/nourabuild/finance-service/internal/core/resource"
	"github.com/nourabuild/finance-service/internal/core/session"
	"github.com/nourabuild/finance-service/internal/sdk/jwt"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb"
	"github.com/nourabuild/finance-service/internal/services/hash"
	"github.com/nourabuild/finance-service/internal/services/localfs"
	"github.com/nourabuild/finance-service/internal/services/mailtrap"
	"github.com/nourabuild/finance-service/internal/services/minio"
	"github.com/nourabuild/finance-service/internal/services/redis"
	"github.com/nourabuild/finance-service/internal/services/sentry"
	"golang.org/x/sync/errgroup"
)

const revokedTokenPruneInterval = time.Hour

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	logger.Info("GOMAXPROCS", "cpu", runtime.GOMAXPROCS(0))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Database
	dbService, err := sqldb.New(ctx, sqldb.Config{
		Driver:       cfg.DBDriver,
		URL:          cfg.DatabaseDSN(),
		MaxOpenConns: 25,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbService.Close()

	// 2. Initialize Services
	sentryService := sentry.NewSentryService(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
	}, logger)
	defer sentryService.Close()

	hashService := hash.NewHashService(cfg.BcryptCost)
	jwtService := jwt.NewTokenService(cfg.JWTSecret, jwt.WithIssuer(cfg.JWTIssuer), jwt.WithTTL(cfg.JWTTTL))
	mailtrapService := mailtrap.NewMailtrapService(mailtrap.Config{
		APIKey: cfg.MailtrapAPIKey,
		URL:    cfg.MailtrapAPIURL,
		From:   cfg.MailFrom,
	})

	denylist, closeDenylist, err := newDenylist(ctx, cfg, dbService, logger)
	if err != nil {
		return err
	}
	defer closeDenylist()

	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var denylistHealth app.Pinger
	if p, ok := denylist.(app.Pinger); ok {
		denylistHealth = p
	}

	// 3. Initialize Core
	expenses := resource.NewExpenses(dbService)
	budgets := resource.NewBudgets(dbService)

	a := app.NewApp(app.Config{
		Logger:         logger,
		DB:             dbService,
		Denylist:       denylistHealth,
		Credentials:    credential.NewService(dbService, hashService),
		Sessions:       session.NewGate(jwtService, dbService, denylist),
		Expenses:       expenses,
		Budgets:        budgets,
		Avatars:        avatar.NewService(blobs, dbService, logger, avatar.WithMaxBytes(cfg.AvatarMaxBytes)),
		Reports:        report.NewService(expenses, budgets),
		Mailer:         mailtrapService,
		Sentry:         sentryService,
		ResetURLBase:   cfg.ResetURLBase,
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSAllowedOrigins,
	})

	// 4. Configure Server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// 5. Start Server
	g.Go(func() error {
		logger.Info("Starting server", "port", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	// 6. Graceful Shutdown Logic
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully, press Ctrl+C again to force")
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		pruneRevokedTokens(gctx, dbService, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newDenylist prefers Redis when configured and falls back to the database.
func newDenylist(ctx context.Context, cfg *config.Config, db sqldb.Service, logger *slog.Logger) (session.Denylist, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("token denylist", "backend", "sql")
		return session.NewSQLDenylist(db), func() {}, nil
	}

	rdb, err := redis.NewDenylist(ctx, redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("token denylist: %w", err)
	}

	logger.Info("token denylist", "backend", "redis", "addr", cfg.RedisAddr)
	return rdb, func() { _ = rdb.Close() }, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (avatar.BlobStore, error) {
	if cfg.AvatarStore != "minio" {
		store, err := localfs.New(cfg.AvatarDir)
		if err != nil {
			return nil, fmt.Errorf("avatar store: %w", err)
		}
		logger.Info("avatar store", "backend", "local", "dir", cfg.AvatarDir)
		return store, nil
	}

	store, err := minio.NewMinioService(minio.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("avatar store: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("avatar store: %w", err)
	}

	logger.Info("avatar store", "backend", "minio", "bucket", cfg.MinioBucket)
	return store, nil
}

// pruneRevokedTokens drops expired denylist rows until ctx is done.
func pruneRevokedTokens(ctx context.Context, db sqldb.Service, logger *slog.Logger) {
	ticker := time.NewTicker(revokedTokenPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.DeleteExpiredRevokedTokens(ctx); err != nil {
				logger.Warn("pruning revoked tokens", "error", err)
			}
		}
	}
}
