package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dance-ops/internal/authz"
	"dance-ops/internal/config"
	"dance-ops/internal/db"
	"dance-ops/internal/handlers"
	"dance-ops/internal/metrics"
	"dance-ops/internal/models"
	"dance-ops/internal/pricing"
	"dance-ops/internal/reconcile"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg := config.Load()

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, conn, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := models.NewRepository(conn)

	// Default accounts
	if err := seedUser(ctx, repo, logger, cfg.AdminEmail, cfg.AdminPassword, models.RoleAdmin); err != nil {
		logger.Warn("failed to seed admin user", zap.Error(err))
	}
	if err := seedUser(ctx, repo, logger, cfg.ModeratorEmail, cfg.ModeratorPassword, models.RoleModerator); err != nil {
		logger.Warn("failed to seed moderator user", zap.Error(err))
	}

	prices, err := pricing.LoadOrDefault(cfg.PriceTablePath)
	if err != nil {
		return err
	}
	if err := prices.Validate(); err != nil {
		return fmt.Errorf("invalid price table: %w", err)
	}

	mode, err := authz.ParseMode(cfg.AuthzMode, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	authorizer, err := authz.NewAuthorizer(cfg.AuthzPolicyPath, mode)
	if err != nil {
		return err
	}

	m := metrics.New()
	svc := reconcile.NewService(repo, prices, logger, m)

	scheduler, err := reconcile.NewScheduler(cfg.ReconcileSchedule, svc, 10*time.Minute, logger)
	if err != nil {
		return err
	}
	scheduler.Start()

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handlers.NewRouter(handlers.Deps{
			Config:     cfg,
			Store:      repo,
			Reconciler: svc,
			Authz:      authorizer,
			Metrics:    m,
			Log:        logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", "http://localhost:"+cfg.Port),
			zap.String("env", cfg.AppEnv),
			zap.String("authz_mode", string(authorizer.Mode())),
			zap.Strings("locations", prices.LocationNames()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}

// seedUser creates a default account unless one with the email already exists.
func seedUser(ctx context.Context, repo *models.Repository, logger *zap.Logger, email, password, role string) error {
	if _, err := repo.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = repo.CreateUser(ctx, email, string(hashed), role)
	var exists *models.EmailAlreadyExistsError
	if errors.As(err, &exists) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("created default user", zap.String("email", email), zap.String("role", role))
	return nil
}
