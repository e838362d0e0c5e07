package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pressstart/platform/internal/auth"
	"github.com/pressstart/platform/internal/guard"
	"github.com/pressstart/platform/internal/handler"
	"github.com/pressstart/platform/internal/infra"
	"github.com/pressstart/platform/internal/ledger"
	"github.com/pressstart/platform/internal/progression"
	"github.com/pressstart/platform/internal/provider"
	"github.com/pressstart/platform/internal/repository"
	"github.com/pressstart/platform/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	userExpiry, err := time.ParseDuration(cfg.JWTUserExpiry)
	if err != nil {
		return fmt.Errorf("parse user JWT expiry: %w", err)
	}
	adminExpiry, err := time.ParseDuration(cfg.JWTAdminExpiry)
	if err != nil {
		return fmt.Errorf("parse admin JWT expiry: %w", err)
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, userExpiry, adminExpiry)

	// Repositories
	userRepo := repository.NewUserRepository()
	grantRepo := repository.NewXPGrantRepository()
	claimRepo := repository.NewDailyClaimRepository()
	questRepo := repository.NewQuestContentRepository()
	progressRepo := repository.NewQuestProgressRepository()
	submissionRepo := repository.NewQuestSubmissionRepository()
	inventoryRepo := repository.NewInventoryRepository()
	postRepo := repository.NewPostProgressRepository()
	outboxRepo := repository.NewOutboxRepository()

	ledgerEngine := ledger.NewEngine(userRepo, grantRepo, outboxRepo)

	// External code-review oracle behind a circuit breaker
	reviewer := provider.NewOpenAIReviewer(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
	reviewBreaker := guard.NewCircuitBreaker(5, 30*time.Second)

	// Services
	authSvc := service.NewAuthService(pool, userRepo, outboxRepo, jwtMgr, logger)
	gameSvc := service.NewGameService(pool, ledgerEngine, userRepo, claimRepo, postRepo,
		inventoryRepo, grantRepo, outboxRepo, progression.DefaultRewardConfig(), logger)
	questSvc := service.NewQuestService(pool, ledgerEngine, questRepo, progressRepo,
		submissionRepo, inventoryRepo, outboxRepo, reviewer, reviewBreaker,
		progression.DefaultQuestConfig(), logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	gameHandler := handler.NewGameHandler(gameSvc)
	questHandler := handler.NewQuestHandler(questSvc)

	// Rate limiters
	authLimiter := guard.NewRateLimiter(10, time.Minute)
	submitLimiter := guard.NewRateLimiter(30, time.Minute)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS)
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	// Auth routes (no auth)
	r.Route("/auth", func(r chi.Router) {
		r.Use(handler.RateLimit(authLimiter))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// User-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticateUser(jwtMgr))

		r.Get("/auth/me", authHandler.Me)

		r.Route("/game", func(r chi.Router) {
			r.Post("/read-post", gameHandler.ReadPost)
			r.Post("/daily-reward", gameHandler.ClaimDailyReward)
			r.Post("/use-item", gameHandler.UseItem)
			r.Post("/check-access", gameHandler.CheckAccess)
			r.Get("/level-progress", gameHandler.LevelProgress)
			r.Get("/xp-history", gameHandler.XPHistory)
			r.Get("/inventory", gameHandler.Inventory)
		})

		r.Route("/quests", func(r chi.Router) {
			r.Get("/progress", questHandler.ListProgress)
			r.Post("/{questID}/start", questHandler.Start)
			r.Post("/{questID}/submit", questHandler.SubmitAnswer)
			r.With(handler.RateLimit(submitLimiter)).Post("/{questID}/submit-code", questHandler.SubmitCode)
			r.Get("/{questID}/progress", questHandler.GetProgress)
		})
	})

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // code review calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
