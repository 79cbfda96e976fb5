package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/smartsaas/smartsaas-api/internal/config"
	"github.com/smartsaas/smartsaas-api/internal/domain/account"
	"github.com/smartsaas/smartsaas-api/internal/domain/ledger"
	"github.com/smartsaas/smartsaas-api/internal/domain/notification"
	"github.com/smartsaas/smartsaas-api/internal/domain/scheduler"
	"github.com/smartsaas/smartsaas-api/internal/middleware"
	"github.com/smartsaas/smartsaas-api/internal/pkg/database"
	"github.com/smartsaas/smartsaas-api/internal/pkg/jwt"
	pkgresponse "github.com/smartsaas/smartsaas-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting SmartSaaS API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	// ---------- Repositories ----------
	accountRepo := account.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db, accountRepo)
	notificationRepo := notification.NewRepository(db)

	// ---------- WebSocket hub ----------
	hub := notification.NewHub(redis)
	go hub.Run()

	// ---------- Services ----------
	notificationService := notification.NewService(notificationRepo, hub)
	ledgerService := ledger.NewService(ledgerRepo, accountRepo, cfg.Rewards, notificationService, redis)
	accountService := account.NewService(accountRepo, jwtService, ledgerService, cfg.Rewards.SignupCredits)

	// ---------- Background jobs ----------
	dailyJob, err := scheduler.NewDailyRewardJob(cfg.Scheduler, accountRepo, ledgerService, notificationService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build daily reward job")
	}
	weeklyJob, err := scheduler.NewWeeklyReportJob(cfg.Scheduler, accountRepo, ledgerService, notificationService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build weekly report job")
	}
	sched := scheduler.New(cfg.Scheduler.WakeInterval, dailyJob, weeklyJob)
	sched.Start()
	defer sched.Stop()

	cleanup := notification.NewCleanupJob(notificationRepo, 90)
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go cleanup.Start(cleanupCtx, 24*time.Hour)

	// ---------- Handlers ----------
	accountHandler := account.NewHandler(accountService)
	ledgerHandler := ledger.NewHandler(ledgerService)
	notificationHandler := notification.NewHandler(notificationService, hub)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/auth", accountHandler.Routes(authMiddleware))
		r.Mount("/tokens", ledgerHandler.TokenRoutes(authMiddleware, cfg.Rewards.SignupCredits))
		r.Mount("/credits", ledgerHandler.CreditRoutes(authMiddleware))
		r.Mount("/notifications", notificationHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	hub.Shutdown()

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
