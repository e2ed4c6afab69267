package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/beachhead/internal/auth"
	"github.com/freeeve/beachhead/internal/config"
	"github.com/freeeve/beachhead/internal/handler"
	"github.com/freeeve/beachhead/internal/logger"
	"github.com/freeeve/beachhead/internal/middleware"
	"github.com/freeeve/beachhead/internal/repository/postgres"
	redisrepo "github.com/freeeve/beachhead/internal/repository/redis"
	"github.com/freeeve/beachhead/internal/service"
	"github.com/freeeve/beachhead/internal/telemetry"
	"github.com/freeeve/beachhead/pkg/combat"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config invalid")
	}
	logger.Init(cfg)
	log.Info().
		Str("databaseURL", cfg.DatabaseURL).
		Int("diceSides", cfg.DiceSides).
		Bool("lowLuck", cfg.LowLuck).
		Dur("decisionTimeout", cfg.DecisionTimeout).
		Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "beachhead", cfg.OTelEndpoint)
	if err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
	}

	// Database
	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	battleRepo := postgres.NewBattleRepo(db)

	ruleset := combat.StandardRuleset()
	ruleset.Rules = cfg.Rules(ruleset.Rules)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)

	// WebSocket hub and the players' seats behind it
	wsHub := handler.NewHub()
	decisions := handler.NewRemoteDecisions(wsHub, cfg.DecisionTimeout)

	// Services
	battleSvc := service.NewBattleService(battleRepo, redisClient, ruleset, decisions, service.TimeSeeded, wsHub)

	// Handlers
	authHandler := handler.NewAuthHandler(jwtMgr, cfg.Dev)
	battleHandler := handler.NewBattleHandler(battleSvc)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr, decisions)
	healthHandler := handler.NewHealthHandler(map[string]handler.HealthCheck{
		"postgres": db.PingContext,
		"redis":    redisClient.Ping,
	})

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", healthHandler.Live)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	// Auth (public)
	mux.HandleFunc("POST /auth/dev", authHandler.DevLogin)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("PUT /games/{gameId}/board", battleHandler.LoadBoard)
	api.HandleFunc("POST /games/{gameId}/battles", battleHandler.StartBattle)
	api.HandleFunc("GET /games/{gameId}/battles", battleHandler.ListPending)
	api.HandleFunc("POST /games/{gameId}/battles/resolve", battleHandler.ResolvePending)
	api.HandleFunc("GET /battles/{id}", battleHandler.GetBattle)
	api.HandleFunc("GET /battles/{id}/steps", battleHandler.Steps)
	api.HandleFunc("POST /battles/{id}/rounds", battleHandler.FightRound)
	api.HandleFunc("GET /battles/{id}/rounds", battleHandler.Rounds)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.Recover, middleware.CORS("*"), middleware.JSON)

	// Decision prompts can keep a round open for the full decision timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.DecisionTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Rebuild the battle registry from the pending rows in Postgres.
	if err := battleSvc.RecoverPending(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to recover pending battles (non-fatal)")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Tracer shutdown error")
	}
	log.Info().Msg("Server stopped")
}
