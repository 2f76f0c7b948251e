// Command server runs the gamification engine API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/intinc/interact-engine/internal/api"
	"github.com/intinc/interact-engine/internal/auth"
	"github.com/intinc/interact-engine/internal/config"
	"github.com/intinc/interact-engine/internal/notifier"
	"github.com/intinc/interact-engine/internal/ratelimit"
	"github.com/intinc/interact-engine/internal/repository"
	"github.com/intinc/interact-engine/internal/seed"
	"github.com/intinc/interact-engine/internal/service/badges"
	"github.com/intinc/interact-engine/internal/service/leaderboard"
	"github.com/intinc/interact-engine/internal/service/points"
	"github.com/intinc/interact-engine/internal/service/rules"
	"github.com/intinc/interact-engine/internal/service/scheduler"
	"github.com/intinc/interact-engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting interact-engine")

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	store := repository.NewStore(db)

	if cfg.Engine.SeedFile != "" {
		f, err := seed.Load(cfg.Engine.SeedFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.Engine.SeedFile).Msg("Failed to load seed file")
		}
		if err := seed.Apply(f, store, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply seed catalog")
		}
	}

	var limiter api.RateLimiter
	if cfg.RateLimit.Enabled {
		redisClient, err := ratelimit.NewClient(&cfg.Database.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		limiter = ratelimit.NewLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window(), log)
		log.Info().
			Int("max_requests", cfg.RateLimit.MaxRequests).
			Dur("window", cfg.RateLimit.Window()).
			Msg("Rate limiting enabled")
	}

	teams := notifier.NewClient(&cfg.Teams, log)
	guard := auth.NewGuard(store.Users, cfg.Auth.OwnerEmails, log)

	pointsService := points.NewService(store, teams, log.Component("points"))
	badgeService := badges.NewService(store, teams, log.Component("badges"))
	ruleService := rules.NewService(store, teams, log.Component("rules"))
	leaderboardService := leaderboard.NewService(store.Points, store.Badges, store.Executions, log.Component("leaderboard"))

	sched := scheduler.NewService(&cfg.Scheduler, store.Points, teams, log.Component("scheduler"))
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer sched.Stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := api.NewHandler(
		ruleService,
		pointsService,
		badgeService,
		leaderboardService,
		store.Rules,
		store.Badges,
		db,
		guard,
		limiter,
		log,
	)
	handler.RegisterRoutes(router)

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
		log.Info().Str("path", cfg.Metrics.Path).Msg("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
	log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}
