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

	"github.com/Cherishclears/library-backend/config"
	"github.com/Cherishclears/library-backend/database"
	"github.com/Cherishclears/library-backend/handlers"
	"github.com/Cherishclears/library-backend/logging"
	"github.com/Cherishclears/library-backend/natsserver"
	"github.com/Cherishclears/library-backend/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// eventBroker is what the API needs from NATS, embedded or external
type eventBroker interface {
	services.Publisher
	services.Subscriber
}

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("❌ Server stopped")
		os.Exit(1)
	}
}

// run starts everything and blocks until a signal or a listener failure.
// Returning instead of exiting lets the deferred cleanups run.
func run() error {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	logging.Setup(cfg.Env, cfg.LogLevel)
	if envErr != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		return err
	}
	defer database.Close()

	// Borrow events go through NATS: external when NATS_URL is set, embedded otherwise
	var broker eventBroker
	var natsStats handlers.NATSStats
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("library-api"), nats.MaxReconnects(-1))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
		}
		defer nc.Close()
		broker = nc
		log.Info().Str("url", cfg.NATSURL).Msg("📡 Connected to external NATS")
	} else {
		natsCfg := natsserver.DefaultConfig()
		natsCfg.Port = cfg.NATSPort
		embedded, err := natsserver.New(natsCfg)
		if err != nil {
			return fmt.Errorf("failed to start NATS server: %w", err)
		}
		defer embedded.Shutdown()
		broker = embedded
		natsStats = embedded
	}

	// Stats cache is optional
	var cache services.StatsCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("⚠️ Redis unavailable, stats will not be cached")
			rdb.Close()
		} else {
			cache = services.NewRedisStatsCache(rdb)
			defer rdb.Close()
			log.Info().Str("addr", cfg.RedisAddr).Msg("🗄️ Redis stats cache enabled")
		}
		cancel()
	}

	users := services.NewUserService(database.DB)
	books := services.NewBookService(database.DB)
	borrows := services.NewBorrowService(database.DB, services.NewEventBus(broker), cfg.LoanPeriodDays)
	stats := services.NewStatsService(database.DB, cache, cfg.StatsCacheTTL)
	if cache != nil {
		if _, err := stats.WatchEvents(broker); err != nil {
			log.Warn().Err(err).Msg("⚠️ Stats cache will not be invalidated by borrow events")
		}
	}

	files, err := services.NewFileStorage(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	// Live notifications for dashboards
	hub := services.NewNotificationHub()
	if err := hub.Attach(broker); err != nil {
		return fmt.Errorf("failed to subscribe notification hub: %w", err)
	}
	go hub.Run()
	defer hub.Shutdown()

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if _, err := users.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Error().Err(err).Msg("❌ Failed to seed admin user")
		}
	}

	handlers.Configure(handlers.Dependencies{
		Users:           users,
		Books:           books,
		Borrows:         borrows,
		Stats:           stats,
		Files:           files,
		Hub:             hub,
		NATS:            natsStats,
		JWTSecret:       cfg.JWTSecret,
		JWTTTL:          cfg.JWTTTL,
		LoginRatePerMin: cfg.LoginRatePerMin,
	})

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.GinMiddleware())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", logging.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{logging.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return serve(srv, quit, 10*time.Second)
}

// serve runs srv until quit fires, then drains it within grace.
// A listener failure is returned without waiting for a signal.
func serve(srv *http.Server, quit <-chan os.Signal, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("🚀 Server running on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	log.Info().Msg("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
