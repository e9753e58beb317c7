package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/puttworks/putt-server-go/internal/api"
	"github.com/puttworks/putt-server-go/internal/auth"
	"github.com/puttworks/putt-server-go/internal/config"
	"github.com/puttworks/putt-server-go/internal/game/course"
	"github.com/puttworks/putt-server-go/internal/repository"
	"github.com/puttworks/putt-server-go/internal/round"
	"github.com/puttworks/putt-server-go/internal/server"
	"github.com/puttworks/putt-server-go/internal/session"
	"github.com/puttworks/putt-server-go/internal/store"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting putt server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("auth.jwt_secret must be configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Database is optional; without it the server runs rounds but keeps no
	// accounts or history.
	var (
		persister round.Persister
		history   api.RoundHistory
		players   api.PlayerStore
	)
	db, err := repository.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Warn("database unavailable, running without persistence", zap.Error(err))
	} else {
		defer db.Close()
		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
		if err := repository.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath, logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		roundRepo := repository.NewRoundRepository(db, logger)
		players = repository.NewPlayerRepository(db)
		history = roundRepo
		persister = roundRepo
	}

	var (
		snapshots  round.Snapshots
		snapReader api.SnapshotReader
	)
	redisClient, err := store.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Warn("redis unavailable, running without snapshot cache", zap.Error(err))
	} else {
		defer redisClient.Close()
		roundStore := store.NewRoundStore(redisClient, cfg.Redis.SnapshotTTL, logger)
		snapshots = roundStore
		snapReader = roundStore
		logger.Info("redis snapshot store initialized")
	}

	sessionMgr := session.NewManager(cfg.Server.LeasePeriod, logger)
	logger.Info("session manager initialized",
		zap.Duration("lease_period", cfg.Server.LeasePeriod),
	)
	go sessionMgr.CleanupExpiredSessions(ctx)

	roundMgr, err := round.NewManager(cfg.Game, persister, snapshots, logger)
	if err != nil {
		logger.Fatal("failed to initialize round manager", zap.Error(err))
	}
	defer roundMgr.Shutdown()
	go roundMgr.ReapIdleRounds(ctx)
	logger.Info("round manager initialized",
		zap.Int("tick_rate", cfg.Game.TickRate),
		zap.Int("snapshot_rate", cfg.Game.SnapshotRate),
	)

	issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("failed to initialize token issuer", zap.Error(err))
	}

	gateway := server.NewGateway(sessionMgr, roundMgr, issuer, cfg.Server.AllowedOrigins, logger)

	courses := []*course.Course{course.Default()}
	apiServer := api.NewServer(cfg, players, history, snapReader, roundMgr, sessionMgr, issuer, courses, gateway, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: apiServer.Router(),
	}
	go func() {
		logger.Info("listening", zap.String("address", cfg.Server.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(serveErr))
		}
	}()

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()
	sessionMgr.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}

	logger.Info("putt server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
