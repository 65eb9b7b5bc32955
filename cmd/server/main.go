package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rgeorgiou/quarterbook/internal/config"
	"github.com/rgeorgiou/quarterbook/internal/database"
	"github.com/rgeorgiou/quarterbook/internal/jobstatus"
	"github.com/rgeorgiou/quarterbook/internal/modules/accrual"
	"github.com/rgeorgiou/quarterbook/internal/modules/investments"
	"github.com/rgeorgiou/quarterbook/internal/modules/lifecycle"
	"github.com/rgeorgiou/quarterbook/internal/modules/rates"
	"github.com/rgeorgiou/quarterbook/internal/scheduler"
	"github.com/rgeorgiou/quarterbook/internal/server"
	"github.com/rgeorgiou/quarterbook/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Quarterbook")

	// Initialize database
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath,
		Profile: database.ProfileLedger,
		Name:    "core",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Repositories
	invRepo := investments.NewRepository(db.Conn(), log)
	rateRepo := rates.NewRepository(db.Conn(), log)
	checkpoints := jobstatus.NewRepository(db.Conn(), log)

	// Domain services
	resolver := rates.NewResolver(rateRepo, cfg.DefaultRate, log)
	manager := lifecycle.NewManager(invRepo, log)

	// Background jobs
	sched := scheduler.New(log)
	accrualJob := accrual.NewJob(invRepo, checkpoints, manager, resolver, log)
	rolloverJob := lifecycle.NewJob(manager, checkpoints, log)

	if err := sched.AddJob(cfg.AccrualSchedule, accrualJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register accrual job")
	}
	if err := sched.AddJob(cfg.RolloverSchedule, rolloverJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register rollover job")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:        cfg.Port,
		Log:         log,
		DB:          db,
		Investments: invRepo,
		Rates:       rateRepo,
		Resolver:    resolver,
		Lifecycle:   manager,
		Checkpoints: checkpoints,
		Jobs:        sched,
		DevMode:     cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
