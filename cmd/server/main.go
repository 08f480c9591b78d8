package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/config"
	"github.com/aristath/robo-trader/internal/database"
	"github.com/aristath/robo-trader/internal/events"
	"github.com/aristath/robo-trader/internal/judge"
	"github.com/aristath/robo-trader/internal/modules/allocation"
	"github.com/aristath/robo-trader/internal/modules/ingest"
	"github.com/aristath/robo-trader/internal/modules/orders"
	"github.com/aristath/robo-trader/internal/modules/pricing"
	"github.com/aristath/robo-trader/internal/modules/rebalancing"
	"github.com/aristath/robo-trader/internal/scheduler"
	"github.com/aristath/robo-trader/internal/server"
	"github.com/aristath/robo-trader/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootstrap := logger.New(logger.Config{Level: "info", Pretty: true})
		bootstrap.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("judge_mode", string(cfg.JudgeMode)).
		Msg("Starting rebalancing engine")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	eventManager := events.NewManager(log)

	// Select the signal source
	var adapter judge.Adapter
	var stub *judge.Stub
	switch cfg.JudgeMode {
	case config.JudgeModeStub:
		stub = judge.NewStub(judge.DefaultDataset(), log)
		adapter = stub
	case config.JudgeModeRemote:
		adapter = judge.NewRemoteClient(cfg.JudgeURL, cfg.JudgeAPIKey, cfg.JudgeTimeout, log)
	}

	// Order book: in-memory store with sqlite write-through
	store := orders.NewStore(orders.Config{
		TTL:  cfg.OrderTTL,
		Repo: orders.NewRepository(db.Conn(), log),
		Log:  log,
	})
	if err := store.Hydrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to hydrate order book")
	}

	// Allocation pipeline
	allocator := allocation.NewAllocator(allocation.NewProjector(log), cfg.SignalTemperature, cfg.SignalNormalization, log)
	rebalanceService := rebalancing.NewService(rebalancing.ServiceConfig{
		Judge:        adapter,
		Allocator:    allocator,
		Translator:   rebalancing.NewTranslator(cfg.LotSize),
		Pricer:       pricing.NewPricer(cfg.ImpactMax, cfg.ImpactSteepness),
		Store:        store,
		Events:       eventManager,
		JudgeTimeout: cfg.JudgeTimeout,
		Log:          log,
	})

	// Background jobs
	sched := scheduler.New(log)
	judgeProbe := scheduler.NewJudgeProbeJob(adapter, cfg.JudgeTimeout, log)
	registerJobs(sched, db, judgeProbe, log)
	sched.Start()
	defer sched.Stop()

	// Dataset ingest only makes sense against the stub
	var ingestHandler *ingest.Handler
	if stub != nil {
		ingestHandler = ingest.NewHandler(ingest.NewService(stub, eventManager, log), log)
	}

	srv := server.New(server.Config{
		Port:        cfg.Port,
		Log:         log,
		DB:          db,
		Config:      cfg,
		DevMode:     cfg.DevMode,
		Rebalancing: rebalancing.NewHandler(rebalanceService, log),
		Orders:      orders.NewHandler(store, eventManager, log),
		Ingest:      ingestHandler,
		JudgeProbe:  judgeProbe,
		Scheduler:   sched,
	})

	go func() {
		if err := srv.Start(); err != nil {
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

func registerJobs(sched *scheduler.Scheduler, db *database.DB, judgeProbe *scheduler.JudgeProbeJob, log zerolog.Logger) {
	if err := sched.AddJob("@every 30s", judgeProbe); err != nil {
		log.Fatal().Err(err).Msg("Failed to register judge probe job")
	}
	if err := sched.AddJob("0 0 */6 * * *", scheduler.NewDatabaseHealthJob(db, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register db health job")
	}

	// Prime the health report before the first tick
	_ = sched.RunNow(judgeProbe)
}
