package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prismabox-scraper/internal/config"
	"prismabox-scraper/internal/domain/ports/adapter"
	"prismabox-scraper/internal/domain/ports/repository"
	"prismabox-scraper/internal/infra/adapters/extractor"
	"prismabox-scraper/internal/infra/adapters/sink"
	"prismabox-scraper/internal/infra/callback"
	pg "prismabox-scraper/internal/infra/db/postgres"
	"prismabox-scraper/internal/infra/jobstore"
	"prismabox-scraper/internal/infra/logging"
	"prismabox-scraper/internal/infra/metrics"
	red "prismabox-scraper/internal/infra/redis"
	"prismabox-scraper/internal/infra/sched"
	"prismabox-scraper/internal/infra/web"
	"prismabox-scraper/internal/infra/worker"
	"prismabox-scraper/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (relaxed validation, loopback callbacks allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Job store ----
	store, err := jobstore.New(cfg.Jobs.StorePath, cfg.Jobs.AutoCreate(), logger)
	if err != nil {
		log.Fatalf("job store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("job store close failed")
		}
	}()

	// ---- Box sink (postgres, or log-only without database.url) ----
	var boxSink repository.BoxSink
	if cfg.Database.URL != "" {
		pool, perr := pg.NewPgxPool(ctx, cfg.Database.URL)
		if perr != nil {
			log.Fatalf("postgres: %v", perr)
		}
		defer pool.Close()
		boxSink = pg.NewBoxRepo(pool, logger)
	} else {
		logger.Warn().Msg("database.url not set, extracted data will not be persisted")
		boxSink = sink.NewNoopSink(logger)
	}

	// ---- Redis rate limiter (optional) ----
	var limiter web.SubmitLimiter
	if cfg.Redis.URL != "" {
		redisClient, rerr := red.NewClient(ctx, &cfg.Redis)
		if rerr != nil {
			log.Fatalf("redis: %v", rerr)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set, submission rate limiting disabled")
	}

	// ---- Callback delivery ----
	notifier := callback.NewService(cfg.Callback.MaxRetries, cfg.Callback.RetryDelay, cfg.Callback.RequestTimeout, cfg.Callback.RestrictedMode(), logger)

	// ---- Extraction ----
	// The simulated adapter is the only shipped implementation; swap the
	// factory to target a real portal.
	if !cfg.Runtime.Dev {
		logger.Warn().Msg("using the simulated extraction adapter, no real portal is scraped")
	}
	factory := func(ctx context.Context) (adapter.ExtractionAdapter, error) {
		return extractor.NewSimulated(extractor.Options{Latency: 50 * time.Millisecond}, logger), nil
	}
	extractionUC := usecase.NewExtractionUseCase(factory, boxSink, cfg.Scraper.ActiveUnits(), cfg.Scraper.AttemptLimit, cfg.Scraper.RetryBackoff, logger)

	// ---- Supervisor + job use case ----
	supervisor := worker.NewSupervisor(store, notifier, cfg.Jobs.WorkerTimeout, logger)
	defer supervisor.Close()
	scrapingUC := usecase.NewScrapingUseCase(store, notifier, extractionUC, supervisor, cfg.Callback.ProgressUpdates, logger)

	// ---- Retention sweep ----
	purger := sched.NewPurgeWorker(cfg.Jobs.PurgeInterval, cfg.Jobs.Retention, store, logger)
	go func() { _ = purger.Run(ctx) }()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, cfg.Admin.TokenTTL)
	srv := web.NewServer(scrapingUC, auth, cfg.Admin.APIKey, limiter, cfg.Redis.SubmitLimit, cfg.Redis.SubmitWindow, cfg.Runtime.Dev, logger)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	cancel()
}
