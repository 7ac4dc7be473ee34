package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"prismabox-scraper/internal/domain/ports/repository"
	"prismabox-scraper/internal/infra/metrics"
)

// PurgeWorker periodically removes terminal jobs older than the retention
// window from the job store.
type PurgeWorker struct {
	interval time.Duration
	maxAge   time.Duration
	store    repository.JobStore
	log      *zerolog.Logger
}

func NewPurgeWorker(interval, maxAge time.Duration, store repository.JobStore, logger *zerolog.Logger) *PurgeWorker {
	purgeLog := logger.With().Str("component", "PurgeWorker").Logger()
	return &PurgeWorker{
		interval: interval,
		maxAge:   maxAge,
		store:    store,
		log:      &purgeLog,
	}
}

func (w *PurgeWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("retention", w.maxAge).Msg("Starting purge worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping purge worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.store.PurgeOlderThan(w.maxAge)
			if err != nil {
				w.log.Error().Err(err).Msg("purge worker error")
			}
			if n > 0 {
				metrics.AddJobsPurged(n)
				w.log.Info().Int("count", n).Msg("old jobs purged")
			}
		}
	}
}
