package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"prismabox-scraper/internal/domain/model"
	"prismabox-scraper/internal/domain/ports/adapter"
	"prismabox-scraper/internal/domain/ports/repository"
)

// AdapterFactory builds a fresh extraction session for a single job run.
// Every run gets its own adapter so job workers never share browser state.
type AdapterFactory func(ctx context.Context) (adapter.ExtractionAdapter, error)

// ProgressFunc is invoked after each unit finishes, before the next starts.
type ProgressFunc func(current, total int, unit model.Unit)

// ExtractionUseCase runs the full batch for one job: authenticate once, then
// process each configured unit in order, and assemble the final result.
type ExtractionUseCase struct {
	factory      AdapterFactory
	sink         repository.BoxSink
	units        []model.Unit
	attemptLimit int
	backoff      time.Duration
	log          zerolog.Logger
}

func NewExtractionUseCase(factory AdapterFactory, sink repository.BoxSink, units []model.Unit, attemptLimit int, backoff time.Duration, logger *zerolog.Logger) *ExtractionUseCase {
	return &ExtractionUseCase{
		factory:      factory,
		sink:         sink,
		units:        units,
		attemptLimit: attemptLimit,
		backoff:      backoff,
		log:          logger.With().Str("component", "ExtractionUseCase").Logger(),
	}
}

// Run executes the batch and returns the aggregated result. It returns an
// error only for run-level failures (session could not be opened, initial
// login failed, or the context was cancelled); per-unit failures are folded
// into the result instead.
func (uc *ExtractionUseCase) Run(ctx context.Context, progress ProgressFunc) (*model.ScrapeResult, error) {
	start := time.Now()

	ext, err := uc.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("open extraction session: %w", err)
	}
	defer func() {
		// Forced termination may already have spent ctx; release anyway.
		if cerr := ext.Close(context.WithoutCancel(ctx)); cerr != nil {
			uc.log.Warn().Err(cerr).Msg("adapter close failed")
		}
	}()

	guard := NewSessionGuard(ext, &uc.log)
	if err := guard.Login(ctx); err != nil {
		return nil, err
	}

	proc := NewUnitProcessor(ext, uc.sink, guard, uc.attemptLimit, uc.backoff, &uc.log)

	total := len(uc.units)
	reports := make([]model.UnitReport, 0, total)
	for i, unit := range uc.units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		uc.log.Info().Str("unit", unit.DisplayName).
			Int("position", i+1).Int("total", total).Msg("processing unit")
		reports = append(reports, proc.Process(ctx, unit))

		if progress != nil {
			progress(i+1, total, unit)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return assembleResult(reports, total, time.Since(start)), nil
}

func assembleResult(reports []model.UnitReport, total int, elapsed time.Duration) *model.ScrapeResult {
	var boxes, ok int
	var failed []model.UnitReport
	for _, r := range reports {
		if r.Status == model.UnitStatusSuccess {
			ok++
			boxes += r.BoxCount
		} else {
			failed = append(failed, r)
		}
	}
	return &model.ScrapeResult{
		Summary:         fmt.Sprintf("Scraping finished: %d boxes across %d units", boxes, ok),
		TotalBoxes:      boxes,
		UnitsProcessed:  total,
		SuccessfulUnits: ok,
		FailedUnits:     failed,
		Reports:         reports,
		ProcessingTime:  int(elapsed.Seconds()),
		ExtractedAt:     time.Now().UTC(),
	}
}
