package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"prismabox-scraper/internal/domain/model"
	"prismabox-scraper/internal/domain/ports/adapter"
	"prismabox-scraper/internal/domain/ports/repository"
	"prismabox-scraper/internal/infra/metrics"
)

// UnitProcessor drives one unit at a time through the extraction adapter:
// select the unit, apply the availability filter (once per run, re-applied
// after re-login), walk the pages, and flush the unit's records to the sink
// before moving on. One instance covers one job run; it is not safe for
// concurrent use, matching the adapter's single browsing session.
type UnitProcessor struct {
	ext           adapter.ExtractionAdapter
	sink          repository.BoxSink
	guard         *SessionGuard
	attemptLimit  int
	backoff       time.Duration
	filterApplied bool
	log           zerolog.Logger
}

func NewUnitProcessor(ext adapter.ExtractionAdapter, sink repository.BoxSink, guard *SessionGuard, attemptLimit int, backoff time.Duration, logger *zerolog.Logger) *UnitProcessor {
	if attemptLimit <= 0 {
		attemptLimit = 2
	}
	return &UnitProcessor{
		ext:          ext,
		sink:         sink,
		guard:        guard,
		attemptLimit: attemptLimit,
		backoff:      backoff,
		log:          logger.With().Str("component", "UnitProcessor").Logger(),
	}
}

// Process runs the full retry loop for one unit and always returns a report.
// Unit failure is contained here; it never aborts the batch.
func (p *UnitProcessor) Process(ctx context.Context, unit model.Unit) model.UnitReport {
	start := time.Now()
	report := model.UnitReport{UnitID: unit.ID, UnitName: unit.DisplayName}

	var lastErr error
	for attempt := 1; attempt <= p.attemptLimit; attempt++ {
		report.Attempts = attempt

		count, err := p.attempt(ctx, unit)
		if err == nil {
			report.Status = model.UnitStatusSuccess
			report.BoxCount = count
			report.ElapsedMS = time.Since(start).Milliseconds()
			p.log.Info().Str("unit", unit.DisplayName).Int("boxes", count).
				Int("attempt", attempt).Msg("unit processed")
			metrics.ObserveUnit(string(model.UnitStatusSuccess), count, report.ElapsedMS)
			return report
		}

		lastErr = err
		p.log.Warn().Str("unit", unit.DisplayName).Int("attempt", attempt).
			Int("limit", p.attemptLimit).Err(err).Msg("unit attempt failed")

		if attempt < p.attemptLimit {
			select {
			case <-time.After(p.backoff):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = p.attemptLimit // stop retrying
			}
		}
	}

	report.Status = model.UnitStatusFailed
	report.Error = lastErr.Error()
	report.ElapsedMS = time.Since(start).Milliseconds()
	metrics.ObserveUnit(string(model.UnitStatusFailed), 0, report.ElapsedMS)
	return report
}

// attempt performs one selection + extraction + flush pass for the unit.
func (p *UnitProcessor) attempt(ctx context.Context, unit model.Unit) (int, error) {
	reLogin, err := p.guard.EnsureAuthenticated(ctx)
	if err != nil {
		return 0, err
	}
	if reLogin {
		// The filter lived in the discarded session.
		p.filterApplied = false
	}

	if err := p.ext.OpenUnit(ctx, unit); err != nil {
		return 0, fmt.Errorf("select unit %s: %w", unit.ID, err)
	}

	if !p.filterApplied {
		if err := p.ext.ApplyAvailabilityFilter(ctx); err != nil {
			return 0, fmt.Errorf("apply filter: %w", err)
		}
		p.filterApplied = true
	}

	boxes, err := p.paginate(ctx, unit)
	if err != nil {
		return 0, err
	}

	return p.flush(ctx, unit, boxes)
}

// paginate collects records page by page. A failure after the first page
// stops pagination but keeps what was already gathered.
func (p *UnitProcessor) paginate(ctx context.Context, unit model.Unit) ([]model.BoxRecord, error) {
	var boxes []model.BoxRecord
	for page := 1; ; page++ {
		recs, err := p.ext.ExtractPage(ctx)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("extract page %d: %w", page, err)
			}
			p.log.Warn().Str("unit", unit.DisplayName).Int("page", page).
				Err(err).Msg("page fetch failed mid-loop, keeping partial pages")
			return boxes, nil
		}
		boxes = append(boxes, recs...)

		more, err := p.ext.NextPage(ctx)
		if err != nil {
			p.log.Warn().Str("unit", unit.DisplayName).Int("page", page).
				Err(err).Msg("pagination stopped, keeping partial pages")
			return boxes, nil
		}
		if !more {
			return boxes, nil
		}
	}
}

// flush clears the unit's previous records and writes the fresh batch. The
// clear must complete before the insert for the same locality key.
func (p *UnitProcessor) flush(ctx context.Context, unit model.Unit, boxes []model.BoxRecord) (int, error) {
	now := time.Now().UTC()
	for i := range boxes {
		boxes[i].Localidade = unit.DisplayName
		boxes[i].ExtractedAt = now
	}

	if err := p.sink.ClearByUnit(ctx, unit.DisplayName); err != nil {
		return 0, fmt.Errorf("clear unit data: %w", err)
	}
	n, err := p.sink.Insert(ctx, boxes)
	if err != nil {
		return 0, fmt.Errorf("insert unit data: %w", err)
	}
	return n, nil
}
