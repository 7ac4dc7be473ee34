// Package extractor provides implementations of the extraction adapter port.
// The simulated adapter stands in for a real browsing session in dev mode and
// in end-to-end tests; it produces deterministic box data without touching
// the remote site.
package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"prismabox-scraper/internal/domain"
	"prismabox-scraper/internal/domain/model"
	"prismabox-scraper/internal/domain/ports/adapter"
)

var _ adapter.ExtractionAdapter = (*Simulated)(nil)

// Options tunes the simulated session. Zero values get sensible defaults.
type Options struct {
	// Pages is how many result pages each unit serves.
	Pages int
	// BoxesPerPage is how many rows each page holds.
	BoxesPerPage int
	// Latency is added to every operation, interruptible by the context.
	Latency time.Duration
	// FailUnits lists unit ids whose selection always fails, for exercising
	// the per-unit retry and containment paths.
	FailUnits map[string]bool
	// DropSessionAfter lists unit ids after which the session goes stale,
	// forcing a re-login before the next unit.
	DropSessionAfter map[string]bool
}

func (o *Options) defaults() {
	if o.Pages <= 0 {
		o.Pages = 2
	}
	if o.BoxesPerPage <= 0 {
		o.BoxesPerPage = 5
	}
}

// Simulated is a fake extraction session. Like the real one it is stateful
// and single-threaded: one unit is open at a time and pagination walks that
// unit's pages in order.
type Simulated struct {
	opts Options
	log  zerolog.Logger

	authed   bool
	filtered bool
	unit     model.Unit
	page     int
}

func NewSimulated(opts Options, logger *zerolog.Logger) *Simulated {
	opts.defaults()
	return &Simulated{
		opts: opts,
		log:  logger.With().Str("component", "SimulatedExtractor").Logger(),
	}
}

func (s *Simulated) wait(ctx context.Context) error {
	if s.opts.Latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(s.opts.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Simulated) Authenticate(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.authed = true
	s.filtered = false
	s.log.Debug().Msg("simulated login")
	return nil
}

func (s *Simulated) SessionActive(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.authed, nil
}

func (s *Simulated) OpenUnit(ctx context.Context, unit model.Unit) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if !s.authed {
		return fmt.Errorf("open unit %s: %w", unit.ID, domain.ErrOperationFailed)
	}
	if s.opts.FailUnits[unit.ID] {
		return fmt.Errorf("open unit %s: %w", unit.ID, domain.ErrOperationFailed)
	}
	s.unit = unit
	s.page = 1
	return nil
}

func (s *Simulated) ApplyAvailabilityFilter(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.filtered = true
	return nil
}

func (s *Simulated) ExtractPage(ctx context.Context) ([]model.BoxRecord, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.unit.ID == "" {
		return nil, fmt.Errorf("no unit selected: %w", domain.ErrOperationFailed)
	}

	boxes := make([]model.BoxRecord, 0, s.opts.BoxesPerPage)
	base := (s.page - 1) * s.opts.BoxesPerPage
	for i := 0; i < s.opts.BoxesPerPage; i++ {
		boxes = append(boxes, sampleBox(s.unit, base+i+1))
	}
	return boxes, nil
}

func (s *Simulated) NextPage(ctx context.Context) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}
	if s.page >= s.opts.Pages {
		if s.opts.DropSessionAfter[s.unit.ID] {
			s.authed = false
		}
		return false, nil
	}
	s.page++
	return true, nil
}

func (s *Simulated) Close(ctx context.Context) error {
	s.authed = false
	return nil
}

// sampleBox fabricates one row using the remote site's Portuguese formatting,
// comma decimals included, so the sink's normalization gets exercised.
func sampleBox(unit model.Unit, n int) model.BoxRecord {
	sizes := []struct {
		dims   string
		area   string
		volume string
		price  string
	}{
		{"1,0m x 1,0m x 2,5m", "1,00", "2,50", "55,00"},
		{"2,0m x 1,5m x 2,5m", "3,00", "7,50", "110,00"},
		{"2,0m x 2,0m x 2,5m", "4,00", "10,00", "145,00"},
		{"3,0m x 2,0m x 2,5m", "6,00", "15,00", "199,00"},
	}
	size := sizes[n%len(sizes)]
	return model.BoxRecord{
		BoxNumber:      fmt.Sprintf("%s-%03d", unit.ID, n),
		Status:         "Livre",
		LocationFull:   fmt.Sprintf("Piso %d > Corredor %c", n%3+1, 'A'+rune(n%4)),
		LocationAccess: "Acesso direto",
		TypeName:       "Box Individual",
		TypeFull:       fmt.Sprintf("Box Individual %s", size.dims),
		Dimensions:     size.dims,
		AreaM2:         size.area,
		VolumeM3:       size.volume,
		PriceMonthly:   size.price,
		PricePerM3:     "14,50",
		PriceDaily:     "6,90",
		AccessControl:  "24h",
	}
}
