// Package sink holds box sink implementations that do not need a database.
package sink

import (
	"context"

	"github.com/rs/zerolog"

	"prismabox-scraper/internal/domain/model"
	"prismabox-scraper/internal/domain/ports/repository"
)

var _ repository.BoxSink = (*NoopSink)(nil)

// NoopSink implements repository.BoxSink for local/dev runs without a
// database. It logs batch sizes instead of writing rows.
type NoopSink struct {
	log zerolog.Logger
}

func NewNoopSink(logger *zerolog.Logger) *NoopSink {
	return &NoopSink{log: logger.With().Str("component", "NoopSink").Logger()}
}

func (s *NoopSink) Insert(ctx context.Context, boxes []model.BoxRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	loc := ""
	if len(boxes) > 0 {
		loc = boxes[0].Localidade
	}
	s.log.Info().Str("localidade", loc).Int("boxes", len(boxes)).Msg("discarding extracted batch (no database configured)")
	return len(boxes), nil
}

func (s *NoopSink) ClearByUnit(ctx context.Context, localidade string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Debug().Str("localidade", localidade).Msg("clear requested (no database configured)")
	return nil
}
