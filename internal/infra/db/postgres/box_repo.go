package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"prismabox-scraper/internal/domain/model"
	"prismabox-scraper/internal/domain/ports/repository"
)

var _ repository.BoxSink = (*BoxRepo)(nil)

// numericCap bounds parsed values to what the numeric(7,2) columns hold.
const numericCap = 99999.99

// BoxRepo persists extracted box rows into the boxes table. Refreshing a
// unit is clear-then-insert keyed by localidade, so stale rows from earlier
// runs never survive a successful extraction.
type BoxRepo struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewBoxRepo(pool *pgxpool.Pool, logger *zerolog.Logger) *BoxRepo {
	return &BoxRepo{
		pool: pool,
		log:  logger.With().Str("component", "BoxRepo").Logger(),
	}
}

const insertBoxSQL = `
INSERT INTO boxes (
  box_number, status, location_full, location_access, type_name, type_full,
  dimensions, area_m2, volume_m3, price_monthly, price_per_m3, price_daily,
  access_control, localidade, extracted_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
);`

func (r *BoxRepo) Insert(ctx context.Context, boxes []model.BoxRecord) (int, error) {
	if len(boxes) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, b := range boxes {
		batch.Queue(insertBoxSQL,
			b.BoxNumber, b.Status, b.LocationFull, b.LocationAccess,
			b.TypeName, b.TypeFull, b.Dimensions,
			parseNumeric(b.AreaM2), parseNumeric(b.VolumeM3),
			parseNumeric(b.PriceMonthly), parseNumeric(b.PricePerM3), parseNumeric(b.PriceDaily),
			b.AccessControl, b.Localidade, b.ExtractedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range boxes {
		if _, err := br.Exec(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				r.log.Error().Str("code", pgErr.Code).Str("detail", pgErr.Detail).
					Str("box_number", boxes[i].BoxNumber).Msg("box insert rejected")
			}
			return i, fmt.Errorf("insert box %s: %w", boxes[i].BoxNumber, err)
		}
	}
	return len(boxes), nil
}

func (r *BoxRepo) ClearByUnit(ctx context.Context, localidade string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM boxes WHERE localidade=$1;`, localidade)
	if err != nil {
		return fmt.Errorf("clear boxes for %s: %w", localidade, err)
	}
	r.log.Debug().Str("localidade", localidade).Int64("rows", tag.RowsAffected()).Msg("cleared unit boxes")
	return nil
}

// parseNumeric turns a site-formatted number ("1.234,56", "145,00 €") into a
// value for a numeric column. Unparseable input maps to NULL rather than
// failing the row; values beyond the column range are capped.
func parseNumeric(raw string) interface{} {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, raw)
	if cleaned == "" {
		return nil
	}

	// Comma is the decimal separator; dots are thousands grouping.
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	if v > numericCap {
		v = numericCap
	}
	if v < 0 {
		return nil
	}
	return v
}
