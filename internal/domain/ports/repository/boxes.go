package repository

import (
	"context"

	"prismabox-scraper/internal/domain/model"
)

// BoxSink persists extracted box records, queryable and clearable by the
// locality key (the unit's display name). Inserts from different units or
// jobs may run concurrently; a unit's clear must complete before that same
// unit's fresh insert.
type BoxSink interface {
	Insert(ctx context.Context, boxes []model.BoxRecord) (int, error)
	ClearByUnit(ctx context.Context, localidade string) error
}
