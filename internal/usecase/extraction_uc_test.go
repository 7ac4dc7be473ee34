//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"prismabox-scraper/internal/domain/model"
	"prismabox-scraper/internal/domain/ports/adapter"
	"prismabox-scraper/internal/usecase"
)

var testUnits = []model.Unit{
	{ID: "lisboa", DisplayName: "Lisboa", Active: true},
	{ID: "porto", DisplayName: "Porto", Active: true},
	{ID: "faro", DisplayName: "Faro", Active: true},
}

func staticFactory(ext adapter.ExtractionAdapter) usecase.AdapterFactory {
	return func(ctx context.Context) (adapter.ExtractionAdapter, error) { return ext, nil }
}

func TestExtractionUseCase_FailedUnitDoesNotAbortBatch(t *testing.T) {
	ext := &MockExtractionAdapter{}
	ext.OpenUnitFunc = func(ctx context.Context, unit model.Unit) error {
		if unit.ID == "porto" {
			return errors.New("unit page broken")
		}
		return nil
	}

	sink := &MockBoxSink{}
	uc := usecase.NewExtractionUseCase(staticFactory(ext), sink, testUnits, 2, time.Millisecond, newTestLogger())

	result, err := uc.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.UnitsProcessed != 3 {
		t.Errorf("units processed = %d, want 3", result.UnitsProcessed)
	}
	if result.SuccessfulUnits != 2 {
		t.Errorf("successful units = %d, want 2", result.SuccessfulUnits)
	}
	if len(result.FailedUnits) != 1 || result.FailedUnits[0].UnitID != "porto" {
		t.Fatalf("failed units = %v, want just porto", result.FailedUnits)
	}
	if result.FailedUnits[0].Attempts != 2 {
		t.Errorf("failed unit attempts = %d, want 2", result.FailedUnits[0].Attempts)
	}
	if len(result.Reports) != 3 {
		t.Errorf("expected a report per unit, got %d", len(result.Reports))
	}

	// Reports stay in submitted unit order.
	for i, r := range result.Reports {
		if r.UnitID != testUnits[i].ID {
			t.Errorf("report %d is %s, want %s", i, r.UnitID, testUnits[i].ID)
		}
	}

	if !strings.HasPrefix(result.Summary, "Scraping finished:") {
		t.Errorf("unexpected summary %q", result.Summary)
	}
	if !ext.Closed {
		t.Error("adapter session was not closed")
	}
}

func TestExtractionUseCase_TotalsCountOnlySuccessfulUnits(t *testing.T) {
	ext := &MockExtractionAdapter{}
	ext.ExtractPageFunc = func(ctx context.Context) ([]model.BoxRecord, error) {
		return []model.BoxRecord{{BoxNumber: "X-1"}, {BoxNumber: "X-2"}}, nil
	}

	sink := &MockBoxSink{}
	uc := usecase.NewExtractionUseCase(staticFactory(ext), sink, testUnits, 1, 0, newTestLogger())

	result, err := uc.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.TotalBoxes != 6 {
		t.Errorf("total boxes = %d, want 6", result.TotalBoxes)
	}
	if result.ExtractedAt.IsZero() {
		t.Error("extracted_at not stamped")
	}
}

func TestExtractionUseCase_LoginFailureIsFatal(t *testing.T) {
	ext := &MockExtractionAdapter{}
	ext.AuthenticateFunc = func(ctx context.Context) error {
		return errors.New("invalid credentials")
	}

	sink := &MockBoxSink{}
	uc := usecase.NewExtractionUseCase(staticFactory(ext), sink, testUnits, 2, time.Millisecond, newTestLogger())

	_, err := uc.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected run-level failure on login error")
	}
	if len(ext.OpenCalls) != 0 {
		t.Errorf("no unit should have been opened, got %v", ext.OpenCalls)
	}
}

func TestExtractionUseCase_ProgressReportedPerUnit(t *testing.T) {
	ext := &MockExtractionAdapter{}
	sink := &MockBoxSink{}
	uc := usecase.NewExtractionUseCase(staticFactory(ext), sink, testUnits, 1, 0, newTestLogger())

	type tick struct {
		current, total int
		unit           string
	}
	var ticks []tick
	_, err := uc.Run(context.Background(), func(current, total int, unit model.Unit) {
		ticks = append(ticks, tick{current, total, unit.ID})
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(ticks) != 3 {
		t.Fatalf("expected 3 progress ticks, got %d", len(ticks))
	}
	for i, tk := range ticks {
		if tk.current != i+1 || tk.total != 3 || tk.unit != testUnits[i].ID {
			t.Errorf("tick %d = %+v", i, tk)
		}
	}
}

func TestExtractionUseCase_CancelledContextStopsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ext := &MockExtractionAdapter{}
	ext.OpenUnitFunc = func(c context.Context, unit model.Unit) error {
		if unit.ID == "lisboa" {
			cancel() // mid-run termination
		}
		return nil
	}

	sink := &MockBoxSink{}
	uc := usecase.NewExtractionUseCase(staticFactory(ext), sink, testUnits, 1, 0, newTestLogger())

	_, err := uc.Run(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
