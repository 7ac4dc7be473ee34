package adapter

import (
	"context"

	"prismabox-scraper/internal/domain/model"
)

// DeliveryResult reports the outcome of one webhook delivery, including the
// total number of POST attempts made.
type DeliveryResult struct {
	Delivered bool
	Status    int
	Err       string
	Attempts  int
}

// CallbackNotifier is the port for reporting job outcomes to the submitter's
// webhook. Delivery is at-least-once and best-effort; the job store remains
// the source of truth regardless of delivery outcome.
type CallbackNotifier interface {
	// ValidateURL rejects non-HTTP(S) schemes always and loopback hosts in
	// restricted mode.
	ValidateURL(raw string) error

	SendSuccess(ctx context.Context, target, jobID string, result *model.ScrapeResult) DeliveryResult
	SendError(ctx context.Context, target, jobID, message, errType string, logs []model.LogEntry) DeliveryResult
	SendProgress(ctx context.Context, target, jobID, message string, current, total int) DeliveryResult
}
