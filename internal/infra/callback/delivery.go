package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"prismabox-scraper/internal/domain"
	"prismabox-scraper/internal/domain/model"
	"prismabox-scraper/internal/domain/ports/adapter"
	"prismabox-scraper/internal/infra/metrics"
)

const userAgent = "PrismaBox-Scraper-API/1.0"

var _ adapter.CallbackNotifier = (*Service)(nil)

// Service posts job outcomes to caller-supplied webhooks with bounded retry.
// Delivery is best-effort: an exhausted retry budget is reported to the
// caller and never escalated; the job store stays authoritative.
type Service struct {
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	restricted bool
	log        zerolog.Logger
}

func NewService(maxRetries int, retryDelay, requestTimeout time.Duration, restricted bool, logger *zerolog.Logger) *Service {
	return &Service{
		client:     &http.Client{Timeout: requestTimeout},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		restricted: restricted,
		log:        logger.With().Str("component", "CallbackDelivery").Logger(),
	}
}

// ValidateURL rejects non-HTTP(S) schemes always and loopback hosts in
// restricted mode.
func (s *Service) ValidateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: callbackUrl is required", domain.ErrInvalidCallbackURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidCallbackURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", domain.ErrInvalidCallbackURL)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", domain.ErrInvalidCallbackURL)
	}
	if s.restricted && isLoopback(u.Hostname()) {
		return fmt.Errorf("%w: loopback hosts are not allowed", domain.ErrInvalidCallbackURL)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// Send POSTs payload to target, retrying up to maxRetries additional times
// on any failure (network error, timeout, non-2xx).
func (s *Service) Send(ctx context.Context, target string, payload any) adapter.DeliveryResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return adapter.DeliveryResult{Err: fmt.Sprintf("marshal payload: %v", err), Attempts: 0}
	}

	var lastErr string
	for attempt := 1; attempt <= s.maxRetries+1; attempt++ {
		status, err := s.post(ctx, target, body)
		if err == nil {
			s.log.Info().Str("url", target).Int("status", status).Int("attempt", attempt).Msg("callback delivered")
			metrics.ObserveCallback(true, attempt)
			return adapter.DeliveryResult{Delivered: true, Status: status, Attempts: attempt}
		}

		lastErr = err.Error()
		s.log.Warn().Str("url", target).Int("attempt", attempt).Int("max", s.maxRetries+1).
			Err(err).Msg("callback attempt failed")

		if attempt <= s.maxRetries {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				metrics.ObserveCallback(false, attempt)
				return adapter.DeliveryResult{Err: ctx.Err().Error(), Attempts: attempt}
			}
		}
	}

	s.log.Error().Str("url", target).Int("attempts", s.maxRetries+1).Msg("callback delivery exhausted")
	metrics.ObserveCallback(false, s.maxRetries+1)
	return adapter.DeliveryResult{Err: lastErr, Attempts: s.maxRetries + 1}
}

func (s *Service) post(ctx context.Context, target string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// Payload shapes. Every shape carries the job id and an RFC3339 timestamp;
// receivers must treat deliveries as at-least-once.

type successPayload struct {
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      struct {
		Summary         string `json:"summary"`
		TotalBoxes      int    `json:"totalBoxes"`
		UnitsProcessed  int    `json:"unitsProcessed"`
		SuccessfulUnits int    `json:"successfulUnits"`
		ProcessingTime  int    `json:"processingTime"`
	} `json:"data"`
}

type errorPayload struct {
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     struct {
		Message string           `json:"message"`
		Type    string           `json:"type"`
		Logs    []model.LogEntry `json:"logs"`
	} `json:"error"`
}

type progressPayload struct {
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Progress  struct {
		Message     string `json:"message"`
		Percentage  int    `json:"percentage"`
		CurrentUnit int    `json:"currentUnit"`
		TotalUnits  int    `json:"totalUnits"`
	} `json:"progress"`
}

func (s *Service) SendSuccess(ctx context.Context, target, jobID string, result *model.ScrapeResult) adapter.DeliveryResult {
	p := successPayload{JobID: jobID, Status: "success", Timestamp: time.Now().UTC()}
	p.Data.Summary = result.Summary
	p.Data.TotalBoxes = result.TotalBoxes
	p.Data.UnitsProcessed = result.UnitsProcessed
	p.Data.SuccessfulUnits = result.SuccessfulUnits
	p.Data.ProcessingTime = result.ProcessingTime
	return s.Send(ctx, target, p)
}

func (s *Service) SendError(ctx context.Context, target, jobID, message, errType string, logs []model.LogEntry) adapter.DeliveryResult {
	p := errorPayload{JobID: jobID, Status: "error", Timestamp: time.Now().UTC()}
	p.Error.Message = message
	if errType == "" {
		errType = "ScrapingError"
	}
	p.Error.Type = errType
	p.Error.Logs = logs
	return s.Send(ctx, target, p)
}

func (s *Service) SendProgress(ctx context.Context, target, jobID, message string, current, total int) adapter.DeliveryResult {
	p := progressPayload{JobID: jobID, Status: "progress", Timestamp: time.Now().UTC()}
	p.Progress.Message = message
	p.Progress.CurrentUnit = current
	p.Progress.TotalUnits = total
	if total > 0 {
		p.Progress.Percentage = current * 100 / total
	}
	return s.Send(ctx, target, p)
}
