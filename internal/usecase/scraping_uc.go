package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"prismabox-scraper/internal/domain"
	"prismabox-scraper/internal/domain/model"
	"prismabox-scraper/internal/domain/ports/adapter"
	"prismabox-scraper/internal/domain/ports/repository"
	"prismabox-scraper/internal/infra/metrics"
)

// WorkerSupervisor runs job bodies in isolated workers with a hard runtime
// limit and a panic fault boundary. Start blocks until the worker goroutine
// is live so callers can respond knowing the job is actually in flight.
type WorkerSupervisor interface {
	Start(job *model.Job, body func(ctx context.Context, job *model.Job) error) error
	// Terminate cancels the job's worker. Returns false when no worker with
	// that id is active.
	Terminate(jobID string) bool
	Active() []string
	Close()
}

// ScrapingUseCase ties the public job lifecycle together: it accepts
// submissions, hands them to the supervisor, reports status from the store,
// and serves cancellation.
type ScrapingUseCase struct {
	store           repository.JobStore
	notifier        adapter.CallbackNotifier
	extraction      *ExtractionUseCase
	supervisor      WorkerSupervisor
	progressUpdates bool
	log             zerolog.Logger
}

func NewScrapingUseCase(store repository.JobStore, notifier adapter.CallbackNotifier, extraction *ExtractionUseCase, supervisor WorkerSupervisor, progressUpdates bool, logger *zerolog.Logger) *ScrapingUseCase {
	return &ScrapingUseCase{
		store:           store,
		notifier:        notifier,
		extraction:      extraction,
		supervisor:      supervisor,
		progressUpdates: progressUpdates,
		log:             logger.With().Str("component", "ScrapingUseCase").Logger(),
	}
}

// Submit validates the callback target, registers the job, and launches its
// worker. The returned job is already registered even if the launch failed;
// launch failures are recorded on the job and returned to the caller.
func (uc *ScrapingUseCase) Submit(ctx context.Context, callbackURL string) (*model.Job, error) {
	if err := uc.notifier.ValidateURL(callbackURL); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	job, err := uc.store.Create(id, callbackURL)
	if err != nil {
		return nil, err
	}

	if err := uc.supervisor.Start(job, uc.run); err != nil {
		msg := fmt.Sprintf("failed to launch worker: %v", err)
		if ferr := uc.store.Fail(id, msg); ferr == nil {
			metrics.IncJobFinished(string(model.JobStatusFailed))
		}
		_ = uc.store.AppendLog(id, msg, model.LogLevelError)
		if res := uc.notifier.SendError(context.Background(), callbackURL, id, msg, "SpawnError", nil); !res.Delivered {
			uc.log.Warn().Str("job_id", id).Str("delivery_error", res.Err).Msg("spawn failure callback not delivered")
		}
		return nil, fmt.Errorf("launch worker for job %s: %w", id, err)
	}

	uc.log.Info().Str("job_id", id).Msg("job accepted")
	return job, nil
}

// run is the worker body for one job. It is executed inside the supervisor's
// fault boundary; errors returned here are recorded on the job and reported
// through the callback by the supervisor.
func (uc *ScrapingUseCase) run(ctx context.Context, job *model.Job) error {
	running := model.JobStatusRunning
	progress := "scraping in progress"
	if _, err := uc.store.Update(job.ID, repository.JobUpdate{Status: &running, Progress: &progress}); err != nil {
		return err
	}
	_ = uc.store.AppendLog(job.ID, "scraping run started", model.LogLevelInfo)

	result, err := uc.extraction.Run(ctx, func(current, total int, unit model.Unit) {
		uc.reportProgress(ctx, job, current, total, unit)
	})
	if err != nil {
		_ = uc.store.AppendLog(job.ID, fmt.Sprintf("scraping run failed: %v", err), model.LogLevelError)
		return err
	}

	if err := uc.store.Complete(job.ID, result); err != nil {
		if errors.Is(err, domain.ErrJobFinalized) {
			// The job was cancelled while the last unit was in flight.
			uc.log.Warn().Str("job_id", job.ID).Msg("run finished after job was finalized, discarding result")
			return nil
		}
		return err
	}
	metrics.IncJobFinished(string(model.JobStatusCompleted))
	metrics.ObserveJobDuration(time.Since(job.CreatedAt))
	_ = uc.store.AppendLog(job.ID, result.Summary, model.LogLevelInfo)

	// Delivery gets its own context so a worker deadline reached during the
	// final unit cannot cut off the result webhook.
	res := uc.notifier.SendSuccess(context.Background(), job.CallbackURL, job.ID, result)
	if !res.Delivered {
		_ = uc.store.AppendLog(job.ID, fmt.Sprintf("result callback failed after %d attempts: %s", res.Attempts, res.Err), model.LogLevelWarn)
	}
	return nil
}

func (uc *ScrapingUseCase) reportProgress(ctx context.Context, job *model.Job, current, total int, unit model.Unit) {
	msg := fmt.Sprintf("processed %d/%d units (last: %s)", current, total, unit.DisplayName)
	if _, err := uc.store.Update(job.ID, repository.JobUpdate{Progress: &msg}); err != nil {
		uc.log.Warn().Str("job_id", job.ID).Err(err).Msg("progress update failed")
	}
	_ = uc.store.AppendLog(job.ID, msg, model.LogLevelInfo)

	if uc.progressUpdates {
		uc.notifier.SendProgress(ctx, job.CallbackURL, job.ID, msg, current, total)
	}
}

// Status returns the externally visible view of a job.
func (uc *ScrapingUseCase) Status(id string) (*model.JobView, error) {
	job, err := uc.store.Get(id)
	if err != nil {
		return nil, err
	}
	return job.View(), nil
}

// List returns views of every known job, most recent first.
func (uc *ScrapingUseCase) List() []*model.JobView {
	jobs := uc.store.List()
	views := make([]*model.JobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, j.View())
	}
	return views
}

// Cancel terminates a running job. Terminal jobs cannot be cancelled.
func (uc *ScrapingUseCase) Cancel(id string) error {
	job, err := uc.store.Get(id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return domain.ErrJobFinalized
	}

	uc.supervisor.Terminate(id)
	if err := uc.store.Fail(id, "cancelled by caller"); err != nil {
		// Losing the race to a concurrent completion means the job was not
		// cancelled; the caller gets the same conflict as for any terminal job.
		return err
	}
	metrics.IncJobFinished(string(model.JobStatusFailed))
	_ = uc.store.AppendLog(id, "job cancelled by caller", model.LogLevelWarn)
	uc.log.Info().Str("job_id", id).Msg("job cancelled")
	return nil
}

// ActiveWorkers lists ids of jobs with a live worker.
func (uc *ScrapingUseCase) ActiveWorkers() []string {
	return uc.supervisor.Active()
}
