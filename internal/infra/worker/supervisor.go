package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"prismabox-scraper/internal/domain"
	"prismabox-scraper/internal/domain/model"
	"prismabox-scraper/internal/domain/ports/adapter"
	"prismabox-scraper/internal/domain/ports/repository"
	"prismabox-scraper/internal/infra/metrics"
	"prismabox-scraper/internal/usecase"
)

var _ usecase.WorkerSupervisor = (*Supervisor)(nil)

// Supervisor runs one goroutine per job under a hard deadline and a panic
// fault boundary. A worker failure is always converted into a failed job plus
// an error callback; it never takes the process down.
type Supervisor struct {
	store    repository.JobStore
	notifier adapter.CallbackNotifier
	timeout  time.Duration

	mu      sync.Mutex
	workers map[string]*handle
	closed  bool
	wg      sync.WaitGroup

	log zerolog.Logger
}

type handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSupervisor(store repository.JobStore, notifier adapter.CallbackNotifier, timeout time.Duration, logger *zerolog.Logger) *Supervisor {
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &Supervisor{
		store:    store,
		notifier: notifier,
		timeout:  timeout,
		workers:  make(map[string]*handle),
		log:      logger.With().Str("component", "Supervisor").Logger(),
	}
}

// Start launches a worker for the job and blocks until the goroutine is
// running. Worker lifetime is bound to the supervisor's deadline, not to the
// submitting request, so the job keeps running after the HTTP response.
func (s *Supervisor) Start(job *model.Job, body func(ctx context.Context, job *model.Job) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSupervisorClosed
	}
	if _, exists := s.workers[job.ID]; exists {
		s.mu.Unlock()
		return domain.ErrWorkerActive
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	h := &handle{cancel: cancel, done: make(chan struct{})}
	s.workers[job.ID] = h
	s.wg.Add(1)
	s.mu.Unlock()

	started := make(chan struct{})
	go s.runner(ctx, job, body, h, started)
	<-started

	s.log.Info().Str("job_id", job.ID).Dur("timeout", s.timeout).Msg("worker started")
	return nil
}

func (s *Supervisor) runner(ctx context.Context, job *model.Job, body func(ctx context.Context, job *model.Job) error, h *handle, started chan struct{}) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.workers, job.ID)
		s.mu.Unlock()
		h.cancel()
		close(h.done)
	}()
	close(started)

	err := s.invoke(ctx, job, body)
	s.finalize(ctx, job, err)
}

// invoke is the fault boundary: a panicking worker surfaces as an error.
func (s *Supervisor) invoke(ctx context.Context, job *model.Job, body func(ctx context.Context, job *model.Job) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("job_id", job.ID).Interface("panic", r).Msg("worker panicked")
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return body(ctx, job)
}

// finalize guarantees the job leaves the worker in a terminal state and that
// failures reach the submitter's webhook.
func (s *Supervisor) finalize(ctx context.Context, job *model.Job, err error) {
	if err == nil {
		// The body finalizes on success; this only fires on a buggy body.
		if cur, gerr := s.store.Get(job.ID); gerr == nil && !cur.Status.Terminal() {
			err = errors.New("worker exited without finalizing the job")
		} else {
			return
		}
	}

	if errors.Is(err, context.Canceled) {
		// Termination path: whoever cancelled has already failed the job, or
		// is about to. Record the state but skip the callback.
		if ferr := s.store.Fail(job.ID, "job cancelled"); ferr == nil {
			metrics.IncJobFinished(string(model.JobStatusFailed))
		}
		return
	}

	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = fmt.Sprintf("job timed out after %s", s.timeout)
	}

	if ferr := s.store.Fail(job.ID, msg); ferr != nil {
		if errors.Is(ferr, domain.ErrJobFinalized) {
			return
		}
		s.log.Error().Str("job_id", job.ID).Err(ferr).Msg("could not record job failure")
	} else {
		metrics.IncJobFinished(string(model.JobStatusFailed))
		metrics.ObserveJobDuration(time.Since(job.CreatedAt))
	}
	_ = s.store.AppendLog(job.ID, msg, model.LogLevelError)

	var logs []model.LogEntry
	if cur, gerr := s.store.Get(job.ID); gerr == nil {
		logs = cur.Logs
	}
	// The worker context is spent by now; delivery runs on its own clock.
	res := s.notifier.SendError(context.Background(), job.CallbackURL, job.ID, msg, "", logs)
	if !res.Delivered {
		s.log.Warn().Str("job_id", job.ID).Int("attempts", res.Attempts).
			Str("error", res.Err).Msg("error callback not delivered")
	}
}

// Terminate cancels the worker for the given job, if one is active.
func (s *Supervisor) Terminate(jobID string) bool {
	s.mu.Lock()
	h, ok := s.workers[jobID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	h.cancel()
	return true
}

// Active returns the ids of jobs with a live worker, sorted for stable output.
func (s *Supervisor) Active() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.workers))
	for id := range s.workers {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Close stops accepting new work, cancels running workers, and waits for
// them to finish their failure bookkeeping.
func (s *Supervisor) Close() {
	s.mu.Lock()
	s.closed = true
	for _, h := range s.workers {
		h.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
