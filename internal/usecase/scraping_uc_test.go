//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"prismabox-scraper/internal/domain"
	"prismabox-scraper/internal/domain/model"
	"prismabox-scraper/internal/domain/ports/adapter"
	"prismabox-scraper/internal/domain/ports/repository"
	"prismabox-scraper/internal/usecase"
)

type scrapingDeps struct {
	store      *MockJobStore
	notifier   *MockNotifier
	supervisor *MockSupervisor
	ext        *MockExtractionAdapter
	sink       *MockBoxSink
}

func newScrapingUC(t *testing.T, progressUpdates bool) (*usecase.ScrapingUseCase, *scrapingDeps) {
	t.Helper()
	deps := &scrapingDeps{
		store:      NewMockJobStore(),
		notifier:   &MockNotifier{},
		supervisor: &MockSupervisor{},
		ext:        &MockExtractionAdapter{},
		sink:       &MockBoxSink{},
	}
	factory := func(ctx context.Context) (adapter.ExtractionAdapter, error) { return deps.ext, nil }
	extractionUC := usecase.NewExtractionUseCase(factory, deps.sink, testUnits, 1, 0, newTestLogger())
	uc := usecase.NewScrapingUseCase(deps.store, deps.notifier, extractionUC, deps.supervisor, progressUpdates, newTestLogger())
	return uc, deps
}

func TestScrapingUseCase_Submit(t *testing.T) {
	t.Run("happy path runs the job to completion", func(t *testing.T) {
		uc, deps := newScrapingUC(t, false)

		job, err := uc.Submit(context.Background(), "https://example.com/hook")
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if len(deps.supervisor.Started) != 1 || deps.supervisor.Started[0] != job.ID {
			t.Fatalf("worker not started for %s", job.ID)
		}

		// The mock supervisor ran the body synchronously.
		stored, err := deps.store.Get(job.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.Status != model.JobStatusCompleted {
			t.Errorf("job status = %s, want completed", stored.Status)
		}
		if stored.Result == nil || stored.Result.SuccessfulUnits != 3 {
			t.Errorf("result not attached: %+v", stored.Result)
		}

		succ := deps.notifier.CallsOf("success")
		if len(succ) != 1 || succ[0].Target != "https://example.com/hook" || succ[0].JobID != job.ID {
			t.Errorf("success callback not sent correctly: %v", succ)
		}
	})

	t.Run("invalid callback URL is rejected before creating a job", func(t *testing.T) {
		uc, deps := newScrapingUC(t, false)
		deps.notifier.ValidateErr = fmt.Errorf("%w: scheme must be http or https", domain.ErrInvalidCallbackURL)

		_, err := uc.Submit(context.Background(), "ftp://example.com")
		if !errors.Is(err, domain.ErrInvalidCallbackURL) {
			t.Fatalf("expected ErrInvalidCallbackURL, got %v", err)
		}
		if len(deps.store.List()) != 0 {
			t.Error("no job should have been created")
		}
		if len(deps.supervisor.Started) != 0 {
			t.Error("no worker should have been started")
		}
	})

	t.Run("launch failure marks the job failed and reports it", func(t *testing.T) {
		uc, deps := newScrapingUC(t, false)
		deps.supervisor.StartErr = domain.ErrSupervisorClosed

		_, err := uc.Submit(context.Background(), "https://example.com/hook")
		if err == nil {
			t.Fatal("expected submit error")
		}

		jobs := deps.store.List()
		if len(jobs) != 1 {
			t.Fatalf("expected the job record to remain, got %d", len(jobs))
		}
		if jobs[0].Status != model.JobStatusFailed {
			t.Errorf("job status = %s, want failed", jobs[0].Status)
		}

		errCalls := deps.notifier.CallsOf("error")
		if len(errCalls) != 1 {
			t.Fatalf("expected 1 error callback, got %d", len(errCalls))
		}
		if errCalls[0].Target != "https://example.com/hook" || errCalls[0].JobID != jobs[0].ID {
			t.Errorf("error callback misdirected: %+v", errCalls[0])
		}
		if !strings.Contains(errCalls[0].Message, "failed to launch worker") {
			t.Errorf("error callback message = %q", errCalls[0].Message)
		}
	})
}

func TestScrapingUseCase_ProgressCallbacks(t *testing.T) {
	t.Run("sent when enabled", func(t *testing.T) {
		uc, deps := newScrapingUC(t, true)
		if _, err := uc.Submit(context.Background(), "https://example.com/hook"); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if got := len(deps.notifier.CallsOf("progress")); got != 3 {
			t.Errorf("expected 3 progress callbacks, got %d", got)
		}
	})

	t.Run("suppressed when disabled", func(t *testing.T) {
		uc, deps := newScrapingUC(t, false)
		if _, err := uc.Submit(context.Background(), "https://example.com/hook"); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if got := len(deps.notifier.CallsOf("progress")); got != 0 {
			t.Errorf("expected no progress callbacks, got %d", got)
		}
	})
}

func TestScrapingUseCase_StatusStripsCallbackURL(t *testing.T) {
	uc, deps := newScrapingUC(t, false)

	job, err := uc.Submit(context.Background(), "https://secret.example.com/hook")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	view, err := uc.Status(job.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.ID != job.ID {
		t.Errorf("view id = %s, want %s", view.ID, job.ID)
	}

	// The view type has no callback field at all; confirm the underlying
	// record still carries it for delivery.
	stored, _ := deps.store.Get(job.ID)
	if stored.CallbackURL != "https://secret.example.com/hook" {
		t.Error("callback URL lost from the store")
	}

	if _, err := uc.Status("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestScrapingUseCase_Cancel(t *testing.T) {
	t.Run("unknown job", func(t *testing.T) {
		uc, _ := newScrapingUC(t, false)
		if err := uc.Cancel("missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("terminal job conflicts", func(t *testing.T) {
		uc, deps := newScrapingUC(t, false)
		job, err := uc.Submit(context.Background(), "https://example.com/hook")
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		// Completed by the synchronous mock supervisor.
		if err := uc.Cancel(job.ID); !errors.Is(err, domain.ErrJobFinalized) {
			t.Errorf("expected ErrJobFinalized, got %v", err)
		}
		stored, _ := deps.store.Get(job.ID)
		if stored.Result == nil {
			t.Error("stored result must not be altered by a rejected cancel")
		}
	})

	t.Run("running job is terminated and marked failed", func(t *testing.T) {
		uc, deps := newScrapingUC(t, false)

		if _, err := deps.store.Create("job-1", "https://example.com/hook"); err != nil {
			t.Fatalf("create: %v", err)
		}
		running := model.JobStatusRunning
		if _, err := deps.store.Update("job-1", repository.JobUpdate{Status: &running}); err != nil {
			t.Fatalf("update: %v", err)
		}

		if err := uc.Cancel("job-1"); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if len(deps.supervisor.Terminated) != 1 || deps.supervisor.Terminated[0] != "job-1" {
			t.Errorf("supervisor not asked to terminate: %v", deps.supervisor.Terminated)
		}

		stored, _ := deps.store.Get("job-1")
		if stored.Status != model.JobStatusFailed {
			t.Errorf("job status = %s, want failed", stored.Status)
		}
		if stored.Error != "cancelled by caller" {
			t.Errorf("job error = %q", stored.Error)
		}
	})

	t.Run("losing the race to a completion conflicts", func(t *testing.T) {
		uc, deps := newScrapingUC(t, false)

		if _, err := deps.store.Create("job-1", "https://example.com/hook"); err != nil {
			t.Fatalf("create: %v", err)
		}
		running := model.JobStatusRunning
		if _, err := deps.store.Update("job-1", repository.JobUpdate{Status: &running}); err != nil {
			t.Fatalf("update: %v", err)
		}
		// The worker finishes between the terminal check and the Fail call.
		deps.supervisor.TerminateFunc = func(id string) {
			if err := deps.store.Complete(id, &model.ScrapeResult{Summary: "done"}); err != nil {
				t.Fatalf("complete: %v", err)
			}
		}

		if err := uc.Cancel("job-1"); !errors.Is(err, domain.ErrJobFinalized) {
			t.Fatalf("expected ErrJobFinalized, got %v", err)
		}
		stored, _ := deps.store.Get("job-1")
		if stored.Status != model.JobStatusCompleted {
			t.Errorf("job status = %s, want completed", stored.Status)
		}
		if stored.Result == nil {
			t.Error("completed result must survive the rejected cancel")
		}
	})
}

func TestScrapingUseCase_ActiveWorkers(t *testing.T) {
	uc, deps := newScrapingUC(t, false)
	deps.supervisor.ActiveIDs = []string{"a", "b"}

	got := uc.ActiveWorkers()
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("active workers = %v", got)
	}
}
