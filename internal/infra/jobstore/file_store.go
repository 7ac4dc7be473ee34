package jobstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"prismabox-scraper/internal/domain"
	"prismabox-scraper/internal/domain/model"
	"prismabox-scraper/internal/domain/ports/repository"
)

var _ repository.JobStore = (*FileStore)(nil)

// FileStore keeps every job in memory and snapshots the whole collection to
// a single JSON file on each mutation. The write amplification is deliberate:
// a crash can never leave a job newer than its last flushed snapshot, and the
// on-disk layout stays trivially inspectable.
type FileStore struct {
	mu         sync.Mutex
	path       string
	jobs       map[string]*model.Job
	autoCreate bool
	closed     bool
	log        zerolog.Logger
}

// New loads the snapshot at path (creating an empty one when absent). The
// autoCreate flag enables the placeholder-on-unknown-id policy for mutation
// calls; see JobsConfig.AutoCreateMissing.
func New(path string, autoCreate bool, logger *zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	s := &FileStore{
		path:       path,
		jobs:       make(map[string]*model.Job),
		autoCreate: autoCreate,
		log:        logger.With().Str("component", "JobStore").Logger(),
	}

	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := s.flushLocked(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read job store: %w", err)
	default:
		var list []*model.Job
		if err := json.Unmarshal(b, &list); err != nil {
			return nil, fmt.Errorf("parse job store: %w", err)
		}
		for _, j := range list {
			s.jobs[j.ID] = j
		}
		s.log.Info().Int("jobs", len(list)).Msg("job store loaded")
	}

	return s, nil
}

func (s *FileStore) Create(id, callbackURL string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrOperationFailed
	}
	if _, ok := s.jobs[id]; ok {
		return nil, domain.ErrDuplicateJob
	}

	j := model.NewJob(id, callbackURL)
	s.jobs[id] = j
	if err := s.flushLocked(); err != nil {
		delete(s.jobs, id)
		return nil, err
	}
	s.log.Info().Str("job_id", id).Msg("job created")
	return cloneJob(j), nil
}

func (s *FileStore) Update(id string, upd repository.JobUpdate) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.fetchOrCreateLocked(id, "update")
	if err != nil {
		return nil, err
	}

	if upd.Status != nil && !j.Status.Terminal() {
		j.Status = *upd.Status
	}
	if upd.Progress != nil {
		j.Progress = *upd.Progress
	}
	j.UpdatedAt = time.Now().UTC()

	if err := s.flushLocked(); err != nil {
		return nil, err
	}
	return cloneJob(j), nil
}

func (s *FileStore) AppendLog(id, message string, level model.LogLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.fetchOrCreateLocked(id, "append_log")
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	j.Logs = append(j.Logs, model.LogEntry{Timestamp: now, Level: level, Message: message})
	j.UpdatedAt = now
	return s.flushLocked()
}

func (s *FileStore) Complete(id string, result *model.ScrapeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.fetchOrCreateLocked(id, "complete")
	if err != nil {
		return err
	}
	if j.Status.Terminal() {
		return domain.ErrJobFinalized
	}

	j.Status = model.JobStatusCompleted
	j.Result = result
	j.Progress = "scraping finished successfully"
	j.UpdatedAt = time.Now().UTC()
	if err := s.flushLocked(); err != nil {
		return err
	}
	s.log.Info().Str("job_id", id).Msg("job completed")
	return nil
}

func (s *FileStore) Fail(id, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.fetchOrCreateLocked(id, "fail")
	if err != nil {
		return err
	}
	if j.Status.Terminal() {
		return domain.ErrJobFinalized
	}

	j.Status = model.JobStatusFailed
	j.Error = errMsg
	j.Progress = "scraping aborted"
	j.UpdatedAt = time.Now().UTC()
	if err := s.flushLocked(); err != nil {
		return err
	}
	s.log.Warn().Str("job_id", id).Str("error", errMsg).Msg("job failed")
	return nil
}

func (s *FileStore) Get(id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(j), nil
}

func (s *FileStore) List() []*model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, cloneJob(j))
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out
}

func (s *FileStore) PurgeOlderThan(maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-maxAge)

	removed := 0
	for id, j := range s.jobs {
		if j.Status.Terminal() && j.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.flushLocked(); err != nil {
		return 0, err
	}
	s.log.Info().Int("removed", removed).Msg("purged old jobs")
	return removed, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.flushLocked(); err != nil {
		return err
	}
	s.closed = true
	return nil
}

// fetchOrCreateLocked resolves id to a live record, applying the auto-create
// policy for unknown ids so that out-of-order or lost creation events cannot
// orphan worker updates.
func (s *FileStore) fetchOrCreateLocked(id, op string) (*model.Job, error) {
	if s.closed {
		return nil, domain.ErrOperationFailed
	}
	if j, ok := s.jobs[id]; ok {
		return j, nil
	}
	if !s.autoCreate {
		return nil, domain.ErrNotFound
	}
	s.log.Warn().Str("job_id", id).Str("op", op).Msg("mutation for unknown job, auto-creating placeholder")
	j := model.NewJob(id, "")
	s.jobs[id] = j
	return j, nil
}

// flushLocked rewrites the whole snapshot atomically (temp file + rename).
// Callers must hold s.mu.
func (s *FileStore) flushLocked() error {
	list := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		list = append(list, j)
	}
	sort.Slice(list, func(i, k int) bool {
		return list[i].CreatedAt.Before(list[k].CreatedAt)
	})

	b, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write job store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace job store: %w", err)
	}
	return nil
}

func cloneJob(j *model.Job) *model.Job {
	cp := *j
	cp.Logs = append([]model.LogEntry(nil), j.Logs...)
	if j.Result != nil {
		res := *j.Result
		cp.Result = &res
	}
	return &cp
}
