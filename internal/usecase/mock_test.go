//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"prismabox-scraper/internal/domain"
	"prismabox-scraper/internal/domain/model"
	"prismabox-scraper/internal/domain/ports/adapter"
	"prismabox-scraper/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// ---------- extraction adapter mock ----------

// MockExtractionAdapter is scriptable per method; unset funcs fall back to a
// well-behaved default session serving one page per unit.
type MockExtractionAdapter struct {
	AuthenticateFunc func(ctx context.Context) error
	SessionActiveFn  func(ctx context.Context) (bool, error)
	OpenUnitFunc     func(ctx context.Context, unit model.Unit) error
	ApplyFilterFunc  func(ctx context.Context) error
	ExtractPageFunc  func(ctx context.Context) ([]model.BoxRecord, error)
	NextPageFunc     func(ctx context.Context) (bool, error)

	AuthCalls   int
	FilterCalls int
	OpenCalls   []string
	Closed      bool

	active bool
}

var _ adapter.ExtractionAdapter = (*MockExtractionAdapter)(nil)

func (m *MockExtractionAdapter) Authenticate(ctx context.Context) error {
	m.AuthCalls++
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx)
	}
	m.active = true
	return nil
}

func (m *MockExtractionAdapter) SessionActive(ctx context.Context) (bool, error) {
	if m.SessionActiveFn != nil {
		return m.SessionActiveFn(ctx)
	}
	return m.active, nil
}

func (m *MockExtractionAdapter) DropSession() { m.active = false }

func (m *MockExtractionAdapter) OpenUnit(ctx context.Context, unit model.Unit) error {
	m.OpenCalls = append(m.OpenCalls, unit.ID)
	if m.OpenUnitFunc != nil {
		return m.OpenUnitFunc(ctx, unit)
	}
	return nil
}

func (m *MockExtractionAdapter) ApplyAvailabilityFilter(ctx context.Context) error {
	m.FilterCalls++
	if m.ApplyFilterFunc != nil {
		return m.ApplyFilterFunc(ctx)
	}
	return nil
}

func (m *MockExtractionAdapter) ExtractPage(ctx context.Context) ([]model.BoxRecord, error) {
	if m.ExtractPageFunc != nil {
		return m.ExtractPageFunc(ctx)
	}
	return []model.BoxRecord{{BoxNumber: "A-001", Status: "Livre"}}, nil
}

func (m *MockExtractionAdapter) NextPage(ctx context.Context) (bool, error) {
	if m.NextPageFunc != nil {
		return m.NextPageFunc(ctx)
	}
	return false, nil
}

func (m *MockExtractionAdapter) Close(ctx context.Context) error {
	m.Closed = true
	return nil
}

// ---------- box sink mock ----------

type sinkOp struct {
	Kind       string // "clear" or "insert"
	Localidade string
	Count      int
}

type MockBoxSink struct {
	mu        sync.Mutex
	Ops       []sinkOp
	InsertErr error
	ClearErr  error
	Inserted  []model.BoxRecord
}

var _ repository.BoxSink = (*MockBoxSink)(nil)

func (m *MockBoxSink) Insert(ctx context.Context, boxes []model.BoxRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return 0, m.InsertErr
	}
	loc := ""
	if len(boxes) > 0 {
		loc = boxes[0].Localidade
	}
	m.Ops = append(m.Ops, sinkOp{Kind: "insert", Localidade: loc, Count: len(boxes)})
	m.Inserted = append(m.Inserted, boxes...)
	return len(boxes), nil
}

func (m *MockBoxSink) ClearByUnit(ctx context.Context, localidade string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Ops = append(m.Ops, sinkOp{Kind: "clear", Localidade: localidade})
	return nil
}

// ---------- job store mock ----------

// MockJobStore is an in-memory stand-in honoring the same lifecycle rules as
// the file store: terminal states are immutable and unknown ids auto-create.
type MockJobStore struct {
	mu   sync.Mutex
	jobs map[string]*model.Job

	CreateErr error
}

var _ repository.JobStore = (*MockJobStore)(nil)

func NewMockJobStore() *MockJobStore {
	return &MockJobStore{jobs: make(map[string]*model.Job)}
}

func (m *MockJobStore) Create(id, callbackURL string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if _, ok := m.jobs[id]; ok {
		return nil, domain.ErrDuplicateJob
	}
	j := model.NewJob(id, callbackURL)
	m.jobs[id] = j
	cp := *j
	return &cp, nil
}

func (m *MockJobStore) fetch(id string) *model.Job {
	if j, ok := m.jobs[id]; ok {
		return j
	}
	j := model.NewJob(id, "")
	m.jobs[id] = j
	return j
}

func (m *MockJobStore) Update(id string, upd repository.JobUpdate) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.fetch(id)
	if upd.Status != nil && !j.Status.Terminal() {
		j.Status = *upd.Status
	}
	if upd.Progress != nil {
		j.Progress = *upd.Progress
	}
	cp := *j
	return &cp, nil
}

func (m *MockJobStore) AppendLog(id, message string, level model.LogLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.fetch(id)
	j.Logs = append(j.Logs, model.LogEntry{Timestamp: time.Now(), Level: level, Message: message})
	return nil
}

func (m *MockJobStore) Complete(id string, result *model.ScrapeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.fetch(id)
	if j.Status.Terminal() {
		return domain.ErrJobFinalized
	}
	j.Status = model.JobStatusCompleted
	j.Result = result
	return nil
}

func (m *MockJobStore) Fail(id, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.fetch(id)
	if j.Status.Terminal() {
		return domain.ErrJobFinalized
	}
	j.Status = model.JobStatusFailed
	j.Error = errMsg
	return nil
}

func (m *MockJobStore) Get(id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	cp.Logs = append([]model.LogEntry(nil), j.Logs...)
	return &cp, nil
}

func (m *MockJobStore) List() []*model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		cp := *j
		out = append(out, &cp)
	}
	return out
}

func (m *MockJobStore) PurgeOlderThan(maxAge time.Duration) (int, error) { return 0, nil }
func (m *MockJobStore) Close() error                                    { return nil }

// ---------- notifier mock ----------

type notifierCall struct {
	Kind    string // "success", "error", "progress"
	Target  string
	JobID   string
	Message string
}

type MockNotifier struct {
	mu          sync.Mutex
	Calls       []notifierCall
	ValidateErr error
}

var _ adapter.CallbackNotifier = (*MockNotifier)(nil)

func (m *MockNotifier) ValidateURL(raw string) error { return m.ValidateErr }

func (m *MockNotifier) record(c notifierCall) adapter.DeliveryResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, c)
	return adapter.DeliveryResult{Delivered: true, Status: 200, Attempts: 1}
}

func (m *MockNotifier) SendSuccess(ctx context.Context, target, jobID string, result *model.ScrapeResult) adapter.DeliveryResult {
	return m.record(notifierCall{Kind: "success", Target: target, JobID: jobID})
}

func (m *MockNotifier) SendError(ctx context.Context, target, jobID, message, errType string, logs []model.LogEntry) adapter.DeliveryResult {
	return m.record(notifierCall{Kind: "error", Target: target, JobID: jobID, Message: message})
}

func (m *MockNotifier) SendProgress(ctx context.Context, target, jobID, message string, current, total int) adapter.DeliveryResult {
	return m.record(notifierCall{Kind: "progress", Target: target, JobID: jobID, Message: message})
}

func (m *MockNotifier) CallsOf(kind string) []notifierCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notifierCall
	for _, c := range m.Calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// ---------- supervisor mock ----------

// MockSupervisor runs the job body synchronously, which keeps use case tests
// deterministic.
type MockSupervisor struct {
	StartErr      error
	Started       []string
	Terminated    []string
	ActiveIDs     []string
	TerminateFunc func(jobID string)
}

func (m *MockSupervisor) Start(job *model.Job, body func(ctx context.Context, job *model.Job) error) error {
	if m.StartErr != nil {
		return m.StartErr
	}
	m.Started = append(m.Started, job.ID)
	_ = body(context.Background(), job)
	return nil
}

func (m *MockSupervisor) Terminate(jobID string) bool {
	m.Terminated = append(m.Terminated, jobID)
	if m.TerminateFunc != nil {
		m.TerminateFunc(jobID)
	}
	return true
}

func (m *MockSupervisor) Active() []string { return m.ActiveIDs }
func (m *MockSupervisor) Close()           {}
