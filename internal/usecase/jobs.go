package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"FinSim/internal/domain/models"
	domrepo "FinSim/internal/domain/repository"
	applogger "FinSim/pkg/logger"
)

// Job lifecycle states.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// JobStatus is the externally visible snapshot of one optimization job.
type JobStatus struct {
	ID         string                `json:"id"`
	State      string                `json:"state"`
	Signaler   string                `json:"signaler"`
	Policy     string                `json:"policy"`
	CreatedAt  time.Time             `json:"created_at"`
	StartedAt  *time.Time            `json:"started_at,omitempty"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	Evaluated  int                   `json:"evaluated"`
	Outcome    *models.SearchOutcome `json:"outcome,omitempty"`
	Error      string                `json:"error,omitempty"`
}

type jobEntry struct {
	status JobStatus
	params OptimizeParams
	cancel context.CancelFunc
	subs   map[int]chan models.TrialRecord
	nextID int
}

// JobManager runs optimization jobs asynchronously with capped concurrency
// and fans live trial events out to subscribers. Job state lives in memory
// only and does not survive a restart.
type JobManager struct {
	uc    *OptimizeUseCase
	sinks []domrepo.TrialSink
	l     *applogger.Logger

	mu   sync.RWMutex
	jobs map[string]*jobEntry
	sem  chan struct{}
	seq  atomic.Int64
}

func NewJobManager(uc *OptimizeUseCase, maxConcurrent int, sinks ...domrepo.TrialSink) *JobManager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &JobManager{
		uc:    uc,
		sinks: sinks,
		jobs:  make(map[string]*jobEntry),
		sem:   make(chan struct{}, maxConcurrent),
	}
}

// SetLogger injects a structured logger.
func (m *JobManager) SetLogger(l *applogger.Logger) { m.l = l }

// Submit registers a job and schedules it. The returned ID is immediately
// queryable; the job itself waits for a free slot.
func (m *JobManager) Submit(p OptimizeParams) string {
	id := "job-" + strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatInt(m.seq.Add(1), 10)
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.jobs[id] = &jobEntry{
		status: JobStatus{
			ID:        id,
			State:     JobPending,
			Signaler:  p.Signaler,
			Policy:    p.EffectivePolicy(),
			CreatedAt: time.Now(),
		},
		params: p,
		cancel: cancel,
		subs:   make(map[int]chan models.TrialRecord),
	}
	m.mu.Unlock()

	go m.run(ctx, id, p)
	return id
}

func (m *JobManager) run(ctx context.Context, id string, p OptimizeParams) {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		m.finish(id, nil, ctx.Err())
		return
	}
	defer func() { <-m.sem }()

	now := time.Now()
	m.mu.Lock()
	if e, ok := m.jobs[id]; ok {
		e.status.State = JobRunning
		e.status.StartedAt = &now
	}
	m.mu.Unlock()

	if m.l != nil {
		m.l.Info("job started", applogger.String("job_id", id), applogger.String("signaler", p.Signaler))
	}

	sinks := append([]domrepo.TrialSink{m}, m.sinks...)
	out, err := m.uc.Run(ctx, id, p, sinks...)
	m.finish(id, out, err)
}

func (m *JobManager) finish(id string, out *models.SearchOutcome, runErr error) {
	now := time.Now()
	m.mu.Lock()
	e, ok := m.jobs[id]
	if ok {
		e.status.FinishedAt = &now
		e.status.Outcome = out
		if out != nil {
			e.status.Evaluated = out.Evaluated
		}
		if runErr != nil {
			e.status.State = JobFailed
			e.status.Error = runErr.Error()
		} else {
			e.status.State = JobDone
		}
		for _, ch := range e.subs {
			close(ch)
		}
		e.subs = make(map[int]chan models.TrialRecord)
	}
	m.mu.Unlock()

	if m.l != nil {
		if runErr != nil {
			m.l.Error("job failed", applogger.String("job_id", id), applogger.Error(runErr))
		} else {
			m.l.Info("job done", applogger.String("job_id", id))
		}
	}
}

// Status returns a copy of the job's current snapshot.
func (m *JobManager) Status(id string) (JobStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.jobs[id]
	if !ok {
		return JobStatus{}, fmt.Errorf("unknown job %q", id)
	}
	return e.status, nil
}

// List returns job snapshots created at or after since, newest first,
// capped at limit.
func (m *JobManager) List(limit int, since time.Time) []JobStatus {
	if limit < 1 {
		limit = 1
	}

	m.mu.RLock()
	out := make([]JobStatus, 0, len(m.jobs))
	for _, e := range m.jobs {
		if e.status.CreatedAt.Before(since) {
			continue
		}
		out = append(out, e.status)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Cancel stops a running job. Finished jobs keep their outcome.
func (m *JobManager) Cancel(id string) error {
	m.mu.RLock()
	e, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", id)
	}
	e.cancel()
	return nil
}

// Subscribe streams trial records of a running job. The channel closes when
// the job finishes; the returned func detaches early. Slow subscribers drop
// events instead of stalling the search.
func (m *JobManager) Subscribe(id string) (<-chan models.TrialRecord, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[id]
	if !ok {
		return nil, nil, fmt.Errorf("unknown job %q", id)
	}

	ch := make(chan models.TrialRecord, 256)
	if e.status.State == JobDone || e.status.State == JobFailed {
		close(ch)
		return ch, func() {}, nil
	}

	subID := e.nextID
	e.nextID++
	e.subs[subID] = ch

	detach := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.jobs[id]; ok {
			if c, live := cur.subs[subID]; live {
				delete(cur.subs, subID)
				close(c)
			}
		}
	}
	return ch, detach, nil
}

// Trial implements domrepo.TrialSink by fanning events to subscribers.
func (m *JobManager) Trial(_ context.Context, jobID string, t models.TrialRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[jobID]
	if !ok {
		return
	}
	e.status.Evaluated++
	for _, ch := range e.subs {
		select {
		case ch <- t:
		default:
		}
	}
}

// Done implements domrepo.TrialSink. Channel closing happens in finish, so
// this is a no-op here.
func (m *JobManager) Done(context.Context, string, *models.SearchOutcome, error) {}

var _ domrepo.TrialSink = (*JobManager)(nil)
