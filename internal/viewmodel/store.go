// Package viewmodel owns the client-side snapshot of server state and the
// rules for when it is refetched.
package viewmodel

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"tasktracker/internal/task"
)

// Service is the remote task service as seen by the store.
type Service interface {
	ListTasks(ctx context.Context, q task.Query) ([]task.Task, error)
	Insights(ctx context.Context) (task.Insights, error)
	CreateTask(ctx context.Context, d task.Draft) (task.Task, error)
	UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error)
}

// ErrSubmitInProgress is returned when a create is attempted while another is
// still in flight.
var ErrSubmitInProgress = errors.New("a task is already being created")

// Snapshot is a read-only copy of the store's state.
type Snapshot struct {
	Tasks       []task.Task
	Insights    task.Insights
	HasInsights bool
	Filters     task.Filters
	Sort        task.SortKey
	InFlight    bool
}

type slot int

const (
	slotTasks slot = iota
	slotInsights
)

func (s slot) String() string {
	if s == slotTasks {
		return "tasks"
	}
	return "insights"
}

// Store holds tasks, insights, filters, sort key and the in-flight flag.
// Every response is tagged with a per-slot sequence number; only the response
// to the latest issued request for a slot is applied.
type Store struct {
	svc Service
	log log.FieldLogger

	mu          sync.Mutex
	tasks       []task.Task
	insights    task.Insights
	hasInsights bool
	filters     task.Filters
	sort        task.SortKey
	inFlight    bool
	issued      [2]uint64
}

func NewStore(svc Service, logger log.FieldLogger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{svc: svc, log: logger, tasks: []task.Task{}}
}

// Snapshot returns a copy safe to read while requests are outstanding.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]task.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return Snapshot{
		Tasks:       tasks,
		Insights:    s.insights,
		HasInsights: s.hasInsights,
		Filters:     s.filters,
		Sort:        s.sort,
		InFlight:    s.inFlight,
	}
}

func (s *Store) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// SetFilters merges u into the current filters and refetches tasks.
func (s *Store) SetFilters(ctx context.Context, u task.FilterUpdate) error {
	s.mu.Lock()
	s.filters = s.filters.Merge(u)
	s.mu.Unlock()
	return s.RefetchTasks(ctx)
}

// SetSortKey replaces the sort key and refetches tasks.
func (s *Store) SetSortKey(ctx context.Context, k task.SortKey) error {
	if !k.Valid() {
		return task.ValidationError{Field: "sort_by", Reason: "must be due_date, priority, or empty"}
	}
	s.mu.Lock()
	s.sort = k
	s.mu.Unlock()
	return s.RefetchTasks(ctx)
}

// RefetchTasks replaces the task snapshot with the server's list for the
// current filters and sort key. On failure the previous snapshot is kept.
func (s *Store) RefetchTasks(ctx context.Context) error {
	s.mu.Lock()
	seq := s.issue(slotTasks)
	q := task.BuildQuery(s.filters, s.sort)
	s.mu.Unlock()

	tasks, err := s.svc.ListTasks(ctx, q)
	if err != nil {
		s.log.WithFields(log.Fields{"slot": slotTasks, "seq": seq}).WithError(err).Error("refetch failed")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(slotTasks, seq) {
		s.log.WithFields(log.Fields{"slot": slotTasks, "seq": seq}).Debug("discarding stale response")
		return nil
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	s.tasks = tasks
	return nil
}

// RefetchInsights replaces the insights snapshot wholesale.
func (s *Store) RefetchInsights(ctx context.Context) error {
	s.mu.Lock()
	seq := s.issue(slotInsights)
	s.mu.Unlock()

	ins, err := s.svc.Insights(ctx)
	if err != nil {
		s.log.WithFields(log.Fields{"slot": slotInsights, "seq": seq}).WithError(err).Error("refetch failed")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(slotInsights, seq) {
		s.log.WithFields(log.Fields{"slot": slotInsights, "seq": seq}).Debug("discarding stale response")
		return nil
	}
	s.insights = ins
	s.hasInsights = true
	return nil
}

// Refresh refetches tasks and insights concurrently. Each result is applied
// when it lands.
func (s *Store) Refresh(ctx context.Context) error {
	var wg sync.WaitGroup
	var tasksErr, insightsErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		tasksErr = s.RefetchTasks(ctx)
	}()
	go func() {
		defer wg.Done()
		insightsErr = s.RefetchInsights(ctx)
	}()
	wg.Wait()
	return errors.Join(tasksErr, insightsErr)
}

// CreateTask validates d locally, sends it, and refreshes both snapshots on
// success. Refresh failures are logged, not returned: the task exists.
func (s *Store) CreateTask(ctx context.Context, d task.Draft) (task.Task, error) {
	if err := d.Validate(); err != nil {
		return task.Task{}, err
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return task.Task{}, ErrSubmitInProgress
	}
	s.inFlight = true
	s.mu.Unlock()

	created, err := s.svc.CreateTask(ctx, d)

	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()

	if err != nil {
		s.log.WithField("title", d.Title).WithError(err).Error("create task failed")
		return task.Task{}, err
	}
	_ = s.Refresh(ctx)
	return created, nil
}

// UpdateTask sends the given fields of task id. Failures leave the snapshot
// untouched and are only logged; the error is still returned to the caller.
func (s *Store) UpdateTask(ctx context.Context, id string, p task.Patch) error {
	if id == "" {
		return task.ValidationError{Field: "id", Reason: "is required"}
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if _, err := s.svc.UpdateTask(ctx, id, p); err != nil {
		s.log.WithField("task_id", id).WithError(err).Error("update task failed")
		return err
	}
	_ = s.Refresh(ctx)
	return nil
}

func (s *Store) issue(sl slot) uint64 {
	s.issued[sl]++
	return s.issued[sl]
}

func (s *Store) current(sl slot, seq uint64) bool {
	return s.issued[sl] == seq
}
