// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"tasktracker/internal/task"
)

// ErrNotFound is returned when a task id is unknown.
var ErrNotFound = errors.New("not found")

// FakeService is an in-memory remote task service for testing.
type FakeService struct {
	mu     sync.Mutex
	tasks  []task.Task
	nextID int
	now    func() time.Time

	// Error injection for testing
	ListTasksErr  error
	InsightsErr   error
	CreateTaskErr error
	UpdateTaskErr error

	// Hooks run while a call is being served; they may block to reorder
	// responses.
	BeforeList     func(q task.Query)
	BeforeInsights func()

	ListCalls     int
	InsightsCalls int
	CreateCalls   int
	UpdateCalls   int
	Queries       []task.Query
}

func NewFakeService() *FakeService {
	return &FakeService{now: time.Now}
}

// SetNow fixes the clock used for due-soon counting.
func (f *FakeService) SetNow(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = func() time.Time { return t }
}

// AddTask seeds a task and returns its id.
func (f *FakeService) AddTask(t task.Task) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		f.nextID++
		t.ID = fmt.Sprintf("t%d", f.nextID)
	}
	f.tasks = append(f.tasks, t)
	return t.ID
}

func (f *FakeService) Calls() (list, insights, create, update int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ListCalls, f.InsightsCalls, f.CreateCalls, f.UpdateCalls
}

func (f *FakeService) ListTasks(ctx context.Context, q task.Query) ([]task.Task, error) {
	f.mu.Lock()
	f.ListCalls++
	f.Queries = append(f.Queries, q)
	hook, err := f.BeforeList, f.ListTasksErr
	f.mu.Unlock()
	if hook != nil {
		hook(q)
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := []task.Task{}
	for _, t := range f.tasks {
		if q.Filters.Status != "" && t.Status != q.Filters.Status {
			continue
		}
		if q.Filters.Priority != "" && t.Priority != q.Filters.Priority {
			continue
		}
		out = append(out, t)
	}
	switch q.Sort {
	case task.SortDueDate:
		sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate < out[j].DueDate })
	case task.SortPriority:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Priority.Rank() < out[j].Priority.Rank() })
	}
	return out, nil
}

// Insights computes the aggregate before running BeforeInsights, so a blocked
// call returns the data as it was when the call arrived.
func (f *FakeService) Insights(ctx context.Context) (task.Insights, error) {
	f.mu.Lock()
	f.InsightsCalls++
	hook, err := f.BeforeInsights, f.InsightsErr
	ins := task.Summarize(f.tasks, f.now(), task.DefaultDueSoonDays)
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return task.Insights{}, err
	}
	return ins, nil
}

func (f *FakeService) CreateTask(ctx context.Context, d task.Draft) (task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.CreateTaskErr != nil {
		return task.Task{}, f.CreateTaskErr
	}
	f.nextID++
	t := task.Task{
		ID:          fmt.Sprintf("t%d", f.nextID),
		Title:       d.Title,
		Description: d.Description,
		Priority:    d.Priority,
		DueDate:     d.DueDate,
		Status:      d.Status,
	}
	if t.Status == "" {
		t.Status = task.StatusTodo
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *FakeService) UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateCalls++
	if f.UpdateTaskErr != nil {
		return task.Task{}, f.UpdateTaskErr
	}
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks[i] = p.Apply(t)
			return f.tasks[i], nil
		}
	}
	return task.Task{}, ErrNotFound
}
