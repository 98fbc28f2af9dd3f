package api

import (
	"errors"
	"strings"

	"tasktracker/internal/task"
)

// wireTask mirrors the server's task record. Older servers send the id as
// "_id".
type wireTask struct {
	ID          *string `json:"id"`
	LegacyID    *string `json:"_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
	Status      *string `json:"status"`
}

func (w wireTask) toTask() (task.Task, error) {
	id := deref(w.ID)
	if id == "" {
		id = deref(w.LegacyID)
	}
	switch {
	case id == "":
		return task.Task{}, errors.New("missing id")
	case w.Title == nil:
		return task.Task{}, errors.New("missing title")
	case w.Priority == nil:
		return task.Task{}, errors.New("missing priority")
	case w.DueDate == nil:
		return task.Task{}, errors.New("missing due_date")
	case w.Status == nil:
		return task.Task{}, errors.New("missing status")
	}
	return task.Task{
		ID:          id,
		Title:       *w.Title,
		Description: deref(w.Description),
		Priority:    task.Priority(*w.Priority),
		DueDate:     *w.DueDate,
		Status:      task.Status(*w.Status),
	}, nil
}

type wireInsights struct {
	Summary       *string        `json:"summary"`
	TotalTasks    *int           `json:"total_tasks"`
	DueSoonCount  *int           `json:"due_soon_count"`
	StatusCount   map[string]int `json:"status_count"`
	PriorityCount map[string]int `json:"priority_count"`
}

func (w wireInsights) toInsights() (task.Insights, error) {
	if w.Summary == nil || strings.TrimSpace(*w.Summary) == "" {
		return task.Insights{}, errors.New("missing summary")
	}
	if w.TotalTasks == nil {
		return task.Insights{}, errors.New("missing total_tasks")
	}
	if *w.TotalTasks < 0 {
		return task.Insights{}, errors.New("negative total_tasks")
	}
	ins := task.Insights{
		Summary:    *w.Summary,
		TotalTasks: *w.TotalTasks,
		StatusCount: task.StatusCount{
			Todo:       w.StatusCount[string(task.StatusTodo)],
			InProgress: w.StatusCount[string(task.StatusInProgress)],
			Done:       w.StatusCount[string(task.StatusDone)],
		},
	}
	if w.DueSoonCount != nil {
		ins.DueSoonCount = *w.DueSoonCount
	}
	if len(w.PriorityCount) > 0 {
		ins.PriorityCount = make(map[task.Priority]int, len(w.PriorityCount))
		for k, v := range w.PriorityCount {
			ins.PriorityCount[task.Priority(k)] = v
		}
	}
	return ins, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
