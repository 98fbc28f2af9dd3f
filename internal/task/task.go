// Package task holds the task-tracker data model shared by the client and the
// reference server.
package task

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of a due date.
const DateLayout = "2006-01-02"

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists the valid priorities from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities High first. Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// ParsePriority accepts any casing of a known priority.
func ParsePriority(v string) (Priority, error) {
	v = strings.TrimSpace(v)
	for _, p := range Priorities() {
		if strings.EqualFold(v, string(p)) {
			return p, nil
		}
	}
	return "", ValidationError{Field: "priority", Reason: "must be Low, Medium, or High"}
}

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists the valid statuses in workflow order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus accepts the wire value, any casing, with spaces or underscores.
func ParseStatus(v string) (Status, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.ReplaceAll(v, " ", "_")
	for _, s := range Statuses() {
		if v == string(s) {
			return s, nil
		}
	}
	return "", ValidationError{Field: "status", Reason: "must be todo, in_progress, or done"}
}

// Task is a server-owned record. The client only holds copies returned by
// the last successful fetch.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"due_date"`
	Status      Status   `json:"status"`
}

// Due parses DueDate. The zero time and false are returned for unparsable values.
func (t Task) Due() (time.Time, bool) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(t.DueDate))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Draft is the not-yet-submitted task composed in the creation form.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"due_date"`
	Status      Status   `json:"status"`
}

// NewDraft returns the empty form buffer.
func NewDraft() Draft {
	return Draft{Priority: PriorityMedium, Status: StatusTodo}
}

// Validate checks the fields the form requires before anything is sent.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ValidationError{Field: "title", Reason: "is required"}
	}
	if strings.TrimSpace(d.DueDate) == "" {
		return ValidationError{Field: "due_date", Reason: "is required"}
	}
	return nil
}

// Patch carries a partial update. Nil fields are not sent.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *string   `json:"due_date,omitempty"`
	Status      *Status   `json:"status,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.DueDate == nil && p.Status == nil
}

// Validate rejects empty patches and enum values the server would refuse.
func (p Patch) Validate() error {
	if p.Empty() {
		return ValidationError{Field: "patch", Reason: "has no fields"}
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ValidationError{Field: "title", Reason: "is required"}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ValidationError{Field: "priority", Reason: "must be Low, Medium, or High"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return ValidationError{Field: "status", Reason: "must be todo, in_progress, or done"}
	}
	if p.DueDate != nil && strings.TrimSpace(*p.DueDate) == "" {
		return ValidationError{Field: "due_date", Reason: "is required"}
	}
	return nil
}

// Apply returns t with the patch fields set.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}

func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}

func PriorityPatch(p Priority) Patch {
	return Patch{Priority: &p}
}

// ValidationError reports a local, pre-network validation failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}
