// Package present derives display-ready fields from task records. Nothing here
// touches the network or mutable state.
package present

import (
	"strings"

	"github.com/goodsign/monday"

	"tasktracker/internal/task"
)

// Semantic tags. The UI maps them to styles.
const (
	TagPriorityHigh   = "priority-high"
	TagPriorityMedium = "priority-medium"
	TagPriorityLow    = "priority-low"

	TagStatusDone       = "status-done"
	TagStatusInProgress = "status-in-progress"
	TagStatusTodo       = "status-todo"
)

// DisplayTask is a task plus the fields the list view renders.
type DisplayTask struct {
	task.Task
	PriorityTag string
	StatusTag   string
	StatusLabel string
	DueLabel    string
}

type Presenter struct {
	dateLayout string
	locale     monday.Locale
}

// New returns a Presenter formatting due dates with a Go time layout. An
// empty layout falls back to the wire format.
func New(layout string) Presenter {
	if strings.TrimSpace(layout) == "" {
		layout = task.DateLayout
	}
	return Presenter{dateLayout: layout}
}

// NewForLocale returns a Presenter using the short date format of the named
// locale. Unknown locales get the wire format.
func NewForLocale(name string) Presenter {
	loc, ok := ResolveLocale(name)
	if !ok {
		return New("")
	}
	return Presenter{dateLayout: monday.ShortFormatsByLocale[loc], locale: loc}
}

// Present is total: unknown enum values yield empty tags and the raw text.
func (p Presenter) Present(t task.Task) DisplayTask {
	return DisplayTask{
		Task:        t,
		PriorityTag: PriorityTag(t.Priority),
		StatusTag:   StatusTag(t.Status),
		StatusLabel: StatusLabel(t.Status),
		DueLabel:    p.DueLabel(t.DueDate),
	}
}

func (p Presenter) PresentAll(tasks []task.Task) []DisplayTask {
	out := make([]DisplayTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, p.Present(t))
	}
	return out
}

// DueLabel formats a YYYY-MM-DD date. Unparsable input is returned as is.
func (p Presenter) DueLabel(due string) string {
	d, ok := task.Task{DueDate: due}.Due()
	if !ok {
		return due
	}
	if p.locale != "" {
		return monday.Format(d, p.dateLayout, p.locale)
	}
	return d.Format(p.dateLayout)
}

func PriorityTag(p task.Priority) string {
	switch p {
	case task.PriorityHigh:
		return TagPriorityHigh
	case task.PriorityMedium:
		return TagPriorityMedium
	case task.PriorityLow:
		return TagPriorityLow
	default:
		return ""
	}
}

func StatusTag(s task.Status) string {
	switch s {
	case task.StatusDone:
		return TagStatusDone
	case task.StatusInProgress:
		return TagStatusInProgress
	case task.StatusTodo:
		return TagStatusTodo
	default:
		return ""
	}
}

// StatusLabel is the display text for a status: in_progress -> "in progress".
func StatusLabel(s task.Status) string {
	return strings.ReplaceAll(string(s), "_", " ")
}
