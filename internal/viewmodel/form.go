package viewmodel

import (
	"context"
	"fmt"

	"tasktracker/internal/task"
)

type FormState int

const (
	Editing FormState = iota
	Submitting
)

func (s FormState) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "editing"
}

// Form field names, matching the wire keys.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPriority    = "priority"
	FieldDueDate     = "due_date"
	FieldStatus      = "status"
)

// FormFields lists the draft fields in display order.
func FormFields() []string {
	return []string{FieldTitle, FieldDescription, FieldPriority, FieldDueDate, FieldStatus}
}

// Creator is the part of the store the form submits through.
type Creator interface {
	CreateTask(ctx context.Context, d task.Draft) (task.Task, error)
}

// Form owns the draft buffer. It is not safe for concurrent use; the UI loop
// is its only caller.
type Form struct {
	draft task.Draft
	state FormState
}

func NewForm() *Form {
	return &Form{draft: task.NewDraft()}
}

func (f *Form) Draft() task.Draft { return f.draft }

func (f *Form) State() FormState { return f.state }

// CanSubmit reports whether the submit action is enabled.
func (f *Form) CanSubmit() bool { return f.state == Editing }

// Value returns the current text of a field.
func (f *Form) Value(field string) string {
	switch field {
	case FieldTitle:
		return f.draft.Title
	case FieldDescription:
		return f.draft.Description
	case FieldPriority:
		return string(f.draft.Priority)
	case FieldDueDate:
		return f.draft.DueDate
	case FieldStatus:
		return string(f.draft.Status)
	default:
		return ""
	}
}

// SetField updates one draft field. Enum fields accept any casing of a valid
// value. Edits are refused while submitting.
func (f *Form) SetField(field, value string) error {
	if f.state == Submitting {
		return ErrSubmitInProgress
	}
	switch field {
	case FieldTitle:
		f.draft.Title = value
	case FieldDescription:
		f.draft.Description = value
	case FieldPriority:
		p, err := task.ParsePriority(value)
		if err != nil {
			return err
		}
		f.draft.Priority = p
	case FieldDueDate:
		f.draft.DueDate = value
	case FieldStatus:
		s, err := task.ParseStatus(value)
		if err != nil {
			return err
		}
		f.draft.Status = s
	default:
		return fmt.Errorf("unknown form field %q", field)
	}
	return nil
}

// Begin moves Editing -> Submitting and returns the draft to send. A draft
// missing a required field stays in Editing with a ValidationError.
func (f *Form) Begin() (task.Draft, error) {
	if f.state == Submitting {
		return task.Draft{}, ErrSubmitInProgress
	}
	if err := f.draft.Validate(); err != nil {
		return task.Draft{}, err
	}
	f.state = Submitting
	return f.draft, nil
}

// Finish moves Submitting -> Editing. The buffer is reset only when err is nil.
func (f *Form) Finish(err error) {
	if f.state != Submitting {
		return
	}
	f.state = Editing
	if err == nil {
		f.draft = task.NewDraft()
	}
}

// Submit runs Begin, the create call, and Finish.
func (f *Form) Submit(ctx context.Context, c Creator) error {
	d, err := f.Begin()
	if err != nil {
		return err
	}
	_, err = c.CreateTask(ctx, d)
	f.Finish(err)
	return err
}
