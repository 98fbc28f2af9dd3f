package viewmodel

import (
	"context"
	"errors"
	"testing"

	"tasktracker/internal/task"
	"tasktracker/internal/testutil"
)

func fillForm(t *testing.T, f *Form, values map[string]string) {
	t.Helper()
	for field, v := range values {
		if err := f.SetField(field, v); err != nil {
			t.Fatalf("set %s: %v", field, err)
		}
	}
}

func TestFormValidationKeepsEditing(t *testing.T) {
	fake := testutil.NewFakeService()
	store := NewStore(fake, quietLogger())
	f := NewForm()
	fillForm(t, f, map[string]string{FieldTitle: "Ship report"})
	before := f.Draft()

	err := f.Submit(context.Background(), store)
	var verr task.ValidationError
	if !errors.As(err, &verr) || verr.Field != FieldDueDate {
		t.Fatalf("expected due_date ValidationError, got %v", err)
	}
	if f.State() != Editing {
		t.Fatalf("expected Editing, got %v", f.State())
	}
	if f.Draft() != before {
		t.Fatalf("draft changed: %#v", f.Draft())
	}
	if _, _, create, _ := fake.Calls(); create != 0 {
		t.Fatalf("expected no network call, got %d", create)
	}
}

func TestFormSuccessResetsDraft(t *testing.T) {
	fake := testutil.NewFakeService()
	store := NewStore(fake, quietLogger())
	f := NewForm()
	fillForm(t, f, map[string]string{
		FieldTitle:       "Ship report",
		FieldDescription: "quarterly",
		FieldPriority:    "high",
		FieldDueDate:     "2024-06-01",
		FieldStatus:      "in progress",
	})

	if err := f.Submit(context.Background(), store); err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := task.Draft{Title: "", Description: "", Priority: task.PriorityMedium, DueDate: "", Status: task.StatusTodo}
	if f.Draft() != want {
		t.Fatalf("draft not reset: %#v", f.Draft())
	}
	if f.State() != Editing {
		t.Fatalf("expected Editing, got %v", f.State())
	}
	tasks := store.Snapshot().Tasks
	if len(tasks) != 1 || tasks[0].Priority != task.PriorityHigh || tasks[0].Status != task.StatusInProgress {
		t.Fatalf("unexpected tasks: %#v", tasks)
	}
}

func TestFormFailureRetainsDraft(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.CreateTaskErr = errors.New("server down")
	store := NewStore(fake, quietLogger())
	f := NewForm()
	fillForm(t, f, map[string]string{FieldTitle: "Ship report", FieldDueDate: "2024-06-01"})
	before := f.Draft()

	if err := f.Submit(context.Background(), store); err == nil {
		t.Fatal("expected error")
	}
	if f.Draft() != before {
		t.Fatalf("draft changed: %#v", f.Draft())
	}
	if f.State() != Editing || store.InFlight() {
		t.Fatal("expected form editable and store idle after failure")
	}
}

func TestFormSubmittingDisablesSubmitAndEdits(t *testing.T) {
	f := NewForm()
	fillForm(t, f, map[string]string{FieldTitle: "a", FieldDueDate: "2024-06-01"})
	d, err := f.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if d.Title != "a" || f.CanSubmit() {
		t.Fatalf("unexpected state after begin: %#v %v", d, f.State())
	}
	if _, err := f.Begin(); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	if err := f.SetField(FieldTitle, "b"); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected edits to be refused, got %v", err)
	}
	f.Finish(errors.New("boom"))
	if !f.CanSubmit() || f.Draft().Title != "a" {
		t.Fatalf("unexpected state after failed finish: %#v", f.Draft())
	}
}

func TestFormRejectsUnknownEnum(t *testing.T) {
	f := NewForm()
	if err := f.SetField(FieldPriority, "urgent"); err == nil {
		t.Fatal("expected error")
	}
	if f.Draft().Priority != task.PriorityMedium {
		t.Fatalf("priority changed: %q", f.Draft().Priority)
	}
}
