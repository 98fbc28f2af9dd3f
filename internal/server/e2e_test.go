package server_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"tasktracker/internal/api"
	"tasktracker/internal/server"
	"tasktracker/internal/storage"
	"tasktracker/internal/task"
	"tasktracker/internal/viewmodel"
)

func newClientStore(t *testing.T) *viewmodel.Store {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := log.New()
	logger.SetOutput(io.Discard)
	srv := httptest.NewServer(server.New(server.NewHandlers(db, nil, task.DefaultDueSoonDays, logger)))
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return viewmodel.NewStore(client, logger)
}

func TestCreateThroughServerIncrementsTotal(t *testing.T) {
	store := newClientStore(t)
	ctx := context.Background()
	if err := store.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	prior := store.Snapshot().Insights.TotalTasks

	form := viewmodel.NewForm()
	for field, v := range map[string]string{
		viewmodel.FieldTitle:    "Ship report",
		viewmodel.FieldPriority: "High",
		viewmodel.FieldDueDate:  "2024-06-01",
		viewmodel.FieldStatus:   "todo",
	} {
		if err := form.SetField(field, v); err != nil {
			t.Fatalf("set %s: %v", field, err)
		}
	}
	if err := form.Submit(ctx, store); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := store.Snapshot()
	if len(snap.Tasks) != 1 || snap.Tasks[0].Title != "Ship report" || snap.Tasks[0].Priority != task.PriorityHigh {
		t.Fatalf("unexpected tasks: %#v", snap.Tasks)
	}
	if snap.Insights.TotalTasks != prior+1 {
		t.Fatalf("expected total %d, got %d", prior+1, snap.Insights.TotalTasks)
	}
	if form.Draft() != task.NewDraft() {
		t.Fatalf("form not reset: %#v", form.Draft())
	}
}

func TestUpdateThroughServerMovesStatusCounts(t *testing.T) {
	store := newClientStore(t)
	ctx := context.Background()
	created, err := store.CreateTask(ctx, task.Draft{Title: "a", Priority: task.PriorityLow, DueDate: "2024-06-01", Status: task.StatusTodo})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := store.Snapshot().Insights.StatusCount

	if err := store.UpdateTask(ctx, created.ID, task.StatusPatch(task.StatusDone)); err != nil {
		t.Fatalf("update: %v", err)
	}
	after := store.Snapshot().Insights.StatusCount
	if after.Done != before.Done+1 || after.Todo != before.Todo-1 {
		t.Fatalf("before %#v after %#v", before, after)
	}
}

func TestServerErrorDetailReachesCaller(t *testing.T) {
	store := newClientStore(t)
	_, err := store.CreateTask(context.Background(), task.Draft{Title: "a", Priority: "Urgent", DueDate: "2024-06-01", Status: task.StatusTodo})
	var se *api.ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if api.Detail(err) != "Priority must be Low, Medium, or High" {
		t.Fatalf("unexpected detail %q", api.Detail(err))
	}
	if store.InFlight() {
		t.Fatal("in-flight flag left set")
	}
}

func TestUpdateUnknownTaskKeepsSnapshot(t *testing.T) {
	store := newClientStore(t)
	ctx := context.Background()
	if _, err := store.CreateTask(ctx, task.Draft{Title: "a", Priority: task.PriorityLow, DueDate: "2024-06-01", Status: task.StatusTodo}); err != nil {
		t.Fatalf("create: %v", err)
	}
	before := store.Snapshot()
	if err := store.UpdateTask(ctx, "missing", task.StatusPatch(task.StatusDone)); err == nil {
		t.Fatal("expected error")
	}
	after := store.Snapshot()
	if len(after.Tasks) != len(before.Tasks) || after.Tasks[0] != before.Tasks[0] || after.Insights.TotalTasks != before.Insights.TotalTasks {
		t.Fatalf("snapshot changed: %#v", after)
	}
}
