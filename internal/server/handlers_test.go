package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"tasktracker/internal/storage"
	"tasktracker/internal/task"
)

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestHandlers(t *testing.T, cache *InsightsCache) (*Handlers, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	h := NewHandlers(store, cache, task.DefaultDueSoonDays, quietLogger())
	h.now = func() time.Time { return time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC) }
	return h, store
}

func serve(t *testing.T, h *Handlers, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := New(h)
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCreateTaskValidation(t *testing.T) {
	h, _ := newTestHandlers(t, nil)
	cases := []struct {
		body string
		want string
	}{
		{`{"priority":"High","due_date":"2024-06-01"}`, "Missing required field: title"},
		{`{"title":"a","due_date":"2024-06-01"}`, "Missing required field: priority"},
		{`{"title":"a","priority":"High","due_date":""}`, "Missing required field: due_date"},
		{`{"title":"a","priority":"Urgent","due_date":"2024-06-01"}`, "Priority must be Low, Medium, or High"},
		{`{"title":"a","priority":"High","due_date":"2024-06-01","status":"blocked"}`, "Status must be todo, in_progress, or done"},
		{`{"title":"a","priority":"High","due_date":"June 1"}`, "due_date must be YYYY-MM-DD"},
		{`not json`, "invalid body"},
	}
	for _, tc := range cases {
		rec := serve(t, h, http.MethodPost, "/tasks", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.body, rec.Code)
		}
		if got := decodeBody[errorResponse](t, rec); got.Error != tc.want {
			t.Fatalf("%s: got error %q want %q", tc.body, got.Error, tc.want)
		}
	}
}

func TestCreateListAndUpdate(t *testing.T) {
	h, _ := newTestHandlers(t, nil)

	rec := serve(t, h, http.MethodPost, "/tasks", `{"title":"Ship report","priority":"High","due_date":"2024-06-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[task.Task](t, rec)
	if created.ID == "" || created.Status != task.StatusTodo {
		t.Fatalf("unexpected created task: %#v", created)
	}

	rec = serve(t, h, http.MethodGet, "/tasks?status=todo&sort_by=priority", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	if tasks := decodeBody[[]task.Task](t, rec); len(tasks) != 1 || tasks[0] != created {
		t.Fatalf("unexpected list: %#v", tasks)
	}

	rec = serve(t, h, http.MethodPatch, "/tasks/"+created.ID, `{"status":"done"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	if updated := decodeBody[task.Task](t, rec); updated.Status != task.StatusDone || updated.Title != "Ship report" {
		t.Fatalf("unexpected update: %#v", updated)
	}

	rec = serve(t, h, http.MethodGet, "/tasks?status=todo", "")
	if tasks := decodeBody[[]task.Task](t, rec); len(tasks) != 0 {
		t.Fatalf("expected no todo tasks, got %#v", tasks)
	}
}

func TestUpdateTaskErrors(t *testing.T) {
	h, store := newTestHandlers(t, nil)
	created, err := store.CreateTask(context.Background(), task.Draft{Title: "a", Priority: task.PriorityLow, DueDate: "2024-06-01"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if rec := serve(t, h, http.MethodPatch, "/tasks/missing", `{"status":"done"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := serve(t, h, http.MethodPatch, "/tasks/"+created.ID, `{"status":"archived"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := serve(t, h, http.MethodPatch, "/tasks/"+created.ID, `{"priority":"Urgent"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec := serve(t, h, http.MethodPatch, "/tasks/"+created.ID, `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty patch: expected 200, got %d", rec.Code)
	}
	if got := decodeBody[task.Task](t, rec); got != created {
		t.Fatalf("empty patch changed task: %#v", got)
	}
}

func TestInsightsEndpoint(t *testing.T) {
	h, store := newTestHandlers(t, nil)

	rec := serve(t, h, http.MethodGet, "/insights", "")
	if got := decodeBody[task.Insights](t, rec); got.TotalTasks != 0 || got.Summary == "" {
		t.Fatalf("unexpected empty insights: %#v", got)
	}

	ctx := context.Background()
	for _, d := range []task.Draft{
		{Title: "a", Priority: task.PriorityHigh, DueDate: "2024-06-01", Status: task.StatusTodo},
		{Title: "b", Priority: task.PriorityHigh, DueDate: "2024-06-10", Status: task.StatusDone},
	} {
		if _, err := store.CreateTask(ctx, d); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	rec = serve(t, h, http.MethodGet, "/insights", "")
	got := decodeBody[task.Insights](t, rec)
	if got.TotalTasks != 2 || got.DueSoonCount != 1 || got.StatusCount.Done != 1 || got.StatusCount.Todo != 1 {
		t.Fatalf("unexpected insights: %#v", got)
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandlers(t, nil)
	rec := serve(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || decodeBody[map[string]string](t, rec)["status"] != "healthy" {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestInsightsCacheServesAndEvicts(t *testing.T) {
	mr, client := newMiniredis(t)
	h, _ := newTestHandlers(t, NewInsightsCache(client, time.Minute, quietLogger()))

	serve(t, h, http.MethodGet, "/insights", "")
	if !mr.Exists(entryKey(0)) {
		t.Fatal("insights not cached")
	}
	if ttl := mr.TTL(entryKey(0)); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	rec := serve(t, h, http.MethodPost, "/tasks", `{"title":"a","priority":"Low","due_date":"2024-06-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}
	if gen, err := mr.Get(insightsGenerationKey); err != nil || gen != "1" {
		t.Fatalf("create did not bump generation: %q %v", gen, err)
	}

	rec = serve(t, h, http.MethodGet, "/insights", "")
	if got := decodeBody[task.Insights](t, rec); got.TotalTasks != 1 {
		t.Fatalf("stale insights served: %#v", got)
	}
	if !mr.Exists(entryKey(1)) {
		t.Fatal("insights not cached under the new generation")
	}
}

// pausingStore holds the first ListTasks call after it has read from the
// database, so a write can land between the read and the cache store.
type pausingStore struct {
	Store
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func (p *pausingStore) ListTasks(ctx context.Context, q task.Query) ([]task.Task, error) {
	tasks, err := p.Store.ListTasks(ctx, q)
	p.once.Do(func() {
		close(p.reached)
		<-p.release
	})
	return tasks, err
}

func TestInsightsComputedBeforeWriteAreNotServedAfterIt(t *testing.T) {
	_, client := newMiniredis(t)
	db, err := storage.Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ps := &pausingStore{Store: db, reached: make(chan struct{}), release: make(chan struct{})}
	h := NewHandlers(ps, NewInsightsCache(client, time.Minute, quietLogger()), task.DefaultDueSoonDays, quietLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		e := New(h)
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/insights", nil))
	}()
	<-ps.reached

	rec := serve(t, h, http.MethodPost, "/tasks", `{"title":"a","priority":"Low","due_date":"2024-06-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	close(ps.release)
	<-done

	rec = serve(t, h, http.MethodGet, "/insights", "")
	if got := decodeBody[task.Insights](t, rec); got.TotalTasks != 1 {
		t.Fatalf("insights computed before the create were served after it: %#v", got)
	}
}

func TestInsightsCacheDropsCorruptEntry(t *testing.T) {
	mr, client := newMiniredis(t)
	if err := mr.Set(entryKey(0), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cache := NewInsightsCache(client, time.Minute, quietLogger())
	if _, ok := cache.Load(context.Background(), 0); ok {
		t.Fatal("expected miss on corrupt entry")
	}
	if mr.Exists(entryKey(0)) {
		t.Fatal("corrupt entry not deleted")
	}
}

func TestInsightsWithoutRedisStillServes(t *testing.T) {
	mr, client := newMiniredis(t)
	h, _ := newTestHandlers(t, NewInsightsCache(client, time.Minute, quietLogger()))
	mr.Close()

	rec := serve(t, h, http.MethodGet, "/insights", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with redis down, got %d", rec.Code)
	}
}
