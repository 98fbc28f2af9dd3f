package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tasktracker/internal/task"
)

// ErrNotFound is returned for an unknown task id.
var ErrNotFound = errors.New("task not found")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT 'Medium',
	due_date TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'todo',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.ensureTaskColumns()
}

// ensureTaskColumns upgrades databases created before a column existed.
func (s *Store) ensureTaskColumns() error {
	required := map[string]string{
		"description": "ALTER TABLE tasks ADD COLUMN description TEXT NOT NULL DEFAULT '';",
		"updated_at":  "ALTER TABLE tasks ADD COLUMN updated_at TEXT NOT NULL DEFAULT '';",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(tasks);`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(alter); err != nil {
			return err
		}
	}
	return nil
}

const taskColumns = `id, title, description, priority, due_date, status`

// ListTasks returns the tasks matching q. Priority sorting puts High first and
// unknown values last; ties keep insertion order.
func (s *Store) ListTasks(ctx context.Context, q task.Query) ([]task.Task, error) {
	var (
		where []string
		args  []any
	)
	if q.Filters.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Filters.Status))
	}
	if q.Filters.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(q.Filters.Priority))
	}
	stmt := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		stmt += ` WHERE ` + strings.Join(where, " AND ")
	}
	switch q.Sort {
	case task.SortDueDate:
		stmt += ` ORDER BY due_date, rowid`
	case task.SortPriority:
		stmt += ` ORDER BY CASE priority WHEN 'High' THEN 1 WHEN 'Medium' THEN 2 WHEN 'Low' THEN 3 ELSE 4 END, rowid`
	default:
		stmt += ` ORDER BY rowid`
	}

	rows, err := s.db.QueryContext(ctx, stmt+`;`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?;`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, ErrNotFound
	}
	return t, err
}

// CreateTask inserts d with a fresh id. Status defaults to todo.
func (s *Store) CreateTask(ctx context.Context, d task.Draft) (task.Task, error) {
	t := task.Task{
		ID:          uuid.NewString(),
		Title:       d.Title,
		Description: d.Description,
		Priority:    d.Priority,
		DueDate:     d.DueDate,
		Status:      d.Status,
	}
	if t.Status == "" {
		t.Status = task.StatusTodo
	}
	now := s.now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, priority, due_date, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		t.ID, t.Title, t.Description, string(t.Priority), t.DueDate, string(t.Status), now, now)
	if err != nil {
		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// UpdateTask sets the non-nil fields of p and returns the stored result.
func (s *Store) UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return task.Task{}, err
	}
	t := p.Apply(current)
	now := s.now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, priority = ?, due_date = ?, status = ?, updated_at = ? WHERE id = ?;`,
		t.Title, t.Description, string(t.Priority), t.DueDate, string(t.Status), now, id)
	if err != nil {
		return task.Task{}, fmt.Errorf("update task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return task.Task{}, ErrNotFound
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(r scanner) (task.Task, error) {
	var t task.Task
	var priority, status string
	if err := r.Scan(&t.ID, &t.Title, &t.Description, &priority, &t.DueDate, &status); err != nil {
		return task.Task{}, err
	}
	t.Priority = task.Priority(priority)
	t.Status = task.Status(status)
	return t, nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
