// Package server is the reference implementation of the remote task service.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"tasktracker/internal/storage"
	"tasktracker/internal/task"
)

const maxBodySize = 64 << 10

// Store is the persistence the handlers need.
type Store interface {
	ListTasks(ctx context.Context, q task.Query) ([]task.Task, error)
	GetTask(ctx context.Context, id string) (task.Task, error)
	CreateTask(ctx context.Context, d task.Draft) (task.Task, error)
	UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error)
}

type Handlers struct {
	store       Store
	cache       *InsightsCache
	dueSoonDays int
	now         func() time.Time
	log         log.FieldLogger
}

func NewHandlers(store Store, cache *InsightsCache, dueSoonDays int, logger log.FieldLogger) *Handlers {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Handlers{store: store, cache: cache, dueSoonDays: dueSoonDays, now: time.Now, log: logger}
}

// New returns an Echo instance with CORS enabled and all routes registered.
func New(h *Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	Register(e, h)
	return e
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, h *Handlers) {
	e.GET("/tasks", h.listTasks)
	e.POST("/tasks", h.createTask)
	e.PATCH("/tasks/:id", h.updateTask)
	e.GET("/insights", h.insights)
	e.GET("/health", h.health)
}

type errorResponse struct {
	Error string `json:"error"`
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

func (h *Handlers) listTasks(c echo.Context) error {
	q := task.ParseQuery(c.QueryParams())
	tasks, err := h.store.ListTasks(c.Request().Context(), q)
	if err != nil {
		h.log.WithError(err).Error("list tasks")
		return fail(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, tasks)
}

// createRequest keeps nil distinct from "" so missing fields can be named.
type createRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
	Status      *string `json:"status"`
}

func (h *Handlers) createTask(c echo.Context) error {
	var req createRequest
	if err := decode(c, &req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	for _, f := range []struct {
		name string
		v    *string
	}{{"title", req.Title}, {"priority", req.Priority}, {"due_date", req.DueDate}} {
		if f.v == nil || strings.TrimSpace(*f.v) == "" {
			return fail(c, http.StatusBadRequest, "Missing required field: "+f.name)
		}
	}
	d := task.Draft{
		Title:    *req.Title,
		Priority: task.Priority(*req.Priority),
		DueDate:  strings.TrimSpace(*req.DueDate),
		Status:   task.StatusTodo,
	}
	if req.Description != nil {
		d.Description = *req.Description
	}
	if !d.Priority.Valid() {
		return fail(c, http.StatusBadRequest, "Priority must be Low, Medium, or High")
	}
	if req.Status != nil && *req.Status != "" {
		d.Status = task.Status(*req.Status)
		if !d.Status.Valid() {
			return fail(c, http.StatusBadRequest, "Status must be todo, in_progress, or done")
		}
	}
	if _, err := time.Parse(task.DateLayout, d.DueDate); err != nil {
		return fail(c, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
	}

	ctx := c.Request().Context()
	created, err := h.store.CreateTask(ctx, d)
	if err != nil {
		h.log.WithError(err).Error("create task")
		return fail(c, http.StatusInternalServerError, err.Error())
	}
	h.cache.Evict(ctx)
	h.log.WithField("task_id", created.ID).Info("task created")
	return c.JSON(http.StatusCreated, created)
}

func (h *Handlers) updateTask(c echo.Context) error {
	id := c.Param("id")
	var p task.Patch
	if err := decode(c, &p); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if p.Status != nil && !p.Status.Valid() {
		return fail(c, http.StatusBadRequest, "Status must be todo, in_progress, or done")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fail(c, http.StatusBadRequest, "Priority must be Low, Medium, or High")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fail(c, http.StatusBadRequest, "title must not be empty")
	}
	if p.DueDate != nil {
		if _, err := time.Parse(task.DateLayout, strings.TrimSpace(*p.DueDate)); err != nil {
			return fail(c, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		}
	}

	ctx := c.Request().Context()
	if p.Empty() {
		current, err := h.store.GetTask(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Task not found")
		}
		if err != nil {
			h.log.WithError(err).Error("get task")
			return fail(c, http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, current)
	}

	updated, err := h.store.UpdateTask(ctx, id, p)
	if errors.Is(err, storage.ErrNotFound) {
		return fail(c, http.StatusNotFound, "Task not found")
	}
	if err != nil {
		h.log.WithError(err).WithField("task_id", id).Error("update task")
		return fail(c, http.StatusInternalServerError, err.Error())
	}
	h.cache.Evict(ctx)
	return c.JSON(http.StatusOK, updated)
}

func (h *Handlers) insights(c echo.Context) error {
	ctx := c.Request().Context()
	gen, err := h.cache.Generation(ctx)
	cacheable := err == nil
	if cacheable {
		if ins, ok := h.cache.Load(ctx, gen); ok {
			return c.JSON(http.StatusOK, ins)
		}
	}
	all, err := h.store.ListTasks(ctx, task.Query{})
	if err != nil {
		h.log.WithError(err).Error("insights")
		return fail(c, http.StatusInternalServerError, err.Error())
	}
	ins := task.Summarize(all, h.now(), h.dueSoonDays)
	if cacheable {
		h.cache.Store(ctx, gen, ins)
	}
	return c.JSON(http.StatusOK, ins)
}

func (h *Handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func decode(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	return sonic.ConfigStd.NewDecoder(lr).Decode(out)
}
