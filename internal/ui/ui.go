package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tasktracker/internal/api"
	"tasktracker/internal/config"
	"tasktracker/internal/present"
	"tasktracker/internal/task"
	"tasktracker/internal/viewmodel"
)

type mode int

const (
	modeList mode = iota
	modeAdd
)

type refreshedMsg struct{ err error }

type createdMsg struct{ err error }

type updatedMsg struct {
	id  string
	err error
}

type Model struct {
	ctx     context.Context
	store   *viewmodel.Store
	form    *viewmodel.Form
	pres    present.Presenter
	cfg     config.Config
	snap    viewmodel.Snapshot
	filters task.Filters
	sort    task.SortKey
	cursor  int
	mode    mode
	field   int
	input   textinput.Model
	status  string
	alert   string
}

// Run starts the terminal client and blocks until the user quits.
func Run(ctx context.Context, store *viewmodel.Store, cfg config.Config) error {
	program := tea.NewProgram(NewModel(ctx, store, cfg))
	_, err := program.Run()
	return err
}

func NewModel(ctx context.Context, store *viewmodel.Store, cfg config.Config) Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	pres := present.New(cfg.DateLayout)
	if cfg.DateLayout == "" {
		pres = present.NewForLocale(present.HostLocale())
	}
	snap := store.Snapshot()
	return Model{
		ctx:     ctx,
		store:   store,
		form:    viewmodel.NewForm(),
		pres:    pres,
		cfg:     cfg,
		snap:    snap,
		filters: snap.Filters,
		sort:    snap.Sort,
		input:   ti,
		mode:    modeList,
		status:  fmt.Sprintf("Press '%s' to add, '%s' to change status, '%s' to quit.", cfg.Keys.Add, keyLabel(cfg.Keys.CycleStatus), cfg.Keys.Quit),
	}
}

func (m Model) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.alert != "" {
			return m.updateAlert(msg.String())
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	case refreshedMsg:
		m.syncSnapshot()
	case updatedMsg:
		m.syncSnapshot()
	case createdMsg:
		m.form.Finish(msg.err)
		m.syncSnapshot()
		if msg.err != nil {
			m.alert = "Error creating task: " + api.Detail(msg.err)
			m.status = "Add failed"
			return m, nil
		}
		m.status = "Added task"
		m.mode = modeList
		m.field = 0
		m.input.SetValue("")
		m.input.Blur()
	}
	return m, nil
}

func (m *Model) syncSnapshot() {
	m.snap = m.store.Snapshot()
	m.cursor = clampCursor(m.cursor, len(m.snap.Tasks))
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.mode == modeAdd {
		return m.updateAddMode(key, msg)
	}
	return m.updateListMode(key)
}

func (m Model) updateAlert(key string) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Confirm, m.cfg.Keys.Cancel, "enter", "esc":
		m.alert = ""
	}
	return m, nil
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", m.cfg.Keys.Quit:
		return m, tea.Quit
	case m.cfg.Keys.Down, "down":
		if len(m.snap.Tasks) == 0 {
			return m, nil
		}
		m.cursor = clampCursor(m.cursor+1, len(m.snap.Tasks))
	case m.cfg.Keys.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(m.snap.Tasks))
		}
	case m.cfg.Keys.Add:
		m.mode = modeAdd
		m.field = 0
		m.loadField()
		m.input.Focus()
		m.status = "Add mode: tab to move between fields, enter on the last field to submit"
	case m.cfg.Keys.CycleStatus:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		next := cycle(task.Statuses(), t.Status)
		m.status = fmt.Sprintf("Setting \"%s\" to %s", t.Title, present.StatusLabel(next))
		return m, m.updateCmd(t.ID, task.StatusPatch(next))
	case m.cfg.Keys.CyclePriority:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		next := cycle(task.Priorities(), t.Priority)
		m.status = fmt.Sprintf("Setting \"%s\" to %s priority", t.Title, next)
		return m, m.updateCmd(t.ID, task.PriorityPatch(next))
	case m.cfg.Keys.FilterStatus:
		next := cycle(append([]task.Status{""}, task.Statuses()...), m.filters.Status)
		m.filters.Status = next
		m.status = "Status filter: " + orAll(present.StatusLabel(next))
		return m, m.filterCmd(task.FilterUpdate{Status: &next})
	case m.cfg.Keys.FilterPriority:
		next := cycle([]task.Priority{"", task.PriorityHigh, task.PriorityMedium, task.PriorityLow}, m.filters.Priority)
		m.filters.Priority = next
		m.status = "Priority filter: " + orAll(string(next))
		return m, m.filterCmd(task.FilterUpdate{Priority: &next})
	case m.cfg.Keys.Sort:
		m.sort = cycle(task.SortKeys(), m.sort)
		m.status = "Sort by: " + sortLabel(m.sort)
		return m, m.sortCmd(m.sort)
	case m.cfg.Keys.Refresh:
		m.status = "Refreshing"
		return m, m.refreshCmd()
	}
	return m, nil
}

func (m Model) updateAddMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fields := viewmodel.FormFields()
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		if m.form.State() == viewmodel.Submitting {
			return m, nil
		}
		// The draft is kept so the form reopens where the user left it.
		m.mode = modeList
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.NextField, m.cfg.Keys.PrevField:
		if !m.commitField() {
			return m, nil
		}
		step := 1
		if key == m.cfg.Keys.PrevField {
			step = -1
		}
		m.field = wrapIndex(m.field+step, len(fields))
		m.loadField()
		m.status = m.fieldPrompt()
		return m, nil
	case "left", "right":
		if !isEnumField(fields[m.field]) {
			break
		}
		step := 1
		if key == "left" {
			step = -1
		}
		m.input.SetValue(stepEnum(fields[m.field], m.input.Value(), step))
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		if !m.commitField() {
			return m, nil
		}
		if m.field < len(fields)-1 {
			m.field++
			m.loadField()
			m.status = m.fieldPrompt()
			return m, nil
		}
		return m.submit()
	}
	if m.form.State() == viewmodel.Submitting {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if !m.form.CanSubmit() {
		m.status = "Adding..."
		return m, nil
	}
	d, err := m.form.Begin()
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = "Adding..."
	return m, m.createCmd(d)
}

// commitField copies the input into the draft. It reports false and leaves
// the cursor in place when the value is rejected.
func (m *Model) commitField() bool {
	if m.form.State() == viewmodel.Submitting {
		return false
	}
	field := viewmodel.FormFields()[m.field]
	if err := m.form.SetField(field, m.input.Value()); err != nil {
		m.status = err.Error()
		return false
	}
	return true
}

func (m *Model) loadField() {
	field := viewmodel.FormFields()[m.field]
	m.input.SetValue(m.form.Value(field))
	m.input.Placeholder = fieldLabel(field)
}

func (m Model) fieldPrompt() string {
	return fmt.Sprintf("Editing %s (field %d of %d). Enter to advance, Esc to cancel.",
		fieldLabel(viewmodel.FormFields()[m.field]), m.field+1, len(viewmodel.FormFields()))
}

func (m Model) selected() (task.Task, bool) {
	if len(m.snap.Tasks) == 0 {
		return task.Task{}, false
	}
	return m.snap.Tasks[clampCursor(m.cursor, len(m.snap.Tasks))], true
}

func (m Model) refreshCmd() tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		return refreshedMsg{err: store.Refresh(ctx)}
	}
}

func (m Model) filterCmd(u task.FilterUpdate) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		return refreshedMsg{err: store.SetFilters(ctx, u)}
	}
}

func (m Model) sortCmd(k task.SortKey) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		return refreshedMsg{err: store.SetSortKey(ctx, k)}
	}
}

func (m Model) createCmd(d task.Draft) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		_, err := store.CreateTask(ctx, d)
		return createdMsg{err: err}
	}
}

func (m Model) updateCmd(id string, p task.Patch) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		return updatedMsg{id: id, err: store.UpdateTask(ctx, id, p)}
	}
}

func cycle[T comparable](values []T, cur T) T {
	for i, v := range values {
		if v == cur {
			return values[wrapIndex(i+1, len(values))]
		}
	}
	return values[0]
}

func isEnumField(field string) bool {
	return field == viewmodel.FieldPriority || field == viewmodel.FieldStatus
}

func stepEnum(field, cur string, step int) string {
	var values []string
	switch field {
	case viewmodel.FieldPriority:
		for _, p := range task.Priorities() {
			values = append(values, string(p))
		}
	case viewmodel.FieldStatus:
		for _, s := range task.Statuses() {
			values = append(values, string(s))
		}
	default:
		return cur
	}
	for i, v := range values {
		if strings.EqualFold(v, strings.TrimSpace(cur)) {
			return values[wrapIndex(i+step, len(values))]
		}
	}
	return values[0]
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
