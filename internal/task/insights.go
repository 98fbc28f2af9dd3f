package task

// StatusCount holds per-status totals.
type StatusCount struct {
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
}

// Add increments the bucket for s. Unknown statuses are ignored.
func (c *StatusCount) Add(s Status) {
	switch s {
	case StatusTodo:
		c.Todo++
	case StatusInProgress:
		c.InProgress++
	case StatusDone:
		c.Done++
	}
}

func (c StatusCount) Open() int {
	return c.Todo + c.InProgress
}

// Insights is the server-computed aggregate over the whole task set. The
// client replaces it wholesale on every fetch.
type Insights struct {
	Summary       string           `json:"summary"`
	TotalTasks    int              `json:"total_tasks"`
	DueSoonCount  int              `json:"due_soon_count"`
	StatusCount   StatusCount      `json:"status_count"`
	PriorityCount map[Priority]int `json:"priority_count,omitempty"`
}
