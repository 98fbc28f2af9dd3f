package task

import (
	"net/url"
	"strings"
)

// Query parameter names understood by GET /tasks.
const (
	ParamStatus   = "status"
	ParamPriority = "priority"
	ParamSortBy   = "sort_by"
)

// Filters narrows the task list. Empty fields mean no constraint.
type Filters struct {
	Status   Status
	Priority Priority
}

// FilterUpdate is a partial Filters change. Nil fields keep their current
// value; a pointer to "" clears the constraint.
type FilterUpdate struct {
	Status   *Status
	Priority *Priority
}

// Merge returns f with the set fields of u applied.
func (f Filters) Merge(u FilterUpdate) Filters {
	if u.Status != nil {
		f.Status = *u.Status
	}
	if u.Priority != nil {
		f.Priority = *u.Priority
	}
	return f
}

type SortKey string

const (
	SortNone     SortKey = ""
	SortDueDate  SortKey = "due_date"
	SortPriority SortKey = "priority"
)

// SortKeys lists the sort options in the order the UI cycles through them.
func SortKeys() []SortKey {
	return []SortKey{SortNone, SortDueDate, SortPriority}
}

func (k SortKey) Valid() bool {
	switch k {
	case SortNone, SortDueDate, SortPriority:
		return true
	}
	return false
}

// Query is the request for GET /tasks.
type Query struct {
	Filters Filters
	Sort    SortKey
}

// BuildQuery maps the current filters and sort key into a request. It has no
// side effects.
func BuildQuery(f Filters, sort SortKey) Query {
	return Query{Filters: f, Sort: sort}
}

// Values renders q as URL parameters, omitting every empty field.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Filters.Status != "" {
		v.Set(ParamStatus, string(q.Filters.Status))
	}
	if q.Filters.Priority != "" {
		v.Set(ParamPriority, string(q.Filters.Priority))
	}
	if q.Sort != SortNone {
		v.Set(ParamSortBy, string(q.Sort))
	}
	return v
}

// Encode returns the query string in a fixed parameter order:
// status, priority, sort_by.
func (q Query) Encode() string {
	v := q.Values()
	parts := make([]string, 0, 3)
	for _, key := range []string{ParamStatus, ParamPriority, ParamSortBy} {
		if val := v.Get(key); val != "" {
			parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(val))
		}
	}
	return strings.Join(parts, "&")
}

// ParseQuery is the inverse of Values. Values are taken literally; it is the
// server's job to reject unknown enums.
func ParseQuery(v url.Values) Query {
	return Query{
		Filters: Filters{
			Status:   Status(strings.TrimSpace(v.Get(ParamStatus))),
			Priority: Priority(strings.TrimSpace(v.Get(ParamPriority))),
		},
		Sort: SortKey(strings.TrimSpace(v.Get(ParamSortBy))),
	}
}
