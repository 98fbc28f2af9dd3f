package task

import (
	"fmt"
	"time"
)

// DefaultDueSoonDays is the look-ahead window for due_soon_count.
const DefaultDueSoonDays = 3

const (
	summaryEmpty    = "No tasks found. Add some tasks to get insights!"
	summaryAllClear = "Great job! You have no pending tasks."
)

// Summarize computes the insights aggregate over tasks. A task is due soon
// when it is not done and its due date falls in [today, today+window], with
// today taken in UTC.
func Summarize(tasks []Task, now time.Time, window int) Insights {
	if len(tasks) == 0 {
		return Insights{Summary: summaryEmpty}
	}
	if window < 0 {
		window = 0
	}

	ins := Insights{
		TotalTasks:    len(tasks),
		PriorityCount: make(map[Priority]int),
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	limit := today.AddDate(0, 0, window)
	for _, t := range tasks {
		ins.StatusCount.Add(t.Status)
		ins.PriorityCount[t.Priority]++
		if t.Status == StatusDone {
			continue
		}
		if due, ok := t.Due(); ok && !due.Before(today) && !due.After(limit) {
			ins.DueSoonCount++
		}
	}
	ins.Summary = summarize(ins)
	return ins
}

func summarize(ins Insights) string {
	open := ins.StatusCount.Open()
	if open == 0 {
		return summaryAllClear
	}
	s := fmt.Sprintf("You have %d open tasks", open)
	if p, ok := mostCommon(ins.PriorityCount); ok {
		s += fmt.Sprintf(", most are %s priority", p)
	}
	if ins.DueSoonCount > 0 {
		s += fmt.Sprintf(" and %d are due soon", ins.DueSoonCount)
	}
	return s + "."
}

// mostCommon breaks ties by priority rank so the result is deterministic.
func mostCommon(counts map[Priority]int) (Priority, bool) {
	var best Priority
	bestN := 0
	for p, n := range counts {
		if n > bestN || (n == bestN && p.Rank() < best.Rank()) {
			best, bestN = p, n
		}
	}
	return best, bestN > 0
}
