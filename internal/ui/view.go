package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tasktracker/internal/config"
	"tasktracker/internal/present"
	"tasktracker/internal/task"
	"tasktracker/internal/viewmodel"
)

const emptyListText = "No tasks found. Add some tasks to get started!"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	panelStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			Padding(0, 1)
	alertStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(0, 1)

	tagStyles = map[string]lipgloss.Style{
		present.TagPriorityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		present.TagPriorityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		present.TagPriorityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		present.TagStatusTodo:       lipgloss.NewStyle(),
		present.TagStatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		present.TagStatusDone:       lipgloss.NewStyle().Faint(true).Strikethrough(true),
	}
)

func styleFor(tag string) lipgloss.Style {
	if s, ok := tagStyles[tag]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Task Tracker with Smart Insights"))
	b.WriteString("\n\n")
	b.WriteString(m.renderInsights())
	b.WriteString("\n")
	b.WriteString(m.renderControls())
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("Tasks (%d)", len(m.snap.Tasks))))
	b.WriteString("\n")
	if len(m.snap.Tasks) == 0 {
		b.WriteString(faintStyle.Render(emptyListText))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderTaskList())
	}

	b.WriteString("---\n")
	if m.mode == modeAdd {
		b.WriteString("Add New Task (tab/shift+tab to move, enter to advance, esc to cancel)")
		b.WriteString("\n\n")
		b.WriteString(m.renderDraftBox())
		b.WriteString("\n")
		b.WriteString("Field: " + fieldLabel(viewmodel.FormFields()[m.field]))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.form.State() == viewmodel.Submitting {
			b.WriteString("[ Adding... ]")
		} else {
			b.WriteString("[ Add Task ]")
		}
		b.WriteString("\n")
	}

	if m.alert != "" {
		b.WriteString("\n")
		b.WriteString(alertStyle.Render(m.alert + "\n\n(enter to dismiss)"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(renderHelp(m.cfg.Keys))
	return b.String()
}

func (m Model) renderInsights() string {
	if !m.snap.HasInsights {
		return panelStyle.Render("Smart Insights\n\nLoading insights...")
	}
	ins := m.snap.Insights
	var b strings.Builder
	b.WriteString("Smart Insights\n\n")
	b.WriteString(ins.Summary)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Total Tasks: %d    Due Soon: %d\n", ins.TotalTasks, ins.DueSoonCount))
	b.WriteString(fmt.Sprintf("Status: Todo (%d), In Progress (%d), Done (%d)",
		ins.StatusCount.Todo, ins.StatusCount.InProgress, ins.StatusCount.Done))
	return panelStyle.Render(b.String())
}

func (m Model) renderControls() string {
	return fmt.Sprintf("Status: %s    Priority: %s    Sort by: %s",
		orAll(present.StatusLabel(m.filters.Status)),
		orAll(string(m.filters.Priority)),
		sortLabel(m.sort))
}

func (m Model) renderTaskList() string {
	var b strings.Builder
	for i, dt := range m.pres.PresentAll(m.snap.Tasks) {
		cursor := " "
		if m.cursor == i && m.mode == modeList {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s  %s  %s  Due: %s\n",
			cursor,
			styleFor(dt.StatusTag).Render("["+dt.StatusLabel+"]"),
			styleFor(dt.StatusTag).Render(dt.Title),
			styleFor(dt.PriorityTag).Render(string(dt.Priority)),
			dt.DueLabel,
		))
		if strings.TrimSpace(dt.Description) != "" {
			b.WriteString("    ")
			b.WriteString(faintStyle.Render(dt.Description))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderDraftBox() string {
	var b strings.Builder
	for i, field := range viewmodel.FormFields() {
		prefix := " "
		if i == m.field {
			prefix = ">"
		}
		val := m.form.Value(field)
		if i == m.field {
			val = m.input.Value()
		}
		if strings.TrimSpace(val) == "" {
			val = "(empty)"
		}
		b.WriteString(fmt.Sprintf("%s %-12s : %s\n", prefix, fieldLabel(field), val))
	}
	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s status • %s priority • %s/%s filter • %s sort • %s refresh • %s quit",
		k.Up, k.Down, k.Add, keyLabel(k.CycleStatus), k.CyclePriority, k.FilterStatus, k.FilterPriority, k.Sort, k.Refresh, k.Quit)
}

func fieldLabel(field string) string {
	switch field {
	case viewmodel.FieldTitle:
		return "Title"
	case viewmodel.FieldDescription:
		return "Description"
	case viewmodel.FieldPriority:
		return "Priority"
	case viewmodel.FieldDueDate:
		return "Due Date"
	case viewmodel.FieldStatus:
		return "Status"
	}
	return field
}

func keyLabel(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func orAll(v string) string {
	if v == "" {
		return "All"
	}
	return v
}

func sortLabel(k task.SortKey) string {
	switch k {
	case task.SortDueDate:
		return "Due Date"
	case task.SortPriority:
		return "Priority"
	}
	return "None"
}
