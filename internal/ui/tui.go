// Package ui implements the interactive terminal interface.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskman/internal/logging"
	"taskman/internal/todo"
)

// mode selects which surface has the keyboard.
type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeDetail
	modeConfirm
	modeHelp
)

// Form field indices.
const (
	fieldTitle = iota
	fieldDescription
	fieldDue
	fieldCount
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	overdueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// Run starts the full-screen task UI on store. Mutations are persisted
// through the store and recorded on activity; activity may be nil.
func Run(ctx context.Context, store *todo.Store, activity *logging.ActivityLog, showCompleted bool) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	program := tea.NewProgram(newModel(store, activity, showCompleted), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// Model is the bubbletea model for the task UI.
type Model struct {
	store    *todo.Store
	activity *logging.ActivityLog

	mode    mode
	showAll bool
	visible []int // store indexes of the listed tasks
	cursor  int   // position within visible
	status  string

	inputs    []textinput.Model
	focus     int
	editIndex int // store index being edited

	deleteIndex int // store index awaiting y/n
}

func newModel(store *todo.Store, activity *logging.ActivityLog, showCompleted bool) Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].CharLimit = 256
		inputs[i].Width = 40
	}
	inputs[fieldTitle].Placeholder = "Task title"
	inputs[fieldDescription].Placeholder = "Description"
	inputs[fieldDue].Placeholder = "YYYY-MM-DD"

	m := Model{
		store:    store,
		activity: activity,
		showAll:  showCompleted,
		inputs:   inputs,
		status:   "Press a to add, c to complete, ? for help.",
	}
	m.rebuildVisible()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd, modeEdit:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg.String())
		case modeDetail:
			return m.updateDetail(msg.String())
		case modeHelp:
			return m.updateHelp(msg.String())
		default:
			return m.updateList(msg.String())
		}
	case tea.WindowSizeMsg:
		w := msg.Width - 20
		if w > 60 {
			w = 60
		}
		if w < 20 {
			w = 20
		}
		for i := range m.inputs {
			m.inputs[i].Width = w
		}
	}
	return m, nil
}

func (m Model) updateList(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "j", "down":
		m.cursor = clampCursor(m.cursor+1, len(m.visible))
	case "k", "up":
		m.cursor = clampCursor(m.cursor-1, len(m.visible))
	case "a":
		return m.startAdd()
	case "e":
		return m.startEdit()
	case "enter":
		if len(m.visible) == 0 {
			m.status = "No tasks"
			return m, nil
		}
		m.mode = modeDetail
	case "c":
		return m.completeSelected()
	case "d":
		task, index, ok := m.selected()
		if !ok {
			m.status = "No tasks"
			return m, nil
		}
		m.deleteIndex = index
		m.mode = modeConfirm
		m.status = fmt.Sprintf("Delete %q? y/n", task.Title)
	case "tab":
		m.showAll = !m.showAll
		m.rebuildVisible()
		if m.showAll {
			m.status = "Showing completed tasks"
		} else {
			m.status = "Hiding completed tasks"
		}
	case "r":
		if err := m.store.Reload(); err != nil {
			m.status = fmt.Sprintf("reload failed: %v", err)
			return m, nil
		}
		m.rebuildVisible()
		m.status = "Reloaded"
	case "?":
		m.mode = modeHelp
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.mode = modeList
		m.blurInputs()
		m.status = "Cancelled"
		return m, nil
	case "enter":
		return m.saveForm()
	case "tab", "down":
		return m.focusField(m.focus + 1)
	case "shift+tab", "up":
		return m.focusField(m.focus - 1)
	default:
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}
}

func (m Model) updateConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "y", "Y":
		task, ok := m.store.Get(m.deleteIndex)
		if !ok {
			m.mode = modeList
			m.status = "Nothing to delete"
			return m, nil
		}
		if _, err := m.store.Delete(m.deleteIndex); err != nil {
			m.mode = modeList
			m.status = fmt.Sprintf("delete failed: %v", err)
			return m, nil
		}
		_ = m.activity.RecordTask("rm", m.deleteIndex, task.Title)
		m.mode = modeList
		m.rebuildVisible()
		m.status = "Deleted task"
	case "n", "N", "esc":
		m.mode = modeList
		m.status = "Delete cancelled"
	}
	return m, nil
}

func (m Model) updateDetail(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "enter", "q":
		m.mode = modeList
	}
	return m, nil
}

func (m Model) updateHelp(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "?", "esc", "q":
		m.mode = modeList
	}
	return m, nil
}

func (m Model) startAdd() (tea.Model, tea.Cmd) {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.mode = modeAdd
	m.status = "Add a task: enter saves, esc cancels"
	return m.focusField(fieldTitle)
}

func (m Model) startEdit() (tea.Model, tea.Cmd) {
	task, index, ok := m.selected()
	if !ok {
		m.status = "No tasks to edit"
		return m, nil
	}
	m.inputs[fieldTitle].SetValue(task.Title)
	m.inputs[fieldDescription].SetValue(task.Description)
	m.inputs[fieldDue].SetValue(task.Due())
	m.editIndex = index
	m.mode = modeEdit
	m.status = "Edit task: enter saves, esc cancels, cleared fields keep their value"
	return m.focusField(fieldTitle)
}

// saveForm commits the add or edit form. Empty fields are skipped by
// the store on edit, so clearing a pre-filled field keeps its value.
func (m Model) saveForm() (tea.Model, tea.Cmd) {
	title := strings.TrimSpace(m.inputs[fieldTitle].Value())
	description := strings.TrimSpace(m.inputs[fieldDescription].Value())
	due := strings.TrimSpace(m.inputs[fieldDue].Value())

	if m.mode == modeAdd {
		if title == "" {
			m.status = "Title cannot be empty"
			return m, nil
		}
		task, err := m.store.Add(title, description, due)
		if err != nil {
			m.status = fmt.Sprintf("save failed: %v", err)
			return m, nil
		}
		_ = m.activity.RecordTask("add", m.store.Len()-1, task.Title)
		m.mode = modeList
		m.blurInputs()
		m.rebuildVisible()
		m.cursor = clampCursor(len(m.visible)-1, len(m.visible))
		m.status = "Added task"
		return m, nil
	}

	ok, err := m.store.Update(m.editIndex, title, description, due)
	if err != nil {
		m.status = fmt.Sprintf("save failed: %v", err)
		return m, nil
	}
	if !ok {
		m.mode = modeList
		m.blurInputs()
		m.status = "Task is gone"
		return m, nil
	}
	task, _ := m.store.Get(m.editIndex)
	_ = m.activity.RecordTask("edit", m.editIndex, task.Title)
	m.mode = modeList
	m.blurInputs()
	m.rebuildVisible()
	m.status = "Updated task"
	return m, nil
}

func (m Model) completeSelected() (tea.Model, tea.Cmd) {
	task, index, ok := m.selected()
	if !ok {
		m.status = "No tasks"
		return m, nil
	}
	if task.Completed {
		m.status = "Already completed"
		return m, nil
	}
	if _, err := m.store.Complete(index); err != nil {
		m.status = fmt.Sprintf("complete failed: %v", err)
		return m, nil
	}
	_ = m.activity.RecordTask("done", index, task.Title)
	m.rebuildVisible()
	m.status = "Completed task"
	return m, nil
}

func (m Model) focusField(field int) (tea.Model, tea.Cmd) {
	m.focus = (field + fieldCount) % fieldCount
	for i := range m.inputs {
		if i == m.focus {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return m, textinput.Blink
}

func (m *Model) blurInputs() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

// rebuildVisible recomputes the listed store indexes. Tasks keep their
// file position as display number even when completed tasks are
// hidden, so the numbers match the ls command and stay valid across
// the toggle.
func (m *Model) rebuildVisible() {
	m.visible = m.visible[:0]
	for i := 0; i < m.store.Len(); i++ {
		task, _ := m.store.Get(i)
		if !m.showAll && task.Completed {
			continue
		}
		m.visible = append(m.visible, i)
	}
	m.cursor = clampCursor(m.cursor, len(m.visible))
}

// selected returns the task under the cursor and its store index.
func (m Model) selected() (todo.Task, int, bool) {
	if len(m.visible) == 0 {
		return todo.Task{}, 0, false
	}
	index := m.visible[clampCursor(m.cursor, len(m.visible))]
	task, ok := m.store.Get(index)
	return task, index, ok
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Taskman"))
	b.WriteString("\n")

	switch m.mode {
	case modeHelp:
		m.renderHelp(&b)
	case modeAdd, modeEdit:
		m.renderForm(&b)
	case modeDetail:
		m.renderDetail(&b)
	default:
		m.renderList(&b)
	}
	return b.String()
}

func (m Model) renderList(b *strings.Builder) {
	pending, completed := 0, 0
	for i := 0; i < m.store.Len(); i++ {
		if task, _ := m.store.Get(i); task.Completed {
			completed++
		} else {
			pending++
		}
	}
	b.WriteString(helpStyle.Render(fmt.Sprintf("%d pending, %d completed", pending, completed)))
	b.WriteString("\n\n")

	if len(m.visible) == 0 {
		b.WriteString("No tasks yet. Press 'a' to add one.\n")
	}
	for vi, si := range m.visible {
		task, _ := m.store.Get(si)
		marker := "⬜"
		if task.Completed {
			marker = "✅"
		}
		line := fmt.Sprintf("%3d. %s %s", si+1, marker, task.Title)
		if task.Due() != "" {
			line += fmt.Sprintf(" (due: %s)", task.Due())
		}
		switch {
		case vi == m.cursor:
			line = selectedStyle.Render(line)
		case task.Completed:
			line = doneStyle.Render(line)
		case overdue(task, time.Now()):
			line = overdueStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k move • a add • e edit • enter details • c complete • d delete • tab completed • r reload • ? help • q quit"))
	b.WriteString("\n")
}

func (m Model) renderForm(b *strings.Builder) {
	if m.mode == modeAdd {
		b.WriteString("Add Task\n\n")
	} else {
		b.WriteString(fmt.Sprintf("Edit Task #%d\n\n", m.editIndex+1))
	}

	labels := [fieldCount]string{"Title", "Description", "Due date"}
	for i, input := range m.inputs {
		b.WriteString(fmt.Sprintf("  %s\n  %s\n\n", labelStyle.Render(labels[i]), input.View()))
	}

	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter save • tab next field • esc cancel"))
	b.WriteString("\n")
}

func (m Model) renderDetail(b *strings.Builder) {
	task, index, ok := m.selected()
	if !ok {
		b.WriteString("\nNo tasks.\n")
		return
	}

	status := "Pending"
	if task.Completed {
		status = "Completed"
	}
	due := task.Due()
	if due == "" {
		due = "Not set"
	}
	description := task.Description
	if description == "" {
		description = "(none)"
	}

	b.WriteString(fmt.Sprintf("\nTask #%d\n\n", index+1))
	b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render("Title:      "), task.Title))
	b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render("Status:     "), status))
	b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render("Created:    "), task.CreatedDate))
	b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render("Due:        "), due))
	b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render("Description:"), description))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("esc back"))
	b.WriteString("\n")
}

func (m Model) renderHelp(b *strings.Builder) {
	b.WriteString("\nKeyboard Shortcuts\n\n")
	b.WriteString("  j/k, arrows  Move the cursor\n")
	b.WriteString("  a            Add a task\n")
	b.WriteString("  e            Edit the selected task\n")
	b.WriteString("  enter        Show task details\n")
	b.WriteString("  c            Complete the selected task\n")
	b.WriteString("  d            Delete the selected task (y/n confirm)\n")
	b.WriteString("  tab          Toggle completed tasks\n")
	b.WriteString("  r            Reload from disk\n")
	b.WriteString("  ?            Toggle this help screen\n")
	b.WriteString("  q, ctrl+c    Quit\n\n")
	b.WriteString(helpStyle.Render("esc back"))
	b.WriteString("\n")
}

// overdue reports whether the task is pending with a due date before
// now's date. Due dates in any other form than YYYY-MM-DD never count
// as overdue.
func overdue(task todo.Task, now time.Time) bool {
	if task.Completed || task.Due() == "" {
		return false
	}
	if _, err := time.Parse(time.DateOnly, task.Due()); err != nil {
		return false
	}
	// Dates in this form compare lexicographically.
	return task.Due() < now.Format(time.DateOnly)
}

func clampCursor(cursor, n int) int {
	if n <= 0 {
		return 0
	}
	if cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}

// IsTTY reports whether w is attached to a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
