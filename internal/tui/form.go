package tui

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hylla/lanes/internal/domain"
)

// minTitleRunes is the shortest title the form accepts.
const minTitleRunes = 3

const (
	fieldTitle = iota
	fieldDescription
	fieldChecklist
)

// todoForm backs the add and edit modal.
type todoForm struct {
	editingID   int
	status      domain.Status
	original    []domain.TodoItem
	title       textinput.Model
	description textinput.Model
	checklist   []textinput.Model
	focus       int
	err         string
}

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

func newChecklistInput(value string) textinput.Model {
	return newModalInput("• ", "checklist item", value, 200)
}

// newTodoForm opens an empty form, or one prefilled from todo when editing.
func newTodoForm(todo *domain.Todo) todoForm {
	f := todoForm{status: domain.StatusPending}
	title, description := "", ""
	if todo != nil {
		f.editingID = todo.ID
		f.status = todo.Status
		f.original = todo.Clone().Items
		title = todo.Title
		description = todo.Description
		for _, item := range todo.Items {
			f.checklist = append(f.checklist, newChecklistInput(item.Content))
		}
	}
	if len(f.checklist) == 0 {
		f.checklist = []textinput.Model{newChecklistInput("")}
	}
	f.title = newModalInput("title: ", "what needs doing", title, 120)
	f.description = newModalInput("description: ", "optional markdown", description, 500)
	return f
}

func (f todoForm) editing() bool {
	return f.editingID != 0
}

func (f todoForm) fieldCount() int {
	return fieldChecklist + len(f.checklist)
}

// input returns the focused input.
func (f *todoForm) input(idx int) *textinput.Model {
	switch {
	case idx == fieldTitle:
		return &f.title
	case idx == fieldDescription:
		return &f.description
	default:
		return &f.checklist[idx-fieldChecklist]
	}
}

// setFocus blurs every input and focuses idx.
func (f *todoForm) setFocus(idx int) tea.Cmd {
	idx = clamp(idx, 0, f.fieldCount()-1)
	for i := range f.fieldCount() {
		f.input(i).Blur()
	}
	f.focus = idx
	return f.input(idx).Focus()
}

// checklistItems returns trimmed non-blank lines. When editing, an unchanged
// line keeps the id and checked flag of the first original item with that content.
func (f todoForm) checklistItems() []domain.TodoItem {
	used := make([]bool, len(f.original))
	out := make([]domain.TodoItem, 0, len(f.checklist))
	for _, in := range f.checklist {
		content := strings.TrimSpace(in.Value())
		if content == "" {
			continue
		}
		item := domain.TodoItem{Content: content}
		for idx, orig := range f.original {
			if !used[idx] && orig.Content == content {
				used[idx] = true
				item = orig
				break
			}
		}
		out = append(out, item)
	}
	return out
}

// build validates the form and returns the todo it describes.
func (f todoForm) build() (domain.Todo, error) {
	title := strings.TrimSpace(f.title.Value())
	if utf8.RuneCountInString(title) < minTitleRunes {
		return domain.Todo{}, fmt.Errorf("title must be at least %d characters", minTitleRunes)
	}
	return domain.Todo{
		ID:          f.editingID,
		Title:       title,
		Description: strings.TrimSpace(f.description.Value()),
		Status:      f.status,
		Items:       f.checklistItems(),
	}, nil
}

// openForm switches to the modal for a new todo, or for todo when non-nil.
func (m *Model) openForm(todo *domain.Todo) tea.Cmd {
	m.form = newTodoForm(todo)
	m.mode = modeAddTodo
	if todo != nil {
		m.mode = modeEditTodo
	}
	return m.form.setFocus(fieldTitle)
}

func (m *Model) closeForm() {
	m.mode = modeNone
	m.form = todoForm{}
}

// handleFormKey routes key presses while the modal is open.
func (m Model) handleFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.formKeys.cancel):
		m.closeForm()
		return m, nil
	case key.Matches(msg, m.formKeys.submit):
		return m.submitForm()
	case key.Matches(msg, m.formKeys.next):
		return m, m.form.setFocus((m.form.focus + 1) % m.form.fieldCount())
	case key.Matches(msg, m.formKeys.prev):
		return m, m.form.setFocus((m.form.focus - 1 + m.form.fieldCount()) % m.form.fieldCount())
	}

	switch msg.String() {
	case "enter":
		if m.form.focus < fieldChecklist {
			return m, m.form.setFocus(m.form.focus + 1)
		}
		pos := m.form.focus - fieldChecklist + 1
		m.form.checklist = append(m.form.checklist[:pos], append([]textinput.Model{newChecklistInput("")}, m.form.checklist[pos:]...)...)
		return m, m.form.setFocus(m.form.focus + 1)
	case "backspace":
		if m.form.focus >= fieldChecklist && len(m.form.checklist) > 1 && m.form.input(m.form.focus).Value() == "" {
			pos := m.form.focus - fieldChecklist
			m.form.checklist = append(m.form.checklist[:pos], m.form.checklist[pos+1:]...)
			return m, m.form.setFocus(m.form.focus - 1)
		}
	}

	m.form.err = ""
	in := m.form.input(m.form.focus)
	updated, cmd := in.Update(msg)
	*in = updated
	return m, cmd
}

// submitForm validates the modal and dispatches the add or update.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	todo, err := m.form.build()
	if err != nil {
		m.form.err = err.Error()
		return m, nil
	}
	editing := m.form.editing()
	m.closeForm()
	if !editing {
		return m, m.addTodo(todo)
	}
	if current, ok := m.state.Todo(todo.ID); ok {
		todo.Status = current.Status
	}
	return m, m.updateTodo(todo)
}

// renderForm renders the modal body.
func (m Model) renderForm(accent, muted color.Color, maxWidth int) string {
	width := clamp(maxWidth, 30, 72)
	title := "New todo"
	if m.form.editing() {
		title = "Edit todo"
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle := lipgloss.NewStyle().Foreground(muted)
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	lines := []string{
		titleStyle.Render(title),
		"",
		m.form.title.View(),
		m.form.description.View(),
		"",
		labelStyle.Render("checklist (enter adds a line)"),
	}
	for _, in := range m.form.checklist {
		lines = append(lines, in.View())
	}
	if m.form.err != "" {
		lines = append(lines, "", errStyle.Render(m.form.err))
	}
	lines = append(lines, "", labelStyle.Render("tab next • ctrl+s save • esc cancel"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}
