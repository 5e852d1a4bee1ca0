package domain

import (
	"math"
	"strings"
)

// Todo is one card on the board.
type Todo struct {
	ID          int
	Title       string
	Description string
	Status      Status
	Items       []TodoItem
}

// TodoItem is one checklist entry of a todo.
type TodoItem struct {
	ID      string
	Content string
	Checked bool
}

// TodoInput holds values for constructing a validated todo.
type TodoInput struct {
	ID          int
	Title       string
	Description string
	Status      Status
	Items       []TodoItem
}

// NewTodo validates input and returns a todo. Blank titles and unknown
// statuses are rejected; an empty status defaults to Pending.
func NewTodo(in TodoInput) (Todo, error) {
	if in.ID < 0 {
		return Todo{}, ErrInvalidID
	}
	if strings.TrimSpace(in.Title) == "" {
		return Todo{}, ErrInvalidTitle
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !in.Status.Valid() {
		return Todo{}, ErrInvalidStatus
	}
	seen := make(map[string]struct{}, len(in.Items))
	for _, item := range in.Items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return Todo{}, ErrInvalidItemID
		}
		if _, ok := seen[id]; ok {
			return Todo{}, ErrDuplicateItem
		}
		seen[id] = struct{}{}
	}
	return Todo{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Items:       cloneItems(in.Items),
	}, nil
}

// Clone returns a deep copy so checklist slices are never shared.
func (t Todo) Clone() Todo {
	t.Items = cloneItems(t.Items)
	return t
}

// Progress returns the rounded percentage of checked items, 0 when empty.
func (t Todo) Progress() int {
	if len(t.Items) == 0 {
		return 0
	}
	checked := 0
	for _, item := range t.Items {
		if item.Checked {
			checked++
		}
	}
	return int(math.Round(float64(checked) / float64(len(t.Items)) * 100))
}

// ToggleItem flips one checklist item and reports whether it was found.
func (t *Todo) ToggleItem(itemID string) bool {
	for idx := range t.Items {
		if t.Items[idx].ID == itemID {
			t.Items[idx].Checked = !t.Items[idx].Checked
			return true
		}
	}
	return false
}

// CloneTodos deep-copies a todo list.
func CloneTodos(in []Todo) []Todo {
	if in == nil {
		return nil
	}
	out := make([]Todo, len(in))
	for idx, todo := range in {
		out[idx] = todo.Clone()
	}
	return out
}

func cloneItems(in []TodoItem) []TodoItem {
	if in == nil {
		return nil
	}
	out := make([]TodoItem, len(in))
	copy(out, in)
	return out
}
