package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit          key.Binding
	reload        key.Binding
	toggleHelp    key.Binding
	laneLeft      key.Binding
	laneRight     key.Binding
	cardUp        key.Binding
	cardDown      key.Binding
	expand        key.Binding
	nextItem      key.Binding
	prevItem      key.Binding
	toggleItem    key.Binding
	addTodo       key.Binding
	editTodo      key.Binding
	deleteTodo    key.Binding
	moveTodoLeft  key.Binding
	moveTodoRight key.Binding
	copyTodo      key.Binding
	cancel        key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		laneLeft:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "lane left")),
		laneRight:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "lane right")),
		cardUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "card up")),
		cardDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "card down")),
		expand:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand card")),
		nextItem:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next checklist item")),
		prevItem:      key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous checklist item")),
		toggleItem:    key.NewBinding(key.WithKeys("space", " "), key.WithHelp("space", "toggle item")),
		addTodo:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new todo")),
		editTodo:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit todo")),
		deleteTodo:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete todo")),
		moveTodoLeft:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move todo left")),
		moveTodoRight: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move todo right")),
		copyTodo:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy as markdown")),
		cancel:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addTodo, k.editTodo, k.deleteTodo, k.expand, k.moveTodoLeft, k.moveTodoRight, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addTodo, k.editTodo, k.deleteTodo, k.copyTodo, k.reload, k.toggleHelp, k.quit},
		{k.laneLeft, k.laneRight, k.cardUp, k.cardDown, k.moveTodoLeft, k.moveTodoRight},
		{k.expand, k.nextItem, k.prevItem, k.toggleItem, k.cancel},
	}
}

// formKeyMap holds the bindings active while the todo form is open.
type formKeyMap struct {
	next   key.Binding
	prev   key.Binding
	submit key.Binding
	cancel key.Binding
}

func newFormKeyMap() formKeyMap {
	return formKeyMap{
		next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		submit: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}
