package tui

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"sync"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"

	"github.com/hylla/lanes/internal/app"
	"github.com/hylla/lanes/internal/domain"
	"github.com/hylla/lanes/internal/dragdrop"
)

// renderFailedNotice replaces the board when rendering panics.
const renderFailedNotice = "Something went wrong. Press q to quit."

// emptyBoardText is shown when the board holds no todos.
const emptyBoardText = "No todos in this board yet. Add your first todo!"

// Board is the state store the model renders and drives.
type Board interface {
	State() app.State
	Subscribe(fn func(app.State)) func()
	LoadTodos(ctx context.Context) error
	AddTodo(ctx context.Context, todo domain.Todo) (domain.Todo, error)
	UpdateTodo(ctx context.Context, todo domain.Todo) error
	MoveTodo(ctx context.Context, id int, status domain.Status) error
	DeleteTodo(ctx context.Context, id int) error
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeAddTodo
	modeEditTodo
)

// boardChangedMsg signals that the store published a new state.
type boardChangedMsg struct{}

// opDoneMsg reports a finished store call. Failures already surface as store messages.
type opDoneMsg struct {
	op  app.Op
	id  int
	err error
}

// clipboardMsg reports the result of a copy.
type clipboardMsg struct {
	err error
}

// focusTarget selects a todo once it shows up in status.
type focusTarget struct {
	id     int
	status domain.Status
}

// storeFeed turns store notifications into tea messages.
// Notifications coalesce; the model reads the latest state when it wakes.
type storeFeed struct {
	changed chan struct{}
	done    chan struct{}
	once    sync.Once
	cancel  func()
}

func newStoreFeed(board Board) *storeFeed {
	f := &storeFeed{
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	f.cancel = board.Subscribe(func(app.State) {
		select {
		case f.changed <- struct{}{}:
		default:
		}
	})
	return f
}

// wait blocks until the next notification.
func (f *storeFeed) wait() tea.Msg {
	select {
	case <-f.changed:
		return boardChangedMsg{}
	case <-f.done:
		return nil
	}
}

func (f *storeFeed) close() {
	f.once.Do(func() {
		f.cancel()
		close(f.done)
	})
}

// Model represents model data used by this package.
type Model struct {
	board Board
	feed  *storeFeed

	state      app.State
	loaded     bool
	sawLoading bool

	lanes           []domain.Status
	resolver        dragdrop.Resolver
	showDescription bool
	toastDisplay    time.Duration
	maxToasts       int
	copyText        func(string) error

	width  int
	height int
	ready  bool

	selectedLane int
	selectedCard int
	itemCursor   int
	expanded     map[int]bool
	focus        *focusTarget
	drag         *dragState
	laneRects    []dragdrop.LaneRect

	mode inputMode
	form todoForm

	toasts         []toast
	nextToastID    int
	lastMessageSeq uint64

	keys     keyMap
	formKeys formKeyMap
	help     help.Model
	markdown *markdownRenderer
}

// NewModel constructs a board model over board and subscribes to its changes.
func NewModel(board Board, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	state := board.State()
	m := Model{
		board:          board,
		state:          state,
		lastMessageSeq: state.MessageSeq,
		lanes:          domain.DefaultLanes(),
		resolver:       dragdrop.NewResolver(dragdrop.OverlapThreshold),
		toastDisplay:   DefaultToastDisplay,
		maxToasts:      DefaultMaxToasts,
		copyText:       clipboard.WriteAll,
		expanded:       map[int]bool{},
		keys:           newKeyMap(),
		formKeys:       newFormKeyMap(),
		help:           h,
		markdown:       &markdownRenderer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.feed = newStoreFeed(board)
	return m
}

// Init starts listening to the store and runs the initial load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.feed.wait, m.loadTodos())
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardChangedMsg:
		cmd := m.applyState(m.board.State())
		return m, tea.Batch(m.feed.wait, cmd)

	case opDoneMsg:
		cmd := m.applyState(m.board.State())
		if msg.op == app.OpLoad && !m.state.Loading.IsLoading {
			m.loaded = true
		}
		if msg.err != nil && m.focus != nil && m.focus.id == msg.id {
			m.focus = nil
		}
		return m, cmd

	case toastExpiredMsg:
		m.dropToast(msg.id)
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			return m, m.pushToast(domain.Message{Type: domain.MessageError, Text: "Copy failed: " + msg.err.Error()})
		}
		return m, m.pushToast(domain.Message{Type: domain.MessageSuccess, Text: "Copied todo to clipboard"})

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleFormKey(msg)
		}
		return m.handleBoardKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	default:
		if m.mode != modeNone {
			in := m.form.input(m.form.focus)
			updated, cmd := in.Update(msg)
			*in = updated
			return m, cmd
		}
		return m, nil
	}
}

// applyState adopts st unless it is older than the current state.
func (m *Model) applyState(st app.State) tea.Cmd {
	if st.Version < m.state.Version {
		return nil
	}
	m.state = st
	if st.Loading.IsLoading {
		m.sawLoading = true
	} else if m.sawLoading {
		m.loaded = true
	}

	var cmd tea.Cmd
	if st.MessageSeq > m.lastMessageSeq {
		m.lastMessageSeq = st.MessageSeq
		if st.Message != nil {
			cmd = m.pushToast(*st.Message)
		}
	}
	if m.drag != nil {
		if _, ok := st.Todo(m.drag.id); !ok {
			m.drag = nil
		}
	}
	m.applyFocus()
	m.clampSelections()
	return cmd
}

// applyFocus selects the pending focus target once it reaches its lane.
func (m *Model) applyFocus() {
	if m.focus == nil {
		return
	}
	todo, ok := m.state.Todo(m.focus.id)
	if !ok {
		m.focus = nil
		return
	}
	if todo.Status != m.focus.status {
		return
	}
	m.selectTodo(todo)
	m.focus = nil
}

// selectTodo moves the selection onto todo.
func (m *Model) selectTodo(todo domain.Todo) {
	for laneIdx, status := range m.lanes {
		if status != todo.Status {
			continue
		}
		for cardIdx, candidate := range m.state.TodosByStatus(status) {
			if candidate.ID == todo.ID {
				m.selectedLane = laneIdx
				m.selectedCard = cardIdx
				return
			}
		}
	}
}

// handleBoardKey handles board key presses.
func (m Model) handleBoardKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.feed.close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case m.help.ShowAll:
		if key.Matches(msg, m.keys.cancel) {
			m.help.ShowAll = false
		}
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		m.drag = nil
		return m, nil
	case key.Matches(msg, m.keys.reload):
		return m, m.loadTodos()
	case !m.loaded:
		return m, nil
	case key.Matches(msg, m.keys.laneLeft):
		if m.selectedLane > 0 {
			m.selectedLane--
			m.itemCursor = 0
		}
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.laneRight):
		if m.selectedLane < len(m.lanes)-1 {
			m.selectedLane++
			m.itemCursor = 0
		}
		m.clampSelections()
		return m, nil
	case key.Matches(msg, m.keys.cardUp):
		m.moveCardSelection(-1)
		return m, nil
	case key.Matches(msg, m.keys.cardDown):
		m.moveCardSelection(1)
		return m, nil
	case key.Matches(msg, m.keys.addTodo):
		return m, m.openForm(nil)
	}

	todo, ok := m.selectedTodo()
	if !ok {
		return m, nil
	}
	loading := m.state.Loading
	switch {
	case key.Matches(msg, m.keys.expand):
		m.expanded[todo.ID] = !m.expanded[todo.ID]
		m.itemCursor = 0
		return m, nil
	case key.Matches(msg, m.keys.nextItem):
		if m.expanded[todo.ID] && len(todo.Items) > 0 {
			m.itemCursor = (m.itemCursor + 1) % len(todo.Items)
		}
		return m, nil
	case key.Matches(msg, m.keys.prevItem):
		if m.expanded[todo.ID] && len(todo.Items) > 0 {
			m.itemCursor = (m.itemCursor - 1 + len(todo.Items)) % len(todo.Items)
		}
		return m, nil
	case key.Matches(msg, m.keys.toggleItem):
		if !m.expanded[todo.ID] || len(todo.Items) == 0 || loading.IsUpdating(todo.ID) {
			return m, nil
		}
		next := todo.Clone()
		if !next.ToggleItem(next.Items[clamp(m.itemCursor, 0, len(next.Items)-1)].ID) {
			return m, nil
		}
		return m, m.updateTodo(next)
	case key.Matches(msg, m.keys.editTodo):
		if loading.IsUpdating(todo.ID) {
			return m, m.pushToast(domain.Message{Type: domain.MessageWarning, Text: "Todo is still saving"})
		}
		return m, m.openForm(&todo)
	case key.Matches(msg, m.keys.deleteTodo):
		if loading.IsDeleting(todo.ID) {
			return m, nil
		}
		return m, m.deleteTodo(todo.ID)
	case key.Matches(msg, m.keys.moveTodoLeft):
		return m, m.shiftTodo(todo, -1)
	case key.Matches(msg, m.keys.moveTodoRight):
		return m, m.shiftTodo(todo, 1)
	case key.Matches(msg, m.keys.copyTodo):
		return m, m.copyTodo(todo)
	}
	return m, nil
}

// shiftTodo moves todo delta lanes over, following it with the selection.
func (m *Model) shiftTodo(todo domain.Todo, delta int) tea.Cmd {
	if m.state.Loading.IsDeleting(todo.ID) {
		return nil
	}
	current := -1
	for idx, status := range m.lanes {
		if status == todo.Status {
			current = idx
		}
	}
	target := current + delta
	if current < 0 || target < 0 || target >= len(m.lanes) {
		return nil
	}
	m.focus = &focusTarget{id: todo.ID, status: m.lanes[target]}
	return m.moveTodo(todo.ID, m.lanes[target])
}

// selectedTodo returns the todo under the selection.
func (m Model) selectedTodo() (domain.Todo, bool) {
	todos := m.selectedLaneTodos()
	if m.selectedCard < 0 || m.selectedCard >= len(todos) {
		return domain.Todo{}, false
	}
	return todos[m.selectedCard], true
}

func (m Model) selectedLaneTodos() []domain.Todo {
	if m.selectedLane < 0 || m.selectedLane >= len(m.lanes) {
		return nil
	}
	return m.state.TodosByStatus(m.lanes[m.selectedLane])
}

func (m *Model) moveCardSelection(delta int) {
	todos := m.selectedLaneTodos()
	if len(todos) == 0 {
		return
	}
	next := clamp(m.selectedCard+delta, 0, len(todos)-1)
	if next != m.selectedCard {
		m.selectedCard = next
		m.itemCursor = 0
	}
}

// clampSelections clamps selections.
func (m *Model) clampSelections() {
	m.selectedLane = clamp(m.selectedLane, 0, max(0, len(m.lanes)-1))
	todos := m.selectedLaneTodos()
	m.selectedCard = clamp(m.selectedCard, 0, max(0, len(todos)-1))
	if todo, ok := m.selectedTodo(); ok {
		m.itemCursor = clamp(m.itemCursor, 0, max(0, len(todo.Items)-1))
	} else {
		m.itemCursor = 0
	}
}

func (m Model) loadTodos() tea.Cmd {
	board := m.board
	return func() tea.Msg {
		return opDoneMsg{op: app.OpLoad, err: board.LoadTodos(context.Background())}
	}
}

func (m Model) addTodo(todo domain.Todo) tea.Cmd {
	board := m.board
	return func() tea.Msg {
		created, err := board.AddTodo(context.Background(), todo)
		return opDoneMsg{op: app.OpAdd, id: created.ID, err: err}
	}
}

func (m Model) updateTodo(todo domain.Todo) tea.Cmd {
	board := m.board
	return func() tea.Msg {
		return opDoneMsg{op: app.OpUpdate, id: todo.ID, err: board.UpdateTodo(context.Background(), todo)}
	}
}

func (m Model) moveTodo(id int, status domain.Status) tea.Cmd {
	board := m.board
	return func() tea.Msg {
		return opDoneMsg{op: app.OpMove, id: id, err: board.MoveTodo(context.Background(), id, status)}
	}
}

func (m Model) deleteTodo(id int) tea.Cmd {
	board := m.board
	return func() tea.Msg {
		return opDoneMsg{op: app.OpDelete, id: id, err: board.DeleteTodo(context.Background(), id)}
	}
}

func (m Model) copyTodo(todo domain.Todo) tea.Cmd {
	write := m.copyText
	text := todoMarkdown(todo)
	return func() tea.Msg {
		return clipboardMsg{err: write(text)}
	}
}

// View renders the board.
func (m Model) View() tea.View {
	return newView(m.safeRender())
}

// safeRender renders the screen, replacing it with a static notice if rendering panics.
func (m Model) safeRender() (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = renderFailedNotice
		}
	}()
	return m.render()
}

func newView(content string) tea.View {
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// render builds the full screen.
func (m Model) render() string {
	if !m.loaded {
		if m.width > 0 && m.height > 0 {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, "Loading...")
		}
		return "Loading..."
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("lanes") + statusStyle.Render(fmt.Sprintf("  %d todos", len(m.state.Todos)))
	if m.state.Loading.IsLoading {
		header += statusStyle.Render("  refreshing…")
	}
	if m.state.Loading.IsAdding {
		header += statusStyle.Render("  adding…")
	}
	spacer := ""
	if len(m.state.Todos) == 0 {
		spacer = lipgloss.NewStyle().Foreground(muted).Render(emptyBoardText)
	}

	body, _ := m.renderLanes(accent, muted, dim)
	sections := []string{header, spacer, body, statusStyle.Render(m.dragStatus())}
	sections = append(sections, fitLines(m.renderToasts(max(1, m.width)), m.maxToasts))
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	full := content + "\n" + helpLine

	overlay := ""
	switch {
	case m.mode != modeNone:
		overlay = m.renderForm(accent, muted, m.width-8)
	case m.help.ShowAll:
		overlay = m.renderHelpOverlay(accent, dim)
	}
	if overlay != "" {
		height := lipgloss.Height(full)
		if m.height > 0 {
			height = m.height
		}
		full = overlayOnContent(full, overlay, max(1, m.width), max(1, height))
	}
	return full
}

// dragStatus describes the held card and where it would land.
func (m Model) dragStatus() string {
	if m.drag == nil {
		return ""
	}
	ghost := fmt.Sprintf("dragging %q", truncate(m.drag.title, 32))
	if target, ok := m.dragTarget(); ok {
		return ghost + " → " + string(target)
	}
	return ghost + " → " + string(m.drag.origin) + " (no move)"
}

// renderHelpOverlay renders the expanded key help.
func (m Model) renderHelpOverlay(accent, dim color.Color) string {
	helpBubble := m.help
	helpBubble.ShowAll = true
	helpBubble.SetWidth(max(20, m.width-12))
	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Keys")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		Render(title + "\n\n" + helpBubble.View(m.keys) + "\n\nesc close")
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines pads or cuts content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay above base.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	overlayLayer := lipgloss.NewLayer(centered).X(0).Y(0).Z(10)
	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate shortens s to max runes with a trailing ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
