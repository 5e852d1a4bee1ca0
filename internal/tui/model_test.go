package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/hylla/lanes/internal/app"
	"github.com/hylla/lanes/internal/domain"
)

// fakeAPI is an in-memory todo service with error injection.
type fakeAPI struct {
	mu        sync.Mutex
	todos     []app.RemoteTodo
	nextID    int
	createErr error
	updateErr error
	deleteErr error
	created   []app.CreateTodoInput
	patches   map[int][]app.TodoPatch
}

func newFakeAPI(todos ...app.RemoteTodo) *fakeAPI {
	return &fakeAPI{todos: todos, nextID: 100, patches: map[int][]app.TodoPatch{}}
}

func (f *fakeAPI) ListTodos(context.Context) ([]app.RemoteTodo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]app.RemoteTodo(nil), f.todos...), nil
}

func (f *fakeAPI) CreateTodo(_ context.Context, in app.CreateTodoInput) (app.RemoteTodo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return app.RemoteTodo{}, f.createErr
	}
	f.nextID++
	f.created = append(f.created, in)
	rec := app.RemoteTodo{ID: f.nextID, Todo: in.Todo, Completed: in.Completed, UserID: in.UserID}
	f.todos = append(f.todos, rec)
	return rec, nil
}

func (f *fakeAPI) UpdateTodo(_ context.Context, id int, patch app.TodoPatch) (app.RemoteTodo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return app.RemoteTodo{}, f.updateErr
	}
	f.patches[id] = append(f.patches[id], patch)
	for idx := range f.todos {
		if f.todos[idx].ID != id {
			continue
		}
		if patch.Todo != nil {
			f.todos[idx].Todo = *patch.Todo
		}
		if patch.Completed != nil {
			f.todos[idx].Completed = *patch.Completed
		}
		return f.todos[idx], nil
	}
	return app.RemoteTodo{}, &app.APIError{StatusCode: 404, Message: fmt.Sprintf("Todo with id '%d' not found", id)}
}

func (f *fakeAPI) DeleteTodo(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for idx := range f.todos {
		if f.todos[idx].ID == id {
			f.todos = append(f.todos[:idx], f.todos[idx+1:]...)
			return nil
		}
	}
	return &app.APIError{StatusCode: 404}
}

func (f *fakeAPI) lastPatch(t *testing.T, id int) app.TodoPatch {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	patches := f.patches[id]
	if len(patches) == 0 {
		t.Fatalf("expected a patch for todo %d", id)
	}
	return patches[len(patches)-1]
}

func sampleRemote() []app.RemoteTodo {
	return []app.RemoteTodo{
		{ID: 1, Todo: "Buy milk", Completed: false, UserID: 26},
		{ID: 2, Todo: "Ship release", Completed: true, UserID: 26},
		{ID: 3, Todo: "Write docs", Completed: false, UserID: 26},
	}
}

func newStoreModel(t *testing.T, api *fakeAPI, opts ...Option) Model {
	t.Helper()
	store := app.NewStore(api, app.WithMessageTTL(0))
	m := NewModel(store, opts...)
	t.Cleanup(m.feed.close)
	return applyMsg(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func loadedModel(t *testing.T, api *fakeAPI, opts ...Option) Model {
	t.Helper()
	m := newStoreModel(t, api, opts...)
	m = applyCmd(t, m, m.loadTodos())
	if !m.loaded {
		t.Fatal("expected model to be loaded")
	}
	return m
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return out
}

// applyCmd runs cmd once and feeds its message back. Only use it with store commands.
func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	return applyMsg(t, m, cmd())
}

func press(t *testing.T, m Model, msg tea.KeyPressMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return out, cmd
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m, _ = press(t, m, keyRune(r))
	}
	return m
}

func todoStatus(t *testing.T, m Model, id int) domain.Status {
	t.Helper()
	todo, ok := m.board.State().Todo(id)
	if !ok {
		t.Fatalf("expected todo %d in store", id)
	}
	return todo.Status
}

func TestModelShowsLoadingUntilFirstLoad(t *testing.T) {
	m := newStoreModel(t, newFakeAPI(sampleRemote()...))
	if out := m.safeRender(); !strings.Contains(out, "Loading...") {
		t.Fatalf("expected loading screen, got %q", out)
	}

	m = applyCmd(t, m, m.loadTodos())
	out := m.safeRender()
	for _, want := range []string{"Pending (2)", "In Progress (0)", "Completed (1)", "Buy milk", "Ship release"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in board view", want)
		}
	}
	if strings.Contains(out, "Loading...") {
		t.Fatal("expected loading screen to be gone")
	}
	if len(m.toasts) != 1 || m.toasts[0].message.Text != "Todos loaded successfully" {
		t.Fatalf("expected load toast, got %#v", m.toasts)
	}
}

func TestModelEmptyBoard(t *testing.T) {
	m := loadedModel(t, newFakeAPI())
	if out := m.safeRender(); !strings.Contains(out, emptyBoardText) {
		t.Fatalf("expected empty board text, got %q", out)
	}
}

func TestModelKeyboardMoveFollowsCard(t *testing.T) {
	api := newFakeAPI(sampleRemote()...)
	m := loadedModel(t, api)

	m, cmd := press(t, m, keyRune(']'))
	if cmd == nil {
		t.Fatal("expected move command")
	}
	m = applyCmd(t, m, cmd)
	if got := todoStatus(t, m, 1); got != domain.StatusInProgress {
		t.Fatalf("expected In Progress after ], got %q", got)
	}
	if patch := api.lastPatch(t, 1); patch.Completed == nil || *patch.Completed || patch.Todo != nil {
		t.Fatalf("expected completed=false only patch, got %#v", patch)
	}
	if m.selectedLane != 1 || m.selectedCard != 0 {
		t.Fatalf("expected selection to follow card, got lane=%d card=%d", m.selectedLane, m.selectedCard)
	}

	m, cmd = press(t, m, keyRune(']'))
	m = applyCmd(t, m, cmd)
	if got := todoStatus(t, m, 1); got != domain.StatusCompleted {
		t.Fatalf("expected Completed after second ], got %q", got)
	}
	if patch := api.lastPatch(t, 1); patch.Completed == nil || !*patch.Completed {
		t.Fatalf("expected completed=true patch, got %#v", patch)
	}

	if _, cmd = press(t, m, keyRune(']')); cmd != nil {
		t.Fatal("expected no move past the last lane")
	}
}

func TestModelDragAcrossLanesMovesCard(t *testing.T) {
	api := newFakeAPI(sampleRemote()...)
	m := loadedModel(t, api)

	frames := m.laneFrames()
	if len(frames) != 3 || len(frames[0].cards) != 2 {
		t.Fatalf("unexpected frames %#v", frames)
	}
	card := frames[0].cards[0]
	startX, startY := frames[0].x+3, card.y
	targetX := startX + frames[1].x - frames[0].x

	m = applyMsg(t, m, tea.MouseClickMsg{X: startX, Y: startY, Button: tea.MouseLeft})
	if m.drag == nil || m.drag.id != 1 {
		t.Fatalf("expected drag on todo 1, got %#v", m.drag)
	}
	m = applyMsg(t, m, tea.MouseMotionMsg{X: targetX, Y: startY, Button: tea.MouseLeft})
	if out := m.safeRender(); !strings.Contains(out, "→ In Progress") {
		t.Fatal("expected drag status to name the target lane")
	}

	updated, cmd := m.Update(tea.MouseReleaseMsg{X: targetX, Y: startY, Button: tea.MouseLeft})
	m = updated.(Model)
	if m.drag != nil {
		t.Fatal("expected drag to end on release")
	}
	if cmd == nil {
		t.Fatal("expected move command on drop")
	}
	m = applyCmd(t, m, cmd)
	if got := todoStatus(t, m, 1); got != domain.StatusInProgress {
		t.Fatalf("expected In Progress after drop, got %q", got)
	}
}

func TestModelShortDragReturnsHome(t *testing.T) {
	m := loadedModel(t, newFakeAPI(sampleRemote()...))
	frames := m.laneFrames()
	card := frames[0].cards[0]
	startX := frames[0].x + 3
	// a quarter lane to the right leaves under 30% of the card over the next lane
	endX := startX + frames[0].width/4

	m = applyMsg(t, m, tea.MouseClickMsg{X: startX, Y: card.y, Button: tea.MouseLeft})
	m = applyMsg(t, m, tea.MouseMotionMsg{X: endX, Y: card.y})
	updated, cmd := m.Update(tea.MouseReleaseMsg{X: endX, Y: card.y, Button: tea.MouseLeft})
	m = updated.(Model)
	if cmd != nil {
		t.Fatal("expected no move below the overlap threshold")
	}
	if got := todoStatus(t, m, 1); got != domain.StatusPending {
		t.Fatalf("expected Pending, got %q", got)
	}
}

func TestModelClickSelectsCard(t *testing.T) {
	m := loadedModel(t, newFakeAPI(sampleRemote()...))
	frames := m.laneFrames()
	second := frames[0].cards[1]
	m = applyMsg(t, m, tea.MouseClickMsg{X: frames[0].x + 2, Y: second.y, Button: tea.MouseLeft})
	m = applyMsg(t, m, tea.MouseReleaseMsg{X: frames[0].x + 2, Y: second.y, Button: tea.MouseLeft})
	if m.selectedLane != 0 || m.selectedCard != 1 {
		t.Fatalf("expected second card selected, got lane=%d card=%d", m.selectedLane, m.selectedCard)
	}

	m = applyMsg(t, m, tea.MouseClickMsg{X: frames[2].x + 2, Y: frames[2].y + 1, Button: tea.MouseLeft})
	if m.selectedLane != 2 {
		t.Fatalf("expected third lane selected, got %d", m.selectedLane)
	}

	m = applyMsg(t, m, tea.MouseWheelMsg{Button: tea.MouseWheelDown})
	if m.selectedCard != 0 {
		t.Fatalf("expected wheel to clamp in single-card lane, got %d", m.selectedCard)
	}
}

func TestModelFailedMoveRollsBack(t *testing.T) {
	api := newFakeAPI(sampleRemote()...)
	m := loadedModel(t, api)
	api.updateErr = &app.APIError{StatusCode: 500, Message: "boom"}

	m, cmd := press(t, m, keyRune(']'))
	m = applyCmd(t, m, cmd)
	if got := todoStatus(t, m, 1); got != domain.StatusPending {
		t.Fatalf("expected rollback to Pending, got %q", got)
	}
	if m.state.Loading.IsMoving(1) {
		t.Fatal("expected moving marker cleared")
	}
	last := m.toasts[len(m.toasts)-1]
	if last.message.Type != domain.MessageError || last.message.Text != "boom" {
		t.Fatalf("expected error toast, got %#v", last.message)
	}
	if m.focus != nil {
		t.Fatal("expected focus target dropped after failure")
	}
}

func TestModelPendingMarkersGateActions(t *testing.T) {
	m := loadedModel(t, newFakeAPI(sampleRemote()...))
	m.state.Loading.Pending = map[int]app.PendingOp{1: app.PendingDeleting}
	if _, cmd := press(t, m, keyRune('d')); cmd != nil {
		t.Fatal("expected delete disabled while deleting")
	}
	if out := m.safeRender(); !strings.Contains(out, "deleting…") {
		t.Fatal("expected deleting marker on card")
	}

	m.state.Loading.Pending = map[int]app.PendingOp{1: app.PendingUpdating}
	m, _ = press(t, m, keyRune('e'))
	if m.mode != modeNone {
		t.Fatal("expected edit disabled while updating")
	}
	if last := m.toasts[len(m.toasts)-1]; last.message.Type != domain.MessageWarning {
		t.Fatalf("expected warning toast, got %#v", last.message)
	}
}

func TestModelDeleteRemovesCard(t *testing.T) {
	m := loadedModel(t, newFakeAPI(sampleRemote()...))
	m, cmd := press(t, m, keyRune('d'))
	m = applyCmd(t, m, cmd)
	if _, ok := m.state.Todo(1); ok {
		t.Fatal("expected todo 1 removed")
	}
	if out := m.safeRender(); !strings.Contains(out, "Pending (1)") {
		t.Fatal("expected lane count to drop")
	}
}

func TestModelFormAddsTodo(t *testing.T) {
	api := newFakeAPI()
	m := loadedModel(t, api)

	m, _ = press(t, m, keyRune('n'))
	if m.mode != modeAddTodo {
		t.Fatalf("expected add mode, got %v", m.mode)
	}
	m = typeText(t, m, "ab")
	m, cmd := press(t, m, tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
	if cmd != nil || m.form.err == "" {
		t.Fatal("expected short title to be rejected")
	}
	if out := m.safeRender(); !strings.Contains(out, "New todo") {
		t.Fatal("expected form overlay")
	}

	m = typeText(t, m, "c")
	m, _ = press(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "**bold** plan")
	m, _ = press(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "one")
	m, _ = press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if len(m.form.checklist) != 2 {
		t.Fatalf("expected enter to add a checklist line, got %d", len(m.form.checklist))
	}
	m = typeText(t, m, "two")
	m, _ = press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	m, cmd = press(t, m, tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
	if m.mode != modeNone || cmd == nil {
		t.Fatal("expected form to submit")
	}
	m = applyCmd(t, m, cmd)

	if len(api.created) != 1 || api.created[0].Todo != "abc" || api.created[0].UserID != app.DefaultUserID {
		t.Fatalf("unexpected create payload %#v", api.created)
	}
	todos := m.state.TodosByStatus(domain.StatusPending)
	if len(todos) != 1 {
		t.Fatalf("expected one pending todo, got %#v", m.state.Todos)
	}
	got := todos[0]
	if got.Title != "abc" || got.Description != "**bold** plan" || len(got.Items) != 2 {
		t.Fatalf("unexpected todo %#v", got)
	}
	for _, item := range got.Items {
		if item.ID == "" || item.Checked {
			t.Fatalf("expected fresh unchecked item with id, got %#v", item)
		}
	}

	m, _ = press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	out := m.safeRender()
	if !strings.Contains(out, "bold") || !strings.Contains(out, "[ ] one") {
		t.Fatalf("expected expanded card with description and checklist, got %q", out)
	}
}

func TestModelFormCancel(t *testing.T) {
	m := loadedModel(t, newFakeAPI())
	m, _ = press(t, m, keyRune('n'))
	m = typeText(t, m, "draft")
	m, cmd := press(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone || cmd != nil {
		t.Fatal("expected esc to close the form without a command")
	}
}

func TestModelEditKeepsIDAndStatus(t *testing.T) {
	api := newFakeAPI(sampleRemote()...)
	m := loadedModel(t, api)
	m, _ = press(t, m, keyRune('l'))
	m, _ = press(t, m, keyRune('l'))
	m, _ = press(t, m, keyRune('e'))
	if m.mode != modeEditTodo || m.form.editingID != 2 {
		t.Fatalf("expected edit form for todo 2, got mode=%v id=%d", m.mode, m.form.editingID)
	}
	before, _ := m.state.Todo(2)

	m.form.title.SetValue("Ship release v2")
	m, cmd := press(t, m, tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
	m = applyCmd(t, m, cmd)

	after, ok := m.state.Todo(2)
	if !ok || after.Title != "Ship release v2" || after.Status != domain.StatusCompleted {
		t.Fatalf("unexpected edited todo %#v", after)
	}
	if len(after.Items) != 1 || after.Items[0].ID != before.Items[0].ID || !after.Items[0].Checked {
		t.Fatalf("expected unchanged checklist item to keep id and flag, got %#v", after.Items)
	}
	patch := api.lastPatch(t, 2)
	if patch.Todo == nil || *patch.Todo != "Ship release v2" || patch.Completed == nil || !*patch.Completed {
		t.Fatalf("unexpected patch %#v", patch)
	}
}

func TestModelToggleChecklistItem(t *testing.T) {
	api := newFakeAPI(sampleRemote()...)
	m := loadedModel(t, api)

	if _, cmd := press(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "}); cmd != nil {
		t.Fatal("expected space ignored on a collapsed card")
	}
	m, _ = press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	m, cmd := press(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	if cmd == nil {
		t.Fatal("expected toggle to update the todo")
	}
	m = applyCmd(t, m, cmd)
	todo, _ := m.state.Todo(1)
	if !todo.Items[0].Checked || todo.Progress() != 100 {
		t.Fatalf("expected item checked, got %#v", todo.Items)
	}
	if todo.Status != domain.StatusPending {
		t.Fatalf("expected status unchanged, got %q", todo.Status)
	}
	if out := m.safeRender(); !strings.Contains(out, "100%") {
		t.Fatal("expected progress bar at 100%")
	}
}

func TestModelCopyTodo(t *testing.T) {
	var copied string
	m := loadedModel(t, newFakeAPI(sampleRemote()...), WithClipboard(func(text string) error {
		copied = text
		return nil
	}))
	m, cmd := press(t, m, keyRune('y'))
	m = applyCmd(t, m, cmd)
	if !strings.Contains(copied, "## Buy milk") || !strings.Contains(copied, "- [ ] Buy milk") {
		t.Fatalf("unexpected clipboard text %q", copied)
	}
	if last := m.toasts[len(m.toasts)-1]; last.message.Text != "Copied todo to clipboard" {
		t.Fatalf("unexpected toast %#v", last.message)
	}

	m.copyText = func(string) error { return errors.New("no clipboard") }
	m, cmd = press(t, m, keyRune('y'))
	m = applyCmd(t, m, cmd)
	if last := m.toasts[len(m.toasts)-1]; last.message.Type != domain.MessageError {
		t.Fatalf("expected error toast, got %#v", last.message)
	}
}

func TestModelToastStack(t *testing.T) {
	m := loadedModel(t, newFakeAPI(), WithToasts(DefaultToastDisplay, 2))
	m.toasts = nil
	for _, text := range []string{"first", "second", "third"} {
		if cmd := m.pushToast(domain.Message{Type: domain.MessageSuccess, Text: text}); cmd == nil {
			t.Fatal("expected expiry command")
		}
	}
	if len(m.toasts) != 2 || m.toasts[0].message.Text != "second" || m.toasts[1].message.Text != "third" {
		t.Fatalf("expected oldest toast dropped, got %#v", m.toasts)
	}
	m = applyMsg(t, m, toastExpiredMsg{id: m.toasts[0].id})
	if len(m.toasts) != 1 || m.toasts[0].message.Text != "third" {
		t.Fatalf("expected expired toast removed, got %#v", m.toasts)
	}
}

func TestModelIgnoresStaleState(t *testing.T) {
	m := loadedModel(t, newFakeAPI(sampleRemote()...))
	stale := m.state
	stale.Version--
	stale.Todos = nil
	m.applyState(stale)
	if len(m.state.Todos) != 3 {
		t.Fatal("expected stale state to be ignored")
	}
}

func TestModelRenderGuard(t *testing.T) {
	m := loadedModel(t, newFakeAPI(sampleRemote()...))
	m.state.Todos[0].Description = "extra details"
	m.expanded[1] = true
	m.markdown = nil
	if out := m.safeRender(); out != renderFailedNotice {
		t.Fatalf("expected render guard notice, got %q", out)
	}
	if m.View().Content == nil {
		t.Fatal("expected view content")
	}
}

func TestModelQuitKey(t *testing.T) {
	m := loadedModel(t, newFakeAPI())
	_, cmd := press(t, m, keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit cmd")
	}
	select {
	case <-m.feed.changed:
	default:
	}
	if msg := m.feed.wait(); msg != nil {
		t.Fatalf("expected closed feed to return nil, got %T", msg)
	}
}

func TestModelLanesOption(t *testing.T) {
	m := loadedModel(t, newFakeAPI(sampleRemote()...), WithLanes([]domain.Status{domain.StatusCompleted, "bogus", domain.StatusPending}))
	if len(m.lanes) != 2 || m.lanes[0] != domain.StatusCompleted {
		t.Fatalf("unexpected lanes %#v", m.lanes)
	}
	out := m.safeRender()
	if strings.Contains(out, "In Progress (") {
		t.Fatal("expected In Progress lane hidden")
	}
}

func TestTodoFormChecklistItems(t *testing.T) {
	todo := domain.Todo{
		ID:     7,
		Title:  "Plan",
		Status: domain.StatusInProgress,
		Items: []domain.TodoItem{
			{ID: "a", Content: "keep", Checked: true},
			{ID: "b", Content: "drop"},
		},
	}
	f := newTodoForm(&todo)
	f.checklist[1].SetValue("  ")
	f.checklist = append(f.checklist, newChecklistInput("new"))
	got, err := f.build()
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	if got.ID != 7 || got.Status != domain.StatusInProgress {
		t.Fatalf("expected id and status kept, got %#v", got)
	}
	if len(got.Items) != 2 || got.Items[0] != todo.Items[0] || got.Items[1].ID != "" || got.Items[1].Content != "new" {
		t.Fatalf("unexpected items %#v", got.Items)
	}

	f.title.SetValue(" é ")
	if _, err := f.build(); err == nil {
		t.Fatal("expected short title error")
	}
}

func TestProgressBar(t *testing.T) {
	cases := []struct {
		pct   int
		width int
		want  string
	}{
		{pct: 0, width: 4, want: "░░░░ 0%"},
		{pct: 50, width: 4, want: "██░░ 50%"},
		{pct: 100, width: 4, want: "████ 100%"},
		{pct: 140, width: 2, want: "██ 100%"},
	}
	for _, tc := range cases {
		if got := progressBar(tc.pct, tc.width); got != tc.want {
			t.Fatalf("progressBar(%d, %d) = %q, want %q", tc.pct, tc.width, got, tc.want)
		}
	}
}

func TestTodoMarkdown(t *testing.T) {
	got := todoMarkdown(domain.Todo{
		Title:       "Plan trip",
		Description: "Pack light",
		Status:      domain.StatusInProgress,
		Items:       []domain.TodoItem{{Content: "tickets", Checked: true}, {Content: "hotel"}},
	})
	want := "## Plan trip\n\nStatus: In Progress\nProgress: 50%\n\nPack light\n\n- [x] tickets\n- [ ] hotel\n"
	if got != want {
		t.Fatalf("todoMarkdown() = %q, want %q", got, want)
	}
}
