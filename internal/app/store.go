package app

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/hylla/lanes/internal/domain"
)

// DefaultUserID is the remote owner id sent when creating todos.
const DefaultUserID = 26

// DefaultMessageTTL is how long a raised message stays visible.
const DefaultMessageTTL = 3 * time.Second

// IDGenerator returns unique identifiers for checklist items.
type IDGenerator func() string

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithItemIDGenerator sets the checklist item id generator.
func WithItemIDGenerator(gen IDGenerator) StoreOption {
	return func(s *Store) {
		if gen != nil {
			s.idGen = gen
		}
	}
}

// WithMessageTTL sets the auto-clear delay. Zero or negative disables auto-clear.
func WithMessageTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.messageTTL = ttl
	}
}

// WithUserID sets the remote owner id used on create.
func WithUserID(userID int) StoreOption {
	return func(s *Store) {
		if userID > 0 {
			s.userID = userID
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *charmLog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store holds the board state and keeps it in sync with the remote service.
// Local changes are applied optimistically and rolled back when the remote call fails.
type Store struct {
	api        TodoAPI
	idGen      IDGenerator
	userID     int
	messageTTL time.Duration
	logger     *charmLog.Logger

	mu           sync.Mutex
	todos        []domain.Todo
	loading      LoadingState
	adding       int
	message      *domain.Message
	messageSeq   uint64
	messageTimer *time.Timer
	version      uint64
	listeners    map[int]func(State)
	nextListener int
}

// NewStore constructs a new value for this package.
func NewStore(api TodoAPI, opts ...StoreOption) *Store {
	s := &Store{
		api:        api,
		idGen:      uuid.NewString,
		userID:     DefaultUserID,
		messageTTL: DefaultMessageTTL,
		logger:     charmLog.New(io.Discard),
		loading:    LoadingState{Pending: map[int]PendingOp{}},
		listeners:  map[int]func(State){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to run after every state change and returns its cancel func.
// Listeners run outside the store lock, possibly from several goroutines.
func (s *Store) Subscribe(fn func(State)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// LoadTodos fetches the full remote list and replaces local state.
// A call made while a load is in flight returns immediately.
func (s *Store) LoadTodos(ctx context.Context) error {
	s.mu.Lock()
	if s.loading.IsLoading {
		s.mu.Unlock()
		s.logger.Debug("load skipped", "reason", "in flight")
		return nil
	}
	s.loading.IsLoading = true
	s.changedLocked()
	s.mu.Unlock()
	s.notify()

	remote, err := s.api.ListTodos(ctx)

	s.mu.Lock()
	s.loading.IsLoading = false
	var todoErr *TodoError
	if err != nil {
		todoErr = normalizeError(OpLoad, 0, err)
		s.raiseLocked(domain.MessageError, todoErr.Message)
	} else {
		s.todos = s.mapRemote(remote)
		s.raiseLocked(domain.MessageSuccess, "Todos loaded successfully")
	}
	s.changedLocked()
	s.mu.Unlock()
	s.notify()

	if todoErr != nil {
		s.logger.Warn("load todos failed", "op", OpLoad, "err", err)
		return todoErr
	}
	s.logger.Info("todos loaded", "count", len(remote))
	return nil
}

// AddTodo creates a todo remotely and appends it with the server id on success.
func (s *Store) AddTodo(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	if strings.TrimSpace(todo.Title) == "" {
		s.warn("Title is required")
		return domain.Todo{}, ErrTitleRequired
	}
	items := s.assignItemIDs(todo.Clone().Items)
	draft, err := domain.NewTodo(domain.TodoInput{
		Title:       strings.TrimSpace(todo.Title),
		Description: todo.Description,
		Status:      domain.StatusPending,
		Items:       items,
	})
	if err != nil {
		return domain.Todo{}, fmt.Errorf("add todo: %w", err)
	}

	var created domain.Todo
	err = applyOptimistic(ctx, s, optimisticOp[RemoteTodo]{
		op: OpAdd,
		remote: func(ctx context.Context) (RemoteTodo, error) {
			return s.api.CreateTodo(ctx, CreateTodoInput{Todo: draft.Title, Completed: false, UserID: s.userID})
		},
		commit: func(todos []domain.Todo, rec RemoteTodo) []domain.Todo {
			created = draft.Clone()
			created.ID = rec.ID
			return append(todos, created)
		},
		success: "Todo added successfully",
	})
	if err != nil {
		return domain.Todo{}, err
	}
	return created, nil
}

// UpdateTodo replaces the todo with a matching id and pushes title and completion remotely.
func (s *Store) UpdateTodo(ctx context.Context, todo domain.Todo) error {
	if strings.TrimSpace(todo.Title) == "" {
		s.warn("Title is required")
		return ErrTitleRequired
	}
	if !todo.Status.Valid() {
		return fmt.Errorf("update todo %d: %w", todo.ID, domain.ErrInvalidStatus)
	}
	if !s.exists(todo.ID) {
		return fmt.Errorf("update todo %d: %w", todo.ID, ErrTodoNotFound)
	}
	next, err := domain.NewTodo(domain.TodoInput{
		ID:          todo.ID,
		Title:       todo.Title,
		Description: todo.Description,
		Status:      todo.Status,
		Items:       s.assignItemIDs(todo.Clone().Items),
	})
	if err != nil {
		return fmt.Errorf("update todo %d: %w", todo.ID, err)
	}
	title := next.Title
	completed := next.Status.Completed()

	return applyOptimistic(ctx, s, optimisticOp[RemoteTodo]{
		op:      OpUpdate,
		id:      next.ID,
		pending: PendingUpdating,
		mutate: func(todos []domain.Todo) []domain.Todo {
			return replaceTodo(todos, next.ID, func(domain.Todo) domain.Todo { return next.Clone() })
		},
		remote: func(ctx context.Context) (RemoteTodo, error) {
			return s.api.UpdateTodo(ctx, next.ID, TodoPatch{Todo: &title, Completed: &completed})
		},
		success: "Todo updated successfully",
	})
}

// MoveTodo changes a todo's lane and pushes only the completed flag remotely.
func (s *Store) MoveTodo(ctx context.Context, id int, status domain.Status) error {
	if !status.Valid() {
		return fmt.Errorf("move todo %d: %w", id, domain.ErrInvalidStatus)
	}
	if !s.exists(id) {
		return fmt.Errorf("move todo %d: %w", id, ErrTodoNotFound)
	}
	completed := status.Completed()

	return applyOptimistic(ctx, s, optimisticOp[RemoteTodo]{
		op:      OpMove,
		id:      id,
		pending: PendingMoving,
		mutate: func(todos []domain.Todo) []domain.Todo {
			return replaceTodo(todos, id, func(t domain.Todo) domain.Todo {
				t.Status = status
				return t
			})
		},
		remote: func(ctx context.Context) (RemoteTodo, error) {
			return s.api.UpdateTodo(ctx, id, TodoPatch{Completed: &completed})
		},
		success: fmt.Sprintf("Todo moved to %s", status),
	})
}

// DeleteTodo marks a todo as deleting and removes it once the remote delete succeeds.
func (s *Store) DeleteTodo(ctx context.Context, id int) error {
	if !s.exists(id) {
		return fmt.Errorf("delete todo %d: %w", id, ErrTodoNotFound)
	}
	return applyOptimistic(ctx, s, optimisticOp[struct{}]{
		op:      OpDelete,
		id:      id,
		pending: PendingDeleting,
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.DeleteTodo(ctx, id)
		},
		commit: func(todos []domain.Todo, _ struct{}) []domain.Todo {
			return slices.DeleteFunc(todos, func(t domain.Todo) bool { return t.ID == id })
		},
		success: "Todo deleted successfully",
	})
}

// ClearMessage clears the current message.
func (s *Store) ClearMessage() {
	s.mu.Lock()
	if s.message == nil {
		s.mu.Unlock()
		return
	}
	s.clearMessageLocked()
	s.changedLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) warn(text string) {
	s.mu.Lock()
	s.raiseLocked(domain.MessageWarning, text)
	s.changedLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) exists(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.ContainsFunc(s.todos, func(t domain.Todo) bool { return t.ID == id })
}

func (s *Store) mapRemote(remote []RemoteTodo) []domain.Todo {
	out := make([]domain.Todo, 0, len(remote))
	for _, rec := range remote {
		out = append(out, domain.Todo{
			ID:          rec.ID,
			Title:       rec.Todo,
			Description: rec.Todo,
			Status:      domain.StatusFromCompleted(rec.Completed),
			Items: []domain.TodoItem{{
				ID:      s.idGen(),
				Content: rec.Todo,
				Checked: rec.Completed,
			}},
		})
	}
	return out
}

func (s *Store) assignItemIDs(items []domain.TodoItem) []domain.TodoItem {
	for idx := range items {
		if strings.TrimSpace(items[idx].ID) == "" {
			items[idx].ID = s.idGen()
		}
	}
	return items
}

// raiseLocked sets the message and arms its expiry timer. Callers hold mu.
func (s *Store) raiseLocked(kind domain.MessageType, text string) {
	msg, err := domain.NewMessage(kind, text)
	if err != nil {
		s.logger.Error("message dropped", "type", kind, "err", err)
		return
	}
	s.messageSeq++
	s.message = &msg
	if s.messageTimer != nil {
		s.messageTimer.Stop()
		s.messageTimer = nil
	}
	if s.messageTTL <= 0 {
		return
	}
	seq := s.messageSeq
	s.messageTimer = time.AfterFunc(s.messageTTL, func() {
		s.expireMessage(seq)
	})
}

// expireMessage clears the message only if no newer one was raised since seq.
func (s *Store) expireMessage(seq uint64) {
	s.mu.Lock()
	if s.messageSeq != seq || s.message == nil {
		s.mu.Unlock()
		return
	}
	s.clearMessageLocked()
	s.changedLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) clearMessageLocked() {
	s.message = nil
	if s.messageTimer != nil {
		s.messageTimer.Stop()
		s.messageTimer = nil
	}
}

func (s *Store) changedLocked() {
	s.version++
}

func (s *Store) snapshotLocked() State {
	var msg *domain.Message
	if s.message != nil {
		cp := *s.message
		msg = &cp
	}
	loading := s.loading.clone()
	loading.IsAdding = s.adding > 0
	return State{
		Todos:      domain.CloneTodos(s.todos),
		Loading:    loading,
		Message:    msg,
		MessageSeq: s.messageSeq,
		Version:    s.version,
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	state := s.snapshotLocked()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(state)
	}
}

func replaceTodo(todos []domain.Todo, id int, fn func(domain.Todo) domain.Todo) []domain.Todo {
	for idx := range todos {
		if todos[idx].ID == id {
			todos[idx] = fn(todos[idx])
		}
	}
	return todos
}
