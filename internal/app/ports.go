package app

import "context"

// RemoteTodo is the todo record exchanged with the remote service.
type RemoteTodo struct {
	ID        int    `json:"id"`
	Todo      string `json:"todo"`
	Completed bool   `json:"completed"`
	UserID    int    `json:"userId"`
	IsDeleted bool   `json:"isDeleted,omitempty"`
}

// CreateTodoInput is the body sent when creating a remote todo.
type CreateTodoInput struct {
	Todo      string `json:"todo"`
	Completed bool   `json:"completed"`
	UserID    int    `json:"userId"`
}

// TodoPatch carries the remote fields to change; nil fields are omitted.
type TodoPatch struct {
	Todo      *string `json:"todo,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// TodoAPI is the remote todo service the store synchronizes against.
type TodoAPI interface {
	ListTodos(context.Context) ([]RemoteTodo, error)
	CreateTodo(context.Context, CreateTodoInput) (RemoteTodo, error)
	UpdateTodo(context.Context, int, TodoPatch) (RemoteTodo, error)
	DeleteTodo(context.Context, int) error
}
