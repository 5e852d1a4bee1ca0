package app

import (
	"errors"
	"fmt"
)

// ErrTitleRequired and related errors describe validation failures raised before any remote call.
var (
	ErrTitleRequired = errors.New("title is required")
	ErrTodoNotFound  = errors.New("todo not found")
)

// Op names a store operation.
type Op string

// OpLoad and related constants identify store operations.
const (
	OpLoad   Op = "load"
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpMove   Op = "move"
	OpDelete Op = "delete"
)

const unexpectedErrorText = "An unexpected error occurred"

var fallbackMessages = map[Op]string{
	OpLoad:   "Failed to fetch todos",
	OpAdd:    "Failed to add todo",
	OpUpdate: "Failed to update todo",
	OpMove:   "Failed to update todo",
	OpDelete: "Failed to delete todo",
}

// APIError is returned by TodoAPI implementations for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

// Error returns the server message, or the status when none was sent.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// TodoError is the single displayable failure produced by store operations.
type TodoError struct {
	Op      Op
	ID      int
	Status  int
	Message string
	Err     error
}

// Error returns the displayable message.
func (e *TodoError) Error() string {
	return e.Message
}

// Unwrap returns the underlying transport or API error.
func (e *TodoError) Unwrap() error {
	return e.Err
}

// normalizeError prefers the server message and falls back to the per-op text.
func normalizeError(op Op, id int, err error) *TodoError {
	if err == nil {
		return nil
	}
	var todoErr *TodoError
	if errors.As(err, &todoErr) {
		return todoErr
	}
	out := &TodoError{Op: op, ID: id, Err: err, Message: fallbackMessage(op)}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		out.Status = apiErr.StatusCode
		if apiErr.Message != "" {
			out.Message = apiErr.Message
		}
	}
	return out
}

func fallbackMessage(op Op) string {
	if text, ok := fallbackMessages[op]; ok {
		return text
	}
	return unexpectedErrorText
}
