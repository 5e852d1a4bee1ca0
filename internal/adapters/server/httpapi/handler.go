// Package httpapi serves the REST todo endpoints the board client consumes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	charmLog "github.com/charmbracelet/log"

	"github.com/hylla/lanes/internal/app"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// errInvalidRequest marks malformed request bodies.
var errInvalidRequest = errors.New("invalid request")

// TodoRepository stores the records served by this handler.
type TodoRepository interface {
	ListTodos(context.Context) ([]app.RemoteTodo, error)
	GetTodo(context.Context, int) (app.RemoteTodo, error)
	CreateTodo(context.Context, app.CreateTodoInput) (app.RemoteTodo, error)
	UpdateTodo(context.Context, int, app.TodoPatch) (app.RemoteTodo, error)
	DeleteTodo(context.Context, int) (app.RemoteTodo, error)
}

// Handler serves the todo subrouter mounted under the api endpoint.
type Handler struct {
	repo   TodoRepository
	logger *charmLog.Logger
}

// ErrorResponse is the error body shape clients read `message` from.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ListResponse wraps the todo list.
type ListResponse struct {
	Todos []app.RemoteTodo `json:"todos"`
	Total int              `json:"total"`
	Skip  int              `json:"skip"`
	Limit int              `json:"limit"`
}

// NewHandler constructs one HTTP adapter over repo.
func NewHandler(repo TodoRepository, logger *charmLog.Logger) *Handler {
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	return &Handler{repo: repo, logger: logger}
}

// ServeHTTP routes `/`, `/add`, and `/{id}`.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	switch path {
	case "":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleList(w, r)
	case "add":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleCreate(w, r)
	default:
		id, err := strconv.Atoi(path)
		if err != nil || id <= 0 {
			writeJSONError(w, http.StatusBadRequest, ErrorResponse{
				Code:    "invalid_id",
				Message: fmt.Sprintf("Invalid todo id '%s'", path),
			})
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
		case http.MethodPut, http.MethodPatch:
			h.handleUpdate(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
		}
	}
}

// handleList serves GET `/` with optional `skip` and `limit` paging; limit 0 returns everything.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip")
	if err != nil {
		writeErrorFrom(w, 0, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeErrorFrom(w, 0, err)
		return
	}
	todos, err := h.repo.ListTodos(r.Context())
	if err != nil {
		h.logger.Error("list todos failed", "err", err)
		writeErrorFrom(w, 0, err)
		return
	}
	total := len(todos)
	page := todos[min(skip, total):]
	if limit == 0 {
		limit = total
	}
	if limit < len(page) {
		page = page[:limit]
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Todos: page,
		Total: total,
		Skip:  skip,
		Limit: limit,
	})
}

// handleGet serves GET `/{id}`.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id int) {
	todo, err := h.repo.GetTodo(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// handleCreate serves POST `/add`.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req app.CreateTodoInput
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, 0, err)
		return
	}
	req.Todo = strings.TrimSpace(req.Todo)
	if req.Todo == "" {
		writeJSONError(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_request", Message: "Todo text is required"})
		return
	}
	if req.UserID <= 0 {
		writeJSONError(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_request", Message: "User id is required"})
		return
	}
	todo, err := h.repo.CreateTodo(r.Context(), req)
	if err != nil {
		h.logger.Error("create todo failed", "err", err)
		writeErrorFrom(w, 0, err)
		return
	}
	h.logger.Info("todo created", "id", todo.ID)
	writeJSON(w, http.StatusCreated, todo)
}

// handleUpdate serves PUT/PATCH `/{id}`; absent fields are left unchanged.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id int) {
	var patch app.TodoPatch
	if err := decodeJSONBody(r.Context(), w, r, &patch); err != nil {
		writeErrorFrom(w, id, err)
		return
	}
	if patch.Todo != nil {
		trimmed := strings.TrimSpace(*patch.Todo)
		if trimmed == "" {
			writeJSONError(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_request", Message: "Todo text is required"})
			return
		}
		patch.Todo = &trimmed
	}
	todo, err := h.repo.UpdateTodo(r.Context(), id, patch)
	if err != nil {
		writeErrorFrom(w, id, err)
		return
	}
	h.logger.Info("todo updated", "id", id)
	writeJSON(w, http.StatusOK, todo)
}

// handleDelete serves DELETE `/{id}` and echoes the removed record.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id int) {
	todo, err := h.repo.DeleteTodo(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, id, err)
		return
	}
	h.logger.Info("todo deleted", "id", id)
	writeJSON(w, http.StatusOK, todo)
}

// queryInt parses one optional non-negative integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer: %w", key, errInvalidRequest)
	}
	return v, nil
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}

// writeErrorFrom maps repository and decode errors into `{message}` responses.
func writeErrorFrom(w http.ResponseWriter, id int, err error) {
	switch {
	case errors.Is(err, app.ErrTodoNotFound):
		writeJSONError(w, http.StatusNotFound, ErrorResponse{
			Code:    "not_found",
			Message: fmt.Sprintf("Todo with id '%d' not found", id),
		})
	case errors.Is(err, errInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, ErrorResponse{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, context.Canceled):
		writeJSONError(w, http.StatusRequestTimeout, ErrorResponse{
			Code:    "canceled",
			Message: "request canceled",
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "internal_error",
			Message: "internal server error",
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, ErrorResponse{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

func writeJSONError(w http.ResponseWriter, statusCode int, body ErrorResponse) {
	writeJSON(w, statusCode, body)
}

// writeJSON writes one JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"message":%q}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(errInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", errInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
