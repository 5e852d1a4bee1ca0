package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hylla/lanes/internal/app"
	"github.com/hylla/lanes/internal/domain"
)

// stubBoard provides deterministic board responses for MCP tool tests.
type stubBoard struct {
	state     app.State
	remote    []domain.Todo
	loads     int
	loadErr   error
	added     domain.Todo
	addErr    error
	updated   domain.Todo
	moved     map[int]domain.Status
	deleted   []int
	deleteErr error
}

func newStubBoard(todos ...domain.Todo) *stubBoard {
	return &stubBoard{
		state: app.State{Todos: todos, Loading: app.LoadingState{Pending: map[int]app.PendingOp{}}},
		moved: map[int]domain.Status{},
	}
}

func (s *stubBoard) State() app.State { return s.state }

func (s *stubBoard) LoadTodos(context.Context) error {
	s.loads++
	if s.loadErr != nil {
		return s.loadErr
	}
	if s.remote != nil {
		s.state.Todos = append([]domain.Todo(nil), s.remote...)
	}
	return nil
}

func (s *stubBoard) AddTodo(_ context.Context, todo domain.Todo) (domain.Todo, error) {
	s.added = todo
	if s.addErr != nil {
		return domain.Todo{}, s.addErr
	}
	todo.ID = 77
	todo.Status = domain.StatusPending
	return todo, nil
}

func (s *stubBoard) UpdateTodo(_ context.Context, todo domain.Todo) error {
	s.updated = todo
	for idx := range s.state.Todos {
		if s.state.Todos[idx].ID == todo.ID {
			s.state.Todos[idx] = todo
		}
	}
	return nil
}

func (s *stubBoard) MoveTodo(_ context.Context, id int, status domain.Status) error {
	s.moved[id] = status
	for idx := range s.state.Todos {
		if s.state.Todos[idx].ID == id {
			s.state.Todos[idx].Status = status
			return nil
		}
	}
	return app.ErrTodoNotFound
}

func (s *stubBoard) DeleteTodo(_ context.Context, id int) error {
	s.deleted = append(s.deleted, id)
	return s.deleteErr
}

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "lanes-test",
				"version": "1.0.0",
			},
		},
	}
}

// callToolRequest constructs one tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()
	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

func startServer(t *testing.T, board BoardService) *httptest.Server {
	t.Helper()
	handler, err := NewHandler(Config{}, board)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	return server
}

// TestNewHandlerRequiresBoard verifies the board dependency is required.
func TestNewHandlerRequiresBoard(t *testing.T) {
	if _, err := NewHandler(Config{}, nil); err == nil {
		t.Fatal("expected error for nil board")
	}
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{}, newStubBoard())
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersBoardTools verifies tool discovery lists every board tool.
func TestHandlerRegistersBoardTools(t *testing.T) {
	server := startServer(t, newStubBoard())
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})
	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	names := make([]string, 0, len(toolsRaw))
	for _, raw := range toolsRaw {
		tool, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := tool["name"].(string)
		names = append(names, name)
	}
	for _, required := range []string{
		"lanes.list_todos",
		"lanes.reload_todos",
		"lanes.add_todo",
		"lanes.update_todo",
		"lanes.move_todo",
		"lanes.delete_todo",
	} {
		if !slices.Contains(names, required) {
			t.Fatalf("tool list missing %s: %#v", required, names)
		}
	}
}

// TestListTodosFiltersByStatus verifies the lane filter and view shape.
func TestListTodosFiltersByStatus(t *testing.T) {
	board := newStubBoard(
		domain.Todo{ID: 1, Title: "a", Status: domain.StatusPending},
		domain.Todo{ID: 2, Title: "b", Status: domain.StatusCompleted, Items: []domain.TodoItem{{ID: "i", Content: "b", Checked: true}}},
	)
	board.state.Loading.Pending[2] = app.PendingMoving
	server := startServer(t, board)

	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "lanes.list_todos", map[string]any{"status": "Completed"}))
	var view boardView
	if err := json.Unmarshal([]byte(toolResultText(t, resp.Result)), &view); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(view.Todos) != 1 || view.Todos[0].ID != 2 || view.Todos[0].Progress != 100 || view.Todos[0].Pending != "moving" {
		t.Fatalf("unexpected view %#v", view)
	}
}

// TestReloadTodos verifies reload calls through to the store.
func TestReloadTodos(t *testing.T) {
	board := newStubBoard()
	server := startServer(t, board)

	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "lanes.reload_todos", map[string]any{}))
	if board.loads != 1 {
		t.Fatalf("loads = %d, want 1", board.loads)
	}
	if isErr, _ := resp.Result["isError"].(bool); isErr {
		t.Fatalf("unexpected tool error %#v", resp.Result)
	}
}

// TestAddTodoTool verifies checklist parsing and the created payload.
func TestAddTodoTool(t *testing.T) {
	board := newStubBoard()
	server := startServer(t, board)

	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "lanes.add_todo", map[string]any{
		"title":       "Plan trip",
		"description": "Summer",
		"checklist":   "Book flights\n\n  Pack  \n",
	}))
	text := toolResultText(t, resp.Result)
	if !strings.Contains(text, `"id":77`) {
		t.Fatalf("unexpected result %s", text)
	}
	if len(board.added.Items) != 2 || board.added.Items[1].Content != "Pack" || board.added.Description != "Summer" {
		t.Fatalf("unexpected added todo %#v", board.added)
	}
}

// TestUpdateTodoToolKeepsOmittedFields verifies partial updates.
func TestUpdateTodoToolKeepsOmittedFields(t *testing.T) {
	board := newStubBoard(domain.Todo{ID: 4, Title: "Old", Description: "Keep", Status: domain.StatusPending, Items: []domain.TodoItem{{ID: "x", Content: "Old"}}})
	server := startServer(t, board)

	_, _ = postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "lanes.update_todo", map[string]any{
		"id":     4,
		"title":  "New",
		"status": "in_progress",
	}))
	if board.updated.Title != "New" || board.updated.Description != "Keep" || board.updated.Status != domain.StatusInProgress || len(board.updated.Items) != 1 {
		t.Fatalf("unexpected update %#v", board.updated)
	}
}

// TestMoveAndDeleteTools verifies move and delete wiring plus error mapping.
func TestMoveAndDeleteTools(t *testing.T) {
	board := newStubBoard(domain.Todo{ID: 1, Title: "a", Status: domain.StatusPending})
	server := startServer(t, board)

	_, _ = postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "lanes.move_todo", map[string]any{"id": 1, "status": "Completed"}))
	if board.moved[1] != domain.StatusCompleted {
		t.Fatalf("unexpected moves %#v", board.moved)
	}

	board.deleteErr = &app.TodoError{Op: app.OpDelete, ID: 1, Message: "Failed to delete todo"}
	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "lanes.delete_todo", map[string]any{"id": 1}))
	if got := toolResultText(t, resp.Result); got != "remote_error: Failed to delete todo" {
		t.Fatalf("unexpected delete result %q", got)
	}
	if !slices.Equal(board.deleted, []int{1}) {
		t.Fatalf("unexpected deletes %v", board.deleted)
	}
}

// TestToolsReloadBeforeActing verifies list and mutation tools see todos written elsewhere.
func TestToolsReloadBeforeActing(t *testing.T) {
	board := newStubBoard()
	board.remote = []domain.Todo{{ID: 5, Title: "From REST", Status: domain.StatusPending}}
	server := startServer(t, board)

	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "lanes.move_todo", map[string]any{"id": 5, "status": "Completed"}))
	if isErr, _ := resp.Result["isError"].(bool); isErr {
		t.Fatalf("unexpected tool error %q", toolResultText(t, resp.Result))
	}
	if board.moved[5] != domain.StatusCompleted || board.loads != 1 {
		t.Fatalf("moves = %#v loads = %d", board.moved, board.loads)
	}

	board.remote = append(board.remote, domain.Todo{ID: 6, Title: "Later", Status: domain.StatusPending})
	_, resp = postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "lanes.list_todos", map[string]any{}))
	var view boardView
	if err := json.Unmarshal([]byte(toolResultText(t, resp.Result)), &view); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(view.Todos) != 2 || view.Todos[1].ID != 6 || board.loads != 2 {
		t.Fatalf("unexpected view %#v after %d loads", view, board.loads)
	}

	board.loadErr = &app.TodoError{Op: app.OpLoad, Message: "Failed to fetch todos"}
	_, resp = postJSONRPC(t, server.Client(), server.URL, callToolRequest(5, "lanes.update_todo", map[string]any{"id": 5, "title": "Renamed"}))
	if got := toolResultText(t, resp.Result); got != "remote_error: Failed to fetch todos" {
		t.Fatalf("unexpected update result %q", got)
	}
	if board.updated.ID != 0 {
		t.Fatalf("expected no update after failed reload, got %#v", board.updated)
	}
}

// TestToolResultFromError verifies error code prefixes.
func TestToolResultFromError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: app.ErrTitleRequired, want: "invalid_request: "},
		{err: domain.ErrInvalidStatus, want: "invalid_request: "},
		{err: app.ErrTodoNotFound, want: "not_found: "},
		{err: fmt.Errorf("update todo 1: %w", domain.ErrDuplicateItem), want: "invalid_request: "},
		{err: domain.ErrInvalidItemID, want: "invalid_request: "},
		{err: &app.TodoError{Message: "nope"}, want: "remote_error: nope"},
		{err: errors.New("boom"), want: "internal_error: boom"},
	}
	for _, tc := range cases {
		result := toolResultFromError(tc.err)
		text, ok := result.Content[0].(mcp.TextContent)
		if !ok {
			t.Fatalf("content[0] has unexpected type %T", result.Content[0])
		}
		if !strings.HasPrefix(text.Text, tc.want) {
			t.Fatalf("toolResultFromError(%v) = %q, want prefix %q", tc.err, text.Text, tc.want)
		}
		if !result.IsError {
			t.Fatal("expected IsError result")
		}
	}
}
