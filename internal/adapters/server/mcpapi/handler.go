// Package mcpapi provides a stateless MCP streamable-HTTP adapter over the board store.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/lanes/internal/app"
	"github.com/hylla/lanes/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// BoardService is the store surface exposed as tools. *app.Store satisfies it.
type BoardService interface {
	State() app.State
	LoadTodos(context.Context) error
	AddTodo(context.Context, domain.Todo) (domain.Todo, error)
	UpdateTodo(context.Context, domain.Todo) error
	MoveTodo(context.Context, int, domain.Status) error
	DeleteTodo(context.Context, int) error
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter with the board tools registered.
func NewHandler(cfg Config, board BoardService) (*Handler, error) {
	if board == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerReadTools(mcpSrv, board)
	registerMutationTools(mcpSrv, board)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "lanes"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// todoView is the JSON shape returned for one todo.
type todoView struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Pending     string     `json:"pending,omitempty"`
	Items       []itemView `json:"items"`
}

type itemView struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Checked bool   `json:"checked"`
}

// boardView is the JSON shape returned by list-style tools.
type boardView struct {
	Todos     []todoView `json:"todos"`
	IsLoading bool       `json:"is_loading"`
	Message   string     `json:"message,omitempty"`
}

func toTodoView(todo domain.Todo, pending app.PendingOp) todoView {
	items := make([]itemView, 0, len(todo.Items))
	for _, item := range todo.Items {
		items = append(items, itemView{ID: item.ID, Content: item.Content, Checked: item.Checked})
	}
	return todoView{
		ID:          todo.ID,
		Title:       todo.Title,
		Description: todo.Description,
		Status:      string(todo.Status),
		Progress:    todo.Progress(),
		Pending:     string(pending),
		Items:       items,
	}
}

func toBoardView(state app.State, status domain.Status) boardView {
	out := boardView{Todos: make([]todoView, 0, len(state.Todos)), IsLoading: state.Loading.IsLoading}
	for _, todo := range state.Todos {
		if status != "" && todo.Status != status {
			continue
		}
		out.Todos = append(out.Todos, toTodoView(todo, state.Loading.Pending[todo.ID]))
	}
	if state.Message != nil {
		out.Message = state.Message.Text
	}
	return out
}

func statusNames() []string {
	lanes := domain.DefaultLanes()
	out := make([]string, 0, len(lanes))
	for _, status := range lanes {
		out = append(out, string(status))
	}
	return out
}

// registerReadTools registers `lanes.list_todos` and `lanes.reload_todos`.
func registerReadTools(srv *mcpserver.MCPServer, board BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"lanes.list_todos",
			mcp.WithDescription("Reload and list todos on the board, optionally filtered to one lane."),
			mcp.WithString("status", mcp.Description("Lane filter"), mcp.Enum(statusNames()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			status, err := optionalStatus(req.GetString("status", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			if failed := refreshBoard(ctx, board); failed != nil {
				return failed, nil
			}
			return jsonResult("list_todos", toBoardView(board.State(), status))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lanes.reload_todos",
			mcp.WithDescription("Reload the board from the todo service and return the fresh list."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if err := board.LoadTodos(ctx); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("reload_todos", toBoardView(board.State(), ""))
		},
	)
}

// registerMutationTools registers add, update, move, and delete tools.
func registerMutationTools(srv *mcpserver.MCPServer, board BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"lanes.add_todo",
			mcp.WithDescription("Add a todo to the Pending lane."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Todo title")),
			mcp.WithString("description", mcp.Description("Optional markdown description")),
			mcp.WithString("checklist", mcp.Description("Newline-separated checklist items")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			created, err := board.AddTodo(ctx, domain.Todo{
				Title:       title,
				Description: req.GetString("description", ""),
				Items:       parseChecklist(req.GetString("checklist", "")),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("add_todo", toTodoView(created, ""))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lanes.update_todo",
			mcp.WithDescription("Update title, description, checklist, or status of one todo. Omitted fields keep their value."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Todo id")),
			mcp.WithString("title", mcp.Description("New title")),
			mcp.WithString("description", mcp.Description("New description")),
			mcp.WithString("checklist", mcp.Description("Replacement newline-separated checklist items")),
			mcp.WithString("status", mcp.Description("New lane"), mcp.Enum(statusNames()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireInt("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if failed := refreshBoard(ctx, board); failed != nil {
				return failed, nil
			}
			todo, ok := board.State().Todo(id)
			if !ok {
				return toolResultFromError(fmt.Errorf("update todo %d: %w", id, app.ErrTodoNotFound)), nil
			}
			args := req.GetArguments()
			if _, set := args["title"]; set {
				todo.Title = req.GetString("title", todo.Title)
			}
			if _, set := args["description"]; set {
				todo.Description = req.GetString("description", todo.Description)
			}
			if _, set := args["checklist"]; set {
				todo.Items = parseChecklist(req.GetString("checklist", ""))
			}
			if status, err := optionalStatus(req.GetString("status", "")); err != nil {
				return toolResultFromError(err), nil
			} else if status != "" {
				todo.Status = status
			}
			if err := board.UpdateTodo(ctx, todo); err != nil {
				return toolResultFromError(err), nil
			}
			updated, _ := board.State().Todo(id)
			return jsonResult("update_todo", toTodoView(updated, ""))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lanes.move_todo",
			mcp.WithDescription("Move one todo to another lane."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Todo id")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Destination lane"), mcp.Enum(statusNames()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireInt("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			raw, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			status, err := domain.ParseStatus(raw)
			if err != nil {
				return toolResultFromError(err), nil
			}
			if failed := refreshBoard(ctx, board); failed != nil {
				return failed, nil
			}
			if err := board.MoveTodo(ctx, id, status); err != nil {
				return toolResultFromError(err), nil
			}
			moved, _ := board.State().Todo(id)
			return jsonResult("move_todo", toTodoView(moved, ""))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"lanes.delete_todo",
			mcp.WithDescription("Delete one todo."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Todo id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireInt("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if failed := refreshBoard(ctx, board); failed != nil {
				return failed, nil
			}
			if err := board.DeleteTodo(ctx, id); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_todo", map[string]any{"id": id, "deleted": true})
		},
	)
}

// refreshBoard reloads the board so tools see writes made through the REST endpoints
// on the same repository. It returns a tool error result when the reload fails.
func refreshBoard(ctx context.Context, board BoardService) *mcp.CallToolResult {
	if err := board.LoadTodos(ctx); err != nil {
		return toolResultFromError(err)
	}
	return nil
}

func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// optionalStatus parses raw when set; empty input means no filter.
func optionalStatus(raw string) (domain.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return domain.ParseStatus(raw)
}

// parseChecklist turns newline-separated text into unchecked items, dropping blank lines.
// Item ids are left empty for the store to assign.
func parseChecklist(raw string) []domain.TodoItem {
	var out []domain.TodoItem
	for line := range strings.SplitSeq(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, domain.TodoItem{Content: line})
	}
	return out
}

// toolResultFromError maps store errors to `<code>: <message>` tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	var todoErr *app.TodoError
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, app.ErrTitleRequired),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidItemID),
		errors.Is(err, domain.ErrDuplicateItem):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, app.ErrTodoNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.As(err, &todoErr):
		return mcp.NewToolResultError("remote_error: " + todoErr.Message)
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
