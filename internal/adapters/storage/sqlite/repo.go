package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/lanes/internal/app"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository stores todo records for the local todo service.
type Repository struct {
	db    *sql.DB
	clock func() time.Time
}

// Open opens the database at path, creating parent directories and the schema.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Each pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)
	return newRepository(db)
}

func newRepository(db *sql.DB) (*Repository, error) {
	repo := &Repository{db: db, clock: time.Now}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the schema.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS todos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			todo TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			user_id INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_todos_user ON todos(user_id, id);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// ListTodos returns every todo ordered by id.
func (r *Repository) ListTodos(ctx context.Context) ([]app.RemoteTodo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, todo, completed, user_id FROM todos ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]app.RemoteTodo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, todo)
	}
	return out, rows.Err()
}

// GetTodo returns one todo or app.ErrTodoNotFound.
func (r *Repository) GetTodo(ctx context.Context, id int) (app.RemoteTodo, error) {
	return getTodoByID(ctx, r.db, id)
}

// CreateTodo inserts a todo and returns it with its assigned id.
func (r *Repository) CreateTodo(ctx context.Context, in app.CreateTodoInput) (app.RemoteTodo, error) {
	now := ts(r.clock())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO todos(todo, completed, user_id, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?)
	`, in.Todo, boolToInt(in.Completed), in.UserID, now, now)
	if err != nil {
		return app.RemoteTodo{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return app.RemoteTodo{}, err
	}
	return app.RemoteTodo{ID: int(id), Todo: in.Todo, Completed: in.Completed, UserID: in.UserID}, nil
}

// UpdateTodo applies the non-nil patch fields and returns the updated todo.
func (r *Repository) UpdateTodo(ctx context.Context, id int, patch app.TodoPatch) (_ app.RemoteTodo, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return app.RemoteTodo{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := getTodoByID(ctx, tx, id)
	if err != nil {
		return app.RemoteTodo{}, err
	}
	if patch.Todo != nil {
		current.Todo = *patch.Todo
	}
	if patch.Completed != nil {
		current.Completed = *patch.Completed
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE todos SET todo = ?, completed = ?, updated_at = ? WHERE id = ?
	`, current.Todo, boolToInt(current.Completed), ts(r.clock()), id)
	if err != nil {
		return app.RemoteTodo{}, err
	}
	if err = translateNoRows(res); err != nil {
		return app.RemoteTodo{}, err
	}
	if err = tx.Commit(); err != nil {
		return app.RemoteTodo{}, err
	}
	return current, nil
}

// DeleteTodo removes a todo and returns the removed record flagged as deleted.
func (r *Repository) DeleteTodo(ctx context.Context, id int) (_ app.RemoteTodo, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return app.RemoteTodo{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := getTodoByID(ctx, tx, id)
	if err != nil {
		return app.RemoteTodo{}, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return app.RemoteTodo{}, err
	}
	if err = translateNoRows(res); err != nil {
		return app.RemoteTodo{}, err
	}
	if err = tx.Commit(); err != nil {
		return app.RemoteTodo{}, err
	}
	current.IsDeleted = true
	return current, nil
}

// queryRower is the subset of *sql.DB and *sql.Tx used for single-row reads.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(...any) error
}

func getTodoByID(ctx context.Context, q queryRower, id int) (app.RemoteTodo, error) {
	row := q.QueryRowContext(ctx, `SELECT id, todo, completed, user_id FROM todos WHERE id = ?`, id)
	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return app.RemoteTodo{}, app.ErrTodoNotFound
	}
	return todo, err
}

func scanTodo(s scanner) (app.RemoteTodo, error) {
	var (
		todo      app.RemoteTodo
		completed int
	)
	if err := s.Scan(&todo.ID, &todo.Todo, &completed, &todo.UserID); err != nil {
		return app.RemoteTodo{}, err
	}
	todo.Completed = completed != 0
	return todo, nil
}

// translateNoRows maps a zero-row write to app.ErrTodoNotFound.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrTodoNotFound
	}
	return nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
