package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/hylla/lanes/internal/adapters/server"
	"github.com/hylla/lanes/internal/adapters/storage/sqlite"
	"github.com/hylla/lanes/internal/adapters/todoapi"
	"github.com/hylla/lanes/internal/app"
	"github.com/hylla/lanes/internal/config"
	"github.com/hylla/lanes/internal/domain"
	"github.com/hylla/lanes/internal/platform"
	"github.com/hylla/lanes/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveFunc runs the local todo service; tests replace it.
var serveFunc = server.Run

// main handles main.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("lanes", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configPath string
		dbPath     string
		apiURL     string
		appName    string
		devMode    bool
		showVer    bool
	)
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("LANES_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("LANES_APP_NAME")); envApp != "" {
		appName = envApp
	} else {
		appName = platform.DefaultAppName
	}
	fs.StringVar(&configPath, "config", "", "path to config TOML")
	fs.StringVar(&dbPath, "db", "", "path to sqlite database used by serve")
	fs.StringVar(&apiURL, "api-url", "", "base url of the remote todo service")
	fs.StringVar(&appName, "app", appName, "application name for config/data path resolution")
	fs.BoolVar(&devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	fs.BoolVar(&showVer, "version", false, "show version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVer {
		_, _ = fmt.Fprintf(stdout, "lanes %s\n", version)
		return nil
	}

	paths, err := platform.Resolve(platform.Options{
		AppName: appName,
		DevMode: devMode,
	})
	if err != nil {
		return err
	}

	command := firstArg(fs.Args())
	switch command {
	case "paths":
		_, _ = fmt.Fprintf(stdout, "app: %s\n", appName)
		_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", devMode)
		_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
		_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
		_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
		return nil
	case "", "list", "serve", "init":
		// Continue.
	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("LANES_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	if strings.TrimSpace(dbPath) == "" {
		dbPath = strings.TrimSpace(os.Getenv("LANES_DB_PATH"))
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = strings.TrimSpace(os.Getenv("LANES_API_URL"))
	}

	defaultCfg := config.Default(paths.DBPath)
	if command == "init" {
		return runInit(configPath, defaultCfg, apiURL, stdout)
	}
	cfg, err := config.Load(configPath, defaultCfg)
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if apiURL != "" {
		cfg.Remote.BaseURL = apiURL
	}
	if command != "serve" {
		if err := cfg.ValidateRemote(); err != nil {
			return err
		}
	}

	logger, err := newRuntimeLogger(stderr, appName, devMode, cfg.Logging, time.Now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "" {
		// Keep TUI rendering clean: runtime logs stay in the dev-file sink while the board is active.
		logger.SetConsoleEnabled(false)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil && logger.shouldLogToSink(logger.console) {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()

	logger.Info("startup configuration resolved", "app", appName, "dev_mode", devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	if command == "serve" {
		return runServe(ctx, cfg, appName, logger)
	}

	client, err := todoapi.NewClient(
		cfg.Remote.BaseURL,
		todoapi.WithTimeout(cfg.RemoteTimeout()),
		todoapi.WithLogger(logger.Component("todoapi")),
	)
	if err != nil {
		return fmt.Errorf("configure todo api client: %w", err)
	}
	store := app.NewStore(
		client,
		app.WithUserID(cfg.Remote.UserID),
		app.WithMessageTTL(cfg.MessageDisplay()),
		app.WithLogger(logger.Component("store")),
	)
	logger.Info("board store initialized", "base_url", cfg.Remote.BaseURL, "user_id", cfg.Remote.UserID)

	if command == "list" {
		logger.Info("command flow start", "command", "list")
		if err := runList(ctx, store, fs.Args()[1:], stdout); err != nil {
			logger.Error("command flow failed", "command", "list", "err", err)
			return fmt.Errorf("run list command: %w", err)
		}
		logger.Info("command flow complete", "command", "list")
		return nil
	}

	logger.Info("command flow start", "command", "tui")
	m := tui.NewModel(
		store,
		tui.WithLanes(cfg.LaneStatuses()),
		tui.WithDropThreshold(cfg.Board.DropThreshold),
		tui.WithShowDescription(cfg.Board.ShowDescription),
		tui.WithToasts(cfg.MessageDisplay(), cfg.Messages.MaxToasts),
	)
	logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	logger.Info("command flow complete", "command", "tui")
	return nil
}

// runInit writes a default config file unless one already exists.
func runInit(configPath string, cfg config.Config, apiURL string, stdout io.Writer) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists: %s", configPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if apiURL != "" {
		cfg.Remote.BaseURL = apiURL
	}
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "wrote %s\n", configPath)
	return nil
}

// runList loads the board once and prints it.
func runList(ctx context.Context, store *app.Store, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("lanes list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		statusRaw string
		asJSON    bool
	)
	fs.StringVar(&statusRaw, "status", "", "only list todos in this lane")
	fs.BoolVar(&asJSON, "json", false, "print todos as JSON")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse list flags: %w", err)
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected list arguments: %v", fs.Args())
	}
	var filter domain.Status
	if strings.TrimSpace(statusRaw) != "" {
		status, err := domain.ParseStatus(statusRaw)
		if err != nil {
			return fmt.Errorf("parse --status: %w", err)
		}
		filter = status
	}

	if err := store.LoadTodos(ctx); err != nil {
		return fmt.Errorf("load todos: %w", err)
	}
	todos := store.State().Todos
	if filter != "" {
		todos = store.State().TodosByStatus(filter)
	}

	if asJSON {
		encoded, err := json.MarshalIndent(listEntries(todos), "", "  ")
		if err != nil {
			return fmt.Errorf("encode todos json: %w", err)
		}
		if _, err := stdout.Write(append(encoded, '\n')); err != nil {
			return fmt.Errorf("write todos: %w", err)
		}
		return nil
	}
	if len(todos) == 0 {
		_, _ = fmt.Fprintln(stdout, "no todos")
		return nil
	}
	for _, todo := range todos {
		_, _ = fmt.Fprintf(stdout, "#%d\t%-11s\t%3d%%\t%s\n", todo.ID, todo.Status, todo.Progress(), todo.Title)
	}
	return nil
}

// listEntry is the JSON shape printed by list --json.
type listEntry struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

func listEntries(todos []domain.Todo) []listEntry {
	out := make([]listEntry, 0, len(todos))
	for _, todo := range todos {
		out = append(out, listEntry{
			ID:       todo.ID,
			Title:    todo.Title,
			Status:   string(todo.Status),
			Progress: todo.Progress(),
		})
	}
	return out
}

// runServe runs the SQLite-backed todo service with MCP tools until ctx ends.
func runServe(ctx context.Context, cfg config.Config, appName string, logger *runtimeLogger) error {
	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	store := app.NewStore(
		server.RepositoryAPI{Repo: repo},
		app.WithUserID(cfg.Remote.UserID),
		app.WithMessageTTL(0),
		app.WithLogger(logger.Component("store")),
	)
	if err := store.LoadTodos(ctx); err != nil {
		return fmt.Errorf("load todos: %w", err)
	}

	logger.Info("command flow start", "command", "serve", "bind", cfg.Serve.Bind)
	err = serveFunc(ctx, server.Config{
		HTTPBind:      cfg.Serve.Bind,
		APIEndpoint:   cfg.Serve.APIEndpoint,
		MCPEndpoint:   cfg.Serve.MCPEndpoint,
		ServerName:    appName,
		ServerVersion: version,
	}, server.Dependencies{
		Repo:   repo,
		Board:  store,
		Logger: logger.Component("server"),
	})
	if err != nil {
		logger.Error("command flow failed", "command", "serve", "err", err)
		return fmt.Errorf("run serve command: %w", err)
	}
	logger.Info("command flow complete", "command", "serve")
	return nil
}

// firstArg handles first arg.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
