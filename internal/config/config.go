package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/hylla/lanes/internal/domain"
)

// ErrMissingBaseURL reports that no remote todo service is configured.
var ErrMissingBaseURL = errors.New("remote.base_url is required (set it in config or LANES_API_URL)")

type Config struct {
	Remote   RemoteConfig   `toml:"remote"`
	Board    BoardConfig    `toml:"board"`
	Messages MessagesConfig `toml:"messages"`
	Logging  LoggingConfig  `toml:"logging"`
	Database DatabaseConfig `toml:"database"`
	Serve    ServeConfig    `toml:"serve"`
}

type RemoteConfig struct {
	BaseURL string `toml:"base_url"`
	UserID  int    `toml:"user_id"`
	Timeout string `toml:"timeout"`
}

type BoardConfig struct {
	Lanes           []string `toml:"lanes"`
	DropThreshold   float64  `toml:"drop_threshold"`
	ShowDescription bool     `toml:"show_description"`
}

type MessagesConfig struct {
	Display   string `toml:"display"`
	MaxToasts int    `toml:"max_toasts"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ServeConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

// Default returns the built-in configuration with the database at dbPath.
func Default(dbPath string) Config {
	lanes := domain.DefaultLanes()
	names := make([]string, 0, len(lanes))
	for _, lane := range lanes {
		names = append(names, string(lane))
	}
	return Config{
		Remote: RemoteConfig{
			UserID:  26,
			Timeout: "15s",
		},
		Board: BoardConfig{
			Lanes:           names,
			DropThreshold:   0.3,
			ShowDescription: false,
		},
		Messages: MessagesConfig{
			Display:   "3s",
			MaxToasts: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".lanes/log",
			},
		},
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Serve: ServeConfig{
			Bind:        "127.0.0.1:8080",
			APIEndpoint: "/todos",
			MCPEndpoint: "/mcp",
		},
	}
}

// Load overlays the TOML file at path onto defaults. A missing or empty file yields defaults.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks everything except the remote base url, which only the board needs.
func (c Config) Validate() error {
	if c.Remote.UserID <= 0 {
		return fmt.Errorf("remote.user_id must be > 0")
	}
	if _, err := parsePositiveDuration("remote.timeout", c.Remote.Timeout); err != nil {
		return err
	}

	if len(c.Board.Lanes) == 0 {
		return errors.New("board.lanes must include at least one lane")
	}
	seen := map[domain.Status]struct{}{}
	for idx, raw := range c.Board.Lanes {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return fmt.Errorf("board.lanes[%d] references unknown lane %q", idx, raw)
		}
		if _, ok := seen[status]; ok {
			return fmt.Errorf("board.lanes[%d] is duplicated: %s", idx, status)
		}
		seen[status] = struct{}{}
	}
	if c.Board.DropThreshold <= 0 || c.Board.DropThreshold >= 1 {
		return fmt.Errorf("board.drop_threshold must be between 0 and 1, got %v", c.Board.DropThreshold)
	}

	if _, err := parsePositiveDuration("messages.display", c.Messages.Display); err != nil {
		return err
	}
	if c.Messages.MaxToasts < 1 {
		return fmt.Errorf("messages.max_toasts must be >= 1")
	}

	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level %q: %w", c.Logging.Level, err)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when dev_file is enabled")
	}

	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if strings.TrimSpace(c.Serve.Bind) == "" {
		return errors.New("serve.bind is required")
	}
	return nil
}

// ValidateRemote checks the settings the board needs to reach the todo service.
func (c Config) ValidateRemote() error {
	if strings.TrimSpace(c.Remote.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	return nil
}

// RemoteTimeout returns the parsed request timeout.
func (c Config) RemoteTimeout() time.Duration {
	d, err := parsePositiveDuration("remote.timeout", c.Remote.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// MessageDisplay returns how long a message stays visible.
func (c Config) MessageDisplay() time.Duration {
	d, err := parsePositiveDuration("messages.display", c.Messages.Display)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// LaneStatuses returns the configured lanes in display order. Invalid entries are skipped.
func (c Config) LaneStatuses() []domain.Status {
	out := make([]domain.Status, 0, len(c.Board.Lanes))
	for _, raw := range c.Board.Lanes {
		if status, err := domain.ParseStatus(raw); err == nil {
			out = append(out, status)
		}
	}
	if len(out) == 0 {
		return domain.DefaultLanes()
	}
	return out
}

// Save writes cfg to path as TOML, creating the parent directory.
func Save(path string, cfg Config) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parsePositiveDuration(field, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be > 0", field)
	}
	return d, nil
}
