// Package platform resolves per-user file locations for lanes.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories.
const DefaultAppName = "lanes"

// Paths holds the resolved config file, data directory, and local service database.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
}

// Options selects the app name and dev-mode suffix.
type Options struct {
	AppName string
	DevMode bool
}

// Bases are the platform fallback directories used when no env override applies.
type Bases struct {
	Config string
	Data   string
}

// overrideVars lists, per GOOS, the env vars that replace the config and data bases.
var overrideVars = map[string][2]string{
	"linux":   {"XDG_CONFIG_HOME", "XDG_DATA_HOME"},
	"windows": {"APPDATA", "LOCALAPPDATA"},
}

// Resolve returns paths for the running platform and process environment.
func Resolve(opts Options) (Paths, error) {
	bases, err := platformBases(runtime.GOOS)
	if err != nil {
		return Paths{}, err
	}
	env := map[string]string{}
	for _, vars := range overrideVars {
		for _, key := range vars {
			env[key] = os.Getenv(key)
		}
	}
	return ResolveFor(runtime.GOOS, env, bases, appNameFor(opts))
}

// ResolveFor computes paths without touching the process environment.
func ResolveFor(goos string, env map[string]string, bases Bases, appName string) (Paths, error) {
	if bases.Config == "" || bases.Data == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}
	if vars, ok := overrideVars[goos]; ok {
		if v := strings.TrimSpace(env[vars[0]]); v != "" {
			bases.Config = v
		}
		if v := strings.TrimSpace(env[vars[1]]); v != "" {
			bases.Data = v
		}
	}

	dataDir := filepath.Join(bases.Data, appName)
	return Paths{
		ConfigPath: filepath.Join(bases.Config, appName, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
	}, nil
}

func appNameFor(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}
	return name
}

func platformBases(goos string) (Bases, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Bases{}, fmt.Errorf("user config dir: %w", err)
	}
	bases := Bases{Config: configDir, Data: configDir}
	if goos == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Bases{}, fmt.Errorf("user home dir: %w", err)
		}
		bases.Data = filepath.Join(home, ".local", "share")
	}
	return bases, nil
}
