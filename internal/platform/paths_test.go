package platform

import (
	"path/filepath"
	"testing"
)

// TestResolveForLinuxWithXDG verifies XDG overrides on linux.
func TestResolveForLinuxWithXDG(t *testing.T) {
	p, err := ResolveFor("linux", map[string]string{
		"XDG_CONFIG_HOME": "/xdg/config",
		"XDG_DATA_HOME":   "/xdg/data",
	}, Bases{Config: "/fallback/config", Data: "/fallback/data"}, "lanes")
	if err != nil {
		t.Fatalf("ResolveFor() error = %v", err)
	}
	if want := filepath.Join("/xdg/config", "lanes", "config.toml"); p.ConfigPath != want {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
	if want := filepath.Join("/xdg/data", "lanes", "lanes.db"); p.DBPath != want {
		t.Fatalf("unexpected db path %q", p.DBPath)
	}
}

// TestResolveForWindowsUsesAppData verifies APPDATA overrides on windows.
func TestResolveForWindowsUsesAppData(t *testing.T) {
	p, err := ResolveFor("windows", map[string]string{
		"APPDATA":      `C:\Users\me\AppData\Roaming`,
		"LOCALAPPDATA": `C:\Users\me\AppData\Local`,
	}, Bases{Config: `C:\fallback\config`, Data: `C:\fallback\data`}, "lanes")
	if err != nil {
		t.Fatalf("ResolveFor() error = %v", err)
	}
	if want := filepath.Join(`C:\Users\me\AppData\Local`, "lanes"); p.DataDir != want {
		t.Fatalf("unexpected data dir %q", p.DataDir)
	}
}

// TestResolveForDarwinIgnoresXDG verifies macOS keeps the platform bases.
func TestResolveForDarwinIgnoresXDG(t *testing.T) {
	base := "/Users/me/Library/Application Support"
	p, err := ResolveFor("darwin", map[string]string{"XDG_CONFIG_HOME": "/ignored"}, Bases{Config: base, Data: base}, "lanes")
	if err != nil {
		t.Fatalf("ResolveFor() error = %v", err)
	}
	if want := filepath.Join(base, "lanes", "config.toml"); p.ConfigPath != want {
		t.Fatalf("unexpected config path %q", p.ConfigPath)
	}
}

// TestResolveForRejectsEmptyInput verifies empty bases and names fail.
func TestResolveForRejectsEmptyInput(t *testing.T) {
	if _, err := ResolveFor("darwin", nil, Bases{Data: "/tmp"}, "lanes"); err == nil {
		t.Fatal("expected error for empty config base")
	}
	if _, err := ResolveFor("darwin", nil, Bases{Config: "/a", Data: "/b"}, " "); err == nil {
		t.Fatal("expected error for empty app name")
	}
}

// TestAppNameFor verifies defaults and the dev suffix.
func TestAppNameFor(t *testing.T) {
	if got := appNameFor(Options{}); got != "lanes" {
		t.Fatalf("appNameFor() = %q", got)
	}
	if got := appNameFor(Options{AppName: "board", DevMode: true}); got != "board-dev" {
		t.Fatalf("appNameFor() = %q", got)
	}
}
