package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Display.TextWidth != 80 {
		t.Errorf("got textWidth %d, expected 80", cfg.Display.TextWidth)
	}
	if cfg.Keybindings.Quit != "q" {
		t.Errorf("got quit binding %q, expected %q", cfg.Keybindings.Quit, "q")
	}
	if cfg.Logging.Level != "none" {
		t.Errorf("got logging level %q, expected %q", cfg.Logging.Level, "none")
	}
}

func TestLoadFileLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	userCfg := `
[display]
textWidth = 72
seamless = true

[keybindings]
quit = "Q"
`
	if err := os.WriteFile(path, []byte(userCfg), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Display.TextWidth != 72 {
		t.Errorf("got textWidth %d, expected 72", cfg.Display.TextWidth)
	}
	if !cfg.Display.Seamless {
		t.Error("expected seamless to be overridden")
	}
	if cfg.Keybindings.Quit != "Q" {
		t.Errorf("got quit binding %q, expected %q", cfg.Keybindings.Quit, "Q")
	}
	// Unspecified values keep their defaults.
	if cfg.Keybindings.ScrollDown != "j" {
		t.Errorf("got scrollDown binding %q, expected default %q", cfg.Keybindings.ScrollDown, "j")
	}
	if cfg.External.ImageViewer != "xdg-open" {
		t.Errorf("got imageViewer %q, expected default", cfg.External.ImageViewer)
	}
}

func TestDefaultTOMLRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(DefaultTOML()), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("default TOML does not reproduce defaults:\ngot      %+v\nexpected %+v", cfg, Default())
	}
}

func TestNoneLevelLoggerIsNop(t *testing.T) {
	logger, err := Logging{Level: "none"}.Logger()
	if err != nil {
		t.Fatalf("Logger: %v", err)
	}
	logger.Info("discarded")
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaf.log")
	logger, err := Logging{Level: "debug", File: path}.Logger()
	if err != nil {
		t.Fatalf("Logger: %v", err)
	}
	logger.Debug("hello")
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log output")
	}
}
