package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "viewportal.yaml", `
window:
  width: 800
  height: 600
  panel_width: 150
  title: Lab
layout:
  rows: 1
  cols: 2
  cells: [color, plot]
keys: ["s", "q"]
capture:
  source: synthetic
  fps: 10
telemetry:
  broker: tcp://localhost:1883
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := types.Params{WindowWidth: 800, WindowHeight: 600, PanelWidth: 150, Title: "Lab", RefreshHz: 60}
	if got := cfg.Params(); got != want {
		t.Errorf("Params() = %+v, want %+v", got, want)
	}

	cells, err := cfg.CellTypes()
	if err != nil || len(cells) != 2 || cells[0] != types.ColorImage || cells[1] != types.Plot {
		t.Errorf("CellTypes() = %v, %v", cells, err)
	}

	keys := cfg.WatchedKeys()
	if len(keys) != 2 || keys[0] != 's' || keys[1] != 'q' {
		t.Errorf("WatchedKeys() = %v, want [s q]", keys)
	}

	// Derived defaults
	if cfg.Telemetry.TopicPrefix != "viewportal" || cfg.Telemetry.IntervalS != 5 {
		t.Errorf("telemetry defaults = %+v", cfg.Telemetry)
	}
	if len(cfg.Capture.Routes) != 2 || cfg.Capture.Routes["color"] != 0 || cfg.Capture.Routes["depth"] != 1 {
		t.Errorf("Routes = %v, want color->0 depth->1", cfg.Capture.Routes)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "viewportal.toml", `
keys = ["x"]

[window]
width = 640
height = 480
panel_width = 0

[layout]
rows = 1
cols = 1
cells = ["depth"]

[capture]
source = "rtsp"
rtsp_url = "rtsp://camera.local/stream1"
fps = 2.5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Window.Width != 640 || cfg.Window.PanelWidth != 0 {
		t.Errorf("Window = %+v", cfg.Window)
	}
	if cfg.Capture.FPS != 2.5 || cfg.Capture.RTSPURL != "rtsp://camera.local/stream1" {
		t.Errorf("Capture = %+v", cfg.Capture)
	}
	if len(cfg.Capture.Routes) != 1 || cfg.Capture.Routes["rtsp"] != 0 {
		t.Errorf("Routes = %v, want rtsp->0", cfg.Capture.Routes)
	}
}

func TestLoadLegacyParams(t *testing.T) {
	path := writeFile(t, t.TempDir(), "params.cfg", strings.Join([]string{
		"# display",
		"window_width = 1024   # inline comment",
		"window_height=not-a-number",
		"panel_width = 180",
		"fullscreen = true",
		"garbage line",
		"",
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Window.Width != 1024 {
		t.Errorf("Width = %d, want 1024", cfg.Window.Width)
	}
	if cfg.Window.Height != 720 {
		t.Errorf("Height = %d, want default 720 (bad value ignored)", cfg.Window.Height)
	}
	if cfg.Window.PanelWidth != 180 {
		t.Errorf("PanelWidth = %d, want 180", cfg.Window.PanelWidth)
	}
	if cfg.Window.Title != "ViewPortal" {
		t.Errorf("Title = %q, want ViewPortal", cfg.Window.Title)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.cfg"))
	if err != nil {
		t.Fatalf("LoadOrDefault(missing) error: %v", err)
	}
	if cfg.Params() != types.DefaultParams() {
		t.Errorf("Params() = %+v, want defaults", cfg.Params())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) expected error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"panel too wide", func(c *Config) { c.Window.PanelWidth = c.Window.Width }, "panel_width"},
		{"zero height", func(c *Config) { c.Window.Height = 0 }, "window size"},
		{"cell count", func(c *Config) { c.Layout.Cells = c.Layout.Cells[:3] }, "layout.cells"},
		{"unknown cell", func(c *Config) { c.Layout.Cells[2] = "hologram" }, "unknown cell type"},
		{"long key", func(c *Config) { c.Keys = []string{"ctrl"} }, "single character"},
		{"fps too high", func(c *Config) { c.Capture.FPS = 60 }, "fps"},
		{"rtsp without url", func(c *Config) { c.Capture.Source = "rtsp" }, "rtsp_url"},
		{"http url", func(c *Config) {
			c.Capture.Source = "rtsp"
			c.Capture.RTSPURL = "http://camera.local"
		}, "rtsp://"},
		{"unknown source", func(c *Config) { c.Capture.Source = "usb" }, "unknown source"},
		{"route out of range", func(c *Config) { c.Capture.Routes = map[string]int{"color": 4} }, "out of range"},
		{"qos", func(c *Config) {
			c.Telemetry.Broker = "tcp://broker:1883"
			c.Telemetry.QoS = 3
		}, "qos"},
	}

	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.errSub)
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.errSub)
			}
		})
	}
}

// Scenario:
//  1. Watch a valid config
//  2. Rewrite it with a new key list -> callback with the new config
//  3. Rewrite it with an invalid layout -> no callback
func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "viewportal.yaml", "keys: [a]\n")

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c })
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	w.debounce = 20 * time.Millisecond
	w.Start()
	defer w.Stop()

	writeFile(t, dir, "viewportal.yaml", "keys: [b, c]\n")

	select {
	case cfg := <-changes:
		if keys := cfg.WatchedKeys(); len(keys) != 2 || keys[0] != 'b' {
			t.Errorf("reloaded keys = %v, want [b c]", keys)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload after write")
	}

	writeFile(t, dir, "viewportal.yaml", "layout: {rows: 3, cols: 3}\n")

	select {
	case cfg := <-changes:
		t.Errorf("invalid config delivered: %+v", cfg.Layout)
	case <-time.After(200 * time.Millisecond):
	}

	// Unrelated files in the directory are ignored
	writeFile(t, dir, "other.yaml", "keys: [z]\n")
	select {
	case <-changes:
		t.Error("reload triggered by an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}
