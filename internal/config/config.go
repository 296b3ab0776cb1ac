// Package config loads the viewportal configuration from YAML, TOML or the
// legacy key = value params file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// Config represents the complete viewportal configuration
type Config struct {
	Window    WindowConfig    `yaml:"window" toml:"window"`
	Layout    LayoutConfig    `yaml:"layout" toml:"layout"`
	Keys      []string        `yaml:"keys" toml:"keys"` // Watched keys, one character each
	Capture   CaptureConfig   `yaml:"capture" toml:"capture"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
	Snapshot  SnapshotConfig  `yaml:"snapshot" toml:"snapshot"`
}

// WindowConfig contains window settings
type WindowConfig struct {
	Width      int     `yaml:"width" toml:"width"`
	Height     int     `yaml:"height" toml:"height"`
	PanelWidth int     `yaml:"panel_width" toml:"panel_width"`
	Title      string  `yaml:"title" toml:"title"`
	RefreshHz  float64 `yaml:"refresh_hz" toml:"refresh_hz"` // 0 = as fast as possible
}

// LayoutConfig describes the cell grid
type LayoutConfig struct {
	Rows  int      `yaml:"rows" toml:"rows"`
	Cols  int      `yaml:"cols" toml:"cols"`
	Cells []string `yaml:"cells" toml:"cells"` // color, depth, reconstruction, plot (row-major)
}

// CaptureConfig contains frame source settings
type CaptureConfig struct {
	Source       string         `yaml:"source" toml:"source"`             // synthetic, rtsp
	RTSPURL      string         `yaml:"rtsp_url" toml:"rtsp_url"`         // Required for rtsp
	FPS          float64        `yaml:"fps" toml:"fps"`                   // 0.1 - 30
	Resolution   string         `yaml:"resolution" toml:"resolution"`     // 512p, 720p, 1080p
	Acceleration string         `yaml:"acceleration" toml:"acceleration"` // auto, vaapi, software
	Routes       map[string]int `yaml:"routes" toml:"routes"`             // Stream name -> cell index
}

// TelemetryConfig contains MQTT telemetry settings
type TelemetryConfig struct {
	Broker      string `yaml:"broker" toml:"broker"` // Empty disables telemetry
	TopicPrefix string `yaml:"topic_prefix" toml:"topic_prefix"`
	IntervalS   int    `yaml:"interval_s" toml:"interval_s"`
	QoS         byte   `yaml:"qos" toml:"qos"`
}

// SnapshotConfig controls PNG snapshots of the software window
type SnapshotConfig struct {
	Dir   string `yaml:"dir" toml:"dir"`     // Empty disables snapshots
	Every int    `yaml:"every" toml:"every"` // Every n-th presented frame
}

// Default returns the configuration used when no file is given: the 2x2
// sample layout fed by the synthetic source.
func Default() *Config {
	params := types.DefaultParams()
	return &Config{
		Window: WindowConfig{
			Width:      params.WindowWidth,
			Height:     params.WindowHeight,
			PanelWidth: params.PanelWidth,
			Title:      params.Title,
			RefreshHz:  params.RefreshHz,
		},
		Layout: LayoutConfig{
			Rows:  2,
			Cols:  2,
			Cells: []string{"color", "depth", "reconstruction", "plot"},
		},
		Keys: []string{"s"},
		Capture: CaptureConfig{
			Source:       "synthetic",
			FPS:          30,
			Resolution:   "720p",
			Acceleration: "auto",
		},
		Telemetry: TelemetryConfig{
			TopicPrefix: "viewportal",
			IntervalS:   5,
		},
		Snapshot: SnapshotConfig{
			Every: 30,
		},
	}
}

// Load reads and parses a configuration file; the format follows the
// extension (.yaml/.yml, .toml, .cfg). Fields absent from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case ".cfg":
		parseLegacy(string(data), cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when path is
// empty or the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			return Load(path)
		}
	}

	cfg := Default()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid default configuration: %w", err)
	}
	return cfg, nil
}

// Params returns the window parameters.
func (c *Config) Params() types.Params {
	return types.Params{
		WindowWidth:  c.Window.Width,
		WindowHeight: c.Window.Height,
		PanelWidth:   c.Window.PanelWidth,
		Title:        c.Window.Title,
		RefreshHz:    c.Window.RefreshHz,
	}
}

// CellTypes parses the layout cell names.
func (c *Config) CellTypes() ([]types.CellType, error) {
	cells := make([]types.CellType, len(c.Layout.Cells))
	for i, name := range c.Layout.Cells {
		ct, err := types.ParseCellType(name)
		if err != nil {
			return nil, fmt.Errorf("layout.cells[%d]: %w", i, err)
		}
		cells[i] = ct
	}
	return cells, nil
}

// WatchedKeys returns the configured keys as key codes.
func (c *Config) WatchedKeys() []types.Key {
	keys := make([]types.Key, 0, len(c.Keys))
	for _, k := range c.Keys {
		r := []rune(k)
		if len(r) == 1 {
			keys = append(keys, types.Key(r[0]))
		}
	}
	return keys
}
