package config

import (
	"fmt"
	"net/url"
)

// Validate checks if the configuration is valid and fills derived defaults
func Validate(cfg *Config) error {
	// Window
	if cfg.Window.Width <= 0 || cfg.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Window.PanelWidth < 0 || cfg.Window.PanelWidth >= cfg.Window.Width {
		return fmt.Errorf("window.panel_width %d must be in [0, %d)", cfg.Window.PanelWidth, cfg.Window.Width)
	}
	if cfg.Window.RefreshHz < 0 {
		return fmt.Errorf("window.refresh_hz must be >= 0")
	}
	if cfg.Window.Title == "" {
		cfg.Window.Title = "ViewPortal"
	}

	// Layout
	if cfg.Layout.Rows <= 0 || cfg.Layout.Cols <= 0 {
		return fmt.Errorf("layout %dx%d must be positive", cfg.Layout.Rows, cfg.Layout.Cols)
	}
	if len(cfg.Layout.Cells) != cfg.Layout.Rows*cfg.Layout.Cols {
		return fmt.Errorf("layout.cells has %d entries, want %d", len(cfg.Layout.Cells), cfg.Layout.Rows*cfg.Layout.Cols)
	}
	if _, err := cfg.CellTypes(); err != nil {
		return err
	}

	// Keys
	for i, k := range cfg.Keys {
		if len([]rune(k)) != 1 {
			return fmt.Errorf("keys[%d] %q must be a single character", i, k)
		}
	}

	// Capture
	if err := validateCapture(cfg); err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	// Telemetry
	if cfg.Telemetry.Broker != "" {
		if cfg.Telemetry.TopicPrefix == "" {
			cfg.Telemetry.TopicPrefix = "viewportal"
		}
		if cfg.Telemetry.IntervalS <= 0 {
			cfg.Telemetry.IntervalS = 5
		}
		if cfg.Telemetry.QoS > 2 {
			return fmt.Errorf("telemetry.qos %d must be 0, 1 or 2", cfg.Telemetry.QoS)
		}
	}

	// Snapshot
	if cfg.Snapshot.Dir != "" && cfg.Snapshot.Every <= 0 {
		cfg.Snapshot.Every = 30
	}

	return nil
}

func validateCapture(cfg *Config) error {
	c := &cfg.Capture

	switch c.Source {
	case "", "none":
		return nil
	case "synthetic":
	case "rtsp":
		if c.RTSPURL == "" {
			return fmt.Errorf("rtsp_url is required for source rtsp")
		}
		if u, err := url.Parse(c.RTSPURL); err != nil || u.Scheme != "rtsp" {
			return fmt.Errorf("rtsp_url %q must be an rtsp:// URL", c.RTSPURL)
		}
	default:
		return fmt.Errorf("unknown source %q (must be 'synthetic', 'rtsp' or 'none')", c.Source)
	}

	if c.FPS < 0.1 || c.FPS > 30 {
		return fmt.Errorf("fps %.2f must be in [0.1, 30]", c.FPS)
	}

	switch c.Resolution {
	case "":
		c.Resolution = "720p"
	case "512p", "720p", "1080p":
	default:
		return fmt.Errorf("unknown resolution %q (must be 512p, 720p or 1080p)", c.Resolution)
	}

	switch c.Acceleration {
	case "":
		c.Acceleration = "auto"
	case "auto", "vaapi", "software":
	default:
		return fmt.Errorf("unknown acceleration %q", c.Acceleration)
	}

	cells := cfg.Layout.Rows * cfg.Layout.Cols
	if len(c.Routes) == 0 {
		c.Routes = defaultRoutes(c.Source, cells)
	}
	for stream, idx := range c.Routes {
		if idx < 0 || idx >= cells {
			return fmt.Errorf("route %q -> cell %d out of range [0, %d)", stream, idx, cells)
		}
	}

	return nil
}

// defaultRoutes sends the synthetic color/depth streams to cells 0 and 1 and
// a single RTSP stream to cell 0, skipping cells the layout lacks.
func defaultRoutes(source string, cells int) map[string]int {
	names := []string{"color", "depth"}
	if source == "rtsp" {
		names = []string{"rtsp"}
	}

	routes := make(map[string]int, len(names))
	for i, name := range names {
		if i < cells {
			routes[name] = i
		}
	}
	return routes
}
