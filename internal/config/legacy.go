package config

import (
	"strconv"
	"strings"
)

// parseLegacy applies a params file in the historical format:
//
//	# comment
//	window_width = 1280
//	window_height = 720
//	panel_width = 200
//
// Unknown keys and lines without '=' are skipped; a value that is not an
// integer leaves the field unchanged.
func parseLegacy(data string, cfg *Config) {
	for _, line := range strings.Split(data, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "window_width":
			setInt(value, &cfg.Window.Width)
		case "window_height":
			setInt(value, &cfg.Window.Height)
		case "panel_width":
			setInt(value, &cfg.Window.PanelWidth)
		}
	}
}

func setInt(s string, out *int) {
	if v, err := strconv.Atoi(s); err == nil {
		*out = v
	}
}
