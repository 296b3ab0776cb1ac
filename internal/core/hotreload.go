package core

import (
	"log/slog"
	"reflect"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/config"
)

// ApplyConfig applies a reloaded configuration to the running service.
//
// Hot-reloadable: watched keys, capture FPS, stream routes. Window, layout,
// source and telemetry changes need a restart; they are logged and ignored.
func (s *Service) ApplyConfig(next *config.Config) {
	s.mu.Lock()
	prev := s.cfg
	s.cfg = next
	s.mu.Unlock()

	if prev.Window != next.Window || !reflect.DeepEqual(prev.Layout, next.Layout) {
		slog.Warn("core: window/layout changes require a restart, ignoring them")
	}
	if prev.Capture.Source != next.Capture.Source || prev.Capture.RTSPURL != next.Capture.RTSPURL {
		slog.Warn("core: capture source changes require a restart, ignoring them")
	}
	if prev.Telemetry != next.Telemetry {
		slog.Warn("core: telemetry changes require a restart, ignoring them")
	}

	if !reflect.DeepEqual(prev.Keys, next.Keys) {
		s.setKeys(next.WatchedKeys())
		slog.Info("core: watched keys updated", "keys", next.Keys)
	}

	if s.source == nil {
		return
	}

	if prev.Capture.FPS != next.Capture.FPS {
		if err := s.source.SetTargetFPS(next.Capture.FPS); err != nil {
			slog.Error("core: failed to update capture FPS", "error", err, "fps", next.Capture.FPS)
		}
	}

	if !reflect.DeepEqual(prev.Capture.Routes, next.Capture.Routes) {
		s.pump.SetRoutes(next.Capture.Routes)
		slog.Info("core: capture routes updated", "routes", next.Capture.Routes)
	}
}
