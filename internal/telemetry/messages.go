package telemetry

import (
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/capture"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/portal"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// StatsMessage is the payload of <prefix>/stats
type StatsMessage struct {
	PortalID       string        `msgpack:"portal_id"`
	Timestamp      int64         `msgpack:"ts_ms"`
	UptimeMS       int64         `msgpack:"uptime_ms"`
	Steps          uint64        `msgpack:"steps"`
	RenderErrors   uint64        `msgpack:"render_errors"`
	FullscreenCell int           `msgpack:"fullscreen_cell"`
	KeyPresses     uint64        `msgpack:"key_presses"`
	KeyDeliveries  uint64        `msgpack:"key_deliveries"`
	Cells          []CellMessage `msgpack:"cells"`

	Capture *CaptureMessage `msgpack:"capture,omitempty"`
}

// CellMessage carries the counters of one cell
type CellMessage struct {
	Name     string `msgpack:"name"`
	Type     string `msgpack:"type"`
	Writes   uint64 `msgpack:"writes"`
	Reads    uint64 `msgpack:"reads"`
	Drops    uint64 `msgpack:"drops"`
	Rejected uint64 `msgpack:"rejected"`
}

// CaptureMessage carries source and routing counters
type CaptureMessage struct {
	Frames     uint64  `msgpack:"frames"`
	Dropped    uint64  `msgpack:"dropped"`
	FPSTarget  float64 `msgpack:"fps_target"`
	FPSReal    float64 `msgpack:"fps_real"`
	Reconnects uint32  `msgpack:"reconnects"`
	Connected  bool    `msgpack:"connected"`
	Forwarded  uint64  `msgpack:"forwarded"`
	Unrouted   uint64  `msgpack:"unrouted"`
}

// KeyMessage is the payload of <prefix>/keys
type KeyMessage struct {
	PortalID  string `msgpack:"portal_id"`
	Key       string `msgpack:"key"`
	Timestamp int64  `msgpack:"ts_ms"`
}

// FromPortal converts a portal snapshot taken at now.
func FromPortal(s portal.Stats, now time.Time) StatsMessage {
	cells := make([]CellMessage, len(s.Cells))
	for i, c := range s.Cells {
		cells[i] = CellMessage{
			Name:     c.Name,
			Type:     c.Type.String(),
			Writes:   c.Writes,
			Reads:    c.Reads,
			Drops:    c.Drops,
			Rejected: c.Rejected,
		}
	}

	return StatsMessage{
		PortalID:       s.ID,
		Timestamp:      now.UnixMilli(),
		UptimeMS:       s.Uptime.Milliseconds(),
		Steps:          s.Steps,
		RenderErrors:   s.RenderErrors,
		FullscreenCell: s.FullscreenCell,
		KeyPresses:     s.KeyPresses,
		KeyDeliveries:  s.KeyDeliveries,
		Cells:          cells,
	}
}

// WithCapture attaches source and pump counters to m.
func (m StatsMessage) WithCapture(src capture.Stats, pump capture.PumpStats) StatsMessage {
	m.Capture = &CaptureMessage{
		Frames:     src.FrameCount,
		Dropped:    src.FramesDropped,
		FPSTarget:  src.FPSTarget,
		FPSReal:    src.FPSReal,
		Reconnects: src.Reconnects,
		Connected:  src.IsConnected,
		Forwarded:  pump.Forwarded,
		Unrouted:   pump.Unrouted,
	}
	return m
}

// NewKeyMessage builds the message for a press of k.
func NewKeyMessage(portalID string, k types.Key, now time.Time) KeyMessage {
	return KeyMessage{
		PortalID:  portalID,
		Key:       string(rune(k)),
		Timestamp: now.UnixMilli(),
	}
}
