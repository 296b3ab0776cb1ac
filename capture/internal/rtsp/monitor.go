package rtsp

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCounters holds one counter per ErrorCategory
type ErrorCounters struct {
	Network atomic.Uint64
	Codec   atomic.Uint64
	Auth    atomic.Uint64
	Unknown atomic.Uint64
}

// Record increments the counter of category.
func (c *ErrorCounters) Record(category ErrorCategory) {
	switch category {
	case ErrCategoryNetwork:
		c.Network.Add(1)
	case ErrCategoryCodec:
		c.Codec.Add(1)
	case ErrCategoryAuth:
		c.Auth.Add(1)
	default:
		c.Unknown.Add(1)
	}
}

// MonitorMetrics identifies the stream in monitor logs
type MonitorMetrics struct {
	RTSPURL    string
	Resolution string
	StartedAt  time.Time
	Counters   *Counters
}

// MonitorPipelineBus polls the pipeline bus until ctx is cancelled
//
// Returns an error on EOS or a pipeline error (triggers reconnection);
// nil on graceful shutdown. Reaching PLAYING resets the reconnect state.
func MonitorPipelineBus(
	ctx context.Context,
	pipeline *gst.Pipeline,
	errCounters *ErrorCounters,
	reconnect *ReconnectState,
	metrics MonitorMetrics,
) error {
	if pipeline == nil {
		return fmt.Errorf("pipeline not initialized")
	}

	bus := pipeline.GetPipelineBus()

	for {
		if ctx.Err() != nil {
			slog.Debug("rtsp: context cancelled, stopping pipeline monitor")
			return nil
		}

		// Short timeout keeps shutdown responsive
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("rtsp: end of stream received",
				"rtsp_url", metrics.RTSPURL,
				"uptime", time.Since(metrics.StartedAt),
				"frames_processed", metrics.Counters.Frames.Load(),
			)
			return fmt.Errorf("end of stream")

		case gst.MessageError:
			gerr := msg.ParseError()
			category := ClassifyGStreamerError(gerr)
			errCounters.Record(category)

			slog.Error("rtsp: pipeline error",
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
				"category", category.String(),
				"rtsp_url", metrics.RTSPURL,
				"resolution", metrics.Resolution,
				"uptime", time.Since(metrics.StartedAt),
				"frames_processed", metrics.Counters.Frames.Load(),
				"reconnects", reconnect.Reconnects.Load(),
			)
			return fmt.Errorf("pipeline error [%s]: %s", category, gerr.Error())

		case gst.MessageStateChanged:
			if msg.Source() != pipeline.GetName() {
				continue
			}
			old, next := msg.ParseStateChanged()
			slog.Debug("rtsp: pipeline state changed", "from", old, "to", next)
			if next == gst.StatePlaying {
				reconnect.Reset()
				slog.Info("rtsp: pipeline playing, reconnect state reset")
			}
		}
	}
}
