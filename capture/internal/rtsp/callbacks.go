package rtsp

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/capture"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// Counters are the statistics shared between the appsink callback and the
// owning stream.
type Counters struct {
	Frames      atomic.Uint64
	Dropped     atomic.Uint64
	BytesRead   atomic.Uint64
	LastFrameAt atomic.Int64 // UnixNano of the last delivered frame
}

// CallbackContext holds state needed by GStreamer callbacks
type CallbackContext struct {
	FrameChan    chan<- capture.Frame
	Counters     *Counters
	Width        int
	Height       int
	SourceStream string
}

// OnNewSample is called by GStreamer when a new frame is available
//
// This callback:
//  1. Pulls the sample from the appsink
//  2. Copies the mapped buffer (GStreamer reuses it)
//  3. Sends an RGB8 frame to the channel (non-blocking, drops if full)
//
// A bad sample is skipped; the stream keeps running (always FlowOK).
func OnNewSample(sink *app.Sink, ctx *CallbackContext) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("rtsp: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("rtsp: failed to get buffer from sample, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("rtsp: empty buffer received")
		return gst.FlowOK
	}

	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	return deliver(ctx, frameData)
}

// deliver wraps data in a frame and sends it without blocking.
func deliver(ctx *CallbackContext, data []byte) gst.FlowReturn {
	seq := ctx.Counters.Frames.Add(1)
	ctx.Counters.BytesRead.Add(uint64(len(data)))

	frame := capture.Frame{
		Seq:          seq,
		Timestamp:    time.Now(),
		Width:        ctx.Width,
		Height:       ctx.Height,
		Format:       types.RGB8,
		Data:         data,
		SourceStream: ctx.SourceStream,
		TraceID:      uuid.New().String(),
	}

	select {
	case ctx.FrameChan <- frame:
		ctx.Counters.LastFrameAt.Store(frame.Timestamp.UnixNano())
		slog.Debug("rtsp: frame sent",
			"seq", frame.Seq,
			"size_bytes", len(data),
			"trace_id", frame.TraceID,
		)
	default:
		ctx.Counters.Dropped.Add(1)
		slog.Debug("rtsp: dropping frame, channel full",
			"seq", frame.Seq,
			"trace_id", frame.TraceID,
		)
	}

	return gst.FlowOK
}

// OnPadAdded links a dynamic rtspsrc pad to the depayloader sink pad.
//
// rtspsrc pads are not known at pipeline creation time, so they are
// linked from the pad-added signal.
func OnPadAdded(srcPad *gst.Pad, depay *gst.Element) {
	slog.Debug("rtsp: pad-added signal received", "pad", srcPad.GetName())

	sinkPad := depay.GetStaticPad("sink")
	if sinkPad == nil {
		slog.Error("rtsp: failed to get sink pad from rtph264depay")
		return
	}

	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		slog.Error("rtsp: failed to link pads",
			"src_pad", srcPad.GetName(),
			"sink_pad", sinkPad.GetName(),
			"ret", ret,
		)
		return
	}

	slog.Debug("rtsp: pads linked successfully",
		"src_pad", srcPad.GetName(),
		"sink_pad", sinkPad.GetName(),
	)
}
