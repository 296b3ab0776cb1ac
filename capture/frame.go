package capture

import (
	"fmt"
	"strings"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// Frame represents a single captured frame with metadata
type Frame struct {
	// Seq is the monotonic sequence number within its stream
	Seq uint64
	// Timestamp is when the frame was captured/decoded
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Format of each pixel in Data
	Format types.PixelFormat
	// Data contains the pixel rows (owned by the receiver)
	Data []byte
	// SourceStream identifies the stream (e.g., "color", "depth", "rtsp")
	SourceStream string
	// TraceID is a unique identifier for distributed tracing
	TraceID string
}

// Image returns the frame as a portal frame (packed rows).
func (f Frame) Image() types.Frame {
	return types.Frame{
		Width:  f.Width,
		Height: f.Height,
		Format: f.Format,
		Data:   f.Data,
	}
}

// Stats contains current source statistics
type Stats struct {
	// FrameCount is the total number of frames captured
	FrameCount uint64
	// FramesDropped is the total number of frames dropped (channel full)
	FramesDropped uint64
	// DropRate is the percentage of frames dropped (0-100)
	DropRate float64
	// FPSTarget is the configured target FPS
	FPSTarget float64
	// FPSReal is the measured real FPS
	FPSReal float64
	// LatencyMS is the time since last frame in milliseconds
	LatencyMS int64
	// Resolution is the frame resolution (e.g., "1280x720")
	Resolution string
	// Reconnects is the number of reconnection attempts
	Reconnects uint32
	// BytesRead is the total bytes read from the source
	BytesRead uint64
	// IsConnected indicates if the source is currently producing
	IsConnected bool

	// Error telemetry (RTSP only)
	ErrorsNetwork uint64
	ErrorsCodec   uint64
	ErrorsAuth    uint64
	ErrorsUnknown uint64
}

// dropRate returns dropped / (captured + dropped) as a percentage.
func dropRate(captured, dropped uint64) float64 {
	total := captured + dropped
	if total == 0 {
		return 0
	}
	return float64(dropped) / float64(total) * 100.0
}

// Resolution represents supported video resolutions
type Resolution int

const (
	// Res512p represents 910x512 resolution
	Res512p Resolution = iota
	// Res720p represents 1280x720 resolution (HD)
	Res720p
	// Res1080p represents 1920x1080 resolution (Full HD)
	Res1080p
)

// Dimensions returns the width and height for the resolution
func (r Resolution) Dimensions() (width, height int) {
	switch r {
	case Res512p:
		return 910, 512
	case Res1080p:
		return 1920, 1080
	default:
		return 1280, 720
	}
}

func (r Resolution) String() string {
	switch r {
	case Res512p:
		return "512p"
	case Res1080p:
		return "1080p"
	default:
		return "720p"
	}
}

// ParseResolution maps "512p", "720p" or "1080p" to a Resolution.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(s) {
	case "512p":
		return Res512p, nil
	case "720p", "":
		return Res720p, nil
	case "1080p":
		return Res1080p, nil
	default:
		return 0, fmt.Errorf("capture: unknown resolution %q", s)
	}
}

// HardwareAccel selects the decoder used by the RTSP pipeline
type HardwareAccel int

const (
	// AccelAuto tries VAAPI first and falls back to software
	AccelAuto HardwareAccel = iota
	// AccelVAAPI requires VAAPI (fails fast when unavailable)
	AccelVAAPI
	// AccelSoftware forces avdec_h264
	AccelSoftware
)

func (a HardwareAccel) String() string {
	switch a {
	case AccelVAAPI:
		return "vaapi"
	case AccelSoftware:
		return "software"
	default:
		return "auto"
	}
}

// ParseAccel maps "auto", "vaapi" or "software" to a HardwareAccel.
func ParseAccel(s string) (HardwareAccel, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return AccelAuto, nil
	case "vaapi":
		return AccelVAAPI, nil
	case "software":
		return AccelSoftware, nil
	default:
		return 0, fmt.Errorf("capture: unknown acceleration %q", s)
	}
}
