// Package rtsp builds and supervises the GStreamer pipeline behind the RTSP
// source: element construction, appsink callbacks, bus monitoring, error
// classification and reconnection backoff.
package rtsp

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/capture"
)

// PipelineConfig contains configuration for GStreamer pipeline creation
type PipelineConfig struct {
	RTSPURL      string
	Width        int
	Height       int
	TargetFPS    float64
	Acceleration capture.HardwareAccel
}

// PipelineElements holds references to GStreamer pipeline elements
// needed for hot-reload, pad linking and cleanup.
type PipelineElements struct {
	Pipeline   *gst.Pipeline
	AppSink    *app.Sink
	CapsFilter *gst.Element
	RTSPSrc    *gst.Element
	Depay      *gst.Element
	UsingVAAPI bool
}

// decodeChain is the run of elements between the depayloader and videorate.
type decodeChain struct {
	elements []*gst.Element
	vaapi    bool
}

// CreatePipeline creates and configures a GStreamer pipeline for RTSP streaming
//
// Pipeline structure (software):
//
//	rtspsrc → rtph264depay → avdec_h264 → videoconvert → videoscale →
//	videorate → capsfilter → appsink
//
// With VAAPI the decoder is vaapih264dec → vaapipostproc (GPU scaling)
// followed by videoconvert and an RGB capsfilter.
//
// The pipeline is configured but NOT started (state remains NULL).
func CreatePipeline(cfg PipelineConfig) (*PipelineElements, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	// protocols=4 (TCP only) required for go2rtc compatibility
	rtspsrc, err := gst.NewElement("rtspsrc")
	if err != nil {
		return nil, fmt.Errorf("failed to create rtspsrc: %w", err)
	}
	rtspsrc.SetProperty("location", cfg.RTSPURL)
	rtspsrc.SetProperty("protocols", 4)
	rtspsrc.SetProperty("latency", sourceLatency(cfg.TargetFPS))
	rtspsrc.SetProperty("buffer-mode", 3)
	rtspsrc.SetProperty("ntp-sync", false)
	rtspsrc.SetProperty("tcp-timeout", uint64(10000000)) // 10s

	depay, err := gst.NewElement("rtph264depay")
	if err != nil {
		return nil, fmt.Errorf("failed to create rtph264depay: %w", err)
	}
	// Faster recovery after packet loss
	depay.SetProperty("request-keyframe", true)

	chain, err := newDecodeChain(cfg)
	if err != nil {
		return nil, err
	}

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, fmt.Errorf("failed to create videorate: %w", err)
	}
	videorate.SetProperty("drop-only", true)
	videorate.SetProperty("skip-to-first", true)
	if cfg.TargetFPS <= 2.0 {
		// Immediate drop decisions, no smoothing window
		videorate.SetProperty("average-period", uint64(0))
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(buildFramerateCaps(cfg.Width, cfg.Height, cfg.TargetFPS)))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1) // Keep only latest frame
	appsink.SetProperty("drop", true)
	appsink.SetProperty("qos", true) // Upstream drops before decoding

	linked := append([]*gst.Element{depay}, chain.elements...)
	linked = append(linked, videorate, capsfilter, appsink.Element)

	if err := pipeline.AddMany(append([]*gst.Element{rtspsrc}, linked...)...); err != nil {
		return nil, fmt.Errorf("failed to add pipeline elements: %w", err)
	}
	// rtspsrc has dynamic pads, linked in OnPadAdded
	if err := gst.ElementLinkMany(linked...); err != nil {
		return nil, fmt.Errorf("failed to link pipeline elements: %w", err)
	}

	slog.Info("rtsp: pipeline created",
		"acceleration", cfg.Acceleration.String(),
		"vaapi", chain.vaapi,
		"resolution", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"target_fps", cfg.TargetFPS,
	)

	return &PipelineElements{
		Pipeline:   pipeline,
		AppSink:    appsink,
		CapsFilter: capsfilter,
		RTSPSrc:    rtspsrc,
		Depay:      depay,
		UsingVAAPI: chain.vaapi,
	}, nil
}

// sourceLatency returns the rtspsrc jitter buffer in ms: minimal for low
// rates, larger for stability above 2 FPS.
func sourceLatency(fps float64) int {
	if fps <= 2.0 {
		return 50
	}
	return 200
}

func newDecodeChain(cfg PipelineConfig) (decodeChain, error) {
	switch cfg.Acceleration {
	case capture.AccelVAAPI:
		chain, err := newVAAPIChain(cfg)
		if err != nil {
			return decodeChain{}, fmt.Errorf("VAAPI required: %w", err)
		}
		return chain, nil

	case capture.AccelAuto:
		chain, err := newVAAPIChain(cfg)
		if err == nil {
			return chain, nil
		}
		slog.Warn("rtsp: VAAPI unavailable, using software decoder", "error", err)
		return newSoftwareChain(cfg)

	case capture.AccelSoftware:
		return newSoftwareChain(cfg)

	default:
		return decodeChain{}, fmt.Errorf("invalid acceleration mode: %d", cfg.Acceleration)
	}
}

func newVAAPIChain(cfg PipelineConfig) (decodeChain, error) {
	decoder, err := gst.NewElement("vaapih264dec")
	if err != nil {
		return decodeChain{}, fmt.Errorf("failed to create vaapih264dec: %w", err)
	}
	decoder.SetProperty("low-latency", true)
	if cfg.TargetFPS < 6.0 {
		decoder.SetProperty("output-corrupt", false)
	}

	// GPU scaling to the target resolution
	postproc, err := gst.NewElement("vaapipostproc")
	if err != nil {
		return decodeChain{}, fmt.Errorf("failed to create vaapipostproc: %w", err)
	}
	postproc.SetProperty("format", "nv12")
	postproc.SetProperty("width", cfg.Width)
	postproc.SetProperty("height", cfg.Height)
	postproc.SetProperty("scale-method", 2)

	converter, err := newConverter()
	if err != nil {
		return decodeChain{}, err
	}

	// RGB lock before videorate, avoids caps negotiation issues
	capsRGB, err := gst.NewElement("capsfilter")
	if err != nil {
		return decodeChain{}, fmt.Errorf("failed to create RGB capsfilter: %w", err)
	}
	capsRGB.SetProperty("caps", gst.NewCapsFromString(
		fmt.Sprintf("video/x-raw,format=RGB,width=%d,height=%d", cfg.Width, cfg.Height),
	))

	return decodeChain{
		elements: []*gst.Element{decoder, postproc, converter, capsRGB},
		vaapi:    true,
	}, nil
}

func newSoftwareChain(cfg PipelineConfig) (decodeChain, error) {
	decoder, err := gst.NewElement("avdec_h264")
	if err != nil {
		return decodeChain{}, fmt.Errorf("failed to create avdec_h264: %w", err)
	}
	decoder.SetProperty("max-threads", 0)
	decoder.SetProperty("output-corrupt", false)

	converter, err := newConverter()
	if err != nil {
		return decodeChain{}, err
	}

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return decodeChain{}, fmt.Errorf("failed to create videoscale: %w", err)
	}

	return decodeChain{elements: []*gst.Element{decoder, converter, scaler}}, nil
}

func newConverter() (*gst.Element, error) {
	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}
	converter.SetProperty("n-threads", 0) // auto-detect cores
	converter.SetProperty("dither", 0)
	converter.SetProperty("chroma-mode", 0)
	return converter, nil
}

// UpdateFramerateCaps updates the capsfilter framerate (hot-reload).
//
// Causes roughly 2 seconds of interruption while GStreamer renegotiates.
func UpdateFramerateCaps(capsfilter *gst.Element, fps float64, width, height int) error {
	if capsfilter == nil {
		return fmt.Errorf("capsfilter is nil")
	}
	return capsfilter.SetProperty("caps", gst.NewCapsFromString(buildFramerateCaps(width, height, fps)))
}

// DestroyPipeline sets the pipeline to NULL, releasing its resources.
// Safe to call with nil.
func DestroyPipeline(elements *PipelineElements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}
	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}
	return nil
}

// CheckAvailable verifies GStreamer can create elements, and the VAAPI
// elements as well when vaapi is set.
func CheckAvailable(vaapi bool) error {
	gst.Init(nil)

	names := []string{"fakesrc"}
	if vaapi {
		names = append(names, "vaapih264dec", "vaapipostproc")
	}
	for _, name := range names {
		elem, err := gst.NewElement(name)
		if err != nil {
			return fmt.Errorf("element %s not available: %w", name, err)
		}
		elem.SetState(gst.StateNull)
	}
	return nil
}

// buildFramerateCaps builds the final caps string
//
// Fractional rates below 1 FPS become 1/N (0.5 → 1/2); others N/1.
func buildFramerateCaps(width, height int, fps float64) string {
	numerator, denominator := 1, 1
	if fps < 1.0 {
		denominator = int(1.0/fps + 0.5)
	} else {
		numerator = int(fps)
	}

	return fmt.Sprintf(
		"video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/%d",
		width, height, numerator, denominator,
	)
}
