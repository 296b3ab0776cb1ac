package main

import (
	"fmt"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/capture"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/capture/rtsp"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/config"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/core"
)

// newSource adds the GStreamer RTSP source to the synthetic one.
func newSource(cfg config.CaptureConfig) (capture.Source, error) {
	if cfg.Source != "rtsp" {
		return core.SyntheticSource(cfg)
	}

	res, err := capture.ParseResolution(cfg.Resolution)
	if err != nil {
		return nil, err
	}
	accel, err := capture.ParseAccel(cfg.Acceleration)
	if err != nil {
		return nil, err
	}

	src, err := rtsp.New(rtsp.Config{
		URL:                   cfg.RTSPURL,
		Resolution:            res,
		TargetFPS:             cfg.FPS,
		SourceStream:          rtsp.DefaultStreamName,
		Acceleration:          accel,
		ReconnectInitialDelay: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create RTSP source: %w", err)
	}
	return src, nil
}
