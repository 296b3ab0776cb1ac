// Package core wires the viewportal binary: a portal on a software window,
// the capture pump feeding it, telemetry and config hot reload.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/capture"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/config"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/telemetry"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/window"
)

// SourceFactory builds the frame source for a capture configuration.
type SourceFactory func(cfg config.CaptureConfig) (capture.Source, error)

// Options customizes NewService
type Options struct {
	// Input feeds keyboard and mouse events to the window (default: new queue)
	Input *window.Input
	// NewSource builds the capture source (default: SyntheticSource)
	NewSource SourceFactory
	// PollInterval is the key polling period of Run (default: 20ms)
	PollInterval time.Duration
	// WindowOptions are appended to the software window options
	WindowOptions []window.SoftOption
}

// Service is the viewportal process
//
// Goroutine topology (besides the portal's render goroutine):
//
//	Run loop       polls quit + watched keys
//	pump           source frames → Portal.UpdateFrame
//	telemetry      periodic stats → MQTT
//	config watcher reloads → ApplyConfig
type Service struct {
	opts  Options
	input *window.Input

	portal  viewportal.Portal
	source  capture.Source
	pump    *capture.Pump
	emitter *telemetry.Emitter

	mu   sync.RWMutex
	cfg  *config.Config
	keys []types.Key

	keyEvents atomic.Uint64
	started   time.Time
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// SyntheticSource is the default SourceFactory: only the synthetic source
// is available without GStreamer.
func SyntheticSource(cfg config.CaptureConfig) (capture.Source, error) {
	if cfg.Source != "synthetic" {
		return nil, fmt.Errorf("source %q not available in this build", cfg.Source)
	}
	return capture.NewSynthetic(capture.SyntheticConfig{TargetFPS: cfg.FPS})
}

// NewService creates the portal and the capture source for cfg.
//
// The portal (and its window) exist when this returns; frames flow once
// Run is called.
func NewService(cfg *config.Config, opts Options) (*Service, error) {
	if opts.Input == nil {
		opts.Input = window.NewInput()
	}
	if opts.NewSource == nil {
		opts.NewSource = SyntheticSource
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 20 * time.Millisecond
	}

	cells, err := cfg.CellTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	softOpts := []window.SoftOption{window.WithInput(opts.Input)}
	if cfg.Snapshot.Dir != "" {
		softOpts = append(softOpts, window.WithSnapshots(cfg.Snapshot.Dir, cfg.Snapshot.Every))
	}
	softOpts = append(softOpts, opts.WindowOptions...)

	p, err := viewportal.New(cfg.Layout.Rows, cfg.Layout.Cols, cells, cfg.Params(),
		viewportal.WithWindowFactory(window.SoftFactory(softOpts...)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create portal: %w", err)
	}

	s := &Service{
		opts:    opts,
		input:   opts.Input,
		portal:  p,
		emitter: telemetry.New(cfg.Telemetry, "viewportal-"+p.ID()),
		cfg:     cfg,
	}
	s.setKeys(cfg.WatchedKeys())

	switch cfg.Capture.Source {
	case "", "none":
		slog.Info("core: no capture source configured")
	default:
		src, err := opts.NewSource(cfg.Capture)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create capture source: %w", err)
		}
		s.source = src
		s.pump = capture.NewPump(cfg.Capture.Routes)
	}

	slog.Info("core: service created",
		"portal_id", p.ID(),
		"layout", fmt.Sprintf("%dx%d", cfg.Layout.Rows, cfg.Layout.Cols),
		"source", cfg.Capture.Source,
		"telemetry", cfg.Telemetry.Broker != "",
	)

	return s, nil
}

// Portal returns the portal driven by the service.
func (s *Service) Portal() viewportal.Portal { return s.portal }

// Input returns the window input queue.
func (s *Service) Input() *window.Input { return s.input }

// KeyEvents returns how many watched key presses Run observed.
func (s *Service) KeyEvents() uint64 { return s.keyEvents.Load() }

func (s *Service) setKeys(keys []types.Key) {
	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()
	s.portal.SetKeysToWatch(keys)
}

func (s *Service) watchedKeys() []types.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys
}

// Run blocks until ctx is cancelled or the portal quits (window closed).
//
// Telemetry connection failures are logged; telemetry stays disabled.
func (s *Service) Run(ctx context.Context) error {
	s.started = time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.emitter.Connect(runCtx); err != nil {
		slog.Warn("core: telemetry unavailable, continuing without it", "error", err)
	}

	if s.source != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.pump.Run(runCtx, s.source, s.portal); err != nil {
				slog.Error("core: capture stopped", "error", err)
			}
		}()
	}

	if s.emitter.Enabled() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.emitter.Run(runCtx, s.collectStats)
		}()
	}

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	slog.Info("core: running", "portal_id", s.portal.ID())

loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		case <-ticker.C:
			if s.portal.ShouldQuit() {
				slog.Info("core: portal quit, stopping")
				break loop
			}
			s.pollKeys()
		}
	}

	cancel()
	s.wg.Wait()

	slog.Info("core: stopped",
		"uptime", time.Since(s.started),
		"key_events", s.keyEvents.Load(),
	)
	return nil
}

func (s *Service) pollKeys() {
	for _, k := range s.watchedKeys() {
		if !s.portal.CheckKey(k) {
			continue
		}
		s.keyEvents.Add(1)
		slog.Info("core: key pressed", "key", string(rune(k)))
		s.emitter.PublishKey(telemetry.NewKeyMessage(s.portal.ID(), k, time.Now()))
	}
}

func (s *Service) collectStats() telemetry.StatsMessage {
	msg := telemetry.FromPortal(s.portal.Stats(), time.Now())
	if s.source != nil {
		msg = msg.WithCapture(s.source.Stats(), s.pump.Stats())
	}
	return msg
}

// Shutdown closes the portal and disconnects telemetry. Idempotent.
// Call after Run returned.
func (s *Service) Shutdown() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.portal.Close()
		s.emitter.Disconnect()
		slog.Info("core: shutdown complete")
	})
	return err
}
