// Package portal implements the Portal: the owner of the per-cell frame
// slots, the key queue, the fullscreen state and the render goroutine.
//
// This package is INTERNAL - clients use the public viewportal package.
package portal

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/frameslot"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/fullscreen"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/keywatch"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/viewport"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/window"
)

// Config describes a portal to build.
type Config struct {
	// Rows and Cols shape the grid; Cells lists one type per cell, row-major.
	Rows  int
	Cols  int
	Cells []types.CellType

	// Params are the window parameters.
	Params types.Params

	// WindowFactory builds the window on the render goroutine
	// (nil = software window).
	WindowFactory window.Factory

	// ViewportFactory builds one viewport per cell (nil = viewport.New).
	ViewportFactory viewport.Factory
}

// Portal is the running display of one grid of cells.
//
// Goroutine topology:
//   - 1 fixed: renderLoop (spawned by New, joined by Close), OS-thread locked
//   - N external: producers calling UpdateFrame, the owner polling keys
//
// Thread-safety: all exported methods are safe for concurrent use.
type Portal struct {
	id  string
	log *slog.Logger
	cfg Config

	// --- Cross-goroutine state ---

	slots []*frameslot.Slot // One per cell; nil for non-image cells
	keys  *keywatch.Queue

	quit atomic.Bool // Set by Close, window close or a render failure

	initMu   sync.Mutex
	initCond *sync.Cond
	initDone bool
	initErr  error

	wg        sync.WaitGroup // Tracks renderLoop
	closeOnce sync.Once

	// --- Render goroutine only ---

	win       window.Window
	viewports []viewport.Viewport
	views     []*window.View
	fs        *fullscreen.Machine
	clicks    *fullscreen.DoubleClick

	// --- Operational Stats ---

	startedAt      time.Time
	steps          atomic.Uint64
	renderErrors   atomic.Uint64
	fullscreenCell atomic.Int32
}

// New validates cfg, spawns the render goroutine and blocks until it has
// created the window and viewports (or failed to).
//
// Errors:
//   - types.ErrInvalidArgument: bad grid or cell list; nothing was started
//   - types.ErrInitialization: window or viewport setup failed; the render
//     goroutine has already exited and released what it created
func New(cfg Config) (*Portal, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	if cfg.WindowFactory == nil {
		cfg.WindowFactory = window.SoftFactory()
	}
	if cfg.ViewportFactory == nil {
		cfg.ViewportFactory = viewport.New
	}
	cfg.Cells = append([]types.CellType(nil), cfg.Cells...)

	id := uuid.New().String()
	p := &Portal{
		id:        id,
		log:       slog.Default().With("portal_id", id),
		cfg:       cfg,
		slots:     make([]*frameslot.Slot, len(cfg.Cells)),
		keys:      keywatch.New(),
		startedAt: time.Now(),
	}
	p.initCond = sync.NewCond(&p.initMu)

	for i, c := range cfg.Cells {
		if c.HasImage() {
			p.slots[i] = frameslot.New()
		}
	}

	p.wg.Add(1)
	go p.renderLoop()

	if err := p.waitInit(); err != nil {
		p.wg.Wait()
		return nil, fmt.Errorf("%w: %w", types.ErrInitialization, err)
	}

	p.log.Info("viewportal: portal started",
		"rows", cfg.Rows,
		"cols", cfg.Cols,
		"cells", len(cfg.Cells),
		"title", cfg.Params.Title,
	)

	return p, nil
}

func validate(cfg Config) error {
	if cfg.Rows <= 0 || cfg.Cols <= 0 {
		return fmt.Errorf("%w: grid %dx%d must be positive", types.ErrInvalidArgument, cfg.Rows, cfg.Cols)
	}
	if len(cfg.Cells) != cfg.Rows*cfg.Cols {
		return fmt.Errorf("%w: %d cell types for a %dx%d grid", types.ErrInvalidArgument, len(cfg.Cells), cfg.Rows, cfg.Cols)
	}
	for i, c := range cfg.Cells {
		if !c.Valid() {
			return fmt.Errorf("%w: cell %d has unknown type %v", types.ErrInvalidArgument, i, c)
		}
	}
	return nil
}

// signalInit publishes the setup outcome to the goroutine blocked in New.
func (p *Portal) signalInit(err error) {
	p.initMu.Lock()
	p.initDone = true
	p.initErr = err
	p.initMu.Unlock()
	p.initCond.Broadcast()
}

func (p *Portal) waitInit() error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	for !p.initDone {
		p.initCond.Wait()
	}
	return p.initErr
}

// ID returns the portal session id (uuid).
func (p *Portal) ID() string {
	return p.id
}

// Cells returns the number of cells.
func (p *Portal) Cells() int {
	return len(p.cfg.Cells)
}

// UpdateFrame copies frame into the slot of cell index.
//
// Silently ignored for out-of-range indices, non-image cells and degenerate
// frames. Never blocks on the render goroutine; concurrent writers to the
// same index serialize on that slot (last lock holder wins).
func (p *Portal) UpdateFrame(index int, frame types.Frame) {
	if index < 0 || index >= len(p.slots) {
		return
	}
	if slot := p.slots[index]; slot != nil {
		slot.Write(frame)
	}
}

// ShouldQuit reports whether the portal stopped or is stopping
// (Close called, window closed, or render failure). Never blocks.
func (p *Portal) ShouldQuit() bool {
	return p.quit.Load()
}

// SetKeysToWatch replaces the watched keys. Takes effect at the next render
// iteration.
func (p *Portal) SetKeysToWatch(keys []types.Key) {
	p.keys.SetKeysToWatch(keys)
}

// CheckKey reports (once) whether key was pressed since the last call.
// Always false for keys that are not watched.
func (p *Portal) CheckKey(key types.Key) bool {
	return p.keys.CheckKey(key)
}

// Close stops the render goroutine and waits for it to release the window.
//
// Idempotent: safe to call multiple times and from several goroutines.
func (p *Portal) Close() error {
	p.closeOnce.Do(func() {
		p.quit.Store(true)

		// A render goroutine still in setup finishes it before noticing quit
		_ = p.waitInit()
		p.wg.Wait()

		p.log.Info("viewportal: portal closed",
			"steps", p.steps.Load(),
			"uptime", time.Since(p.startedAt).Round(time.Millisecond).String(),
		)
	})
	return nil
}
