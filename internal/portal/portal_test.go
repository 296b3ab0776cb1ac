package portal_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/portal"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/viewport"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/window"
)

// =============================================================================
// Fakes
// =============================================================================

// fakeWindow is a Window whose input is injected by the test.
type fakeWindow struct {
	mu sync.Mutex

	panel   *window.Panel
	keys    map[types.Key][]func()
	mouse   []window.MouseFunc
	pending []types.Key

	quit              bool
	destroyed         bool
	presents          int
	consoleToggles    int
	fullscreenToggles int
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{panel: window.NewPanel(), keys: make(map[types.Key][]func())}
}

func (w *fakeWindow) factory() window.Factory {
	return func(types.Params) (window.Window, error) { return w, nil }
}

func (w *fakeWindow) NewView(name string, aspect float64, bounds types.Bounds) *window.View {
	return window.NewView(name, aspect, bounds)
}

func (w *fakeWindow) Panel() *window.Panel { return w.panel }

func (w *fakeWindow) OnKeyPress(key types.Key, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keys[key] = append(w.keys[key], fn)
}

func (w *fakeWindow) OnMouse(fn window.MouseFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mouse = append(w.mouse, fn)
}

func (w *fakeWindow) ShouldQuit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.quit
}

func (w *fakeWindow) Present() error {
	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	var fns []func()
	for _, k := range pending {
		fns = append(fns, w.keys[k]...)
	}
	w.presents++
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	time.Sleep(time.Millisecond)
	return nil
}

func (w *fakeWindow) ToggleFullscreen() {
	w.mu.Lock()
	w.fullscreenToggles++
	w.mu.Unlock()
}

func (w *fakeWindow) ToggleConsole() {
	w.mu.Lock()
	w.consoleToggles++
	w.mu.Unlock()
}

func (w *fakeWindow) Destroy() {
	w.mu.Lock()
	w.destroyed = true
	w.mu.Unlock()
}

func (w *fakeWindow) press(k types.Key) {
	w.mu.Lock()
	w.pending = append(w.pending, k)
	w.mu.Unlock()
}

func (w *fakeWindow) hasListener(k types.Key) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.keys[k]) > 0
}

type windowState struct {
	quit              bool
	destroyed         bool
	presents          int
	consoleToggles    int
	fullscreenToggles int
}

func (w *fakeWindow) snapshot() windowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return windowState{
		quit:              w.quit,
		destroyed:         w.destroyed,
		presents:          w.presents,
		consoleToggles:    w.consoleToggles,
		fullscreenToggles: w.fullscreenToggles,
	}
}

// fakeViewport records what the portal hands it.
type fakeViewport struct {
	mu sync.Mutex

	name       string
	view       *window.View
	fill       byte // Expected uniform byte of every frame (0 = unchecked)
	handlesKey bool
	panicOn    int // Render call that panics (0 = never)

	frames   int
	lastSeq  uint64
	torn     bool
	renders  int
	keyCalls []types.Key
	closed   bool
}

func (v *fakeViewport) Name() string        { return v.name }
func (v *fakeViewport) View() *window.View  { return v.view }
func (v *fakeViewport) Setup(*window.Panel) {}
func (v *fakeViewport) Visible() bool       { return true }
func (v *fakeViewport) Update()             {}

func (v *fakeViewport) SetFrame(f types.FrameView) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.frames++
	if f.Seq < v.lastSeq {
		v.torn = true
	}
	v.lastSeq = f.Seq
	if v.fill != 0 && !bytes.Equal(f.Data, bytes.Repeat([]byte{v.fill}, len(f.Data))) {
		v.torn = true
	}
}

func (v *fakeViewport) Render() error {
	v.mu.Lock()
	v.renders++
	n := v.renders
	v.mu.Unlock()

	if v.panicOn != 0 && n == v.panicOn {
		panic("render exploded")
	}
	return nil
}

func (v *fakeViewport) OnKeyPress(k types.Key) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keyCalls = append(v.keyCalls, k)
	return v.handlesKey
}

func (v *fakeViewport) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

func (v *fakeViewport) state() (frames int, torn bool, keys []types.Key, closed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames, v.torn, append([]types.Key(nil), v.keyCalls...), v.closed
}

// fakeViewports builds fakeViewport instances and remembers them by index.
type fakeViewports struct {
	mu    sync.Mutex
	built []*fakeViewport

	configure func(i int, v *fakeViewport)
}

func (f *fakeViewports) factory(cell types.CellType, name string, view *window.View) (viewport.Viewport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := &fakeViewport{name: name, view: view}
	if f.configure != nil {
		f.configure(len(f.built), v)
	}
	f.built = append(f.built, v)
	return v, nil
}

func (f *fakeViewports) get(i int) *fakeViewport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.built[i]
}

func newFakePortal(t *testing.T, cells []types.CellType, vps *fakeViewports) (*portal.Portal, *fakeWindow) {
	t.Helper()

	win := newFakeWindow()
	p, err := portal.New(portal.Config{
		Rows:            1,
		Cols:            len(cells),
		Cells:           cells,
		Params:          types.DefaultParams(),
		WindowFactory:   win.factory(),
		ViewportFactory: vps.factory,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, win
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func uniformFrame(w, h int, fill byte) types.Frame {
	return types.Frame{Width: w, Height: h, Format: types.RGB8, Data: bytes.Repeat([]byte{fill}, w*h*3)}
}

// =============================================================================
// Construction
// =============================================================================

// --- Test 1: Invalid layouts never start a window ---
//
// Contract: grid/cell mismatches and unknown cell types fail with
// ErrInvalidArgument before the render goroutine is spawned.
func TestNewInvalidArgument(t *testing.T) {
	tests := []struct {
		name  string
		rows  int
		cols  int
		cells []types.CellType
	}{
		{"zero rows", 0, 1, []types.CellType{types.ColorImage}},
		{"negative cols", 1, -1, []types.CellType{types.ColorImage}},
		{"too few cells", 2, 2, []types.CellType{types.ColorImage, types.Plot}},
		{"too many cells", 1, 1, []types.CellType{types.ColorImage, types.Plot}},
		{"unknown type", 1, 1, []types.CellType{types.CellType(42)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			_, err := portal.New(portal.Config{
				Rows:   tt.rows,
				Cols:   tt.cols,
				Cells:  tt.cells,
				Params: types.DefaultParams(),
				WindowFactory: func(types.Params) (window.Window, error) {
					called = true
					return newFakeWindow(), nil
				},
			})
			if !errors.Is(err, types.ErrInvalidArgument) {
				t.Fatalf("New() error = %v, want ErrInvalidArgument", err)
			}
			if called {
				t.Error("window factory called for invalid layout")
			}
		})
	}
}

// --- Test 2: Setup failures surface as ErrInitialization ---
//
// Scenario:
//  1. Window factory fails -> ErrInitialization, nothing to release
//  2. Viewport factory fails on cell 1 -> window destroyed, viewport 0 closed
//  3. Viewport factory panics -> ErrInitialization, window destroyed
func TestNewInitializationFailure(t *testing.T) {
	t.Run("window", func(t *testing.T) {
		boom := errors.New("no display")
		_, err := portal.New(portal.Config{
			Rows:          1,
			Cols:          1,
			Cells:         []types.CellType{types.Plot},
			Params:        types.DefaultParams(),
			WindowFactory: func(types.Params) (window.Window, error) { return nil, boom },
		})
		if !errors.Is(err, types.ErrInitialization) || !errors.Is(err, boom) {
			t.Fatalf("New() error = %v, want ErrInitialization wrapping %v", err, boom)
		}
	})

	t.Run("viewport", func(t *testing.T) {
		win := newFakeWindow()
		var first *fakeViewport
		_, err := portal.New(portal.Config{
			Rows:          1,
			Cols:          2,
			Cells:         []types.CellType{types.ColorImage, types.Plot},
			Params:        types.DefaultParams(),
			WindowFactory: win.factory(),
			ViewportFactory: func(cell types.CellType, name string, view *window.View) (viewport.Viewport, error) {
				if first == nil {
					first = &fakeViewport{name: name, view: view}
					return first, nil
				}
				return nil, errors.New("no plot backend")
			},
		})
		if !errors.Is(err, types.ErrInitialization) {
			t.Fatalf("New() error = %v, want ErrInitialization", err)
		}
		if !win.snapshot().destroyed {
			t.Error("window not destroyed after failed setup")
		}
		if _, _, _, closed := first.state(); !closed {
			t.Error("viewport 0 not closed after failed setup")
		}
	})

	t.Run("panic", func(t *testing.T) {
		win := newFakeWindow()
		_, err := portal.New(portal.Config{
			Rows:          1,
			Cols:          1,
			Cells:         []types.CellType{types.Reconstruction},
			Params:        types.DefaultParams(),
			WindowFactory: win.factory(),
			ViewportFactory: func(types.CellType, string, *window.View) (viewport.Viewport, error) {
				panic("driver crashed")
			},
		})
		if !errors.Is(err, types.ErrInitialization) {
			t.Fatalf("New() error = %v, want ErrInitialization", err)
		}
		if !win.snapshot().destroyed {
			t.Error("window not destroyed after setup panic")
		}
	})
}

// =============================================================================
// Frame hand-off
// =============================================================================

// --- Test 3: UpdateFrame reaches the viewport of that cell ---
func TestUpdateFrameReachesViewport(t *testing.T) {
	vps := &fakeViewports{configure: func(i int, v *fakeViewport) { v.fill = 7 }}
	p, _ := newFakePortal(t, []types.CellType{types.ColorImage}, vps)

	p.UpdateFrame(0, uniformFrame(8, 4, 7))

	eventually(t, "frame delivered", func() bool {
		frames, _, _, _ := vps.get(0).state()
		return frames > 0
	})

	if _, torn, _, _ := vps.get(0).state(); torn {
		t.Error("viewport observed a frame that was not written")
	}

	st := p.Stats()
	if st.Cells[0].Writes != 1 || !st.Cells[0].HasSlot {
		t.Errorf("cell stats = %+v, want 1 write on an image slot", st.Cells[0])
	}
	t.Logf("✅ frame delivered after %d steps", st.Steps)
}

// --- Test 4: Frames for non-image or missing cells are ignored ---
func TestUpdateFrameIgnored(t *testing.T) {
	vps := &fakeViewports{}
	p, _ := newFakePortal(t, []types.CellType{types.Plot, types.Reconstruction}, vps)

	p.UpdateFrame(0, uniformFrame(2, 2, 1))
	p.UpdateFrame(1, uniformFrame(2, 2, 1))
	p.UpdateFrame(-1, uniformFrame(2, 2, 1))
	p.UpdateFrame(2, uniformFrame(2, 2, 1))

	time.Sleep(20 * time.Millisecond)

	for i := 0; i < 2; i++ {
		if frames, _, _, _ := vps.get(i).state(); frames != 0 {
			t.Errorf("viewport %d got %d frames, want 0", i, frames)
		}
	}
	for _, c := range p.Stats().Cells {
		if c.HasSlot || c.Writes != 0 {
			t.Errorf("cell %d stats = %+v, want no slot", c.Index, c)
		}
	}
}

// --- Test 5: Concurrent producers on distinct cells never mix ---
//
// Scenario:
//  1. 4 image cells, one producer per cell
//  2. Producer i writes uniform frames filled with byte i+1
//  3. Every frame any viewport sees must be uniform with its own fill
func TestConcurrentProducers(t *testing.T) {
	const cells = 4
	const writes = 200

	vps := &fakeViewports{configure: func(i int, v *fakeViewport) { v.fill = byte(i + 1) }}
	types4 := []types.CellType{types.ColorImage, types.DepthImage, types.ColorImage, types.DepthImage}
	p, _ := newFakePortal(t, types4, vps)

	var wg sync.WaitGroup
	for i := 0; i < cells; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < writes; n++ {
				p.UpdateFrame(i, uniformFrame(32, 16, byte(i+1)))
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < cells; i++ {
		v := vps.get(i)
		eventually(t, "frame observed", func() bool {
			frames, _, _, _ := v.state()
			return frames > 0
		})
		if _, torn, _, _ := v.state(); torn {
			t.Errorf("cell %d observed a torn or foreign frame", i)
		}
	}

	for _, c := range p.Stats().Cells {
		if c.Writes != writes {
			t.Errorf("cell %d writes = %d, want %d", c.Index, c.Writes, writes)
		}
	}
}

// =============================================================================
// Keys
// =============================================================================

// --- Test 6: Watched keys are delivered once ---
//
// Scenario:
//  1. SetKeysToWatch(['a'])
//  2. Wait for the render goroutine to install the listener
//  3. Press 'a' -> one CheckKey hit, then false
//  4. Press unwatched 'z' -> never reported
func TestKeyFlow(t *testing.T) {
	vps := &fakeViewports{}
	p, win := newFakePortal(t, []types.CellType{types.Plot}, vps)

	p.SetKeysToWatch([]types.Key{'a'})
	eventually(t, "listener for 'a'", func() bool { return win.hasListener('a') })

	win.press('a')
	win.press('z')

	eventually(t, "key 'a' delivered", func() bool { return p.CheckKey('a') })

	time.Sleep(10 * time.Millisecond)
	if p.CheckKey('a') {
		t.Error("CheckKey('a') reported the same press twice")
	}
	if p.CheckKey('z') {
		t.Error("CheckKey('z') = true for an unwatched key")
	}

	st := p.Stats()
	if st.KeyDeliveries != 1 {
		t.Errorf("KeyDeliveries = %d, want 1", st.KeyDeliveries)
	}
	t.Logf("✅ presses=%d deliveries=%d", st.KeyPresses, st.KeyDeliveries)
}

// --- Test 7: Reserved keys drive the window and the viewports ---
func TestReservedKeys(t *testing.T) {
	vps := &fakeViewports{configure: func(i int, v *fakeViewport) { v.handlesKey = i == 1 }}
	p, win := newFakePortal(t, []types.CellType{types.Plot, types.Plot, types.Plot}, vps)

	win.press(types.KeyConsole)
	win.press(types.KeyFullscreen)
	win.press(types.KeyPause)

	eventually(t, "reserved keys dispatched", func() bool {
		s := win.snapshot()
		_, _, keys, _ := vps.get(1).state()
		return s.consoleToggles == 1 && s.fullscreenToggles == 1 && len(keys) == 1
	})

	_, _, first, _ := vps.get(0).state()
	_, _, third, _ := vps.get(2).state()
	if len(first) != 1 {
		t.Errorf("viewport 0 offered pause %d times, want 1", len(first))
	}
	if len(third) != 0 {
		t.Errorf("viewport 2 offered pause after viewport 1 handled it")
	}

	// Reserved keys are not reported through CheckKey unless watched
	if p.CheckKey(types.KeyPause) {
		t.Error("CheckKey('p') = true without watching it")
	}
}

// --- Test 8: Double-click toggles fullscreen on the clicked cell ---
//
// Scenario (software window 240x120, panel 40, 1x2 grid):
//  1. Two clicks inside cell 1 in the same frame -> cell 1 fullscreen
//  2. Two more clicks -> back to normal
func TestDoubleClickFullscreen(t *testing.T) {
	in := window.NewInput()
	p, err := portal.New(portal.Config{
		Rows:          1,
		Cols:          2,
		Cells:         []types.CellType{types.ColorImage, types.Plot},
		Params:        types.Params{WindowWidth: 240, WindowHeight: 120, PanelWidth: 40, Title: "test", RefreshHz: 200},
		WindowFactory: window.SoftFactory(window.WithInput(in)),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer p.Close()

	in.Click(90, 60)
	in.Click(90, 60)
	eventually(t, "cell 1 fullscreen", func() bool { return p.Stats().FullscreenCell == 1 })

	in.Click(90, 60)
	in.Click(90, 60)
	eventually(t, "fullscreen exited", func() bool { return p.Stats().FullscreenCell == 0 })
}

// Scenario: three double-clicks queued before one Present
//  1. (90,60) on cell 1 enters fullscreen on cell 1
//  2. (190,60) now lies inside fullscreen cell 1: exits
//  3. (190,60) again, back in the grid layout, hits cell 2: enters cell 2
//
// Clicks after a toggle must be hit-tested against the toggled layout.
func TestQueuedClicksFollowFullscreenLayout(t *testing.T) {
	in := window.NewInput()
	p, err := portal.New(portal.Config{
		Rows:          1,
		Cols:          2,
		Cells:         []types.CellType{types.ColorImage, types.Plot},
		Params:        types.Params{WindowWidth: 240, WindowHeight: 120, PanelWidth: 40, Title: "test", RefreshHz: 200},
		WindowFactory: window.SoftFactory(window.WithInput(in)),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer p.Close()

	for _, c := range [][2]int{{90, 60}, {90, 60}, {190, 60}, {190, 60}, {190, 60}, {190, 60}} {
		in.Click(c[0], c[1])
	}

	eventually(t, "cell 2 fullscreen", func() bool { return p.Stats().FullscreenCell == 2 })
	t.Logf("✅ queued double-clicks resolved against the current layout")
}

// =============================================================================
// Lifecycle
// =============================================================================

// --- Test 9: Closing the window latches ShouldQuit ---
func TestWindowCloseLatchesQuit(t *testing.T) {
	vps := &fakeViewports{}
	p, win := newFakePortal(t, []types.CellType{types.Plot}, vps)

	if p.ShouldQuit() {
		t.Fatal("ShouldQuit() = true right after New")
	}

	win.mu.Lock()
	win.quit = true
	win.mu.Unlock()

	eventually(t, "ShouldQuit", p.ShouldQuit)
	eventually(t, "window destroyed", func() bool { return win.snapshot().destroyed })

	if _, _, _, closed := vps.get(0).state(); !closed {
		t.Error("viewport not closed after window close")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

// --- Test 10: Close is idempotent and safe from several goroutines ---
func TestCloseIdempotent(t *testing.T) {
	vps := &fakeViewports{}
	p, win := newFakePortal(t, []types.CellType{types.ColorImage, types.Plot}, vps)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Close(); err != nil {
				t.Errorf("Close() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if !p.ShouldQuit() {
		t.Error("ShouldQuit() = false after Close")
	}
	if !win.snapshot().destroyed {
		t.Error("window not destroyed by Close")
	}

	// Calls after Close are harmless
	p.UpdateFrame(0, uniformFrame(2, 2, 1))
	p.SetKeysToWatch([]types.Key{'q'})
	if p.CheckKey('q') {
		t.Error("CheckKey after Close reported a press")
	}
	_ = p.Close()
}

// --- Test 11: A render panic stops the portal instead of crashing ---
func TestRenderPanicStopsPortal(t *testing.T) {
	vps := &fakeViewports{configure: func(i int, v *fakeViewport) { v.panicOn = 3 }}
	p, win := newFakePortal(t, []types.CellType{types.Plot}, vps)

	eventually(t, "ShouldQuit after panic", p.ShouldQuit)
	eventually(t, "window destroyed", func() bool { return win.snapshot().destroyed })

	if steps := p.Stats().Steps; steps != 2 {
		t.Errorf("Steps = %d, want 2 completed before the panic", steps)
	}
}
