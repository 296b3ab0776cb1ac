package portal

import (
	"fmt"
	"runtime"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/fullscreen"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/window"
)

// renderLoop owns the window for its entire life.
//
// Lifecycle:
//  1. Lock the OS thread (native toolkits bind their context to it)
//  2. setup: window, views, viewports, panel controls, input handlers
//  3. signalInit (unblocks New)
//  4. step until quit or window close
//  5. teardown: close viewports, destroy window
func (p *Portal) renderLoop() {
	defer p.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := p.setup(); err != nil {
		p.log.Error("viewportal: setup failed", "error", err)
		p.teardown()
		p.signalInit(err)
		return
	}
	p.signalInit(nil)

	p.log.Debug("viewportal: render loop started")

	for !p.quit.Load() {
		if p.win.ShouldQuit() {
			p.log.Info("viewportal: window closed")
			p.quit.Store(true)
			break
		}

		if err := p.step(); err != nil {
			p.log.Error("viewportal: render loop failed", "error", err, "steps", p.steps.Load())
			p.quit.Store(true)
			break
		}
	}

	p.teardown()
	p.log.Debug("viewportal: render loop exited", "steps", p.steps.Load())
}

func (p *Portal) setup() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during setup: %v", r)
		}
	}()

	win, err := p.cfg.WindowFactory(p.cfg.Params)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	p.win = win

	for i, cell := range p.cfg.Cells {
		name := fmt.Sprintf("v%d", i)
		view := win.NewView(name, window.DefaultAspect, types.GridBounds(i, p.cfg.Rows, p.cfg.Cols))

		vp, err := p.cfg.ViewportFactory(cell, name, view)
		if err != nil {
			return fmt.Errorf("create viewport %s (%v): %w", name, cell, err)
		}
		p.viewports = append(p.viewports, vp)
		p.views = append(p.views, view)
	}

	panel := win.Panel()
	for _, vp := range p.viewports {
		vp.Setup(panel)
	}

	cells := make([]fullscreen.Cell, len(p.views))
	for i, v := range p.views {
		cells[i] = v
	}
	p.fs = fullscreen.NewMachine(cells)
	p.clicks = fullscreen.NewDoubleClick()

	win.OnKeyPress(types.KeyConsole, win.ToggleConsole)
	win.OnKeyPress(types.KeyFullscreen, win.ToggleFullscreen)
	win.OnKeyPress(types.KeyPause, p.offerPause)
	win.OnMouse(p.onMouse)

	return nil
}

// step runs one render iteration. A panic inside a collaborator is returned
// as an error so the loop can still tear down.
func (p *Portal) step() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during render: %v", r)
		}
	}()

	// 1. Listeners for newly watched keys
	for _, k := range p.keys.DrainNew() {
		key := k
		p.win.OnKeyPress(key, func() { p.keys.Press(key) })
		p.log.Debug("viewportal: key listener installed", "key", string(rune(key)))
	}

	// 2. Cells in declaration order
	for i, vp := range p.viewports {
		if !vp.Visible() || !p.views[i].IsShown() {
			continue
		}
		if slot := p.slots[i]; slot != nil {
			slot.ReadSettled(vp.SetFrame)
		}
		vp.Update()
		if err := vp.Render(); err != nil {
			if p.renderErrors.Add(1) == 1 {
				p.log.Warn("viewportal: viewport render failed", "viewport", vp.Name(), "error", err)
			}
		}
	}

	// 3. Present (runs input callbacks)
	if err := p.win.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}

	p.steps.Add(1)
	return nil
}

// offerPause hands the pause key to viewports in order until one takes it.
func (p *Portal) offerPause() {
	for _, vp := range p.viewports {
		if vp.OnKeyPress(types.KeyPause) {
			return
		}
	}
}

// onMouse feeds primary-button presses to the double-click detector and
// toggles fullscreen on the clicked cell.
func (p *Portal) onMouse(ev window.MouseEvent) {
	if ev.Button != window.MouseLeft || !ev.Pressed {
		return
	}

	id := window.HitTest(p.views, ev.X, ev.Y)
	if !p.clicks.Press(id, ev.X, ev.Y) {
		return
	}

	p.fs.Toggle(id)
	p.fullscreenCell.Store(int32(p.fs.Active()))
	p.log.Info("viewportal: fullscreen toggled", "cell_id", id, "active", p.fs.Active())
}

// teardown releases everything setup created, in reverse order.
func (p *Portal) teardown() {
	for i := len(p.viewports) - 1; i >= 0; i-- {
		p.closeViewport(i)
	}
	p.viewports = nil

	if p.win != nil {
		p.win.Destroy()
		p.win = nil
	}
}

func (p *Portal) closeViewport(i int) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("viewportal: viewport close panicked", "viewport", p.viewports[i].Name(), "panic", r)
		}
	}()
	p.viewports[i].Close()
}
