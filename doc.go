// Package viewportal shows live camera frames, 3D views and plots in a grid
// of cells, fed from any number of producer goroutines.
//
// # Philosophy
//
// "Latest frame wins. Never block the producer."
//
// A sensor pipeline pushes frames at its own pace; the display repaints at
// its own pace. Each image cell owns a double-buffered slot: UpdateFrame
// copies the frame into the back half and flips it, the render goroutine
// reads the settled half. Frames the display never got to are counted as
// drops, not queued.
//
// # Architecture
//
//	producers (N)          Portal                 render goroutine (1)
//	UpdateFrame(i, f) -->  slot[i] (2 buffers) --> viewport[i].SetFrame
//	CheckKey(k)       <--  key queue          <--  window key callbacks
//	                       fullscreen machine <--  double-click on a cell
//
// The render goroutine owns the window, the views and the viewports for
// their entire life. Nothing else touches them.
//
// # Basic Usage
//
//	p, err := viewportal.New(2, 2, []viewportal.CellType{
//	    viewportal.ColorImage, viewportal.DepthImage,
//	    viewportal.Reconstruction, viewportal.Plot,
//	}, viewportal.DefaultParams())
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	p.SetKeysToWatch([]viewportal.Key{'s'})
//	for !p.ShouldQuit() {
//	    color, depth := grab()
//	    p.UpdateFrame(0, color)   // Copies, never waits for the display
//	    p.UpdateFrame(1, depth)
//	    if p.CheckKey('s') {
//	        save(color)
//	    }
//	}
//
// # Reserved keys
//
//   - 'p' is offered to the viewports in order (the plot pauses)
//   - 'f' toggles the window fullscreen
//   - '`' toggles the panel console
//
// Double-clicking a cell shows it alone over the whole display area;
// double-clicking again restores the grid.
package viewportal
