// Package fullscreen implements the single-cell fullscreen state machine and
// the double-click detector that drives it.
//
// Both types are confined to the render goroutine (input callbacks run there),
// so neither takes a lock.
package fullscreen

import (
	"log/slog"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// Cell is the geometry a Machine saves and restores.
// Implemented by window views.
type Cell interface {
	Bounds() types.Bounds
	SetBounds(types.Bounds)
	IsShown() bool
	Show(bool)
}

// saved is the pre-fullscreen state of one cell.
type saved struct {
	bounds types.Bounds
	shown  bool
}

// Machine tracks Normal / Fullscreen(id) over a fixed list of cells.
//
// Invariant: snapshot != nil ⇔ active != 0.
type Machine struct {
	cells    []Cell
	active   int     // 0 = Normal, else 1-based cell id
	snapshot []saved // Pre-fullscreen layout (nil in Normal)

	transitions uint64
}

// NewMachine returns a machine in Normal state over cells (ids are 1-based
// positions in this slice).
func NewMachine(cells []Cell) *Machine {
	return &Machine{cells: cells}
}

// Active returns the fullscreen cell id, or 0 in Normal state.
func (m *Machine) Active() int {
	return m.active
}

// Transitions returns the number of Enter/Exit transitions performed.
func (m *Machine) Transitions() uint64 {
	return m.transitions
}

// Enter shows cell id alone over the whole display area.
//
// From Fullscreen(other) the original layout is restored first, so the
// snapshot taken is always the pre-fullscreen one. Out-of-range ids are
// ignored.
func (m *Machine) Enter(id int) {
	if id < 1 || id > len(m.cells) {
		slog.Debug("viewportal: fullscreen enter ignored", "cell_id", id, "cells", len(m.cells))
		return
	}

	if m.active != 0 {
		m.restore()
	}

	m.snapshot = make([]saved, len(m.cells))
	for i, c := range m.cells {
		m.snapshot[i] = saved{bounds: c.Bounds(), shown: c.IsShown()}
	}

	m.cells[id-1].SetBounds(types.FullBounds())
	for i, c := range m.cells {
		c.Show(i == id-1)
	}

	m.active = id
	m.transitions++
	slog.Debug("viewportal: fullscreen entered", "cell_id", id)
}

// Exit restores every cell's bounds and shown flag verbatim.
// No-op in Normal state.
func (m *Machine) Exit() {
	if m.active == 0 {
		return
	}

	id := m.active
	m.restore()
	m.transitions++
	slog.Debug("viewportal: fullscreen exited", "cell_id", id)
}

// Toggle exits if id is the active cell, otherwise enters id.
func (m *Machine) Toggle(id int) {
	if m.active == id {
		m.Exit()
		return
	}
	m.Enter(id)
}

func (m *Machine) restore() {
	for i, c := range m.cells {
		c.SetBounds(m.snapshot[i].bounds)
		c.Show(m.snapshot[i].shown)
	}
	m.snapshot = nil
	m.active = 0
}
