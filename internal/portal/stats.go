package portal

import (
	"fmt"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// Stats is an operational snapshot of a portal.
type Stats struct {
	ID     string
	Uptime time.Duration

	// Steps counts completed render iterations.
	Steps uint64

	// RenderErrors counts viewport Render failures (logged once).
	RenderErrors uint64

	// FullscreenCell is the 1-based fullscreen cell, 0 when none.
	FullscreenCell int

	// KeyPresses counts accepted presses of watched keys;
	// KeyDeliveries counts CheckKey hits.
	KeyPresses    uint64
	KeyDeliveries uint64

	Cells []CellStats
}

// CellStats describes one cell; slot counters are zero for non-image cells.
type CellStats struct {
	Index    int
	Name     string
	Type     types.CellType
	HasSlot  bool
	Writes   uint64
	Reads    uint64
	Drops    uint64
	Rejected uint64

	LastWriteAt time.Time
}

// Stats returns a snapshot of the portal counters.
//
// Non-blocking apart from the key queue mutex; values may be slightly stale.
func (p *Portal) Stats() Stats {
	presses, delivered := p.keys.Stats()

	cells := make([]CellStats, len(p.cfg.Cells))
	for i, c := range p.cfg.Cells {
		cs := CellStats{
			Index: i,
			Name:  fmt.Sprintf("v%d", i),
			Type:  c,
		}
		if slot := p.slots[i]; slot != nil {
			st := slot.Stats()
			cs.HasSlot = true
			cs.Writes = st.Writes
			cs.Reads = st.Reads
			cs.Drops = st.Drops
			cs.Rejected = st.Rejected
			cs.LastWriteAt = st.LastWriteAt
		}
		cells[i] = cs
	}

	return Stats{
		ID:             p.id,
		Uptime:         time.Since(p.startedAt),
		Steps:          p.steps.Load(),
		RenderErrors:   p.renderErrors.Load(),
		FullscreenCell: int(p.fullscreenCell.Load()),
		KeyPresses:     presses,
		KeyDeliveries:  delivered,
		Cells:          cells,
	}
}
