// Package frameslot implements the per-cell double buffer between frame
// producers and the render goroutine.
//
// Philosophy: "Latest wins. The producer never waits for the renderer."
//
// Design:
//   - Two buffers; the parity of a generation counter names the write buffer
//   - Writers serialize on a mutex and only ever touch the write buffer
//   - The single reader leases the settled buffer (the other one) lock-free
//   - A writer whose target buffer is leased publishes a fresh buffer instead
//     of mutating the leased one, so reads never observe a torn frame even
//     when two writes complete during one read
package frameslot

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

const noLease = -1

// buffer is one half of the double buffer.
// Immutable while leased by the reader.
type buffer struct {
	data   []byte
	width  int
	height int
	format types.PixelFormat
	seq    uint64
}

// Slot is a double-buffered frame store for one image-bearing cell.
//
// Thread-safety:
//   - Write: safe for concurrent calls (serialized by mu)
//   - ReadSettled: MUST be called from a single reader goroutine
//   - Stats: safe from any goroutine
type Slot struct {
	// --- Double Buffer ---

	mu     sync.Mutex                // Serializes writers
	bufs   [2]atomic.Pointer[buffer] // Both halves; nil until first write into that half
	gen    atomic.Uint64             // Completed writes; gen&1 is the write index
	leased atomic.Int32              // Index leased by the reader (noLease = none)

	// --- Operational Stats ---

	reads       atomic.Uint64 // Successful ReadSettled calls
	drops       atomic.Uint64 // Frames overwritten before any read observed them
	rejected    atomic.Uint64 // Degenerate frames silently dropped by Write
	lastReadSeq atomic.Uint64 // Seq of the most recently read frame
	lastWriteAt atomic.Int64  // UnixNano of the last completed write
}

// New creates an empty slot. The buffers are sized lazily on first write.
func New() *Slot {
	s := &Slot{}
	s.leased.Store(noLease)
	return s
}

// Write copies one frame into the write buffer and flips it to settled.
//
// Algorithm:
//  1. Validate the frame (silently drop degenerate input)
//  2. Lock mu (same-index writers serialize, last lock holder wins)
//  3. Pick the write buffer (gen&1); replace it if the reader leased it
//  4. Copy row by row honoring Stride so the destination is tightly packed
//  5. Publish the buffer and advance gen (release)
//
// Returns false if the frame was dropped. Never blocks on the reader.
func (s *Slot) Write(f types.Frame) bool {
	bpp := f.Format.BytesPerPixel()
	if len(f.Data) == 0 || f.Width <= 0 || f.Height <= 0 || bpp == 0 {
		s.rejected.Add(1)
		return false
	}

	// Sizes that overflow int cannot describe a real buffer
	if f.Stride < 0 || f.Width > math.MaxInt/bpp || f.Height > math.MaxInt/(f.Width*bpp) {
		s.rejected.Add(1)
		return false
	}

	row := f.Width * bpp
	stride := f.Stride
	if stride == 0 {
		stride = row
	}
	size := row * f.Height
	if stride < row || (f.Height > 1 && stride > (math.MaxInt-row)/(f.Height-1)) ||
		len(f.Data) < stride*(f.Height-1)+row {
		s.rejected.Add(1)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.gen.Load()
	idx := int32(g & 1)

	buf := s.bufs[idx].Load()
	if buf == nil || s.leased.Load() == idx {
		// Leased halves belong to the reader until released
		buf = &buffer{}
	}

	if cap(buf.data) < size {
		buf.data = make([]byte, size)
	} else {
		buf.data = buf.data[:size]
	}

	if stride == row {
		copy(buf.data, f.Data[:size])
	} else {
		for y := 0; y < f.Height; y++ {
			copy(buf.data[y*row:(y+1)*row], f.Data[y*stride:y*stride+row])
		}
	}

	buf.width = f.Width
	buf.height = f.Height
	buf.format = f.Format
	buf.seq = g + 1
	s.bufs[idx].Store(buf)

	// Previous settled frame (seq g) is displaced without ever being read
	if g > 0 && s.lastReadSeq.Load() < g {
		s.drops.Add(1)
	}

	s.lastWriteAt.Store(time.Now().UnixNano())
	s.gen.Store(g + 1)

	return true
}

// ReadSettled leases the settled buffer and hands a view of it to fn.
//
// The view is valid only inside fn. Writers keep running while fn executes;
// their frames land in other buffers and are picked up by the next call.
//
// Returns false ("no frame yet") if the slot was never written, in which
// case fn is not called.
func (s *Slot) ReadSettled(fn func(types.FrameView)) bool {
	for {
		g := s.gen.Load()
		if g == 0 {
			return false
		}

		idx := int32(1 - g&1)
		s.leased.Store(idx)

		// A flip between the load and the lease means the lease may name a
		// half that a writer already targets; retry on the new generation.
		if s.gen.Load() != g {
			continue
		}

		s.readLeased(idx, fn)
		return true
	}
}

func (s *Slot) readLeased(idx int32, fn func(types.FrameView)) {
	defer s.leased.Store(noLease)

	buf := s.bufs[idx].Load()
	fn(types.FrameView{
		Width:  buf.width,
		Height: buf.height,
		Format: buf.format,
		Data:   buf.data,
		Seq:    buf.seq,
	})

	s.reads.Add(1)
	if buf.seq > s.lastReadSeq.Load() {
		s.lastReadSeq.Store(buf.seq)
	}
}

// Stats returns a snapshot of the slot counters (non-blocking).
func (s *Slot) Stats() Stats {
	var lastWrite time.Time
	if ns := s.lastWriteAt.Load(); ns != 0 {
		lastWrite = time.Unix(0, ns)
	}

	return Stats{
		Writes:      s.gen.Load(),
		Reads:       s.reads.Load(),
		Drops:       s.drops.Load(),
		Rejected:    s.rejected.Load(),
		LastReadSeq: s.lastReadSeq.Load(),
		LastWriteAt: lastWrite,
	}
}

// Stats is a snapshot of slot activity.
type Stats struct {
	// Writes counts completed writes (equals the last written Seq).
	Writes uint64

	// Reads counts ReadSettled calls that observed a frame.
	Reads uint64

	// Drops counts frames replaced before the reader saw them.
	// Non-zero is expected when the producer outpaces the display (latest wins).
	Drops uint64

	// Rejected counts degenerate frames dropped by Write.
	Rejected uint64

	// LastReadSeq is the Seq of the most recent frame the reader observed.
	LastReadSeq uint64

	// LastWriteAt is the time of the last completed write (zero if none).
	LastWriteAt time.Time
}
