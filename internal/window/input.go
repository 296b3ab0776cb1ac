package window

import (
	"sync"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// EventKind classifies injected input.
type EventKind int

const (
	EventKey EventKind = iota
	EventMouse
)

// Event is one input event queued for the render goroutine.
type Event struct {
	Kind  EventKind
	Key   types.Key
	Mouse MouseEvent
}

// Input is a thread-safe input queue feeding a Soft window.
//
// Producers (terminal reader, tests, remote control) push events from any
// goroutine; the window drains them inside Present on the render goroutine.
type Input struct {
	mu     sync.Mutex
	events []Event
	close  bool
}

// NewInput returns an empty input queue.
func NewInput() *Input {
	return &Input{}
}

// Key queues a key press.
func (in *Input) Key(k types.Key) {
	in.push(Event{Kind: EventKey, Key: k})
}

// Mouse queues a mouse button event.
func (in *Input) Mouse(ev MouseEvent) {
	in.push(Event{Kind: EventMouse, Mouse: ev})
}

// Click queues a left-button press and release at (x, y).
func (in *Input) Click(x, y int) {
	in.Mouse(MouseEvent{Button: MouseLeft, X: x, Y: y, Pressed: true})
	in.Mouse(MouseEvent{Button: MouseLeft, X: x, Y: y, Pressed: false})
}

// RequestClose asks the window to close (as the user closing it would).
func (in *Input) RequestClose() {
	in.mu.Lock()
	in.close = true
	in.mu.Unlock()
}

func (in *Input) push(ev Event) {
	in.mu.Lock()
	in.events = append(in.events, ev)
	in.mu.Unlock()
}

// drain returns the queued events and whether a close was requested.
func (in *Input) drain() ([]Event, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	events := in.events
	in.events = nil
	return events, in.close
}
