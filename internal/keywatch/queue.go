// Package keywatch implements the one-shot key-press queue shared between the
// owning goroutine (watch list, polls) and the render goroutine (presses).
package keywatch

import (
	"sort"
	"sync"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// Queue tracks watched keys and pending presses.
//
// Invariants:
//   - pending ⊆ watched
//   - a press is delivered at most once (CheckKey is destructive)
//   - repeated presses before a poll collapse into one pending flag
//
// Thread-safety: all methods are safe for concurrent use (one mutex).
type Queue struct {
	mu sync.Mutex

	watched    map[types.Key]struct{} // Written by owner (SetKeysToWatch)
	registered map[types.Key]struct{} // Keys the render goroutine already listens to
	pending    map[types.Key]struct{} // Presses not yet polled

	presses   uint64 // Accepted presses
	delivered uint64 // CheckKey hits
}

// New returns an empty queue (nothing watched).
func New() *Queue {
	return &Queue{
		watched:    make(map[types.Key]struct{}),
		registered: make(map[types.Key]struct{}),
		pending:    make(map[types.Key]struct{}),
	}
}

// SetKeysToWatch replaces the watched set.
//
// Pending presses of keys no longer watched are discarded. Listeners for new
// keys are installed by the render goroutine on its next iteration (DrainNew).
func (q *Queue) SetKeysToWatch(keys []types.Key) {
	q.mu.Lock()
	defer q.mu.Unlock()

	watched := make(map[types.Key]struct{}, len(keys))
	for _, k := range keys {
		watched[k] = struct{}{}
	}
	q.watched = watched

	for k := range q.pending {
		if _, ok := watched[k]; !ok {
			delete(q.pending, k)
		}
	}
}

// Watched returns the current watch list in ascending key order.
func (q *Queue) Watched() []types.Key {
	q.mu.Lock()
	defer q.mu.Unlock()

	return sortedKeys(q.watched)
}

// DrainNew returns the watched keys that have no listener yet and marks them
// registered. Called by the render goroutine once per iteration.
//
// Registration is permanent: a key dropped from the watch list keeps its
// listener, Press simply ignores it while unwatched.
func (q *Queue) DrainNew() []types.Key {
	q.mu.Lock()
	defer q.mu.Unlock()

	var fresh []types.Key
	for k := range q.watched {
		if _, ok := q.registered[k]; ok {
			continue
		}
		q.registered[k] = struct{}{}
		fresh = append(fresh, k)
	}

	sort.Slice(fresh, func(i, j int) bool { return fresh[i] < fresh[j] })
	return fresh
}

// Press records a key press. Ignored unless the key is currently watched.
// Called from window key listeners on the render goroutine.
func (q *Queue) Press(k types.Key) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.watched[k]; !ok {
		return
	}
	q.pending[k] = struct{}{}
	q.presses++
}

// CheckKey reports whether k was pressed since the last poll and clears it.
// Always false for keys that are not watched. Never blocks beyond the mutex.
func (q *Queue) CheckKey(k types.Key) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.watched[k]; !ok {
		return false
	}
	if _, ok := q.pending[k]; !ok {
		return false
	}

	delete(q.pending, k)
	q.delivered++
	return true
}

// Stats returns accepted presses and delivered polls.
// presses - delivered counts presses collapsed or still pending.
func (q *Queue) Stats() (presses, delivered uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.presses, q.delivered
}

func sortedKeys(m map[types.Key]struct{}) []types.Key {
	keys := make([]types.Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
