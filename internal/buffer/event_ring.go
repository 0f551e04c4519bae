// Package buffer provides fixed-capacity retention of recent broadcast
// envelopes.
package buffer

import "sync"

// EventRing is a thread-safe circular buffer holding the most recent
// envelopes up to a fixed count. When full, the oldest envelope is dropped
// to make room.
//
// This backs the recent-event history served to dashboards, letting them
// catch up on what was broadcast before they connected.
type EventRing struct {
	mu       sync.RWMutex
	events   [][]byte
	start    int
	count    int
	capacity int
}

// NewEventRing creates an EventRing with the specified capacity.
// The capacity must be greater than 0; if not, it defaults to 1.
func NewEventRing(capacity int) *EventRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &EventRing{
		events:   make([][]byte, capacity),
		capacity: capacity,
	}
}

// Append adds an envelope to the ring, dropping the oldest one if the ring
// is full. The data is copied.
func (r *EventRing) Append(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := make([]byte, len(data))
	copy(entry, data)

	if r.count < r.capacity {
		r.events[(r.start+r.count)%r.capacity] = entry
		r.count++
		return
	}

	r.events[r.start] = entry
	r.start = (r.start + 1) % r.capacity
}

// Recent returns copies of the retained envelopes, oldest first.
func (r *EventRing) Recent() [][]byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}

	result := make([][]byte, 0, r.count)
	for i := 0; i < r.count; i++ {
		entry := r.events[(r.start+i)%r.capacity]
		out := make([]byte, len(entry))
		copy(out, entry)
		result = append(result, out)
	}
	return result
}

// Clear removes all envelopes from the ring.
func (r *EventRing) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.events {
		r.events[i] = nil
	}
	r.start = 0
	r.count = 0
}

// Len returns the number of retained envelopes.
func (r *EventRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the ring's capacity.
func (r *EventRing) Cap() int {
	return r.capacity
}
