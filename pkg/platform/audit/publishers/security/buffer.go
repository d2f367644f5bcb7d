package security

import (
	"sync"

	audit "velum/pkg/platform/audit"
)

// RingBuffer retains the most recent security events for admin inspection.
// Writers never block: once full, each append overwrites the oldest entry.
type RingBuffer struct {
	mu       sync.Mutex
	events   []audit.SecurityEvent
	next     int // next write position
	count    int
	capacity int

	overwritten int64
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 10000 // default
	}
	return &RingBuffer{
		events:   make([]audit.SecurityEvent, capacity),
		capacity: capacity,
	}
}

// Append records an event, overwriting the oldest when full.
func (b *RingBuffer) Append(event audit.SecurityEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.overwritten++
	} else {
		b.count++
	}
	b.events[b.next] = event
	b.next = (b.next + 1) % b.capacity
}

// Recent returns up to n retained events, newest first.
func (b *RingBuffer) Recent(n int) []audit.SecurityEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]audit.SecurityEvent, n)
	pos := b.next
	for i := range n {
		pos = (pos - 1 + b.capacity) % b.capacity
		result[i] = b.events[pos]
	}
	return result
}

// Len returns the current number of retained events.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Overwritten returns how many events have been displaced by newer ones.
func (b *RingBuffer) Overwritten() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overwritten
}
