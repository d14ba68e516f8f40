package web

import (
	"slices"
	"sync"

	"github.com/nexuslink/dealdesk/pkg/status"
)

// DefaultBufferSize is the default maximum number of activity events to keep.
const DefaultBufferSize = 1000

// Buffer is a thread-safe ring buffer of activity events indexed by form status,
// so the dashboard can list e.g. only failures.
type Buffer struct {
	mu       sync.RWMutex
	events   []Event
	maxSize  int
	writePos int // next position to write (wraps around)
	count    int // total events written (for full detection)

	// statusIndex stores positions of events by status for quick filtering
	statusIndex map[status.Status][]int
}

// NewBuffer creates a new ring buffer with the specified max size.
// if maxSize is 0, DefaultBufferSize is used.
func NewBuffer(maxSize int) *Buffer {
	if maxSize <= 0 {
		maxSize = DefaultBufferSize
	}
	return &Buffer{
		events:      make([]Event, maxSize),
		maxSize:     maxSize,
		statusIndex: make(map[status.Status][]int),
	}
}

// Add appends an event to the buffer, overwriting oldest if full.
func (b *Buffer) Add(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// if buffer is full, clean up old index entry BEFORE overwriting
	if b.count >= b.maxSize {
		b.cleanOldIndexEntry(b.writePos)
	}

	// store event at current write position
	b.events[b.writePos] = e
	b.statusIndex[e.Status] = append(b.statusIndex[e.Status], b.writePos)

	// advance write position (wrap around)
	b.writePos = (b.writePos + 1) % b.maxSize
	b.count++
}

// cleanOldIndexEntry removes stale index entries for the position being overwritten.
// must be called with lock held.
func (b *Buffer) cleanOldIndexEntry(pos int) {
	old := b.events[pos].Status
	indices := b.statusIndex[old]
	kept := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx != pos {
			kept = append(kept, idx)
		}
	}
	if len(kept) == 0 {
		delete(b.statusIndex, old)
		return
	}
	b.statusIndex[old] = kept
}

// All returns all events in chronological order.
func (b *Buffer) All() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return nil
	}

	// determine actual count (min of count and maxSize)
	actualCount := min(b.count, b.maxSize)

	result := make([]Event, actualCount)

	if b.count <= b.maxSize {
		// buffer not full yet, just copy from start
		copy(result, b.events[:b.count])
	} else {
		// buffer wrapped, read from writePos to end, then start to writePos
		tailLen := b.maxSize - b.writePos
		copy(result[:tailLen], b.events[b.writePos:])
		copy(result[tailLen:], b.events[:b.writePos])
	}

	return result
}

// ByStatus returns events recorded with the given status, oldest first.
func (b *Buffer) ByStatus(st status.Status) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	indices := b.statusIndex[st]
	if len(indices) == 0 {
		return nil
	}

	// indices are appended in write order, but after a wrap the smallest position is
	// not the oldest; rotate by writePos to get chronological order
	result := make([]Event, 0, len(indices))
	age := func(pos int) int { return (pos - b.writePos + b.maxSize) % b.maxSize }
	sorted := make([]int, len(indices))
	copy(sorted, indices)
	slices.SortFunc(sorted, func(x, y int) int { return age(x) - age(y) })
	for _, idx := range sorted {
		result = append(result, b.events[idx])
	}
	return result
}

// Last returns up to n most recent events, oldest first.
func (b *Buffer) Last(n int) []Event {
	all := b.All()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Count returns the total number of events currently in the buffer.
func (b *Buffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count > b.maxSize {
		return b.maxSize
	}
	return b.count
}
