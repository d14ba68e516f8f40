package status

import "sync"

// Holder stores the last observed status in a thread-safe way and reports real transitions.
// form snapshots arrive on every edit; Holder collapses them into status changes for
// observers such as the activity log.
type Holder struct {
	mu       sync.RWMutex
	status   Status
	onChange func(old, cur Status)
}

// NewHolder makes a holder starting at Idle.
func NewHolder() *Holder {
	return &Holder{status: Idle}
}

// OnChange registers a callback that fires when the status changes.
// only one callback is supported; subsequent calls replace the previous one.
func (h *Holder) OnChange(fn func(old, cur Status)) {
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

// Set updates the current status and fires the OnChange callback if it changed.
// the callback runs outside the lock, so it may call Get.
func (h *Holder) Set(s Status) {
	h.mu.Lock()
	old := h.status
	h.status = s
	cb := h.onChange
	h.mu.Unlock()

	if old != s && cb != nil {
		cb(old, s)
	}
}

// Get returns the current status.
func (h *Holder) Get() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}
