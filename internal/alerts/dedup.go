package alerts

import (
	"sync"
	"time"
)

// DedupStore tracks recently sent alerts so repeated states within the
// window stay silent.
type DedupStore struct {
	mu      sync.RWMutex
	records map[string]time.Time
	window  time.Duration
}

// NewDedupStore creates a deduplication store with the given window.
func NewDedupStore(window time.Duration) *DedupStore {
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &DedupStore{
		records: make(map[string]time.Time),
		window:  window,
	}
}

// IsDuplicate reports whether the key was recorded within the window.
func (d *DedupStore) IsDuplicate(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sentAt, ok := d.records[key]
	if !ok {
		return false
	}
	return time.Since(sentAt) < d.window
}

// Record marks the key as sent now.
func (d *DedupStore) Record(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[key] = time.Now()
}

// Forget drops the key, re-arming its alert.
func (d *DedupStore) Forget(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.records, key)
}

// Cleanup drops expired records.
func (d *DedupStore) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, sentAt := range d.records {
		if time.Since(sentAt) >= d.window {
			delete(d.records, key)
		}
	}
}

// Size returns the number of tracked records.
func (d *DedupStore) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}
