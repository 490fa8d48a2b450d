package cache

import (
	"context"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

var _ Cache[string] = (*LRUCache[string])(nil)

// Janitor periodically drops expired entries from registered caches.
type Janitor struct {
	caches  []Cleaner
	onSweep func(removed int)
}

// NewJanitor returns a janitor for caches. onSweep, when non-nil, is called
// after every sweep that removed something.
func NewJanitor(onSweep func(removed int), caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches, onSweep: onSweep}
}

// Sweep cleans every cache once and returns the number of removed entries.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	if total > 0 && j.onSweep != nil {
		j.onSweep(total)
	}
	return total
}

// Run sweeps every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
