// Package cache keeps computed analytics results in memory for a bounded time.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is a keyed store of values that expire.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	// Purge drops every entry.
	Purge()
	Len() int
}

// Cleaner is a cache that can drop its expired entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans the registered caches.
type Janitor struct {
	logger *slog.Logger

	mu     sync.Mutex
	caches []Cleaner

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewJanitor(logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Start runs a cleanup pass every interval until Stop is called.
func (j *Janitor) Start(interval time.Duration) {
	go j.run(interval)
}

func (j *Janitor) run(interval time.Duration) {
	defer close(j.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				j.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-j.stop:
			return
		}
	}
}

// Sweep cleans every registered cache once and returns the entries removed.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	caches := append([]Cleaner(nil), j.caches...)
	j.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup loop started by Start and waits for it to exit.
func (j *Janitor) Stop() {
	j.once.Do(func() {
		close(j.stop)
		<-j.done
	})
}
