package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultAutosaveInterval is used when no interval is configured.
const DefaultAutosaveInterval = 5 * time.Second

// Autosaver periodically flushes dirty collections in the background.
// It knows nothing about transactions; a flush between buffer and
// commit persists only state already applied to the store.
type Autosaver struct {
	store    *Store
	interval time.Duration
	limiter  *rate.Limiter
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAutosaver creates an autosaver flushing at the given interval.
func NewAutosaver(store *Store, interval time.Duration) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &Autosaver{
		store:    store,
		interval: interval,
		// One save per interval; timed and manual flushes coalesce.
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the background flush loop.
func (a *Autosaver) Start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-a.stopCh:
				return
			case <-ticker.C:
				if err := a.Flush(context.Background()); err != nil {
					a.store.logger.Error("autosave failed", "error", err)
				}
			}
		}
	}()
}

// Flush saves dirty collections if the rate limiter allows it. A flush
// arriving inside the coalescing window is a no-op.
func (a *Autosaver) Flush(ctx context.Context) error {
	if !a.limiter.Allow() {
		return nil
	}
	return a.store.SaveAll(ctx)
}

// Stop terminates the background loop and performs a final flush,
// bypassing the rate limiter.
func (a *Autosaver) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
	a.wg.Wait()
	return a.store.SaveAll(ctx)
}
