package checkin

import (
	"sync"
	"time"

	"wellcheck-api/internal/common"
)

// WatcherRegistry tracks the single timeout watcher of each pending check instance
type WatcherRegistry struct {
	clock    common.Clock
	mu       sync.Mutex
	watchers map[common.CheckID]*watcher
}

type watcher struct {
	timer     common.Timer
	cancelled bool
}

// NewWatcherRegistry creates an empty registry scheduling on clock
func NewWatcherRegistry(clock common.Clock) *WatcherRegistry {
	return &WatcherRegistry{
		clock:    clock,
		watchers: make(map[common.CheckID]*watcher),
	}
}

// Arm schedules fire to run once after d unless cancelled first. Arming an id
// that already has a watcher replaces it.
func (r *WatcherRegistry) Arm(checkID common.CheckID, d time.Duration, fire func()) {
	w := &watcher{}

	r.mu.Lock()
	if previous, ok := r.watchers[checkID]; ok {
		previous.cancelled = true
		if previous.timer != nil {
			previous.timer.Stop()
		}
	}
	r.watchers[checkID] = w
	r.mu.Unlock()

	// The callback may run before AfterFunc returns, so the timer is attached afterwards
	timer := r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		if w.cancelled {
			r.mu.Unlock()
			return
		}
		if r.watchers[checkID] == w {
			delete(r.watchers, checkID)
		}
		r.mu.Unlock()

		fire()
	})

	r.mu.Lock()
	w.timer = timer
	r.mu.Unlock()
}

// Cancel stops the watcher for checkID. It reports true only when a watcher
// existed and is now guaranteed not to fire.
func (r *WatcherRegistry) Cancel(checkID common.CheckID) bool {
	r.mu.Lock()
	w, ok := r.watchers[checkID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.watchers, checkID)
	w.cancelled = true
	timer := w.timer
	r.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	return true
}

// Has reports whether checkID has an armed watcher
func (r *WatcherRegistry) Has(checkID common.CheckID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.watchers[checkID]
	return ok
}

// Len returns the number of armed watchers
func (r *WatcherRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

// CancelAll stops every armed watcher and returns how many were stopped
func (r *WatcherRegistry) CancelAll() int {
	r.mu.Lock()
	ids := make([]common.CheckID, 0, len(r.watchers))
	for id := range r.watchers {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	stopped := 0
	for _, id := range ids {
		if r.Cancel(id) {
			stopped++
		}
	}
	return stopped
}
