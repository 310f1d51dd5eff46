package checkin

import (
	"sync"

	"wellcheck-api/internal/common"
)

// userLocks hands out one mutex per user, created on demand and dropped
// once no goroutine holds or waits for it.
type userLocks struct {
	mu    sync.Mutex
	locks map[common.UserID]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[common.UserID]*userLock)}
}

// Lock blocks until the caller owns userID's section and returns the release func
func (l *userLocks) Lock(userID common.UserID) func() {
	l.mu.Lock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &userLock{}
		l.locks[userID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

// size returns the number of users with a held or awaited lock
func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
