package checkin

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellcheck-api/internal/common"
)

var epoch = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func TestWatcherRegistry_FiresOnce(t *testing.T) {
	clock := common.NewMockClock(epoch)
	registry := NewWatcherRegistry(clock)

	var fired int32
	registry.Arm("c1", time.Minute, func() { atomic.AddInt32(&fired, 1) })
	assert.True(t, registry.Has("c1"))

	clock.Advance(59 * time.Second)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))

	clock.Advance(time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.False(t, registry.Has("c1"))

	clock.Advance(time.Hour)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestWatcherRegistry_Cancel(t *testing.T) {
	clock := common.NewMockClock(epoch)
	registry := NewWatcherRegistry(clock)

	fired := false
	registry.Arm("c1", time.Minute, func() { fired = true })

	assert.True(t, registry.Cancel("c1"))
	assert.False(t, registry.Cancel("c1"), "second cancel finds nothing")
	assert.Equal(t, 0, registry.Len())

	clock.Advance(2 * time.Minute)
	assert.False(t, fired)
	assert.Equal(t, 0, clock.PendingTimers())
}

func TestWatcherRegistry_CancelAfterFireReportsFalse(t *testing.T) {
	clock := common.NewMockClock(epoch)
	registry := NewWatcherRegistry(clock)

	registry.Arm("c1", time.Second, func() {})
	clock.Advance(time.Second)

	assert.False(t, registry.Cancel("c1"))
}

func TestWatcherRegistry_RearmReplaces(t *testing.T) {
	clock := common.NewMockClock(epoch)
	registry := NewWatcherRegistry(clock)

	var first, second int
	registry.Arm("c1", time.Minute, func() { first++ })
	registry.Arm("c1", 2*time.Minute, func() { second++ })
	assert.Equal(t, 1, registry.Len())

	clock.Advance(time.Minute)
	assert.Equal(t, 0, first)
	assert.Equal(t, 0, second)

	clock.Advance(time.Minute)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestWatcherRegistry_ZeroDurationFiresImmediately(t *testing.T) {
	clock := common.NewMockClock(epoch)
	registry := NewWatcherRegistry(clock)

	fired := false
	registry.Arm("c1", 0, func() { fired = true })

	assert.True(t, fired)
	assert.Equal(t, 0, registry.Len())
}

func TestWatcherRegistry_CancelAll(t *testing.T) {
	clock := common.NewMockClock(epoch)
	registry := NewWatcherRegistry(clock)

	var fired int32
	for _, id := range []common.CheckID{"a", "b", "c"} {
		registry.Arm(id, time.Minute, func() { atomic.AddInt32(&fired, 1) })
	}

	assert.Equal(t, 3, registry.CancelAll())
	clock.Advance(time.Hour)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestWatcherRegistry_RealClock(t *testing.T) {
	registry := NewWatcherRegistry(common.NewRealClock())

	done := make(chan struct{})
	registry.Arm("c1", 5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not fire")
	}

	registry.Arm("c2", 50*time.Millisecond, func() { t.Error("cancelled watcher fired") })
	require.True(t, registry.Cancel("c2"))
	time.Sleep(80 * time.Millisecond)
}

func TestUserLocks_SerializesSameUser(t *testing.T) {
	locks := newUserLocks()

	var (
		wg      sync.WaitGroup
		active  int32
		overlap int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("u1")
			if atomic.AddInt32(&active, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), overlap)
	assert.Equal(t, 0, locks.size(), "idle locks are released")
}

func TestUserLocks_IndependentUsers(t *testing.T) {
	locks := newUserLocks()

	unlockA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for b blocked behind a")
	}
	assert.Equal(t, 1, locks.size())
	unlockA()
	assert.Equal(t, 0, locks.size())
}
