package testutil

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventually(t *testing.T) {
	var counter atomic.Int32
	go func() {
		time.Sleep(30 * time.Millisecond)
		counter.Store(1)
	}()

	Eventually(t, func() bool {
		return counter.Load() == 1
	}, 500*time.Millisecond, 5*time.Millisecond)
}

func TestWaitForInt64(t *testing.T) {
	var value atomic.Int64

	go func() {
		time.Sleep(20 * time.Millisecond)
		value.Store(100)
	}()

	WaitForInt64(t, &value, 100, 500*time.Millisecond)
}

func TestCallbackTracker(t *testing.T) {
	tracker := NewCallbackTracker()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Mark("general")
			}
		}()
	}
	wg.Wait()

	AssertEqual(t, tracker.CallCount(), 1000)
	AssertEqual(t, tracker.Value(), interface{}("general"))
}
