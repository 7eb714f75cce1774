package sharedstate

import (
	"sync"
	"testing"

	"github.com/vnykmshr/taskflow/internal/testutil"
)

func TestCounterConcurrentIncrement(t *testing.T) {
	c := NewCounter()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Increment()
			}
		}()
	}
	wg.Wait()

	testutil.AssertEqual(t, c.Value(), int64(5000))
	testutil.AssertEqual(t, c.Increment(), int64(5001))
}
