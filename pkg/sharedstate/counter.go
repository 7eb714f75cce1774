package sharedstate

import (
	"sync/atomic"

	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// Counter is a linearizable int64 counter.
type Counter struct {
	value   atomic.Int64
	metrics *metrics.Registry
}

// NewCounter returns a counter starting at zero.
func NewCounter(opts ...Option) *Counter {
	o := buildOptions(opts)
	return &Counter{metrics: o.metrics}
}

// Increment adds one and returns the new value.
func (c *Counter) Increment() int64 {
	v := c.value.Add(1)
	if c.metrics != nil {
		c.metrics.CounterValue.Set(float64(v))
	}
	return v
}

// Value returns the current value.
func (c *Counter) Value() int64 {
	return c.value.Load()
}
