package sharedstate

import (
	"sync"

	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// EventLog is an append-only ordered list of events.
type EventLog struct {
	mu     sync.RWMutex
	events []string

	metrics *metrics.Registry
}

// NewEventLog returns an empty log.
func NewEventLog(opts ...Option) *EventLog {
	o := buildOptions(opts)
	return &EventLog{metrics: o.metrics}
}

// Append adds event to the end of the log.
func (l *EventLog) Append(event string) {
	l.mu.Lock()
	l.events = append(l.events, event)
	n := len(l.events)
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.EventLogSize.Set(float64(n))
	}
}

// Snapshot returns a copy of the log in append order.
func (l *EventLog) Snapshot() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
