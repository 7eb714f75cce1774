package sharedstate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// DefaultQueueCapacity is the capacity used by DefaultConfig.
const DefaultQueueCapacity = 100

// Queue is a bounded FIFO of strings.
type Queue struct {
	items chan string

	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewQueue returns an empty queue holding at most capacity items.
func NewQueue(capacity int, opts ...Option) (*Queue, error) {
	if err := validation.ValidatePositive("sharedstate", "QueueCapacity", capacity); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &Queue{
		items:   make(chan string, capacity),
		logger:  o.logger,
		metrics: o.metrics,
	}, nil
}

// Offer appends item, waiting up to timeout for space when the queue is full.
// It returns true immediately when space is available and false once the
// timeout elapses.
func (q *Queue) Offer(item string, timeout time.Duration) bool {
	select {
	case q.items <- item:
		q.recordOffer(true)
		return true
	default:
	}

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case q.items <- item:
			q.recordOffer(true)
			return true
		case <-timer.C:
		}
	}

	q.recordOffer(false)
	q.logger.Debug("queue offer rejected",
		zap.String("item", item),
		zap.Duration("timeout", timeout),
		zap.Error(tferrors.ErrQueueFull))
	return false
}

// Take removes and returns the head of the queue, blocking while it is empty.
// Cancellation of ctx returns an error wrapping ErrInterrupted.
func (q *Queue) Take(ctx context.Context) (string, error) {
	select {
	case item := <-q.items:
		q.updateDepth()
		return item, nil
	case <-ctx.Done():
		return "", fmt.Errorf("queue take: %w", tferrors.Interrupted(ctx.Err()))
	}
}

// TryTake removes the head of the queue without blocking.
func (q *Queue) TryTake() (string, bool) {
	select {
	case item := <-q.items:
		q.updateDepth()
		return item, true
	default:
		return "", false
	}
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.items)
}

func (q *Queue) recordOffer(accepted bool) {
	if q.metrics == nil {
		return
	}
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	q.metrics.QueueOffers.WithLabelValues(result).Inc()
	q.updateDepth()
}

func (q *Queue) updateDepth() {
	if q.metrics != nil {
		q.metrics.QueueDepth.Set(float64(len(q.items)))
	}
}
