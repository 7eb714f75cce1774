package sharedstate

import (
	"go.uber.org/zap"

	"github.com/vnykmshr/taskflow/pkg/logger"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

type options struct {
	logger  *zap.Logger
	metrics *metrics.Registry
}

// Option configures shared state components.
type Option func(*options)

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records cache, queue, log and counter activity in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *options) {
		o.metrics = reg
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logger.OrNop(o.logger)
	return o
}
