package sharedstate

import (
	"time"

	"github.com/vnykmshr/taskflow/pkg/common/validation"
)

// DefaultOfferTimeout is how long OfferTask waits for queue space.
const DefaultOfferTimeout = 5 * time.Second

// Config sizes the shared state.
type Config struct {
	QueueCapacity int           `mapstructure:"queue_capacity"`
	OfferTimeout  time.Duration `mapstructure:"offer_timeout"`
	MaxReaders    int           `mapstructure:"max_readers"`
}

// DefaultConfig returns the default shared state configuration.
func DefaultConfig() Config {
	return Config{
		QueueCapacity: DefaultQueueCapacity,
		OfferTimeout:  DefaultOfferTimeout,
		MaxReaders:    DefaultMaxReaders,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validation.ValidatePositive("sharedstate", "QueueCapacity", c.QueueCapacity); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration("sharedstate", "OfferTimeout", c.OfferTimeout); err != nil {
		return err
	}
	return validation.ValidatePositive("sharedstate", "MaxReaders", c.MaxReaders)
}

// State bundles the shared resources tasks mutate.
type State struct {
	Cache   *Cache
	Queue   *Queue
	Events  *EventLog
	Counter *Counter
	Region  *Region

	offerTimeout time.Duration
}

// New builds a State from cfg.
func New(cfg Config, opts ...Option) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	queue, err := NewQueue(cfg.QueueCapacity, opts...)
	if err != nil {
		return nil, err
	}
	region, err := NewRegion(cfg.MaxReaders)
	if err != nil {
		return nil, err
	}

	return &State{
		Cache:        NewCache(opts...),
		Queue:        queue,
		Events:       NewEventLog(opts...),
		Counter:      NewCounter(opts...),
		Region:       region,
		offerTimeout: cfg.OfferTimeout,
	}, nil
}

// OfferTask enqueues item, waiting up to the configured offer timeout.
func (s *State) OfferTask(item string) bool {
	return s.Queue.Offer(item, s.offerTimeout)
}
