package outbox

import (
	"time"

	"github.com/enverbisevac/txoutbox/timeutil"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultLockName        = "outbox-processor"
	DefaultBatchSize       = 20
	DefaultLockTTL         = 30 * time.Minute
	DefaultPollInterval    = 5 * time.Minute
	DefaultContentionDelay = time.Second
)

// Config holds the configuration shared by Processor, Dispatcher and TxFactory.
type Config struct {
	// BatchSize is the maximum number of messages published per cycle.
	BatchSize int
	// LockName is the lease serializing processors across processes.
	LockName string
	// LockTTL bounds how long a crashed holder blocks others.
	LockTTL time.Duration
	// PollInterval is the longest the dispatcher idles without a wake-up.
	PollInterval time.Duration
	// ContentionDelay is how long the dispatcher backs off when another
	// process holds the lease.
	ContentionDelay time.Duration

	Clock         timeutil.Clock
	Codec         Codec
	MeterProvider metric.MeterProvider
}

func newConfig(options []Option) Config {
	config := Config{
		BatchSize:       DefaultBatchSize,
		LockName:        DefaultLockName,
		LockTTL:         DefaultLockTTL,
		PollInterval:    DefaultPollInterval,
		ContentionDelay: DefaultContentionDelay,
		Clock:           timeutil.SystemClock{},
		Codec:           JSONCodec{},
	}
	for _, opt := range options {
		opt.Apply(&config)
	}
	return config
}

// An Option configures a Processor, Dispatcher or TxFactory.
type Option interface {
	Apply(*Config)
}

// OptionFunc is a function that configures a Config.
type OptionFunc func(*Config)

// Apply calls f(config).
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// WithBatchSize sets the maximum number of messages published per cycle.
func WithBatchSize(n int) Option {
	return OptionFunc(func(c *Config) {
		if n > 0 {
			c.BatchSize = n
		}
	})
}

// WithLockName sets the lease name.
func WithLockName(name string) Option {
	return OptionFunc(func(c *Config) {
		if name != "" {
			c.LockName = name
		}
	})
}

// WithLockTTL sets the lease duration.
func WithLockTTL(d time.Duration) Option {
	return OptionFunc(func(c *Config) {
		if d > 0 {
			c.LockTTL = d
		}
	})
}

// WithPollInterval sets how long the dispatcher idles without a wake-up.
func WithPollInterval(d time.Duration) Option {
	return OptionFunc(func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	})
}

// WithContentionDelay sets the back-off used while another process holds the lease.
func WithContentionDelay(d time.Duration) Option {
	return OptionFunc(func(c *Config) {
		if d >= 0 {
			c.ContentionDelay = d
		}
	})
}

// WithClock sets the clock used for message timestamps.
func WithClock(clock timeutil.Clock) Option {
	return OptionFunc(func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	})
}

// WithCodec sets the payload codec.
func WithCodec(codec Codec) Option {
	return OptionFunc(func(c *Config) {
		if codec != nil {
			c.Codec = codec
		}
	})
}

// WithMeterProvider sets the OpenTelemetry meter provider. The global
// provider is used by default.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return OptionFunc(func(c *Config) {
		c.MeterProvider = mp
	})
}
