package pubsub

import "time"

const (
	DefaultAppName   = "app"
	DefaultNamespace = "default"
)

// Config holds the settings shared by broker implementations.
type Config struct {
	App       string
	Namespace string

	// HealthInterval is how often an idle subscription pings the server.
	// Zero disables health checks.
	HealthInterval time.Duration
	// SendTimeout bounds how long delivery to a slow subscriber may block
	// before the message is dropped.
	SendTimeout time.Duration
	ChannelSize int
}

// DefaultConfig returns the defaults used by the broker implementations.
func DefaultConfig() Config {
	return Config{
		App:            DefaultAppName,
		Namespace:      DefaultNamespace,
		HealthInterval: 3 * time.Second,
		SendTimeout:    time.Minute,
		ChannelSize:    100,
	}
}

// Scope returns the default topic scope of the broker.
func (c Config) Scope() Scope {
	return Scope{App: c.App, Namespace: c.Namespace}
}

// An Option configures a broker instance.
type Option interface {
	Apply(*Config)
}

// OptionFunc is a function that configures a broker config.
type OptionFunc func(*Config)

// Apply calls f(config).
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// WithApp returns an option that sets the app name.
func WithApp(value string) Option {
	return OptionFunc(func(c *Config) {
		if value != "" {
			c.App = value
		}
	})
}

// WithNamespace returns an option that sets the namespace.
func WithNamespace(value string) Option {
	return OptionFunc(func(c *Config) {
		if value != "" {
			c.Namespace = value
		}
	})
}

// WithHealthCheckInterval specifies the subscription health check interval.
// To disable health check, use zero interval.
func WithHealthCheckInterval(value time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.HealthInterval = value
	})
}

// WithSendTimeout specifies the send timeout after which the message is dropped.
func WithSendTimeout(value time.Duration) Option {
	return OptionFunc(func(c *Config) {
		if value > 0 {
			c.SendTimeout = value
		}
	})
}

// WithSize specifies the Go chan size used to buffer incoming messages.
func WithSize(value int) Option {
	return OptionFunc(func(c *Config) {
		if value > 0 {
			c.ChannelSize = value
		}
	})
}
