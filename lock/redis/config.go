package redis

// Config holds the configuration for the redis lock store.
type Config struct {
	App       string // app namespace prefix
	Namespace string
}

// An Option configures a lock store instance.
type Option interface {
	Apply(*Config)
}

// OptionFunc is a function that configures a lock store config.
type OptionFunc func(*Config)

// Apply calls f(config).
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// WithApp returns an option that sets the key app prefix.
func WithApp(value string) Option {
	return OptionFunc(func(c *Config) {
		if value != "" {
			c.App = value
		}
	})
}

// WithNamespace returns an option that sets the key namespace.
func WithNamespace(value string) Option {
	return OptionFunc(func(c *Config) {
		if value != "" {
			c.Namespace = value
		}
	})
}
