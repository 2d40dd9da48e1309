package lock

import "github.com/enverbisevac/txoutbox/timeutil"

// Config holds the configuration for a Manager.
type Config struct {
	Clock timeutil.Clock
}

// An Option configures a Manager instance.
type Option interface {
	Apply(*Config)
}

// OptionFunc is a function that configures a Manager config.
type OptionFunc func(*Config)

// Apply calls f(config).
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// WithClock sets the clock used for lease timestamps.
func WithClock(clock timeutil.Clock) Option {
	return OptionFunc(func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	})
}
