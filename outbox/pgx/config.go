package pgx

// Config holds the configuration for the PostgreSQL outbox store.
type Config struct {
	// Schema is the namespace holding the messages table.
	Schema    string
	TableName string
}

// An Option configures a Store instance.
type Option interface {
	Apply(*Config)
}

// OptionFunc is a function that configures a Store config.
type OptionFunc func(*Config)

// Apply calls f(config).
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// WithSchema sets the schema holding the messages table.
func WithSchema(s string) Option {
	return OptionFunc(func(c *Config) {
		if s != "" {
			c.Schema = s
		}
	})
}

// WithTableName sets the outbox table name.
func WithTableName(s string) Option {
	return OptionFunc(func(c *Config) {
		if s != "" {
			c.TableName = s
		}
	})
}

func newConfig(options []Option) Config {
	config := Config{
		Schema:    "outbox",
		TableName: "messages",
	}
	for _, opt := range options {
		opt.Apply(&config)
	}
	return config
}

func (c Config) table() string {
	return c.Schema + "." + c.TableName
}
