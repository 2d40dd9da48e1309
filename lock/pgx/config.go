package pgx

// Config holds the configuration for the PostgreSQL lock store.
type Config struct {
	// Schema is the namespace holding the locks table.
	Schema    string
	TableName string
}

// Option configures a lock store instance.
type Option interface {
	Apply(*Config)
}

// OptionFunc is a function that configures a lock store config.
type OptionFunc func(*Config)

// Apply calls f(config).
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// WithSchema sets the schema holding the locks table.
func WithSchema(s string) Option {
	return OptionFunc(func(c *Config) {
		if s != "" {
			c.Schema = s
		}
	})
}

// WithTableName sets the locks table name.
func WithTableName(s string) Option {
	return OptionFunc(func(c *Config) {
		if s != "" {
			c.TableName = s
		}
	})
}

func (c Config) table() string {
	return c.Schema + "." + c.TableName
}
