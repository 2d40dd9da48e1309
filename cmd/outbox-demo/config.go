package main

import (
	"fmt"
	"os"
	"time"

	"github.com/enverbisevac/txoutbox/outbox"
	"github.com/enverbisevac/txoutbox/validator"
	"gopkg.in/yaml.v3"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	brokerLog   = "log"
	brokerInmem = "inmem"
	brokerRedis = "redis"
)

// Config is the demo host configuration file.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Broker   BrokerConfig   `yaml:"broker"`
	Outbox   OutboxConfig   `yaml:"outbox"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	// Verbosity enables V(n) logs up to n.
	Verbosity int `yaml:"verbosity"`
}

type DatabaseConfig struct {
	// Driver is sqlite or postgres.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type BrokerConfig struct {
	// Kind is log, inmem or redis.
	Kind      string `yaml:"kind"`
	RedisAddr string `yaml:"redis_addr"`
	App       string `yaml:"app"`
	Namespace string `yaml:"namespace"`
}

type OutboxConfig struct {
	LockName        string        `yaml:"lock_name"`
	BatchSize       int           `yaml:"batch_size"`
	LockTTL         time.Duration `yaml:"lock_ttl"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ContentionDelay time.Duration `yaml:"contention_delay"`
}

// DefaultConfig runs against a local SQLite file and logs every published
// message.
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: driverSQLite,
			DSN:    "file:outbox-demo.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		},
		Broker: BrokerConfig{
			Kind:      brokerLog,
			App:       "outbox-demo",
			Namespace: "default",
		},
		Outbox: OutboxConfig{
			LockName:        outbox.DefaultLockName,
			BatchSize:       outbox.DefaultBatchSize,
			LockTTL:         outbox.DefaultLockTTL,
			PollInterval:    outbox.DefaultPollInterval,
			ContentionDelay: outbox.DefaultContentionDelay,
		},
	}
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, config.Validate()
	}

	f, err := os.Open(path)
	if err != nil {
		return config, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return config, fmt.Errorf("config: decode %s: %w", path, err)
	}

	return config, config.Validate()
}

func (c Config) Validate() error {
	v := new(validator.Validator)
	v.Check(validator.IsHostPort(c.HTTP.Addr), fmt.Errorf("http.addr %q must be host:port", c.HTTP.Addr))
	v.Check(validator.In(c.Database.Driver, driverSQLite, driverPostgres),
		fmt.Errorf("database.driver %q must be sqlite or postgres", c.Database.Driver))
	v.Check(validator.NotBlank(c.Database.DSN), fmt.Errorf("database.dsn is required"))
	v.Check(validator.In(c.Broker.Kind, brokerLog, brokerInmem, brokerRedis),
		fmt.Errorf("broker.kind %q must be log, inmem or redis", c.Broker.Kind))
	v.Check(c.Broker.Kind != brokerRedis || validator.IsHostPort(c.Broker.RedisAddr),
		fmt.Errorf("broker.redis_addr must be host:port for the redis broker"))
	v.Check(validator.MaxRunes(c.Outbox.LockName, 200), fmt.Errorf("outbox.lock_name must not exceed 200 characters"))
	v.Check(validator.Between(c.Outbox.BatchSize, 1, 10_000),
		fmt.Errorf("outbox.batch_size must be between 1 and 10000"))
	v.Check(c.Outbox.LockTTL > 0, fmt.Errorf("outbox.lock_ttl must be positive"))
	v.Check(c.Outbox.PollInterval > 0, fmt.Errorf("outbox.poll_interval must be positive"))
	return v.Err("invalid configuration")
}

func (c OutboxConfig) options() []outbox.Option {
	return []outbox.Option{
		outbox.WithLockName(c.LockName),
		outbox.WithBatchSize(c.BatchSize),
		outbox.WithLockTTL(c.LockTTL),
		outbox.WithPollInterval(c.PollInterval),
		outbox.WithContentionDelay(c.ContentionDelay),
	}
}
