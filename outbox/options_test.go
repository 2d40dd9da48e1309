package outbox

import (
	"testing"
	"time"

	"github.com/enverbisevac/txoutbox/timeutil"
)

func TestDefaultConfig(t *testing.T) {
	config := newConfig(nil)

	if config.BatchSize != 20 {
		t.Errorf("BatchSize = %d, want 20", config.BatchSize)
	}
	if config.LockName != "outbox-processor" {
		t.Errorf("LockName = %q, want %q", config.LockName, "outbox-processor")
	}
	if config.LockTTL != 30*time.Minute {
		t.Errorf("LockTTL = %v, want %v", config.LockTTL, 30*time.Minute)
	}
	if config.PollInterval != 5*time.Minute {
		t.Errorf("PollInterval = %v, want %v", config.PollInterval, 5*time.Minute)
	}
	if config.ContentionDelay != time.Second {
		t.Errorf("ContentionDelay = %v, want %v", config.ContentionDelay, time.Second)
	}
	if _, ok := config.Codec.(JSONCodec); !ok {
		t.Errorf("Codec = %T, want JSONCodec", config.Codec)
	}
}

func TestOptions(t *testing.T) {
	clock := timeutil.NewFixedClock(t0)
	config := newConfig([]Option{
		WithBatchSize(50),
		WithLockName("billing"),
		WithLockTTL(time.Minute),
		WithPollInterval(5 * time.Second),
		WithContentionDelay(0),
		WithClock(clock),
	})

	if config.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", config.BatchSize)
	}
	if config.LockName != "billing" {
		t.Errorf("LockName = %q, want %q", config.LockName, "billing")
	}
	if config.LockTTL != time.Minute {
		t.Errorf("LockTTL = %v, want %v", config.LockTTL, time.Minute)
	}
	if config.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want %v", config.PollInterval, 5*time.Second)
	}
	if config.ContentionDelay != 0 {
		t.Errorf("ContentionDelay = %v, want 0", config.ContentionDelay)
	}
	if config.Clock != clock {
		t.Errorf("Clock was not applied")
	}
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	config := newConfig([]Option{
		WithBatchSize(0),
		WithLockName(""),
		WithLockTTL(-time.Second),
		WithPollInterval(0),
		WithContentionDelay(-1),
		WithClock(nil),
		WithCodec(nil),
	})

	if config.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", config.BatchSize, DefaultBatchSize)
	}
	if config.LockName != DefaultLockName {
		t.Errorf("LockName = %q, want %q", config.LockName, DefaultLockName)
	}
	if config.LockTTL != DefaultLockTTL {
		t.Errorf("LockTTL = %v, want %v", config.LockTTL, DefaultLockTTL)
	}
	if config.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", config.PollInterval, DefaultPollInterval)
	}
	if config.ContentionDelay != DefaultContentionDelay {
		t.Errorf("ContentionDelay = %v, want %v", config.ContentionDelay, DefaultContentionDelay)
	}
	if config.Clock == nil || config.Codec == nil {
		t.Errorf("nil clock or codec replaced defaults")
	}
}
