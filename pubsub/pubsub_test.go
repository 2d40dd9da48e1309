package pubsub

import (
	"testing"
	"time"
)

func TestFormatTopic(t *testing.T) {
	if got := FormatTopic("shop", "orders", "send_email_v1"); got != "shop:orders:send_email_v1" {
		t.Errorf("FormatTopic() = %q", got)
	}
}

func TestPublishTopic(t *testing.T) {
	config := DefaultConfig()

	if got := PublishTopic(config, "t"); got != "app:default:t" {
		t.Errorf("PublishTopic() = %q, want %q", got, "app:default:t")
	}
	if got := PublishTopic(config, "t", WithPublishApp("shop"), WithPublishNamespace("eu")); got != "shop:eu:t" {
		t.Errorf("PublishTopic() = %q, want %q", got, "shop:eu:t")
	}
}

func TestSubscribeTopic(t *testing.T) {
	config := DefaultConfig()

	if got := SubscribeTopic(config, "t", WithSubscribeNamespace("eu")); got != "app:eu:t" {
		t.Errorf("SubscribeTopic() = %q, want %q", got, "app:eu:t")
	}
	if got := SubscribeTopic(config, "t", WithSubscribeApp("billing")); got != "billing:default:t" {
		t.Errorf("SubscribeTopic() = %q, want %q", got, "billing:default:t")
	}
}

func TestOptions(t *testing.T) {
	config := DefaultConfig()
	for _, opt := range []Option{
		WithApp("shop"),
		WithNamespace(""),
		WithHealthCheckInterval(0),
		WithSendTimeout(time.Second),
		WithSize(0),
	} {
		opt.Apply(&config)
	}

	if config.App != "shop" {
		t.Errorf("App = %q, want %q", config.App, "shop")
	}
	if config.Namespace != DefaultNamespace {
		t.Errorf("Namespace = %q, want %q", config.Namespace, DefaultNamespace)
	}
	if config.HealthInterval != 0 {
		t.Errorf("HealthInterval = %v, want 0", config.HealthInterval)
	}
	if config.SendTimeout != time.Second {
		t.Errorf("SendTimeout = %v, want %v", config.SendTimeout, time.Second)
	}
	if config.ChannelSize != 100 {
		t.Errorf("ChannelSize = %d, want 100", config.ChannelSize)
	}
}
