package outbox

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/enverbisevac/txoutbox/outbox"

type processorMetrics struct {
	published     metric.Int64Counter
	failed        metric.Int64Counter
	contended     metric.Int64Counter
	cycleDuration metric.Float64Histogram
}

func newProcessorMetrics(provider metric.MeterProvider) (processorMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter(meterName)

	var (
		m   processorMetrics
		err error
	)

	m.published, err = meter.Int64Counter(
		"outbox.messages.published",
		metric.WithDescription("Number of outbox messages successfully published"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return processorMetrics{}, fmt.Errorf("create outbox.messages.published counter: %w", err)
	}

	m.failed, err = meter.Int64Counter(
		"outbox.messages.failed",
		metric.WithDescription("Number of outbox publish attempts that failed"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return processorMetrics{}, fmt.Errorf("create outbox.messages.failed counter: %w", err)
	}

	m.contended, err = meter.Int64Counter(
		"outbox.lock.contended",
		metric.WithDescription("Number of cycles skipped because the lease was held elsewhere"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return processorMetrics{}, fmt.Errorf("create outbox.lock.contended counter: %w", err)
	}

	m.cycleDuration, err = meter.Float64Histogram(
		"outbox.cycle.duration",
		metric.WithDescription("Time taken per processing cycle that held the lease"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return processorMetrics{}, fmt.Errorf("create outbox.cycle.duration histogram: %w", err)
	}

	return m, nil
}
