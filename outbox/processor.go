package outbox

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/lock"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Result summarizes one processing cycle.
type Result struct {
	// Acquired is false when another process held the lease and the cycle
	// was skipped.
	Acquired  bool
	Published int
	Failed    int
}

// Cycler runs one processing cycle.
type Cycler interface {
	Process(ctx context.Context) (Result, error)
}

var _ Cycler = (*Processor)(nil)

// Processor publishes one batch of pending messages while holding the
// processor lease.
type Processor struct {
	store      Store
	locks      lock.Service
	publishers PublisherFactory
	config     Config
	metrics    processorMetrics

	// contended is set while the lease is held elsewhere.
	contended atomic.Bool
}

// NewProcessor creates a new Processor.
func NewProcessor(store Store, locks lock.Service, publishers PublisherFactory, options ...Option) (*Processor, error) {
	config := newConfig(options)

	m, err := newProcessorMetrics(config.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("outbox: processor metrics: %w", err)
	}

	return &Processor{
		store:      store,
		locks:      locks,
		publishers: publishers,
		config:     config,
		metrics:    m,
	}, nil
}

// Process runs one cycle. Without the lease it returns a zero Result and a
// nil error. Publish failures are recorded on the message and do not fail
// the cycle; store failures do.
func (p *Processor) Process(ctx context.Context) (res Result, err error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("lock", p.config.LockName)

	lease, ok, err := p.locks.Acquire(ctx, p.config.LockName, p.config.LockTTL)
	if err != nil {
		return Result{}, fmt.Errorf("outbox: acquire lock: %w", err)
	}
	if !ok {
		if p.contended.CompareAndSwap(false, true) {
			log.Info("lock held elsewhere, skipping cycles until it is released")
		} else {
			log.V(1).Info("lock held elsewhere, skipping cycle")
		}
		p.metrics.contended.Add(ctx, 1)
		return Result{}, nil
	}
	p.contended.Store(false)

	res.Acquired = true
	start := time.Now()

	defer func() {
		// the lease must be released even when ctx is already cancelled
		bg := context.WithoutCancel(ctx)
		if rerr := lease.Release(bg); rerr != nil {
			log.Error(rerr, "outbox: release lock")
			err = errors.Join(err, fmt.Errorf("outbox: release lock: %w", rerr))
		}
		p.metrics.cycleDuration.Record(bg, time.Since(start).Seconds())
		log.V(1).Info("outbox cycle finished",
			"published", res.Published, "failed", res.Failed, "elapsed", time.Since(start))
	}()

	msgs, err := p.store.FetchPending(ctx, p.config.BatchSize)
	if err != nil {
		return res, fmt.Errorf("outbox: fetch pending: %w", err)
	}
	if len(msgs) == 0 {
		return res, nil
	}

	pub, err := p.publishers.NewPublisher(ctx)
	if err != nil {
		return res, fmt.Errorf("outbox: new publisher: %w", err)
	}
	if closer, ok := pub.(io.Closer); ok {
		defer func() {
			if cerr := closer.Close(); cerr != nil {
				log.Error(cerr, "outbox: close publisher")
			}
		}()
	}

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		attrs := metric.WithAttributes(attribute.String("message_type", msg.Type))

		if perr := pub.Publish(ctx, msg.Type, msg.Payload); perr != nil {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			log.Error(perr, "outbox: publish failed", "id", msg.ID, "type", msg.Type)
			msg.MarkFailed(perr)
			if err := p.store.Update(ctx, msg); err != nil {
				return res, fmt.Errorf("outbox: update message %s: %w", msg.ID, err)
			}
			res.Failed++
			p.metrics.failed.Add(ctx, 1, attrs)
			continue
		}

		msg.MarkPublished(p.config.Clock.Now())
		if err := p.store.Update(ctx, msg); err != nil {
			return res, fmt.Errorf("outbox: update message %s: %w", msg.ID, err)
		}
		res.Published++
		p.metrics.published.Add(ctx, 1, attrs)
	}

	return res, nil
}
