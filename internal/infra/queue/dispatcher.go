package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/entity"
	"github.com/xavierca1/salespilot/internal/infra/metrics"
)

var (
	ErrDispatcherClosed = errors.New("dispatcher closed")
	ErrQueueFull        = errors.New("notification queue full")
)

const (
	DefaultDispatchWorkers = 4
	DefaultDispatchBuffer  = 256
	DefaultDeliveryTimeout = 30 * time.Second
)

// Dispatcher delivers notifications on background goroutines so callers
// never wait on SMTP. Deliveries outlive the request that queued them.
type Dispatcher struct {
	mailer  Mailer
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

type job struct {
	ctx context.Context
	n   entity.Notification
}

func NewDispatcher(mailer Mailer, workers, buffer int, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultDispatchWorkers
	}
	if buffer <= 0 {
		buffer = DefaultDispatchBuffer
	}
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		mailer:  mailer,
		logger:  logger,
		timeout: timeout,
		jobs:    make(chan job, buffer),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.run()
	}
	return d
}

// Notify queues n and returns immediately. It fails only when the
// dispatcher is closed or the buffer is full.
func (d *Dispatcher) Notify(ctx context.Context, n entity.Notification) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.jobs <- job{ctx: context.WithoutCancel(ctx), n: n}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()

	if err := d.mailer.Deliver(ctx, j.n); err != nil {
		metrics.RecordNotification(string(j.n.Kind), "dispatch_failed")
		d.logger.Warn("notification delivery failed",
			zap.String("kind", string(j.n.Kind)),
			zap.String("lead_id", j.n.LeadID),
			zap.Error(err))
	}
}

// Close stops accepting notifications, drains the queue and waits for the
// workers to finish or ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
