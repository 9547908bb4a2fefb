package app

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/arbscan/arbscan/internal/apperror"
	"github.com/arbscan/arbscan/internal/logger"
)

const (
	meterName = "github.com/arbscan/arbscan/business/notify/app"

	// DefaultWorkers is the delivery concurrency bound.
	DefaultWorkers = 3

	defaultQueueSize = 256
)

// dispatcherMetrics holds OTEL metric instruments.
type dispatcherMetrics struct {
	enqueued       metric.Int64Counter
	delivered      metric.Int64Counter
	deliveryErrors metric.Int64Counter
}

// Dispatcher drains a FIFO queue of alert messages through a fixed pool
// of delivery workers. Delivery is best-effort: failures are logged and
// never retried. Stop cancels the workers, waits for the cancellation
// to be acknowledged and only then releases the sender; messages still
// queued at that point are lost.
type Dispatcher struct {
	sender  Sender
	workers int
	logger  logger.LoggerInterface

	queue chan string

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	metrics *dispatcherMetrics
}

// NewDispatcher creates a dispatcher over the given sender. A workers
// value of zero falls back to DefaultWorkers.
func NewDispatcher(sender Sender, workers int, log logger.LoggerInterface) (*Dispatcher, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	d := &Dispatcher{
		sender:  sender,
		workers: workers,
		logger:  log,
		queue:   make(chan string, defaultQueueSize),
	}

	if err := d.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return d, nil
}

func (d *Dispatcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	d.metrics = &dispatcherMetrics{}

	d.metrics.enqueued, err = meter.Int64Counter(
		"alerts_enqueued_total",
		metric.WithDescription("Total alert messages enqueued"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return err
	}

	d.metrics.delivered, err = meter.Int64Counter(
		"alerts_delivered_total",
		metric.WithDescription("Total alert messages delivered"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return err
	}

	d.metrics.deliveryErrors, err = meter.Int64Counter(
		"alert_delivery_errors_total",
		metric.WithDescription("Total alert delivery failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Start spins up the delivery workers. Calling it while already
// running is a no-op.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}
	if d.stopped {
		return apperror.New(apperror.CodeDispatcherStopped,
			apperror.WithContext("dispatcher already stopped"))
	}

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running = true

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.drain(workerCtx, id)
		}(i)
	}

	done := d.done
	go func() {
		wg.Wait()
		close(done)
	}()

	d.logger.Info(ctx, "dispatcher started", "workers", d.workers)

	return nil
}

// drain pulls messages until cancelled.
func (d *Dispatcher) drain(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			d.logger.Debug(ctx, "dispatcher worker stopping", "worker", id)
			return
		case message := <-d.queue:
			if err := d.sender.Send(ctx, message); err != nil {
				d.metrics.deliveryErrors.Add(ctx, 1)
				d.logger.Error(ctx, "alert delivery failed", "worker", id, "error", err)
				continue
			}
			d.metrics.delivered.Add(ctx, 1)
		}
	}
}

// Enqueue accepts a message for asynchronous delivery. It fails when the
// dispatcher has been stopped or the queue is full. The stopped check and
// the send happen under one lock so an Enqueue racing Stop can never park
// on a queue nobody drains anymore.
func (d *Dispatcher) Enqueue(message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return apperror.New(apperror.CodeDispatcherStopped,
			apperror.WithContext("cannot enqueue after stop"))
	}

	select {
	case d.queue <- message:
	default:
		return apperror.New(apperror.CodeQueueFull,
			apperror.WithContext("alert queue full, message dropped"))
	}

	d.metrics.enqueued.Add(context.Background(), 1)

	return nil
}

// Stop cancels the workers, waits for the cancellation to be
// acknowledged and releases the sender. Queued messages are dropped.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.stopped = true
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.stopped = true
	cancel := d.cancel
	done := d.done
	d.mu.Unlock()

	cancel()
	<-done

	dropped := len(d.queue)
	if dropped > 0 {
		d.logger.Warn(context.Background(), "dropping queued alerts on stop", "count", dropped)
	}

	return d.sender.Close()
}
