package notify

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/originals/task-api/internal/core/domain"
	"github.com/originals/task-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes status changes to a fixed set of workers, sharded by task
// id so that changes to one task are delivered in order.
type Dispatcher struct {
	workers []chan domain.StatusChange
	sink    Sink
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink Sink, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.StatusChange, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.StatusChange, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Notify queues the change for delivery and returns immediately. When the
// worker's buffer is full the change is dropped and counted.
func (d *Dispatcher) Notify(_ context.Context, change domain.StatusChange) error {
	idx := d.shardIndex(change.TaskID)
	select {
	case d.workers[idx] <- change:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().
			Int64("task_id", change.TaskID).
			Int("worker_id", idx).
			Msg("notification queue full, dropping")
	}
	return nil
}

// shardIndex maps a task id deterministically to a worker index.
func (d *Dispatcher) shardIndex(taskID int64) int {
	n := int64(len(d.workers))
	return int(((taskID % n) + n) % n)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.StatusChange) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			metrics.NotificationQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliver(ctx, id, change)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, worker int, change domain.StatusChange) {
	start := time.Now()
	err := d.sink.Send(ctx, change)
	metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Int64("task_id", change.TaskID).
			Str("status", string(change.Status)).
			Int("worker_id", worker).
			Msg("notification delivery failed")
	}
}
