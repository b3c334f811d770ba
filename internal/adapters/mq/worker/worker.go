package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/turnlat/internal/adapters/mq/queue"
	"github.com/okian/turnlat/internal/domain/model"
	"github.com/okian/turnlat/pkg/logger"
	"github.com/okian/turnlat/pkg/metrics"
)

const (
	defaultQueueSize      = 10000
	metricsUpdateInterval = 5 * time.Second
	flushRetryInterval    = time.Millisecond
)

// Recorder consumes events in per-session arrival order.
type Recorder interface {
	Record(ctx context.Context, ev model.MetricEvent) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, ev model.MetricEvent) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, ev model.MetricEvent) error { return f(ctx, ev) }

// task is either an event or a flush barrier.
type task struct {
	event    model.MetricEvent
	barrier  chan struct{}
	enqueued time.Time
}

// lane is a queue drained by exactly one goroutine.
type lane struct {
	id       int
	queue    *queue.InMemoryQueue[task]
	recorder Recorder
	logger   logger.Logger
	done     chan struct{}

	processed *atomic.Int64
	failed    *atomic.Int64
}

func (l *lane) run(ctx context.Context) {
	defer close(l.done)
	for t := range l.queue.Dequeue(ctx) {
		if t.barrier != nil {
			close(t.barrier)
			continue
		}
		l.process(ctx, t)
	}
}

func (l *lane) process(ctx context.Context, t task) {
	start := time.Now()
	metrics.RecordQueueProcessingLatency(float64(start.Sub(t.enqueued).Microseconds()) / 1000)
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := l.recorder.Record(ctx, t.event); err != nil {
		l.failed.Add(1)
		metrics.RecordWorkerError()
		l.logger.Error(ctx, "error recording event",
			logger.String("event_id", t.event.EventID),
			logger.String("session", t.event.SessionID),
			logger.Error(err),
		)
		return
	}
	l.processed.Add(1)
}

// Stats is a point-in-time view of the dispatcher.
type Stats struct {
	Lanes      int   `json:"lanes"`
	QueueDepth int   `json:"queue_depth"`
	Capacity   int   `json:"queue_capacity"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
}

// Dispatcher routes events to lanes by session id so one session's events
// are always recorded in arrival order by the same goroutine.
type Dispatcher struct {
	lanes     []*lane
	recorder  Recorder
	laneCount int
	queueSize int

	processed atomic.Int64
	failed    atomic.Int64

	shutdown chan struct{}
	stopped  atomic.Bool

	logger logger.Logger
}

// NewDispatcher creates a dispatcher. Lanes default to runtime.NumCPU().
func NewDispatcher(recorder Recorder, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		recorder:  recorder,
		laneCount: runtime.NumCPU(),
		queueSize: defaultQueueSize,
		shutdown:  make(chan struct{}),
		logger:    logger.Get().Named("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}

	perLane := d.queueSize / d.laneCount
	if perLane < 1 {
		perLane = 1
	}
	d.lanes = make([]*lane, d.laneCount)
	for i := range d.lanes {
		name := "lane-" + strconv.Itoa(i)
		d.lanes[i] = &lane{
			id:        i,
			queue:     queue.NewInMemoryQueue[task](queue.WithCapacity(perLane), queue.WithName(name)),
			recorder:  recorder,
			logger:    d.logger.Named(name),
			done:      make(chan struct{}),
			processed: &d.processed,
			failed:    &d.failed,
		}
	}

	metrics.UpdateLaneCount(d.laneCount)
	return d
}

// Start launches one goroutine per lane.
func (d *Dispatcher) Start(ctx context.Context) {
	for _, l := range d.lanes {
		go l.run(ctx)
	}
	go d.startMetricsUpdater(ctx)
	d.logger.Info(ctx, "dispatcher started", logger.Int("lanes", len(d.lanes)))
}

func (d *Dispatcher) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case <-ticker.C:
			for _, l := range d.lanes {
				l.queue.Len(ctx)
			}
		}
	}
}

// LaneFor returns the lane index for a session.
func (d *Dispatcher) LaneFor(sessionID string) int {
	return int(xxhash.Sum64String(sessionID) % uint64(len(d.lanes)))
}

// Submit enqueues ev on its session's lane without blocking. A full lane
// returns an error wrapping queue.ErrFull.
func (d *Dispatcher) Submit(ctx context.Context, ev model.MetricEvent) error {
	idx := d.LaneFor(ev.SessionID)
	err := d.lanes[idx].queue.Enqueue(ctx, task{event: ev, enqueued: time.Now()})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, queue.ErrClosed):
		return ErrStopped
	default:
		return fmt.Errorf("lane %d: %w", idx, err)
	}
}

// Flush waits until every event submitted for sessionID before the call has
// been recorded.
func (d *Dispatcher) Flush(ctx context.Context, sessionID string) error {
	l := d.lanes[d.LaneFor(sessionID)]
	barrier := make(chan struct{})
	t := task{barrier: barrier, enqueued: time.Now()}

	for {
		err := l.queue.Enqueue(ctx, t)
		if err == nil {
			break
		}
		if errors.Is(err, queue.ErrClosed) {
			return ErrStopped
		}
		if !errors.Is(err, queue.ErrFull) {
			return fmt.Errorf("flush lane %d: %w", l.id, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("flush lane %d: %w", l.id, ctx.Err())
		case <-time.After(flushRetryInterval):
		}
	}

	select {
	case <-barrier:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("flush lane %d: %w", l.id, ctx.Err())
	}
}

// Stats returns current queue depth and processing counters.
func (d *Dispatcher) Stats(ctx context.Context) Stats {
	s := Stats{
		Lanes:     len(d.lanes),
		Processed: d.processed.Load(),
		Failed:    d.failed.Load(),
	}
	for _, l := range d.lanes {
		s.QueueDepth += l.queue.Len(ctx)
		s.Capacity += l.queue.Capacity()
	}
	return s
}

// Shutdown stops accepting events and waits for every lane to drain.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if !d.stopped.CompareAndSwap(false, true) {
		return nil
	}
	close(d.shutdown)
	for _, l := range d.lanes {
		if err := l.queue.Close(); err != nil {
			d.logger.Error(ctx, "error closing lane", logger.Int("lane", l.id), logger.Error(err))
		}
	}

	for _, l := range d.lanes {
		select {
		case <-l.done:
		case <-ctx.Done():
			d.logger.Warn(ctx, "lane shutdown timed out", logger.Int("lane", l.id))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	return nil
}
