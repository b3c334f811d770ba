// Package service wires sessions, the event dispatcher and the report store
// into the operations the HTTP API and CLI need.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/turnlat/internal/adapters/mq/queue"
	"github.com/okian/turnlat/internal/adapters/mq/worker"
	"github.com/okian/turnlat/internal/adapters/repository"
	"github.com/okian/turnlat/internal/domain/ingest"
	"github.com/okian/turnlat/internal/domain/model"
	"github.com/okian/turnlat/internal/domain/types"
	"github.com/okian/turnlat/internal/report"
	"github.com/okian/turnlat/internal/session"
	"github.com/okian/turnlat/pkg/logger"
	"github.com/okian/turnlat/pkg/metrics"
)

const stopTimeout = 10 * time.Second

// Service implements the API dependencies for the latency tracker.
type Service struct {
	mu sync.RWMutex

	sessions   *session.Registry
	dispatcher *worker.Dispatcher
	reports    repository.Store

	laneCount       int
	queueSize       int
	reportRetention int
	autoOpen        bool

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		laneCount:       runtime.NumCPU(),
		queueSize:       10000,
		reportRetention: 1000,
		autoOpen:        true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.reports = repository.NewMemoryStore(repository.WithRetention(s.reportRetention))
	s.sessions = session.NewRegistry(
		session.WithShutdownCallback(s.onSessionClosed),
	)
	s.dispatcher = worker.NewDispatcher(
		worker.RecorderFunc(s.record),
		worker.WithLanes(s.laneCount),
		worker.WithQueueSize(s.queueSize),
	)

	// Lanes outlive the caller's context so Stop can drain them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.dispatcher.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "latency service started",
		logger.Int("lanes", s.laneCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("report_retention", s.reportRetention),
		logger.Bool("auto_open_sessions", s.autoOpen),
	)
	return nil
}

// Stop drains queued events, closes every open session so its summary is
// emitted, and releases the lanes.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping latency service...")
	if err := s.dispatcher.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "dispatcher did not drain", logger.Error(err))
	}
	finals := s.sessions.CloseAll(ctx)
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "latency service stopped", logger.Int("sessions_closed", len(finals)))
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Ingest classifies raw and hands accepted events to the session's lane.
// Unknown kinds and null values are acknowledged without being recorded.
func (s *Service) Ingest(ctx context.Context, raw ingest.RawEvent) (ingest.Outcome, error) {
	if !s.running() {
		return ingest.Ignored, ErrNotStarted
	}

	ev, outcome, err := ingest.Classify(raw)
	if err != nil {
		metrics.RecordEventDropped("malformed")
		return outcome, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	metrics.RecordEventReceived(ev.Kind.String())
	if outcome != ingest.Accepted {
		metrics.RecordEventDropped(outcome.DropReason())
		s.logger.Debug(ctx, "event not recorded",
			logger.String("event_id", raw.EventID),
			logger.String("type", raw.Type),
			logger.String("outcome", outcome.String()),
		)
		return outcome, nil
	}

	if _, ok := s.sessions.Get(ev.SessionID); !ok && s.closedEarlier(ctx, ev.SessionID) {
		metrics.RecordEventDropped("session_closed")
		return outcome, fmt.Errorf("session %s: %w", ev.SessionID, ErrSessionClosed)
	}
	if s.autoOpen {
		if _, err := s.sessions.GetOrOpen(ctx, ev.SessionID); err != nil {
			return outcome, fmt.Errorf("open session %s: %w", ev.SessionID, err)
		}
	} else if _, ok := s.sessions.Get(ev.SessionID); !ok {
		return outcome, fmt.Errorf("session %s: %w", ev.SessionID, ErrNotFound)
	}

	switch err := s.dispatcher.Submit(ctx, ev); {
	case err == nil:
		return outcome, nil
	case errors.Is(err, queue.ErrFull):
		metrics.RecordEventDropped("backpressure")
		return outcome, fmt.Errorf("%w: %w", ErrBackpressure, err)
	case errors.Is(err, worker.ErrStopped):
		return outcome, ErrStopped
	default:
		return outcome, fmt.Errorf("submit %s: %w", ev.EventID, err)
	}
}

// record runs on the session's lane. Failures are contained so a bad event
// never stops the lane.
func (s *Service) record(ctx context.Context, ev model.MetricEvent) error {
	failed := ingest.Guard(ctx, s.logger, "record", func() error {
		sess, ok := s.sessions.Get(ev.SessionID)
		if !ok {
			return fmt.Errorf("session %s: %w", ev.SessionID, session.ErrNotFound)
		}
		_, _, err := sess.Record(ctx, ev)
		return err
	})
	if failed {
		return errDiscarded
	}
	return nil
}

// OpenSession opens a session. An empty id gets a generated one.
func (s *Service) OpenSession(ctx context.Context, id string) (types.SessionInfo, error) {
	if !s.running() {
		return types.SessionInfo{}, ErrNotStarted
	}
	if id != "" && s.closedEarlier(ctx, id) {
		return types.SessionInfo{}, fmt.Errorf("session %s: %w", id, ErrSessionClosed)
	}
	sess, err := s.sessions.Open(ctx, id)
	if errors.Is(err, session.ErrExists) {
		return types.SessionInfo{}, fmt.Errorf("session %s: %w", id, ErrConflict)
	}
	if err != nil {
		return types.SessionInfo{}, err
	}
	return types.SessionInfo{SessionID: sess.ID(), OpenedAt: sess.OpenedAt()}, nil
}

// CloseSession waits for the session's queued events, closes it and returns
// its final report.
func (s *Service) CloseSession(ctx context.Context, id string) (repository.Report, error) {
	if !s.running() {
		return repository.Report{}, ErrNotStarted
	}
	if _, ok := s.sessions.Get(id); !ok {
		return repository.Report{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err := s.dispatcher.Flush(ctx, id); err != nil {
		s.logger.Warn(ctx, "flush before close failed", logger.String("session", id), logger.Error(err))
	}

	f, err := s.sessions.Close(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return repository.Report{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	// Callback errors were logged by the registry; the report is still valid.
	return reportFrom(f), nil
}

// closedEarlier reports whether id was closed and its report is still retained.
func (s *Service) closedEarlier(ctx context.Context, id string) bool {
	_, err := s.reports.Get(ctx, id)
	return err == nil
}

func (s *Service) onSessionClosed(ctx context.Context, f session.Final) error {
	report.Log(ctx, s.logger.Named("report"), f.SessionID, f.Summary, f.HasData)
	if f.HasData {
		metrics.RecordSessionVerdict(string(f.Summary.Verdict))
	}
	return s.reports.Put(ctx, reportFrom(f))
}

func reportFrom(f session.Final) repository.Report {
	return repository.Report{
		SessionID: f.SessionID,
		OpenedAt:  f.OpenedAt,
		ClosedAt:  f.ClosedAt,
		HasData:   f.HasData,
		Summary:   f.Summary,
		Turns:     f.Turns,
	}
}

func (s *Service) liveSession(ctx context.Context, id string) (*session.Session, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err := s.dispatcher.Flush(ctx, id); err != nil {
		s.logger.Debug(ctx, "flush before read failed", logger.String("session", id), logger.Error(err))
	}
	return sess, nil
}

// Summary returns the live summary of an open session, including every
// event submitted before the call.
func (s *Service) Summary(ctx context.Context, id string) (types.SummaryView, error) {
	sess, err := s.liveSession(ctx, id)
	if err != nil {
		return types.SummaryView{}, err
	}
	summary, ok := sess.Tracker().Summary()
	return types.NewSummaryView(id, summary, ok), nil
}

// Turns returns the completed turns and the partial turn of an open session.
func (s *Service) Turns(ctx context.Context, id string) (types.TurnsView, error) {
	sess, err := s.liveSession(ctx, id)
	if err != nil {
		return types.TurnsView{}, err
	}
	return types.TurnsView{
		SessionID: id,
		Turns:     sess.Tracker().History(),
		Pending:   sess.Tracker().Pending(),
	}, nil
}

// Report returns the stored report of a closed session.
func (s *Service) Report(ctx context.Context, id string) (repository.Report, error) {
	if !s.running() {
		return repository.Report{}, ErrNotStarted
	}
	r, err := s.reports.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Report{}, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return r, err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":          s.started,
		"laneCount":        s.laneCount,
		"queueSize":        s.queueSize,
		"reportRetention":  s.reportRetention,
		"autoOpenSessions": s.autoOpen,
	}

	if s.started {
		ds := s.dispatcher.Stats(ctx)
		stats["queueLength"] = ds.QueueDepth
		stats["processed"] = ds.Processed
		stats["failed"] = ds.Failed
		stats["activeSessions"] = s.sessions.Len()
		stats["reportsStored"] = s.reports.Count(ctx)

		metrics.UpdateActiveSessions(s.sessions.Len())
	}
	return stats
}
