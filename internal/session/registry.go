package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/turnlat/internal/domain/latency"
	"github.com/okian/turnlat/pkg/logger"
	"github.com/okian/turnlat/pkg/metrics"
)

// Registry tracks open sessions. Sessions never expire on their own: a
// session with a partial turn stays open until it is closed.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	trackerOpts []latency.Option
	callbacks   []ShutdownCallback
	logger      logger.Logger
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithLogger sets the registry logger. Trackers log through it as well.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTrackerOptions passes options to every new session's tracker.
func WithTrackerOptions(opts ...latency.Option) Option {
	return func(r *Registry) {
		r.trackerOpts = append(r.trackerOpts, opts...)
	}
}

// WithShutdownCallback registers cb on every session opened afterwards.
func WithShutdownCallback(cb ShutdownCallback) Option {
	return func(r *Registry) {
		if cb != nil {
			r.callbacks = append(r.callbacks, cb)
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		logger:   logger.Get().Named("session"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open starts a session. An empty id gets a generated UUID.
func (r *Registry) Open(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	r.mu.Lock()
	if _, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("open %s: %w", id, ErrExists)
	}
	s := r.newSession(id)
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.UpdateActiveSessions(n)
	r.logger.Info(ctx, "session opened", logger.String("session", id))
	return s, nil
}

// GetOrOpen returns the open session for id, opening it when absent.
func (r *Registry) GetOrOpen(ctx context.Context, id string) (*Session, error) {
	if s, ok := r.Get(id); ok {
		return s, nil
	}
	s, err := r.Open(ctx, id)
	if err == nil {
		return s, nil
	}
	// Lost a race with a concurrent Open.
	if s, ok := r.Get(id); ok {
		return s, nil
	}
	return nil, err
}

func (r *Registry) newSession(id string) *Session {
	opts := append([]latency.Option{
		latency.WithLogger(r.logger.With(logger.String("session", id))),
	}, r.trackerOpts...)
	s := &Session{
		id:       id,
		openedAt: time.Now(),
		tracker:  latency.New(opts...),
	}
	s.callbacks = append(s.callbacks, r.callbacks...)
	return s
}

// Get returns the open session for id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns the open session ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Close removes the session and runs its shutdown callbacks.
func (r *Registry) Close(ctx context.Context, id string) (Final, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return Final{}, fmt.Errorf("close %s: %w", id, ErrNotFound)
	}

	metrics.UpdateActiveSessions(n)
	metrics.RecordSessionClosed()
	f, err := s.Close(ctx)
	if err != nil {
		r.logger.Warn(ctx, "shutdown callback failed", logger.String("session", id), logger.Error(err))
	}
	r.logger.Info(ctx, "session closed", logger.String("session", id), logger.Int("turns", len(f.Turns)))
	return f, err
}

// CloseAll closes every open session, e.g. at process shutdown.
func (r *Registry) CloseAll(ctx context.Context) []Final {
	ids := r.IDs()
	out := make([]Final, 0, len(ids))
	for _, id := range ids {
		f, err := r.Close(ctx, id)
		if err != nil && f.SessionID == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}
