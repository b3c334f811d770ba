// Package session owns one latency tracker per conversation session and runs
// the session's shutdown callbacks when it closes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/turnlat/internal/domain/latency"
	"github.com/okian/turnlat/internal/domain/model"
)

// Final is the state of a session at close, handed to shutdown callbacks.
type Final struct {
	SessionID string
	OpenedAt  time.Time
	ClosedAt  time.Time
	Summary   latency.Summary
	HasData   bool
	Turns     []model.CompletedTurn
	Pending   latency.Pending
}

// ShutdownCallback runs once when a session closes.
type ShutdownCallback func(ctx context.Context, f Final) error

// Session is a single conversation with its own tracker.
type Session struct {
	id       string
	openedAt time.Time
	tracker  *latency.Tracker

	// Record holds mu for reading, Close for writing, so no turn can
	// complete after the final snapshot.
	mu        sync.RWMutex
	callbacks []ShutdownCallback
	closed    bool
	final     Final
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// OpenedAt returns when the session was opened.
func (s *Session) OpenedAt() time.Time { return s.openedAt }

// Tracker returns the session's latency tracker.
func (s *Session) Tracker() *latency.Tracker { return s.tracker }

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// AddShutdownCallback registers fn to run at close, after earlier callbacks.
func (s *Session) AddShutdownCallback(fn ShutdownCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("add shutdown callback to %s: %w", s.id, ErrClosed)
	}
	s.callbacks = append(s.callbacks, fn)
	return nil
}

// Record forwards a classified event to the tracker.
func (s *Session) Record(ctx context.Context, ev model.MetricEvent) (model.CompletedTurn, bool, error) {
	if ev.Seconds == nil {
		return model.CompletedTurn{}, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.CompletedTurn{}, false, fmt.Errorf("record into %s: %w", s.id, ErrClosed)
	}
	turn, ok := s.tracker.Record(ctx, ev.Kind, *ev.Seconds)
	return turn, ok, nil
}

// Close summarizes the session and runs shutdown callbacks in registration
// order. It is idempotent: later calls return the first Final. Callback
// errors do not stop later callbacks and are returned joined.
func (s *Session) Close(ctx context.Context) (Final, error) {
	s.mu.Lock()
	if s.closed {
		f := s.final
		s.mu.Unlock()
		return f, nil
	}
	s.closed = true
	history := s.tracker.History()
	summary, ok := latency.Summarize(history)
	s.final = Final{
		SessionID: s.id,
		OpenedAt:  s.openedAt,
		ClosedAt:  time.Now(),
		Summary:   summary,
		HasData:   ok,
		Turns:     history,
		Pending:   s.tracker.Pending(),
	}
	callbacks := s.callbacks
	s.callbacks = nil
	f := s.final
	s.mu.Unlock()

	var errs []error
	for _, cb := range callbacks {
		if err := cb(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return f, errors.Join(errs...)
}
