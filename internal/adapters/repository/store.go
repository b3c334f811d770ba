// Package repository keeps the final reports of closed sessions.
package repository

import (
	"context"
	"time"

	"github.com/okian/turnlat/internal/domain/latency"
	"github.com/okian/turnlat/internal/domain/model"
)

// Report is the final state of a closed session.
type Report struct {
	SessionID string                `json:"session_id"`
	OpenedAt  time.Time             `json:"opened_at"`
	ClosedAt  time.Time             `json:"closed_at"`
	HasData   bool                  `json:"has_data"`
	Summary   latency.Summary       `json:"summary"`
	Turns     []model.CompletedTurn `json:"turns"`
}

// Store provides read/write access to closed-session reports.
type Store interface {
	// Put stores r, replacing any report with the same session id.
	Put(ctx context.Context, r Report) error

	// Get returns the report for a session or ErrNotFound.
	Get(ctx context.Context, sessionID string) (Report, error)

	// Count returns the number of stored reports.
	Count(ctx context.Context) int
}
