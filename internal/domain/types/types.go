// Package types contains the response shapes shared by the service and API.
package types

import (
	"time"

	"github.com/okian/turnlat/internal/domain/latency"
	"github.com/okian/turnlat/internal/domain/model"
)

// NoTurnsMessage accompanies a live summary with no completed turns.
const NoTurnsMessage = "no turns recorded"

// EventAck is the response to an ingested event.
type EventAck struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// SessionInfo describes an open session.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	OpenedAt  time.Time `json:"opened_at"`
}

// SummaryView is the live summary of a session.
type SummaryView struct {
	SessionID string           `json:"session_id"`
	Turns     int              `json:"turns"`
	Message   string           `json:"message,omitempty"`
	Summary   *latency.Summary `json:"summary,omitempty"`
}

// NewSummaryView builds the view for a summary; ok is false when no turn
// has completed yet.
func NewSummaryView(sessionID string, s latency.Summary, ok bool) SummaryView {
	if !ok {
		return SummaryView{SessionID: sessionID, Message: NoTurnsMessage}
	}
	return SummaryView{SessionID: sessionID, Turns: s.Turns, Summary: &s}
}

// TurnsView lists a session's completed turns and its partial turn.
type TurnsView struct {
	SessionID string                `json:"session_id"`
	Turns     []model.CompletedTurn `json:"turns"`
	Pending   latency.Pending       `json:"pending"`
}
