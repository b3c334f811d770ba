package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/turnlat/internal/adapters/repository"
	"github.com/okian/turnlat/internal/domain/types"
)

// SessionDependencies defines the session operations the API needs.
type SessionDependencies interface {
	OpenSession(ctx context.Context, id string) (types.SessionInfo, error)
	CloseSession(ctx context.Context, id string) (repository.Report, error)
	Summary(ctx context.Context, id string) (types.SummaryView, error)
	Turns(ctx context.Context, id string) (types.TurnsView, error)
}

type openSessionRequest struct {
	SessionID string `json:"session_id"`
}

// SessionsHandler handles session lifecycle and live reads.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleOpen handles POST /sessions. The body is optional.
func (h *SessionsHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	const op = "api.open_session"
	var req openSessionRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	info, err := h.deps.OpenSession(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// HandleClose handles DELETE /sessions/{id} and returns the final report.
func (h *SessionsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	const op = "api.close_session"
	rep, err := h.deps.CloseSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleSummary handles GET /sessions/{id}/summary.
func (h *SessionsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.session_summary"
	view, err := h.deps.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleTurns handles GET /sessions/{id}/turns.
func (h *SessionsHandler) HandleTurns(w http.ResponseWriter, r *http.Request) {
	const op = "api.session_turns"
	view, err := h.deps.Turns(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}
