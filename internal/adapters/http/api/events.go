package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/turnlat/internal/domain/ingest"
	"github.com/okian/turnlat/internal/domain/types"
)

// EventDependencies defines the interface for event processing dependencies.
type EventDependencies interface {
	Ingest(ctx context.Context, raw ingest.RawEvent) (ingest.Outcome, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /events requests. Unknown kinds and null
// values are acknowledged with 202 and a status saying they were not recorded.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req ingest.RawEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	outcome, err := h.deps.Ingest(r.Context(), req)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, types.EventAck{Status: outcome.String(), Reason: outcome.DropReason()})
}
