package api

import (
	"context"
	"net/http"

	"github.com/okian/turnlat/internal/adapters/repository"
)

// ReportDependencies defines the interface for closed-session reports.
type ReportDependencies interface {
	Report(ctx context.Context, id string) (repository.Report, error)
}

// ReportsHandler handles report requests.
type ReportsHandler struct {
	deps ReportDependencies
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps ReportDependencies) *ReportsHandler {
	return &ReportsHandler{deps: deps}
}

// HandleGetReport handles GET /reports/{id}.
func (h *ReportsHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.deps.Report(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap("api.get_report", err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
