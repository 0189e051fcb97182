package handler

import (
	"log/slog"
	"net/http"

	"fiado-ledger/internal/domain/report"
)

type ReportHandler struct {
	service report.ReportService
	logger  *slog.Logger
}

func NewReportHandler(s report.ReportService, l *slog.Logger) *ReportHandler {
	if s == nil {
		panic("report service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &ReportHandler{
		service: s,
		logger:  l.With("component", "ReportHandler"),
	}
}

// GetStatistics handles GET /reports/statistics
// @Summary Retrieve ledger statistics
// @Description Aggregates customer counts, outstanding debt, total payments and the largest open tabs.
// @Tags Reports
// @Produce json
// @Success 200 {object} report.Statistics "Ledger statistics"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /reports/statistics [get]
// @Security BearerAuth
func (h *ReportHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received statistics request")

	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to compute statistics", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
