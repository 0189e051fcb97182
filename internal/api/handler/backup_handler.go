package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"fiado-ledger/internal/api/handler/dto"
	"fiado-ledger/internal/domain/backup"
	"fiado-ledger/internal/pkg/apperrors"
)

// maxImportBytes bounds the accepted backup file size.
const maxImportBytes = 10 << 20

type BackupHandler struct {
	service backup.BackupService
	logger  *slog.Logger
}

func NewBackupHandler(s backup.BackupService, l *slog.Logger) *BackupHandler {
	if s == nil {
		panic("backup service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &BackupHandler{
		service: s,
		logger:  l.With("component", "BackupHandler"),
	}
}

// Import handles POST /backup/import
// @Summary Import a backup file
// @Description Validates the whole backup payload, then merges it into the ledger by customer name. An empty array triggers the configured empty-import policy.
// @Tags Backup
// @Accept json
// @Produce json
// @Success 200 {object} dto.ImportSummaryResponse "Import summary"
// @Failure 400 {object} dto.ErrorResponse "Empty import rejected by policy"
// @Failure 422 {object} dto.ErrorResponse "Malformed backup payload"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /backup/import [post]
// @Security BearerAuth
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "Received backup import request")

	if r.Body == nil {
		respondError(w, fmt.Errorf("%w: no request body", apperrors.ErrInvalidArgument))
		return
	}
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to read import body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	summary, err := h.service.Import(r.Context(), data)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrImportFormat) && !errors.Is(err, apperrors.ErrValidation) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Backup import failed", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Backup import finished",
		slog.Int("added", summary.Added), slog.Int("updated", summary.Updated), slog.Int("errors", summary.Errors))
	respondJSON(w, http.StatusOK, dto.NewImportSummaryResponse(summary))
}

// Export handles GET /backup/export
// @Summary Export all customer records
// @Description Serializes every customer record to pretty-printed JSON and serves it as a dated attachment.
// @Tags Backup
// @Produce json
// @Success 200 {array} backup.ExportRecord "Backup file"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /backup/export [get]
// @Security BearerAuth
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "Received backup export request")

	data, err := h.service.Export(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Backup export failed", slog.Any("error", err))
		respondError(w, err)
		return
	}

	filename := backup.ExportFilename(time.Now())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
