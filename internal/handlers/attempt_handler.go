package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/cdc-hr/assessment-engine/internal/repositories"
	"github.com/cdc-hr/assessment-engine/internal/services"
	"github.com/cdc-hr/assessment-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

// AttemptHandler exposes the attempt history and results exports.
type AttemptHandler struct {
	BaseHandler
	sessionService services.SessionService
	importExport   services.ImportExportService
}

func NewAttemptHandler(
	sessionService services.SessionService,
	importExport services.ImportExportService,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		importExport:   importExport,
	}
}

// ListAttempts returns the persisted attempt history, most recent first
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	filters := repositories.AttemptFilters{}
	if mode := c.Query("mode"); mode != "" {
		m := models.Mode(mode)
		filters.Mode = &m
	}
	if name := c.Query("candidate"); name != "" {
		filters.CandidateName = &name
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filters.Offset = offset
	}

	records, total, err := h.sessionService.HistoryRecords(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": records, "total": total})
}

// ExportAttempt streams one completed attempt as CSV or XLSX
func (h *AttemptHandler) ExportAttempt(c *gin.Context) {
	id := c.Param("id")

	attempt, err := h.findAttempt(c, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	format := c.DefaultQuery("format", "csv")
	switch format {
	case "csv":
		data, err := h.importExport.ExportAttemptCSV(attempt)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		serveAttachment(c, data, "attempt_"+id+".csv", "text/csv")
	case "xlsx":
		data, err := h.importExport.ExportAttemptXLSX(attempt)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		serveAttachment(c, data, "attempt_"+id+".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	default:
		h.RespondWithError(c, http.StatusBadRequest, "Unsupported export format", services.ErrUnsupportedFileFormat)
	}
}

// findAttempt looks the attempt up in the in-memory history first and
// falls back to the persisted record.
func (h *AttemptHandler) findAttempt(c *gin.Context, id string) (*models.Attempt, error) {
	for _, attempt := range h.sessionService.History(c.Request.Context()) {
		if attempt.ID == id {
			return &attempt, nil
		}
	}

	record, _, err := h.sessionService.HistoryRecords(c.Request.Context(), repositories.AttemptFilters{})
	if err != nil {
		return nil, err
	}
	for _, r := range record {
		if r.ID == id {
			return recordToAttempt(r)
		}
	}
	return nil, services.ErrAttemptNotFound
}

// recordToAttempt rebuilds the attempt from its persisted row.
func recordToAttempt(record *models.AttemptRecord) (*models.Attempt, error) {
	attempt := &models.Attempt{
		ID:                record.ID,
		CandidateName:     record.CandidateName,
		CandidatePosition: record.CandidatePosition,
		Mode:              record.Mode,
		Level:             record.Level,
		StartedAt:         record.StartedAt,
		SubmittedAt:       record.SubmittedAt,
	}
	if err := json.Unmarshal(record.Items, &attempt.Items); err != nil {
		return nil, err
	}
	if len(record.Score) > 0 {
		if err := json.Unmarshal(record.Score, &attempt.Score); err != nil {
			return nil, err
		}
	}
	return attempt, nil
}
