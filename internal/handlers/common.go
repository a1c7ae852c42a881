package handlers

import (
	"errors"
	"net/http"

	"github.com/cdc-hr/assessment-engine/internal/repositories"
	"github.com/cdc-hr/assessment-engine/internal/services"
	"github.com/cdc-hr/assessment-engine/internal/session"
	"github.com/cdc-hr/assessment-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging and error mapping for handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
	}
	fields = append(fields, additionalFields...)
	h.logger.Info(message, fields...)
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error) {
	resp := ErrorResponse{Message: message}
	if err != nil {
		resp.Details = err.Error()
		h.logger.LogError(err, message, "status_code", statusCode, "path", c.Request.URL.Path)
	}
	c.JSON(statusCode, resp)
}

// RespondWithSuccess sends a consistent success response
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, SuccessResponse{Message: message, Data: data})
}

// handleServiceError maps service errors to HTTP status codes
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	// Validation failures carry per-field errors; surface them as
	// structured details rather than one flattened string.
	var fieldErrors services.ValidationErrors
	if errors.As(err, &fieldErrors) {
		h.logger.LogError(err, "validation failed", "status_code", http.StatusBadRequest, "path", c.Request.URL.Path)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: services.ErrValidationFailed.Error(),
			Details: fieldErrors,
		})
		return
	}

	switch {
	case errors.Is(err, session.ErrNameRequired),
		errors.Is(err, session.ErrEmptyPool),
		errors.Is(err, session.ErrInvalidItemIndex),
		errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrBadRequest),
		errors.Is(err, services.ErrImportBadShape),
		errors.Is(err, services.ErrUnsupportedFileFormat),
		errors.Is(err, services.ErrInvalidMode):
		h.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, session.ErrAttemptAlreadySubmitted):
		h.RespondWithError(c, http.StatusConflict, err.Error(), err)
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrAttemptNotFound),
		errors.Is(err, services.ErrBankNotFound),
		repositories.IsNotFoundError(err):
		h.RespondWithError(c, http.StatusNotFound, err.Error(), err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "internal server error", err)
	}
}

// HealthCheck responds to liveness probes
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
