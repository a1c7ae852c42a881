package handlers

import (
	"net/http"
	"strconv"

	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/cdc-hr/assessment-engine/internal/services"
	"github.com/cdc-hr/assessment-engine/internal/session"
	"github.com/cdc-hr/assessment-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the attempt lifecycle and session settings.
type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// sessionSummary is the state view returned to clients. The active
// attempt's correct answers are not stripped here: the engine has no
// anti-cheating authority, which is the caller's concern.
type sessionSummary struct {
	Mode       models.Mode             `json:"mode"`
	Minutes    int                     `json:"minutes"`
	TotalCount int                     `json:"total_count"`
	Randomize  bool                    `json:"randomize"`
	Level      int                     `json:"level"`
	Quotas     []models.CategoryQuota  `json:"quotas"`
	Mix        models.DifficultyMix    `json:"difficulty_mix"`
	Weights    models.WeightsConfig    `json:"weights"`
	Categories []string                `json:"categories"`
	BankSizes  map[models.Mode]int     `json:"bank_sizes"`
	Paused     bool                    `json:"paused"`
	Remaining  int                     `json:"remaining"`
	Active     *models.Attempt         `json:"active"`
}

// GetSession returns the current session state summary
func (h *SessionHandler) GetSession(c *gin.Context) {
	state := h.sessionService.State(c.Request.Context())

	logicBank := &models.Bank{Mode: models.ModeLogic, Logic: state.LogicBank}
	englishBank := &models.Bank{Mode: models.ModeEnglish, English: state.EnglishBank}

	summary := sessionSummary{
		Mode:       state.Mode,
		Minutes:    state.Minutes,
		TotalCount: state.TotalCount,
		Randomize:  state.Randomize,
		Level:      state.Level,
		Quotas:     state.Quotas,
		Mix:        state.Mix,
		Weights:    state.Weights,
		Categories: logicBank.Categories(),
		BankSizes: map[models.Mode]int{
			models.ModeLogic:   logicBank.Size(),
			models.ModeEnglish: englishBank.Size(),
		},
		Paused:    state.Paused,
		Remaining: state.Remaining,
		Active:    state.Active,
	}
	c.JSON(http.StatusOK, summary)
}

// UpdateSettings applies a partial settings update
func (h *SessionHandler) UpdateSettings(c *gin.Context) {
	var upd services.SettingsUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Updating session settings")

	if err := h.sessionService.UpdateSettings(c.Request.Context(), upd); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Settings updated", nil)
}

// StartAttempt starts a new attempt for the candidate
func (h *SessionHandler) StartAttempt(c *gin.Context) {
	var req session.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Starting attempt", "candidate", req.Name)

	attempt, err := h.sessionService.Start(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusCreated, "Attempt started", attempt)
}

// PauseAttempt freezes the countdown
func (h *SessionHandler) PauseAttempt(c *gin.Context) {
	h.sessionService.Pause(c.Request.Context())
	h.RespondWithSuccess(c, http.StatusOK, "Attempt paused", nil)
}

// ResumeAttempt restarts the countdown
func (h *SessionHandler) ResumeAttempt(c *gin.Context) {
	h.sessionService.Resume(c.Request.Context())
	h.RespondWithSuccess(c, http.StatusOK, "Attempt resumed", nil)
}

// RecordAnswer merges a partial item update into the active attempt
func (h *SessionHandler) RecordAnswer(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid item index", err)
		return
	}

	var upd models.ItemUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	if err := h.sessionService.RecordAnswer(c.Request.Context(), index, upd); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Answer recorded", nil)
}

// SubmitAttempt finalizes the active attempt
func (h *SessionHandler) SubmitAttempt(c *gin.Context) {
	h.LogRequest(c, "Submitting attempt")

	attempt, err := h.sessionService.Submit(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if attempt == nil {
		h.RespondWithSuccess(c, http.StatusOK, "No attempt active", nil)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Attempt submitted", attempt)
}

// GetRemaining reports the countdown in seconds
func (h *SessionHandler) GetRemaining(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"remaining": h.sessionService.Remaining(c.Request.Context())})
}
