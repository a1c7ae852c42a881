package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/cdc-hr/assessment-engine/internal/services"
	"github.com/cdc-hr/assessment-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

// BankHandler exposes bank import, editing and export.
type BankHandler struct {
	BaseHandler
	sessionService services.SessionService
	importExport   services.ImportExportService
}

func NewBankHandler(
	sessionService services.SessionService,
	importExport services.ImportExportService,
	logger utils.Logger,
) *BankHandler {
	return &BankHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		importExport:   importExport,
	}
}

func (h *BankHandler) parseMode(c *gin.Context) (models.Mode, bool) {
	mode := models.Mode(c.Param("mode"))
	if mode != models.ModeLogic && mode != models.ModeEnglish {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid mode", services.ErrInvalidMode)
		return "", false
	}
	return mode, true
}

func (h *BankHandler) bankForMode(c *gin.Context, mode models.Mode) *models.Bank {
	state := h.sessionService.State(c.Request.Context())
	if mode == models.ModeEnglish {
		return &models.Bank{Mode: models.ModeEnglish, English: state.EnglishBank}
	}
	return &models.Bank{Mode: models.ModeLogic, Logic: state.LogicBank}
}

// GetBank returns the canonical bank for a mode
func (h *BankHandler) GetBank(c *gin.Context) {
	mode, ok := h.parseMode(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.bankForMode(c, mode))
}

// ReplaceBank installs a bank from a JSON body. The previous bank is
// only replaced when the payload normalizes cleanly.
func (h *BankHandler) ReplaceBank(c *gin.Context) {
	mode, ok := h.parseMode(c)
	if !ok {
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	h.LogRequest(c, "Importing bank from JSON", "mode", mode)

	bank, result, err := h.importExport.ImportBankFromJSON(c.Request.Context(), raw, mode)
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Import error", err)
		return
	}
	if err := h.sessionService.ReplaceBank(c.Request.Context(), bank, "json"); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Bank imported", result)
}

// ImportBank installs a bank from an uploaded CSV/XLSX/JSON file
func (h *BankHandler) ImportBank(c *gin.Context) {
	mode, ok := h.parseMode(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Missing file upload", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Failed to open upload", err)
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing bank from file", "mode", mode, "filename", fileHeader.Filename)

	bank, result, err := h.importExport.ImportBankFromFile(c.Request.Context(), file, fileHeader.Filename, mode)
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Import error", err)
		return
	}
	if err := h.sessionService.ReplaceBank(c.Request.Context(), bank, result.FileType); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Bank imported", result)
}

// UpdateQuestion edits one Logic bank question by index. Only the
// Logic bank has an editor surface.
func (h *BankHandler) UpdateQuestion(c *gin.Context) {
	mode, ok := h.parseMode(c)
	if !ok {
		return
	}
	if mode != models.ModeLogic {
		h.RespondWithError(c, http.StatusBadRequest, "Only the logic bank is editable", services.ErrInvalidMode)
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid question index", err)
		return
	}

	var question models.Question
	if err := c.ShouldBindJSON(&question); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	if err := h.sessionService.UpdateLogicQuestion(c.Request.Context(), index, question); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Question updated", nil)
}

// ExportBank streams the bank as CSV or XLSX
func (h *BankHandler) ExportBank(c *gin.Context) {
	mode, ok := h.parseMode(c)
	if !ok {
		return
	}
	bank := h.bankForMode(c, mode)

	format := c.DefaultQuery("format", "csv")
	filename := fmt.Sprintf("%s_bank_%s", mode, time.Now().Format("20060102"))

	switch format {
	case "csv":
		data, err := h.importExport.ExportBankCSV(bank)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		serveAttachment(c, data, filename+".csv", "text/csv")
	case "xlsx":
		data, err := h.importExport.ExportBankXLSX(bank)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		serveAttachment(c, data, filename+".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	default:
		h.RespondWithError(c, http.StatusBadRequest, "Unsupported export format", services.ErrUnsupportedFileFormat)
	}
}

// ExportAnswerKey streams the answer key CSV for a mode
func (h *BankHandler) ExportAnswerKey(c *gin.Context) {
	mode, ok := h.parseMode(c)
	if !ok {
		return
	}
	bank := h.bankForMode(c, mode)
	level := h.sessionService.State(c.Request.Context()).Level

	data, err := h.importExport.AnswerKeyCSV(bank, level)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	serveAttachment(c, data, "answer_key.csv", "text/csv")
}

func serveAttachment(c *gin.Context, data []byte, filename, contentType string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
