package handlers

import (
	"github.com/cdc-hr/assessment-engine/internal/services"
	"github.com/cdc-hr/assessment-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	bankHandler    *BankHandler
	attemptHandler *AttemptHandler
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(serviceManager.Session(), logger),
		bankHandler:    NewBankHandler(serviceManager.Session(), serviceManager.ImportExport(), logger),
		attemptHandler: NewAttemptHandler(serviceManager.Session(), serviceManager.ImportExport(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		// Session and attempt lifecycle
		sess := v1.Group("/session")
		{
			sess.GET("", hm.sessionHandler.GetSession)
			sess.PUT("/settings", hm.sessionHandler.UpdateSettings)
			sess.POST("/start", hm.sessionHandler.StartAttempt)
			sess.POST("/pause", hm.sessionHandler.PauseAttempt)
			sess.POST("/resume", hm.sessionHandler.ResumeAttempt)
			sess.PUT("/answer/:index", hm.sessionHandler.RecordAnswer)
			sess.POST("/submit", hm.sessionHandler.SubmitAttempt)
			sess.GET("/remaining", hm.sessionHandler.GetRemaining)
		}

		// Banks
		banks := v1.Group("/banks")
		{
			banks.GET("/:mode", hm.bankHandler.GetBank)
			banks.PUT("/:mode", hm.bankHandler.ReplaceBank)
			banks.POST("/:mode/import", hm.bankHandler.ImportBank)
			banks.GET("/:mode/export", hm.bankHandler.ExportBank)
			banks.GET("/:mode/answer-key", hm.bankHandler.ExportAnswerKey)
			banks.PUT("/:mode/questions/:index", hm.bankHandler.UpdateQuestion)
		}

		// Attempt history
		attempts := v1.Group("/attempts")
		{
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id/export", hm.attemptHandler.ExportAttempt)
		}
	}
}
