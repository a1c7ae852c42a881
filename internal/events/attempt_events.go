package events

import (
	"time"

	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/google/uuid"
)

// EventType represents the attempt lifecycle events the engine emits
type EventType string

const (
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventBankImported     EventType = "bank.imported"
)

// AttemptEvent is the envelope for all published engine events
type AttemptEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Data      interface{} `json:"data"`
}

type AttemptStartedEvent struct {
	AttemptID     string      `json:"attempt_id"`
	CandidateName string      `json:"candidate_name"`
	Mode          models.Mode `json:"mode"`
	Level         *int        `json:"level,omitempty"`
	Questions     int         `json:"questions"`
	StartedAt     time.Time   `json:"started_at"`
	TimeLimit     int         `json:"time_limit"` // seconds
}

type AttemptSubmittedEvent struct {
	AttemptID     string      `json:"attempt_id"`
	CandidateName string      `json:"candidate_name"`
	Mode          models.Mode `json:"mode"`
	Level         *int        `json:"level,omitempty"`
	SubmittedAt   time.Time   `json:"submitted_at"`
	FinalPercent  int         `json:"final_percent"`
	RawCorrect    *int        `json:"raw_correct,omitempty"`
	RawTotal      *int        `json:"raw_total,omitempty"`
}

type BankImportedEvent struct {
	Mode      models.Mode `json:"mode"`
	FileType  string      `json:"file_type"`
	Questions int         `json:"questions"`
}

func newEvent(eventType EventType, data interface{}) *AttemptEvent {
	return &AttemptEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "assessment-engine",
		Version:   "1.0",
		Data:      data,
	}
}

// NewAttemptStartedEvent builds the attempt.started envelope.
func NewAttemptStartedEvent(attempt *models.Attempt, timeLimit int) *AttemptEvent {
	return newEvent(EventAttemptStarted, AttemptStartedEvent{
		AttemptID:     attempt.ID,
		CandidateName: attempt.CandidateName,
		Mode:          attempt.Mode,
		Level:         attempt.Level,
		Questions:     len(attempt.Items),
		StartedAt:     attempt.StartedAt,
		TimeLimit:     timeLimit,
	})
}

// NewAttemptSubmittedEvent builds the attempt.submitted envelope.
func NewAttemptSubmittedEvent(attempt *models.Attempt) *AttemptEvent {
	evt := AttemptSubmittedEvent{
		AttemptID:     attempt.ID,
		CandidateName: attempt.CandidateName,
		Mode:          attempt.Mode,
		Level:         attempt.Level,
	}
	if attempt.SubmittedAt != nil {
		evt.SubmittedAt = *attempt.SubmittedAt
	}
	if attempt.Score != nil {
		evt.FinalPercent = attempt.Score.FinalPercent
		if attempt.Score.Raw != nil {
			evt.RawCorrect = &attempt.Score.Raw.Correct
			evt.RawTotal = &attempt.Score.Raw.Total
		}
	}
	return newEvent(EventAttemptSubmitted, evt)
}

// NewBankImportedEvent builds the bank.imported envelope.
func NewBankImportedEvent(mode models.Mode, fileType string, questions int) *AttemptEvent {
	return newEvent(EventBankImported, BankImportedEvent{
		Mode:      mode,
		FileType:  fileType,
		Questions: questions,
	})
}
