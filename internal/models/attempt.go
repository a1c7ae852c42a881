package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Item is the per-question answer state within an attempt. The question
// is a value copy taken at attempt creation; later bank edits do not
// reach into a running attempt.
type Item struct {
	Question    Question `json:"question"`
	AnswerIndex *int     `json:"answer_index"`
	OpenText    string   `json:"open_text"`
	Flagged     bool     `json:"flagged"`
	Feedback    string   `json:"feedback"`
}

// Answered reports whether the candidate has provided any response.
func (it *Item) Answered() bool {
	return it.AnswerIndex != nil || strings.TrimSpace(it.OpenText) != ""
}

// ItemUpdate is a partial update merged into one item. Nil fields are
// left untouched.
type ItemUpdate struct {
	AnswerIndex *int    `json:"answer_index,omitempty"`
	OpenText    *string `json:"open_text,omitempty"`
	Flagged     *bool   `json:"flagged,omitempty"`
	Feedback    *string `json:"feedback,omitempty"`
}

// Apply merges the update into the item.
func (it *Item) Apply(upd ItemUpdate) {
	if upd.AnswerIndex != nil {
		it.AnswerIndex = upd.AnswerIndex
	}
	if upd.OpenText != nil {
		it.OpenText = *upd.OpenText
	}
	if upd.Flagged != nil {
		it.Flagged = *upd.Flagged
	}
	if upd.Feedback != nil {
		it.Feedback = *upd.Feedback
	}
}

// RawScore is the correct/total pair reported in English mode.
type RawScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Score is the outcome of one attempt. Raw is populated only in
// English mode; Logic mode relies on the weighted FinalPercent.
type Score struct {
	FinalPercent int       `json:"final_percent"`
	Raw          *RawScore `json:"raw"`
}

// Attempt is one candidate's run through a composed pool. It is mutable
// only while SubmittedAt is nil; submission finalizes it and moves it
// to the append-only history.
type Attempt struct {
	ID                string     `json:"id"`
	CandidateName     string     `json:"candidate_name"`
	CandidatePosition string     `json:"candidate_position"`
	Mode              Mode       `json:"mode"`
	Level             *int       `json:"level"`
	StartedAt         time.Time  `json:"started_at"`
	SubmittedAt       *time.Time `json:"submitted_at"`
	Items             []Item     `json:"items"`
	Score             *Score     `json:"score"`
}

// NewAttemptID derives an attempt id from the mode and start time.
// Uniqueness is best-effort, matching the id contract of the engine.
func NewAttemptID(mode Mode, startedAt time.Time) string {
	return fmt.Sprintf("%s-%d", strings.ToUpper(string(mode)), startedAt.UnixMilli())
}

// Submitted reports whether the attempt has been finalized.
func (a *Attempt) Submitted() bool {
	return a.SubmittedAt != nil
}

// AttemptRecord is the persisted form of a completed attempt. Items and
// score are stored as JSONB documents; the scalar columns exist for
// listing and reporting queries.
type AttemptRecord struct {
	ID                string         `json:"id" gorm:"primaryKey;size:64"`
	CandidateName     string         `json:"candidate_name" gorm:"not null;size:200;index"`
	CandidatePosition string         `json:"candidate_position" gorm:"size:200"`
	Mode              Mode           `json:"mode" gorm:"not null;size:20;index"`
	Level             *int           `json:"level"`
	StartedAt         time.Time      `json:"started_at"`
	SubmittedAt       *time.Time     `json:"submitted_at"`
	FinalPercent      int            `json:"final_percent"`
	RawCorrect        *int           `json:"raw_correct"`
	RawTotal          *int           `json:"raw_total"`
	Items             datatypes.JSON `json:"items" gorm:"type:jsonb"`
	Score             datatypes.JSON `json:"score" gorm:"type:jsonb"`
	CreatedAt         time.Time      `json:"created_at"`
}

func (AttemptRecord) TableName() string {
	return "attempt_records"
}
