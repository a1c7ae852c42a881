package models

import (
	"encoding/json"
	"strconv"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "mcq"
	OpenEnded      QuestionType = "open"
)

type Mode string

const (
	ModeLogic   Mode = "logic"
	ModeEnglish Mode = "english"
)

// Difficulty tiers for Logic-mode questions. Anything outside 1..3 is
// never targeted by a difficulty mix but still counts as quota filler.
const (
	DifficultyEasy   = 1
	DifficultyMedium = 2
	DifficultyHard   = 3
)

// Question is the canonical shape every import format is normalized
// into. IDs come from the source data and are not guaranteed unique.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Choices []string     `json:"choices,omitempty"`

	// Answer is the index into Choices. Nil means no correct answer was
	// recorded; such questions score as permanently incorrect.
	Answer *int `json:"answer,omitempty"`

	// Logic mode
	Category   string `json:"category,omitempty"`
	Difficulty int    `json:"difficulty,omitempty"`

	// English mode
	Level int `json:"level,omitempty"`
}

// IsCorrect reports whether the given choice index matches the recorded
// answer. Unresolved or out-of-range answers are never correct.
func (q *Question) IsCorrect(answerIndex *int) bool {
	if q.Type != MultipleChoice || q.Answer == nil || answerIndex == nil {
		return false
	}
	if *q.Answer < 0 || *q.Answer >= len(q.Choices) {
		return false
	}
	return *answerIndex == *q.Answer
}

// CorrectText returns the text of the recorded correct choice, or ""
// when none resolves.
func (q *Question) CorrectText() string {
	if q.Type != MultipleChoice || q.Answer == nil {
		return ""
	}
	if *q.Answer < 0 || *q.Answer >= len(q.Choices) {
		return ""
	}
	return q.Choices[*q.Answer]
}

// LevelBank maps an English level ("1".."10", string form of the
// integer) to the questions at that level.
type LevelBank map[string][]Question

// Bank holds the full question collection for one mode. Banks are
// replaced wholesale on import, never merged.
type Bank struct {
	Mode    Mode      `json:"mode"`
	Logic   []Question `json:"logic,omitempty"`
	English LevelBank `json:"english,omitempty"`
}

// Level returns the English-mode questions for a level, empty when the
// level is absent.
func (b *Bank) LevelQuestions(level int) []Question {
	if b.English == nil {
		return nil
	}
	return b.English[strconv.Itoa(level)]
}

// Categories lists the distinct Logic categories in bank order.
func (b *Bank) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range b.Logic {
		if !seen[q.Category] {
			seen[q.Category] = true
			out = append(out, q.Category)
		}
	}
	return out
}

// Size reports the number of questions in the bank for its mode.
func (b *Bank) Size() int {
	if b.Mode == ModeEnglish {
		n := 0
		for _, qs := range b.English {
			n += len(qs)
		}
		return n
	}
	return len(b.Logic)
}

func (b *Bank) MarshalBinary() ([]byte, error) {
	return json.Marshal(b)
}
