package models

import "encoding/json"

// SessionState is the entire serializable state of one assessment
// session: banks, sampling and weight configuration, the active
// attempt, and the append-only attempt history (most recent first).
//
// The session service snapshots this record on every transition; the
// snapshot store and startup reload are the persistence hand-off, so
// nothing here may hold live timers or connections.
type SessionState struct {
	Mode        Mode            `json:"mode"`
	LogicBank   []Question      `json:"logic_bank"`
	EnglishBank LevelBank       `json:"english_bank"`
	Weights     WeightsConfig   `json:"weights"`
	Quotas      []CategoryQuota `json:"quotas"`
	Mix         DifficultyMix   `json:"difficulty_mix"`
	TotalCount  int             `json:"total_count"`
	Minutes     int             `json:"minutes"`
	Randomize   bool            `json:"randomize"`
	Level       int             `json:"level"`

	Active    *Attempt  `json:"active"`
	Paused    bool      `json:"paused"`
	Remaining int       `json:"remaining"`
	History   []Attempt `json:"history"`
}

// DefaultSessionState mirrors the initial configuration of a fresh
// session before any banks are imported.
func DefaultSessionState() *SessionState {
	return &SessionState{
		Mode:       ModeLogic,
		Weights:    WeightsConfig{},
		Mix:        DifficultyMix{1: 0, 2: 0, 3: 0},
		TotalCount: 30,
		Minutes:    45,
		Randomize:  true,
		Level:      5,
	}
}

// Bank assembles the Bank view of the session for its current mode.
func (s *SessionState) Bank() *Bank {
	if s.Mode == ModeEnglish {
		return &Bank{Mode: ModeEnglish, English: s.EnglishBank}
	}
	return &Bank{Mode: ModeLogic, Logic: s.LogicBank}
}

// Sampling assembles the composer configuration from session settings.
func (s *SessionState) Sampling() SamplingConfig {
	return SamplingConfig{
		Mode:       s.Mode,
		Quotas:     s.Quotas,
		Mix:        s.Mix,
		TotalCount: s.TotalCount,
		Randomize:  s.Randomize,
		Level:      s.Level,
	}
}

func (s *SessionState) MarshalBinary() ([]byte, error) {
	return json.Marshal(s)
}

func (s *SessionState) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, s)
}
