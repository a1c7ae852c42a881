package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cdc-hr/assessment-engine/internal/cache"
	"github.com/cdc-hr/assessment-engine/internal/composer"
	"github.com/cdc-hr/assessment-engine/internal/events"
	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/cdc-hr/assessment-engine/internal/repositories"
	"github.com/cdc-hr/assessment-engine/internal/session"
	"github.com/cdc-hr/assessment-engine/internal/utils"
)

// SettingsUpdate is a partial update of the session configuration. Nil
// fields are left untouched.
type SettingsUpdate struct {
	Mode       *models.Mode            `json:"mode" validate:"omitempty,assessment_mode"`
	Minutes    *int                    `json:"minutes" validate:"omitempty,min=1"`
	TotalCount *int                    `json:"total_count"`
	Randomize  *bool                   `json:"randomize"`
	Level      *int                    `json:"level" validate:"omitempty,min=1,max=10"`
	Quotas     *[]models.CategoryQuota `json:"quotas" validate:"omitempty,dive"`
	Mix        *models.DifficultyMix   `json:"difficulty_mix"`
	Weights    *models.WeightsConfig   `json:"weights"`
}

// SessionService is the boundary the handlers talk to. It wraps the
// session engine and fans state changes out to the snapshot store, the
// attempt history repository and the event publisher.
type SessionService interface {
	State(ctx context.Context) *models.SessionState
	UpdateSettings(ctx context.Context, upd SettingsUpdate) error

	Start(ctx context.Context, req session.StartRequest) (*models.Attempt, error)
	Pause(ctx context.Context)
	Resume(ctx context.Context)
	RecordAnswer(ctx context.Context, index int, upd models.ItemUpdate) error
	Submit(ctx context.Context) (*models.Attempt, error)
	Remaining(ctx context.Context) int

	ReplaceBank(ctx context.Context, bank *models.Bank, fileType string) error
	UpdateLogicQuestion(ctx context.Context, index int, question models.Question) error
	History(ctx context.Context) []models.Attempt
	HistoryRecords(ctx context.Context, filters repositories.AttemptFilters) ([]*models.AttemptRecord, int64, error)

	Close()
}

type sessionService struct {
	engine    *session.Engine
	store     cache.SessionStore
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

// NewSessionService restores the previous snapshot (when one exists)
// and wires the engine's change and submit hooks into persistence and
// event publishing.
func NewSessionService(
	store cache.SessionStore,
	repo repositories.Repository,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
) (SessionService, error) {
	ctx := context.Background()

	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}
	if state == nil {
		state = models.DefaultSessionState()
	}

	s := &sessionService{
		store:     store,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
	s.engine = session.New(state, composer.New(), logger)
	s.engine.OnChange = s.onStateChange
	s.engine.OnSubmitted = s.onAttemptSubmitted
	return s, nil
}

func (s *sessionService) onStateChange(state *models.SessionState) {
	if err := s.store.Save(context.Background(), state); err != nil {
		s.logger.Error("session snapshot save failed", "error", err)
	}
}

// onAttemptSubmitted persists the finalized attempt and publishes the
// submitted event. Failures are logged, never surfaced: the in-memory
// history already holds the attempt, so reporting sinks are best-effort.
func (s *sessionService) onAttemptSubmitted(attempt models.Attempt) {
	ctx := context.Background()

	record, err := attemptToRecord(&attempt)
	if err != nil {
		s.logger.Error("failed to encode attempt record", "attempt_id", attempt.ID, "error", err)
	} else if err := s.repo.Attempt().Create(ctx, record); err != nil {
		s.logger.Error("failed to persist attempt record", "attempt_id", attempt.ID, "error", err)
	}

	if err := s.publisher.PublishAttemptEvent(ctx, events.NewAttemptSubmittedEvent(&attempt)); err != nil {
		s.logger.Error("failed to publish attempt.submitted", "attempt_id", attempt.ID, "error", err)
	}
}

func (s *sessionService) State(ctx context.Context) *models.SessionState {
	return s.engine.Snapshot()
}

func (s *sessionService) UpdateSettings(ctx context.Context, upd SettingsUpdate) error {
	if err := s.validator.Validate(&upd); err != nil {
		return validationFailed(err)
	}

	if upd.Minutes != nil {
		// routed through SetMinutes so a running countdown resets
		s.engine.SetMinutes(*upd.Minutes)
	}
	s.engine.Update(func(state *models.SessionState) {
		if upd.Mode != nil {
			state.Mode = *upd.Mode
		}
		if upd.TotalCount != nil {
			state.TotalCount = *upd.TotalCount
		}
		if upd.Randomize != nil {
			state.Randomize = *upd.Randomize
		}
		if upd.Level != nil {
			state.Level = clampLevel(*upd.Level)
		}
		if upd.Quotas != nil {
			state.Quotas = *upd.Quotas
		}
		if upd.Mix != nil {
			state.Mix = *upd.Mix
		}
		if upd.Weights != nil {
			state.Weights = *upd.Weights
		}
	})
	return nil
}

func (s *sessionService) Start(ctx context.Context, req session.StartRequest) (*models.Attempt, error) {
	if err := s.validator.Validate(&req); err != nil {
		return nil, validationFailed(err)
	}

	attempt, err := s.engine.Start(req)
	if err != nil {
		return nil, err
	}

	timeLimit := s.engine.Remaining()
	if err := s.publisher.PublishAttemptEvent(ctx, events.NewAttemptStartedEvent(attempt, timeLimit)); err != nil {
		s.logger.Error("failed to publish attempt.started", "attempt_id", attempt.ID, "error", err)
	}
	return attempt, nil
}

func (s *sessionService) Pause(ctx context.Context)  { s.engine.Pause() }
func (s *sessionService) Resume(ctx context.Context) { s.engine.Resume() }

func (s *sessionService) RecordAnswer(ctx context.Context, index int, upd models.ItemUpdate) error {
	return s.engine.RecordAnswer(index, upd)
}

func (s *sessionService) Submit(ctx context.Context) (*models.Attempt, error) {
	return s.engine.Submit()
}

func (s *sessionService) Remaining(ctx context.Context) int {
	return s.engine.Remaining()
}

// ReplaceBank installs a freshly normalized bank, replacing the
// previous one wholesale, and persists it for reporting.
func (s *sessionService) ReplaceBank(ctx context.Context, bank *models.Bank, fileType string) error {
	s.engine.Update(func(state *models.SessionState) {
		switch bank.Mode {
		case models.ModeEnglish:
			state.EnglishBank = bank.English
		default:
			state.LogicBank = bank.Logic
		}
	})

	if err := s.repo.Bank().Save(ctx, bank); err != nil {
		s.logger.Error("failed to persist bank", "mode", bank.Mode, "error", err)
	}
	if err := s.publisher.PublishAttemptEvent(ctx, events.NewBankImportedEvent(bank.Mode, fileType, bank.Size())); err != nil {
		s.logger.Error("failed to publish bank.imported", "mode", bank.Mode, "error", err)
	}

	s.logger.Info("bank replaced", "mode", bank.Mode, "questions", bank.Size(), "file_type", fileType)
	return nil
}

// UpdateLogicQuestion edits one Logic bank entry in place, the admin
// bank-editor operation.
func (s *sessionService) UpdateLogicQuestion(ctx context.Context, index int, question models.Question) error {
	var err error
	s.engine.Update(func(state *models.SessionState) {
		if index < 0 || index >= len(state.LogicBank) {
			err = ErrNotFound
			return
		}
		if question.Difficulty == 0 {
			question.Difficulty = models.DifficultyEasy
		}
		state.LogicBank[index] = question
	})
	return err
}

// History returns the in-memory attempt history, most recent first.
func (s *sessionService) History(ctx context.Context) []models.Attempt {
	return s.engine.Snapshot().History
}

// HistoryRecords queries the persisted attempt history.
func (s *sessionService) HistoryRecords(ctx context.Context, filters repositories.AttemptFilters) ([]*models.AttemptRecord, int64, error) {
	return s.repo.Attempt().List(ctx, filters)
}

func (s *sessionService) Close() {
	s.engine.Close()
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 10 {
		return 10
	}
	return level
}

// attemptToRecord flattens an attempt into its persisted row.
func attemptToRecord(attempt *models.Attempt) (*models.AttemptRecord, error) {
	items, err := json.Marshal(attempt.Items)
	if err != nil {
		return nil, err
	}
	score, err := json.Marshal(attempt.Score)
	if err != nil {
		return nil, err
	}

	record := &models.AttemptRecord{
		ID:                attempt.ID,
		CandidateName:     attempt.CandidateName,
		CandidatePosition: attempt.CandidatePosition,
		Mode:              attempt.Mode,
		Level:             attempt.Level,
		StartedAt:         attempt.StartedAt,
		SubmittedAt:       attempt.SubmittedAt,
		Items:             items,
		Score:             score,
	}
	if attempt.Score != nil {
		record.FinalPercent = attempt.Score.FinalPercent
		if attempt.Score.Raw != nil {
			record.RawCorrect = &attempt.Score.Raw.Correct
			record.RawTotal = &attempt.Score.Raw.Total
		}
	}
	return record, nil
}
