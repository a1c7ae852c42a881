package services

import (
	"context"
	"sync"
	"testing"

	"github.com/cdc-hr/assessment-engine/internal/events"
	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/cdc-hr/assessment-engine/internal/repositories"
	"github.com/cdc-hr/assessment-engine/internal/session"
	"github.com/cdc-hr/assessment-engine/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySessionStore is an in-memory stand-in for the redis snapshot
// store.
type memorySessionStore struct {
	mu    sync.Mutex
	state *models.SessionState
	saves int
}

func (m *memorySessionStore) Save(ctx context.Context, state *models.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.saves++
	return nil
}

func (m *memorySessionStore) Load(ctx context.Context) (*models.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *memorySessionStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	return nil
}

func (m *memorySessionStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// memoryRepository keeps attempt records and banks in maps.
type memoryRepository struct {
	mu       sync.Mutex
	attempts []*models.AttemptRecord
	banks    map[models.Mode]*models.Bank
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{banks: make(map[models.Mode]*models.Bank)}
}

func (r *memoryRepository) Attempt() repositories.AttemptRepository { return (*memoryAttempts)(r) }
func (r *memoryRepository) Bank() repositories.BankRepository       { return (*memoryBanks)(r) }

type memoryAttempts memoryRepository

func (r *memoryAttempts) Create(ctx context.Context, record *models.AttemptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, record)
	return nil
}

func (r *memoryAttempts) GetByID(ctx context.Context, id string) (*models.AttemptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.attempts {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, ErrAttemptNotFound
}

func (r *memoryAttempts) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.AttemptRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.AttemptRecord, len(r.attempts))
	copy(out, r.attempts)
	return out, int64(len(out)), nil
}

type memoryBanks memoryRepository

func (r *memoryBanks) Save(ctx context.Context, bank *models.Bank) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banks[bank.Mode] = bank
	return nil
}

func (r *memoryBanks) Get(ctx context.Context, mode models.Mode) (*models.Bank, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bank, ok := r.banks[mode]
	if !ok {
		return nil, ErrBankNotFound
	}
	return bank, nil
}

type serviceFixture struct {
	svc       SessionService
	store     *memorySessionStore
	repo      *memoryRepository
	publisher *events.MockEventPublisher
}

func newServiceFixture(t *testing.T, seed *models.SessionState) *serviceFixture {
	t.Helper()

	store := &memorySessionStore{state: seed}
	repo := newMemoryRepository()
	publisher := events.NewMockEventPublisher(discardLogger())

	svc, err := NewSessionService(store, repo, publisher, discardLogger(), utils.NewValidator())
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	return &serviceFixture{svc: svc, store: store, repo: repo, publisher: publisher}
}

func seededState() *models.SessionState {
	state := models.DefaultSessionState()
	state.Randomize = false
	for i := 0; i < 4; i++ {
		answer := 0
		state.LogicBank = append(state.LogicBank, models.Question{
			ID:         string(rune('a' + i)),
			Type:       models.MultipleChoice,
			Category:   "general",
			Difficulty: models.DifficultyEasy,
			Choices:    []string{"right", "wrong"},
			Answer:     &answer,
		})
	}
	return state
}

func TestNewSessionServiceDefaultsWithoutSnapshot(t *testing.T) {
	f := newServiceFixture(t, nil)

	state := f.svc.State(context.Background())
	assert.Equal(t, models.ModeLogic, state.Mode)
	assert.Equal(t, 30, state.TotalCount)
	assert.Equal(t, 45, state.Minutes)
	assert.True(t, state.Randomize)
	assert.Equal(t, 5, state.Level)
}

func TestNewSessionServiceRestoresSnapshot(t *testing.T) {
	seed := seededState()
	seed.Minutes = 7
	f := newServiceFixture(t, seed)

	state := f.svc.State(context.Background())
	assert.Equal(t, 7, state.Minutes)
	assert.Len(t, state.LogicBank, 4)
}

func TestUpdateSettings(t *testing.T) {
	f := newServiceFixture(t, seededState())
	ctx := context.Background()

	mode := models.ModeEnglish
	minutes := 20
	level := 99
	err := f.svc.UpdateSettings(ctx, SettingsUpdate{
		Mode:    &mode,
		Minutes: &minutes,
		Level:   &level,
	})
	require.ErrorIs(t, err, ErrValidationFailed, "level above 10 must be rejected")

	level = 8
	require.NoError(t, f.svc.UpdateSettings(ctx, SettingsUpdate{
		Mode:    &mode,
		Minutes: &minutes,
		Level:   &level,
	}))

	state := f.svc.State(ctx)
	assert.Equal(t, models.ModeEnglish, state.Mode)
	assert.Equal(t, 20, state.Minutes)
	assert.Equal(t, 8, state.Level)
	// Settings changes reach the snapshot store.
	assert.Greater(t, f.store.saveCount(), 0)
}

func TestUpdateSettingsReturnsFieldErrors(t *testing.T) {
	f := newServiceFixture(t, seededState())

	minutes := 0
	level := 99
	err := f.svc.UpdateSettings(context.Background(), SettingsUpdate{
		Minutes: &minutes,
		Level:   &level,
	})
	require.ErrorIs(t, err, ErrValidationFailed)

	var fieldErrors ValidationErrors
	require.ErrorAs(t, err, &fieldErrors)
	require.Len(t, fieldErrors, 2)
	// Field names come from the json tags.
	assert.Equal(t, "minutes", fieldErrors[0].Field)
	assert.Equal(t, "min", fieldErrors[0].Rule)
	assert.Equal(t, "level", fieldErrors[1].Field)
	assert.Equal(t, "max", fieldErrors[1].Rule)
	assert.Equal(t, "must be at most 10", fieldErrors[1].Message)
}

func TestStartReturnsFieldErrors(t *testing.T) {
	f := newServiceFixture(t, seededState())

	_, err := f.svc.Start(context.Background(), session.StartRequest{})
	require.ErrorIs(t, err, ErrValidationFailed)

	var fieldErrors ValidationErrors
	require.ErrorAs(t, err, &fieldErrors)
	require.Len(t, fieldErrors, 1)
	assert.Equal(t, "name", fieldErrors[0].Field)
	assert.Equal(t, "is required", fieldErrors[0].Message)
}

func TestUpdateSettingsRejectsUnknownMode(t *testing.T) {
	f := newServiceFixture(t, seededState())

	mode := models.Mode("proctored")
	err := f.svc.UpdateSettings(context.Background(), SettingsUpdate{Mode: &mode})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestStartPublishesAndPersists(t *testing.T) {
	f := newServiceFixture(t, seededState())
	ctx := context.Background()

	_, err := f.svc.Start(ctx, session.StartRequest{})
	assert.ErrorIs(t, err, ErrValidationFailed, "missing name fails struct validation")

	attempt, err := f.svc.Start(ctx, session.StartRequest{Name: "Dana"})
	require.NoError(t, err)

	require.Len(t, f.publisher.Events, 1)
	assert.Equal(t, events.EventAttemptStarted, f.publisher.Events[0].Type)

	require.NoError(t, f.svc.RecordAnswer(ctx, 0, models.ItemUpdate{AnswerIndex: intPointer(0)}))

	submitted, err := f.svc.Submit(ctx)
	require.NoError(t, err)
	require.NotNil(t, submitted)
	assert.Equal(t, attempt.ID, submitted.ID)

	// The finalized attempt lands in the repository and on the bus.
	records, total, err := f.svc.HistoryRecords(ctx, repositories.AttemptFilters{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, submitted.ID, records[0].ID)
	assert.Equal(t, 25, records[0].FinalPercent)

	require.Len(t, f.publisher.Events, 2)
	assert.Equal(t, events.EventAttemptSubmitted, f.publisher.Events[1].Type)

	assert.Len(t, f.svc.History(ctx), 1)
}

func TestReplaceBank(t *testing.T) {
	f := newServiceFixture(t, seededState())
	ctx := context.Background()

	bank := &models.Bank{
		Mode:  models.ModeLogic,
		Logic: []models.Question{{ID: "new", Type: models.OpenEnded, Category: "fresh"}},
	}
	require.NoError(t, f.svc.ReplaceBank(ctx, bank, "json"))

	state := f.svc.State(ctx)
	require.Len(t, state.LogicBank, 1)
	assert.Equal(t, "new", state.LogicBank[0].ID)

	saved, err := f.repo.Bank().Get(ctx, models.ModeLogic)
	require.NoError(t, err)
	assert.Len(t, saved.Logic, 1)

	require.Len(t, f.publisher.Events, 1)
	assert.Equal(t, events.EventBankImported, f.publisher.Events[0].Type)
}

func TestUpdateLogicQuestion(t *testing.T) {
	f := newServiceFixture(t, seededState())
	ctx := context.Background()

	edited := models.Question{ID: "edited", Type: models.OpenEnded, Category: "general"}
	require.NoError(t, f.svc.UpdateLogicQuestion(ctx, 2, edited))

	state := f.svc.State(ctx)
	assert.Equal(t, "edited", state.LogicBank[2].ID)
	// Omitted difficulty is normalized to the easy tier.
	assert.Equal(t, models.DifficultyEasy, state.LogicBank[2].Difficulty)

	assert.ErrorIs(t, f.svc.UpdateLogicQuestion(ctx, 40, edited), ErrNotFound)
	assert.ErrorIs(t, f.svc.UpdateLogicQuestion(ctx, -1, edited), ErrNotFound)
}

func intPointer(v int) *int { return &v }
