package session

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cdc-hr/assessment-engine/internal/composer"
	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testState(questions int) *models.SessionState {
	state := models.DefaultSessionState()
	state.Randomize = false
	state.Minutes = 1
	for i := 0; i < questions; i++ {
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

// newTestEngine freezes the countdown so timing never leaks into tests
// that are not about it. Countdown tests switch e.tick to a millisecond
// before starting.
func newTestEngine(t *testing.T, state *models.SessionState) *Engine {
	t.Helper()
	e := New(state, composer.New(), testLogger())
	e.tick = time.Hour
	t.Cleanup(e.Close)
	return e
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestStartValidation(t *testing.T) {
	e := newTestEngine(t, testState(3))

	_, err := e.Start(StartRequest{Name: "   "})
	assert.ErrorIs(t, err, ErrNameRequired)

	empty := newTestEngine(t, testState(0))
	_, err = empty.Start(StartRequest{Name: "Dana"})
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestStartCreatesAttempt(t *testing.T) {
	e := newTestEngine(t, testState(3))

	attempt, err := e.Start(StartRequest{Name: "Dana", Position: "analyst"})
	require.NoError(t, err)

	assert.Equal(t, "Dana", attempt.CandidateName)
	assert.Equal(t, models.ModeLogic, attempt.Mode)
	assert.Len(t, attempt.Items, 3)
	assert.Nil(t, attempt.SubmittedAt)
	assert.Equal(t, 60, e.Remaining())
}

func TestStartOverRunningAttemptAbandonsIt(t *testing.T) {
	e := newTestEngine(t, testState(3))

	first, err := e.Start(StartRequest{Name: "Dana"})
	require.NoError(t, err)

	_, err = e.Start(StartRequest{Name: "Erik"})
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.Equal(t, "Erik", snap.Active.CandidateName)
	// The abandoned attempt never reaches history.
	assert.Empty(t, snap.History)
	assert.NotEqual(t, first.CandidateName, snap.Active.CandidateName)
}

func TestRecordAnswerMergesPartialUpdate(t *testing.T) {
	e := newTestEngine(t, testState(3))
	_, err := e.Start(StartRequest{Name: "Dana"})
	require.NoError(t, err)

	require.NoError(t, e.RecordAnswer(1, models.ItemUpdate{AnswerIndex: intPtr(0)}))
	require.NoError(t, e.RecordAnswer(1, models.ItemUpdate{Flagged: boolPtr(true)}))
	require.NoError(t, e.RecordAnswer(1, models.ItemUpdate{Feedback: strPtr("ambiguous wording")}))

	item := e.Snapshot().Active.Items[1]
	require.NotNil(t, item.AnswerIndex)
	assert.Equal(t, 0, *item.AnswerIndex)
	assert.True(t, item.Flagged)
	assert.Equal(t, "ambiguous wording", item.Feedback)
}

func TestRecordAnswerEdges(t *testing.T) {
	e := newTestEngine(t, testState(3))

	// No active attempt is a silent no-op.
	assert.NoError(t, e.RecordAnswer(0, models.ItemUpdate{AnswerIndex: intPtr(0)}))

	_, err := e.Start(StartRequest{Name: "Dana"})
	require.NoError(t, err)

	assert.ErrorIs(t, e.RecordAnswer(-1, models.ItemUpdate{}), ErrInvalidItemIndex)
	assert.ErrorIs(t, e.RecordAnswer(3, models.ItemUpdate{}), ErrInvalidItemIndex)

	_, err = e.Submit()
	require.NoError(t, err)
	assert.ErrorIs(t, e.RecordAnswer(0, models.ItemUpdate{AnswerIndex: intPtr(0)}), ErrAttemptAlreadySubmitted)
}

func TestSubmitFinalizesAndScoresOnce(t *testing.T) {
	e := newTestEngine(t, testState(4))
	_, err := e.Start(StartRequest{Name: "Dana"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.RecordAnswer(i, models.ItemUpdate{AnswerIndex: intPtr(0)}))
	}

	attempt, err := e.Submit()
	require.NoError(t, err)
	require.NotNil(t, attempt)
	require.NotNil(t, attempt.SubmittedAt)
	require.NotNil(t, attempt.Score)
	assert.Equal(t, 75, attempt.Score.FinalPercent)

	snap := e.Snapshot()
	require.Len(t, snap.History, 1)
	assert.Equal(t, attempt.ID, snap.History[0].ID)

	// A second submit finds nothing to finalize.
	again, err := e.Submit()
	assert.NoError(t, err)
	assert.Nil(t, again)
	assert.Len(t, e.Snapshot().History, 1)
}

func TestCountdownAutoSubmitsExactlyOnce(t *testing.T) {
	state := testState(2)
	state.Minutes = 0 // Remaining starts at zero, first tick expires it.
	e := newTestEngine(t, state)
	e.tick = time.Millisecond

	submitted := make(chan models.Attempt, 4)
	e.OnSubmitted = func(a models.Attempt) { submitted <- a }

	_, err := e.Start(StartRequest{Name: "Dana"})
	require.NoError(t, err)
	require.NoError(t, e.RecordAnswer(0, models.ItemUpdate{AnswerIndex: intPtr(0)}))

	var final models.Attempt
	select {
	case final = <-submitted:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never auto-submitted")
	}

	require.NotNil(t, final.SubmittedAt)
	require.NotNil(t, final.Score)
	// The answer recorded before expiry is part of the scored attempt.
	assert.Equal(t, 50, final.Score.FinalPercent)

	// Give any stray ticker time to misfire, then check for duplicates.
	time.Sleep(20 * time.Millisecond)
	select {
	case <-submitted:
		t.Fatal("attempt auto-submitted more than once")
	default:
	}
	assert.Len(t, e.Snapshot().History, 1)
	assert.Equal(t, 0, e.Remaining())
}

func TestRestoredActiveAttemptComesBackPaused(t *testing.T) {
	state := testState(2)
	state.Active = &models.Attempt{
		ID:            models.NewAttemptID(models.ModeLogic, time.Now()),
		CandidateName: "Dana",
		Mode:          models.ModeLogic,
		StartedAt:     time.Now(),
		Items:         []models.Item{{Question: state.LogicBank[0]}},
	}
	state.Paused = false
	state.Remaining = 5

	e := newTestEngine(t, state)
	e.tick = time.Millisecond

	// Restoring never resumes the countdown on its own.
	assert.True(t, e.Snapshot().Paused)
	assert.Equal(t, 5, e.Remaining())

	// The restored attempt stays answerable and Resume restarts the
	// timer.
	require.NoError(t, e.RecordAnswer(0, models.ItemUpdate{AnswerIndex: intPtr(0)}))
	e.Resume()
	assert.Eventually(t, func() bool {
		return e.Remaining() < 5
	}, 2*time.Second, time.Millisecond)
}

func TestRestoredSubmittedAttemptIsNotPaused(t *testing.T) {
	now := time.Now()
	state := testState(1)
	state.Active = &models.Attempt{
		ID:          models.NewAttemptID(models.ModeLogic, now),
		Mode:        models.ModeLogic,
		StartedAt:   now,
		SubmittedAt: &now,
	}

	e := newTestEngine(t, state)
	assert.False(t, e.Snapshot().Paused)
}

func TestPauseFreezesCountdown(t *testing.T) {
	e := newTestEngine(t, testState(2))
	e.tick = time.Millisecond
	_, err := e.Start(StartRequest{Name: "Dana"})
	require.NoError(t, err)

	e.Pause()
	frozen := e.Remaining()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, e.Remaining())
	assert.True(t, e.Snapshot().Paused)

	e.Resume()
	assert.Eventually(t, func() bool {
		return e.Remaining() < frozen
	}, 2*time.Second, time.Millisecond)
}

func TestSetMinutesResetsRunningCountdown(t *testing.T) {
	e := newTestEngine(t, testState(2))
	_, err := e.Start(StartRequest{Name: "Dana"})
	require.NoError(t, err)

	e.SetMinutes(3)
	// The full new total, not the elapsed-adjusted remainder.
	assert.Equal(t, 180, e.Remaining())
	assert.Equal(t, 3, e.Snapshot().Minutes)

	// With no running attempt only the configured total changes.
	_, err = e.Submit()
	require.NoError(t, err)
	e.SetMinutes(5)
	assert.Equal(t, 5, e.Snapshot().Minutes)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	e := newTestEngine(t, testState(2))
	_, err := e.Start(StartRequest{Name: "Dana"})
	require.NoError(t, err)

	snap := e.Snapshot()
	snap.Active.Items[0].AnswerIndex = intPtr(1)
	snap.LogicBank[0].Text = "mutated"

	fresh := e.Snapshot()
	assert.Nil(t, fresh.Active.Items[0].AnswerIndex)
	assert.NotEqual(t, "mutated", fresh.LogicBank[0].Text)
}
