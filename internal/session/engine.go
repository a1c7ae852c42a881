// Package session owns the state machine of one assessment session:
// the configured banks, the active attempt, and the countdown that
// auto-submits when it reaches zero.
package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cdc-hr/assessment-engine/internal/composer"
	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/cdc-hr/assessment-engine/internal/scoring"
)

var (
	ErrNameRequired            = errors.New("candidate name is required")
	ErrEmptyPool               = errors.New("no questions available for the configured pool")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrInvalidItemIndex        = errors.New("item index out of range")
)

// StartRequest carries the candidate profile for a new attempt.
type StartRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Position string `json:"position" validate:"max=200"`
}

// Engine drives one session. All exported methods are safe for
// concurrent use; the countdown tick and RecordAnswer serialize on the
// same mutex, so an answer recorded before the expiring tick is always
// part of the auto-submitted attempt.
type Engine struct {
	mu       sync.Mutex
	state    *models.SessionState
	composer *composer.Composer
	logger   *slog.Logger

	tick time.Duration
	stop chan struct{}

	// OnChange receives a deep copy of the state after every mutation;
	// OnSubmitted additionally receives each finalized attempt. Both may
	// be nil and both are called without the engine lock held.
	OnChange    func(state *models.SessionState)
	OnSubmitted func(attempt models.Attempt)
}

// New builds an engine around an existing state (pass
// models.DefaultSessionState() for a fresh session). A loaded state is
// never resumed mid-countdown: a previously active attempt comes back
// paused, still answerable, and its timer restarts via Resume.
func New(state *models.SessionState, comp *composer.Composer, logger *slog.Logger) *Engine {
	if state == nil {
		state = models.DefaultSessionState()
	}
	if state.Active != nil && !state.Active.Submitted() {
		state.Paused = true
	}
	return &Engine{
		state:    state,
		composer: comp,
		logger:   logger,
		tick:     time.Second,
	}
}

// Start validates the candidate and the composed pool, creates the
// attempt and begins the countdown. A validation failure leaves the
// session untouched. Starting over a running attempt abandons it, the
// same way the original session did.
func (e *Engine) Start(req StartRequest) (*models.Attempt, error) {
	e.mu.Lock()

	if strings.TrimSpace(req.Name) == "" {
		e.mu.Unlock()
		return nil, ErrNameRequired
	}

	pool := e.composer.Compose(e.state.Bank(), e.state.Sampling())
	if len(pool) == 0 {
		e.mu.Unlock()
		return nil, ErrEmptyPool
	}

	items := make([]models.Item, len(pool))
	for i, q := range pool {
		items[i] = models.Item{Question: q}
	}

	now := time.Now()
	attempt := &models.Attempt{
		ID:                models.NewAttemptID(e.state.Mode, now),
		CandidateName:     req.Name,
		CandidatePosition: req.Position,
		Mode:              e.state.Mode,
		StartedAt:         now,
		Items:             items,
	}
	if e.state.Mode == models.ModeEnglish {
		level := e.state.Level
		attempt.Level = &level
	}

	e.state.Active = attempt
	e.state.Paused = false
	e.state.Remaining = e.state.Minutes * 60
	e.startCountdownLocked()

	e.logger.Info("attempt started",
		"attempt_id", attempt.ID,
		"candidate", attempt.CandidateName,
		"mode", attempt.Mode,
		"questions", len(items),
		"remaining", e.state.Remaining)

	started := *attempt
	e.mu.Unlock()

	e.notifyChange()
	return &started, nil
}

// Pause freezes the countdown. No-op unless an attempt is running.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.state.Active == nil || e.state.Active.Submitted() || e.state.Paused {
		e.mu.Unlock()
		return
	}
	e.state.Paused = true
	e.stopCountdownLocked()
	e.mu.Unlock()

	e.notifyChange()
}

// Resume restarts the countdown from the remaining time. No time is
// lost or double-counted across a pause cycle.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.state.Active == nil || e.state.Active.Submitted() || !e.state.Paused {
		e.mu.Unlock()
		return
	}
	e.state.Paused = false
	e.startCountdownLocked()
	e.mu.Unlock()

	e.notifyChange()
}

// RecordAnswer merges a partial update into the indexed item. With no
// active attempt this is a no-op; once the attempt is submitted it is
// an error.
func (e *Engine) RecordAnswer(index int, upd models.ItemUpdate) error {
	e.mu.Lock()
	attempt := e.state.Active
	if attempt == nil {
		e.mu.Unlock()
		return nil
	}
	if attempt.Submitted() {
		e.mu.Unlock()
		return ErrAttemptAlreadySubmitted
	}
	if index < 0 || index >= len(attempt.Items) {
		e.mu.Unlock()
		return ErrInvalidItemIndex
	}
	attempt.Items[index].Apply(upd)
	e.mu.Unlock()

	e.notifyChange()
	return nil
}

// Submit finalizes the active attempt: stamps submittedAt, computes the
// score exactly once and prepends the attempt to history. With no
// active attempt it is a no-op returning nil.
func (e *Engine) Submit() (*models.Attempt, error) {
	e.mu.Lock()
	attempt, ok := e.submitLocked()
	e.mu.Unlock()
	if !ok {
		return nil, nil
	}

	e.notifySubmitted(*attempt)
	e.notifyChange()
	return attempt, nil
}

// submitLocked performs the submit transition. Callers hold e.mu.
func (e *Engine) submitLocked() (*models.Attempt, bool) {
	attempt := e.state.Active
	if attempt == nil || attempt.Submitted() {
		return nil, false
	}

	e.stopCountdownLocked()

	now := time.Now()
	attempt.SubmittedAt = &now
	score := scoring.Score(attempt, e.state.Weights)
	attempt.Score = &score

	e.state.Paused = false
	e.state.History = append([]models.Attempt{*attempt}, e.state.History...)

	e.logger.Info("attempt submitted",
		"attempt_id", attempt.ID,
		"final_percent", score.FinalPercent)

	return attempt, true
}

// SetMinutes reconfigures the time limit. While an attempt is running
// the remaining time resets to the full new total, not the delta. This
// mirrors the original behavior and is intentional.
func (e *Engine) SetMinutes(minutes int) {
	e.mu.Lock()
	e.state.Minutes = minutes
	if e.state.Active != nil && !e.state.Active.Submitted() {
		e.state.Remaining = minutes * 60
	}
	e.mu.Unlock()

	e.notifyChange()
}

// Remaining reports the countdown in seconds.
func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Remaining
}

// Snapshot returns a deep copy of the session state.
func (e *Engine) Snapshot() *models.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cloneLocked()
}

// Update applies a mutation to the session state under the engine lock.
// The session service routes configuration and bank replacement through
// here so every change flows into the change notification.
func (e *Engine) Update(mutate func(state *models.SessionState)) {
	e.mu.Lock()
	mutate(e.state)
	e.mu.Unlock()

	e.notifyChange()
}

// Close cancels any running countdown. The engine must not be used
// afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	e.stopCountdownLocked()
	e.mu.Unlock()
}

// ===== COUNTDOWN =====

// startCountdownLocked launches the ticking goroutine. Callers hold
// e.mu. Any previous countdown is cancelled first so only one ticker
// ever runs.
func (e *Engine) startCountdownLocked() {
	e.stopCountdownLocked()
	stop := make(chan struct{})
	e.stop = stop

	go func() {
		ticker := time.NewTicker(e.tick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if expired := e.onTick(stop); expired {
					return
				}
			}
		}
	}()
}

func (e *Engine) stopCountdownLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

// onTick decrements the countdown and fires the one-shot auto-submit at
// zero. The expired return stops the ticking goroutine so a later tick
// can never re-submit.
func (e *Engine) onTick(stop chan struct{}) bool {
	e.mu.Lock()
	// The countdown may have been cancelled between the tick firing and
	// the lock being acquired.
	if e.stop != stop {
		e.mu.Unlock()
		return true
	}
	if e.state.Active == nil || e.state.Active.Submitted() || e.state.Paused {
		e.mu.Unlock()
		return false
	}

	e.state.Remaining--
	if e.state.Remaining > 0 {
		e.mu.Unlock()
		e.notifyChange()
		return false
	}

	e.state.Remaining = 0
	e.logger.Info("countdown expired, auto-submitting",
		"attempt_id", e.state.Active.ID)
	attempt, ok := e.submitLocked()
	e.stop = nil
	e.mu.Unlock()

	if ok {
		e.notifySubmitted(*attempt)
	}
	e.notifyChange()
	return true
}

// ===== NOTIFICATIONS =====

func (e *Engine) notifyChange() {
	if e.OnChange == nil {
		return
	}
	e.OnChange(e.Snapshot())
}

func (e *Engine) notifySubmitted(attempt models.Attempt) {
	if e.OnSubmitted != nil {
		e.OnSubmitted(attempt)
	}
}

// cloneLocked deep-copies the state via its JSON form. Callers hold
// e.mu.
func (e *Engine) cloneLocked() *models.SessionState {
	raw, err := json.Marshal(e.state)
	if err != nil {
		e.logger.Error("failed to snapshot session state", "error", err)
		return models.DefaultSessionState()
	}
	var copied models.SessionState
	if err := json.Unmarshal(raw, &copied); err != nil {
		e.logger.Error("failed to restore session snapshot", "error", err)
		return models.DefaultSessionState()
	}
	return &copied
}
