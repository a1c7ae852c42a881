// Package composer selects the ordered question pool for one attempt
// from a bank and a sampling configuration.
package composer

import (
	"math/rand"
	"time"

	"github.com/cdc-hr/assessment-engine/internal/models"
)

// Composer draws attempt pools. The zero value is not usable; construct
// with New or, for deterministic tests, NewWithRand.
type Composer struct {
	rng *rand.Rand
}

func New() *Composer {
	return NewWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func NewWithRand(rng *rand.Rand) *Composer {
	return &Composer{rng: rng}
}

// Compose returns the pool for one attempt.
//
// Logic mode walks the quota list in order when the quota sum is
// positive, drawing the configured difficulty mix first and backfilling
// each category from its unchosen questions. Requests exceeding
// availability take whatever is there. English mode takes the
// configured level's questions. Either way the pool is shuffled when
// Randomize is set and then truncated to TotalCount; a non-positive
// TotalCount truncates to empty.
func (c *Composer) Compose(bank *models.Bank, cfg models.SamplingConfig) []models.Question {
	var pool []models.Question
	if cfg.Mode == models.ModeEnglish {
		pool = append(pool, bank.LevelQuestions(cfg.Level)...)
	} else {
		pool = c.composeLogic(bank, cfg)
	}

	if cfg.Randomize {
		c.shuffle(pool)
	}
	// Non-positive TotalCount takes the first 0 elements, not the whole
	// pool. Preserved quirk.
	if cfg.TotalCount <= 0 {
		return pool[:0]
	}
	if len(pool) > cfg.TotalCount {
		pool = pool[:cfg.TotalCount]
	}
	return pool
}

func (c *Composer) composeLogic(bank *models.Bank, cfg models.SamplingConfig) []models.Question {
	pool := make([]models.Question, len(bank.Logic))
	copy(pool, bank.Logic)

	if cfg.QuotaSum() == 0 {
		return pool
	}

	byCategory := make(map[string][]models.Question)
	for _, q := range pool {
		byCategory[q.Category] = append(byCategory[q.Category], q)
	}

	var out []models.Question
	for _, quota := range cfg.Quotas {
		out = append(out, c.drawCategory(byCategory[quota.Category], quota.Count, cfg.Mix)...)
	}
	return out
}

// drawCategory picks up to count questions from one category: first the
// requested difficulty-mix counts per tier, then a shuffled backfill
// from the category's unchosen questions.
func (c *Composer) drawCategory(candidates []models.Question, count int, mix models.DifficultyMix) []models.Question {
	byDifficulty := make(map[int][]int) // difficulty -> candidate indices
	for i, q := range candidates {
		d := q.Difficulty
		if d == 0 {
			d = models.DifficultyEasy
		}
		byDifficulty[d] = append(byDifficulty[d], i)
	}

	chosen := make(map[int]bool, count)
	var picks []int
	for _, d := range []int{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard} {
		picks = append(picks, c.take(byDifficulty[d], mix[d])...)
	}
	for _, i := range picks {
		chosen[i] = true
	}

	remainder := count - len(picks)
	if remainder > 0 {
		var rest []int
		for i := range candidates {
			if !chosen[i] {
				rest = append(rest, i)
			}
		}
		picks = append(picks, c.take(rest, remainder)...)
	}

	out := make([]models.Question, 0, len(picks))
	for _, i := range picks {
		out = append(out, candidates[i])
	}
	return out
}

// take shuffles a copy of indices and returns at most n of them.
func (c *Composer) take(indices []int, n int) []int {
	if n <= 0 || len(indices) == 0 {
		return nil
	}
	shuffled := make([]int, len(indices))
	copy(shuffled, indices)
	c.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

func (c *Composer) shuffle(pool []models.Question) {
	c.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
}
