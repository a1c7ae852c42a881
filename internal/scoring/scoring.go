// Package scoring computes attempt scores. Scoring is a pure function
// of the attempt's items: open-ended items are excluded, unanswered or
// unresolved answers count as incorrect, and nothing here can fail.
package scoring

import (
	"math"

	"github.com/cdc-hr/assessment-engine/internal/models"
)

type categoryTally struct {
	correct int
	total   int
}

// Score computes the final score for an attempt. Logic mode reports a
// category-weighted percentage with Raw nil; English mode reports the
// raw correct/total pair alongside the percentage.
func Score(attempt *models.Attempt, weights models.WeightsConfig) models.Score {
	if attempt.Mode == models.ModeEnglish {
		return scoreEnglish(attempt)
	}
	return scoreLogic(attempt, weights)
}

func scoreLogic(attempt *models.Attempt, weights models.WeightsConfig) models.Score {
	tallies := make(map[string]*categoryTally)
	for i := range attempt.Items {
		it := &attempt.Items[i]
		if it.Question.Type != models.MultipleChoice {
			continue
		}
		t := tallies[it.Question.Category]
		if t == nil {
			t = &categoryTally{}
			tallies[it.Question.Category] = t
		}
		t.total++
		if it.Question.IsCorrect(it.AnswerIndex) {
			t.correct++
		}
	}

	// Weighted composite over the categories that actually appeared. If
	// no appearing category carries weight, fall back to the unweighted
	// aggregate.
	var weightedSum, weightSum float64
	var correct, total int
	for category, t := range tallies {
		pct := 0.0
		if t.total > 0 {
			pct = float64(t.correct) / float64(t.total)
		}
		w := weights[category]
		weightedSum += pct * w
		weightSum += w
		correct += t.correct
		total += t.total
	}

	var final int
	if weightSum > 0 {
		final = roundPercent(weightedSum / weightSum)
	} else {
		final = roundPercent(float64(correct) / float64(max(1, total)))
	}
	return models.Score{FinalPercent: final, Raw: nil}
}

func scoreEnglish(attempt *models.Attempt) models.Score {
	correct, total := 0, 0
	for i := range attempt.Items {
		it := &attempt.Items[i]
		if it.Question.Type != models.MultipleChoice {
			continue
		}
		total++
		if it.Question.IsCorrect(it.AnswerIndex) {
			correct++
		}
	}
	return models.Score{
		FinalPercent: roundPercent(float64(correct) / float64(max(1, total))),
		Raw:          &models.RawScore{Correct: correct, Total: total},
	}
}

// roundPercent converts a 0..1 fraction to a whole percent, rounding
// half up.
func roundPercent(fraction float64) int {
	return int(math.Floor(fraction*100 + 0.5))
}
