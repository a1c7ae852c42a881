// Package normalizer converts the import shapes the engine accepts
// (flat question arrays, level-keyed maps, header-row tabular grids)
// into the canonical Bank schema. Missing fields degrade rather than
// abort: an mcq question without choices or answer is kept and simply
// never scores correct.
package normalizer

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/cdc-hr/assessment-engine/internal/models"
)

var (
	ErrLogicNotArray   = errors.New("logic import must be an array")
	ErrEnglishBadShape = errors.New("english import must be an array or a level-keyed object")
	ErrNoHeaderRow     = errors.New("tabular import must have a header row and at least one data row")
)

// choiceDelimiter separates choices inside one tabular cell.
const choiceDelimiter = "||"

// NormalizeLogicJSON parses a Logic bank from a JSON array of flat
// questions, defaulting difficulty to 1 where absent.
func NormalizeLogicJSON(raw []byte) ([]models.Question, error) {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe.([]any); !ok {
		return nil, ErrLogicNotArray
	}

	var questions []models.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, err
	}
	for i := range questions {
		if questions[i].Difficulty == 0 {
			questions[i].Difficulty = models.DifficultyEasy
		}
	}
	return questions, nil
}

// NormalizeEnglishJSON parses an English bank from either a flat array
// of questions carrying a level field or an already level-keyed map.
// Arrays are grouped by level; an absent or invalid level falls back to
// level 1. Maps pass through unchanged.
func NormalizeEnglishJSON(raw []byte) (models.LevelBank, error) {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	switch probe.(type) {
	case []any:
		var questions []models.Question
		if err := json.Unmarshal(raw, &questions); err != nil {
			return nil, err
		}
		return GroupByLevel(questions), nil
	case map[string]any:
		var bank models.LevelBank
		if err := json.Unmarshal(raw, &bank); err != nil {
			return nil, err
		}
		return bank, nil
	default:
		return nil, ErrEnglishBadShape
	}
}

// GroupByLevel buckets questions under the string form of their level,
// defaulting out-of-range levels to "1".
func GroupByLevel(questions []models.Question) models.LevelBank {
	bank := models.LevelBank{}
	for _, q := range questions {
		level := q.Level
		if level < 1 {
			level = 1
		}
		key := strconv.Itoa(level)
		bank[key] = append(bank[key], q)
	}
	return bank
}

// headerIndex maps lowercased header names to their column positions.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func cell(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseChoices splits a tabular choices cell on the literal "||"
// delimiter, dropping empty segments.
func ParseChoices(value string) []string {
	if value == "" {
		return nil
	}
	var choices []string
	for _, part := range strings.Split(value, choiceDelimiter) {
		if part != "" {
			choices = append(choices, part)
		}
	}
	return choices
}

// ParseAnswer parses an answer cell. An empty cell means "no correct
// answer recorded", which is distinct from index 0.
func ParseAnswer(value string) *int {
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &n
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// NormalizeRows converts a tabular grid (header row first) into a Bank
// for the given mode. Header names match the canonical field names
// case-insensitively; blank rows are skipped.
func NormalizeRows(rows [][]string, mode models.Mode) (*models.Bank, error) {
	if len(rows) < 2 {
		return nil, ErrNoHeaderRow
	}
	idx := headerIndex(rows[0])

	bank := &models.Bank{Mode: mode}
	if mode == models.ModeEnglish {
		bank.English = models.LevelBank{}
	}

	for _, row := range rows[1:] {
		if len(row) == 0 || blankRow(row) {
			continue
		}
		q := models.Question{
			ID:      cell(row, idx, "id"),
			Type:    models.QuestionType(cell(row, idx, "type")),
			Text:    cell(row, idx, "text"),
			Choices: ParseChoices(cell(row, idx, "choices")),
			Answer:  ParseAnswer(cell(row, idx, "answer")),
		}
		if mode == models.ModeEnglish {
			level := cell(row, idx, "level")
			if n, err := strconv.Atoi(level); err != nil || n < 1 {
				level = "1"
			}
			bank.English[level] = append(bank.English[level], q)
			continue
		}
		q.Category = cell(row, idx, "category")
		q.Difficulty = models.DifficultyEasy
		if d, err := strconv.Atoi(cell(row, idx, "difficulty")); err == nil && d != 0 {
			q.Difficulty = d
		}
		bank.Logic = append(bank.Logic, q)
	}
	return bank, nil
}
