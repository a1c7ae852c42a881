package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("candidate_name", "is required", "")

	assert.Equal(t, "candidate_name", err.Field)
	assert.Equal(t, "validation error on field 'candidate_name': is required", err.Error())
}

func TestValidationErrorsMessage(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())

	errs = append(errs, *NewValidationError("minutes", "must be at least 1", 0))
	assert.Equal(t, "validation failed: minutes must be at least 1", errs.Error())

	errs = append(errs, *NewValidationError("level", "must be at most 10", 99))
	assert.Equal(t, "validation failed: 2 field errors", errs.Error())
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("level", "must be at most 10", "max", 99)

	assert.Equal(t, "max", err.Rule)
	assert.Equal(t, "level", err.Field)
	assert.Equal(t, 99, err.Value)
}

func TestToValidationErrors(t *testing.T) {
	type settings struct {
		Name    string `validate:"required"`
		Minutes int    `validate:"min=1"`
	}

	err := validator.New().Struct(settings{Minutes: 0})
	require.Error(t, err)

	errs := ToValidationErrors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, "required", errs[0].Rule)
	assert.Equal(t, "is required", errs[0].Message)
	assert.Equal(t, "min", errs[1].Rule)
	assert.Equal(t, "must be at least 1", errs[1].Message)

	// Non-validator errors convert to an empty collection.
	assert.Empty(t, ToValidationErrors(assert.AnError))
}
