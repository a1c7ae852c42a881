package utils

import (
	"reflect"
	"strings"

	"github.com/cdc-hr/assessment-engine/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground struct validation with the engine's
// custom rules.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	registerCustomValidators(validate)
	return &Validator{validate: validate}
}

// Validate checks struct tags on the given value.
func (v *Validator) Validate(s interface{}) error {
	return v.validate.Struct(s)
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("assessment_mode", validateMode)

	// Report field names from json tags so validation errors match the
	// wire shape.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == string(models.MultipleChoice) || value == string(models.OpenEnded)
}

func validateMode(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == string(models.ModeLogic) || value == string(models.ModeEnglish)
}
