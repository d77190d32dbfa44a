package incident

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schoolpulse/core"
)

var (
	delayTypeTag  = "delaytype"
	delayTypeText = fmt.Sprintf("delay type must be one of %s", joinDelayTypes())

	actionTag  = "incidentaction"
	actionText = fmt.Sprintf("action must be one of %s, %s", ActionPositive, ActionNegative)
)

// InitValidators registers the incident validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(delayTypeTag, delayTypeValidation)
	core.RegisterCustomTranslation(validate, translator, delayTypeTag, delayTypeText)

	_ = validate.RegisterValidation(actionTag, actionValidation)
	core.RegisterCustomTranslation(validate, translator, actionTag, actionText)
}

// Validate checks a prepared DelayLogEntry.
func (e DelayLogEntry) Validate(v *core.Validator) error {
	return v.Struct(e)
}

// Validate checks a prepared InfractionEntry.
func (e InfractionEntry) Validate(v *core.Validator) error {
	return v.Struct(e)
}

// Custom Validators

func delayTypeValidation(fl validator.FieldLevel) bool {
	return DelayType(fl.Field().String()).Valid()
}

func actionValidation(fl validator.FieldLevel) bool {
	return Action(fl.Field().String()).Valid()
}

func joinDelayTypes() string {
	names := make([]string, 0, len(DelayTypes))
	for _, dt := range DelayTypes {
		names = append(names, string(dt))
	}
	return strings.Join(names, ", ")
}
