package global

import (
	"cdr_api/internal/api/cdr/models"

	"github.com/go-playground/validator/v10"
)

// InitValidator creates Validate and registers the custom rules.
func InitValidator() {
	Validate = validator.New()

	_ = Validate.RegisterValidation("calltype", validateCallType)
}

// validateCallType accepts a call type number or name. Undefined numbers pass;
// the filter builders ignore them.
func validateCallType(fl validator.FieldLevel) bool {
	_, err := models.ParseCallType(fl.Field().String())
	return err == nil
}
