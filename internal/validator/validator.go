package validator

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

var (
	seatIDRgx     = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{1,2}$`)
	cardNumberRgx = regexp.MustCompile(`^[0-9]{12,19}$`)
	cardExpiryRgx = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
	cvvRgx        = regexp.MustCompile(`^[0-9]{3,4}$`)
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("seat_id", validateSeatID)
	validator.RegisterValidation("card_number", validateCardNumber)
	validator.RegisterValidation("card_expiry", validateCardExpiry)
	validator.RegisterValidation("cvv", validateCVV)
	validator.RegisterValidation("not_past", validateNotPast)

	return validator
}

func validateSeatID(fl validator.FieldLevel) bool {
	return seatIDRgx.MatchString(fl.Field().String())
}

func validateCardNumber(fl validator.FieldLevel) bool {
	return cardNumberRgx.MatchString(fl.Field().String())
}

// validateCardExpiry accepts MM/YY only; the month must be 01-12. Whether the
// card has expired is left to the authority.
func validateCardExpiry(fl validator.FieldLevel) bool {
	return cardExpiryRgx.MatchString(fl.Field().String())
}

func validateCVV(fl validator.FieldLevel) bool {
	return cvvRgx.MatchString(fl.Field().String())
}

func validateNotPast(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(openapi_types.Date)
	if !ok {
		return false
	}

	y, m, d := time.Now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	return !date.Time.Before(today)
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", err.Param())
	case "seat_id":
		return "must be a seat such as A1"
	case "card_number":
		return "must contain 12 to 19 digits"
	case "card_expiry":
		return "must be a valid expiry date in MM/YY format"
	case "cvv":
		return "must be 3 or 4 digits"
	case "not_past":
		return "must not be in the past"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())
	default:
		return "is invalid"
	}
}
