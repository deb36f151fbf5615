// Package validation wraps struct-tag request validation for the API layer.
package validation

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var pincodeRegex = regexp.MustCompile(`^[1-9][0-9]{5}$`)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// Indian 6-digit postal codes; leading zero is invalid.
	_ = validate.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return pincodeRegex.MatchString(fl.Field().String())
	})
}

// Struct validates a tagged request struct and returns per-field messages
// keyed by the struct field name.
func Struct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	fields := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["request"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "pincode":
		return "must be a valid 6-digit pincode"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
