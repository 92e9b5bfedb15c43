package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vbonduro/peoplegallery/internal/domain"
)

var validate = newValidator()

// newValidator reports fields by their JSON names so messages match the
// request body the client sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates s and converts the first failure into a domain.ValidationError.
func check(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate: %w", err)
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return domain.Invalid(fe.Field() + " is required")
	case "gte":
		return domain.Invalid(fe.Field() + " must be a non-negative number")
	default:
		return domain.Invalid(fe.Field() + " is invalid")
	}
}
