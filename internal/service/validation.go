package service

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	courseCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{3,50}$`)
	vnPhonePattern    = regexp.MustCompile(`^(0|\+84)[0-9]{9,10}$`)
)

// NewValidator returns a validator with the course and student rules registered.
func NewValidator() *validator.Validate {
	return registerValidations(validator.New())
}

func registerValidations(validate *validator.Validate) *validator.Validate {
	_ = validate.RegisterValidation("coursecode", func(fl validator.FieldLevel) bool {
		return courseCodePattern.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("vnphone", func(fl validator.FieldLevel) bool {
		return vnPhonePattern.MatchString(fl.Field().String())
	})
	return validate
}
