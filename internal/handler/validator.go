package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/parking-lot/internal/service"
	"github.com/iliyamo/parking-lot/internal/utils"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
// Field names in messages are the JSON names clients send.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password", validPassword)
	return &RequestValidator{v: v}
}

// validPassword backs the "password" tag: not blank, and within bcrypt's
// byte limit (max= would count runes).
func validPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return strings.TrimSpace(s) != "" && len(s) <= utils.MaxPasswordBytes
}

func (rv *RequestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// validationMessage renders the first failed rule as a client message.
func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return "invalid request body"
	}
	fe := ves[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must not be empty", fe.Field())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "password":
		return service.ErrInvalidPassword.Msg
	case "gt":
		return fmt.Sprintf("%s must be positive", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
