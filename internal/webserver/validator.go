package webserver

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return &ValidationError{err: err}
	}
	return nil
}

// ValidationError lists the fields that failed validation
type ValidationError struct {
	err error
}

func (e *ValidationError) Error() string {
	return e.err.Error()
}

// Fields maps each failing field to the rule it broke
func (e *ValidationError) Fields() map[string]string {
	out := map[string]string{}
	if verrs, ok := e.err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			out[strings.ToLower(fe.Field()[:1])+fe.Field()[1:]] = fe.Tag()
		}
	}
	return out
}

// HTTPStatus lets handlers map the error without importing validator
func (e *ValidationError) HTTPStatus() int {
	return http.StatusBadRequest
}

var _ echo.Validator = (*Validator)(nil)
