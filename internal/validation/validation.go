// Package validation holds the per-operation input rules of the user service.
// Each rule set returns an ordered list of field violations; an empty list
// means the input is valid.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/dtroode/users-server/internal/apperr"
	"github.com/dtroode/users-server/internal/model"
)

var messages = map[string]string{
	"pageNumber.gt":      "page number must be greater than zero",
	"pageSize.gt":        "page size must be greater than zero",
	"pageSize.lte":       "page size cannot exceed 100 items",
	"id.gt":              "user ID must be greater than zero",
	"email.notblank":     "a valid email is required",
	"email.email":        "a valid email is required",
	"email.max":          "email must be at most 100 characters",
	"password.notblank":  "password must be at least 6 characters",
	"password.min":       "password must be at least 6 characters",
	"firstName.notblank": "first name is required",
	"firstName.max":      "first name must be at most 50 characters",
	"lastName.notblank":  "last name is required",
	"lastName.max":       "last name must be at most 50 characters",
	"role.max":           "role must be at most 20 characters",
}

// Validator applies the rule sets of each user operation.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator that reports fields by their wire names.
// Whitespace-only strings fail the notblank rule.
func New() *Validator {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank rule: %v", err))
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// ListUsers checks page number and page size.
func (v *Validator) ListUsers(params model.ListUsersParams) []apperr.Violation {
	return v.structViolations(params)
}

// UserID checks the identifier used by get, update and delete.
func (v *Validator) UserID(id int64) []apperr.Violation {
	if err := v.validate.Var(id, "gt=0"); err != nil {
		return []apperr.Violation{{Field: "id", Message: message("id", "gt", "0")}}
	}
	return nil
}

// CreateUser checks email, password and names.
func (v *Validator) CreateUser(params model.CreateUserParams) []apperr.Violation {
	return v.structViolations(params)
}

// UpdateUser checks id, email and names.
func (v *Validator) UpdateUser(params model.UpdateUserParams) []apperr.Violation {
	return v.structViolations(params)
}

func (v *Validator) structViolations(s any) []apperr.Violation {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []apperr.Violation{{Message: err.Error()}}
	}

	violations := make([]apperr.Violation, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		violations = append(violations, apperr.Violation{
			Field:   fieldError.Field(),
			Message: message(fieldError.Field(), fieldError.Tag(), fieldError.Param()),
		})
	}

	return violations
}

func message(field, rule, param string) string {
	if msg, ok := messages[field+"."+rule]; ok {
		return msg
	}

	switch rule {
	case "required", "notblank":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		if param != "" {
			return fmt.Sprintf("%s failed %s validation (%s)", field, rule, param)
		}
		return fmt.Sprintf("%s failed %s validation", field, rule)
	}
}
