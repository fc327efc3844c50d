// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)      → parses requests, renders pages
//	Service (business layer)  → validates, enforces rules, orchestrates
//	Repository (data layer)   → reads/writes the database
//
// Handlers never touch SQL; services never touch http.Request. Each service
// takes repository interfaces (not concrete sqlite types), so tests inject
// in-memory mocks and the business rules run without a database.
package service

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidator builds the shared validator instance. Form structs carry
// `validate:"..."` tags; services call validate.Struct(form) and translate
// the result into per-field messages with fieldErrors.
func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// fieldErrors converts a validator error into a field→message map suitable
// for redisplaying a form. Unknown tags fall back to a generic message so a
// new validation rule can never produce an empty error.
func fieldErrors(err error) map[string]string {
	fields := make(map[string]string)

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["form"] = "invalid form input"
		return fields
	}

	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = fmt.Sprintf("%s is required", name)
		case "min":
			fields[name] = fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
		case "max":
			fields[name] = fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		case "email":
			fields[name] = "enter a valid email address"
		case "alphanum":
			fields[name] = fmt.Sprintf("%s may only contain letters and digits", name)
		case "eqfield":
			fields[name] = "passwords do not match"
		case "gte", "lte":
			fields[name] = fmt.Sprintf("%s must be between 1 and 5", name)
		default:
			fields[name] = fmt.Sprintf("%s is invalid", name)
		}
	}

	return fields
}
