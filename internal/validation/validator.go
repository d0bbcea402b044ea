// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Package validation provides struct validation using go-playground/validator v10.
// It exposes a thread-safe singleton validator with custom rules for the IAM
// domain and translates failures into the API's VALIDATION_ERROR format.
//
// Custom validators:
//   - attrpath: dotted attribute path (subject.department, environment.ip)
//   - rolename: role/permission slug (lowercase alphanumeric, - and _)
//   - timewindow: daily time window in HH:MM-HH:MM form
//
// Example usage:
//
//	type CheckRequest struct {
//	    Action   string `validate:"required,min=1,max=128"`
//	    Resource string `validate:"required,min=1,max=256"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    ...
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	std     *validator.Validate
	stdOnce sync.Once
)

var (
	attrPathRe   = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*){0,3}$`)
	roleNameRe   = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,63}$`)
	timeWindowRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]-([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// ValidationError is one field's validation failure.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field names the struct field that failed.
func (e *ValidationError) Field() string {
	return e.field
}

// Error returns the translated message for this field.
func (e *ValidationError) Error() string {
	return e.message
}

// RequestValidationError collects every failed field of one request.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors exposes the per-field failures.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

// Error joins the per-field messages with semicolons.
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(ve.errors))
	for i, fieldErr := range ve.errors {
		parts[i] = fieldErr.Error()
	}
	return strings.Join(parts, "; ")
}

// APIError mirrors the api package's error structure to avoid import cycles.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError renders the failures in the shape the HTTP layer returns.
// A single failed field keeps its value in the details; with several
// failures the values are dropped and only field, tag and message
// survive.
func (ve *RequestValidationError) ToAPIError() *APIError {
	switch len(ve.errors) {
	case 0:
		return &APIError{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	case 1:
		failure := ve.errors[0]
		return &APIError{
			Code:    "VALIDATION_ERROR",
			Message: failure.message,
			Details: map[string]interface{}{
				"field": failure.field,
				"tag":   failure.tag,
				"value": failure.value,
			},
		}
	}

	perField := make([]map[string]interface{}, len(ve.errors))
	parts := make([]string, len(ve.errors))
	for i, failure := range ve.errors {
		perField[i] = map[string]interface{}{
			"field":   failure.field,
			"tag":     failure.tag,
			"message": failure.message,
		}
		parts[i] = failure.field + ": " + failure.message
	}

	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: strings.Join(parts, "; "),
		Details: map[string]interface{}{"fields": perField},
	}
}

// GetValidator returns the process-wide validator with the custom IAM
// rules registered. Safe for concurrent use.
func GetValidator() *validator.Validate {
	stdOnce.Do(func() {
		std = validator.New(validator.WithRequiredStructEnabled())

		// Registration only fails for empty tag names; these are constants.
		_ = std.RegisterValidation("attrpath", validateAttrPath)
		_ = std.RegisterValidation("rolename", validateRoleName)
		_ = std.RegisterValidation("timewindow", validateTimeWindow)
	})

	return std
}

// validateAttrPath accepts dotted attribute paths such as
// "subject.department" or "environment.ip".
func validateAttrPath(fl validator.FieldLevel) bool {
	return attrPathRe.MatchString(fl.Field().String())
}

// validateRoleName accepts role and permission slugs.
func validateRoleName(fl validator.FieldLevel) bool {
	return roleNameRe.MatchString(fl.Field().String())
}

// validateTimeWindow accepts daily windows in HH:MM-HH:MM form.
// Wrap-around windows (22:00-06:00) are legal.
func validateTimeWindow(fl validator.FieldLevel) bool {
	return timeWindowRe.MatchString(fl.Field().String())
}

// ValidateStruct runs s through the singleton validator and returns nil
// when every rule passes.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// InvalidValidationError: s was not a struct at all.
		return &RequestValidationError{errors: []ValidationError{
			{field: "unknown", tag: "unknown", message: err.Error()},
		}}
	}

	failures := make([]ValidationError, len(fieldErrs))
	for i, fe := range fieldErrs {
		failures[i] = ValidationError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: translate(fe),
		}
	}

	return &RequestValidationError{errors: failures}
}

// messageTemplates maps a validation tag to its message. Templates with
// withParam set receive the tag parameter as a second verb.
var messageTemplates = map[string]struct {
	format    string
	withParam bool
}{
	"required":   {format: "%s is required"},
	"email":      {format: "%s must be a valid email address"},
	"uuid":       {format: "%s must be a valid UUID"},
	"cidr":       {format: "%s must be a valid CIDR range"},
	"ip":         {format: "%s must be a valid IP address"},
	"attrpath":   {format: "%s must be a dotted attribute path"},
	"rolename":   {format: "%s must be lowercase alphanumeric with - or _"},
	"timewindow": {format: "%s must be a time window in HH:MM-HH:MM form"},
	"oneof":      {format: "%s must be one of: %s", withParam: true},
	"gte":        {format: "%s must be greater than or equal to %s", withParam: true},
	"lte":        {format: "%s must be less than or equal to %s", withParam: true},
	"gt":         {format: "%s must be greater than %s", withParam: true},
	"lt":         {format: "%s must be less than %s", withParam: true},
}

// translate turns a validator.FieldError into a readable message.
func translate(fe validator.FieldError) string {
	field, tag := fe.Field(), fe.Tag()

	if tmpl, ok := messageTemplates[tag]; ok {
		if tmpl.withParam {
			return fmt.Sprintf(tmpl.format, field, fe.Param())
		}
		return fmt.Sprintf(tmpl.format, field)
	}

	if tag == "min" || tag == "max" {
		return lengthMessage(fe, field, tag)
	}

	return fmt.Sprintf("%s failed %s validation", field, tag)
}

// lengthMessage words min/max failures differently for strings, where
// the bound counts characters rather than magnitude.
func lengthMessage(fe validator.FieldError, field, tag string) string {
	bound := "at least"
	if tag == "max" {
		bound = "at most"
	}

	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	return fmt.Sprintf("%s must be %s %s%s", field, bound, fe.Param(), unit)
}
