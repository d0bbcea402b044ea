// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aegis/internal/logging"
)

// APIResponse is the envelope every endpoint returns. Exactly one of
// Data and Error is populated.
type APIResponse struct {
	// Success is true when the request was handled without error
	Success bool `json:"success"`

	// Data carries the operation result, omitted on failure
	Data interface{} `json:"data,omitempty"`

	// Error describes the failure, omitted on success
	Error *APIError `json:"error,omitempty"`

	// Meta carries request id, timing and pagination
	Meta *APIMeta `json:"meta,omitempty"`
}

// APIError pairs a machine-readable code with a human-readable message.
type APIError struct {
	// Code identifies the failure class for programmatic handling
	Code string `json:"code"`

	// Message is the human-readable explanation
	Message string `json:"message"`

	// Details holds failure specifics such as per-field validation errors
	Details interface{} `json:"details,omitempty"`

	// RequestID correlates the failure with server logs
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta is the response metadata block.
type APIMeta struct {
	// RequestID identifies the request for log correlation
	RequestID string `json:"request_id,omitempty"`

	// Timestamp records when the response was produced
	Timestamp time.Time `json:"timestamp"`

	// DurationMs is the server-side handling time in milliseconds
	DurationMs int64 `json:"duration_ms,omitempty"`

	// Pagination is present on list responses
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

// PaginationMeta describes the window a list response covers.
type PaginationMeta struct {
	// Total is the number of matching items across all pages
	Total int64 `json:"total,omitempty"`

	// Count is the number of items in this page
	Count int `json:"count"`

	// Offset is the index of the first returned item
	Offset int `json:"offset,omitempty"`

	// Limit is the page size that was applied
	Limit int `json:"limit,omitempty"`

	// HasMore is true when items remain beyond this page
	HasMore bool `json:"has_more"`
}

// Machine-readable error codes carried in APIError.Code.
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeValidationError    = "VALIDATION_ERROR"
	ErrCodeMfaRequired        = "MFA_REQUIRED"
)

// ResponseWriter writes the standard envelope. One instance serves one
// request; the construction time feeds DurationMs.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter wraps w and r for a single request.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{
		w:         w,
		r:         r,
		startTime: time.Now(),
	}
}

// stamp fills the meta fields every response carries: generation time,
// elapsed handler time and the request id.
func (rw *ResponseWriter) stamp(meta *APIMeta) *APIMeta {
	if meta == nil {
		meta = &APIMeta{}
	}
	meta.Timestamp = time.Now()
	meta.DurationMs = time.Since(rw.startTime).Milliseconds()
	meta.RequestID = logging.RequestIDFromContext(rw.r.Context())
	return meta
}

func (rw *ResponseWriter) success(statusCode int, data interface{}, meta *APIMeta) {
	rw.writeJSON(statusCode, APIResponse{
		Success: true,
		Data:    data,
		Meta:    rw.stamp(meta),
	})
}

// Success responds 200 with data in the envelope.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.success(http.StatusOK, data, nil)
}

// SuccessWithMeta responds 200 with caller-supplied meta.
func (rw *ResponseWriter) SuccessWithMeta(data interface{}, meta *APIMeta) {
	rw.success(http.StatusOK, data, meta)
}

// SuccessWithPagination responds 200 with a pagination block in meta.
func (rw *ResponseWriter) SuccessWithPagination(data interface{}, pagination *PaginationMeta) {
	rw.success(http.StatusOK, data, &APIMeta{Pagination: pagination})
}

// Created responds 201 with data.
func (rw *ResponseWriter) Created(data interface{}) {
	rw.success(http.StatusCreated, data, nil)
}

// Accepted responds 202 with data.
func (rw *ResponseWriter) Accepted(data interface{}) {
	rw.success(http.StatusAccepted, data, nil)
}

// NoContent responds 204 with an empty body.
func (rw *ResponseWriter) NoContent() {
	rw.w.WriteHeader(http.StatusNoContent)
}

// Error responds with the given status and a coded error body.
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	rw.ErrorWithDetails(statusCode, code, message, nil)
}

// ErrorWithDetails responds with a coded error body plus a details
// payload. The request id lands in both the error and the meta block so
// clients that only surface the error still have it.
func (rw *ResponseWriter) ErrorWithDetails(statusCode int, code, message string, details interface{}) {
	meta := rw.stamp(nil)

	rw.writeJSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: meta.RequestID,
		},
		Meta: meta,
	})
}

// BadRequest responds 400 with code BAD_REQUEST.
func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeBadRequest, message)
}

// Unauthorized responds 401 with code UNAUTHORIZED.
func (rw *ResponseWriter) Unauthorized(message string) {
	rw.Error(http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden responds 403 with code FORBIDDEN.
func (rw *ResponseWriter) Forbidden(message string) {
	rw.Error(http.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound responds 404 with code NOT_FOUND.
func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

// Conflict responds 409 with code CONFLICT.
func (rw *ResponseWriter) Conflict(message string) {
	rw.Error(http.StatusConflict, ErrCodeConflict, message)
}

// TooManyRequests writes a 429 Too Many Requests error. retryAfter is
// rounded up to whole seconds and exposed in the Retry-After header.
func (rw *ResponseWriter) TooManyRequests(message string, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64((retryAfter + time.Second - 1) / time.Second)
		rw.w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	rw.Error(http.StatusTooManyRequests, ErrCodeTooManyRequests, message)
}

// InternalError responds 500 with code INTERNAL_ERROR.
func (rw *ResponseWriter) InternalError(message string) {
	rw.Error(http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable responds 503 with code SERVICE_UNAVAILABLE.
func (rw *ResponseWriter) ServiceUnavailable(message string) {
	rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// ValidationError responds 400 with code VALIDATION_ERROR and per-field
// details.
func (rw *ResponseWriter) ValidationError(message string, details interface{}) {
	rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationError, message, details)
}

func (rw *ResponseWriter) writeJSON(statusCode int, data interface{}) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Response body did not encode")
	}
}
