// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/aegis/internal/audit"
	"github.com/tomtom215/aegis/internal/config"
	"github.com/tomtom215/aegis/internal/logging"
)

// AuditHandlers serves the audit trail: decision log queries, chain
// verification and the live event stream.
type AuditHandlers struct {
	logger *audit.Logger
	hub    *audit.StreamHub
	cfg    config.APIConfig
}

// NewAuditHandlers creates the audit handler group. The hub may be nil
// when streaming is disabled.
func NewAuditHandlers(logger *audit.Logger, hub *audit.StreamHub, cfg config.APIConfig) *AuditHandlers {
	return &AuditHandlers{logger: logger, hub: hub, cfg: cfg}
}

// filterFromQuery builds a query filter from request parameters.
func (h *AuditHandlers) filterFromQuery(r *http.Request) audit.QueryFilter {
	f := audit.DefaultQueryFilter()
	f.Limit, f.Offset = pageParams(r, h.cfg)

	q := r.URL.Query()
	for _, t := range parseCommaSeparated(q.Get("types")) {
		f.Types = append(f.Types, audit.EventType(t))
	}
	for _, s := range parseCommaSeparated(q.Get("severities")) {
		f.Severities = append(f.Severities, audit.Severity(s))
	}
	for _, o := range parseCommaSeparated(q.Get("outcomes")) {
		f.Outcomes = append(f.Outcomes, audit.Outcome(o))
	}
	f.ActorID = q.Get("actor_id")
	f.SessionID = q.Get("session_id")
	f.TargetID = q.Get("target_id")
	f.TargetType = q.Get("target_type")
	f.Action = q.Get("action")
	f.SourceIP = q.Get("source_ip")
	f.CorrelationID = q.Get("correlation_id")
	f.RequestID = q.Get("request_id")
	f.SearchText = q.Get("search")
	f.StartTime = getTimeParam(r, "start")
	f.EndTime = getTimeParam(r, "end")
	if q.Get("order") == "asc" {
		f.OrderDesc = false
	}
	return f
}

// Events queries the decision and authentication log.
//
// @Summary Query audit events
// @Description Filters the audit trail. Decision events carry the subject as actor, the resource as target and the allow/deny outcome; time bounds are RFC 3339.
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param types query string false "Comma-separated event types"
// @Param severities query string false "Comma-separated severities"
// @Param outcomes query string false "Comma-separated outcomes"
// @Param actor_id query string false "Actor (subject) id"
// @Param session_id query string false "Session id"
// @Param target_id query string false "Target or resource id"
// @Param target_type query string false "Target or resource type"
// @Param action query string false "Attempted action"
// @Param source_ip query string false "Source IP"
// @Param search query string false "Text search over description and action"
// @Param start query string false "Range start, RFC 3339"
// @Param end query string false "Range end, RFC 3339"
// @Param order query string false "asc for oldest first"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} APIResponse{data=[]audit.Event} "Events"
// @Failure 403 {object} APIResponse "Permission denied"
// @Router /audit/events [get]
func (h *AuditHandlers) Events(w http.ResponseWriter, r *http.Request) {
	filter := h.filterFromQuery(r)

	events, err := h.logger.Query(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	total, err := h.logger.Count(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).SuccessWithPagination(events, &PaginationMeta{
		Total:   total,
		Count:   len(events),
		Offset:  filter.Offset,
		Limit:   filter.Limit,
		HasMore: int64(filter.Offset+len(events)) < total,
	})
}

// Event returns one audit event by id.
//
// @Summary Get an audit event
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event id"
// @Success 200 {object} APIResponse{data=audit.Event} "Event"
// @Failure 404 {object} APIResponse "Event not found"
// @Router /audit/events/{id} [get]
func (h *AuditHandlers) Event(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.logger.Get(r.Context(), id)
	if errors.Is(err, audit.ErrEventNotFound) {
		NewResponseWriter(w, r).NotFound("audit event " + id + " not found")
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(event)
}

// Stats summarizes the audit store.
//
// @Summary Audit store statistics
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=audit.Stats} "Statistics"
// @Failure 403 {object} APIResponse "Permission denied"
// @Router /audit/stats [get]
func (h *AuditHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.logger.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(stats)
}

// VerifyResult is the outcome of a chain verification run.
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	Verified int    `json:"verified"`
	Failure  string `json:"failure,omitempty"`

	// FailedEventID identifies the first event that broke the chain.
	FailedEventID string `json:"failed_event_id,omitempty"`
}

// Verify walks the hash chain over a time window and reports whether
// every event still links and re-hashes correctly. A broken chain is a
// result, not an error: the response is 200 with valid=false.
//
// @Summary Verify audit chain integrity
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param start query string false "Range start, RFC 3339"
// @Param end query string false "Range end, RFC 3339"
// @Success 200 {object} APIResponse{data=VerifyResult} "Verification result"
// @Failure 503 {object} APIResponse "Verification unavailable"
// @Router /audit/verify [get]
func (h *AuditHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	start := getTimeParam(r, "start")
	end := getTimeParam(r, "end")

	verified, err := h.logger.VerifyRange(r.Context(), start, end)
	if err != nil {
		var chainErr *audit.ChainError
		if errors.As(err, &chainErr) {
			NewResponseWriter(w, r).Success(VerifyResult{
				Valid:         false,
				Verified:      verified,
				Failure:       chainErr.Reason,
				FailedEventID: chainErr.EventID,
			})
			return
		}
		loggerFrom(r).Error().Err(err).Msg("Audit chain verification failed to run")
		NewResponseWriter(w, r).ServiceUnavailable("verification unavailable")
		return
	}
	NewResponseWriter(w, r).Success(VerifyResult{Valid: true, Verified: verified})
}

// streamUpgrader builds the websocket upgrader for the event stream.
// Browser origins are checked against the CORS allow list. Requests
// without an Origin header are non-browser clients; they already carry
// their own bearer token, so they pass.
func (h *AuditHandlers) streamUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.cfg.CORSOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			logging.Warn().Str("origin", origin).Msg("Audit stream connection rejected by origin check")
			return false
		},
	}
}

// Stream upgrades to a websocket subscribed to live audit events. An
// optional types parameter restricts delivery to the listed event
// types. The stream is best-effort: events dropped by the broadcast
// rate limiter are still in the store.
//
// @Summary Stream audit events
// @Tags Audit
// @Security BearerAuth
// @Param types query string false "Comma-separated event types"
// @Success 101 "Switching protocols"
// @Failure 403 {object} APIResponse "Permission denied"
// @Failure 503 {object} APIResponse "Streaming disabled"
// @Router /audit/stream [get]
func (h *AuditHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("audit streaming is disabled")
		return
	}

	var types []audit.EventType
	for _, t := range parseCommaSeparated(r.URL.Query().Get("types")) {
		types = append(types, audit.EventType(t))
	}

	upgrader := h.streamUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		loggerFrom(r).Error().Err(err).Msg("Audit stream upgrade failed")
		return
	}

	client := audit.NewStreamClient(h.hub, conn, types)
	client.Start()
}
