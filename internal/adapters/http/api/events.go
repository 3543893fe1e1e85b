// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// maxFinishBody bounds the finish request body.
const maxFinishBody = 64 << 10

// EventDependencies defines the interface for event lifecycle operations.
type EventDependencies interface {
	Finish(ctx context.Context, callerID string, event model.EventID, order []string) (service.FinishResult, error)
	Reopen(ctx context.Context, callerID string, event model.EventID) (service.ReopenResult, error)
	EventDetail(ctx context.Context, event model.EventID) (service.EventDetail, error)
}

// EventsHandler handles event requests
type EventsHandler struct {
	deps EventDependencies
	log  logger.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(deps EventDependencies, log logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, log: log}
}

// HandleFinish handles POST /events/{event}/finish requests
func (h *EventsHandler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	const op = "api.finish_event"
	event, err := parseEvent(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var req finishRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFinishBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Finish(r.Context(), caller(r), event, req.Order)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, finishResponse{Success: true, FinishResult: res})
}

// HandleReopen handles POST /events/{event}/reopen requests
func (h *EventsHandler) HandleReopen(w http.ResponseWriter, r *http.Request) {
	const op = "api.reopen_event"
	event, err := parseEvent(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Reopen(r.Context(), caller(r), event)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reopenResponse{Success: true, ReopenResult: res})
}

// HandleGetEvent handles GET /events/{event} requests
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	event, err := parseEvent(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	detail, err := h.deps.EventDetail(r.Context(), event)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func caller(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(CallerHeader))
}
