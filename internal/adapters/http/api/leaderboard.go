// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/okian/podium/internal/adapters/export"
	"github.com/okian/podium/pkg/logger"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, limit int) ([]Entry, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
	log      logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int, log logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
		log:      log,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N requests. Without a
// limit the first maxLimit entries are returned.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	n := h.maxLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
	}
	entries, err := h.deps.Leaderboard(r.Context(), n)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleExportLeaderboard handles GET /leaderboard.xlsx requests
func (h *LeaderboardHandler) HandleExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_leaderboard"
	entries, err := h.deps.Leaderboard(r.Context(), 0)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err)
		return
	}
	// buffer so a failed export can still become a JSON error
	var buf bytes.Buffer
	if err := export.WriteLeaderboard(&buf, entries); err != nil {
		h.log.Error(r.Context(), "leaderboard export failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrExport))
		return
	}
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
