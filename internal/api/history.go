package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/irhvac-core/internal/history"
	"github.com/nerrad567/irhvac-core/internal/hvac"
)

const maxQueryParamLen = 64

// handleDeviceHistory returns recorded state changes for one device, newest first.
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "state history not configured")
		return
	}

	deviceID := chi.URLParam(r, "id")
	if deviceID == "" || len(deviceID) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}
	limit, err := parseIntParam(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var known bool
	if err := s.engine.Do(r.Context(), func(p *hvac.Processor) {
		_, _, known = p.Registry().Lookup(deviceID)
	}); err != nil {
		writeUnavailable(w, "control loop stopped")
		return
	}
	if !known {
		writeNotFound(w, "device not found")
		return
	}

	entries, err := s.history.GetHistory(r.Context(), deviceID, limit)
	if err != nil {
		s.logger.Error("failed to read state history", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to read state history")
		return
	}
	if entries == nil {
		entries = []history.StateEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID,
		"history":   entries,
		"count":     len(entries),
	})
}

// handleListCommands returns one page of the command audit log.
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeUnavailable(w, "command log not configured")
		return
	}

	q := r.URL.Query()
	filter := history.Filter{
		DeviceID: q.Get("device_id"),
		Origin:   q.Get("origin"),
	}
	if len(filter.DeviceID) > maxQueryParamLen || len(filter.Origin) > maxQueryParamLen {
		writeBadRequest(w, "query parameter too long")
		return
	}

	var err error
	if filter.Limit, err = parseIntParam(q.Get("limit")); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if filter.Offset, err = parseIntParam(q.Get("offset")); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.commands.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list command log", "error", err)
		writeInternalError(w, "failed to list command log")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseIntParam parses an optional non-negative integer query parameter.
// Empty means 0, which the history store treats as its default.
func parseIntParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}
