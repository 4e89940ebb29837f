package api

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// handleGetDeviceHistory returns recorded state reports for a device,
// newest first.
//
// Query parameters:
//   - limit: maximum entries (default 50, max 200)
func (s *Server) handleGetDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeServiceUnavailable(w, "state history is disabled")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	node, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	entries, err := s.journal.History(r.Context(), node.ID(), limit)
	if err != nil {
		s.logger.Error("state history query failed", "device_id", node.ID(), "error", err)
		writeInternalError(w, "failed to load state history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": node.ID(),
		"history":   entries,
		"count":     len(entries),
	})
}

// parseHistoryLimit validates the limit query parameter.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}
