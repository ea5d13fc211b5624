package api

import (
	"fmt"
	"net/http"
	"strconv"

	"folio/reader/internal/models"
	"folio/reader/internal/server/storage"
)

// LogsResponse lists crawl logs, newest first.
type LogsResponse struct {
	Items []models.CrawlLog `json:"items"`
}

// LogsHandler serves the crawl log endpoint.
type LogsHandler struct {
	repo storage.LogRepository
}

// NewLogsHandler creates a new handler instance.
func NewLogsHandler(repo storage.LogRepository) *LogsHandler {
	return &LogsHandler{repo: repo}
}

// GetLogs returns recent crawl logs, optionally for channel_id.
func (h *LogsHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	query, ok := parseQuery(w, r)
	if !ok {
		return
	}

	channelID, ok := queryID(r, "channel_id")
	if !ok {
		writeBadRequest(w, r, "Invalid 'channel_id' parameter")
		return
	}

	limit := defaultLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > maxLimit {
			writeBadRequest(w, r, fmt.Sprintf("Invalid 'limit' parameter: must be between 1 and %d", maxLimit))
			return
		}
		limit = parsed
	}

	logs, err := h.repo.CrawlLogs(r.Context(), channelID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, LogsResponse{Items: logs})
}
