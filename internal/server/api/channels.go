package api

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"folio/reader/internal/crawler"
	"folio/reader/internal/models"
	"folio/reader/internal/process"
	"folio/reader/internal/server/storage"
)

// ChannelCrawler triggers single crawls.
type ChannelCrawler interface {
	CrawlChannel(ctx context.Context, desc *models.Channel) (crawler.Result, error)
	CrawlByID(ctx context.Context, id int64) (crawler.Result, error)
}

// BatchCrawler crawls every stored channel.
type BatchCrawler interface {
	ProcessChannels(ctx context.Context) ([]process.Outcome, error)
}

// ChannelRequest describes a channel to subscribe to.
type ChannelRequest struct {
	Type        string `json:"type"`
	Link        string `json:"link"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ItemsCode   string `json:"items_code"`
}

// ChannelPatch holds the editable channel fields. Type and link are fixed.
type ChannelPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Icon        *string `json:"icon"`
	ItemsCode   *string `json:"items_code"`
}

// CountResponse reports how many rows an operation changed.
type CountResponse struct {
	Success bool  `json:"success"`
	Count   int64 `json:"count"`
}

// CrawlAllResponse lists the outcome of every channel in a batch.
type CrawlAllResponse struct {
	Success bool              `json:"success"`
	Results []process.Outcome `json:"results"`
}

// ChannelsHandler serves the channel and crawl endpoints.
type ChannelsHandler struct {
	repo    storage.ChannelRepository
	crawler ChannelCrawler
	batch   BatchCrawler
}

// NewChannelsHandler creates a new handler instance.
func NewChannelsHandler(repo storage.ChannelRepository, c ChannelCrawler, batch BatchCrawler) *ChannelsHandler {
	return &ChannelsHandler{repo: repo, crawler: c, batch: batch}
}

// CreateChannel subscribes to a channel by crawling it once. The response
// carries the id of the new or already stored channel.
func (h *ChannelsHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, r, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Link) == "" {
		writeBadRequest(w, r, "Missing required field: 'link'")
		return
	}

	desc := models.NewChannel(req.Type, req.Link)
	desc.Title = req.Title
	desc.Description = req.Description
	desc.Category = req.Category
	desc.ItemsCode = req.ItemsCode

	res, err := h.crawler.CrawlChannel(r.Context(), desc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// GetChannels lists every channel.
func (h *ChannelsHandler) GetChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.repo.Channels(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, channels)
}

// GetChannel returns one channel.
func (h *ChannelsHandler) GetChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "Invalid channel id")
		return
	}

	channel, err := h.repo.ChannelByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, channel)
}

// PatchChannel edits the mutable fields of a channel.
func (h *ChannelsHandler) PatchChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "Invalid channel id")
		return
	}

	var patch ChannelPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeBadRequest(w, r, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	ctx := r.Context()
	channel, err := h.repo.ChannelByID(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if patch.Title != nil {
		channel.Title = *patch.Title
	}
	if patch.Description != nil {
		channel.Description = *patch.Description
	}
	if patch.Category != nil {
		channel.Category = *patch.Category
	}
	if patch.Icon != nil {
		channel.Icon = *patch.Icon
	}
	if patch.ItemsCode != nil {
		channel.ItemsCode = *patch.ItemsCode
	}

	if err := models.ValidateChannel(channel); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.repo.UpdateChannel(ctx, channel); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.repo.ChannelByID(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

// DeleteChannel removes a channel with its articles and crawl logs.
func (h *ChannelsHandler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "Invalid channel id")
		return
	}

	if err := h.repo.DeleteChannel(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Int64("channel_id", id).Msg("Channel deleted")
	writeJSON(w, r, http.StatusOK, CountResponse{Success: true, Count: 1})
}

// PurgeArticles deletes the articles of a channel. Starred articles are kept
// unless include_starred=true.
func (h *ChannelsHandler) PurgeArticles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "Invalid channel id")
		return
	}
	includeStarred, ok := queryBool(r, "include_starred")
	if !ok {
		writeBadRequest(w, r, "Invalid 'include_starred' parameter")
		return
	}

	n, err := h.repo.PurgeChannelArticles(r.Context(), id, includeStarred)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, CountResponse{Success: true, Count: n})
}

// MarkRead marks every article of the channel in the path as read, or of
// all channels when the route has no id.
func (h *ChannelsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var id int64
	if r.PathValue("id") != "" {
		var ok bool
		if id, ok = pathID(r); !ok {
			writeBadRequest(w, r, "Invalid channel id")
			return
		}
	}

	n, err := h.repo.MarkChannelRead(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, CountResponse{Success: true, Count: n})
}

// CrawlChannel re-crawls a stored channel.
func (h *ChannelsHandler) CrawlChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "Invalid channel id")
		return
	}

	res, err := h.crawler.CrawlByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// CrawlAll crawls every channel and reports each outcome.
func (h *ChannelsHandler) CrawlAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.batch.ProcessChannels(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, CrawlAllResponse{Success: true, Results: results})
}

// ExportChannels returns all channels as CSV in the import format.
func (h *ChannelsHandler) ExportChannels(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	channels, err := h.repo.Channels(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=channels.csv")

	csvWriter := csv.NewWriter(w)
	header := []string{"link", "type", "category", "title", "description", "items_code"}
	if err := csvWriter.Write(header); err != nil {
		log.Error().Err(err).Msg("Failed to write CSV header")
		return
	}
	for _, c := range channels {
		record := []string{c.Link, c.Type, c.Category, c.Title, c.Description, c.ItemsCode}
		if err := csvWriter.Write(record); err != nil {
			log.Error().Err(err).Msg("Failed to write CSV record")
			return
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		log.Error().Err(err).Msg("Error flushing CSV data")
		return
	}
	log.Info().Int("channel_count", len(channels)).Msg("Exported channels as CSV")
}
