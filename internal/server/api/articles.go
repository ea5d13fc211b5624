package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"folio/reader/internal/models"
	"folio/reader/internal/server/pagination"
	"folio/reader/internal/server/storage"
)

const defaultLimit = 50
const maxLimit = 500

// ArticlesResponse is one page of the article listing.
type ArticlesResponse struct {
	Items      []models.ArticleWithChannel `json:"items"`
	NextCursor *string                     `json:"next_cursor,omitempty"`
}

// ArticlePatch holds the article flags a client may change.
type ArticlePatch struct {
	Read *bool `json:"read"`
	Star *bool `json:"star"`
}

// ArticlesHandler serves the article endpoints.
type ArticlesHandler struct {
	repo storage.ArticleRepository
}

// NewArticlesHandler creates a new handler instance.
func NewArticlesHandler(repo storage.ArticleRepository) *ArticlesHandler {
	return &ArticlesHandler{repo: repo}
}

// GetArticles lists articles newest first with cursor pagination.
// Query parameters: channel_id, unread, starred, limit, cursor.
func (h *ArticlesHandler) GetArticles(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Processing articles request")

	query, ok := parseQuery(w, r)
	if !ok {
		return
	}
	limitStr := query.Get("limit")
	cursorStr := query.Get("cursor")

	limit := defaultLimit
	if limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 || parsedLimit > maxLimit {
			writeBadRequest(w, r, fmt.Sprintf("Invalid 'limit' parameter: must be between 1 and %d", maxLimit))
			return
		}
		limit = parsedLimit
	}

	channelID, ok := queryID(r, "channel_id")
	if !ok {
		writeBadRequest(w, r, "Invalid 'channel_id' parameter")
		return
	}
	unread, ok := queryBool(r, "unread")
	if !ok {
		writeBadRequest(w, r, "Invalid 'unread' parameter")
		return
	}
	starred, ok := queryBool(r, "starred")
	if !ok {
		writeBadRequest(w, r, "Invalid 'starred' parameter")
		return
	}

	page := storage.ArticlePage{
		ChannelID: channelID,
		Unread:    unread,
		Starred:   starred,
		Limit:     limit + 1, // Fetch one extra
	}
	if cursorStr != "" {
		pubTime, id, err := pagination.DecodeCursor(cursorStr)
		if err != nil {
			log.Warn().Err(err).Str("cursor", cursorStr).Msg("Invalid 'cursor' parameter")
			writeBadRequest(w, r, "Invalid 'cursor' parameter")
			return
		}
		page.CursorPubTime = &pubTime
		page.CursorID = &id
	}

	items, err := h.repo.FetchArticles(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var nextCursorStr *string
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		cursor := pagination.EncodeCursor(last.PubTime, last.ID)
		nextCursorStr = &cursor
	}

	writeJSON(w, r, http.StatusOK, ArticlesResponse{
		Items:      items,
		NextCursor: nextCursorStr,
	})
}

// GetArticle returns one article.
func (h *ArticlesHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "Invalid article id")
		return
	}

	article, err := h.repo.ArticleByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, article)
}

// PatchArticle sets the read and star flags of an article.
func (h *ArticlesHandler) PatchArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, r, "Invalid article id")
		return
	}

	var patch ArticlePatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeBadRequest(w, r, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if patch.Read == nil && patch.Star == nil {
		writeBadRequest(w, r, "Nothing to update: set 'read' or 'star'")
		return
	}

	ctx := r.Context()
	if patch.Read != nil {
		if err := h.repo.SetArticleRead(ctx, id, *patch.Read); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if patch.Star != nil {
		if err := h.repo.SetArticleStar(ctx, id, *patch.Star); err != nil {
			writeError(w, r, err)
			return
		}
	}

	article, err := h.repo.ArticleByID(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, article)
}

// GetCounts returns unread and starred totals, optionally for channel_id.
func (h *ArticlesHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	channelID, ok := queryID(r, "channel_id")
	if !ok {
		writeBadRequest(w, r, "Invalid 'channel_id' parameter")
		return
	}

	counts, err := h.repo.CountArticles(r.Context(), channelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, counts)
}
