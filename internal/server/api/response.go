package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"

	"folio/reader/internal/crawler"
	"folio/reader/internal/models"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	log := hlog.FromRequest(r)

	jsonBytes, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Error().Err(err).Msg("Error writing JSON response body to client")
		return
	}
	log.Debug().Int("bytes_written", len(jsonBytes)).Msg("Response completed")
}

// writeError reports err with its message unchanged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	event := hlog.FromRequest(r).Warn()
	if status >= http.StatusInternalServerError {
		event = hlog.FromRequest(r).Error()
	}
	event.Err(err).Int("status", status).Msg("Request failed")

	writeJSON(w, r, status, ErrorResponse{Success: false, Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	hlog.FromRequest(r).Warn().Str("reason", msg).Msg("Bad request")
	writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Success: false, Error: msg})
}

func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, crawler.ErrCrawlInProgress):
		return http.StatusConflict
	case errors.Is(err, crawler.ErrInvalidType),
		errors.Is(err, models.ErrNoItemsCode),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// pathID reads the {id} path segment.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// parseQuery parses the raw query string strictly. Malformed escapes are
// answered with 400 instead of being dropped.
func parseQuery(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	query, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		writeBadRequest(w, r, "Malformed query string")
		return nil, false
	}
	return query, true
}

// queryID reads an optional positive integer query parameter; 0 means absent.
func queryID(r *http.Request, name string) (int64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	return id, err == nil && id > 0
}

func queryBool(r *http.Request, name string) (bool, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, true
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
