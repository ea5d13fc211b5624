package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"folio/reader/internal/server/api"
	"folio/reader/internal/server/storage"
)

// Deps are the collaborators behind the HTTP API.
type Deps struct {
	Repo    storage.Repository
	Crawler api.ChannelCrawler
	Batch   api.BatchCrawler
}

// apiKeyMiddleware checks for the X-API-Key header and validates it against the provided key.
// If key is empty, it allows all requests.
func apiKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			reqApiKey := r.Header.Get("X-API-Key")
			if reqApiKey == "" {
				http.Error(w, "API key required", http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(reqApiKey), []byte(apiKey)) != 1 {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewHandler builds the routed API with its logging and auth middleware.
func NewHandler(deps Deps, logger zerolog.Logger, apiKey string) http.Handler {
	articles := api.NewArticlesHandler(deps.Repo)
	channels := api.NewChannelsHandler(deps.Repo, deps.Crawler, deps.Batch)
	logs := api.NewLogsHandler(deps.Repo)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/channels", channels.CreateChannel)
	mux.HandleFunc("GET /v1/channels", channels.GetChannels)
	mux.HandleFunc("GET /v1/channels/export", channels.ExportChannels)
	mux.HandleFunc("GET /v1/channels/{id}", channels.GetChannel)
	mux.HandleFunc("PATCH /v1/channels/{id}", channels.PatchChannel)
	mux.HandleFunc("DELETE /v1/channels/{id}", channels.DeleteChannel)
	mux.HandleFunc("DELETE /v1/channels/{id}/articles", channels.PurgeArticles)
	mux.HandleFunc("POST /v1/channels/{id}/read", channels.MarkRead)
	mux.HandleFunc("POST /v1/channels/{id}/crawl", channels.CrawlChannel)
	mux.HandleFunc("POST /v1/crawl", channels.CrawlAll)

	mux.HandleFunc("GET /v1/articles", articles.GetArticles)
	mux.HandleFunc("GET /v1/articles/counts", articles.GetCounts)
	mux.HandleFunc("POST /v1/articles/read", channels.MarkRead)
	mux.HandleFunc("GET /v1/articles/{id}", articles.GetArticle)
	mux.HandleFunc("PATCH /v1/articles/{id}", articles.PatchArticle)

	mux.HandleFunc("GET /v1/logs", logs.GetLogs)

	mux.HandleFunc("GET /health", healthCheckHandler(deps.Repo))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Set up middleware chain for logging and request tracking
	h := hlog.NewHandler(logger)(http.Handler(mux))
	h = hlog.MethodHandler("method")(h)
	h = hlog.URLHandler("url")(h)
	h = hlog.RemoteAddrHandler("remote_addr")(h)
	h = hlog.UserAgentHandler("user_agent")(h)
	h = hlog.RequestIDHandler("req_id", "Request-Id")(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		idReq, _ := hlog.IDFromRequest(r)

		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Str("req_id", idReq.String()).
			Msg("HTTP Request")
	})(h)

	if apiKey != "" {
		h = apiKeyMiddleware(apiKey)(h)
		logger.Info().Msg("API key authentication enabled")
	} else {
		logger.Info().Msg("API key authentication disabled")
	}
	return h
}

// RunServer starts the HTTP server with graceful shutdown support.
// It returns once a SIGINT or SIGTERM has been handled.
func RunServer(deps Deps, listenAddr string, logger zerolog.Logger, apiKey string) error {
	// Add service identifier to the logger
	logger = logger.With().Str("service", "folio-api").Logger()

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           NewHandler(deps, logger, apiKey),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Crawl endpoints answer only after their fetches complete.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", listenAddr).Msg("API Server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErr:
		return err

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			if err := httpServer.Close(); err != nil {
				logger.Error().Err(err).Msg("HTTP server force close error")
			}
		} else {
			logger.Info().Msg("HTTP server shutdown complete.")
		}
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
		}
	}

	logger.Info().Msg("Server exiting.")
	return nil
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// healthCheckHandler answers 200 OK while the database responds and 503
// otherwise.
func healthCheckHandler(db pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := hlog.FromRequest(r)
		log.Debug().Msg("Health check request received")

		w.Header().Set("Content-Type", "text/plain")
		if err := db.PingContext(r.Context()); err != nil {
			log.Error().Err(err).Msg("Health check database ping failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable"))
			return
		}

		w.WriteHeader(http.StatusOK)
		n, err := w.Write([]byte("OK"))
		if err != nil {
			log.Error().Err(err).Msg("Error writing health check response")
		} else {
			log.Debug().Int("bytes_written", n).Msg("Health check response sent")
		}
	}
}
