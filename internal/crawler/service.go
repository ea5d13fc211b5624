package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"folio/reader/internal/events"
	"folio/reader/internal/models"
)

// ErrCrawlInProgress is returned when the same link is already being crawled.
var ErrCrawlInProgress = errors.New("crawl already in progress")

// crawlTimeout bounds a crawl once started. Fetches carry their own, shorter
// timeout; this only catches a stalled store.
const crawlTimeout = 2 * time.Minute

// Publisher receives one event per finished crawl.
type Publisher interface {
	Publish(ctx context.Context, e events.CrawlEvent) error
}

// ServiceStore is the storage the Service needs on top of Store.
type ServiceStore interface {
	Store
	ChannelByID(ctx context.Context, id int64) (*models.Channel, error)
}

// Result is the outcome of a triggered crawl.
type Result struct {
	Success  bool  `json:"success"`
	ID       int64 `json:"id,omitempty"`
	Inserted int   `json:"inserted"`
}

// Service is the entry point for crawl triggers from the CLI and the API.
type Service struct {
	store     ServiceStore
	deps      Deps
	publisher Publisher

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithIconResolver enables favicon lookups for new RSS channels.
func WithIconResolver(r IconResolver) ServiceOption {
	return func(s *Service) {
		s.deps.Icons = r
	}
}

// WithPublisher publishes an event after every crawl.
func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) {
		s.publisher = p
	}
}

// NewService builds a Service over store and fetcher.
func NewService(store ServiceStore, fetcher Fetcher, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		deps:     Deps{Store: store, Fetcher: fetcher},
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CrawlChannel crawls the channel described by desc. A descriptor without
// an id is resolved against stored channels by link, so triggering the same
// link twice never creates a second channel. Once started, the crawl is not
// cancelled with ctx; it runs until it completes or fails.
func (s *Service) CrawlChannel(ctx context.Context, desc *models.Channel) (Result, error) {
	if desc == nil {
		return Result{}, models.ErrNoChannel
	}
	channel := *desc
	channel.Link = strings.TrimSpace(channel.Link)
	if channel.Type == "" {
		channel.Type = models.ChannelTypeRSS
	}

	c, err := New(&channel, s.deps)
	if err != nil {
		return Result{}, err
	}

	if !s.acquire(channel.Link) {
		return Result{}, fmt.Errorf("%s: %w", channel.Link, ErrCrawlInProgress)
	}
	defer s.release(channel.Link)

	crawlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), crawlTimeout)
	defer cancel()

	err = c.Start(crawlCtx)
	s.publish(crawlCtx, c)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Success:  true,
		ID:       c.Channel().ID,
		Inserted: len(c.Inserted()),
	}, nil
}

// CrawlByID crawls a stored channel.
func (s *Service) CrawlByID(ctx context.Context, id int64) (Result, error) {
	channel, err := s.store.ChannelByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return s.CrawlChannel(ctx, channel)
}

func (s *Service) acquire(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[link]; busy {
		return false
	}
	s.inFlight[link] = struct{}{}
	return true
}

func (s *Service) release(link string) {
	s.mu.Lock()
	delete(s.inFlight, link)
	s.mu.Unlock()
}

func (s *Service) publish(ctx context.Context, c *Crawler) {
	if s.publisher == nil {
		return
	}
	status, result := c.Result()
	e := events.CrawlEvent{
		ChannelID: c.Channel().ID,
		Link:      c.Channel().Link,
		Type:      c.Channel().Type,
		Status:    status,
		Result:    result,
		Inserted:  len(c.Inserted()),
		Timestamp: time.Now().UTC(),
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		log.Warn().Err(err).Str("link", e.Link).Msg("Failed to publish crawl event")
	}
}
