// Package crawler drives a single crawl of a channel: download the document,
// save the channel, then save its articles.
package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"folio/reader/internal/metrics"
	"folio/reader/internal/models"
)

// Store is the persistence a crawl needs.
type Store interface {
	InsertChannel(ctx context.Context, c *models.Channel) (*models.Channel, error)
	ChannelByLink(ctx context.Context, link string) (*models.Channel, error)
	InsertArticles(ctx context.Context, channelID int64, articles []models.Article) ([]models.Article, error)
	InsertCrawlLog(ctx context.Context, l *models.CrawlLog) error
	UpdateChannelIcon(ctx context.Context, id int64, icon string) error
}

// Fetcher downloads a document as text, bounded by its own timeout.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// IconResolver finds a channel icon. A non-nil error only explains an
// empty icon and never fails a crawl.
type IconResolver interface {
	Resolve(ctx context.Context, channelLink, articleLink string) (string, error)
}

// Strategy is the source-specific half of a crawl.
type Strategy interface {
	// Download fetches and parses the channel's document.
	Download(ctx context.Context, channel *models.Channel) error
	// Channel returns the descriptor to persist for a channel without an id.
	Channel(ctx context.Context, channel *models.Channel) (*models.Channel, error)
	// Articles returns the normalized articles, stamped with channel.ID.
	Articles(channel *models.Channel) ([]models.Article, error)
}

// State is the position of a crawl in its lifecycle.
type State int

const (
	StateInit State = iota
	StateDownloaded
	StateChannelSaved
	StateArticlesSaved
	StateDone
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateDownloaded:
		return "downloaded"
	case StateChannelSaved:
		return "channel_saved"
	case StateArticlesSaved:
		return "articles_saved"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Crawler runs one crawl of one channel. It is not safe for concurrent use
// and is meant to be started once.
type Crawler struct {
	channel  *models.Channel
	strategy Strategy
	store    Store
	logger   zerolog.Logger

	state    State
	status   string
	result   string
	inserted []models.Article
}

func newCrawler(channel *models.Channel, strategy Strategy, store Store) *Crawler {
	return &Crawler{
		channel:  channel,
		strategy: strategy,
		store:    store,
		logger: log.With().
			Str("type", channel.Type).
			Str("link", channel.Link).
			Logger(),
	}
}

// Start downloads the document, saves the channel and saves the articles.
// Any failure stops the sequence and is returned unchanged apart from a
// step prefix. When the channel has an id by the end, the outcome is
// recorded as a crawl log.
func (c *Crawler) Start(ctx context.Context) (err error) {
	started := time.Now()
	defer func() { c.finish(ctx, err, time.Since(started)) }()

	if err = c.download(ctx); err != nil {
		return err
	}
	if err = c.saveChannel(ctx); err != nil {
		return err
	}
	if err = c.saveArticles(ctx); err != nil {
		return err
	}
	c.state = StateDone
	return nil
}

// Channel returns the crawled channel, with its id once saved.
func (c *Crawler) Channel() *models.Channel {
	return c.channel
}

// State returns the current lifecycle state.
func (c *Crawler) State() State {
	return c.state
}

// Inserted returns the articles stored by this crawl.
func (c *Crawler) Inserted() []models.Article {
	return c.inserted
}

// Result returns the crawl log status and result text.
func (c *Crawler) Result() (status, result string) {
	return c.status, c.result
}

func (c *Crawler) download(ctx context.Context) error {
	if err := c.strategy.Download(ctx, c.channel); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	c.state = StateDownloaded
	return nil
}

func (c *Crawler) saveChannel(ctx context.Context) error {
	if c.channel.ID != 0 {
		c.state = StateChannelSaved
		return nil
	}

	desc, err := c.strategy.Channel(ctx, c.channel)
	if err != nil {
		return fmt.Errorf("parse channel: %w", err)
	}
	if err := models.ValidateChannel(desc); err != nil {
		return err
	}

	saved, err := ResolveChannel(ctx, c.store, desc)
	if err != nil {
		return err
	}

	if saved.Icon == "" && desc.Icon != "" {
		if err := c.store.UpdateChannelIcon(ctx, saved.ID, desc.Icon); err != nil {
			c.logger.Warn().Err(err).Int64("channel_id", saved.ID).Msg("Failed to store channel icon")
		} else {
			saved.Icon = desc.Icon
		}
	}

	c.channel = saved
	c.logger = c.logger.With().Int64("channel_id", saved.ID).Logger()
	c.state = StateChannelSaved
	return nil
}

func (c *Crawler) saveArticles(ctx context.Context) error {
	if c.channel.ID == 0 {
		return models.ErrNoChannel
	}

	articles, err := c.strategy.Articles(c.channel)
	if err != nil {
		return fmt.Errorf("parse articles: %w", err)
	}
	if err := models.ValidateArticles(articles); err != nil {
		return err
	}

	inserted, err := c.store.InsertArticles(ctx, c.channel.ID, articles)
	if err != nil {
		return err
	}

	c.inserted = inserted
	c.state = StateArticlesSaved
	c.status = models.CrawlStatusSuccess
	if len(inserted) > 0 {
		c.result = fmt.Sprintf("inserted %d articles", len(inserted))
	}

	c.logger.Info().
		Int("parsed", len(articles)).
		Int("inserted", len(inserted)).
		Msg("Articles saved")
	return nil
}

// finish records metrics and, when the channel is known and there is
// something to report, one crawl log row. A failed log write is reported
// and otherwise dropped so the crawl outcome stays as it was.
func (c *Crawler) finish(ctx context.Context, err error, elapsed time.Duration) {
	if err != nil {
		c.state = StateErrored
		c.status = models.CrawlStatusError
		c.result = err.Error()
		c.logger.Error().Err(err).Dur("duration", elapsed).Msg("Crawl failed")
	} else {
		c.logger.Info().Dur("duration", elapsed).Int("inserted", len(c.inserted)).Msg("Crawl finished")
	}

	metrics.CrawlsTotal.WithLabelValues(c.channel.Type, c.statusLabel()).Inc()
	metrics.CrawlDuration.WithLabelValues(c.channel.Type).Observe(elapsed.Seconds())
	metrics.ArticlesInserted.WithLabelValues(c.channel.Type).Add(float64(len(c.inserted)))

	if c.channel.ID == 0 || c.result == "" {
		return
	}

	entry := &models.CrawlLog{
		ChannelID: c.channel.ID,
		Timestamp: time.Now(),
		Status:    c.status,
		Result:    c.result,
	}
	if logErr := c.store.InsertCrawlLog(context.WithoutCancel(ctx), entry); logErr != nil {
		c.logger.Warn().Err(logErr).Msg("Failed to write crawl log")
	}
}

func (c *Crawler) statusLabel() string {
	if c.status == "" {
		return models.CrawlStatusSuccess
	}
	return c.status
}
