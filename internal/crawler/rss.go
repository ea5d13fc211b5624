package crawler

import (
	"context"
	"errors"

	"folio/reader/internal/favicon"
	"folio/reader/internal/feed"
	"folio/reader/internal/metrics"
	"folio/reader/internal/models"
)

// rssStrategy crawls RSS 2.0 and Atom feeds.
type rssStrategy struct {
	fetcher Fetcher
	icons   IconResolver
	doc     *feed.Document
}

func (s *rssStrategy) Download(ctx context.Context, channel *models.Channel) error {
	raw, err := s.fetcher.FetchText(ctx, channel.Link)
	if err != nil {
		return err
	}
	doc, err := feed.Parse(raw, channel.Link)
	if err != nil {
		return err
	}
	s.doc = doc
	return nil
}

func (s *rssStrategy) Channel(ctx context.Context, channel *models.Channel) (*models.Channel, error) {
	if s.doc == nil {
		return nil, models.ErrNoDocument
	}
	desc, err := s.doc.Channel()
	if err != nil {
		return nil, err
	}
	desc.Category = channel.Category
	desc.Icon = channel.Icon

	if desc.Icon == "" && s.icons != nil {
		desc.Icon = s.resolveIcon(ctx, desc)
	}
	return desc, nil
}

func (s *rssStrategy) resolveIcon(ctx context.Context, desc *models.Channel) string {
	icon, err := s.icons.Resolve(ctx, desc.Link, s.doc.FirstArticleLink())
	switch {
	case err == nil:
		metrics.FaviconLookups.WithLabelValues("found").Inc()
	case errors.Is(err, favicon.ErrNotFound):
		metrics.FaviconLookups.WithLabelValues("missing").Inc()
	default:
		metrics.FaviconLookups.WithLabelValues("error").Inc()
	}
	return icon
}

func (s *rssStrategy) Articles(channel *models.Channel) ([]models.Article, error) {
	if s.doc == nil {
		return nil, models.ErrNoDocument
	}
	articles := s.doc.Articles()
	for i := range articles {
		articles[i].ChannelID = channel.ID
	}
	return articles, nil
}
