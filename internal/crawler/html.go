package crawler

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	"folio/reader/internal/models"
	"folio/reader/internal/scrape"
)

// htmlStrategy crawls an HTML page with the channel's extraction rules.
type htmlStrategy struct {
	fetcher Fetcher
	doc     *goquery.Document
	now     func() time.Time
}

func (s *htmlStrategy) Download(ctx context.Context, channel *models.Channel) error {
	raw, err := s.fetcher.FetchText(ctx, channel.Link)
	if err != nil {
		return err
	}
	doc, err := scrape.ParseDocument(raw)
	if err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// Channel returns a copy of the user-supplied channel; scraped pages carry
// no channel metadata of their own.
func (s *htmlStrategy) Channel(_ context.Context, channel *models.Channel) (*models.Channel, error) {
	desc := *channel
	desc.Type = models.ChannelTypeHTML
	return &desc, nil
}

func (s *htmlStrategy) Articles(channel *models.Channel) ([]models.Article, error) {
	if s.doc == nil {
		return nil, models.ErrNoDocument
	}
	if channel.ItemsCode == "" {
		return nil, models.ErrNoItemsCode
	}

	rules, err := scrape.ParseRules(channel.ItemsCode)
	if err != nil {
		return nil, err
	}
	articles, err := scrape.Extract(s.doc, rules, channel.Link)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC().Format(time.RFC3339)
	for i := range articles {
		articles[i].ChannelID = channel.ID
		if articles[i].PubTime == "" {
			articles[i].PubTime = now
		}
	}
	return articles, nil
}

func (s *htmlStrategy) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
