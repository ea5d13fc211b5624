// Package feed parses RSS 2.0 and Atom documents and normalizes their items
// into articles.
package feed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"

	"folio/reader/internal/models"
)

var (
	// ErrUnsupportedFormat is returned when a document is neither RSS nor Atom.
	ErrUnsupportedFormat = errors.New("document is not an RSS or Atom feed")

	// ErrMissingTitle is returned when a feed has no channel title.
	ErrMissingTitle = errors.New("feed has no title")

	// ErrMissingLink is returned when the channel has no subscription link.
	ErrMissingLink = errors.New("feed has no link")
)

// Document is a parsed feed. Exactly one of the rss or atom trees is set for
// a recognized feed; an unrecognized document has neither.
type Document struct {
	feedURL string
	rss     *rss.Feed
	atom    *atom.Feed
}

// Parse parses raw as RSS or Atom. feedURL is the subscription URL the
// document was fetched from; it becomes the channel link and the base for
// relative article URLs. An unrecognized document is not a parse error: its
// Channel fails and it has no articles.
func Parse(raw, feedURL string) (*Document, error) {
	doc := &Document{feedURL: feedURL}

	switch gofeed.DetectFeedType(strings.NewReader(raw)) {
	case gofeed.FeedTypeRSS:
		fp := rss.Parser{}
		f, err := fp.Parse(strings.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse rss feed: %w", err)
		}
		doc.rss = f
	case gofeed.FeedTypeAtom:
		fp := atom.Parser{}
		f, err := fp.Parse(strings.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse atom feed: %w", err)
		}
		doc.atom = f
	}

	return doc, nil
}

// Channel returns the channel descriptor of the feed. Its link is always the
// subscription URL, never a link found in the document.
func (d *Document) Channel() (*models.Channel, error) {
	var title, description, subtitle string
	switch {
	case d.rss != nil:
		title = d.rss.Title
		description = d.rss.Description
		if d.rss.ITunesExt != nil {
			subtitle = d.rss.ITunesExt.Subtitle
		}
	case d.atom != nil:
		title = d.atom.Title
		subtitle = d.atom.Subtitle
	default:
		return nil, ErrUnsupportedFormat
	}

	c := models.NewChannel(models.ChannelTypeRSS, d.feedURL)
	c.Title = strings.TrimSpace(title)
	c.Description = strings.TrimSpace(firstNonEmpty(description, subtitle))

	if c.Title == "" {
		return nil, ErrMissingTitle
	}
	if c.Link == "" {
		return nil, ErrMissingLink
	}
	return c, nil
}

// Articles returns the normalized items of the feed, in document order.
// The articles have no channel id yet.
func (d *Document) Articles() []models.Article {
	entries := d.entries()
	articles := make([]models.Article, 0, len(entries))
	for _, e := range entries {
		articles = append(articles, normalize(e, d.feedURL))
	}
	return articles
}

// FirstArticleLink returns the resolved link of the first item, or "".
func (d *Document) FirstArticleLink() string {
	entries := d.entries()
	if len(entries) == 0 {
		return ""
	}
	return resolveLink(d.feedURL, entries[0].link)
}

func (d *Document) entries() []entry {
	switch {
	case d.rss != nil:
		entries := make([]entry, 0, len(d.rss.Items))
		for _, item := range d.rss.Items {
			entries = append(entries, fromRSSItem(item))
		}
		return entries
	case d.atom != nil:
		entries := make([]entry, 0, len(d.atom.Entries))
		for _, e := range d.atom.Entries {
			entries = append(entries, fromAtomEntry(e))
		}
		return entries
	}
	return nil
}
