package scrape

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"folio/reader/internal/feed"
	"folio/reader/internal/models"
	"folio/reader/internal/sanitize"
)

// ParseDocument parses an HTML page. An empty page is a valid, empty document.
func ParseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// Extract applies rules to doc and returns one article per item match.
// Relative links and covers are resolved against pageURL. Articles carry no
// channel id, and pub_time is left empty when the page has none.
func Extract(doc *goquery.Document, rules *Rules, pageURL string) ([]models.Article, error) {
	if doc == nil {
		return nil, models.ErrNoDocument
	}
	c, err := rules.compile()
	if err != nil {
		return nil, err
	}

	articles := []models.Article{}
	doc.FindMatcher(c.items).Each(func(_ int, item *goquery.Selection) {
		link := resolve(pageURL, c.link.text(item))
		content := sanitize.HTML(c.content.html(item))

		cover := resolve(pageURL, c.cover.text(item))
		if cover == "" {
			cover = feed.FirstImage(content, firstNonEmpty(link, pageURL))
		}

		pubTime := c.pubTime.text(item)
		if normalized := feed.FormatPubTime(nil, pubTime); normalized != "" {
			pubTime = normalized
		}

		articles = append(articles, models.Article{
			Title:   c.title.text(item),
			Link:    link,
			Summary: feed.Summarize(c.summary.text(item)),
			Content: content,
			PubTime: pubTime,
			Cover:   cover,
			Author:  c.author.text(item),
		})
	})
	return articles, nil
}

func (f field) target(item *goquery.Selection) *goquery.Selection {
	if f.selector == nil {
		return item
	}
	return item.FindMatcher(f.selector).First()
}

// text returns the attribute or the whitespace-collapsed text of the target.
func (f field) text(item *goquery.Selection) string {
	if f.empty {
		return ""
	}
	s := f.target(item)
	if f.attr != "" {
		v, _ := s.Attr(f.attr)
		return strings.TrimSpace(v)
	}
	return strings.Join(strings.Fields(s.Text()), " ")
}

// html returns the attribute or the inner HTML of the target.
func (f field) html(item *goquery.Selection) string {
	if f.empty || f.attr != "" {
		return f.text(item)
	}
	h, err := f.target(item).Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(h)
}

func resolve(base, ref string) string {
	if ref == "" {
		return ""
	}
	if base == "" {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(u).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
