package feed

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"folio/reader/internal/models"
	"folio/reader/internal/sanitize"
)

func normalize(e entry, feedURL string) models.Article {
	link := resolveLink(feedURL, e.link)
	content := sanitize.HTML(firstNonEmpty(e.encoded, e.content, e.description, e.mediaDescription))

	var summarySource string
	if e.encoded != "" {
		summarySource = firstNonEmpty(e.description, e.summary, content)
	} else {
		summarySource = firstNonEmpty(e.summary, content)
	}

	cover := absoluteURL(link, e.thumbnail)
	if cover == "" {
		cover = FirstImage(content, link)
	}

	return models.Article{
		Title:   strings.TrimSpace(e.title),
		Link:    link,
		Summary: Summarize(summarySource),
		Content: content,
		PubTime: FormatPubTime(e.publishedParsed, e.published),
		Cover:   cover,
		Author:  strings.TrimSpace(firstNonEmpty(e.authors...)),
	}
}

// Summarize extracts the plain text of an HTML fragment and cuts it at
// models.SummaryMaxLength characters. Runs of whitespace left by the markup
// are collapsed to single spaces first, so indentation and line breaks do not
// use up the summary length.
func Summarize(fragment string) string {
	if fragment == "" {
		return ""
	}
	text := fragment
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")
	return Truncate(text, models.SummaryMaxLength)
}

// Truncate cuts s to at most n characters without adjusting to word boundaries.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// FirstImage returns the src of the first <img> in an HTML fragment,
// resolved against base. Non-absolute results are dropped.
func FirstImage(fragment, base string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return absoluteURL(base, strings.TrimSpace(src))
}

// FormatPubTime renders a publication time as RFC 3339 in UTC. The raw
// value is tried with a lenient parser when the feed parser could not read
// it, reading zone-less values as UTC. An absent or unreadable time yields "".
func FormatPubTime(parsed *time.Time, raw string) string {
	if parsed != nil && !parsed.IsZero() {
		return parsed.UTC().Format(time.RFC3339)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// resolveLink makes a possibly relative article link absolute against the
// feed URL. Unparseable links are returned trimmed as they are.
func resolveLink(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == "" {
		return ref
	}
	if abs := absoluteURL(base, ref); abs != "" {
		return abs
	}
	return ref
}

// absoluteURL resolves ref against base and returns it only when the result
// is an http(s) or data URL.
func absoluteURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "data:") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		b, err := url.Parse(base)
		if err != nil || !b.IsAbs() {
			return ""
		}
		u = b.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
