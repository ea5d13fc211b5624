// Package favicon resolves a best-effort icon URL for a channel.
package favicon

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned alongside an empty icon when no candidate yields one.
var ErrNotFound = errors.New("favicon not found")

// Fetcher downloads a page as text.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Resolver looks up <link rel="...icon..."> elements on candidate pages.
type Resolver struct {
	fetcher Fetcher
}

// NewResolver creates a Resolver that downloads pages with f.
func NewResolver(f Fetcher) *Resolver {
	return &Resolver{fetcher: f}
}

// Resolve returns an icon URL for a channel. Candidates are the origin of
// channelLink, then articleLink when set. Without a declared icon it falls
// back to <article origin>/favicon.ico. When nothing resolves the icon is
// empty and the error is ErrNotFound; callers treat that as informational.
func (r *Resolver) Resolve(ctx context.Context, channelLink, articleLink string) (string, error) {
	var candidates []string
	if origin := Origin(channelLink); origin != "" {
		candidates = append(candidates, origin)
	}
	if articleLink != "" {
		candidates = append(candidates, articleLink)
	}

	for _, candidate := range candidates {
		icon, err := r.fromPage(ctx, candidate)
		if err != nil {
			log.Debug().Err(err).Str("url", candidate).Msg("Favicon candidate failed")
			continue
		}
		if icon != "" {
			return icon, nil
		}
	}

	if origin := Origin(articleLink); origin != "" {
		return origin + "/favicon.ico", nil
	}
	return "", ErrNotFound
}

func (r *Resolver) fromPage(ctx context.Context, pageURL string) (string, error) {
	body, err := r.fetcher.FetchText(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return FindIcon(body, pageURL)
}

// FindIcon returns the href of the first <link> whose rel contains "icon",
// resolved against base. It returns an empty string when there is none.
func FindIcon(html, base string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	var href string
	doc.Find("link[rel][href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !strings.Contains(strings.ToLower(rel), "icon") {
			return true
		}
		href, _ = s.Attr("href")
		href = strings.TrimSpace(href)
		return href == ""
	})
	if href == "" {
		return "", nil
	}

	return ResolveURL(base, href)
}

// ResolveURL resolves ref against base.
func ResolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	return b.ResolveReference(u).String(), nil
}

// Origin returns scheme://host of an absolute http(s) URL, or "".
func Origin(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
