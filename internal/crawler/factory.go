package crawler

import (
	"errors"
	"fmt"

	"folio/reader/internal/models"
)

// ErrInvalidType is returned by New for an unknown channel type.
var ErrInvalidType = errors.New("not a valid crawler type")

// Deps are the collaborators shared by all crawlers.
type Deps struct {
	Store   Store
	Fetcher Fetcher
	// Icons is optional. Without it RSS channels are saved without an icon.
	Icons IconResolver
}

// New returns a crawler for channel according to its type. No network or
// storage access happens here.
func New(channel *models.Channel, deps Deps) (*Crawler, error) {
	var strategy Strategy
	switch channel.Type {
	case models.ChannelTypeRSS:
		strategy = &rssStrategy{fetcher: deps.Fetcher, icons: deps.Icons}
	case models.ChannelTypeHTML:
		strategy = &htmlStrategy{fetcher: deps.Fetcher}
	default:
		return nil, fmt.Errorf("%s is %w", channel.Type, ErrInvalidType)
	}
	return newCrawler(channel, strategy, deps.Store), nil
}
