package crawler

import (
	"context"
	"errors"
	"fmt"

	"folio/reader/internal/models"
)

// ResolveChannel inserts desc, or returns the stored channel with the same
// link when the insert hits the link uniqueness constraint.
func ResolveChannel(ctx context.Context, store Store, desc *models.Channel) (*models.Channel, error) {
	saved, err := store.InsertChannel(ctx, desc)
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, models.ErrDuplicateChannelLink) {
		return nil, err
	}

	existing, lookupErr := store.ChannelByLink(ctx, desc.Link)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if existing == nil {
		return nil, fmt.Errorf("channel %s reported as duplicate but not found", desc.Link)
	}
	return existing, nil
}
