package models

import "errors"

var (
	// ErrDuplicateChannelLink is returned by storage when a channel insert
	// violates the unique constraint on channels.link.
	ErrDuplicateChannelLink = errors.New("channel link already exists")

	// ErrNoChannel means articles were saved before the channel had an id.
	ErrNoChannel = errors.New("no channel")

	// ErrNoDocument means a parse step ran before anything was downloaded.
	ErrNoDocument = errors.New("no document")

	// ErrNoItemsCode means an html channel has no extraction rules.
	ErrNoItemsCode = errors.New("no items code")

	ErrNotFound = errors.New("not found")
)
