package models

import "time"

// Channel types understood by the crawler factory.
const (
	ChannelTypeRSS  = "rss"
	ChannelTypeHTML = "html"
)

// Channel represents a row in the 'channels' table
type Channel struct {
	ID          int64     `db:"id" json:"id"`
	Type        string    `db:"type" json:"type" validate:"oneof=rss html"`
	Title       string    `db:"title" json:"title" validate:"required"`
	Link        string    `db:"link" json:"link" validate:"required,url"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Icon        string    `db:"icon" json:"icon"`
	ItemsCode   string    `db:"items_code" json:"items_code,omitempty" validate:"required_if=Type html"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// NewChannel creates a Channel descriptor for the given link, defaulting to
// the rss type when typ is empty.
func NewChannel(typ, link string) *Channel {
	if typ == "" {
		typ = ChannelTypeRSS
	}
	now := time.Now()
	return &Channel{
		Type:      typ,
		Link:      link,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
