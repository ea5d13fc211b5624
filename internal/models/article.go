package models

import "time"

// SummaryMaxLength is the hard cut applied to article summaries, in characters.
const SummaryMaxLength = 200

// Article represents a row in the articles table
type Article struct {
	ID        int64     `db:"id" json:"id"`
	ChannelID int64     `db:"channel_id" json:"channel_id" validate:"gt=0"`
	Title     string    `db:"title" json:"title"`
	Link      string    `db:"link" json:"link" validate:"required"`
	Summary   string    `db:"summary" json:"summary" validate:"max=200"`
	Content   string    `db:"content" json:"content"`
	PubTime   string    `db:"pub_time" json:"pub_time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Cover     string    `db:"cover" json:"cover,omitempty" validate:"omitempty,url"`
	Author    string    `db:"author" json:"author,omitempty"`
	Read      bool      `db:"read" json:"read"`
	Star      bool      `db:"star" json:"star"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ArticleWithChannel is an article joined with the owning channel's display fields.
type ArticleWithChannel struct {
	Article
	ChannelTitle string `db:"channel_title" json:"channel_title"`
	ChannelIcon  string `db:"channel_icon" json:"channel_icon"`
}
