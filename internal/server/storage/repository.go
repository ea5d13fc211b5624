package storage

import (
	"context"

	"folio/reader/internal/database"
	"folio/reader/internal/models"
)

// ArticlePage selects one page of the article listing.
type ArticlePage struct {
	ChannelID int64
	Unread    bool
	Starred   bool
	Limit     int

	// Set together to continue after the last row of a previous page.
	CursorPubTime *string
	CursorID      *int64
}

// ChannelRepository defines operations for managing channels.
type ChannelRepository interface {
	Channels(ctx context.Context) ([]models.Channel, error)
	ChannelByID(ctx context.Context, id int64) (*models.Channel, error)
	UpdateChannel(ctx context.Context, c *models.Channel) error
	DeleteChannel(ctx context.Context, id int64) error
	PurgeChannelArticles(ctx context.Context, channelID int64, includeStarred bool) (int64, error)
	MarkChannelRead(ctx context.Context, channelID int64) (int64, error)
}

// ArticleRepository defines operations for reading and flagging articles.
type ArticleRepository interface {
	FetchArticles(ctx context.Context, page ArticlePage) ([]models.ArticleWithChannel, error)
	ArticleByID(ctx context.Context, id int64) (*models.ArticleWithChannel, error)
	SetArticleRead(ctx context.Context, id int64, read bool) error
	SetArticleStar(ctx context.Context, id int64, star bool) error
	CountArticles(ctx context.Context, channelID int64) (database.ArticleCounts, error)
}

// LogRepository defines read access to crawl logs.
type LogRepository interface {
	CrawlLogs(ctx context.Context, channelID int64, limit int) ([]models.CrawlLog, error)
}

// Repository is everything the HTTP API reads and writes.
type Repository interface {
	ChannelRepository
	ArticleRepository
	LogRepository
	PingContext(ctx context.Context) error
}

// sqlxRepository implements Repository on the SQLite database.
type sqlxRepository struct {
	*database.DB
}

// NewRepository creates a new repository instance.
func NewRepository(db *database.DB) Repository {
	return &sqlxRepository{DB: db}
}

// FetchArticles returns one page of articles, newest publication first.
func (r *sqlxRepository) FetchArticles(ctx context.Context, page ArticlePage) ([]models.ArticleWithChannel, error) {
	return r.Articles(ctx, database.ArticleFilter{
		ChannelID:     page.ChannelID,
		Unread:        page.Unread,
		Starred:       page.Starred,
		Limit:         page.Limit,
		CursorPubTime: page.CursorPubTime,
		CursorID:      page.CursorID,
	})
}
