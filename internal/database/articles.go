package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"folio/reader/internal/models"
)

// ArticleFilter narrows an article listing. Articles are ordered newest
// publication first; CursorPubTime/CursorID continue after a previous page.
type ArticleFilter struct {
	ChannelID int64
	Unread    bool
	Starred   bool
	Limit     int

	CursorPubTime *string
	CursorID      *int64
}

// InsertArticles stores a crawl batch for one channel in a single
// transaction. Articles whose link already exists are skipped silently.
// The returned slice holds only the rows actually inserted, with their ids.
func (db *DB) InsertArticles(ctx context.Context, channelID int64, articles []models.Article) ([]models.Article, error) {
	inserted := []models.Article{}
	if len(articles) == 0 {
		return inserted, nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("articles writer: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO articles (channel_id, title, link, summary, content, pub_time, cover, author)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(link) DO NOTHING;`)
	if err != nil {
		return nil, fmt.Errorf("articles writer: failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	duplicates := 0
	for _, a := range articles {
		res, err := stmt.ExecContext(ctx,
			channelID, a.Title, a.Link, a.Summary, a.Content, a.PubTime, a.Cover, a.Author,
		)
		if err != nil {
			return nil, fmt.Errorf("articles writer: failed to insert %s: %w", a.Link, err)
		}
		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("articles writer: failed to get rows affected for %s: %w", a.Link, err)
		}
		if rowsAffected == 0 {
			duplicates++
			log.Debug().
				Str("link", a.Link).
				Int64("channel_id", channelID).
				Msg("Duplicate link skipped")
			continue
		}

		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("articles writer: failed to read id for %s: %w", a.Link, err)
		}
		a.ID = id
		a.ChannelID = channelID
		inserted = append(inserted, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("articles writer: failed to commit transaction: %w", err)
	}

	log.Debug().
		Int64("channel_id", channelID).
		Int("inserted", len(inserted)).
		Int("duplicates", duplicates).
		Msg("Article batch stored")

	return inserted, nil
}

// Articles lists articles joined with their channel, honoring the filter.
func (db *DB) Articles(ctx context.Context, f ArticleFilter) ([]models.ArticleWithChannel, error) {
	var (
		where []string
		args  []any
	)
	if f.ChannelID > 0 {
		where = append(where, "a.channel_id = ?")
		args = append(args, f.ChannelID)
	}
	if f.Unread {
		where = append(where, "a.read = 0")
	}
	if f.Starred {
		where = append(where, "a.star = 1")
	}
	if f.CursorPubTime != nil && f.CursorID != nil {
		where = append(where, "(a.pub_time < ? OR (a.pub_time = ? AND a.id < ?))")
		args = append(args, *f.CursorPubTime, *f.CursorPubTime, *f.CursorID)
	}

	query := `SELECT a.*, c.title AS channel_title, c.icon AS channel_icon
		FROM articles a JOIN channels c ON c.id = a.channel_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.pub_time DESC, a.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	items := []models.ArticleWithChannel{}
	if err := db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}
	return items, nil
}

// ArticleByID returns one article or models.ErrNotFound.
func (db *DB) ArticleByID(ctx context.Context, id int64) (*models.ArticleWithChannel, error) {
	var a models.ArticleWithChannel
	err := db.GetContext(ctx, &a, `
		SELECT a.*, c.title AS channel_title, c.icon AS channel_icon
		FROM articles a JOIN channels c ON c.id = a.channel_id
		WHERE a.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select article %d: %w", id, err)
	}
	return &a, nil
}

// SetArticleRead flags an article as read or unread.
func (db *DB) SetArticleRead(ctx context.Context, id int64, read bool) error {
	res, err := db.ExecContext(ctx, `UPDATE articles SET read = ? WHERE id = ?`, read, id)
	if err != nil {
		return fmt.Errorf("update read of article %d: %w", id, err)
	}
	return requireAffected(res, "article", id)
}

// SetArticleStar stars or unstars an article.
func (db *DB) SetArticleStar(ctx context.Context, id int64, star bool) error {
	res, err := db.ExecContext(ctx, `UPDATE articles SET star = ? WHERE id = ?`, star, id)
	if err != nil {
		return fmt.Errorf("update star of article %d: %w", id, err)
	}
	return requireAffected(res, "article", id)
}

// MarkChannelRead marks every article of a channel as read, or every article
// when channelID is zero. It returns the number of rows changed.
func (db *DB) MarkChannelRead(ctx context.Context, channelID int64) (int64, error) {
	query := `UPDATE articles SET read = 1 WHERE read = 0`
	var args []any
	if channelID > 0 {
		query += ` AND channel_id = ?`
		args = append(args, channelID)
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark articles read: %w", err)
	}
	return res.RowsAffected()
}

// ArticleCounts holds the unread and starred totals shown next to a channel list.
type ArticleCounts struct {
	Unread  int64 `db:"unread" json:"unread"`
	Starred int64 `db:"starred" json:"starred"`
}

// CountArticles returns unread and starred totals, optionally for one channel.
func (db *DB) CountArticles(ctx context.Context, channelID int64) (ArticleCounts, error) {
	query := `SELECT
		COALESCE(SUM(CASE WHEN read = 0 THEN 1 ELSE 0 END), 0) AS unread,
		COALESCE(SUM(CASE WHEN star = 1 THEN 1 ELSE 0 END), 0) AS starred
		FROM articles`
	var args []any
	if channelID > 0 {
		query += ` WHERE channel_id = ?`
		args = append(args, channelID)
	}

	var counts ArticleCounts
	if err := db.GetContext(ctx, &counts, query, args...); err != nil {
		return ArticleCounts{}, fmt.Errorf("count articles: %w", err)
	}
	return counts, nil
}

// PurgeChannelArticles deletes every article of a channel. Starred articles
// are kept unless includeStarred is set.
func (db *DB) PurgeChannelArticles(ctx context.Context, channelID int64, includeStarred bool) (int64, error) {
	query := `DELETE FROM articles WHERE channel_id = ?`
	if !includeStarred {
		query += ` AND star = 0`
	}

	result, err := db.ExecContext(ctx, query, channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge articles of channel %d: %w", channelID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Warn().
			Err(err).
			Int64("channel_id", channelID).
			Msg("Could not get RowsAffected after purging articles")
		return 0, nil
	}

	log.Info().
		Int64("channel_id", channelID).
		Int64("rows_affected", rowsAffected).
		Msg("Purged channel articles")
	return rowsAffected, nil
}
