package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"folio/reader/internal/models"
)

// InsertChannel inserts a new channel and returns the stored row.
// A conflict on channels.link is reported as models.ErrDuplicateChannelLink.
func (db *DB) InsertChannel(ctx context.Context, c *models.Channel) (*models.Channel, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO channels (type, title, link, description, category, icon, items_code)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Type, c.Title, c.Link, c.Description, c.Category, c.Icon, c.ItemsCode)
	if err != nil {
		if isUniqueViolation(err, "channels.link") {
			return nil, fmt.Errorf("insert channel %s: %w", c.Link, models.ErrDuplicateChannelLink)
		}
		return nil, fmt.Errorf("insert channel %s: %w", c.Link, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert channel %s: failed to read id: %w", c.Link, err)
	}
	return db.ChannelByID(ctx, id)
}

// ChannelByLink returns the channel with the given link, or nil when none exists.
func (db *DB) ChannelByLink(ctx context.Context, link string) (*models.Channel, error) {
	var c models.Channel
	err := db.GetContext(ctx, &c, `SELECT * FROM channels WHERE link = ?`, link)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select channel by link %s: %w", link, err)
	}
	return &c, nil
}

// ChannelByID returns the channel with the given id or models.ErrNotFound.
func (db *DB) ChannelByID(ctx context.Context, id int64) (*models.Channel, error) {
	var c models.Channel
	err := db.GetContext(ctx, &c, `SELECT * FROM channels WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("channel %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select channel %d: %w", id, err)
	}
	return &c, nil
}

// Channels returns every channel ordered by category then title.
func (db *DB) Channels(ctx context.Context) ([]models.Channel, error) {
	channels := []models.Channel{}
	if err := db.SelectContext(ctx, &channels, `SELECT * FROM channels ORDER BY category, title, id`); err != nil {
		return nil, fmt.Errorf("select channels: %w", err)
	}
	return channels, nil
}

// UpdateChannel rewrites the editable fields of a channel. Type and link are
// immutable once created.
func (db *DB) UpdateChannel(ctx context.Context, c *models.Channel) error {
	res, err := db.ExecContext(ctx, `
		UPDATE channels
		SET title = ?, description = ?, category = ?, icon = ?, items_code = ?, updated_at = ?
		WHERE id = ?`,
		c.Title, c.Description, c.Category, c.Icon, c.ItemsCode, time.Now().UTC().Format(sqliteTimeFormat), c.ID)
	if err != nil {
		return fmt.Errorf("update channel %d: %w", c.ID, err)
	}
	return requireAffected(res, "channel", c.ID)
}

// UpdateChannelIcon sets the resolved favicon URL of a channel.
func (db *DB) UpdateChannelIcon(ctx context.Context, id int64, icon string) error {
	res, err := db.ExecContext(ctx, `UPDATE channels SET icon = ?, updated_at = ? WHERE id = ?`,
		icon, time.Now().UTC().Format(sqliteTimeFormat), id)
	if err != nil {
		return fmt.Errorf("update icon of channel %d: %w", id, err)
	}
	return requireAffected(res, "channel", id)
}

// DeleteChannel removes a channel. Its articles and crawl logs go with it
// through ON DELETE CASCADE.
func (db *DB) DeleteChannel(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete channel %d: %w", id, err)
	}
	return requireAffected(res, "channel", id)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure
// on the given table.column.
func isUniqueViolation(err error, column string) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
		strings.Contains(sqliteErr.Error(), column)
}

func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: failed to read rows affected: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, models.ErrNotFound)
	}
	return nil
}
