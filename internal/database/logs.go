package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"folio/reader/internal/models"
)

// InsertCrawlLog appends one crawl outcome row.
func (db *DB) InsertCrawlLog(ctx context.Context, l *models.CrawlLog) error {
	ts := l.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO crawl_logs (channel_id, timestamp, status, result)
		VALUES (?, ?, ?, ?)`,
		l.ChannelID, ts.UTC().Format(sqliteTimeFormat), l.Status, l.Result)
	if err != nil {
		return fmt.Errorf("insert crawl log for channel %d: %w", l.ChannelID, err)
	}
	return nil
}

// CrawlLogs returns the most recent crawl logs, newest first, optionally for
// a single channel.
func (db *DB) CrawlLogs(ctx context.Context, channelID int64, limit int) ([]models.CrawlLog, error) {
	query := `SELECT * FROM crawl_logs`
	var args []any
	if channelID > 0 {
		query += ` WHERE channel_id = ?`
		args = append(args, channelID)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	logs := []models.CrawlLog{}
	if err := db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("select crawl logs: %w", err)
	}
	return logs, nil
}

// PurgeCrawlLogs removes crawl logs older than the specified retention days.
func (db *DB) PurgeCrawlLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retentionDays must be positive")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	cutoffStr := cutoff.Format(sqliteTimeFormat)

	log.Info().
		Str("cutoff_date", cutoffStr).
		Int("retention_days", retentionDays).
		Msg("Purging old crawl logs")

	result, err := db.ExecContext(ctx, "DELETE FROM crawl_logs WHERE timestamp < ?", cutoffStr)
	if err != nil {
		return 0, fmt.Errorf("failed to execute purge command on crawl_logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Warn().
			Err(err).
			Msg("Could not get RowsAffected after purging crawl_logs")
		return 0, nil
	}

	return rowsAffected, nil
}
