package models

import "time"

// Crawl log statuses
const (
	CrawlStatusSuccess = "success"
	CrawlStatusError   = "error"
)

// CrawlLog represents a row in the crawl_logs table. One row is written per
// crawl that could be attributed to a channel.
type CrawlLog struct {
	ID        int64     `db:"id" json:"id"`
	ChannelID int64     `db:"channel_id" json:"channel_id"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Status    string    `db:"status" json:"status"`
	Result    string    `db:"result" json:"result"`
}
