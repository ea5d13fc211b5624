// Package events publishes crawl outcomes to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"folio/reader/internal/metrics"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "folio.crawl.finished"

// CrawlEvent describes one finished crawl.
type CrawlEvent struct {
	ChannelID int64     `json:"channel_id,omitempty"`
	Link      string    `json:"link"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Result    string    `json:"result,omitempty"`
	Inserted  int       `json:"inserted"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds NATS configuration
type Config struct {
	URL     string
	Subject string
}

// NATSPublisher publishes crawl events as JSON messages.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the NATS server at cfg.URL.
func NewNATSPublisher(cfg Config) (*NATSPublisher, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("folio"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.URL, err)
	}

	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: nc, subject: subject}, nil
}

// Publish sends one crawl event.
func (p *NATSPublisher) Publish(_ context.Context, e CrawlEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal crawl event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to publish crawl event: %w", err)
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()

	log.Debug().
		Str("subject", p.subject).
		Int64("channel_id", e.ChannelID).
		Str("status", e.Status).
		Msg("Published crawl event")
	return nil
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
