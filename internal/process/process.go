// Package process crawls every stored channel over a bounded worker pool.
package process

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"folio/reader/internal/crawler"
	"folio/reader/internal/models"
)

const defaultCrawlTimeout = 2 * time.Minute

// ChannelLister loads the channels to crawl.
type ChannelLister interface {
	Channels(ctx context.Context) ([]models.Channel, error)
}

// ChannelCrawler crawls one channel.
type ChannelCrawler interface {
	CrawlChannel(ctx context.Context, channel *models.Channel) (crawler.Result, error)
}

// Outcome is the result of crawling one channel in a batch.
type Outcome struct {
	ChannelID int64  `json:"channel_id"`
	Link      string `json:"link"`
	Success   bool   `json:"success"`
	Inserted  int    `json:"inserted"`
	Error     string `json:"error,omitempty"`
}

type job struct {
	index   int
	channel models.Channel
}

// ChannelProcessor crawls all channels in parallel. A failing channel is
// recorded in its Outcome and never stops the others.
type ChannelProcessor struct {
	channels     ChannelLister
	crawler      ChannelCrawler
	WorkerCount  int
	crawlTimeout time.Duration

	succeeded atomic.Int64
	failed    atomic.Int64
	inserted  atomic.Int64
}

// NewChannelProcessor creates a processor. A non-positive workerCount means
// one worker per CPU.
func NewChannelProcessor(channels ChannelLister, c ChannelCrawler, workerCount int) (*ChannelProcessor, error) {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if channels == nil || c == nil {
		return nil, fmt.Errorf("channel lister and crawler cannot be nil")
	}

	return &ChannelProcessor{
		channels:     channels,
		crawler:      c,
		WorkerCount:  workerCount,
		crawlTimeout: defaultCrawlTimeout,
	}, nil
}

// ProcessChannels loads every channel and crawls it, returning one Outcome
// per channel in load order. Cancelling ctx stops queueing; crawls already
// started run to completion and channels never queued are reported with the
// context error.
func (p *ChannelProcessor) ProcessChannels(ctx context.Context) ([]Outcome, error) {
	channels, err := p.channels.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load channels: %w", err)
	}
	log.Info().
		Int("loaded_channels", len(channels)).
		Msg("Loaded channels to crawl.")

	outcomes := make([]Outcome, len(channels))
	for i, ch := range channels {
		outcomes[i] = Outcome{ChannelID: ch.ID, Link: ch.Link}
	}
	if len(channels) == 0 {
		return outcomes, nil
	}

	workers := min(p.WorkerCount, len(channels))
	queue := make(chan job, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go p.worker(ctx, queue, outcomes, &wg)
	}

	queued := 0
queueLoop:
	for i, ch := range channels {
		select {
		case queue <- job{index: i, channel: ch}:
			queued++
		case <-ctx.Done():
			log.Info().
				Err(ctx.Err()).
				Msg("Context cancelled during channel queuing")
			break queueLoop
		}
	}
	close(queue)
	wg.Wait()

	for i := queued; i < len(outcomes); i++ {
		outcomes[i].Error = ctx.Err().Error()
		p.failed.Add(1)
	}

	succeeded, failed, inserted := p.Stats()
	log.Info().
		Int64("succeeded", succeeded).
		Int64("failed", failed).
		Int64("inserted", inserted).
		Msg("All channel crawls complete.")
	return outcomes, nil
}

// worker crawls queued channels until the queue is closed.
func (p *ChannelProcessor) worker(ctx context.Context, queue <-chan job, outcomes []Outcome, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range queue {
		crawlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.crawlTimeout)
		res, err := p.crawler.CrawlChannel(crawlCtx, &j.channel)
		cancel()

		out := &outcomes[j.index]
		if err != nil {
			out.Error = err.Error()
			p.failed.Add(1)
			log.Error().
				Err(err).
				Int64("channel_id", j.channel.ID).
				Str("link", j.channel.Link).
				Msg("Channel crawl failed")
			continue
		}
		out.Success = true
		out.Inserted = res.Inserted
		p.succeeded.Add(1)
		p.inserted.Add(int64(res.Inserted))
	}
}

// Stats returns the number of successful crawls, failed crawls and new
// articles since the processor was created.
func (p *ChannelProcessor) Stats() (succeeded, failed, inserted int64) {
	return p.succeeded.Load(), p.failed.Load(), p.inserted.Load()
}
