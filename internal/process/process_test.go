package process

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"folio/reader/internal/crawler"
	"folio/reader/internal/models"
)

type staticLister struct {
	channels []models.Channel
	err      error
}

func (l staticLister) Channels(context.Context) ([]models.Channel, error) {
	return l.channels, l.err
}

// fakeCrawler fails links listed in failing and inserts one article
// for everything else.
type fakeCrawler struct {
	mu      sync.Mutex
	failing map[string]bool
	crawled []string
}

func (f *fakeCrawler) CrawlChannel(_ context.Context, c *models.Channel) (crawler.Result, error) {
	f.mu.Lock()
	f.crawled = append(f.crawled, c.Link)
	f.mu.Unlock()

	if f.failing[c.Link] {
		return crawler.Result{}, fmt.Errorf("download: HTTP error fetching %s: 500", c.Link)
	}
	return crawler.Result{Success: true, ID: c.ID, Inserted: 1}, nil
}

func testChannels(n int) []models.Channel {
	channels := make([]models.Channel, n)
	for i := range channels {
		channels[i] = models.Channel{
			ID:   int64(i + 1),
			Type: models.ChannelTypeRSS,
			Link: fmt.Sprintf("https://feed%d.example.com/rss", i+1),
		}
	}
	return channels
}

func TestProcessChannelsContinuesPastFailures(t *testing.T) {
	channels := testChannels(5)
	fc := &fakeCrawler{failing: map[string]bool{channels[1].Link: true}}
	p, err := NewChannelProcessor(staticLister{channels: channels}, fc, 3)
	if err != nil {
		t.Fatalf("NewChannelProcessor: %v", err)
	}

	outcomes, err := p.ProcessChannels(context.Background())
	if err != nil {
		t.Fatalf("ProcessChannels: %v", err)
	}
	if len(outcomes) != 5 {
		t.Fatalf("Expected 5 outcomes, got %d", len(outcomes))
	}
	for i, o := range outcomes {
		if o.ChannelID != channels[i].ID {
			t.Errorf("Expected outcome %d for channel %d, got %d", i, channels[i].ID, o.ChannelID)
		}
		if i == 1 {
			if o.Success || o.Error == "" {
				t.Errorf("Expected channel 2 to fail, got %+v", o)
			}
			continue
		}
		if !o.Success || o.Inserted != 1 {
			t.Errorf("Expected channel %d to succeed, got %+v", o.ChannelID, o)
		}
	}

	succeeded, failed, inserted := p.Stats()
	if succeeded != 4 || failed != 1 || inserted != 4 {
		t.Errorf("Expected stats 4/1/4, got %d/%d/%d", succeeded, failed, inserted)
	}
	if len(fc.crawled) != 5 {
		t.Errorf("Expected every channel to be crawled, got %d", len(fc.crawled))
	}
}

func TestProcessChannelsLoadError(t *testing.T) {
	p, _ := NewChannelProcessor(staticLister{err: errors.New("database is locked")}, &fakeCrawler{}, 2)

	if _, err := p.ProcessChannels(context.Background()); err == nil {
		t.Error("Expected the load error to be returned")
	}
}

func TestProcessChannelsEmpty(t *testing.T) {
	p, _ := NewChannelProcessor(staticLister{}, &fakeCrawler{}, 0)
	if p.WorkerCount <= 0 {
		t.Errorf("Expected a default worker count, got %d", p.WorkerCount)
	}

	outcomes, err := p.ProcessChannels(context.Background())
	if err != nil {
		t.Fatalf("ProcessChannels: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("Expected no outcomes, got %d", len(outcomes))
	}
}

func TestProcessChannelsCancelledBeforeQueueing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fc := &fakeCrawler{}
	// One worker and a queue of two: at most a few channels can be queued
	// before the cancelled context is noticed.
	p, _ := NewChannelProcessor(staticLister{channels: testChannels(50)}, fc, 1)

	outcomes, err := p.ProcessChannels(ctx)
	if err != nil {
		t.Fatalf("ProcessChannels: %v", err)
	}
	if len(outcomes) != 50 {
		t.Fatalf("Expected 50 outcomes, got %d", len(outcomes))
	}

	var cancelled int
	for _, o := range outcomes {
		if o.Error == context.Canceled.Error() {
			cancelled++
		}
	}
	if cancelled == 0 {
		t.Error("Expected unqueued channels to be reported as cancelled")
	}
	if cancelled+len(fc.crawled) != 50 {
		t.Errorf("Expected every channel to be crawled or cancelled, got %d + %d", cancelled, len(fc.crawled))
	}
}

func TestNewChannelProcessorRequiresCollaborators(t *testing.T) {
	if _, err := NewChannelProcessor(nil, &fakeCrawler{}, 1); err == nil {
		t.Error("Expected an error without a channel lister")
	}
}
