package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"folio/reader/internal/models"
)

// memStore is an in-memory ServiceStore with the same dedup rules as the
// database: unique channel links and unique article links.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	channels []models.Channel
	articles []models.Article
	logs     []models.CrawlLog
	logErr   error
}

func newMemStore() *memStore {
	return &memStore{}
}

func (s *memStore) InsertChannel(_ context.Context, c *models.Channel) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.channels {
		if existing.Link == c.Link {
			return nil, fmt.Errorf("insert channel %s: %w", c.Link, models.ErrDuplicateChannelLink)
		}
	}
	s.nextID++
	saved := *c
	saved.ID = s.nextID
	saved.CreatedAt = time.Now()
	saved.UpdatedAt = saved.CreatedAt
	s.channels = append(s.channels, saved)
	return &saved, nil
}

func (s *memStore) ChannelByLink(_ context.Context, link string) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.channels {
		if c.Link == link {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (s *memStore) ChannelByID(_ context.Context, id int64) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.channels {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *memStore) Channels(_ context.Context) ([]models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Channel(nil), s.channels...), nil
}

func (s *memStore) InsertArticles(_ context.Context, channelID int64, articles []models.Article) ([]models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(s.articles))
	for _, a := range s.articles {
		seen[a.Link] = true
	}
	inserted := []models.Article{}
	for _, a := range articles {
		if seen[a.Link] {
			continue
		}
		seen[a.Link] = true
		s.nextID++
		a.ID = s.nextID
		a.ChannelID = channelID
		s.articles = append(s.articles, a)
		inserted = append(inserted, a)
	}
	return inserted, nil
}

func (s *memStore) InsertCrawlLog(_ context.Context, l *models.CrawlLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, *l)
	return nil
}

func (s *memStore) UpdateChannelIcon(_ context.Context, id int64, icon string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.channels {
		if s.channels[i].ID == id {
			s.channels[i].Icon = icon
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *memStore) crawlLogs() []models.CrawlLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CrawlLog(nil), s.logs...)
}

func (s *memStore) articleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.articles)
}

// stubFetcher serves documents from a map and counts requests.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls int
}

func newStubFetcher(pages map[string]string) *stubFetcher {
	return &stubFetcher{pages: pages}
}

func (f *stubFetcher) FetchText(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if body, ok := f.pages[url]; ok {
		return body, nil
	}
	return "", fmt.Errorf("HTTP error fetching %s: 404 Not Found", url)
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
