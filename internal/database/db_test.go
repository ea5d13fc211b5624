package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"folio/reader/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(NewConfig(filepath.Join(t.TempDir(), "folio.db")))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestChannel(t *testing.T, db *DB, link string) *models.Channel {
	t.Helper()
	c, err := db.InsertChannel(context.Background(), &models.Channel{
		Type:  models.ChannelTypeRSS,
		Title: "Channel " + link,
		Link:  link,
	})
	if err != nil {
		t.Fatalf("InsertChannel: %v", err)
	}
	return c
}

func TestInsertChannel(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := insertTestChannel(t, db, "https://example.com/feed.xml")
	if c.ID == 0 {
		t.Fatal("Expected inserted channel to have an id")
	}
	if c.Type != models.ChannelTypeRSS {
		t.Errorf("Expected type rss, got %q", c.Type)
	}
	if c.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}

	_, err := db.InsertChannel(ctx, &models.Channel{Type: "rss", Title: "again", Link: "https://example.com/feed.xml"})
	if !errors.Is(err, models.ErrDuplicateChannelLink) {
		t.Fatalf("Expected ErrDuplicateChannelLink, got %v", err)
	}

	found, err := db.ChannelByLink(ctx, "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("ChannelByLink: %v", err)
	}
	if found == nil || found.ID != c.ID {
		t.Errorf("Expected channel %d, got %+v", c.ID, found)
	}

	missing, err := db.ChannelByLink(ctx, "https://nowhere.example.com")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for missing link, got %+v, %v", missing, err)
	}
}

func TestInsertChannelRejectsUnknownType(t *testing.T) {
	db := newTestDB(t)
	_, err := db.InsertChannel(context.Background(), &models.Channel{Type: "json", Title: "t", Link: "https://example.com"})
	if err == nil {
		t.Fatal("Expected check constraint failure")
	}
	if errors.Is(err, models.ErrDuplicateChannelLink) {
		t.Errorf("Expected a non-duplicate error, got %v", err)
	}
}

func TestUpdateChannel(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := insertTestChannel(t, db, "https://example.com/feed.xml")

	if err := db.UpdateChannelIcon(ctx, c.ID, "https://example.com/favicon.ico"); err != nil {
		t.Fatalf("UpdateChannelIcon: %v", err)
	}

	c.Title = "Renamed"
	c.Category = "tech"
	c.Icon = "https://example.com/favicon.ico"
	if err := db.UpdateChannel(ctx, c); err != nil {
		t.Fatalf("UpdateChannel: %v", err)
	}

	got, err := db.ChannelByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("ChannelByID: %v", err)
	}
	if got.Title != "Renamed" || got.Category != "tech" || got.Icon != "https://example.com/favicon.ico" {
		t.Errorf("Unexpected channel after update: %+v", got)
	}

	if err := db.UpdateChannelIcon(ctx, 9999, "x"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing channel, got %v", err)
	}
}

func TestInsertArticlesSkipsDuplicateLinks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := insertTestChannel(t, db, "https://example.com/feed.xml")

	batch := []models.Article{
		{Title: "one", Link: "https://example.com/1", PubTime: "2024-01-01T00:00:00Z"},
		{Title: "two", Link: "https://example.com/2", PubTime: "2024-01-02T00:00:00Z"},
	}

	inserted, err := db.InsertArticles(ctx, c.ID, batch)
	if err != nil {
		t.Fatalf("InsertArticles: %v", err)
	}
	if len(inserted) != 2 {
		t.Fatalf("Expected 2 inserted, got %d", len(inserted))
	}
	for _, a := range inserted {
		if a.ID == 0 || a.ChannelID != c.ID {
			t.Errorf("Expected id and channel id on inserted row, got %+v", a)
		}
	}

	batch = append(batch, models.Article{Title: "three", Link: "https://example.com/3"})
	inserted, err = db.InsertArticles(ctx, c.ID, batch)
	if err != nil {
		t.Fatalf("InsertArticles (second): %v", err)
	}
	if len(inserted) != 1 || inserted[0].Link != "https://example.com/3" {
		t.Errorf("Expected only the new article, got %+v", inserted)
	}

	all, err := db.Articles(ctx, ArticleFilter{})
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 stored articles, got %d", len(all))
	}
}

func TestInsertArticlesEmptyBatch(t *testing.T) {
	db := newTestDB(t)
	inserted, err := db.InsertArticles(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("InsertArticles: %v", err)
	}
	if inserted == nil || len(inserted) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", inserted)
	}
}

func TestArticlesOrderingAndCursor(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := insertTestChannel(t, db, "https://example.com/feed.xml")

	_, err := db.InsertArticles(ctx, c.ID, []models.Article{
		{Title: "old", Link: "https://example.com/old", PubTime: "2024-01-01T00:00:00Z"},
		{Title: "new", Link: "https://example.com/new", PubTime: "2024-03-01T00:00:00Z"},
		{Title: "mid", Link: "https://example.com/mid", PubTime: "2024-02-01T00:00:00Z"},
	})
	if err != nil {
		t.Fatalf("InsertArticles: %v", err)
	}

	page, err := db.Articles(ctx, ArticleFilter{Limit: 2})
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(page) != 2 || page[0].Title != "new" || page[1].Title != "mid" {
		t.Fatalf("Unexpected first page: %+v", page)
	}
	if page[0].ChannelTitle != c.Title {
		t.Errorf("Expected joined channel title %q, got %q", c.Title, page[0].ChannelTitle)
	}

	last := page[1]
	rest, err := db.Articles(ctx, ArticleFilter{Limit: 2, CursorPubTime: &last.PubTime, CursorID: &last.ID})
	if err != nil {
		t.Fatalf("Articles (cursor): %v", err)
	}
	if len(rest) != 1 || rest[0].Title != "old" {
		t.Errorf("Unexpected second page: %+v", rest)
	}
}

func TestReadStarAndCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := insertTestChannel(t, db, "https://a.example.com/feed")
	b := insertTestChannel(t, db, "https://b.example.com/feed")

	ia, err := db.InsertArticles(ctx, a.ID, []models.Article{
		{Title: "a1", Link: "https://a.example.com/1"},
		{Title: "a2", Link: "https://a.example.com/2"},
	})
	if err != nil {
		t.Fatalf("InsertArticles: %v", err)
	}
	if _, err := db.InsertArticles(ctx, b.ID, []models.Article{{Title: "b1", Link: "https://b.example.com/1"}}); err != nil {
		t.Fatalf("InsertArticles: %v", err)
	}

	if err := db.SetArticleStar(ctx, ia[0].ID, true); err != nil {
		t.Fatalf("SetArticleStar: %v", err)
	}
	if err := db.SetArticleRead(ctx, ia[1].ID, true); err != nil {
		t.Fatalf("SetArticleRead: %v", err)
	}

	counts, err := db.CountArticles(ctx, 0)
	if err != nil {
		t.Fatalf("CountArticles: %v", err)
	}
	if counts.Unread != 2 || counts.Starred != 1 {
		t.Errorf("Expected 2 unread and 1 starred, got %+v", counts)
	}

	unread, err := db.Articles(ctx, ArticleFilter{ChannelID: a.ID, Unread: true})
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != ia[0].ID {
		t.Errorf("Expected only a1 unread in channel a, got %+v", unread)
	}

	n, err := db.MarkChannelRead(ctx, a.ID)
	if err != nil {
		t.Fatalf("MarkChannelRead: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 row marked read, got %d", n)
	}

	got, err := db.ArticleByID(ctx, ia[0].ID)
	if err != nil {
		t.Fatalf("ArticleByID: %v", err)
	}
	if !got.Read || !got.Star {
		t.Errorf("Expected article read and starred, got %+v", got.Article)
	}

	if err := db.SetArticleRead(ctx, 12345, true); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPurgeChannelArticlesKeepsStarred(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := insertTestChannel(t, db, "https://example.com/feed")

	ins, err := db.InsertArticles(ctx, c.ID, []models.Article{
		{Title: "1", Link: "https://example.com/1"},
		{Title: "2", Link: "https://example.com/2"},
	})
	if err != nil {
		t.Fatalf("InsertArticles: %v", err)
	}
	if err := db.SetArticleStar(ctx, ins[0].ID, true); err != nil {
		t.Fatalf("SetArticleStar: %v", err)
	}

	n, err := db.PurgeChannelArticles(ctx, c.ID, false)
	if err != nil {
		t.Fatalf("PurgeChannelArticles: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 purged, got %d", n)
	}

	n, err = db.PurgeChannelArticles(ctx, c.ID, true)
	if err != nil {
		t.Fatalf("PurgeChannelArticles: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected starred article purged, got %d", n)
	}
}

func TestDeleteChannelCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := insertTestChannel(t, db, "https://example.com/feed")

	if _, err := db.InsertArticles(ctx, c.ID, []models.Article{{Title: "1", Link: "https://example.com/1"}}); err != nil {
		t.Fatalf("InsertArticles: %v", err)
	}
	if err := db.InsertCrawlLog(ctx, &models.CrawlLog{ChannelID: c.ID, Status: models.CrawlStatusSuccess, Result: "inserted 1 articles"}); err != nil {
		t.Fatalf("InsertCrawlLog: %v", err)
	}

	if err := db.DeleteChannel(ctx, c.ID); err != nil {
		t.Fatalf("DeleteChannel: %v", err)
	}

	articles, err := db.Articles(ctx, ArticleFilter{})
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("Expected articles to be deleted with channel, got %d", len(articles))
	}
	logs, err := db.CrawlLogs(ctx, 0, 10)
	if err != nil {
		t.Fatalf("CrawlLogs: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("Expected crawl logs to be deleted with channel, got %d", len(logs))
	}

	if err := db.DeleteChannel(ctx, c.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCrawlLogs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := insertTestChannel(t, db, "https://example.com/feed")

	old := &models.CrawlLog{ChannelID: c.ID, Status: models.CrawlStatusError, Result: "timeout", Timestamp: time.Now().AddDate(0, 0, -40)}
	recent := &models.CrawlLog{ChannelID: c.ID, Status: models.CrawlStatusSuccess, Result: "inserted 2 articles"}
	for _, l := range []*models.CrawlLog{old, recent} {
		if err := db.InsertCrawlLog(ctx, l); err != nil {
			t.Fatalf("InsertCrawlLog: %v", err)
		}
	}

	logs, err := db.CrawlLogs(ctx, c.ID, 10)
	if err != nil {
		t.Fatalf("CrawlLogs: %v", err)
	}
	if len(logs) != 2 || logs[0].Result != "inserted 2 articles" {
		t.Fatalf("Expected newest log first, got %+v", logs)
	}

	purged, err := db.PurgeCrawlLogs(ctx, 30)
	if err != nil {
		t.Fatalf("PurgeCrawlLogs: %v", err)
	}
	if purged != 1 {
		t.Errorf("Expected 1 purged log, got %d", purged)
	}

	if _, err := db.PurgeCrawlLogs(ctx, 0); err == nil {
		t.Error("Expected error for non-positive retention")
	}
}

func TestInsertCrawlLogUnknownChannel(t *testing.T) {
	db := newTestDB(t)
	err := db.InsertCrawlLog(context.Background(), &models.CrawlLog{ChannelID: 42, Status: models.CrawlStatusSuccess, Result: "x"})
	if err == nil {
		t.Error("Expected foreign key failure for unknown channel")
	}
}
