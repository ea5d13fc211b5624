package scrape

import (
	"errors"
	"strings"
	"testing"

	"folio/reader/internal/models"
)

const page = `<!doctype html>
<html><body>
<ul class="posts">
  <li data-id="1">
    <a class="title" href="/posts/one">  First
      post </a>
    <p class="excerpt"><b>Lead</b> paragraph</p>
    <div class="body"><p>Hello</p><script>alert(1)</script><img src="/img/1.png"></div>
    <time datetime="2024-03-01T12:00:00Z">March 1</time>
    <span class="byline">Ada</span>
  </li>
  <li data-id="2">
    <a class="title" href="https://other.example.com/two">Second</a>
    <img class="thumb" src="thumb2.jpg">
  </li>
</ul>
</body></html>`

func TestParseRules(t *testing.T) {
	r, err := ParseRules("items: ul.posts > li\ntitle: a.title\nlink: a.title@href\n")
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if r.Items != "ul.posts > li" || r.Link != "a.title@href" {
		t.Errorf("Unexpected rules %+v", r)
	}

	if _, err := ParseRules(`{"items": "li", "title": "."}`); err != nil {
		t.Errorf("Expected JSON rules to parse, got %v", err)
	}

	bad := map[string]string{
		"empty":            "",
		"no items":         "title: h1",
		"unknown key":      "items: li\nscript: alert(1)",
		"invalid selector": "items: li\ntitle: 'a[href'",
		"invalid items":    "items: 'li[['",
		"not yaml":         "items: [unclosed",
	}
	for name, code := range bad {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRules(code); !errors.Is(err, ErrInvalidRules) {
				t.Errorf("Expected ErrInvalidRules, got %v", err)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	rules, err := ParseRules(`
items: ul.posts > li
title: a.title
link: a.title@href
summary: p.excerpt
content: div.body
pub_time: time@datetime
cover: img.thumb@src
author: .byline
`)
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	doc, err := ParseDocument(page)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	articles, err := Extract(doc, rules, "https://example.com/blog/")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(articles))
	}

	first := articles[0]
	want := models.Article{
		Title:   "First post",
		Link:    "https://example.com/posts/one",
		Summary: "Lead paragraph",
		PubTime: "2024-03-01T12:00:00Z",
		Cover:   "https://example.com/img/1.png",
		Author:  "Ada",
	}
	if first.Title != want.Title || first.Link != want.Link || first.Summary != want.Summary ||
		first.PubTime != want.PubTime || first.Cover != want.Cover || first.Author != want.Author {
		t.Errorf("Expected %+v, got %+v", want, first)
	}
	if strings.Contains(first.Content, "script") || !strings.Contains(first.Content, "<p>Hello</p>") {
		t.Errorf("Expected sanitized inner HTML, got %q", first.Content)
	}

	second := articles[1]
	if second.Link != "https://other.example.com/two" {
		t.Errorf("Expected absolute link kept, got %q", second.Link)
	}
	if second.Cover != "https://example.com/blog/thumb2.jpg" {
		t.Errorf("Expected cover resolved against page, got %q", second.Cover)
	}
	if second.PubTime != "" || second.Author != "" {
		t.Errorf("Expected empty pub time and author, got %q / %q", second.PubTime, second.Author)
	}
}

func TestExtractItemItself(t *testing.T) {
	rules, err := ParseRules("items: li\ntitle: .\nlink: '@data-href'")
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	doc, err := ParseDocument(`<ul><li data-href="https://a.com/1">one</li><li data-href="https://a.com/2">two</li></ul>`)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	articles, err := Extract(doc, rules, "https://a.com")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(articles) != 2 || articles[0].Title != "one" || articles[1].Link != "https://a.com/2" {
		t.Errorf("Unexpected articles %+v", articles)
	}
}

func TestExtractNoMatches(t *testing.T) {
	rules, err := ParseRules("items: article.none")
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	doc, err := ParseDocument("")
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	articles, err := Extract(doc, rules, "https://a.com")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if articles == nil || len(articles) != 0 {
		t.Errorf("Expected empty list, got %#v", articles)
	}
}

func TestExtractWithoutDocument(t *testing.T) {
	rules := &Rules{Items: "li"}
	if _, err := Extract(nil, rules, ""); !errors.Is(err, models.ErrNoDocument) {
		t.Errorf("Expected ErrNoDocument, got %v", err)
	}
}
