package feed

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"
)

// entry is the format-independent view of one RSS item or Atom entry,
// holding every raw field the normalization rules look at.
type entry struct {
	title string
	link  string

	encoded          string // content:encoded
	content          string // Atom content, or a bare <content> in RSS
	description      string
	summary          string
	mediaDescription string
	thumbnail        string

	authors []string // candidates in priority order

	published       string
	publishedParsed *time.Time
}

func fromRSSItem(item *rss.Item) entry {
	e := entry{
		title:            item.Title,
		link:             strings.TrimSpace(item.Link),
		encoded:          firstNonEmpty(item.Content, extValue(item.Extensions, "content", "encoded")),
		content:          item.Custom["content"],
		description:      item.Description,
		summary:          item.Custom["summary"],
		mediaDescription: mediaDescription(item.Extensions),
		thumbnail:        mediaThumbnail(item.Extensions),
		published:        item.PubDate,
		publishedParsed:  item.PubDateParsed,
	}
	if e.link == "" && item.GUID != nil {
		e.link = strings.TrimSpace(item.GUID.Value)
	}

	e.authors = []string{
		extValue(item.Extensions, "dc", "creator"),
		item.Custom["creator"],
		item.Author,
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		e.authors = append([]string{item.DublinCoreExt.Creator[0]}, e.authors...)
	}
	return e
}

func fromAtomEntry(a *atom.Entry) entry {
	e := entry{
		title:            a.Title,
		link:             atomLink(a.Links),
		summary:          a.Summary,
		mediaDescription: mediaDescription(a.Extensions),
		thumbnail:        mediaThumbnail(a.Extensions),
		published:        a.Published,
		publishedParsed:  a.PublishedParsed,
	}
	if a.Content != nil {
		e.content = a.Content.Value
	}

	for _, p := range a.Authors {
		if p != nil {
			e.authors = append(e.authors, p.Name)
			break
		}
	}
	e.authors = append(e.authors, extValue(a.Extensions, "dc", "creator"))
	return e
}

// atomLink picks the alternate link of an entry, falling back to the first
// link with an href.
func atomLink(links []*atom.Link) string {
	first := ""
	for _, l := range links {
		if l == nil || strings.TrimSpace(l.Href) == "" {
			continue
		}
		href := strings.TrimSpace(l.Href)
		if l.Rel == "" || l.Rel == "alternate" {
			return href
		}
		if first == "" {
			first = href
		}
	}
	return first
}

func extValue(exts ext.Extensions, ns, name string) string {
	for _, e := range exts[ns][name] {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}

// mediaThumbnail reads media:thumbnail@url, directly on the item or nested
// in a media:group.
func mediaThumbnail(exts ext.Extensions) string {
	media := exts["media"]
	for _, t := range media["thumbnail"] {
		if u := strings.TrimSpace(t.Attrs["url"]); u != "" {
			return u
		}
	}
	for _, g := range media["group"] {
		for _, t := range g.Children["thumbnail"] {
			if u := strings.TrimSpace(t.Attrs["url"]); u != "" {
				return u
			}
		}
	}
	return ""
}

// mediaDescription reads media:description, directly on the item or nested
// in a media:group.
func mediaDescription(exts ext.Extensions) string {
	media := exts["media"]
	for _, d := range media["description"] {
		if v := strings.TrimSpace(d.Value); v != "" {
			return v
		}
	}
	for _, g := range media["group"] {
		for _, d := range g.Children["description"] {
			if v := strings.TrimSpace(d.Value); v != "" {
				return v
			}
		}
	}
	return ""
}
