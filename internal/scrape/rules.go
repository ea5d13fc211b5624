// Package scrape extracts articles from plain web pages using declarative
// selector rules stored on the channel.
package scrape

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRules is wrapped by every rule parsing failure.
var ErrInvalidRules = errors.New("invalid extraction rules")

// Rules describe how to turn a page into articles. Items selects one node
// per article; every other field is a selector evaluated inside that node.
//
// A field selector is one of:
//
//	""             field left empty
//	"."            text of the item node itself
//	"h2 a"         text of the first match
//	"h2 a@href"    attribute of the first match
//	"@data-id"     attribute of the item node itself
//
// Content is read as inner HTML instead of text.
type Rules struct {
	Items   string `yaml:"items" json:"items"`
	Title   string `yaml:"title" json:"title"`
	Link    string `yaml:"link" json:"link"`
	Summary string `yaml:"summary" json:"summary"`
	Content string `yaml:"content" json:"content"`
	PubTime string `yaml:"pub_time" json:"pub_time"`
	Cover   string `yaml:"cover" json:"cover"`
	Author  string `yaml:"author" json:"author"`
}

// field is a compiled field selector.
type field struct {
	selector cascadia.Selector // nil selects the item itself
	attr     string
	empty    bool
}

type compiledRules struct {
	items                                                 cascadia.Selector
	title, link, summary, content, pubTime, cover, author field
}

var attrName = regexp.MustCompile(`^[A-Za-z_:][-A-Za-z0-9_:.]*$`)

// ParseRules decodes YAML (or JSON) rules. Unknown keys, a missing items
// selector and selectors that do not compile are errors.
func ParseRules(code string) (*Rules, error) {
	var r Rules
	dec := yaml.NewDecoder(strings.NewReader(code))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidRules)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if _, err := r.compile(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rules) compile() (*compiledRules, error) {
	if strings.TrimSpace(r.Items) == "" {
		return nil, fmt.Errorf("%w: items selector is required", ErrInvalidRules)
	}
	items, err := cascadia.Compile(r.Items)
	if err != nil {
		return nil, fmt.Errorf("%w: items %q: %v", ErrInvalidRules, r.Items, err)
	}

	c := &compiledRules{items: items}
	fields := []struct {
		name string
		expr string
		dst  *field
	}{
		{"title", r.Title, &c.title},
		{"link", r.Link, &c.link},
		{"summary", r.Summary, &c.summary},
		{"content", r.Content, &c.content},
		{"pub_time", r.PubTime, &c.pubTime},
		{"cover", r.Cover, &c.cover},
		{"author", r.Author, &c.author},
	}
	for _, f := range fields {
		compiled, err := compileField(f.expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidRules, f.name, f.expr, err)
		}
		*f.dst = compiled
	}
	return c, nil
}

func compileField(expr string) (field, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return field{empty: true}, nil
	}

	selector, attr := expr, ""
	if i := strings.LastIndex(expr, "@"); i >= 0 && attrName.MatchString(expr[i+1:]) {
		selector, attr = strings.TrimSpace(expr[:i]), expr[i+1:]
	}

	if selector == "" || selector == "." {
		return field{attr: attr}, nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return field{}, err
	}
	return field{selector: sel, attr: attr}, nil
}
