// Package sanitize strips executable markup from untrusted HTML fragments
// before they are stored or rendered.
package sanitize

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// imageSource accepts http(s) and data:image URLs plus relative references,
// which carry no scheme before the first '/', '?' or '#'.
var imageSource = regexp.MustCompile(`^(?i:https?:|data:image/|[^:/?#]*(?:[/?#].*)?$)`)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// Policy returns the shared sanitization policy. It is safe for concurrent use.
func Policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()

		// Links without an allowed href stay as plain anchors.
		p.AllowNoAttrs().OnElements("a")
		p.RequireNoFollowOnLinks(false)

		p.AllowAttrs("alt", "title").OnElements("img")
		p.AllowAttrs("src").Matching(imageSource).OnElements("img")
		p.AllowDataURIImages()

		policy = p
	})
	return policy
}

// HTML returns s with scripts, event handler attributes and unsafe URLs removed.
// Sanitizing the output again returns it unchanged.
func HTML(s string) string {
	if s == "" {
		return ""
	}
	return Policy().Sanitize(s)
}
