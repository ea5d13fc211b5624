package sanitize

import (
	"strings"
	"testing"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"script removed with content", `<script>alert(1)</script>`, ""},
		// bluemonday writes void elements without the self-closing slash.
		{"event handler dropped", `<img src="x" onerror="alert(1)">`, `<img src="x">`},
		{"javascript href dropped, anchor kept", `<a href="javascript:alert(1)">click</a>`, `<a>click</a>`},
		{"http link kept", `<a href="https://example.com/post">post</a>`, `<a href="https://example.com/post">post</a>`},
		{"image attributes kept", `<img src="https://example.com/a.png" alt="A" title="T">`, `<img src="https://example.com/a.png" alt="A" title="T">`},
		{"style removed", `<p>hi<style>p{color:red}</style></p>`, `<p>hi</p>`},
		{"iframe removed", `<p>x</p><iframe src="https://evil.example.com"></iframe>`, `<p>x</p>`},
		{"plain text escaped", `a < b & c`, `a &lt; b &amp; c`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTML(tt.input); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHTMLDataImages(t *testing.T) {
	input := `<img src="data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==">`
	got := HTML(input)
	if !strings.Contains(got, `src="data:image/png;base64,`) {
		t.Errorf("Expected data image to survive, got %q", got)
	}

	for _, src := range []string{"ftp://example.com/a.png", "mailto:a@b.c", "javascript:alert(1)", "data:text/html,hi"} {
		got = HTML(`<img src="` + src + `">`)
		if strings.Contains(got, src) {
			t.Errorf("Expected img source %q to be dropped, got %q", src, got)
		}
	}

	for _, src := range []string{"https://example.com/a.png", "/static/a.png", "images/a.png", "//cdn.example.com/a.png"} {
		got = HTML(`<img src="` + src + `">`)
		if !strings.Contains(got, `src="`+src+`"`) {
			t.Errorf("Expected img source %q to survive, got %q", src, got)
		}
	}

	got = HTML(`<a href="mailto:a@b.c">mail</a>`)
	if !strings.Contains(got, "mailto:") {
		t.Errorf("Expected mailto links to keep their href, got %q", got)
	}
}

func TestHTMLIsIdempotent(t *testing.T) {
	inputs := []string{
		`<p onclick="x()">Hello <b>world</b> &amp; "friends"</p>`,
		`<img src="x" onerror="alert(1)"><a href="javascript:void(0)">go</a>`,
		`<div><img src="https://example.com/a.jpg" alt='quote "me"' /></div><script>bad()</script>`,
		`<a href="https://example.com">link</a> 'single' <br/>`,
	}

	for _, in := range inputs {
		once := HTML(in)
		twice := HTML(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q:\n once:  %q\n twice: %q", in, once, twice)
		}
	}
}
