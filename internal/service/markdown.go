package service

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer turns markdown guide content into sanitized HTML.
type Renderer struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewRenderer creates a Renderer. UGCPolicy keeps links, lists and basic formatting
// while stripping scripts and event handlers.
func NewRenderer() *Renderer {
	return &Renderer{
		md:        goldmark.New(goldmark.WithExtensions(extension.GFM)),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// Render converts src to HTML. Content that fails to convert is returned as plain text.
func (r *Renderer) Render(src string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return bluemonday.StrictPolicy().Sanitize(src)
	}
	return r.sanitizer.Sanitize(buf.String())
}
