package plan

import (
	"bytes"
	"html/template"
	"regexp"

	"github.com/yuin/goldmark"
)

// separatorLine matches the long underscore rules the model is told to emit
// between plan days. They become proper horizontal rules before rendering.
var separatorLine = regexp.MustCompile(`(?m)^\s*_{10,}\s*$`)

// RenderMarkdown converts generated plan prose (markdown-ish: **bold**,
// bullet lines, underscore separators) into HTML for the export page.
func RenderMarkdown(text string) (template.HTML, error) {
	src := separatorLine.ReplaceAllString(text, "\n---\n")

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
