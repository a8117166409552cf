package result

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Raw HTML in remedy text is omitted since html.WithUnsafe is not set.
var md = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// RenderMarkdown renders remedy text supplied by the inference service.
func RenderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}
