package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders assistant answers. It falls back to plain text
// when glamour cannot be set up or fails on some input.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewMarkdownRenderer wraps at width. An empty style picks one from the
// terminal background.
func NewMarkdownRenderer(width int, style string) *MarkdownRenderer {
	if width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return &MarkdownRenderer{width: width}
	}
	return &MarkdownRenderer{renderer: r, width: width}
}

func (m *MarkdownRenderer) Width() int {
	return m.width
}

func (m *MarkdownRenderer) Render(content string) string {
	if m == nil || m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
