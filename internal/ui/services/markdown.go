package services

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer turns markdown into terminal text wrapped at width.
type MarkdownRenderer interface {
	Render(content string, width int) (string, error)
}

// GlamourRenderer renders with glamour, rebuilding its term renderer only
// when the width changes.
type GlamourRenderer struct {
	style string

	mu    sync.Mutex
	width int
	tr    *glamour.TermRenderer
}

// NewGlamourRenderer creates a renderer for a glamour standard style such
// as "dark" or "light". An empty style means "dark".
func NewGlamourRenderer(style string) *GlamourRenderer {
	if style == "" {
		style = "dark"
	}
	return &GlamourRenderer{style: style}
}

// Render implements MarkdownRenderer.
func (g *GlamourRenderer) Render(content string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tr == nil || g.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(g.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		g.tr = tr
		g.width = width
	}
	return g.tr.Render(content)
}

// RenderMarkdown renders content and trims the blank lines glamour adds
// around the document.
func RenderMarkdown(content string, width int, renderer MarkdownRenderer) (string, error) {
	if renderer == nil {
		return content, nil
	}
	out, err := renderer.Render(content, width)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}
