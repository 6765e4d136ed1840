package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/evanschultz/vboard/internal/app"
)

// markdownRenderer renders markdown for terminal views and recreates the renderer when wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown input into ANSI-styled terminal text with the requested wrap width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := width
	if wrapWidth < 24 {
		wrapWidth = 24
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

// taskDetailsMarkdown describes one card as a markdown document.
func taskDetailsMarkdown(card app.Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(card.Task.Text))
	fmt.Fprintf(&b, "- **Priority:** %s\n", card.Task.Priority)
	fmt.Fprintf(&b, "- **Status:** %s\n", card.Task.Status)
	fmt.Fprintf(&b, "- **ID:** `%d`\n", card.Task.ID)
	box := card.Placement.Box
	placement := "provisional"
	if card.Measured {
		placement = "measured"
	}
	fmt.Fprintf(&b, "- **Placement:** %s at (%.0f, %.0f), %.0f x %.0f\n", placement, box.X, box.Y, box.Width, box.Height)
	if !card.Task.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Created:** %s\n", card.Task.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if !card.Task.UpdatedAt.IsZero() && !card.Task.UpdatedAt.Equal(card.Task.CreatedAt) {
		fmt.Fprintf(&b, "- **Updated:** %s\n", card.Task.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

// escapeMarkdown keeps user text from being read as markdown syntax.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`, "[", `\[`, "]", `\]`,
	)
	return replacer.Replace(s)
}
