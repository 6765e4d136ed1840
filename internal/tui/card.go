package tui

import (
	"image/color"
	"math"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/evanschultz/vboard/internal/app"
	"github.com/evanschultz/vboard/internal/domain"
	"github.com/evanschultz/vboard/internal/layout"
)

// Canvas units per terminal cell.
const (
	unitsPerColumn = 10
	unitsPerRow    = 20
)

// Card geometry in cells.
const (
	cardWidth      = 18
	cardTitleLines = 2
)

// cardTextColor is the foreground used on every card background.
var cardTextColor = lipgloss.Color("#212529")

// gradientRows blends g from start to end over rows steps in Lab space.
func gradientRows(g domain.Gradient, rows int) []color.Color {
	if rows <= 0 {
		return nil
	}
	start, err := colorful.Hex(g.Start)
	if err != nil {
		start, _ = colorful.Hex(domain.PriorityGradient("").Start)
	}
	end, err := colorful.Hex(g.End)
	if err != nil {
		end = start
	}
	out := make([]color.Color, 0, rows)
	for i := 0; i < rows; i++ {
		c := start
		switch {
		case rows > 1 && i == rows-1:
			c = end
		case i > 0:
			c = start.BlendLab(end, float64(i)/float64(rows-1)).Clamped()
		}
		out = append(out, lipgloss.Color(c.Hex()))
	}
	return out
}

// wrapTitle splits text into at most maxLines lines of width cells. The last
// line ends with an ellipsis when the text does not fit.
func wrapTitle(text string, width, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 || width <= 0 || maxLines <= 0 {
		return []string{""}
	}
	lines := []string{}
	current := ""
	overflow := false
	for _, word := range words {
		if current == "" {
			current = word
			continue
		}
		if lipgloss.Width(current+" "+word) <= width {
			current += " " + word
			continue
		}
		if len(lines) == maxLines-1 {
			overflow = true
			break
		}
		lines = append(lines, current)
		current = word
	}
	lines = append(lines, current)

	last := len(lines) - 1
	for i := 0; i < last; i++ {
		lines[i] = truncate(lines[i], width)
	}
	switch {
	case overflow && lipgloss.Width(lines[last]) >= width:
		lines[last] = truncate(lines[last], width-1) + "…"
	case overflow:
		lines[last] += "…"
	default:
		lines[last] = truncate(lines[last], width)
	}
	return lines
}

// cardRow styles one full-width card row.
func cardRow(bg color.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(bg).
		Foreground(cardTextColor).
		Width(cardWidth).
		Padding(0, 1)
}

// renderCard draws one card as a block of cardWidth cells with a vertical
// priority gradient, the wrapped title and a status badge.
func renderCard(card app.Card, selected bool) string {
	inner := cardWidth - 2
	title := wrapTitle(card.Task.Text, inner, cardTitleLines)
	rows := len(title) + 2
	bg := gradientRows(card.Gradient, rows)

	lines := make([]string, 0, rows)
	for i, line := range title {
		style := cardRow(bg[i])
		if selected {
			style = style.Bold(true).Underline(true)
		}
		lines = append(lines, style.Render(line))
	}

	badge := lipgloss.NewStyle().
		Background(lipgloss.Color(card.BadgeColor)).
		Foreground(lipgloss.Color("#FFFFFF")).
		Render(truncate(" "+string(card.Task.Status)+" ", inner-2))
	marker := ""
	if selected {
		marker = " ◆"
	}
	lines = append(lines,
		cardRow(bg[len(title)]).Render(""),
		cardRow(bg[len(title)+1]).Render(badge+marker),
	)
	return strings.Join(lines, "\n")
}

// cardSize returns the rendered card size in cells.
func cardSize(rendered string) (int, int) {
	return lipgloss.Width(rendered), lipgloss.Height(rendered)
}

// measuredBox converts a rendered card at its raw default position into a
// canvas-unit box for the placement engine.
func measuredBox(id int64, canvas domain.Canvas, rendered string) domain.Box {
	w, h := cardSize(rendered)
	return layout.DefaultBox(id, canvas, float64(w*unitsPerColumn), float64(h*unitsPerRow))
}

// toCells maps a canvas-unit coordinate to a cell offset.
func toCells(v float64, unitsPerCell int) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return int(math.Round(v / float64(unitsPerCell)))
}

// canvasCells returns the board size in cells.
func canvasCells(canvas domain.Canvas) (int, int) {
	cols := max(1, toCells(canvas.Width, unitsPerColumn))
	rows := max(1, toCells(canvas.Height, unitsPerRow))
	return cols, rows
}

// renderBoard composes every card onto a canvas at its placement. The
// selected card is drawn on top.
func renderBoard(board app.Board, selectedID int64) string {
	cols, rows := canvasCells(board.Canvas)
	canvas := lipgloss.NewCanvas(cols, rows)
	for i, card := range board.Cards {
		selected := card.Task.ID == selectedID
		z := i + 1
		if selected {
			z = len(board.Cards) + 1
		}
		layer := lipgloss.NewLayer(renderCard(card, selected)).
			X(toCells(card.Placement.X, unitsPerColumn)).
			Y(toCells(card.Placement.Y, unitsPerRow)).
			Z(z)
		canvas.Compose(layer)
	}
	return fitLines(canvas.Render(), rows)
}
