package tui

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/bubbles/v2/help"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// Shared palette for chrome around the board.
var (
	accentColor = lipgloss.Color("62")
	mutedColor  = lipgloss.Color("241")
	dimColor    = lipgloss.Color("239")
)

// minListWidth bounds the task list pane.
const minListWidth = 28

// View handles view.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.AltScreen = true
		return v
	}
	if !m.ready {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)

	header := titleStyle.Render(m.title)
	header += statusStyle.Render(fmt.Sprintf("  %d tasks  [%s]", len(m.board.Cards), m.modeLabel()))

	selectedID := int64(0)
	if card, ok := m.selectedCard(); ok {
		selectedID = card.Task.ID
	}
	boardPane := m.paneStyle(m.focus == paneBoard).Render(renderBoard(m.board, selectedID))
	_, boardRows := canvasCells(m.board.Canvas)
	listWidth := max(minListWidth, m.width-lipgloss.Width(boardPane)-1)
	listPane := m.paneStyle(m.focus == paneList).
		Width(listWidth).
		Render(m.renderTaskList(listWidth-4, boardRows))
	body := lipgloss.JoinHorizontal(lipgloss.Top, boardPane, " ", listPane)

	sections := []string{header, "", body}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	var helpKeys help.KeyMap = m.keys
	if m.mode == modeAddTask || m.mode == modeEditTask {
		helpKeys = m.formKeys
	}
	helpLine := lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(helpKeys))

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	fullContent := content + "\n" + helpLine

	overlay := m.renderModeOverlay(max(24, m.width-8))
	if m.help.ShowAll {
		overlay = m.renderHelpOverlay(max(24, m.width-8))
	}
	if overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}

	view := tea.NewView(fullContent)
	view.AltScreen = true
	return view
}

// paneStyle styles one bordered pane, accented when focused.
func (m Model) paneStyle(focused bool) lipgloss.Style {
	border := dimColor
	if focused {
		border = accentColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

// renderTaskList renders tasks in insertion order with priority and status chips.
func (m Model) renderTaskList(width, height int) string {
	muted := lipgloss.NewStyle().Foreground(mutedColor)
	if len(m.board.Cards) == 0 {
		return fitLines(muted.Render("(no tasks)")+"\n"+muted.Render("press n to add one"), height)
	}
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)

	start, end := windowBounds(len(m.board.Cards), m.selected, max(1, height/2))
	lines := make([]string, 0, (end-start)*2)
	for idx := start; idx < end; idx++ {
		card := m.board.Cards[idx]
		prefix := "  "
		title := truncate(card.Task.Text, max(1, width-2))
		if idx == m.selected {
			prefix = "› "
			title = selectedStyle.Render(title)
		}
		lines = append(lines, prefix+title)
		chips := chip(string(card.Task.Priority), lipgloss.Color(card.Gradient.Start)) + " " +
			chip(string(card.Task.Status), lipgloss.Color(card.BadgeColor))
		lines = append(lines, "  "+chips)
	}
	return fitLines(strings.Join(lines, "\n"), height)
}

// chip renders a small colored label.
func chip(label string, bg color.Color) string {
	return lipgloss.NewStyle().
		Background(bg).
		Foreground(lipgloss.Color("#FFFFFF")).
		Padding(0, 1).
		Render(label)
}

// renderModeOverlay renders the form or details modal for the current mode.
func (m Model) renderModeOverlay(maxWidth int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)

	switch m.mode {
	case modeAddTask, modeEditTask:
		heading := "New task"
		if m.mode == modeEditTask {
			heading = "Edit task"
		}
		width := min(maxWidth, 56)
		lines := []string{
			titleStyle.Render(heading),
			"",
			m.formLabel(formFieldText, "title") + m.textInput.View(),
			m.formLabel(formFieldPriority, "priority") + cycleValue(string(priorityOptions[m.priorityIdx]), m.formFocus == formFieldPriority),
			m.formLabel(formFieldStatus, "status") + cycleValue(string(statusOptions[m.statusIdx]), m.formFocus == formFieldStatus),
		}
		return boxStyle.Width(width).Render(strings.Join(lines, "\n"))
	case modeTaskInfo:
		card, ok := m.selectedCard()
		if !ok {
			return ""
		}
		width := min(maxWidth, 72)
		body := m.markdown.render(taskDetailsMarkdown(card), width-4)
		return boxStyle.Width(width).Render(strings.Join([]string{
			titleStyle.Render("Task details"),
			body,
			lipgloss.NewStyle().Foreground(mutedColor).Render("esc close • y copy title"),
		}, "\n"))
	default:
		return ""
	}
}

// formLabel renders one form field label, accented when focused.
func (m Model) formLabel(field int, label string) string {
	style := lipgloss.NewStyle().Foreground(mutedColor).Width(10)
	if m.formFocus == field {
		style = style.Foreground(accentColor).Bold(true)
	}
	return style.Render(label)
}

// cycleValue renders a left/right cyclable option.
func cycleValue(value string, focused bool) string {
	if !focused {
		return "  " + value
	}
	return "‹ " + lipgloss.NewStyle().Bold(true).Render(value) + " ›"
}

// renderHelpOverlay renders the full key reference.
func (m Model) renderHelpOverlay(maxWidth int) string {
	helpBubble := m.help
	helpBubble.ShowAll = true
	helpBubble.SetWidth(maxWidth - 4)
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Keys")
	form := lipgloss.NewStyle().Foreground(mutedColor).Render("form: " + helpBubble.ShortHelpView(m.formKeys.ShortHelp()))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1).
		Render(strings.Join([]string{title, helpBubble.View(m.keys), "", form}, "\n"))
}

// windowBounds returns the visible [start,end) slice keeping selected in view.
func windowBounds(total, selected, windowSize int) (int, int) {
	if total <= 0 {
		return 0, 0
	}
	if windowSize <= 0 || total <= windowSize {
		return 0, total
	}
	selected = clamp(selected, 0, total-1)
	start := selected - windowSize/2
	start = clamp(start, 0, total-windowSize)
	return start, start + windowSize
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

