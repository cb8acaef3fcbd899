// Package ui holds layout helpers shared by the views under internal/ui.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/project-tracker/internal/theme"
)

// Layout manages the terminal frame: header, content and status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height available for the main content area.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// RenderHeader renders the header bar: a title on the left and the
// reconciler state on the right.
func (l Layout) RenderHeader(title, status string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Render(status)
	return l.fill(theme.HeaderStyle, left, right)
}

// RenderStatusBar renders the bottom bar with a message or key hints.
func (l Layout) RenderStatusBar(text string) string {
	return l.fill(theme.StatusBarStyle, theme.StatusBarStyle.Render(text), "")
}

// fill joins left and right with a gap painted in style's background so
// the bar spans the full width.
func (l Layout) fill(style lipgloss.Style, left, right string) string {
	gap := max(l.Width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame stacks header, content and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	body := lipgloss.NewStyle().Height(l.ContentHeight()).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, statusBar)
}

// Columns splits width into a main column and a side column of roughly
// one third, never narrower than minSide.
func Columns(width, minSide int) (main, side int) {
	side = max(width/3, minSide)
	if side > width {
		side = width
	}
	return width - side, side
}

// Panel renders body under a bold title inside a bordered box.
func Panel(title, body string, width int) string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Render(title)
	return theme.BorderStyle.
		Width(max(width-2, 0)).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, heading, body))
}
