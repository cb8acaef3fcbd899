package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestColumns(t *testing.T) {
	main, side := Columns(90, 20)
	assert.Equal(t, 60, main)
	assert.Equal(t, 30, side)

	main, side = Columns(30, 20)
	assert.Equal(t, 10, main)
	assert.Equal(t, 20, side)

	main, side = Columns(10, 20)
	assert.Equal(t, 0, main)
	assert.Equal(t, 10, side)
}

func TestHeaderSpansWidth(t *testing.T) {
	l := NewLayout(60, 20)
	assert.Equal(t, 18, l.ContentHeight())
	assert.Equal(t, 60, lipgloss.Width(l.RenderHeader("Projects", "idle")))
	assert.Equal(t, 60, lipgloss.Width(l.RenderStatusBar("q quit")))
}
