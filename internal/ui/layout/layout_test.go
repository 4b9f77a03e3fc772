package layout

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"
)

func TestFrameRender(t *testing.T) {
	f := Frame{
		Title:  "polity / preamble",
		Status: "running",
		Hints:  []KeyHint{{Key: "q", Description: "Cancel batch"}},
		Width:  80,
		Height: 24,
	}
	out := f.Render("body line")

	assert.Contains(t, out, appName)
	assert.Contains(t, out, "polity / preamble")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "Cancel batch")
	assert.Contains(t, out, "body line")
	assert.Equal(t, 24, lipgloss.Height(out))
}

func TestFrameTooSmall(t *testing.T) {
	out := Frame{Title: "x", Width: 40, Height: 10}.Render("body line")
	assert.Contains(t, out, "40 x 10")
	assert.False(t, strings.Contains(out, "body line"))
}

func TestFrameReady(t *testing.T) {
	assert.False(t, Frame{}.Ready())
	assert.False(t, Frame{Width: 80}.Ready())
	assert.True(t, Frame{Width: 80, Height: 24}.Ready())
}
