package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorConstants(t *testing.T) {
	colors := []lipgloss.Color{
		ColorAccent,
		ColorAccentAlt,
		ColorAccentTeal,
		ColorAccentGreen,
		ColorBorder,
		ColorSuccess,
		ColorError,
		ColorWarning,
		ColorInfo,
		ColorPrimary,
		ColorSecondary,
		ColorMuted,
	}

	for _, color := range colors {
		colorStr := string(color)
		require.NotEmpty(t, colorStr)
		assert.True(t, colorStr[0] == '#', "color should start with #: %s", colorStr)
		assert.Len(t, colorStr, 7, "color should be #RRGGBB: %s", colorStr)
	}
}

func TestSemanticColorsAreUnique(t *testing.T) {
	seen := make(map[lipgloss.Color]bool)
	for _, c := range []lipgloss.Color{ColorSuccess, ColorError, ColorWarning, ColorInfo} {
		assert.False(t, seen[c], "duplicate semantic color %s", c)
		seen[c] = true
	}
}

func TestSymbolsAreUnique(t *testing.T) {
	symbols := []string{
		SymbolSuccess, SymbolFail, SymbolWarning, SymbolPending,
		SymbolProgress, SymbolComplete, SymbolSkipped, SymbolArrow,
	}

	seen := make(map[string]bool)
	for _, s := range symbols {
		assert.False(t, seen[s], "duplicate symbol %s", s)
		seen[s] = true
	}
}

func TestGradientColors(t *testing.T) {
	assert.Len(t, GradientColors, 4)
}

func TestStylesAreFunctional(t *testing.T) {
	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Success", SuccessStyle()},
		{"Error", ErrorStyle()},
		{"Warning", WarningStyle()},
		{"Info", InfoStyle()},
		{"Muted", MutedStyle()},
		{"Title", TitleStyle()},
	}

	for _, tt := range styles {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.style.Render("test text"), "test text")
		})
	}
}

func TestDisableColors(t *testing.T) {
	DisableColors()

	assert.Equal(t, "plain", SuccessStyle().Render("plain"))
}

func TestApplyColorMode(t *testing.T) {
	assert.NotPanics(t, func() {
		ApplyColorMode(ColorModeAlways)
		ApplyColorMode(ColorModeAuto)
		ApplyColorMode(ColorModeNever)
	})
	assert.Equal(t, "plain", ErrorStyle().Render("plain"))
}

func TestPrintWarning(t *testing.T) {
	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w

	PrintWarning("test warning message")

	w.Close()
	os.Stderr = oldStderr

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	assert.Contains(t, buf.String(), "test warning message")
	assert.Contains(t, buf.String(), SymbolWarning)
}

func TestRenderHeader(t *testing.T) {
	out := RenderHeader(HeaderInfo{Title: "gitacct", Version: "v1.0.0", Tagline: "Git identities"})

	assert.Contains(t, out, "gitacct")
	assert.Contains(t, out, "v1.0.0")
	assert.Contains(t, out, "Git identities")
	assert.Contains(t, out, "━")
}
