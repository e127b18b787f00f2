package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Accent palette.
const (
	ColorAccent      lipgloss.Color = "#7AA2F7" // Periwinkle, used for titles
	ColorAccentAlt   lipgloss.Color = "#BB9AF7" // Lilac
	ColorAccentTeal  lipgloss.Color = "#2AC3DE"
	ColorAccentGreen lipgloss.Color = "#9ECE6A"
	ColorBorder      lipgloss.Color = "#414868"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "#9ECE6A"
	ColorError   lipgloss.Color = "#F7768E"
	ColorWarning lipgloss.Color = "#E0AF68"
	ColorInfo    lipgloss.Color = "#7DCFFF"
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "#C0CAF5"
	ColorSecondary lipgloss.Color = "#A9B1D6"
	ColorMuted     lipgloss.Color = "#565F89"
)

// GradientColors cycle through the spinner frames.
var GradientColors = []lipgloss.Color{ColorAccent, ColorAccentAlt, ColorAccentTeal, ColorAccentGreen}

// Color modes accepted by ApplyColorMode.
const (
	ColorModeAuto   = "auto"
	ColorModeAlways = "always"
	ColorModeNever  = "never"
)

// SuccessStyle renders text in the success color.
func SuccessStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorSuccess) }

// ErrorStyle renders text in the error color.
func ErrorStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorError) }

// WarningStyle renders text in the warning color.
func WarningStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorWarning) }

// InfoStyle renders text in the info color.
func InfoStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorInfo) }

// MutedStyle renders secondary text.
func MutedStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorMuted) }

// TitleStyle renders section headings.
func TitleStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorAccent).Bold(true) }

// DisableColors switches lipgloss to monochrome output (for --no-color).
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ApplyColorMode sets the color profile from a config value. "auto" leaves
// detection to lipgloss but still honors NO_COLOR.
func ApplyColorMode(mode string) {
	switch mode {
	case ColorModeNever:
		DisableColors()
	case ColorModeAlways:
		lipgloss.SetColorProfile(termenv.TrueColor)
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			DisableColors()
		}
	}
}

// PrintWarning prints a warning line to stderr.
func PrintWarning(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", WarningStyle().Render(SymbolWarning), msg)
}
