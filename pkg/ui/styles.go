package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/model"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Dracula-inspired with pipeline status colors
// ══════════════════════════════════════════════════════════════════════════════

// The palette supplies the dark variants of the adaptive theme below.
var (
	// Base colors
	ColorBg          = lipgloss.Color("#282A36")
	ColorBgHighlight = lipgloss.Color("#44475A")
	ColorText        = lipgloss.Color("#F8F8F2")
	ColorSubtext     = lipgloss.Color("#BFBFBF")
	ColorMuted       = lipgloss.Color("#6272A4")

	// Primary accent colors
	ColorPrimary = lipgloss.Color("#BD93F9")
	ColorInfo    = lipgloss.Color("#8BE9FD")
	ColorSuccess = lipgloss.Color("#50FA7B")
	ColorWarning = lipgloss.Color("#FFB86C")
	ColorDanger  = lipgloss.Color("#FF5555")
)

// Theme bundles the adaptive colors every view renders with. A single theme
// is built at startup from the dark_mode setting.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor

	Success lipgloss.AdaptiveColor
	Danger  lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Info    lipgloss.AdaptiveColor
}

// DefaultTheme returns the standard theme. darkMode only affects the light
// variants of each adaptive pair.
func DefaultTheme(r *lipgloss.Renderer, darkMode bool) Theme {
	t := Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#7D56C2", Dark: string(ColorPrimary)},
		Secondary: lipgloss.AdaptiveColor{Light: string(ColorBgHighlight), Dark: string(ColorMuted)},
		Text:      lipgloss.AdaptiveColor{Light: string(ColorBg), Dark: string(ColorText)},
		Subtext:   lipgloss.AdaptiveColor{Light: "#4A4A57", Dark: string(ColorSubtext)},
		Muted:     lipgloss.AdaptiveColor{Light: "#8A8FA3", Dark: string(ColorMuted)},
		Border:    lipgloss.AdaptiveColor{Light: "#C5C8D4", Dark: string(ColorBgHighlight)},
		Success:   lipgloss.AdaptiveColor{Light: "#1C8A3E", Dark: string(ColorSuccess)},
		Danger:    lipgloss.AdaptiveColor{Light: "#C23B3B", Dark: string(ColorDanger)},
		Warning:   lipgloss.AdaptiveColor{Light: "#B06000", Dark: string(ColorWarning)},
		Info:      lipgloss.AdaptiveColor{Light: "#176C8A", Dark: string(ColorInfo)},
	}
	if darkMode {
		// Force the dark variants regardless of terminal background.
		t.Primary.Light = t.Primary.Dark
		t.Secondary.Light = t.Secondary.Dark
		t.Text.Light = t.Text.Dark
		t.Subtext.Light = t.Subtext.Dark
		t.Muted.Light = t.Muted.Dark
		t.Border.Light = t.Border.Dark
		t.Success.Light = t.Success.Dark
		t.Danger.Light = t.Danger.Dark
		t.Warning.Light = t.Warning.Dark
		t.Info.Light = t.Info.Dark
	}
	return t
}

// StatusColor maps a pipeline status onto the theme.
func (t Theme) StatusColor(s model.PipelineStatus) lipgloss.AdaptiveColor {
	switch model.PipelineStatus(strings.ToLower(string(s))) {
	case model.StatusSuccess:
		return t.Success
	case model.StatusFailed, model.StatusCanceled:
		return t.Danger
	case model.StatusRunning:
		return t.Info
	case model.StatusPending:
		return t.Warning
	case model.StatusManual:
		return t.Primary
	default:
		return t.Muted
	}
}

// StatusIcon is the single-cell marker rendered before a project name.
func StatusIcon(s model.PipelineStatus) string {
	switch model.PipelineStatus(strings.ToLower(string(s))) {
	case model.StatusSuccess:
		return "✓"
	case model.StatusFailed:
		return "✗"
	case model.StatusCanceled:
		return "⊘"
	case model.StatusRunning:
		return "●"
	case model.StatusPending:
		return "◌"
	case model.StatusManual:
		return "⚙"
	case model.StatusSkipped:
		return "»"
	default:
		return "·"
	}
}

// GroupIcon marks a group row, reflecting its open state.
func GroupIcon(expanded bool) string {
	if expanded {
		return "▾"
	}
	return "▸"
}

// RenderDivider renders a horizontal divider line.
func RenderDivider(t Theme, width int) string {
	if width <= 0 {
		return ""
	}
	return t.Renderer.NewStyle().
		Foreground(t.Border).
		Render(strings.Repeat("─", width))
}
