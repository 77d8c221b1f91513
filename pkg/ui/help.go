package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HelpModel shows the keyboard shortcut overlay.
type HelpModel struct {
	visible bool
	width   int
	height  int
	theme   Theme
}

// NewHelpModel creates a hidden help overlay.
func NewHelpModel(theme Theme) HelpModel {
	return HelpModel{theme: theme}
}

// Show makes the overlay visible.
func (m *HelpModel) Show() {
	m.visible = true
}

// Hide makes the overlay invisible.
func (m *HelpModel) Hide() {
	m.visible = false
}

// IsVisible reports whether the overlay is showing.
func (m HelpModel) IsVisible() bool {
	return m.visible
}

// SetSize sets dimensions.
func (m *HelpModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the overlay.
func (m HelpModel) View() string {
	var b strings.Builder

	titleStyle := m.theme.Renderer.NewStyle().
		Bold(true).
		Foreground(m.theme.Primary).
		MarginBottom(1)
	b.WriteString(titleStyle.Render("Pipeline Viewer Help"))
	b.WriteString("\n\n")

	sectionStyle := m.theme.Renderer.NewStyle().Bold(true).Foreground(m.theme.Secondary)
	keyStyle := m.theme.Renderer.NewStyle().Foreground(m.theme.Primary).Width(12)
	descStyle := m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext)

	b.WriteString(sectionStyle.Render("NAVIGATION") + "\n")
	nav := []struct{ key, desc string }{
		{"j/↓", "Move down"},
		{"k/↑", "Move up"},
		{"g", "Go to top"},
		{"G", "Go to bottom"},
		{"enter/space", "Expand or collapse group"},
		{"/", "Fuzzy filter"},
	}
	for _, s := range nav {
		b.WriteString("  " + keyStyle.Render(s.key) + descStyle.Render(s.desc) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("PIPELINES") + "\n")
	actions := []struct{ key, desc string }{
		{"r", "Refresh group or project"},
		{"R", "Refresh everything"},
		{"X", "Rebuild tree from scratch"},
		{"t", "Retry latest pipeline"},
		{"c", "Create pipeline on a ref"},
	}
	for _, a := range actions {
		b.WriteString("  " + keyStyle.Render(a.key) + descStyle.Render(a.desc) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("MISC") + "\n")
	misc := []struct{ key, desc string }{
		{"o", "Open in browser"},
		{"y", "Copy URL"},
		{"?", "Toggle this help"},
		{"q", "Quit"},
	}
	for _, v := range misc {
		b.WriteString("  " + keyStyle.Render(v.key) + descStyle.Render(v.desc) + "\n")
	}

	b.WriteString("\n")
	hintStyle := m.theme.Renderer.NewStyle().Faint(true).Italic(true)
	b.WriteString(hintStyle.Render("[Press any key to close]"))

	boxStyle := m.theme.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Border).
		Padding(1, 2)

	box := boxStyle.Render(b.String())
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}
