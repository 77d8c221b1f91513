package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/engine"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/model"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	if m.help.IsVisible() {
		return m.help.View()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(RenderDivider(m.theme, m.width))
	b.WriteString("\n")
	b.WriteString(m.renderRows())
	if m.mode == modeFilter || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	} else if m.mode == modeRef {
		b.WriteString(m.refInput.View())
		b.WriteString("\n")
	}
	b.WriteString(RenderDivider(m.theme, m.width))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.theme.Renderer.NewStyle().
		Bold(true).
		Foreground(m.theme.Primary).
		Render("GitLab Pipelines")
	group := m.theme.Renderer.NewStyle().
		Foreground(m.theme.Subtext).
		Render(" · " + m.group)

	right := ""
	if m.busy > 0 {
		right = m.spin.View() + " syncing"
	}
	pad := m.width - visualWidth(title+group) - visualWidth(right)
	if pad < 1 {
		pad = 1
	}
	return title + group + strings.Repeat(" ", pad) +
		m.theme.Renderer.NewStyle().Foreground(m.theme.Muted).Render(right)
}

func (m Model) renderRows() string {
	rows := m.visibleRows()
	height := m.listHeight()
	if height < 1 {
		height = 1
	}

	var b strings.Builder
	if len(rows) == 0 {
		b.WriteString(m.theme.Renderer.NewStyle().
			Foreground(m.theme.Muted).
			Render("  (nothing to show)"))
		b.WriteString("\n")
		for i := 1; i < height; i++ {
			b.WriteString("\n")
		}
		return b.String()
	}

	end := m.offset + height
	if end > len(rows) {
		end = len(rows)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(rows[i], i == m.cursor))
		b.WriteString("\n")
	}
	for i := end - m.offset; i < height; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderRow(r engine.Row, selected bool) string {
	indent := strings.Repeat("  ", r.Depth)

	var icon, suffix string
	iconStyle := m.theme.Renderer.NewStyle().Foreground(m.theme.Muted)

	switch r.Kind {
	case model.KindGroup:
		icon = GroupIcon(r.Expanded)
		iconStyle = m.theme.Renderer.NewStyle().Foreground(m.theme.Primary)
		if r.Fetch == model.FetchNeedsRefresh {
			suffix = " (stale)"
		}
	case model.KindProject:
		icon = StatusIcon(r.Status)
		iconStyle = m.theme.Renderer.NewStyle().Foreground(m.theme.StatusColor(r.Status))
		suffix = fmt.Sprintf(" (%s)", r.Status)
		if r.Ref != "" {
			suffix += " [" + r.Ref + "]"
		}
	default:
		icon = " "
	}

	labelStyle := m.theme.Renderer.NewStyle().Foreground(m.theme.Text)
	suffixStyle := m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext)
	if r.Kind == model.KindPlaceholder {
		labelStyle = labelStyle.Foreground(m.theme.Muted).Italic(true)
	}

	prefix := "  "
	if selected {
		prefix = m.theme.Renderer.NewStyle().Foreground(m.theme.Primary).Bold(true).Render("> ")
		labelStyle = labelStyle.Bold(true).Foreground(m.theme.Primary)
	}

	avail := m.width - len(indent) - 4 - runewidth.StringWidth(suffix)
	if avail < 8 {
		avail = 8
	}
	label := runewidth.Truncate(r.Name, avail, "…")

	return prefix + indent + iconStyle.Render(icon) + " " +
		labelStyle.Render(label) + suffixStyle.Render(suffix)
}

func (m Model) renderFooter() string {
	if m.lastErr != "" {
		return m.theme.Renderer.NewStyle().
			Foreground(m.theme.Danger).
			Render("✗ " + runewidth.Truncate(m.lastErr, m.width-2, "…"))
	}

	last := "never"
	if t := m.eng.LastRefresh(); !t.IsZero() {
		last = t.Format("15:04:05")
	}
	left := fmt.Sprintf("refreshed %s · %d rows", last, len(m.visibleRows()))
	if m.status != "" {
		left += " · " + m.status
	}
	hint := "? help  q quit"

	style := m.theme.Renderer.NewStyle().Foreground(m.theme.Muted)
	pad := m.width - runewidth.StringWidth(left) - runewidth.StringWidth(hint)
	if pad < 1 {
		pad = 1
	}
	return style.Render(left) + strings.Repeat(" ", pad) + style.Render(hint)
}

// visualWidth measures rendered width, skipping ANSI escape sequences.
func visualWidth(s string) int {
	w := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			w += runewidth.RuneWidth(r)
		}
	}
	return w
}
