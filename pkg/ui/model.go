// Package ui renders the pipeline tree as a full-screen terminal app and
// translates key presses into engine operations. Every engine call runs as a
// bubbletea command so the event loop never blocks on the network.
package ui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"
	"github.com/sahilm/fuzzy"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/engine"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/model"
)

// pipelineSettleDelay is how long to wait after a retry or create before
// re-querying the project, giving GitLab time to materialize the pipeline.
const pipelineSettleDelay = 3 * time.Second

// TreeChangedMsg asks the view to re-pull rows from the engine. The main
// program sends it whenever the engine announces a tree change.
type TreeChangedMsg struct{}

// RefreshTickMsg triggers a full refresh. Sent by the periodic scheduler.
type RefreshTickMsg struct{}

// StatusMsg puts a transient line in the footer.
type StatusMsg struct{ Text string }

type opDoneMsg struct{ err error }

type followUpMsg struct{ node *model.Node }

type inputMode int

const (
	modeTree inputMode = iota
	modeFilter
	modeRef
)

// Model is the root bubbletea model.
type Model struct {
	eng   *engine.Engine
	theme Theme
	group string

	rows   []engine.Row
	cursor int
	offset int
	width  int
	height int

	spin spinner.Model
	busy int

	mode      inputMode
	filter    textinput.Model
	refInput  textinput.Model
	refTarget *model.Node

	help HelpModel

	status  string
	lastErr string
}

// NewModel builds the root model. Rows are pulled immediately so a restored
// snapshot is visible before the first fetch completes.
func NewModel(eng *engine.Engine, theme Theme, groupName string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Renderer.NewStyle().Foreground(theme.Primary)

	filter := textinput.New()
	filter.Prompt = "/"
	filter.Placeholder = "filter"
	filter.CharLimit = 64

	refInput := textinput.New()
	refInput.Prompt = "ref: "
	refInput.Placeholder = "main"
	refInput.CharLimit = 128

	return Model{
		eng:      eng,
		theme:    theme,
		group:    groupName,
		rows:     eng.VisibleRows(),
		spin:     sp,
		filter:   filter,
		refInput: refInput,
		help:     NewHelpModel(theme),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetSize(msg.Width, msg.Height)
		m.clampCursor()
		return m, nil

	case TreeChangedMsg:
		m.rows = m.eng.VisibleRows()
		m.clampCursor()
		return m, nil

	case RefreshTickMsg:
		return m.startOp(m.refreshAllCmd())

	case StatusMsg:
		m.status = msg.Text
		return m, nil

	case opDoneMsg:
		m.busy--
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		} else {
			m.lastErr = ""
		}
		m.rows = m.eng.VisibleRows()
		m.clampCursor()
		return m, nil

	case followUpMsg:
		return m.startOp(m.refreshProjectCmd(msg.node))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.help.IsVisible() {
			m.help.Hide()
			return m, nil
		}
		switch m.mode {
		case modeFilter:
			return m.updateFilter(msg)
		case modeRef:
			return m.updateRefInput(msg)
		}
		return m.updateTree(msg)
	}
	return m, nil
}

func (m Model) updateTree(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		m.cursor++
		m.clampCursor()
	case "k", "up":
		m.cursor--
		m.clampCursor()
	case "g", "home":
		m.cursor = 0
		m.clampCursor()
	case "G", "end":
		m.cursor = len(m.visibleRows()) - 1
		m.clampCursor()

	case "enter", " ", "l", "h":
		if row, ok := m.currentRow(); ok && row.Kind == model.KindGroup {
			return m.startOp(m.toggleCmd(row.Node))
		}

	case "r":
		if row, ok := m.currentRow(); ok {
			switch row.Kind {
			case model.KindGroup:
				return m.startOp(m.refreshGroupCmd(row.Node))
			case model.KindProject:
				return m.startOp(m.refreshProjectCmd(row.Node))
			}
		}
	case "R":
		return m.startOp(m.refreshAllCmd())
	case "X":
		return m.startOp(m.resetCmd())

	case "t":
		if row, ok := m.currentRow(); ok && row.Kind == model.KindProject {
			return m.startOp(m.retryCmd(row.Node))
		}
	case "c":
		if row, ok := m.currentRow(); ok && row.Kind == model.KindProject {
			m.mode = modeRef
			m.refTarget = row.Node
			m.refInput.SetValue("")
			m.refInput.Focus()
			return m, textinput.Blink
		}

	case "o":
		if row, ok := m.currentRow(); ok && row.WebURL != "" {
			if err := browser.OpenURL(row.WebURL); err != nil {
				m.lastErr = err.Error()
			}
		}
	case "y":
		if row, ok := m.currentRow(); ok && row.WebURL != "" {
			if err := clipboard.WriteAll(row.WebURL); err != nil {
				m.lastErr = err.Error()
			} else {
				m.status = "URL copied"
			}
		}

	case "/":
		m.mode = modeFilter
		m.filter.SetValue("")
		m.filter.Focus()
		m.cursor = 0
		return m, textinput.Blink

	case "?":
		m.help.Show()
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeTree
		m.filter.Blur()
		m.filter.SetValue("")
		m.cursor = 0
		m.clampCursor()
		return m, nil
	case "enter":
		// Keep the filter applied, return focus to the tree.
		m.mode = modeTree
		m.filter.Blur()
		return m, nil
	case "up", "down":
		return m.updateTree(msg)
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursor = 0
	m.offset = 0
	return m, cmd
}

func (m Model) updateRefInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeTree
		m.refInput.Blur()
		m.refTarget = nil
		return m, nil
	case "enter":
		ref := m.refInput.Value()
		target := m.refTarget
		m.mode = modeTree
		m.refInput.Blur()
		m.refTarget = nil
		if ref == "" || target == nil {
			return m, nil
		}
		return m.startOp(m.createCmd(target, ref))
	}
	var cmd tea.Cmd
	m.refInput, cmd = m.refInput.Update(msg)
	return m, cmd
}

// startOp tracks one in-flight engine call for the busy spinner.
func (m Model) startOp(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy++
	return m, cmd
}

func (m Model) toggleCmd(n *model.Node) tea.Cmd {
	return func() tea.Msg { return opDoneMsg{err: m.eng.Toggle(context.Background(), n)} }
}

func (m Model) refreshGroupCmd(n *model.Node) tea.Cmd {
	return func() tea.Msg { return opDoneMsg{err: m.eng.RefreshRecursive(context.Background(), n)} }
}

func (m Model) refreshProjectCmd(n *model.Node) tea.Cmd {
	return func() tea.Msg { return opDoneMsg{err: m.eng.RefreshProject(context.Background(), n)} }
}

func (m Model) refreshAllCmd() tea.Cmd {
	return func() tea.Msg { return opDoneMsg{err: m.eng.RefreshAll(context.Background())} }
}

func (m Model) resetCmd() tea.Cmd {
	return func() tea.Msg { return opDoneMsg{err: m.eng.Reset(context.Background())} }
}

func (m Model) retryCmd(n *model.Node) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg { return opDoneMsg{err: m.eng.RetryPipeline(context.Background(), n)} },
		tea.Tick(pipelineSettleDelay, func(time.Time) tea.Msg { return followUpMsg{node: n} }),
	)
}

func (m Model) createCmd(n *model.Node, ref string) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg { return opDoneMsg{err: m.eng.CreatePipeline(context.Background(), n, ref)} },
		tea.Tick(pipelineSettleDelay, func(time.Time) tea.Msg { return followUpMsg{node: n} }),
	)
}

// rowSource adapts rows to the fuzzy matcher.
type rowSource []engine.Row

func (s rowSource) String(i int) string { return s[i].Name }
func (s rowSource) Len() int            { return len(s) }

// visibleRows is the row slice currently on screen: the whole tree, or the
// fuzzy-matched subset while a filter is active.
func (m Model) visibleRows() []engine.Row {
	query := m.filter.Value()
	if query == "" {
		return m.rows
	}
	matches := fuzzy.FindFrom(query, rowSource(m.rows))
	out := make([]engine.Row, 0, len(matches))
	for _, match := range matches {
		out = append(out, m.rows[match.Index])
	}
	return out
}

func (m Model) currentRow() (engine.Row, bool) {
	rows := m.visibleRows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return engine.Row{}, false
	}
	return rows[m.cursor], true
}

func (m *Model) clampCursor() {
	rows := m.visibleRows()
	if m.cursor >= len(rows) {
		m.cursor = len(rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	visible := m.listHeight()
	if visible <= 0 {
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

// listHeight is the number of tree rows that fit between header and footer.
func (m Model) listHeight() int {
	chrome := 4 // header, divider, divider, footer
	if m.mode == modeFilter || m.filter.Value() != "" || m.mode == modeRef {
		chrome++
	}
	return m.height - chrome
}
