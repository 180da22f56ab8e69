package tui

import (
	"fmt"
	"strings"

	"github.com/burrowtool/burrow/internal/fleet"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func (m model) View() string {
	if m.quitting {
		return ""
	}

	// Header — always shown
	title := "burrow v0.1.0"
	project := m.cfg.Project
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(project) - 4
	if gap < 1 {
		gap = 1
	}
	header := headerStyle.Width(m.width).Render(title + strings.Repeat(" ", gap) + project)

	if len(m.instances) == 0 {
		return m.renderEmptyState(header)
	}
	return m.renderSplitView(header)
}

func (m model) renderEmptyState(header string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")
	b.WriteString(emptyStyle.Render("No instances. Press n to start one."))
	b.WriteString("\n\n")

	if m.commanding {
		b.WriteString(hotkeysStyle.Render("[enter] execute  [esc] cancel"))
	} else {
		b.WriteString(hotkeysStyle.Render("[n]ew  [c]leanup  [?] help  [q] quit"))
	}
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	m.renderStatusAndInput(&b)

	if m.showHelp {
		return m.renderHelpOverlay(b.String())
	}
	return b.String()
}

func (m model) renderSplitView(header string) string {
	var b strings.Builder

	b.WriteString(header)
	b.WriteString("\n")

	// Instance list — one line per instance
	for i, in := range m.instances {
		b.WriteString(m.renderInstance(i, in))
		b.WriteString("\n")
	}

	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	// Preview pane — fill remaining vertical space
	footerLines := 4 // hotkeys + divider + status + possible input
	if m.commanding {
		footerLines++
	}
	previewHeight := max(3, m.height-1-len(m.instances)-1-1-footerLines)

	b.WriteString(m.renderPreview(previewHeight))

	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	// Hotkeys
	if m.commanding {
		b.WriteString(hotkeysStyle.Render("[enter] execute  [esc] cancel"))
	} else if m.confirmStop {
		b.WriteString(confirmStyle.Render(fmt.Sprintf("Stop %s? Press x again to confirm, any other key to cancel", m.confirmStopID)))
	} else {
		b.WriteString(hotkeysStyle.Render("[↑↓] select  [enter] psql  [n]ew  [x] stop  [c]leanup  [?] help"))
	}
	b.WriteString("\n")

	m.renderStatusAndInput(&b)

	if m.showHelp {
		return m.renderHelpOverlay(b.String())
	}
	return b.String()
}

func (m model) renderInstance(index int, in fleet.Instance) string {
	cursor := "  "
	style := idStyle
	if index == m.cursor {
		cursor = "▸ "
		style = selectedIDStyle
	}

	icon := statusStopped.Render("○")
	state := "stopped"
	if in.Running {
		icon = statusRunning.Render("●")
		state = "running"
	}

	parts := []string{
		fmt.Sprintf("  %s%s %s", cursor, icon, style.Render(in.ID)),
		state,
	}
	if port := m.port(in.ID); port > 0 {
		parts = append(parts, portStyle.Render(fmt.Sprintf(":%d", port)))
	}
	return strings.Join(parts, "  ")
}

func (m model) renderPreview(height int) string {
	var b strings.Builder

	in, ok := m.selected()
	if !ok {
		b.WriteString(previewEmptyStyle.Render("No instance selected"))
		b.WriteString("\n")
		for i := 1; i < height; i++ {
			b.WriteString("\n")
		}
		return b.String()
	}

	lines := m.statePane(in, height)
	for _, line := range lines {
		b.WriteString(previewStyle.Render(truncate(line, m.width-4)))
		b.WriteString("\n")
	}
	for i := len(lines); i < height; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

// truncate cuts line to width display cells. Styled lines carry ANSI
// escapes and multi-byte runes, so a byte slice would garble them.
func truncate(line string, width int) string {
	if lipgloss.Width(line) <= width {
		return line
	}
	return ansi.Truncate(line, width, "")
}

func (m model) renderStatusAndInput(b *strings.Builder) {
	if m.message != "" {
		if m.isError {
			b.WriteString(errorStyle.Render(m.message))
		} else {
			b.WriteString(messageStyle.Render(m.message))
		}
		b.WriteString("\n")
	}
	if m.commanding {
		b.WriteString("  ")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
}

func (m model) renderHelpOverlay(base string) string {
	help := strings.Join([]string{
		helpHeaderStyle.Render("Navigation"),
		helpKeyStyle.Render("  ↑/k  ↓/j") + helpDescStyle.Render("   Select instance"),
		helpKeyStyle.Render("  Enter") + helpDescStyle.Render("       Open psql against the instance"),
		"",
		helpHeaderStyle.Render("Actions"),
		helpKeyStyle.Render("  n") + helpDescStyle.Render("           Start a new instance"),
		helpKeyStyle.Render("  x") + helpDescStyle.Render("           Stop selected instance"),
		helpKeyStyle.Render("  c") + helpDescStyle.Render("           Clean up stale instances"),
		"",
		helpHeaderStyle.Render("Commands"),
		helpKeyStyle.Render("  /") + helpDescStyle.Render("           Open command bar"),
		helpDescStyle.Render("  /up"),
		helpDescStyle.Render("  /stop <id>"),
		helpDescStyle.Render("  /psql <id>"),
		helpDescStyle.Render("  /cleanup"),
		"",
		helpKeyStyle.Render("  q") + helpDescStyle.Render("  quit") + "     " + helpKeyStyle.Render("?") + helpDescStyle.Render("  close this help"),
	}, "\n")

	modal := helpStyle.Render(help)

	modalWidth := lipgloss.Width(modal)
	modalHeight := lipgloss.Height(modal)

	baseLines := strings.Split(base, "\n")

	xOffset := max(0, (m.width-modalWidth)/2)
	yOffset := max(0, (m.height-modalHeight)/2)

	// Overlay modal onto base
	modalLines := strings.Split(modal, "\n")
	for i, mLine := range modalLines {
		row := yOffset + i
		if row < len(baseLines) {
			baseLine := baseLines[row]
			padding := strings.Repeat(" ", xOffset)
			for lipgloss.Width(baseLine) < m.width {
				baseLine += " "
			}
			baseLines[row] = padding + mLine + strings.Repeat(" ", max(0, m.width-xOffset-lipgloss.Width(mLine)))
		}
	}

	return strings.Join(baseLines, "\n")
}
