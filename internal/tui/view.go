package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tabcube/internal/model"
	"github.com/verte-zerg/tabcube/internal/pivot"
)

const (
	sidebarWidth = 32
	maxCellWidth = 24
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	sidebar := fitLines(m.renderSidebar(), sidebarWidth, bodyHeight)
	resultWidth := maxInt(1, m.width-sidebarWidth-1)
	content := m.result.View()
	if m.showHelp {
		content = renderJoinHelp(resultWidth)
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", fitLines(content, resultWidth, bodyHeight))
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, fitLines(body, m.width, bodyHeight), footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = 2
	footerHeight = 1
	if m.status != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) renderHeader() string {
	names := m.session.TableNames()
	parts := make([]string, 0, len(names))
	for i, name := range names {
		rows, cols := tableSize(m.session, name)
		label := fmt.Sprintf("%s (%d rows, %d columns)", name, rows, cols)
		if i == m.tableCursor {
			label = cursorStyle.Render("[" + label + "]")
		} else {
			label = mutedStyle.Render(label)
		}
		parts = append(parts, label)
	}
	tables := mutedStyle.Render("no tables loaded")
	if len(parts) > 0 {
		tables = strings.Join(parts, " ")
	}
	settings := headerStyle.Render(fmt.Sprintf("join %s · op %s · format %s",
		m.session.JoinKind(), m.session.Operator(), m.session.FormatMode()))
	return titleStyle.Render("tabcube") + "  " + tables + "\n" + settings
}

func (m *Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Fields  (r/v/f, [ ])"))
	b.WriteByte('\n')
	fields := m.session.Columns()
	if len(fields) == 0 {
		b.WriteString(mutedStyle.Render("  none"))
		b.WriteByte('\n')
	}
	for i, field := range fields {
		line := fmt.Sprintf("%s %s", markers(m.session, field), truncateLine(field, sidebarWidth-8))
		if i == m.fieldCursor {
			b.WriteString(cursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	for _, role := range model.Roles {
		list := m.session.Fields(role)
		value := strings.Join(list, ", ")
		if value == "" {
			value = "-"
		}
		b.WriteString(headerStyle.Render(roleTitle(role)+": ") + truncateLine(value, sidebarWidth-9))
		b.WriteByte('\n')
	}
	left, right := m.session.JoinKeys()
	b.WriteString(headerStyle.Render("Keys:   ") + truncateLine(orDash(left)+" ⇄ "+orDash(right), sidebarWidth-8))
	b.WriteByte('\n')

	filters := m.session.Fields(model.RoleFilter)
	if len(filters) > 0 {
		b.WriteByte('\n')
		b.WriteString(headerStyle.Render("Filters  (tab , .)"))
		b.WriteByte('\n')
		for i, col := range filters {
			choice := m.session.Filter(col)
			if choice == "" {
				choice = "(all)"
			}
			line := truncateLine(col+" = "+choice, sidebarWidth-2)
			if i == m.filterIndex {
				b.WriteString(cursorStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderFooter() string {
	help := footerStyle.Render("↑/↓ field · ←/→ table · j join · o op · m format · x remove · s save · ? help · q quit")
	if m.status == "" {
		return help
	}
	style := infoStyle
	switch m.statusLevel {
	case pivot.LevelError:
		style = errorStyle
	case pivot.LevelWarning:
		style = warningStyle
	}
	return style.Render(truncateLine(m.status, maxInt(1, m.width))) + "\n" + help
}

// rebuildResult replaces the result table widget with the session's
// current result.
func (m *Model) rebuildResult() {
	_, bodyHeight, _ := m.layoutHeights()
	width := maxInt(1, m.width-sidebarWidth-1)
	m.result = buildResultTable(m.session.Result(), width, bodyHeight)
}

func buildResultTable(res model.Result, width, height int) table.Model {
	columns := make([]table.Column, len(res.Columns))
	for i, title := range res.Columns {
		w := lipgloss.Width(title)
		for _, row := range res.Rows {
			if i < len(row) {
				w = maxInt(w, lipgloss.Width(row[i]))
			}
		}
		columns[i] = table.Column{Title: title, Width: minInt(maxCellWidth, maxInt(1, w))}
	}
	rows := make([]table.Row, len(res.Rows))
	for r, row := range res.Rows {
		cells := make(table.Row, len(columns))
		copy(cells, row)
		rows[r] = cells
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
		table.WithFocused(true),
	)
	t.SetWidth(width)
	t.SetStyles(resultTableStyles())
	return t
}

func resultTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell
	return styles
}

func tableSize(s *pivot.Session, name string) (rows, cols int) {
	t, ok := s.Table(name)
	if !ok {
		return 0, 0
	}
	return t.NumRows(), t.NumColumns()
}

var joinHelp = []struct {
	kind model.JoinKind
	text string
}{
	{model.JoinInner, "only rows whose key appears in both the tables joined so far and the next one"},
	{model.JoinLeft, "every row joined so far; fields from the next table stay empty without a match"},
	{model.JoinRight, "every row of the next table; earlier fields stay empty without a match"},
	{model.JoinOuter, "every row from both sides, matched where the keys agree"},
}

// renderJoinHelp explains the join kinds cycled with j.
func renderJoinHelp(width int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Join kinds  (j to cycle, ? or esc to close)"))
	b.WriteString("\n\n")
	for _, h := range joinHelp {
		b.WriteString(cursorStyle.Render(fmt.Sprintf("%-6s", h.kind)))
		b.WriteString(" " + truncateLine(h.text, maxInt(1, width-7)))
		b.WriteByte('\n')
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(truncateLine("Tables merge in load order on the left and right keys.", width)))
	return b.String()
}

func roleTitle(role model.Role) string {
	switch role {
	case model.RoleRow:
		return "Rows:  "
	case model.RoleValue:
		return "Values:"
	default:
		return "Filter:"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
