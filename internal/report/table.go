// Package report renders results as aligned text tables.
package report

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/verte-zerg/tabcube/internal/model"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

// Render writes res to w as an aligned table. Headers are bold when w is a
// terminal and NO_COLOR is unset.
func Render(w io.Writer, res model.Result) error {
	lines := Lines(res, shouldUseColor(w))
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Lines formats res into one string per output line. Columns whose cells all
// look numeric are right aligned.
func Lines(res model.Result, color bool) []string {
	lines := formatTable(res.Columns, res.Rows, numericColumns(res))
	if color && len(lines) > 0 && len(res.Columns) > 0 {
		lines[0] = headerStyle.Render(lines[0])
	}
	return lines
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = displayWidth(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(padCell(cell, widths[i], rightAlignCols[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := displayWidth(value)
	if valueWidth >= width {
		return value
	}
	padding := width - valueWidth
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}

func numericColumns(res model.Result) map[int]bool {
	out := make(map[int]bool)
	for i := range res.Columns {
		seen := false
		numeric := true
		for _, row := range res.Rows {
			if i >= len(row) || row[i] == "" {
				continue
			}
			seen = true
			if !looksNumber(row[i]) {
				numeric = false
				break
			}
		}
		if seen && numeric {
			out[i] = true
		}
	}
	return out
}

func looksNumber(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ',' || r == '.':
		case r == '-' && i == 0:
		default:
			return false
		}
	}
	return digits > 0
}

func shouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
