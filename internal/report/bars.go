package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/tabcube/internal/model"
)

const (
	barRune             = "█"
	barColor            = "\x1b[36m"
	colorReset          = "\x1b[0m"
	minBarWidth         = 10
	terminalWidthBackup = 80
)

// Bar is one labelled value of a chart.
type Bar struct {
	Label string
	Value float64
}

// BarsFromResult takes the labels from the row columns and the values from
// the first numeric column. Rows whose value does not parse are skipped.
func BarsFromResult(res model.Result) ([]Bar, string) {
	cols := numericColumns(res)
	valueCol := -1
	for i := range res.Columns {
		if cols[i] {
			valueCol = i
			break
		}
	}
	if valueCol < 0 {
		return nil, ""
	}
	bars := make([]Bar, 0, len(res.Rows))
	for _, row := range res.Rows {
		if valueCol >= len(row) {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(row[valueCol], ",", ""), 64)
		if err != nil {
			continue
		}
		labels := make([]string, 0, valueCol)
		for i := 0; i < valueCol && i < len(row); i++ {
			labels = append(labels, row[i])
		}
		bars = append(bars, Bar{Label: strings.Join(labels, " / "), Value: v})
	}
	return bars, res.Columns[valueCol]
}

// RenderBars draws a horizontal bar chart. A width of zero uses the terminal
// width of w.
func RenderBars(w io.Writer, title string, bars []Bar, width int) error {
	if len(bars) == 0 {
		return nil
	}
	if width <= 0 {
		width = terminalWidth(w)
	}
	color := shouldUseColor(w)

	labelWidth := 0
	valueWidth := 0
	maxAbs := 0.0
	values := make([]string, len(bars))
	for i, b := range bars {
		labelWidth = max(labelWidth, displayWidth(b.Label))
		values[i] = strconv.FormatFloat(b.Value, 'f', -1, 64)
		valueWidth = max(valueWidth, displayWidth(values[i]))
		maxAbs = math.Max(maxAbs, math.Abs(b.Value))
	}
	barWidth := max(minBarWidth, width-labelWidth-valueWidth-4)

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for i, b := range bars {
		n := 0
		if maxAbs > 0 && b.Value > 0 {
			n = int(math.Round(b.Value / maxAbs * float64(barWidth)))
		}
		bar := strings.Repeat(barRune, n)
		if color && n > 0 {
			bar = barColor + bar + colorReset
		}
		line := padCell(b.Label, labelWidth, false) + "  " + padCell(values[i], valueWidth, true) + " " + bar
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func terminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok {
		return terminalWidthBackup
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
