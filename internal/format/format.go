// Package format renders result cells for display.
package format

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/tabcube/internal/model"
)

// Layouts tried, in order, when a text cell is rendered as a date or time.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006",
	"1/2/2006 15:04",
	"02-Jan-2006",
	"02-Jan-2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"20060102",
	"15:04:05",
	"15:04",
}

// Render converts a value to display text under the given mode. It never
// fails: unparseable dates fall back to the original text.
func Render(v model.Value, mode model.FormatMode) string {
	switch v.Kind() {
	case model.KindMissing:
		return ""
	case model.KindNumber:
		n, _ := v.Num()
		switch mode {
		case model.FormatNumber:
			return humanize.FormatFloat("#,###.##", n)
		case model.FormatInteger:
			return groupedInteger(n)
		}
	case model.KindText:
		s, _ := v.Str()
		switch mode {
		case model.FormatDate:
			if t, ok := ParseTime(s); ok {
				return t.Format("02/01/2006")
			}
			return s
		case model.FormatTime:
			if t, ok := ParseTime(s); ok {
				return t.Format("15:04")
			}
			return s
		}
	}
	return v.String()
}

// RenderRow formats every value of a row.
func RenderRow(values []model.Value, mode model.FormatMode) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Render(v, mode)
	}
	return out
}

// ParseTime parses a date, date-time or bare time string.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func groupedInteger(n float64) string {
	if math.IsInf(n, 0) {
		return humanize.FormatFloat("#,###.", n)
	}
	n = math.Trunc(n)
	if n >= math.MinInt64 && n < math.MaxInt64 {
		return humanize.Comma(int64(n))
	}
	return humanize.FormatFloat("#,###.", n)
}
