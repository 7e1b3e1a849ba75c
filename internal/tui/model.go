// Package tui provides the Bubble Tea pivot interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tabcube/internal/loader"
	"github.com/verte-zerg/tabcube/internal/model"
	"github.com/verte-zerg/tabcube/internal/pivot"
)

// Config holds the starting state of the shell.
type Config struct {
	Join      model.JoinKind
	Operator  model.AggOp
	Format    model.FormatMode
	ExportDir string
	Sheet     string
	Logger    *slog.Logger
}

// Model implements the Bubble Tea pivot UI.
type Model struct {
	cfg     Config
	session *pivot.Session

	fieldCursor int
	tableCursor int
	filterIndex int

	status      string
	statusLevel pivot.Level
	showHelp    bool

	result table.Model

	width  int
	height int
}

// NewModel constructs a shell over a fresh session and loads tables into it.
func NewModel(cfg Config, tables []loader.NamedTable) *Model {
	m := &Model{cfg: cfg}
	opts := []pivot.Option{pivot.WithNotifier(m.notice)}
	if cfg.Join != "" {
		opts = append(opts, pivot.WithJoinKind(cfg.Join))
	}
	if cfg.Operator != "" {
		opts = append(opts, pivot.WithOperator(cfg.Operator))
	}
	if cfg.Format != "" {
		opts = append(opts, pivot.WithFormatMode(cfg.Format))
	}
	if cfg.Logger != nil {
		opts = append(opts, pivot.WithLogger(cfg.Logger))
	}
	m.session = pivot.NewSession(opts...)
	for _, nt := range tables {
		if err := m.session.LoadTable(nt.Name, nt.Table); err != nil {
			m.notice(pivot.Notice{Level: pivot.LevelError, Message: err.Error()})
		}
	}
	m.rebuildResult()
	return m
}

// Session exposes the underlying session.
func (m *Model) Session() *pivot.Session {
	return m.session
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.rebuildResult()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		m.handleKey(msg.String())
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleKey(key string) {
	fields := m.session.Columns()
	switch key {
	case "up":
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}
		return
	case "down":
		if m.fieldCursor < len(fields)-1 {
			m.fieldCursor++
		}
		return
	case "left":
		if m.tableCursor > 0 {
			m.tableCursor--
		}
		return
	case "right":
		if m.tableCursor < len(m.session.TableNames())-1 {
			m.tableCursor++
		}
		return
	case "?":
		m.showHelp = !m.showHelp
		return
	case "esc":
		m.showHelp = false
		return
	case "tab":
		if n := len(m.session.Fields(model.RoleFilter)); n > 0 {
			m.filterIndex = (m.filterIndex + 1) % n
		}
		return
	}

	m.clearStatus()
	switch key {
	case "r":
		m.toggleRole(model.RoleRow)
	case "v":
		m.toggleRole(model.RoleValue)
	case "f":
		m.toggleRole(model.RoleFilter)
	case "[":
		m.toggleJoinKey(model.SideLeft)
	case "]":
		m.toggleJoinKey(model.SideRight)
	case "j":
		m.session.SetJoinKind(next(model.JoinKinds, m.session.JoinKind()))
	case "o":
		m.session.SetOperator(next(model.AggOps, m.session.Operator()))
	case "m":
		m.session.SetFormatMode(next(model.FormatModes, m.session.FormatMode()))
	case ",":
		m.stepFilter(-1)
	case ".":
		m.stepFilter(1)
	case "x":
		m.removeTable()
	case "s":
		m.export()
	default:
		return
	}
	m.clampCursors()
	m.rebuildResult()
}

func (m *Model) currentField() (string, bool) {
	fields := m.session.Columns()
	if m.fieldCursor < 0 || m.fieldCursor >= len(fields) {
		return "", false
	}
	return fields[m.fieldCursor], true
}

func (m *Model) toggleRole(role model.Role) {
	field, ok := m.currentField()
	if !ok {
		return
	}
	var err error
	if contains(m.session.Fields(role), field) {
		err = m.session.Unassign(role, field)
	} else {
		err = m.session.Assign(role, field)
	}
	if err != nil {
		m.setStatus(pivot.LevelError, err.Error())
	}
}

func (m *Model) toggleJoinKey(side model.JoinSide) {
	field, ok := m.currentField()
	if !ok {
		return
	}
	left, right := m.session.JoinKeys()
	current := left
	if side == model.SideRight {
		current = right
	}
	if current == field {
		field = ""
	}
	if err := m.session.SetJoinKey(side, field); err != nil {
		m.setStatus(pivot.LevelError, err.Error())
	}
}

func (m *Model) stepFilter(delta int) {
	filters := m.session.Fields(model.RoleFilter)
	if len(filters) == 0 {
		m.setStatus(pivot.LevelInfo, "no filter fields selected")
		return
	}
	column := filters[m.filterIndex%len(filters)]
	choice := stepChoice(m.session.DistinctValues(column), m.session.Filter(column), delta)
	if err := m.session.SetFilter(column, choice); err != nil {
		m.setStatus(pivot.LevelError, err.Error())
	}
}

func (m *Model) removeTable() {
	names := m.session.TableNames()
	if m.tableCursor < 0 || m.tableCursor >= len(names) {
		return
	}
	name := names[m.tableCursor]
	if m.session.RemoveTable(name) && m.status == "" {
		m.setStatus(pivot.LevelInfo, fmt.Sprintf("removed table %q", name))
	}
}

func (m *Model) export() {
	path, err := loader.NextResultPath(m.cfg.ExportDir)
	if err != nil {
		m.setStatus(pivot.LevelError, err.Error())
		return
	}
	err = loader.Export(context.Background(), path, m.session.Result(), loader.ExportOptions{Sheet: m.cfg.Sheet})
	switch {
	case errors.Is(err, loader.ErrNothingToExport):
		m.setStatus(pivot.LevelWarning, "nothing to export")
	case err != nil:
		m.setStatus(pivot.LevelError, fmt.Sprintf("export failed: %v", err))
	default:
		m.setStatus(pivot.LevelInfo, "saved "+path)
	}
}

func (m *Model) clampCursors() {
	if n := len(m.session.Columns()); m.fieldCursor >= n {
		m.fieldCursor = maxInt(0, n-1)
	}
	if n := len(m.session.TableNames()); m.tableCursor >= n {
		m.tableCursor = maxInt(0, n-1)
	}
	if n := len(m.session.Fields(model.RoleFilter)); m.filterIndex >= n {
		m.filterIndex = maxInt(0, n-1)
	}
}

// notice receives session notifications; errors outrank warnings.
func (m *Model) notice(n pivot.Notice) {
	if m.status != "" && n.Level < m.statusLevel {
		return
	}
	if m.status != "" && n.Level == m.statusLevel {
		m.status += "; " + n.Message
		return
	}
	m.setStatus(n.Level, n.Message)
}

func (m *Model) setStatus(level pivot.Level, msg string) {
	m.status = msg
	m.statusLevel = level
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusLevel = pivot.LevelInfo
}

// stepChoice moves through choices followed by a cleared slot, wrapping at
// both ends.
func stepChoice(choices []string, current string, delta int) string {
	slots := len(choices) + 1
	pos := len(choices)
	for i, c := range choices {
		if c == current {
			pos = i
			break
		}
	}
	pos = ((pos+delta)%slots + slots) % slots
	if pos == len(choices) {
		return ""
	}
	return choices[pos]
}

func next[T comparable](list []T, current T) T {
	for i, v := range list {
		if v == current {
			return list[(i+1)%len(list)]
		}
	}
	return list[0]
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func markers(s *pivot.Session, field string) string {
	var b strings.Builder
	for _, role := range model.Roles {
		if contains(s.Fields(role), field) {
			b.WriteString(strings.ToUpper(string(role)[:1]))
		} else {
			b.WriteByte('.')
		}
	}
	left, right := s.JoinKeys()
	switch {
	case field == left && field == right:
		b.WriteString(" ⇄")
	case field == left:
		b.WriteString(" ←")
	case field == right:
		b.WriteString(" →")
	}
	return b.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
