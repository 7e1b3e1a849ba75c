package pivot

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/verte-zerg/tabcube/internal/model"
)

// Level classifies a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a user-visible message produced by a recomputation.
type Notice struct {
	Level   Level
	Message string
}

// Notifier receives notices as they are produced.
type Notifier func(Notice)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNotifier sets the notice callback.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		s.notify = n
	}
}

// WithOperator sets the initial aggregation operator.
func WithOperator(op model.AggOp) Option {
	return func(s *Session) {
		s.op = op
	}
}

// WithFormatMode sets the initial format mode.
func WithFormatMode(mode model.FormatMode) Option {
	return func(s *Session) {
		s.mode = mode
	}
}

// WithJoinKind sets the initial join kind.
func WithJoinKind(kind model.JoinKind) Option {
	return func(s *Session) {
		s.sel.SetJoinKind(kind)
	}
}

// Session owns the loaded tables, the selections and the latest result.
// Every mutator recomputes the result before returning. A Session is not
// safe for concurrent use.
type Session struct {
	tables  *Tables
	sel     *Selection
	filters map[string]string
	op      model.AggOp
	mode    model.FormatMode

	result   model.Result
	warnings []string
	err      error

	notify Notifier
	logger *slog.Logger
}

// NewSession returns a session showing the empty result.
func NewSession(opts ...Option) *Session {
	s := &Session{
		tables:  NewTables(),
		sel:     NewSelection(),
		filters: map[string]string{},
		op:      model.OpSum,
		mode:    model.FormatNumber,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.result = EmptyResult()
	return s
}

// LoadTable inserts or replaces a table.
func (s *Session) LoadTable(name string, t model.Table) error {
	if err := s.tables.Load(name, t); err != nil {
		return err
	}
	s.logger.Debug("table loaded", slog.String("table", name), slog.Int("rows", t.NumRows()), slog.Int("columns", t.NumColumns()))
	s.recompute()
	return nil
}

// RemoveTable unloads a table. Removing an unknown name is a no-op.
func (s *Session) RemoveTable(name string) bool {
	removed := s.tables.Remove(name)
	if removed {
		s.logger.Debug("table removed", slog.String("table", name))
	}
	s.recompute()
	return removed
}

// Assign adds a loaded column to a role.
func (s *Session) Assign(role model.Role, column string) error {
	if !s.tables.HasColumn(column) {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	added, err := s.sel.Assign(role, column)
	if err != nil {
		return err
	}
	if added && role == model.RoleFilter {
		s.filters[column] = ""
	}
	s.recompute()
	return nil
}

// Unassign removes a column from a role. Removing a filter column also
// clears its selection.
func (s *Session) Unassign(role model.Role, column string) error {
	removed, err := s.sel.Unassign(role, column)
	if err != nil {
		return err
	}
	if removed && role == model.RoleFilter {
		delete(s.filters, column)
	}
	s.recompute()
	return nil
}

// SetJoinKey sets or, with an empty column, clears one join key side.
func (s *Session) SetJoinKey(side model.JoinSide, column string) error {
	if column != "" && !s.tables.HasColumn(column) {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	if err := s.sel.SetJoinKey(side, column); err != nil {
		return err
	}
	s.recompute()
	return nil
}

// SetJoinKind sets the merge strategy.
func (s *Session) SetJoinKind(kind model.JoinKind) {
	s.sel.SetJoinKind(kind)
	s.recompute()
}

// SetFilter selects a value for a filter column; an empty value clears it.
func (s *Session) SetFilter(column, value string) error {
	if !s.sel.Has(model.RoleFilter, column) {
		return fmt.Errorf("%w: %q is not a filter field", ErrUnknownColumn, column)
	}
	s.filters[column] = value
	s.recompute()
	return nil
}

// ClearFilter removes the selection of a filter column.
func (s *Session) ClearFilter(column string) error {
	return s.SetFilter(column, "")
}

// SetOperator sets the aggregation operator.
func (s *Session) SetOperator(op model.AggOp) {
	s.op = op
	s.recompute()
}

// SetFormatMode sets the display format.
func (s *Session) SetFormatMode(mode model.FormatMode) {
	s.mode = mode
	s.recompute()
}

// Recompute reruns the pipeline and returns its error, if any. On error the
// previous result is kept.
func (s *Session) Recompute() error {
	s.recompute()
	return s.err
}

func (s *Session) recompute() {
	start := time.Now()
	out, err := Compute(s.state())
	if err != nil {
		s.err = err
		s.logger.Warn("recomputation aborted", slog.String("error", err.Error()))
		s.emit(LevelError, err.Error())
		return
	}
	s.err = nil
	s.result = out.Result
	s.warnings = out.Warnings
	for _, w := range out.Warnings {
		s.logger.Warn(w)
		s.emit(LevelWarning, w)
	}
	s.logger.Debug("result recomputed",
		slog.Int("tables", s.tables.Len()),
		slog.Int("joined_rows", out.Joined),
		slog.Int("rows", len(out.Result.Rows)),
		slog.Int("columns", len(out.Result.Columns)),
		slog.Duration("took", time.Since(start)),
	)
}

func (s *Session) state() State {
	return State{
		Tables:    s.tables,
		Selection: s.sel,
		Filters:   s.filters,
		Op:        s.op,
		Mode:      s.mode,
	}
}

func (s *Session) emit(level Level, msg string) {
	if s.notify != nil {
		s.notify(Notice{Level: level, Message: msg})
	}
}

// Result returns a copy of the latest successful result.
func (s *Session) Result() model.Result {
	return s.result.Clone()
}

// Err returns the error of the last recomputation, nil if it succeeded.
func (s *Session) Err() error {
	return s.err
}

// Warnings returns the warnings of the last successful recomputation.
func (s *Session) Warnings() []string {
	return append([]string(nil), s.warnings...)
}

// TableNames returns loaded table names in load order.
func (s *Session) TableNames() []string {
	return s.tables.Names()
}

// Table returns a loaded table.
func (s *Session) Table(name string) (model.Table, bool) {
	return s.tables.Get(name)
}

// Columns returns the sorted union of loaded column names.
func (s *Session) Columns() []string {
	return s.tables.Columns()
}

// DistinctValues returns the filter choices for a column.
func (s *Session) DistinctValues(column string) []string {
	return s.tables.DistinctValues(column)
}

// Fields returns the columns assigned to a role.
func (s *Session) Fields(role model.Role) []string {
	return s.sel.Fields(role)
}

// JoinKeys returns the configured key pair.
func (s *Session) JoinKeys() (left, right string) {
	return s.sel.JoinKeys()
}

// JoinKind returns the merge strategy.
func (s *Session) JoinKind() model.JoinKind {
	return s.sel.JoinKind()
}

// Filter returns the selection of a filter column.
func (s *Session) Filter(column string) string {
	return s.filters[column]
}

// Operator returns the aggregation operator.
func (s *Session) Operator() model.AggOp {
	return s.op
}

// FormatMode returns the display format.
func (s *Session) FormatMode() model.FormatMode {
	return s.mode
}
