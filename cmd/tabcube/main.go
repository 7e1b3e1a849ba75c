// Package main provides the CLI entrypoint for tabcube.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tabcube/internal/config"
	"github.com/verte-zerg/tabcube/internal/loader"
	"github.com/verte-zerg/tabcube/internal/model"
	"github.com/verte-zerg/tabcube/internal/pivot"
	"github.com/verte-zerg/tabcube/internal/report"
	"github.com/verte-zerg/tabcube/internal/tui"
)

const (
	defaultJoin      = "inner"
	defaultOperation = "sum"
	defaultFormat    = "number"
)

var (
	optJoin      string
	optOperation string
	optFormat    string
	optExportDir string
	optSheet     string
	optVerbose   bool

	pivotRows      []string
	pivotValues    []string
	pivotFilters   []string
	pivotWhere     []string
	pivotLeftKey   string
	pivotRightKey  string
	pivotExport    string
	pivotTableName string
	pivotChart     bool

	valuesColumn string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tabcube [files...]",
		Short:         "Interactive pivot tables over spreadsheets, CSV and SQLite",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runShellCmd,
	}

	rootCmd.PersistentFlags().StringVar(&optJoin, "join", defaultJoin, "join kind: inner, left, right or outer")
	rootCmd.PersistentFlags().StringVar(&optOperation, "op", defaultOperation, "aggregation: sum, count, max, min or average")
	rootCmd.PersistentFlags().StringVar(&optFormat, "format", defaultFormat, "display format: number, integer, date or time")
	rootCmd.PersistentFlags().StringVar(&optExportDir, "export-dir", config.DefaultExportDir(), "directory for result_N.xlsx files")
	rootCmd.PersistentFlags().StringVar(&optSheet, "sheet", loader.DefaultSheet, "worksheet name for exported workbooks")
	rootCmd.PersistentFlags().BoolVarP(&optVerbose, "verbose", "v", false, "log recomputations to stderr")

	rootCmd.AddCommand(newPivotCmd())
	rootCmd.AddCommand(newColumnsCmd())
	rootCmd.AddCommand(newValuesCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// settings merges config file values under explicitly set flags and
// validates the result.
func settings(cmd *cobra.Command) (config.Settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "join", &optJoin, fileCfg.Pivot.Join)
	applyStringConfig(cmd, "op", &optOperation, fileCfg.Pivot.Operation)
	applyStringConfig(cmd, "format", &optFormat, fileCfg.Pivot.Format)
	applyStringConfig(cmd, "export-dir", &optExportDir, fileCfg.Export.Dir)
	applyStringConfig(cmd, "sheet", &optSheet, fileCfg.Export.Sheet)

	s := config.Settings{
		Join:      strings.ToLower(strings.TrimSpace(optJoin)),
		Operation: strings.ToLower(strings.TrimSpace(optOperation)),
		Format:    strings.ToLower(strings.TrimSpace(optFormat)),
		ExportDir: config.ExpandHome(optExportDir),
		Sheet:     optSheet,
	}
	if err := s.Validate(); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}

func sessionOptions(s config.Settings, logger *slog.Logger) ([]pivot.Option, error) {
	join, err := model.ParseJoinKind(s.Join)
	if err != nil {
		return nil, err
	}
	op, err := model.ParseAggOp(s.Operation)
	if err != nil {
		return nil, err
	}
	mode, err := model.ParseFormatMode(s.Format)
	if err != nil {
		return nil, err
	}
	return []pivot.Option{
		pivot.WithJoinKind(join),
		pivot.WithOperator(op),
		pivot.WithFormatMode(mode),
		pivot.WithLogger(logger),
	}, nil
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelError
	if optVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadFiles(ctx context.Context, paths []string) ([]loader.NamedTable, error) {
	var out []loader.NamedTable
	for _, path := range paths {
		tables, err := loader.Load(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		out = append(out, tables...)
	}
	return out, nil
}

func runShellCmd(cmd *cobra.Command, args []string) error {
	s, err := settings(cmd)
	if err != nil {
		return err
	}
	tables, err := loadFiles(cmd.Context(), args)
	if err != nil {
		return err
	}

	cfg := tui.Config{
		Join:      model.JoinKind(s.Join),
		ExportDir: s.ExportDir,
		Sheet:     s.Sheet,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if cfg.Operator, err = model.ParseAggOp(s.Operation); err != nil {
		return err
	}
	if cfg.Format, err = model.ParseFormatMode(s.Format); err != nil {
		return err
	}
	program := tea.NewProgram(tui.NewModel(cfg, tables), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newPivotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pivot files...",
		Short: "Compute a pivot once and print it",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPivotCmd,
	}
	cmd.Flags().StringSliceVar(&pivotRows, "row", nil, "row field (repeatable)")
	cmd.Flags().StringSliceVar(&pivotValues, "value", nil, "value field (repeatable)")
	cmd.Flags().StringSliceVar(&pivotFilters, "filter", nil, "filter field (repeatable)")
	cmd.Flags().StringArrayVar(&pivotWhere, "where", nil, "filter choice as column=value (repeatable)")
	cmd.Flags().StringVar(&pivotLeftKey, "left-key", "", "join key in the accumulated table")
	cmd.Flags().StringVar(&pivotRightKey, "right-key", "", "join key in each incoming table")
	cmd.Flags().StringVar(&pivotExport, "export", "", "write the result to .xlsx, .csv or .db (use - for the next result_N.xlsx)")
	cmd.Flags().StringVar(&pivotTableName, "table", "", "table name when exporting to SQLite")
	cmd.Flags().BoolVar(&pivotChart, "chart", false, "draw a bar chart of the first numeric column")
	return cmd
}

func runPivotCmd(cmd *cobra.Command, args []string) error {
	s, err := settings(cmd)
	if err != nil {
		return err
	}
	opts, err := sessionOptions(s, newLogger(os.Stderr))
	if err != nil {
		return err
	}
	tables, err := loadFiles(cmd.Context(), args)
	if err != nil {
		return err
	}

	session := pivot.NewSession(opts...)
	for _, nt := range tables {
		if err := session.LoadTable(nt.Name, nt.Table); err != nil {
			return err
		}
	}
	if err := applySelection(session); err != nil {
		return err
	}
	if err := session.Recompute(); err != nil {
		return err
	}
	for _, w := range session.Warnings() {
		logErrf("warning: %s\n", w)
	}

	res := session.Result()
	if err := report.Render(cmd.OutOrStdout(), res); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if pivotChart {
		bars, title := report.BarsFromResult(res)
		if len(bars) == 0 {
			logErrf("nothing to chart\n")
		} else if err := report.RenderBars(cmd.OutOrStdout(), "\n"+title, bars, 0); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
	}
	if pivotExport == "" {
		return nil
	}
	path := pivotExport
	if path == "-" {
		if path, err = loader.NextResultPath(s.ExportDir); err != nil {
			return err
		}
	}
	if err := loader.Export(cmd.Context(), path, res, loader.ExportOptions{Sheet: s.Sheet, Table: pivotTableName}); err != nil {
		if errors.Is(err, loader.ErrNothingToExport) {
			return fmt.Errorf("nothing to export")
		}
		return fmt.Errorf("failed to export: %w", err)
	}
	logErrf("Wrote %s\n", path)
	return nil
}

// applySelection feeds the flag selections into the session. Mutations
// recompute as they go; only the final state matters here.
func applySelection(session *pivot.Session) error {
	assign := func(role model.Role, cols []string) error {
		for _, c := range cols {
			if err := session.Assign(role, strings.TrimSpace(c)); err != nil {
				return fmt.Errorf("--%s: %w", role, err)
			}
		}
		return nil
	}
	if err := assign(model.RoleRow, pivotRows); err != nil {
		return err
	}
	if err := assign(model.RoleValue, pivotValues); err != nil {
		return err
	}
	for _, w := range pivotWhere {
		col, _, ok := strings.Cut(w, "=")
		if !ok {
			return fmt.Errorf("invalid --where %q (want column=value)", w)
		}
		if col = strings.TrimSpace(col); !contains(pivotFilters, col) {
			pivotFilters = append(pivotFilters, col)
		}
	}
	if err := assign(model.RoleFilter, pivotFilters); err != nil {
		return err
	}
	for _, w := range pivotWhere {
		col, val, _ := strings.Cut(w, "=")
		if err := session.SetFilter(strings.TrimSpace(col), val); err != nil {
			return fmt.Errorf("--where: %w", err)
		}
	}
	if pivotLeftKey != "" {
		if err := session.SetJoinKey(model.SideLeft, pivotLeftKey); err != nil {
			return fmt.Errorf("--left-key: %w", err)
		}
	}
	if pivotRightKey != "" {
		if err := session.SetJoinKey(model.SideRight, pivotRightKey); err != nil {
			return fmt.Errorf("--right-key: %w", err)
		}
	}
	return nil
}

func newColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns files...",
		Short: "List the columns of the loaded tables",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runColumnsCmd,
	}
}

func runColumnsCmd(cmd *cobra.Command, args []string) error {
	session, err := loadSession(cmd, args)
	if err != nil {
		return err
	}
	return printLines(cmd.OutOrStdout(), session.Columns())
}

func newValuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "values files...",
		Short: "List the distinct values of a column",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runValuesCmd,
	}
	cmd.Flags().StringVar(&valuesColumn, "column", "", "column name")
	if err := cmd.MarkFlagRequired("column"); err != nil {
		panic(err)
	}
	return cmd
}

func runValuesCmd(cmd *cobra.Command, args []string) error {
	session, err := loadSession(cmd, args)
	if err != nil {
		return err
	}
	if !contains(session.Columns(), valuesColumn) {
		return fmt.Errorf("unknown column %q", valuesColumn)
	}
	return printLines(cmd.OutOrStdout(), session.DistinctValues(valuesColumn))
}

func loadSession(cmd *cobra.Command, args []string) (*pivot.Session, error) {
	tables, err := loadFiles(cmd.Context(), args)
	if err != nil {
		return nil, err
	}
	session := pivot.NewSession(pivot.WithLogger(newLogger(os.Stderr)))
	for _, nt := range tables {
		if err := session.LoadTable(nt.Name, nt.Table); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func printLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tabcube configuration
# Uncomment a value to enable it. CLI flags override config values.

[pivot]
# join = %q          # inner, left, right or outer
# operation = %q       # sum, count, max, min or average
# format = %q       # number, integer, date or time

[export]
# dir = %q    # Directory for result_N.xlsx
# sheet = %q      # Worksheet name
`,
		defaultJoin,
		defaultOperation,
		defaultFormat,
		config.DefaultExportDir(),
		loader.DefaultSheet,
	)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
