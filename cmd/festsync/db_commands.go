package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"festsync/internal/store"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance and inspection",
	}

	dbCmd.AddCommand(newDBInitCommand(ctx))
	dbCmd.AddCommand(newDBVerifyCommand(ctx))
	dbCmd.AddCommand(newDBInspectCommand(ctx))
	dbCmd.AddCommand(newDBQueryCommand(ctx))

	return dbCmd
}

func newDBInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(cmd, store.SkipMigrations())
			if err != nil {
				return err
			}
			defer st.Close()

			applied, err := st.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]int{"applied": applied})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migrations\n", applied)
			return nil
		},
	}
}

func newDBVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check core tables and referential integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(cmd, store.ReadOnly(), store.SkipMigrations())
			if err != nil {
				return err
			}
			defer st.Close()

			missing, err := st.MissingTables(cmd.Context())
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf("missing tables: %s (run festsync db init)", strings.Join(missing, ", "))
			}
			counts, err := st.TableCounts(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, count := range counts {
				fmt.Fprintf(out, "%s=%d\n", count.Table, count.Rows)
			}
			orphans, err := st.OrphanScreenings(cmd.Context())
			if err != nil {
				return err
			}
			if orphans > 0 {
				return fmt.Errorf("orphan screenings found: %d", orphans)
			}
			fmt.Fprintln(out, "verify=ok")
			return nil
		},
	}
}

type tableCountView struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

type runView struct {
	RunID     string `json:"runId"`
	Locale    string `json:"locale"`
	Status    string `json:"status"`
	StartedAt string `json:"startedAt"`
	EndedAt   string `json:"endedAt,omitempty"`
	Stats     string `json:"stats,omitempty"`
	Error     string `json:"error,omitempty"`
}

type inspectView struct {
	Tables []tableCountView `json:"tables"`
	Runs   []runView        `json:"runs"`
}

func newDBInspectCommand(ctx *commandContext) *cobra.Command {
	var runLimit int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show table sizes and recent ingest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(cmd, store.ReadOnly(), store.SkipMigrations())
			if err != nil {
				return err
			}
			defer st.Close()

			counts, err := st.TableCounts(cmd.Context())
			if err != nil {
				return err
			}
			runs, err := st.RecentRuns(cmd.Context(), runLimit)
			if err != nil {
				return err
			}

			view := inspectView{Tables: []tableCountView{}, Runs: []runView{}}
			for _, count := range counts {
				view.Tables = append(view.Tables, tableCountView{Table: count.Table, Rows: count.Rows})
			}
			for _, run := range runs {
				view.Runs = append(view.Runs, newRunView(run))
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			tableRows := make([][]string, 0, len(view.Tables))
			for _, count := range view.Tables {
				tableRows = append(tableRows, []string{count.Table, strconv.FormatInt(count.Rows, 10)})
			}
			fmt.Fprintln(out, renderTable([]string{"Table", "Rows"}, tableRows, []columnAlignment{alignLeft, alignRight}))

			if len(view.Runs) == 0 {
				fmt.Fprintln(out, "No ingest runs recorded.")
				return nil
			}
			color := colorEnabled(out)
			runRows := make([][]string, 0, len(view.Runs))
			for _, run := range view.Runs {
				runRows = append(runRows, []string{
					run.RunID,
					run.Locale,
					colorizeStatus(run.Status, color),
					run.StartedAt,
					run.EndedAt,
					run.Error,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Locale", "Status", "Started", "Ended", "Error"},
				runRows,
				nil,
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&runLimit, "runs", 5, "Number of recent runs to show")
	return cmd
}

func newRunView(run store.Run) runView {
	view := runView{
		RunID:     run.ID,
		Locale:    run.Locale,
		Status:    run.Status,
		StartedAt: run.StartedAt.UTC().Format(time.RFC3339),
		Stats:     run.StatsJSON,
		Error:     run.ErrorText,
	}
	if run.EndedAt != nil {
		view.EndedAt = run.EndedAt.UTC().Format(time.RFC3339)
	}
	return view
}

func newDBQueryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "query <SELECT statement>",
		Short: "Run a read-only SQL query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statement := strings.TrimSpace(strings.Join(args, " "))
			if statement == "" {
				return errors.New("query statement is required")
			}
			st, err := ctx.openStore(cmd, store.ReadOnly(), store.SkipMigrations())
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := st.Query(cmd.Context(), statement)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				records := make([]map[string]any, 0, len(result.Rows))
				for _, row := range result.Rows {
					record := make(map[string]any, len(result.Columns))
					for i, column := range result.Columns {
						record[column] = row[i]
					}
					records = append(records, record)
				}
				return writeJSON(cmd, records)
			}

			out := cmd.OutOrStdout()
			if len(result.Rows) == 0 {
				fmt.Fprintln(out, "No rows returned.")
				return nil
			}
			rows := make([][]string, 0, len(result.Rows))
			for _, row := range result.Rows {
				cells := make([]string, len(row))
				for i, value := range row {
					cells[i] = formatCell(value)
				}
				rows = append(rows, cells)
			}
			fmt.Fprintln(out, renderTable(result.Columns, rows, nil))
			fmt.Fprintf(out, "rows=%d\n", len(result.Rows))
			return nil
		},
	}
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
