package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetbridge/internal/admin"
	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/layout"
)

func newPreviewCmd(c *cli) *cobra.Command {
	var (
		sample     int
		schemaOnly bool
	)
	cmd := &cobra.Command{
		Use:   "preview <spreadsheet-id>",
		Short: "Print the dataset a transfer would push, without pushing it",
		Long: "Builds the dataset from every sheet and prints its canonical JSON to stdout.\n" +
			"Skipped sheets and decode problems are logged to stderr.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.app(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			p, err := app.Service.Preview(cmd.Context(), args[0], sample)
			if err != nil {
				return err
			}
			for _, s := range p.Skipped {
				c.logger.Warn("sheet skipped", "sheet", s.Name, "error", s.Err)
			}
			c.logger.Info("preview built",
				"dataset", p.Dataset.Name,
				"tables", len(p.Dataset.Tables),
				"rows", p.TotalRows,
				"schema_faults", p.SchemaFaults,
				"decode_faults", p.DecodeFaults,
			)

			out := p.Dataset
			if schemaOnly {
				out = p.Dataset.Schema()
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&sample, "sample", -1, "rows kept per table (-1 keeps all)")
	cmd.Flags().BoolVar(&schemaOnly, "schema", false, "print the compacted schema only (what dataset creation sends)")
	return cmd
}

func newPushCmd(c *cli) *cobra.Command {
	var req core.TransferRequest
	cmd := &cobra.Command{
		Use:   "push <spreadsheet-id>",
		Short: "Build the dataset and push it to the configured sink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Replace && req.DatasetID == "" {
				return fmt.Errorf("--replace needs --dataset-id")
			}
			app, err := c.app(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer app.Close()

			req.SpreadsheetID = args[0]
			run, err := app.Service.Transfer(cmd.Context(), req)
			if perr := printJSON(cmd.OutOrStdout(), run); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&req.DatasetID, "dataset-id", "", "append to this existing dataset instead of creating one")
	cmd.Flags().BoolVar(&req.Replace, "replace", false, "delete the rows of every table before appending")
	cmd.Flags().StringVar(&req.ReportID, "report-id", "", "report the dataset belongs to (recorded in history)")
	return cmd
}

func newRunsCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recent transfer runs, or show one",
		Long:  "Reads the run history. Without DATABASE_URL the history lives in the server process and is empty here.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.app(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			if len(args) == 1 {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid run id: %w", err)
				}
				run, err := app.Service.GetRun(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), run)
			}

			if limit <= 0 {
				limit = c.cfg.History.ListLimit
			}
			runs, err := app.Service.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tSPREADSHEET\tDATASET\tROWS\tERROR")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					r.ID, r.StartedAt.Format(time.RFC3339), r.Status,
					r.SpreadsheetID, r.DatasetID, r.Rows, r.ErrorCode)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum runs listed (default HISTORY_LIST_LIMIT)")
	return cmd
}

func newResetCmd(c *cli) *cobra.Command {
	var (
		datasetID string
		tables    []string
	)
	cmd := &cobra.Command{
		Use:   "reset [spreadsheet-id]",
		Short: "Delete every row of a pushed dataset's tables",
		Long: "Clears the tables of --dataset-id. Table names come from --table, or from the\n" +
			"sheets of the given spreadsheet when no --table is passed.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if datasetID == "" {
				return fmt.Errorf("--dataset-id is required")
			}
			if len(tables) == 0 && len(args) == 0 {
				return fmt.Errorf("pass a spreadsheet id or at least one --table")
			}
			app, err := c.app(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer app.Close()

			if len(tables) == 0 {
				ds, _, err := app.Service.BuildDataset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, t := range ds.Tables {
					tables = append(tables, t.Name)
				}
			}

			r := &admin.Reset{Sink: app.Sink, Runs: app.Runs, Logger: c.logger}
			if err := r.ResetTables(cmd.Context(), datasetID, tables); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d table(s) in %s\n", len(tables), datasetID)
			return nil
		},
	}
	cmd.Flags().StringVar(&datasetID, "dataset-id", "", "dataset to clear")
	cmd.Flags().StringSliceVar(&tables, "table", nil, "table to clear (repeatable)")
	return cmd
}

func newPurgeCmd(c *cli) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete finished runs from the history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				olderThan = time.Duration(c.cfg.History.RetentionDays) * 24 * time.Hour
			}
			app, err := c.app(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			r := &admin.Reset{Runs: app.Runs, Logger: c.logger}
			n, err := r.PurgeHistory(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d run(s)\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "age cutoff (default HISTORY_RETENTION_DAYS)")
	return cmd
}

func newLayoutsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layouts",
		Short: "List the built-in sheet layouts",
		Args:  cobra.NoArgs,
		// Listing needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tHEADER\tDESCRIPTION")
			for _, name := range layout.Names() {
				l, _ := layout.Get(name)
				fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Name, l.Header.Policy, l.Description)
			}
			return tw.Flush()
		},
	}
}
