package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetbridge/internal/application"
	"github.com/JonMunkholm/sheetbridge/internal/config"
	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/logging"
)

// cli carries the state shared by every subcommand.
type cli struct {
	envFile  string
	logLevel string
	layout   string
	xlsxDir  string

	cfg    *config.Config
	logger *slog.Logger
}

func execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		msg := core.MapError(err)
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		if msg.Code != "ERR000" {
			fmt.Fprintf(root.ErrOrStderr(), "  %s: %s\n", msg.Code, msg.Action)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "sheetctl",
		Short:         "Turn spreadsheets into typed push datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the environment (missing file is ignored)")
	flags.StringVar(&c.logLevel, "log-level", "", "override LOG_LEVEL")
	flags.StringVar(&c.layout, "layout", "", "sheet layout name (overrides TRANSFER_LAYOUT)")
	flags.StringVar(&c.xlsxDir, "xlsx-dir", "", "read .xlsx workbooks from this directory instead of Google Sheets")

	root.AddCommand(
		newPreviewCmd(c),
		newPushCmd(c),
		newRunsCmd(c),
		newResetCmd(c),
		newPurgeCmd(c),
		newLayoutsCmd(),
	)
	return root
}

// setup loads the environment and configuration. Logs go to stderr so
// stdout only ever carries command output.
func (c *cli) setup(cmd *cobra.Command) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}
	if c.logLevel != "" {
		if err := os.Setenv("LOG_LEVEL", c.logLevel); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

func (c *cli) app(ctx context.Context, withSink bool) (*application.App, error) {
	return application.New(ctx, c.cfg, application.Options{
		XLSXDir:     c.xlsxDir,
		WithoutSink: !withSink,
		Layout:      c.layout,
		Logger:      c.logger,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
