// =============================================================================
// PO Budget Report - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every report command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   pobudget
//   ├── summary   (overview and category breakdowns)
//   ├── query     (one internal order or budget executor)
//   ├── compare   (current version against a previous one)
//   ├── export    (filtered PO lines to CSV or XLSX)
//   ├── validate  (check configuration and data file)
//   └── version
//
// CONFIGURATION:
//   Before any report command runs, the root command:
//   1. Loads the configuration file (--config, missing file = defaults)
//   2. Sets up logging on stderr (--verbose forces debug level)
//   3. Creates the aggregation engine with its result cache
//
// Reports are written to stdout; logs never are.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ginjaninja78/po-budget-report/internal/config"
	"github.com/ginjaninja78/po-budget-report/internal/engine"
	"github.com/ginjaninja78/po-budget-report/internal/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// =============================================================================
// APPLICATION STATE
// =============================================================================

// app holds the global flags and what the root command sets up from them.
type app struct {
	// configPath is the path to the main configuration file.
	// This can be overridden using the --config flag.
	configPath string

	// verbose enables debug logging when set to true.
	verbose bool

	cfg    *config.MainConfig
	logger *log.Logger
	engine *engine.Engine
}

// setup loads the configuration and builds the logger and engine.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadMainConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if a.verbose {
		level = slog.LevelDebug
	}

	logger := log.New(log.Config{
		Level:     level,
		Component: log.ComponentCLI,
		Format:    cfg.LogFormat,
		Output:    cmd.ErrOrStderr(),
	}).With(log.FieldRunID, uuid.NewString())
	log.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	a.engine = engine.New(
		engine.WithCacheSize(cfg.EngineCacheSize()),
		engine.WithLogger(logger),
	)

	logger.Debug("configuration loaded", log.FieldConfig, a.configPath)
	return nil
}

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pobudget",
		Short: "PO Budget Report - summarize and compare purchase-order budget data",
		Long: `PO Budget Report reads a purchase-order line report (.xlsx or .csv),
summarizes budget figures by category and compares two versions of the
report to surface what changed.

Key Features:
  - Totals and breakdowns by brand, touchpoint, status and line type
  - Drill-down into one internal order or budget executor
  - Version comparison by PO, brand or executor, with a simulated
    previous version when none is supplied
  - Filtered export of PO lines to CSV or XLSX

Example Usage:
  pobudget summary                              # Report on the configured data file
  pobudget query --io IO-1001                   # One internal order
  pobudget compare --previous last_month.xlsx   # Compare two versions
  pobudget export --status Open --format xlsx   # Export open lines`,

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},

		// Without a subcommand, print the help message.
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================
	// Persistent flags are available to this command and all subcommands.

	// --config flag: Allows the user to specify a custom configuration file.
	rootCmd.PersistentFlags().StringVar(
		&a.configPath,
		"config",
		config.DefaultPath,
		"Path to the main configuration file",
	)

	// --verbose flag: Enables debug logging.
	rootCmd.PersistentFlags().BoolVarP(
		&a.verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)

	rootCmd.AddCommand(
		newSummaryCmd(a),
		newQueryCmd(a),
		newCompareCmd(a),
		newExportCmd(a),
		newValidateCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main(). Interrupts cancel the
// command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
