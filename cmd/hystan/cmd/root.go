package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/makoty26/HysteresisAnalyzer/src/config"
	"github.com/makoty26/HysteresisAnalyzer/src/logging"
)

// app carries state shared by all subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "hystan",
		Short: "Render hysteresis measurements into a chart gallery",
		Long: `hystan reads measurement files named RcpNo=1(Hp-R)_ElmNo=<N>.csv for N = 1..ELM_NO_MAX,
draws one dual-axis chart per file (a blank placeholder when the file is missing), tiles the
charts into composite images and publishes them as a single HTML gallery.

Settings come from an optional YAML file, then environment variables
(CSV_DIR, X_COLUMN, Y_COLUMN1, Y_COLUMN2, FIGSIZE, SAVE_PATH, CHARTS_PER_IMAGE, ELM_NO_MAX),
then command-line flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			level := cfg.LogLevel
			if cmd.Flags().Changed("log-level") {
				level = a.logLevel
			}
			logging.SetLogLevel(level)
			return applyFlags(cmd, cfg)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		newBuildCmd(a),
		newScanCmd(a),
		newSummarizeCmd(a),
		newGalleryCmd(a),
		newChartsCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
	)
	return root
}

// Execute runs the root command with interrupt handling.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
