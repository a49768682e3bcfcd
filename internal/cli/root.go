// Package cli wires the insulinctl cobra commands to the app layer.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"insulin-calc/internal/app"
	"insulin-calc/internal/config"
	"insulin-calc/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	verbose   bool
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:   "insulinctl",
	Short: "Calculate insulin doses and export the calculation history",
	Long: "insulinctl computes correction and carb insulin doses, keeps a local history " +
		"of calculations and exports it as a PDF report.\n\n" +
		"For informational purposes only. NOT medical advice.",
	SilenceUsage:      true,
	PersistentPreRunE: initApp,
}

// initApp loads configuration once and builds the shared App handle.
func initApp(cmd *cobra.Command, _ []string) error {
	if appHandle != nil {
		return nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	switch {
	case logLevel != "":
		cfg.Logging.Level = logLevel
	case verbose:
		cfg.Logging.Level = "debug"
	}

	appHandle = app.NewApp(cfg, logging.NewLogger(cfg.Logging))
	appHandle.Out = cmd.OutOrStdout()
	appHandle.In = cmd.InOrStdin()
	return nil
}

// Execute runs insulinctl and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "insulinctl:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file (default ./config.yaml or $XDG_CONFIG_HOME/insulin-calc/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "Override logging.level from config")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Shorthand for --log-level=debug")

	rootCmd.AddCommand(
		calculateCmd,
		historyCmd,
		exportCmd,
		clearCmd,
		settingsCmd,
		permissionCmd,
		versionCmd,
	)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("insulinctl: command ran before initApp")
	}
	return appHandle
}
