package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AaronLay10/verifypanel/internal/config"
	"github.com/AaronLay10/verifypanel/internal/logging"
	"github.com/AaronLay10/verifypanel/internal/version"
)

// exitError carries a process exit code without printing an error.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app is the state shared by all subcommands after PersistentPreRunE.
type app struct {
	configPath string
	debug      bool

	cfg    *config.PanelConfig
	logger *zap.Logger
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "verifypanel",
		Short:         "Staged verification panel",
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.configPath == "" {
				a.configPath = os.Getenv("PANEL_CONFIG")
			}
			cfg, err := config.LoadOrDefault(a.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging, a.debug)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(stdout)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to panel.yaml (default $PANEL_CONFIG)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(serveCmd(a))
	root.AddCommand(runCmd(a))
	root.AddCommand(themeCmd(a))
	root.AddCommand(versionCmd())
	return root
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
