// Package cli implements the lastword command line
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lcrostarosa/lastword/internal/cli/runner"
	"github.com/lcrostarosa/lastword/internal/config"
	"github.com/lcrostarosa/lastword/internal/logging"
)

var (
	// Version is set at build time
	Version = "0.1.0"

	// App state
	cfg    *config.Config
	cfgErr error

	configDir string
	logLevel  string

	runners = runner.NewBuilder(func() (*config.Config, error) { return cfg, cfgErr })
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "lastword",
	Short: "Dead man's switch: reminders while you are around, a last message when you are not",
	Long: `lastword emails you a check-in link on a schedule. Clicking it proves you
are still around. When no check-in arrives for the configured number of days,
your beneficiaries receive the final message you prepared.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit code through cobra
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// Execute runs the CLI and returns the process exit code
func Execute() int {
	defer func() { _ = logging.Sync() }()

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			PrintError("%v", exit.err)
		}
		return exit.code
	}
	PrintError("%v", err)
	return 1
}

// SetVersion sets the version string
func SetVersion(v string) {
	Version = v
	rootCmd.Version = v
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configDir, "config-dir", "", "Configuration directory (default: $LASTWORD_HOME or ~/.lastword)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func initConfig() {
	cfg, cfgErr = config.Load(configDir)
}

func initLogging() {
	logCfg := logging.DefaultConfig()
	if cfg != nil {
		logCfg = cfg.Log
	}
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	if err := logging.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logging: %v\n", err)
		logging.InitDefault()
	}
}
