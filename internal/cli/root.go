// Package cli implements the venueplus command line.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SpheneDev/VenuePlus-sub000/internal/config"
	"github.com/SpheneDev/VenuePlus-sub000/internal/logging"
)

var (
	cfgFile        string
	logLevel       string
	logFormat      string
	jsonOutput     bool
	jsonlOutput    bool
	noColor        bool
	noProgress     bool
	nonInteractive bool

	appConfig    *config.Config
	configLoader *config.Loader
	version      = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "venueplus",
	Short: "Chat macro runner for venue hosts",
	Long: `venueplus compiles chat macros into timed send steps and delivers them
while respecting the chat flood limits: whispers at most once per second,
public chat at most six lines per second, and a short pause after every
fifteen lines.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/venueplus/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "log format (console, json)")
	pf.BoolVar(&jsonOutput, "json", false, "output JSON")
	pf.BoolVar(&jsonlOutput, "jsonl", false, "output JSON lines")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&noProgress, "no-progress", false, "disable progress output")
	pf.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; fail instead")
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	rootCmd.Version = version
	return rootCmd.Execute()
}

// Main runs the CLI and exits with the right status code.
func Main(v string) {
	if err := Execute(v); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Err != nil {
				fmt.Fprintln(os.Stderr, "Error:", exitErr.Err)
			}
			os.Exit(exitErr.Code)
		}
		printError(err)
		os.Exit(1)
	}
}

func initConfig() error {
	loader := config.NewLoader(cfgFile)
	if strings.TrimSpace(logLevel) != "" {
		loader.Set("logging.level", logLevel)
	}
	if strings.TrimSpace(logFormat) != "" {
		loader.Set("logging.format", logFormat)
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	if err := logging.Init(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		NoColor: noColor,
	}); err != nil {
		return err
	}

	configLoader = loader
	appConfig = cfg
	return nil
}

// GetConfig returns the loaded configuration, or nil before initConfig ran.
func GetConfig() *config.Config {
	return appConfig
}
