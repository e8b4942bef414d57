package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/v0xg/navaz/internal/config"
	"github.com/v0xg/navaz/internal/engine"
	"github.com/v0xg/navaz/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	verbose  bool

	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "navaz",
		Short: "Keyboard navigation for web pages by headings, links and landmarks",
		Long: `navaz attaches a keyboard navigator to a web page. Press h to jump between
headings, l between links and m between landmarks; ArrowUp and ArrowDown
choose the direction.

Examples:
  navaz open https://example.com
  navaz scan page.html --json
  navaz record https://example.com --keys "h,h,ArrowUp,l" -o tour.gif`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./navaz.yaml or ~/.config/navaz/navaz.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, silent")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	rootCmd.AddCommand(openCmd, scanCmd, recordCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// setup loads .env, the config file and the logger before any command runs
func setup(cmd *cobra.Command, args []string) error {
	// .env is optional
	if err := config.LoadEnv(); err != nil {
		return err
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// -v beats the configured level, --log-level beats both
	level := logLevel
	if level == "" && !verbose {
		level = cfg.Logging.Level
	}
	logger = logging.NewStderrLogger(logging.LevelFromVerbosity(verbose, level))
	return nil
}

// engineOptions builds engine options from the loaded config
func engineOptions() (engine.Options, error) {
	km, err := cfg.Keymap()
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		RowTolerance:   cfg.Navigation.RowTolerance,
		DebounceWindow: cfg.DebounceWindow(),
		HighlightClass: cfg.Navigation.HighlightClass,
		Keys:           km,
		Logger:         logger,
	}, nil
}

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}
