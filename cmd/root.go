package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"codenarrate/internal/config"
	"codenarrate/internal/logging"
)

var (
	verbose bool
	quiet   bool
	logFile string
	envFile string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "codenarrate",
	Short: "Highlight the code an explanation is talking about while it plays",
	Long: `codenarrate tokenizes a source snippet, matches the words of a spoken explanation
against its tokens, and builds a time-indexed highlight track from per-word audio timing.
The track can be printed, played in the terminal, or served to a remote renderer.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		return setupLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func setupLogging() error {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if quiet {
		level = "error"
	}
	file := cfg.LogFile
	if logFile != "" {
		file = logFile
	}

	logger, closer, err := logging.New(level, file)
	if err != nil {
		return err
	}
	logCloser = closer
	slog.SetDefault(logger)
	return nil
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write JSON logs to this rotating file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load settings from this .env file (default ./.env if present)")
}
