// Package main is the entry point for the inventory tracker.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/inventory-tracker/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running it without a subcommand
// starts the terminal UI.
func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "inventory",
		Short: "Track inventory items from the terminal",
		Long: `inventory keeps a single list of items (name, quantity, price) and
stores it on disk after every change.

Run without arguments to open the terminal UI.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if configFile == "" {
				return nil
			}
			return os.Setenv(config.EnvConfigFile, configFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "",
		"YAML config file (same as "+config.EnvConfigFile+")")

	root.AddCommand(newTUICmd(), newServeCmd(), newListCmd())
	return root
}

// initLogger initializes a JSON zap logger at level writing to outputPaths,
// or stdout when none are given.
func initLogger(level string, outputPaths ...string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}
