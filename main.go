package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jamesmcarthur-3999/taskerino-sub000/cmd"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/conf"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}

	if settings.Main.Log.Enabled {
		logger, closer, err := logging.NewFileLogger(
			settings.Main.Log.Path, settings.Main.Name,
			slog.LevelInfo, logging.DefaultRotation())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = closer() }()
		slog.SetDefault(logger)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
