package main

import (
	"context"
	"os"

	"github.com/desertthunder/fitplay/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{
		ConfigPath: "config.toml",
		EnvFile:    ".env",
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "fitplay",
		Usage:    "Spotify and YouTube playback for workout sessions",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
