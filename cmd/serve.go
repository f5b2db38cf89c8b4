package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/fitplay/internal/server"
	"github.com/desertthunder/fitplay/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP server, the host page bridge and both controllers until interrupted.
//
// With --tui the terminal UI runs in the foreground and quitting it stops the server.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	withTUI := cmd.Bool("tui")
	if withTUI {
		fileLogger, closer, err := shared.NewFileLogger(cmd.String("log-file"))
		if err != nil {
			return err
		}
		defer closer.Close()
		if err := shared.SetLogLevel(fileLogger, r.config.Log.Level); err != nil {
			return err
		}
		r.SetLogger(fileLogger)
	}

	a, err := newApp(ctx, r.config, r.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			r.logger.Warn("failed to close app", "error", err)
		}
	}()

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe(ctx, r.config.Server.Addr(), a.handler, r.logger)
	}()

	if !cmd.Bool("no-browser") {
		if err := r.openURL(r.config.Server.Origin); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
			r.writePlain("Open %s in your browser to start playback\n", r.config.Server.Origin)
		}
	}

	if withTUI {
		if err := r.runTUI(ctx, a); err != nil {
			return err
		}
		stop()
		return <-errs
	}

	r.writePlain("fitplay listening on %s (Ctrl+C to stop)\n", r.config.Server.Origin)
	if err := <-errs; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
