// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlags are shared by every command that reads configuration.
func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Path to a .env file with FITPLAY_* overrides",
			Value: ".env",
		},
	}
}

// serveCommand runs the integration layer
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the host page, token proxy and player API",
		Flags: append(configFlags(),
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Run the now-playing terminal UI in the foreground",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file used while the TUI owns the terminal",
				Value: "./tmp/fitplay-tui.log",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Do not open the host page in the browser",
			},
		),
		Action: r.Serve,
	}
}

// parseCommand classifies a playback source
func parseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "parse",
		Usage: "Classify a URL, URI or identifier as a playback source",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "input",
			},
		},
		Flags: append(configFlags(),
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Provider to parse for (youtube or spotify)",
				Value:   "youtube",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		),
		Action: r.Parse,
	}
}

// authCommand handles the persisted authorization state
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Inspect or clear the persisted Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show whether the session holds valid tokens",
				Flags:  configFlags(),
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Clear tokens and any pending authorization from the session",
				Flags:  configFlags(),
				Action: r.AuthLogout,
			},
		},
	}
}

// configCommand handles configuration files
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write an example config.toml",
				Flags:  configFlags(),
				Action: r.ConfigInit,
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration and validate it",
				Flags: append(configFlags(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				),
				Action: r.ConfigShow,
			},
		},
	}
}
