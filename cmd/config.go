package main

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/fitplay/internal/shared"
	"github.com/urfave/cli/v3"
)

const redacted = "********"

// ConfigInit writes the example configuration to the --config path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Configuration written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set spotify.client_id and spotify.client_secret (or FITPLAY_SPOTIFY_* in .env)\n")
	r.writePlain("2. Register %s as a redirect URI for your Spotify app\n", shared.DefaultConfig().Spotify.RedirectURI)
	r.writePlain("3. Run 'fitplay serve'\n")
	return nil
}

// ConfigShow prints the effective configuration with secrets redacted and reports validation problems.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	cfg := *r.config
	if cfg.Spotify.ClientSecret != "" {
		cfg.Spotify.ClientSecret = redacted
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(cfg, true); err != nil {
			return err
		}
	} else if err := toml.NewEncoder(r.output).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := r.config.Validate(); err != nil {
		r.writePlainln("✗ Configuration is invalid:")
		r.writePlain("%v\n", err)
		return nil
	}
	r.writePlainln("✓ Configuration is valid")
	return nil
}
