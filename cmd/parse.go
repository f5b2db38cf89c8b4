package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/player/spotify"
	"github.com/desertthunder/fitplay/internal/player/youtube"
	"github.com/desertthunder/fitplay/internal/shared"
	"github.com/urfave/cli/v3"
)

// Parse classifies a URL or identifier the way the controllers will, without touching any player.
func (r *Runner) Parse(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	input := cmd.StringArg("input")
	if input == "" {
		return fmt.Errorf("%w: input", shared.ErrMissingArgument)
	}

	var (
		src models.PlaybackSource
		err error
	)
	switch provider := models.Provider(cmd.String("provider")); provider {
	case models.ProviderYouTube:
		src, err = youtube.Curated(r.config.YouTube.Curated).Resolve(input)
		if err != nil {
			src, err = youtube.ParseSource(input)
		}
	case models.ProviderSpotify:
		src, err = spotify.ParseSource(input)
	default:
		return fmt.Errorf("%w: provider %q", shared.ErrInvalidArgument, provider)
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(src, true)
	}

	r.writePlain("Kind: %s\n", src.Kind)
	r.writePlain("ID: %s\n", src.ID)
	if src.StartID != "" {
		r.writePlain("Start: %s\n", src.StartID)
	}
	r.writePlain("Loop: %t\n", src.Loop)
	return nil
}
