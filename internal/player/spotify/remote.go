package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/shared"
	spotifyapi "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Remote issues Web API commands against a registered device.
type Remote interface {
	PlayOnDevice(ctx context.Context, device models.DeviceHandle, src models.PlaybackSource) error
}

// TokenGetter returns a currently valid access token.
type TokenGetter func(ctx context.Context) (string, error)

// tokenSource adapts a [TokenGetter] to [oauth2.TokenSource]. oauth2.Transport asks for a token
// on every request so refreshes done elsewhere are picked up immediately.
type tokenSource struct {
	ctx context.Context
	get TokenGetter
}

func (t tokenSource) Token() (*oauth2.Token, error) {
	access, err := t.get(t.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
}

// WebAPI implements [Remote] and [models.ProfileReader] with the Spotify Web API.
type WebAPI struct {
	tokens  TokenGetter
	limiter *rate.Limiter
	opts    []spotifyapi.ClientOption
}

// NewWebAPI creates a [WebAPI]. rps limits outgoing commands; zero or less disables limiting.
func NewWebAPI(tokens TokenGetter, rps float64, opts ...spotifyapi.ClientOption) *WebAPI {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &WebAPI{tokens: tokens, limiter: limiter, opts: opts}
}

func (w *WebAPI) client(ctx context.Context) *spotifyapi.Client {
	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: tokenSource{ctx: ctx, get: w.tokens}},
	}
	return spotifyapi.New(httpClient, w.opts...)
}

// PlayOnDevice starts src on device. Collections are sent as a playback context (optionally
// offset to StartID); single items as a one-element URI list.
func (w *WebAPI) PlayOnDevice(ctx context.Context, device models.DeviceHandle, src models.PlaybackSource) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	id := spotifyapi.ID(device)
	opts := &spotifyapi.PlayOptions{DeviceID: &id}
	if src.IsCollection() {
		uri := spotifyapi.URI(src.ID)
		opts.PlaybackContext = &uri
		if src.StartID != "" {
			opts.PlaybackOffset = &spotifyapi.PlaybackOffset{URI: spotifyapi.URI(src.StartID)}
		}
	} else {
		opts.URIs = []spotifyapi.URI{spotifyapi.URI(src.ID)}
	}

	if err := w.client(ctx).PlayOpt(ctx, opts); err != nil {
		return fmt.Errorf("%w: play on device: %w", shared.ErrAPIRequest, err)
	}
	return nil
}

// Profile reads the current user's profile.
func (w *WebAPI) Profile(ctx context.Context) (*models.Profile, error) {
	user, err := w.client(ctx).CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: current user: %w", shared.ErrAPIRequest, err)
	}
	return &models.Profile{ID: user.ID, DisplayName: user.DisplayName, Product: user.Product}, nil
}

// classifyRemoteError maps a Web API failure to an error category.
func classifyRemoteError(err error) models.ErrorCategory {
	var apiErr spotifyapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return models.CategoryAuthentication
		case http.StatusForbidden:
			return models.CategoryEligibility
		case http.StatusNotFound, http.StatusBadRequest:
			return models.CategoryContent
		}
	}
	if errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrRefreshFailed) {
		return models.CategoryAuthentication
	}
	return models.CategoryTransient
}
