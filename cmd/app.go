package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fitplay/internal/auth"
	"github.com/desertthunder/fitplay/internal/bridge"
	"github.com/desertthunder/fitplay/internal/player"
	"github.com/desertthunder/fitplay/internal/player/spotify"
	"github.com/desertthunder/fitplay/internal/player/youtube"
	"github.com/desertthunder/fitplay/internal/sdk"
	"github.com/desertthunder/fitplay/internal/server"
	"github.com/desertthunder/fitplay/internal/session"
	"github.com/desertthunder/fitplay/internal/shared"
	"github.com/desertthunder/fitplay/internal/web"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

const bridgePath = "/bridge"

// app is the wired integration layer behind `fitplay serve`.
type app struct {
	handler http.Handler
	hub     *bridge.Hub
	flow    *auth.Flow
	manager *auth.Manager
	spotify *spotify.Controller
	youtube *youtube.Controller
	curated []string
	close   func() error
}

func (a *app) controllers() []player.Controller {
	return []player.Controller{a.spotify, a.youtube}
}

// Close releases both players, disconnects the page and closes the session backend.
func (a *app) Close() error {
	a.spotify.Close()
	a.youtube.Close()
	a.hub.Close()
	return a.close()
}

// newApp wires every component from cfg. ctx bounds background player initialization.
func newApp(ctx context.Context, cfg *shared.Config, logger *log.Logger) (*app, error) {
	store, closeStore, err := session.Open(ctx, cfg.Session, cfg.Session.ID, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	logger.Info("session opened", "backend", cfg.Session.Backend, "session", store.ID())

	origin := strings.TrimSuffix(cfg.Server.Origin, "/")
	channel := auth.NewChannel(origin)
	globals := sdk.NewGlobals()
	hub := bridge.NewHub(bridge.Opts{Origin: origin, Channel: channel, Globals: globals, Logger: logger})
	loader := sdk.NewLoader(hub, globals, logger)

	proxyURL := cfg.Spotify.ProxyURL
	if proxyURL == "" {
		proxyURL = origin + server.TokenPath
	}
	tokens := auth.NewTokenStore(store, logger)
	manager := auth.NewManager(tokens, auth.NewProxyClient(proxyURL, nil, cfg.Spotify.RateLimit), logger)
	flow := auth.NewFlow(auth.FlowOpts{
		Config: auth.FlowConfig{
			ClientID:    cfg.Spotify.ClientID,
			RedirectURI: cfg.Spotify.RedirectURI,
			Scopes:      cfg.Spotify.Scopes,
		},
		Store:   store,
		Tokens:  tokens,
		Proxy:   auth.NewProxyClient(proxyURL, nil, cfg.Spotify.RateLimit),
		Window:  hub,
		Channel: channel,
		Logger:  logger,
	})

	webAPI := spotify.NewWebAPI(manager.GetValidToken, cfg.Spotify.RateLimit)
	sp := spotify.NewController(spotify.Opts{
		SDK:      hub.Spotify(),
		Loader:   loader,
		Tokens:   manager,
		Remote:   webAPI,
		Profiles: webAPI,
		Name:     cfg.Spotify.PlayerName,
		Volume:   cfg.Player.DefaultVolume,
		Logger:   logger,
	})
	yt := youtube.NewController(youtube.Opts{
		SDK:       hub.YouTube(),
		Loader:    loader,
		Container: cfg.YouTube.Container,
		Host:      cfg.YouTube.EmbedHost,
		Origin:    origin,
		Autoplay:  cfg.YouTube.Autoplay,
		Curated:   youtube.Curated(cfg.YouTube.Curated),
		Volume:    cfg.Player.DefaultVolume,
		Logger:    logger,
	})

	initialize := func() {
		go func() {
			if err := sp.Initialize(ctx); err != nil && !errors.Is(err, shared.ErrSuperseded) {
				logger.Warn("spotify player not initialized", "error", err)
			}
		}()
	}
	flow.OnConnected(func(context.Context) { initialize() })
	hub.OnHello(func() {
		if manager.Authenticated(ctx) {
			initialize()
		}
	})
	hub.OnReset(func() {
		loader.Invalidate()
		sp.Close()
		yt.Close()
	})

	proxy := server.NewTokenProxy(server.ProxyOpts{
		Exchanger: spotifyauth.New(
			spotifyauth.WithClientID(cfg.Spotify.ClientID),
			spotifyauth.WithClientSecret(cfg.Spotify.ClientSecret),
			spotifyauth.WithRedirectURL(cfg.Spotify.RedirectURI),
			spotifyauth.WithScopes(cfg.Spotify.Scopes...),
		),
		RedirectURI: cfg.Spotify.RedirectURI,
		Origin:      origin,
		RateLimit:   cfg.Spotify.RateLimit,
		Logger:      logger,
	})

	a := &app{
		hub:     hub,
		flow:    flow,
		manager: manager,
		spotify: sp,
		youtube: yt,
		curated: curatedNames(cfg.YouTube.Curated),
		close:   closeStore,
	}

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(logger), server.Recover(logger))
	router.HandleFunc(http.MethodGet, "/{$}", bridge.Index)
	router.Handle(http.MethodGet, "/static/", http.StripPrefix("/static", bridge.Assets()))
	router.Handle(http.MethodGet, bridgePath, hub)
	router.Handler(server.NewCallbackHandler(origin))
	router.Handler(proxy)
	router.Handler(web.NewAPI(web.Opts{Controllers: a.controllers(), Flow: flow, Logger: logger}))
	a.handler = router

	return a, nil
}

func curatedNames(m map[string]string) []string {
	names := youtube.Curated(m).Names()
	sort.Strings(names)
	return names
}
