package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/session"
	"github.com/desertthunder/fitplay/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// FlowState is the position of the login flow.
type FlowState int

const (
	FlowIdle FlowState = iota
	FlowAwaitingPopup
	FlowExchanging
	FlowConnected
	FlowFailed
)

func (s FlowState) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowAwaitingPopup:
		return "awaiting_popup"
	case FlowExchanging:
		return "exchanging"
	case FlowConnected:
		return "connected"
	case FlowFailed:
		return "failed"
	default:
		return fmt.Sprintf("FlowState(%d)", int(s))
	}
}

func (s FlowState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *FlowState) UnmarshalText(b []byte) error {
	for c := FlowIdle; c <= FlowFailed; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown flow state %q", b)
}

const popupName = "spotify-auth"

// FlowConfig holds the public client settings. The client secret lives only with the proxy.
type FlowConfig struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	Popup       PopupFeatures
}

// FlowOpts contains the dependencies of a [Flow].
type FlowOpts struct {
	Config  FlowConfig
	Store   session.Store
	Tokens  *TokenStore
	Proxy   TokenProxy
	Window  Window
	Channel *Channel
	Logger  *log.Logger
}

// Flow runs the authorization code flow through a popup.
type Flow struct {
	cfg           FlowConfig
	authenticator *spotifyauth.Authenticator
	store         session.Store
	tokens        *TokenStore
	proxy         TokenProxy
	window        Window
	logger        *log.Logger

	mu      sync.Mutex
	state   FlowState
	lastErr error

	hmu       sync.Mutex
	connected []func(context.Context)
}

// NewFlow creates a [Flow] and, when opts.Channel is set, listens on it for callback envelopes.
func NewFlow(opts FlowOpts) *Flow {
	if opts.Config.Popup.Width == 0 {
		opts.Config.Popup = DefaultPopup
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	f := &Flow{
		cfg: opts.Config,
		authenticator: spotifyauth.New(
			spotifyauth.WithClientID(opts.Config.ClientID),
			spotifyauth.WithRedirectURL(opts.Config.RedirectURI),
			spotifyauth.WithScopes(opts.Config.Scopes...),
		),
		store:  opts.Store,
		tokens: opts.Tokens,
		proxy:  opts.Proxy,
		window: opts.Window,
		logger: shared.WithLogger(opts.Logger, "component", "oauth"),
	}
	if opts.Channel != nil {
		opts.Channel.Listen(f.Receive)
	}
	return f
}

// OnConnected registers fn to run after tokens from a successful exchange are saved.
func (f *Flow) OnConnected(fn func(context.Context)) {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	f.connected = append(f.connected, fn)
}

// State returns the current [FlowState] and the error that caused the last failure.
func (f *Flow) State() (FlowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.lastErr
}

// AuthURL builds the authorization request URL for state.
func (f *Flow) AuthURL(state string) string {
	return f.authenticator.AuthURL(state, oauth2.SetAuthURLParam("show_dialog", "false"))
}

// Connect stores a fresh nonce and opens the authorization popup. It returns the URL opened.
//
// Calling Connect while a popup is pending replaces the pending nonce.
func (f *Flow) Connect(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == FlowExchanging {
		return "", fmt.Errorf("%w: token exchange in progress", shared.ErrInvalidInput)
	}

	nonce, err := shared.GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	if err := f.store.Set(ctx, session.KeyOAuthState, nonce); err != nil {
		return "", err
	}

	authURL := f.AuthURL(nonce)
	if err := f.window.OpenPopup(authURL, popupName, f.cfg.Popup); err != nil {
		f.clearNonce(ctx)
		f.fail(err)
		return "", fmt.Errorf("failed to open authorization popup: %w", err)
	}

	f.state, f.lastErr = FlowAwaitingPopup, nil
	f.logger.Info("authorization popup opened")
	return authURL, nil
}

// Receive handles an envelope delivered from the callback popup.
func (f *Flow) Receive(ctx context.Context, env Envelope) error {
	if env.Type != MessageOAuthCallback {
		f.logger.Debug("ignoring message", "type", env.Type)
		return nil
	}

	if env.Error != "" {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.clearNonce(ctx)
		err := fmt.Errorf("%w: %s", shared.ErrConsentDenied, env.Error)
		f.fail(err)
		return err
	}

	return f.HandleCallback(ctx, env.Code, env.State)
}

// HandleCallback validates state against the stored nonce and exchanges code for tokens.
//
// A mismatch aborts the flow and clears the nonce without contacting the proxy.
func (f *Flow) HandleCallback(ctx context.Context, code, state string) error {
	f.mu.Lock()

	nonce, ok, err := f.store.Get(ctx, session.KeyOAuthState)
	f.clearNonce(ctx)
	if err != nil {
		f.fail(err)
		f.mu.Unlock()
		return err
	}
	if !ok || state == "" || state != nonce {
		f.logger.Warn("rejecting callback with mismatched state")
		f.fail(shared.ErrStateMismatch)
		f.mu.Unlock()
		return shared.ErrStateMismatch
	}
	if code == "" {
		err := fmt.Errorf("%w: callback missing code", shared.ErrAuthFailed)
		f.fail(err)
		f.mu.Unlock()
		return err
	}

	f.state = FlowExchanging
	resp, err := f.proxy.Exchange(ctx, code, f.cfg.RedirectURI)
	if err != nil {
		err = fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
		f.fail(err)
		f.mu.Unlock()
		return err
	}

	t := models.NewTokenSet(resp.AccessToken, resp.RefreshToken, resp.ExpiresIn, time.Now())
	if err := f.tokens.Save(ctx, t); err != nil {
		f.fail(err)
		f.mu.Unlock()
		return err
	}

	f.state, f.lastErr = FlowConnected, nil
	f.mu.Unlock()
	f.logger.Info("authorization complete")

	f.hmu.Lock()
	hooks := append([]func(context.Context){}, f.connected...)
	f.hmu.Unlock()
	for _, fn := range hooks {
		fn(ctx)
	}
	return nil
}

// Disconnect clears tokens and any pending nonce and returns the flow to idle.
func (f *Flow) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state, f.lastErr = FlowIdle, nil
	if err := f.store.Delete(ctx, session.KeyOAuthState); err != nil {
		return err
	}
	return f.tokens.Clear(ctx)
}

// Caller holds f.mu.
func (f *Flow) fail(err error) {
	f.state, f.lastErr = FlowFailed, err
	f.logger.Error("authorization failed", "error", err)
}

// Caller holds f.mu.
func (f *Flow) clearNonce(ctx context.Context) {
	if err := f.store.Delete(ctx, session.KeyOAuthState); err != nil {
		f.logger.Warn("failed to clear oauth state", "error", err)
	}
}
