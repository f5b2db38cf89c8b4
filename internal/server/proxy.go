package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fitplay/internal/auth"
	"github.com/desertthunder/fitplay/internal/shared"
	"github.com/justinas/alice"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// TokenPath is where [TokenProxy] is mounted.
const TokenPath = "/api/spotify/token"

const maxProxyBody = 16 << 10

// Exchanger talks to the accounts service with the client secret. *spotifyauth.Authenticator
// satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	RefreshToken(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// TokenProxy performs token exchanges and refreshes for the browser.
type TokenProxy struct {
	exchanger   Exchanger
	redirectURI string
	logger      *log.Logger
	handler     http.Handler
	now         func() time.Time
}

// ProxyOpts configures a [TokenProxy].
type ProxyOpts struct {
	Exchanger   Exchanger
	RedirectURI string
	Origin      string
	RateLimit   float64
	Logger      *log.Logger
}

func NewTokenProxy(opts ProxyOpts) *TokenProxy {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	p := &TokenProxy{
		exchanger:   opts.Exchanger,
		redirectURI: opts.RedirectURI,
		logger:      opts.Logger,
		now:         time.Now,
	}
	p.handler = alice.New(
		alice.Constructor(Recover(opts.Logger)),
		alice.Constructor(SameOrigin(opts.Origin)),
		alice.Constructor(RateLimit(rate.NewLimiter(limit, 4))),
	).ThenFunc(p.serve)
	return p
}

func (p *TokenProxy) Routes() []string {
	return []string{http.MethodPost + " " + TokenPath}
}

func (p *TokenProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

func (p *TokenProxy) serve(w http.ResponseWriter, r *http.Request) {
	var req auth.ProxyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProxyBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Details: err.Error()})
		return
	}

	var (
		tok *oauth2.Token
		err error
	)
	switch req.Action {
	case auth.ActionTokenExchange:
		if req.Code == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Details: "code is required"})
			return
		}
		if req.RedirectURI != p.redirectURI {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_redirect_uri"})
			return
		}
		tok, err = p.exchanger.Exchange(r.Context(), req.Code)
	case auth.ActionTokenRefresh:
		if req.RefreshToken == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Details: "refresh_token is required"})
			return
		}
		tok, err = p.exchanger.RefreshToken(r.Context(), &oauth2.Token{RefreshToken: req.RefreshToken})
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unsupported_action", Details: req.Action})
		return
	}

	if err != nil {
		status, body := upstreamError(err)
		p.logger.Warn("token request failed", "action", req.Action, "status", status, "error", err)
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, auth.TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    p.expiresIn(tok),
	})
}

func (p *TokenProxy) expiresIn(tok *oauth2.Token) int {
	if tok.ExpiresIn > 0 {
		return int(tok.ExpiresIn)
	}
	if tok.Expiry.IsZero() {
		return 3600
	}
	return max(0, int(tok.Expiry.Sub(p.now()).Seconds()))
}

// upstreamError maps an accounts-service failure. Rejections of the grant are the client's fault;
// anything else is a bad gateway.
func upstreamError(err error) (int, errorBody) {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		code := re.ErrorCode
		if code == "" {
			code = "token_request_failed"
		}
		var details any
		if re.ErrorDescription != "" {
			details = re.ErrorDescription
		}
		if re.Response != nil && re.Response.StatusCode >= 500 {
			return http.StatusBadGateway, errorBody{Error: code, Details: details}
		}
		return http.StatusBadRequest, errorBody{Error: code, Details: details}
	}
	return http.StatusBadGateway, errorBody{Error: "upstream_error", Details: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
