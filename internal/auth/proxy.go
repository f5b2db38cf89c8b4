package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

// Proxy actions.
const (
	ActionTokenExchange = "token_exchange"
	ActionTokenRefresh  = "token_refresh"
)

// ProxyRequest is the body sent to the token proxy.
type ProxyRequest struct {
	Action       string `json:"action"`
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenResponse is the proxy's success body for both actions.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

// ProxyError is a non-2xx proxy response.
type ProxyError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func (e *ProxyError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("token proxy returned %d: %s (%v)", e.Status, e.Code, e.Details)
	}
	return fmt.Sprintf("token proxy returned %d: %s", e.Status, e.Code)
}

// TokenProxy performs token requests on behalf of the browser.
type TokenProxy interface {
	Exchange(ctx context.Context, code, redirectURI string) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// ProxyClient calls the trusted token proxy over HTTP.
type ProxyClient struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewProxyClient creates a [ProxyClient] posting to url. A nil client uses [http.DefaultClient];
// a non-positive rps disables rate limiting.
func NewProxyClient(url string, client *http.Client, rps float64) *ProxyClient {
	if client == nil {
		client = http.DefaultClient
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &ProxyClient{url: url, httpClient: client, limiter: limiter}
}

func (p *ProxyClient) Exchange(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	return p.do(ctx, ProxyRequest{Action: ActionTokenExchange, Code: code, RedirectURI: redirectURI})
}

func (p *ProxyClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return p.do(ctx, ProxyRequest{Action: ActionTokenRefresh, RefreshToken: refreshToken})
}

func (p *ProxyClient) do(ctx context.Context, body ProxyRequest) (*TokenResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &ProxyError{Status: resp.StatusCode}
		if err := json.Unmarshal(raw, perr); err != nil || perr.Code == "" {
			perr.Code = http.StatusText(resp.StatusCode)
		}
		return nil, perr
	}

	var tr TokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &tr, nil
}
