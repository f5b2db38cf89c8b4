// Package web is the UI consumer interface over HTTP.
//
// It is the only surface a UI talks to: snapshots of each controller, transport commands, and the
// connect/disconnect actions of the streaming login. Nothing about SDKs, tokens or nonces leaks
// through it.
//
// Routes
//
//	GET  /api/status                 → flow state and one snapshot per controller
//	GET  /api/events                 → SSE stream of snapshots
//	POST /api/spotify/connect        → open the authorization popup
//	POST /api/spotify/disconnect     → clear tokens and release the player
//	POST /api/{provider}/volume      → {"volume": 0-100}
//	POST /api/{provider}/{action}    → play {"source": "..."} | pause | resume | next | previous | mute
//
// Errors are {"error", "category", "retryable"}; category and retryable follow
// [models.ErrorCategory].
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fitplay/internal/auth"
	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/player"
	"github.com/desertthunder/fitplay/internal/shared"
)

// Connector is the login flow as the UI sees it.
type Connector interface {
	Connect(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) error
	State() (auth.FlowState, error)
}

// Opts contains the dependencies of an [API].
type Opts struct {
	Controllers []player.Controller
	Flow        Connector
	Logger      *log.Logger
}

// API serves the JSON and SSE endpoints.
type API struct {
	controllers map[models.Provider]player.Controller
	order       []models.Provider
	flow        Connector
	logger      *log.Logger
	mux         *http.ServeMux
}

func NewAPI(opts Opts) *API {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	a := &API{
		controllers: map[models.Provider]player.Controller{},
		flow:        opts.Flow,
		logger:      shared.WithLogger(opts.Logger, "component", "api"),
		mux:         http.NewServeMux(),
	}
	for _, c := range opts.Controllers {
		a.controllers[c.Provider()] = c
		a.order = append(a.order, c.Provider())
	}

	a.mux.HandleFunc("GET /api/status", a.status)
	a.mux.HandleFunc("GET /api/events", a.events)
	a.mux.HandleFunc("POST /api/spotify/connect", a.connect)
	a.mux.HandleFunc("POST /api/spotify/disconnect", a.disconnect)
	a.mux.HandleFunc("POST /api/{provider}/volume", a.volume)
	a.mux.HandleFunc("POST /api/{provider}/{action}", a.action)
	return a
}

// Routes lets the API be mounted on a server.Router.
func (a *API) Routes() []string {
	return []string{"/api/"}
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

type flowStatus struct {
	State auth.FlowState `json:"state"`
	Error string         `json:"error,omitempty"`
}

type statusResponse struct {
	Flow    *flowStatus       `json:"flow,omitempty"`
	Players []models.Snapshot `json:"players"`
}

func (a *API) snapshots() []models.Snapshot {
	out := make([]models.Snapshot, 0, len(a.order))
	for _, p := range a.order {
		out = append(out, a.controllers[p].Snapshot())
	}
	return out
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Players: a.snapshots()}
	if a.flow != nil {
		state, err := a.flow.State()
		resp.Flow = &flowStatus{State: state}
		if err != nil {
			resp.Flow.Error = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) connect(w http.ResponseWriter, r *http.Request) {
	if a.flow == nil {
		writeError(w, http.StatusNotFound, errorResponse{Error: "spotify is not configured", Category: models.CategoryInitialization})
		return
	}
	if _, err := a.flow.Connect(r.Context()); err != nil {
		a.fail(w, nil, err)
		return
	}
	state, _ := a.flow.State()
	writeJSON(w, http.StatusAccepted, flowStatus{State: state})
}

func (a *API) disconnect(w http.ResponseWriter, r *http.Request) {
	if a.flow != nil {
		if err := a.flow.Disconnect(r.Context()); err != nil {
			a.fail(w, nil, err)
			return
		}
	}
	if c, ok := a.controllers[models.ProviderSpotify]; ok {
		c.Close()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) controller(w http.ResponseWriter, r *http.Request) (player.Controller, bool) {
	c, ok := a.controllers[models.Provider(r.PathValue("provider"))]
	if !ok {
		writeError(w, http.StatusNotFound, errorResponse{Error: "unknown provider " + r.PathValue("provider")})
	}
	return c, ok
}

type playRequest struct {
	Source string `json:"source"`
}

type volumeRequest struct {
	Volume *int `json:"volume"`
}

func (a *API) action(w http.ResponseWriter, r *http.Request) {
	c, ok := a.controller(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	var err error
	switch action := r.PathValue("action"); action {
	case "play":
		var req playRequest
		if r.ContentLength != 0 {
			if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil {
				writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + derr.Error()})
				return
			}
		}
		err = c.Play(ctx, req.Source)
	case "pause":
		err = c.Pause(ctx)
	case "resume":
		err = c.Resume(ctx)
	case "next":
		err = c.Next(ctx)
	case "previous":
		err = c.Previous(ctx)
	case "mute":
		err = c.ToggleMute(ctx)
	default:
		writeError(w, http.StatusNotFound, errorResponse{Error: "unknown action " + action})
		return
	}

	if err != nil {
		a.fail(w, c, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (a *API) volume(w http.ResponseWriter, r *http.Request) {
	c, ok := a.controller(w, r)
	if !ok {
		return
	}

	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Volume == nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "volume is required"})
		return
	}
	if *req.Volume < 0 || *req.Volume > 100 {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "volume must be 0-100"})
		return
	}

	if err := c.SetVolume(r.Context(), *req.Volume); err != nil {
		a.fail(w, c, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

type errorResponse struct {
	Error     string               `json:"error"`
	Category  models.ErrorCategory `json:"category,omitempty"`
	Retryable bool                 `json:"retryable"`
}

// fail writes err with the category a UI needs to pick a recovery action.
func (a *API) fail(w http.ResponseWriter, c player.Controller, err error) {
	status, category := classify(err)
	if category == "" && c != nil {
		if perr := c.Snapshot().Error; perr != nil {
			category = perr.Category
		}
	}
	if category == "" {
		category = models.CategoryTransient
	}

	a.logger.Warn("request failed", "status", status, "category", category, "error", err)
	writeError(w, status, errorResponse{Error: err.Error(), Category: category, Retryable: category.Retryable()})
}

func classify(err error) (int, models.ErrorCategory) {
	switch {
	case errors.Is(err, shared.ErrInvalidSource), errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, models.CategoryContent
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrRefreshFailed), errors.Is(err, shared.ErrNoRefreshToken):
		return http.StatusUnauthorized, models.CategoryAuthentication
	case errors.Is(err, shared.ErrNotEligible):
		return http.StatusForbidden, models.CategoryEligibility
	case errors.Is(err, shared.ErrPlayerNotReady):
		return http.StatusConflict, models.CategoryInitialization
	case errors.Is(err, shared.ErrSuperseded):
		return http.StatusConflict, models.CategoryTransient
	case errors.Is(err, shared.ErrBridgeOffline), errors.Is(err, shared.ErrSDKLoad):
		return http.StatusServiceUnavailable, models.CategoryInitialization
	default:
		return http.StatusBadGateway, ""
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, e errorResponse) {
	writeJSON(w, status, e)
}
