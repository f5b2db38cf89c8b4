package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrStateMismatch    = fmt.Errorf("oauth state mismatch")
	ErrConsentDenied    = fmt.Errorf("authorization denied")
	ErrNoOpener         = fmt.Errorf("no opener window")
	ErrForbiddenOrigin  = fmt.Errorf("message origin not allowed")

	// SDK and player errors
	ErrSDKLoad        = fmt.Errorf("sdk failed to load")
	ErrUnknownSDK     = fmt.Errorf("unknown sdk")
	ErrPlayerNotReady = fmt.Errorf("player not ready")
	ErrSuperseded     = fmt.Errorf("superseded by a newer request")
	ErrNotEligible    = fmt.Errorf("account not eligible for playback")
	ErrBridgeOffline  = fmt.Errorf("host page not connected")
	ErrAPIRequest     = fmt.Errorf("API request failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidSource   = fmt.Errorf("unrecognized playback source")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
