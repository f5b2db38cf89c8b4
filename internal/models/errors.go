package models

import "fmt"

// ErrorCategory classifies a player failure by how a user can recover from it.
type ErrorCategory string

const (
	CategoryInitialization ErrorCategory = "initialization" // SDK failed to load
	CategoryAuthentication ErrorCategory = "authentication" // token invalid or revoked
	CategoryEligibility    ErrorCategory = "eligibility"    // plan or permission restriction
	CategoryContent        ErrorCategory = "content"        // item cannot be embedded or does not exist
	CategoryTransient      ErrorCategory = "transient"
)

// Retryable reports whether the same action may succeed if repeated unchanged.
func (c ErrorCategory) Retryable() bool {
	switch c {
	case CategoryInitialization, CategoryTransient:
		return true
	default:
		return false
	}
}

// Action is the recovery affordance a UI should present for the category.
func (c ErrorCategory) Action() string {
	switch c {
	case CategoryInitialization, CategoryTransient:
		return "retry"
	case CategoryAuthentication:
		return "connect"
	case CategoryContent:
		return "choose_other"
	default:
		return "explain"
	}
}

// PlayerError is a controller-level failure translated from an SDK error.
type PlayerError struct {
	Category  ErrorCategory `json:"category"`
	Message   string        `json:"message"`
	Retryable bool          `json:"retryable"`
	Action    string        `json:"action"`
}

// NewPlayerError builds a [PlayerError] with flags derived from the category.
func NewPlayerError(c ErrorCategory, format string, args ...any) *PlayerError {
	return &PlayerError{
		Category:  c,
		Message:   fmt.Sprintf(format, args...),
		Retryable: c.Retryable(),
		Action:    c.Action(),
	}
}

func (e *PlayerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}
