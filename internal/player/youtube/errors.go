package youtube

import "github.com/desertthunder/fitplay/internal/models"

// IFrame API error codes.
const (
	ErrCodeInvalidParam    = 2
	ErrCodeHTML5           = 5
	ErrCodeNotFound        = 100
	ErrCodeNotEmbeddable   = 101
	ErrCodeNotEmbeddableV2 = 150
)

// MapErrorCode translates an onError code. Only the generic case is retryable with the same
// source; the others need different content.
func MapErrorCode(code int) *models.PlayerError {
	switch code {
	case ErrCodeNotEmbeddable, ErrCodeNotEmbeddableV2:
		return models.NewPlayerError(models.CategoryContent, "Embedding disallowed by the content owner")
	case ErrCodeNotFound:
		return models.NewPlayerError(models.CategoryContent, "Content not found or private")
	case ErrCodeInvalidParam:
		return models.NewPlayerError(models.CategoryContent, "Invalid video or playlist id")
	case ErrCodeHTML5:
		return models.NewPlayerError(models.CategoryTransient, "The video player hit a playback error")
	default:
		return models.NewPlayerError(models.CategoryTransient, "Playback failed (code %d)", code)
	}
}
