package usecase

import (
	"errors"
	"net/http"

	"github.com/secmon-lab/studypal/pkg/domain/model"
)

// Sentinel errors for use case layer
var (
	// Input validation errors
	ErrInvalidRequest = errors.New("invalid request")

	// Evidence insufficiency errors
	ErrNotesUnreadable  = errors.New("Selected notes are empty or unreadable.") //nolint:staticcheck // returned to clients as is
	ErrNoFacts          = errors.New("could not extract valid facts from the text (too short or weak)")
	ErrTopicNotFound    = errors.New("no data found for topic")
	ErrInsufficientText = errors.New("content too short to summarize")

	// Not found errors
	ErrNoteNotFound = errors.New("note not found")
)

// Context keys for error values
const (
	NoteIDKey   = "note_id"
	FeatureKey  = "feature"
	ProviderKey = "provider"
)

// StatusOf maps an error returned by a use case to an HTTP status code.
// Validation and insufficiency errors are client errors; anything else is a server error.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrNotesUnreadable),
		errors.Is(err, ErrNoFacts),
		errors.Is(err, ErrTopicNotFound),
		errors.Is(err, ErrInsufficientText),
		errors.Is(err, model.ErrProviderUnavailable):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
