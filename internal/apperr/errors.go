// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// Input errors: reported to the caller, nothing is written.
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmptyText          = errors.New("no text was available to generate proposals")
	ErrEmptyFeedback      = errors.New("feedback text is empty")
	ErrSourceNotFound     = errors.New("source not found")
	ErrSourceNoText       = errors.New("source has no text content")
	ErrNoPendingProposal  = errors.New("no pending proposal for this message")
	ErrNotLinkedToSource  = errors.New("proposal is not linked to a source")
	ErrMissingCredentials = errors.New("mochi credentials are not configured")
	ErrDeckUnavailable    = errors.New("mochi deck is missing or trashed")
)

// IsInput reports whether err is caused by bad caller input.
func IsInput(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrEmptyText, ErrEmptyFeedback, ErrSourceNoText,
		ErrNoPendingProposal, ErrNotLinkedToSource,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
