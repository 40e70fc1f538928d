package pages

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when a write has no requester.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrPageNotFound is returned when an edited page id does not exist or
	// belongs to another owner.
	ErrPageNotFound = errors.New("page not found")

	// ErrSlugConflict is returned when another owner holds the slug.
	ErrSlugConflict = errors.New("address already in use.")

	// ErrSocialLinkTooLong is returned for social links longer than MaxSocialLinkLength.
	ErrSocialLinkTooLong = errors.New("social link is too long.")
)

// Fields named by ValidationError.
const (
	FieldSlug       = "slug"
	FieldSocialLink = "instagram_url"
)

// ValidationError reports user-fixable input. Err carries the message shown
// to the user.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Message is the user-facing text without the field prefix.
func (e *ValidationError) Message() string { return e.Err.Error() }
