package pages

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 600
	MaxSocialLinkLength  = 255

	instagramBase = "https://instagram.com/"
)

// Normalizer turns free-form page fields into their stored form.
type Normalizer struct {
	policy *bluemonday.Policy
}

func NewNormalizer() *Normalizer {
	return &Normalizer{policy: bluemonday.StrictPolicy()}
}

// Title strips markup, trims and caps the title.
func (n *Normalizer) Title(s string) string {
	return truncateRunes(n.text(s), MaxTitleLength)
}

// Description strips markup, trims and caps the description.
func (n *Normalizer) Description(s string) string {
	return truncateRunes(n.text(s), MaxDescriptionLength)
}

// SocialLink expands a bare or @-prefixed handle to an Instagram profile URL
// and passes http(s) URLs through unchanged.
func (n *Normalizer) SocialLink(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		handle := strings.TrimPrefix(s, "@")
		if handle == "" {
			return "", nil
		}
		s = instagramBase + handle
	}
	if len(s) > MaxSocialLinkLength {
		return "", &ValidationError{Field: FieldSocialLink, Err: ErrSocialLinkTooLong}
	}
	return s, nil
}

// maxStripPasses bounds text; each pass peels one layer of entity-encoded
// markup, so real input settles within a few.
const maxStripPasses = 8

// text removes every tag and decodes the entities the sanitizer escaped, so
// the stored value is plain text. Templates escape on output. Decoding can
// surface markup that was entity-encoded, so passes repeat until the output
// is stable; text(text(s)) == text(s).
func (n *Normalizer) text(s string) string {
	s = strings.TrimSpace(s)
	for i := 0; i < maxStripPasses; i++ {
		next := strings.TrimSpace(html.UnescapeString(n.policy.Sanitize(s)))
		if next == s {
			break
		}
		s = next
	}
	return s
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}
