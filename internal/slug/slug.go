// Package slug canonicalizes and classifies profile page addresses.
package slug

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

const (
	// MinLength and MaxLength bound a canonical slug, inclusive.
	MinLength = 3
	MaxLength = 40
)

var (
	// ErrEmpty is returned when canonicalization leaves nothing behind.
	ErrEmpty = errors.New("must provide a valid address.")

	// ErrLength is returned when a canonical slug is shorter than MinLength
	// or longer than MaxLength.
	ErrLength = errors.New("must be between 3 and 40 characters.")

	// ErrReserved is returned for addresses that collide with application routes.
	ErrReserved = errors.New("this address is reserved.")

	invalidRun = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRun  = regexp.MustCompile(`-{2,}`)

	// Pattern matches every non-empty output of Canonicalize.
	Pattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

	// reserved holds the account routes plus every root-level route the
	// server mounts. Public pages render at /{slug}, so these would be shadowed.
	reserved = map[string]bool{
		"login":    true,
		"register": true,
		"app":      true,
		"api":      true,
		"auth":     true,
		"static":   true,
		"metrics":  true,
		"healthz":  true,
		"docs":     true,
	}
)

// Canonicalize maps arbitrary input to the canonical slug form: lower-case,
// runs of characters outside [a-z0-9-] replaced by a single hyphen, repeated
// hyphens collapsed and leading/trailing hyphens trimmed. It is idempotent.
func Canonicalize(raw string) string {
	s := strings.ToLower(raw)
	s = invalidRun.ReplaceAllString(s, "-")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Shape is the input shaping applied while a user types: Canonicalize, then
// truncate to MaxLength. Truncation may expose a trailing hyphen, which is
// trimmed again. Servers never rely on it.
func Shape(raw string) string {
	s := Canonicalize(raw)
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

// Classify reports why a canonical slug cannot be used, or nil when it is
// eligible for an ownership check. The returned errors carry user-facing
// messages and are meant to be shown verbatim.
func Classify(canonical string) error {
	switch {
	case canonical == "":
		return ErrEmpty
	case len(canonical) < MinLength || len(canonical) > MaxLength:
		return ErrLength
	case reserved[canonical]:
		return ErrReserved
	}
	return nil
}

// IsReserved reports whether s is in the reserved word set.
func IsReserved(s string) bool {
	return reserved[s]
}

// Reserved returns the reserved word set in sorted order.
func Reserved() []string {
	out := make([]string, 0, len(reserved))
	for w := range reserved {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
