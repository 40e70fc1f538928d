package client

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/joestump/joe-pages/internal/slug"
)

// State is the availability state of a SlugField.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateAvailable
	StateUnavailable
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	case StateError:
		return "error"
	}
	return "unknown"
}

var (
	ErrEmptyInput      = slug.ErrEmpty
	ErrCheckInProgress = errors.New("availability check in progress, wait for it to finish")
	ErrStaleCheck      = errors.New("address changed while it was being checked, try again")
)

// DefaultUnavailableMessage stands in for a negative verdict that arrives
// without a message.
const DefaultUnavailableMessage = "address already in use."

// UnavailableError aborts a Submit whose slug the server rejected.
type UnavailableError struct {
	Slug    string
	Message string
}

func (e *UnavailableError) Error() string { return e.Message }

// Checker probes slug availability. *Client implements it.
type Checker interface {
	CheckAvailability(ctx context.Context, slug string, pageID *int64) (Availability, error)
}

// SaveFunc persists the page under slug and returns the slug the server
// stored.
type SaveFunc func(ctx context.Context, slug string) (string, error)

// Result is the outcome of one Check.
type Result struct {
	Slug      string
	Available bool
	Message   string
	// Stale is set when the input changed while the probe was in flight; the
	// verdict was discarded.
	Stale bool
}

// SlugField tracks the address input of a page editor. Any input change
// resets it to idle; a verdict is applied only to the input it was computed
// for.
type SlugField struct {
	checker Checker

	mu      sync.Mutex
	input   string
	pageID  *int64
	state   State
	message string
	gen     uint64
}

// NewSlugField returns an idle, empty field.
func NewSlugField(c Checker) *SlugField {
	return &SlugField{checker: c}
}

// SetInput shapes raw and stores it, resetting the state when the value
// changed. It returns the shaped value.
func (f *SlugField) SetInput(raw string) string {
	shaped := slug.Shape(raw)
	f.mu.Lock()
	defer f.mu.Unlock()
	if shaped != f.input {
		f.input = shaped
		f.reset()
	}
	return shaped
}

// SetPageID names the page being edited, so its own slug stays available.
func (f *SlugField) SetPageID(id *int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageID = id
}

// Load primes the field with a page that already exists. Its slug is known
// to belong to the caller, so the field starts available.
func (f *SlugField) Load(s string, pageID *int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = s
	f.pageID = pageID
	f.reset()
	if s != "" {
		f.state = StateAvailable
	}
}

// Input returns the current shaped value.
func (f *SlugField) Input() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// State returns the current state and, for unavailable and error, its message.
func (f *SlugField) State() (State, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.message
}

// reset must be called with mu held.
func (f *SlugField) reset() {
	f.state = StateIdle
	f.message = ""
	f.gen++
}

// Check probes the current input. A transport failure moves the field to
// the error state and is returned; a verdict for an input that has since
// changed is reported as stale and not applied.
func (f *SlugField) Check(ctx context.Context) (Result, error) {
	f.mu.Lock()
	value := f.input
	if value == "" {
		f.reset()
		f.mu.Unlock()
		return Result{}, nil
	}
	var pageID *int64
	if f.pageID != nil {
		id := *f.pageID
		pageID = &id
	}
	f.gen++
	gen := f.gen
	f.state = StateChecking
	f.message = ""
	f.mu.Unlock()

	a, err := f.checker.CheckAvailability(ctx, value, pageID)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen || f.input != value {
		return Result{Slug: value, Stale: true}, nil
	}
	if err != nil {
		f.state = StateError
		f.message = errorMessage(err)
		return Result{Slug: value}, err
	}
	if a.Available {
		f.state = StateAvailable
	} else {
		if a.Message == "" {
			a.Message = DefaultUnavailableMessage
		}
		f.state = StateUnavailable
		f.message = a.Message
	}
	return Result{Slug: value, Available: a.Available, Message: a.Message}, nil
}

// Submit saves the page under the current input. An input already known to
// be available is saved without another probe; anything else is re-probed
// first. A stale re-probe is retried once. The save itself is never retried.
func (f *SlugField) Submit(ctx context.Context, save SaveFunc) (string, error) {
	f.mu.Lock()
	value, state := f.input, f.state
	f.mu.Unlock()

	if value == "" {
		return "", ErrEmptyInput
	}
	if state == StateChecking {
		return "", ErrCheckInProgress
	}

	if state != StateAvailable {
		var (
			res Result
			err error
		)
		for attempt := 0; attempt < 2; attempt++ {
			res, err = f.Check(ctx)
			if err != nil {
				return "", err
			}
			if !res.Stale {
				break
			}
		}
		if res.Stale {
			return "", ErrStaleCheck
		}
		if res.Slug == "" {
			return "", ErrEmptyInput
		}
		if !res.Available {
			return "", &UnavailableError{Slug: res.Slug, Message: res.Message}
		}
		value = res.Slug
	}

	saved, err := save(ctx, value)
	if err != nil {
		f.mu.Lock()
		if f.input == value {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				f.state = StateUnavailable
				f.message = apiErr.Message
			} else {
				f.state = StateError
				f.message = errorMessage(err)
			}
		}
		f.mu.Unlock()
		return "", err
	}

	f.mu.Lock()
	f.input = saved
	f.reset()
	f.state = StateAvailable
	f.mu.Unlock()
	return saved, nil
}

func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, ErrTimeout) {
		return "the server took too long to respond, check your connection"
	}
	return "could not reach the server, check your connection"
}
