// Package pages coordinates slug availability checks and page writes.
//
// Availability checks are advisory: they read the current owner of a slug
// without locking. Writes re-validate everything and rely on the unique slug
// index in the store as the only guarantee that two owners never share an
// address.
package pages

import (
	"context"
	"errors"
	"fmt"

	"github.com/joestump/joe-pages/internal/metrics"
	"github.com/joestump/joe-pages/internal/slug"
	"github.com/joestump/joe-pages/internal/store"
)

// Store is the persistence the coordinator needs. *store.PageStore satisfies it.
type Store interface {
	SlugOwner(ctx context.Context, slug string) (*store.SlugOwner, error)
	GetOwned(ctx context.Context, id, ownerID int64) (*store.Page, error)
	Create(ctx context.Context, ownerID int64, f store.PageFields) (*store.Page, error)
	Update(ctx context.Context, id, ownerID int64, f store.PageFields) (*store.Page, error)
}

// Verdict is the transient answer to an availability check.
type Verdict struct {
	Available bool
	Message   string
}

// Input is a requested page write. A nil ID creates a page.
type Input struct {
	ID          *int64
	Slug        string
	Title       string
	Description string
	SocialLink  string
}

type Service struct {
	store Store
	norm  *Normalizer
}

func NewService(s Store, n *Normalizer) *Service {
	if n == nil {
		n = NewNormalizer()
	}
	return &Service{store: s, norm: n}
}

// Probe reports whether requester may use raw as an address. Rejected shapes
// and reserved words are answered without touching the store. pageID is the
// page the requester is editing, if any; it only counts when that page is
// the requester's own, which the owner comparison already covers.
func (s *Service) Probe(ctx context.Context, raw string, requester int64, pageID *int64) (Verdict, error) {
	if requester == 0 {
		return Verdict{}, ErrUnauthenticated
	}

	canonical := slug.Canonicalize(raw)
	if err := slug.Classify(canonical); err != nil {
		verdict := "invalid"
		if errors.Is(err, slug.ErrReserved) {
			verdict = "reserved"
		}
		metrics.ProbesTotal.WithLabelValues(verdict).Inc()
		return Verdict{Available: false, Message: err.Error()}, nil
	}

	owner, err := s.store.SlugOwner(ctx, canonical)
	switch {
	case errors.Is(err, store.ErrNotFound):
		metrics.ProbesTotal.WithLabelValues("available").Inc()
		return Verdict{Available: true}, nil
	case err != nil:
		metrics.ProbesTotal.WithLabelValues("error").Inc()
		return Verdict{}, fmt.Errorf("probe slug owner: %w", err)
	}

	if owner.OwnerID == requester {
		metrics.ProbesTotal.WithLabelValues("available").Inc()
		return Verdict{Available: true}, nil
	}
	if pageID != nil && *pageID == owner.PageID {
		// Another owner's page id: treat exactly like any other taken slug.
		metrics.ProbesTotal.WithLabelValues("forged_page_id").Inc()
	} else {
		metrics.ProbesTotal.WithLabelValues("taken").Inc()
	}
	return Verdict{Available: false, Message: ErrSlugConflict.Error()}, nil
}

// Upsert creates or updates a page for requester and reports whether a new
// row was inserted. Input is validated and normalized before any store
// access. The ownership pre-check is an early exit; a unique index violation
// at write time is the authoritative conflict and is also ErrSlugConflict.
func (s *Service) Upsert(ctx context.Context, requester int64, in Input) (*store.Page, bool, error) {
	if requester == 0 {
		return nil, false, ErrUnauthenticated
	}

	fields, err := s.normalize(in)
	if err != nil {
		metrics.UpsertsTotal.WithLabelValues("invalid").Inc()
		return nil, false, err
	}

	if in.ID != nil {
		if _, err := s.store.GetOwned(ctx, *in.ID, requester); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				metrics.UpsertsTotal.WithLabelValues("not_found").Inc()
				return nil, false, ErrPageNotFound
			}
			metrics.UpsertsTotal.WithLabelValues("error").Inc()
			return nil, false, fmt.Errorf("load page %d: %w", *in.ID, err)
		}
	}

	owner, err := s.store.SlugOwner(ctx, fields.Slug)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		metrics.UpsertsTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("check slug owner: %w", err)
	case owner.OwnerID != requester && (in.ID == nil || *in.ID != owner.PageID):
		metrics.UpsertsTotal.WithLabelValues("conflict").Inc()
		return nil, false, ErrSlugConflict
	}

	page, created, err := s.write(ctx, requester, in.ID, fields)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSlugTaken):
			metrics.WriteConflictsTotal.Inc()
			metrics.UpsertsTotal.WithLabelValues("conflict").Inc()
			return nil, false, ErrSlugConflict
		case errors.Is(err, store.ErrNotFound):
			metrics.UpsertsTotal.WithLabelValues("not_found").Inc()
			return nil, false, ErrPageNotFound
		}
		metrics.UpsertsTotal.WithLabelValues("error").Inc()
		return nil, false, err
	}

	if created {
		metrics.UpsertsTotal.WithLabelValues("created").Inc()
	} else {
		metrics.UpsertsTotal.WithLabelValues("updated").Inc()
	}
	return page, created, nil
}

func (s *Service) write(ctx context.Context, requester int64, id *int64, f store.PageFields) (*store.Page, bool, error) {
	if id == nil {
		p, err := s.store.Create(ctx, requester, f)
		if err != nil {
			return nil, false, fmt.Errorf("create page: %w", err)
		}
		return p, true, nil
	}
	p, err := s.store.Update(ctx, *id, requester, f)
	if err != nil {
		return nil, false, fmt.Errorf("update page %d: %w", *id, err)
	}
	return p, false, nil
}

func (s *Service) normalize(in Input) (store.PageFields, error) {
	canonical := slug.Canonicalize(in.Slug)
	if err := slug.Classify(canonical); err != nil {
		return store.PageFields{}, &ValidationError{Field: FieldSlug, Err: err}
	}
	link, err := s.norm.SocialLink(in.SocialLink)
	if err != nil {
		return store.PageFields{}, err
	}
	return store.PageFields{
		Slug:        canonical,
		Title:       s.norm.Title(in.Title),
		Description: s.norm.Description(in.Description),
		SocialLink:  link,
	}, nil
}
