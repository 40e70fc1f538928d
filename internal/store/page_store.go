package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// Page represents a row in the profile_pages table.
type Page struct {
	ID          int64     `db:"id"`
	OwnerID     int64     `db:"owner_id"`
	Slug        string    `db:"slug"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	SocialLink  string    `db:"instagram_url"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// PageFields are the user-editable columns of a page, already normalized.
type PageFields struct {
	Slug        string
	Title       string
	Description string
	SocialLink  string
}

// SlugOwner identifies the page currently holding a slug.
type SlugOwner struct {
	PageID  int64 `db:"id"`
	OwnerID int64 `db:"owner_id"`
}

const pageColumns = `id, owner_id, slug, title, description, instagram_url, created_at, updated_at`

type PageStore struct {
	db *sqlx.DB
}

func NewPageStore(db *sqlx.DB) *PageStore {
	return &PageStore{db: db}
}

func (s *PageStore) q(query string) string { return s.db.Rebind(query) }

// SlugOwner returns who holds slug, or ErrNotFound when it is unused.
func (s *PageStore) SlugOwner(ctx context.Context, slug string) (*SlugOwner, error) {
	var o SlugOwner
	err := s.db.GetContext(ctx, &o, s.q(`SELECT id, owner_id FROM profile_pages WHERE slug = ?`), slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts a page owned by ownerID. A collision on the unique slug
// index is reported as ErrSlugTaken.
func (s *PageStore) Create(ctx context.Context, ownerID int64, f PageFields) (*Page, error) {
	now := time.Now().UTC()
	id, err := insertID(ctx, s.db, `
		INSERT INTO profile_pages (owner_id, slug, title, description, instagram_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ownerID, f.Slug, f.Title, f.Description, f.SocialLink, now, now)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Update rewrites the editable columns of page id. Only the owner's row is
// touched; ErrNotFound is returned when id does not belong to ownerID.
func (s *PageStore) Update(ctx context.Context, id, ownerID int64, f PageFields) (*Page, error) {
	_, err := s.db.ExecContext(ctx, s.q(`
		UPDATE profile_pages
		SET slug = ?, title = ?, description = ?, instagram_url = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`),
		f.Slug, f.Title, f.Description, f.SocialLink, time.Now().UTC(), id, ownerID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	// MySQL reports zero affected rows for no-op updates, so existence is
	// confirmed by reading the row back.
	return s.GetOwned(ctx, id, ownerID)
}

// GetByID returns the page matching id, or ErrNotFound.
func (s *PageStore) GetByID(ctx context.Context, id int64) (*Page, error) {
	return s.get(ctx, `SELECT `+pageColumns+` FROM profile_pages WHERE id = ?`, id)
}

// GetOwned returns page id only if ownerID owns it, or ErrNotFound.
func (s *PageStore) GetOwned(ctx context.Context, id, ownerID int64) (*Page, error) {
	return s.get(ctx, `SELECT `+pageColumns+` FROM profile_pages WHERE id = ? AND owner_id = ?`, id, ownerID)
}

// GetBySlug returns the page matching slug, or ErrNotFound.
func (s *PageStore) GetBySlug(ctx context.Context, slug string) (*Page, error) {
	return s.get(ctx, `SELECT `+pageColumns+` FROM profile_pages WHERE slug = ?`, slug)
}

// GetOwnedBySlug returns ownerID's page at slug, or ErrNotFound.
func (s *PageStore) GetOwnedBySlug(ctx context.Context, ownerID int64, slug string) (*Page, error) {
	return s.get(ctx, `SELECT `+pageColumns+` FROM profile_pages WHERE slug = ? AND owner_id = ?`, slug, ownerID)
}

// ListByOwner returns ownerID's pages, most recently updated first.
func (s *PageStore) ListByOwner(ctx context.Context, ownerID int64) ([]*Page, error) {
	pages := []*Page{}
	err := s.db.SelectContext(ctx, &pages, s.q(`
		SELECT `+pageColumns+` FROM profile_pages
		WHERE owner_id = ?
		ORDER BY updated_at DESC, id DESC`), ownerID)
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// Count returns the total number of pages.
func (s *PageStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM profile_pages`)
	return n, err
}

func (s *PageStore) get(ctx context.Context, query string, args ...any) (*Page, error) {
	var p Page
	err := s.db.GetContext(ctx, &p, s.q(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
