package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// ProviderLocal marks accounts that sign in with email and password.
const ProviderLocal = "local"

type User struct {
	ID           int64          `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	Provider     string         `db:"provider"`
	Subject      sql.NullString `db:"subject"`
	IsAdmin      bool           `db:"is_admin"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

const userColumns = `id, name, email, password_hash, provider, subject, is_admin, created_at, updated_at`

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) q(query string) string { return s.db.Rebind(query) }

// Create inserts a local account. email must already be normalized.
// Returns ErrEmailTaken when the address is in use.
func (s *UserStore) Create(ctx context.Context, name, email, passwordHash string) (*User, error) {
	now := time.Now().UTC()
	id, err := insertID(ctx, s.db, `
		INSERT INTO users (name, email, password_hash, provider, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, email, passwordHash, ProviderLocal, false, now, now)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// CreateFederated inserts an account that signs in through an external
// identity provider. It has no usable password.
func (s *UserStore) CreateFederated(ctx context.Context, provider, subject, name, email string) (*User, error) {
	now := time.Now().UTC()
	id, err := insertID(ctx, s.db, `
		INSERT INTO users (name, email, password_hash, provider, subject, is_admin, created_at, updated_at)
		VALUES (?, ?, '', ?, ?, ?, ?, ?)`,
		name, email, provider, subject, false, now, now)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// LinkIdentity attaches an external (provider, subject) pair to an existing account.
func (s *UserStore) LinkIdentity(ctx context.Context, id int64, provider, subject string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE users SET provider = ?, subject = ?, updated_at = ? WHERE id = ?`),
		provider, subject, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByEmail returns the user matching email, or ErrNotFound.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetByID returns the user matching id, or ErrNotFound.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByIdentity returns the user linked to an external identity, or ErrNotFound.
func (s *UserStore) GetByIdentity(ctx context.Context, provider, subject string) (*User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE provider = ? AND subject = ?`, provider, subject)
}

func (s *UserStore) get(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.q(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
