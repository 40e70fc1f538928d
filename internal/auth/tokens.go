package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, other
	// algorithms and missing claims.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// MinSecretLength is the shortest HS256 secret accepted by NewTokens.
const MinSecretLength = 32

// Identity is the authenticated requester carried by an identity token.
type Identity struct {
	UserID  int64
	Email   string
	IsAdmin bool
}

type privateClaims struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// Tokens issues and verifies HS256 identity tokens.
type Tokens struct {
	key      []byte
	lifetime time.Duration
	signer   jose.Signer
	now      func() time.Time
}

func NewTokens(secret []byte, lifetime time.Duration) (*Tokens, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive")
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	return &Tokens{key: secret, lifetime: lifetime, signer: signer, now: time.Now}, nil
}

// Lifetime is how long an issued token stays valid.
func (t *Tokens) Lifetime() time.Duration { return t.lifetime }

// Issue signs a token for id.
func (t *Tokens) Issue(id Identity) (string, error) {
	now := t.now()
	std := jwt.Claims{
		Subject:  strconv.FormatInt(id.UserID, 10),
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(t.lifetime)),
		ID:       uuid.NewString(),
	}
	raw, err := jwt.Signed(t.signer).Claims(std).Claims(privateClaims{Email: id.Email, IsAdmin: id.IsAdmin}).Serialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return raw, nil
}

// Verify checks the signature and expiry of raw and returns its identity.
func (t *Tokens) Verify(raw string) (Identity, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	var (
		std  jwt.Claims
		priv privateClaims
	)
	if err := tok.Claims(t.key, &std, &priv); err != nil {
		return Identity{}, ErrInvalidToken
	}
	if std.Expiry == nil {
		return Identity{}, ErrInvalidToken
	}
	if err := std.ValidateWithLeeway(jwt.Expected{Time: t.now()}, 0); err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrInvalidToken
	}
	uid, err := strconv.ParseInt(std.Subject, 10, 64)
	if err != nil || uid <= 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: uid, Email: priv.Email, IsAdmin: priv.IsAdmin}, nil
}
