// Package session resolves bearer tokens to identities and issues or revokes
// them.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/jwt"
	"github.com/nourabuild/finance-service/internal/sdk/models"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb"
)

// Identity is the resolved caller of a request.
type Identity struct {
	User   models.User
	Claims *jwt.Claims
}

// UserLookup finds identities by id.
type UserLookup interface {
	GetUserByID(ctx context.Context, userID string, includeInactive bool) (models.User, error)
}

// Denylist records revoked token ids until their tokens expire.
type Denylist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Gate struct {
	tokens   *jwt.TokenService
	users    UserLookup
	denylist Denylist
}

func NewGate(tokens *jwt.TokenService, users UserLookup, denylist Denylist) *Gate {
	return &Gate{
		tokens:   tokens,
		users:    users,
		denylist: denylist,
	}
}

// Resolve verifies a bearer token and returns the identity it belongs to.
// The token must be well formed, signed, unexpired and not revoked, and its
// user must still exist, be active and not have changed password since the
// token was issued.
func (g *Gate) Resolve(ctx context.Context, token string) (Identity, error) {
	claims, err := g.tokens.ParseAccessToken(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenNotFound):
			return Identity{}, errs.Newf(errs.Unauthenticated, "missing bearer token")
		case errors.Is(err, jwt.ErrExpiredToken):
			return Identity{}, errs.Newf(errs.Unauthenticated, "token has expired")
		default:
			return Identity{}, errs.Newf(errs.Unauthenticated, "invalid token")
		}
	}

	revoked, err := g.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Identity{}, errs.New(errs.Internal, fmt.Errorf("checking denylist: %w", err))
	}
	if revoked {
		return Identity{}, errs.Newf(errs.Unauthenticated, "token has been revoked")
	}

	user, err := g.users.GetUserByID(ctx, claims.Subject, false)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return Identity{}, errs.Newf(errs.Unauthenticated, "user no longer exists")
		}
		return Identity{}, errs.New(errs.Internal, fmt.Errorf("selecting user: %w", err))
	}

	if user.ChangedPasswordAfter(claims.IssuedAtTime()) {
		return Identity{}, errs.Newf(errs.Unauthenticated, "password was changed, log in again")
	}

	return Identity{User: user, Claims: claims}, nil
}

// Issue signs a new token for user.
func (g *Gate) Issue(ctx context.Context, user models.User) (string, error) {
	token, _, err := g.tokens.GenerateAccessToken(ctx, user.ID, string(user.Role))
	if err != nil {
		return "", errs.New(errs.Internal, err)
	}
	return token, nil
}

// Revoke denylists the token described by claims until it expires.
func (g *Gate) Revoke(ctx context.Context, claims *jwt.Claims) error {
	if claims == nil || claims.ID == "" {
		return errs.Newf(errs.Unauthenticated, "invalid token")
	}
	if err := g.denylist.Revoke(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		return errs.New(errs.Internal, fmt.Errorf("revoking token: %w", err))
	}
	return nil
}

// BearerToken extracts the token from an Authorization header value. It
// returns "" when the header is not a bearer credential.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ---------------------------------------------
// SQL denylist
// ---------------------------------------------

// RevokedTokenStore is the database side of the SQL denylist.
type RevokedTokenStore interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// SQLDenylist keeps revocations in the revoked_tokens table.
type SQLDenylist struct {
	store RevokedTokenStore
}

func NewSQLDenylist(store RevokedTokenStore) *SQLDenylist {
	return &SQLDenylist{store: store}
}

func (d *SQLDenylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	return d.store.RevokeToken(ctx, jti, expiresAt)
}

func (d *SQLDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return d.store.IsTokenRevoked(ctx, jti)
}
