package sqldb

import (
	"context"
	"fmt"
	"time"
)

// ---------------------------------------------
// Revoked Token Operations
// ---------------------------------------------

// RevokeToken records a token id as revoked until expiresAt. Revoking the same
// token twice is not an error.
func (s *service) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	const query = `
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, jti, expiresAt.UTC()); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether a token id has been revoked.
func (s *service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	const query = `SELECT COUNT(*) FROM revoked_tokens WHERE jti = $1`

	var n int
	if err := s.db.QueryRowContext(ctx, query, jti).Scan(&n); err != nil {
		return false, fmt.Errorf("checking revoked token: %w", err)
	}
	return n > 0, nil
}

// DeleteExpiredRevokedTokens removes revocations whose tokens have expired on
// their own.
func (s *service) DeleteExpiredRevokedTokens(ctx context.Context) error {
	const query = `DELETE FROM revoked_tokens WHERE expires_at < $1`

	if _, err := s.db.ExecContext(ctx, query, s.now()); err != nil {
		return fmt.Errorf("deleting expired revoked tokens: %w", err)
	}
	return nil
}
