package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nourabuild/finance-service/internal/sdk/models"
)

const userColumns = `
	id,
	name,
	email,
	password,
	phone,
	avatar,
	role,
	active,
	password_changed_at,
	reset_token_hash,
	reset_token_expires_at,
	created_at,
	updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var (
		user         models.User
		phone        sql.NullString
		changedAt    sql.NullTime
		resetHash    sql.NullString
		resetExpires sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&phone,
		&user.Avatar,
		&user.Role,
		&user.Active,
		&changedAt,
		&resetHash,
		&resetExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	user.Phone = StringPtr(phone)
	user.PasswordChangedAt = TimePtr(changedAt)
	user.ResetTokenHash = StringPtr(resetHash)
	user.ResetTokenExpiresAt = TimePtr(resetExpires)
	return user, nil
}

func activeFilter(includeInactive bool) string {
	if includeInactive {
		return ""
	}
	return " AND active = TRUE"
}

// ---------------------------------------------
// SQL Commands
// ---------------------------------------------

// GetUserByID retrieves a user by their ID
func (s *service) GetUserByID(ctx context.Context, userID string, includeInactive bool) (models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1` + activeFilter(includeInactive)

	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		return models.User{}, classify(err, "selecting user")
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email address. Emails are stored
// lowercased, so callers pass the normalized form.
func (s *service) GetUserByEmail(ctx context.Context, email string, includeInactive bool) (models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email = $1` + activeFilter(includeInactive)

	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return models.User{}, classify(err, "selecting user by email")
	}
	return user, nil
}

// GetUserByResetTokenHash retrieves the user holding a password reset token.
func (s *service) GetUserByResetTokenHash(ctx context.Context, tokenHash string, includeInactive bool) (models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE reset_token_hash = $1` + activeFilter(includeInactive)

	user, err := scanUser(s.db.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		return models.User{}, classify(err, "selecting user by reset token")
	}
	return user, nil
}

// CreateUser inserts a new user into the database
func (s *service) CreateUser(ctx context.Context, nu models.NewUser) (models.User, error) {
	query := `
		INSERT INTO users (id, name, email, password, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
		RETURNING` + userColumns

	now := s.now()
	user, err := scanUser(s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		nu.Name,
		nu.Email,
		nu.Password,
		models.RoleUser,
		now,
	))
	if err != nil {
		return models.User{}, classify(err, "creating user")
	}
	return user, nil
}

// ListUsers retrieves all users, including inactive ones.
func (s *service) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	return users, nil
}

// UpdateUser applies a partial profile update to an active user.
func (s *service) UpdateUser(ctx context.Context, userID string, patch models.UserPatch) (models.User, error) {
	query := `
		UPDATE users
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    phone = COALESCE($4, phone),
		    updated_at = $5
		WHERE id = $1 AND active = TRUE
		RETURNING` + userColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query,
		userID,
		NullString(patch.Name),
		NullString(patch.Email),
		NullString(patch.Phone),
		s.now(),
	))
	if err != nil {
		return models.User{}, classify(err, "updating user")
	}
	return user, nil
}

// UpdateUserPassword stores a new password hash and records when it changed.
// Any pending reset token is cleared.
func (s *service) UpdateUserPassword(ctx context.Context, userID string, hash []byte, changedAt time.Time) error {
	const query = `
		UPDATE users
		SET password = $2,
		    password_changed_at = $3,
		    reset_token_hash = NULL,
		    reset_token_expires_at = NULL,
		    updated_at = $4
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, userID, hash, changedAt.UTC(), s.now())
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return expectAffected(result)
}

// SetPasswordResetToken stores (or clears, with nil arguments) the hashed reset
// token of a user.
func (s *service) SetPasswordResetToken(ctx context.Context, userID string, tokenHash *string, expiresAt *time.Time) error {
	const query = `
		UPDATE users
		SET reset_token_hash = $2,
		    reset_token_expires_at = $3,
		    updated_at = $4
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, userID, NullString(tokenHash), NullTime(expiresAt), s.now())
	if err != nil {
		return fmt.Errorf("setting reset token: %w", err)
	}
	return expectAffected(result)
}

// UpdateUserAvatar sets the avatar reference of an active user.
func (s *service) UpdateUserAvatar(ctx context.Context, userID, avatar string) (models.User, error) {
	query := `
		UPDATE users
		SET avatar = $2,
		    updated_at = $3
		WHERE id = $1 AND active = TRUE
		RETURNING` + userColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID, avatar, s.now()))
	if err != nil {
		return models.User{}, classify(err, "updating avatar")
	}
	return user, nil
}

// SetUserActive enables or soft-disables a user.
func (s *service) SetUserActive(ctx context.Context, userID string, active bool) (models.User, error) {
	query := `
		UPDATE users
		SET active = $2,
		    updated_at = $3
		WHERE id = $1
		RETURNING` + userColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID, active, s.now()))
	if err != nil {
		return models.User{}, classify(err, "setting user active")
	}
	return user, nil
}

// SetUserRole changes the authorization level of a user.
func (s *service) SetUserRole(ctx context.Context, userID string, role models.Role) (models.User, error) {
	query := `
		UPDATE users
		SET role = $2,
		    updated_at = $3
		WHERE id = $1
		RETURNING` + userColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID, role, s.now()))
	if err != nil {
		return models.User{}, classify(err, "setting user role")
	}
	return user, nil
}

// DeleteUser removes a user together with the expenses and budgets it owns.
func (s *service) DeleteUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting user expenses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting user budgets: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	return nil
}

func expectAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDBNotFound
	}
	return nil
}
