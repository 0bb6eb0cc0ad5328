package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/nourabuild/finance-service/internal/sdk/models"
	"github.com/shopspring/decimal"
)

const expenseColumns = `
	id,
	user_id,
	amount,
	description,
	category,
	expense_date,
	is_recurring,
	recurring_interval,
	created_at`

func scanExpense(row rowScanner) (models.Expense, error) {
	var e models.Expense
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Amount,
		&e.Description,
		&e.Category,
		&e.Date,
		&e.IsRecurring,
		&e.RecurringInterval,
		&e.CreatedAt,
	)
	return e, err
}

// ListExpenses retrieves the expenses of a user in insertion order.
func (s *service) ListExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	query := `SELECT` + expenseColumns + ` FROM expenses WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}
		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expenses: %w", err)
	}

	return expenses, nil
}

// GetExpenseByID retrieves a single expense regardless of owner.
func (s *service) GetExpenseByID(ctx context.Context, expenseID string) (models.Expense, error) {
	query := `SELECT` + expenseColumns + ` FROM expenses WHERE id = $1`

	e, err := scanExpense(s.db.QueryRowContext(ctx, query, expenseID))
	if err != nil {
		return models.Expense{}, classify(err, "selecting expense")
	}
	return e, nil
}

// CreateExpense inserts an expense owned by userID. The caller resolves the
// default date.
func (s *service) CreateExpense(ctx context.Context, userID string, ne models.NewExpense) (models.Expense, error) {
	query := `
		INSERT INTO expenses (id, user_id, amount, description, category, expense_date, is_recurring, recurring_interval, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING` + expenseColumns

	now := s.now()
	date := now
	if ne.Date != nil {
		date = ne.Date.UTC()
	}

	e, err := scanExpense(s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		userID,
		ne.Amount,
		ne.Description,
		string(ne.Category),
		date,
		ne.IsRecurring,
		string(ne.RecurringInterval),
		now,
	))
	if err != nil {
		return models.Expense{}, classify(err, "creating expense")
	}
	return e, nil
}

// UpdateExpense applies a partial update in a single statement. Nil patch
// fields keep their stored value.
func (s *service) UpdateExpense(ctx context.Context, userID, expenseID string, patch models.ExpensePatch) (models.Expense, error) {
	query := `
		UPDATE expenses
		SET amount = COALESCE($3, amount),
		    description = COALESCE($4, description),
		    category = COALESCE($5, category),
		    expense_date = COALESCE($6, expense_date),
		    is_recurring = COALESCE($7, is_recurring),
		    recurring_interval = COALESCE($8, recurring_interval)
		WHERE id = $1 AND user_id = $2
		RETURNING` + expenseColumns

	e, err := scanExpense(s.db.QueryRowContext(ctx, query,
		expenseID,
		userID,
		nullDecimal(patch.Amount),
		NullString(patch.Description),
		nullCategory(patch.Category),
		NullTime(patch.Date),
		NullBool(patch.IsRecurring),
		nullPeriod(patch.RecurringInterval),
	))
	if err != nil {
		return models.Expense{}, classify(err, "updating expense")
	}
	return e, nil
}

// DeleteExpense removes an expense owned by userID.
func (s *service) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	const query = `DELETE FROM expenses WHERE id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, expenseID, userID)
	if err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	return expectAffected(result)
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullCategory(c *models.Category) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*c), Valid: true}
}

func nullPeriod(p *models.Period) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*p), Valid: true}
}
