package sqldb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nourabuild/finance-service/internal/sdk/models"
)

const budgetColumns = `
	id,
	user_id,
	category,
	amount,
	period,
	created_at`

func scanBudget(row rowScanner) (models.Budget, error) {
	var b models.Budget
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.Category,
		&b.Amount,
		&b.Period,
		&b.CreatedAt,
	)
	return b, err
}

// ListBudgets retrieves the budgets of a user in insertion order.
func (s *service) ListBudgets(ctx context.Context, userID string) ([]models.Budget, error) {
	query := `SELECT` + budgetColumns + ` FROM budgets WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning budget: %w", err)
		}
		budgets = append(budgets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating budgets: %w", err)
	}

	return budgets, nil
}

// GetBudgetByID retrieves a single budget regardless of owner.
func (s *service) GetBudgetByID(ctx context.Context, budgetID string) (models.Budget, error) {
	query := `SELECT` + budgetColumns + ` FROM budgets WHERE id = $1`

	b, err := scanBudget(s.db.QueryRowContext(ctx, query, budgetID))
	if err != nil {
		return models.Budget{}, classify(err, "selecting budget")
	}
	return b, nil
}

// CreateBudget inserts a budget owned by userID. A second budget for the same
// (user, category) pair fails with ErrDBDuplicatedEntry.
func (s *service) CreateBudget(ctx context.Context, userID string, nb models.NewBudget) (models.Budget, error) {
	query := `
		INSERT INTO budgets (id, user_id, category, amount, period, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING` + budgetColumns

	b, err := scanBudget(s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		userID,
		string(nb.Category),
		nb.Amount,
		string(nb.Period),
		s.now(),
	))
	if err != nil {
		return models.Budget{}, classify(err, "creating budget")
	}
	return b, nil
}

// UpdateBudget applies a partial update in a single statement.
func (s *service) UpdateBudget(ctx context.Context, userID, budgetID string, patch models.BudgetPatch) (models.Budget, error) {
	query := `
		UPDATE budgets
		SET category = COALESCE($3, category),
		    amount = COALESCE($4, amount),
		    period = COALESCE($5, period)
		WHERE id = $1 AND user_id = $2
		RETURNING` + budgetColumns

	b, err := scanBudget(s.db.QueryRowContext(ctx, query,
		budgetID,
		userID,
		nullCategory(patch.Category),
		nullDecimal(patch.Amount),
		nullPeriod(patch.Period),
	))
	if err != nil {
		return models.Budget{}, classify(err, "updating budget")
	}
	return b, nil
}

// DeleteBudget removes a budget owned by userID.
func (s *service) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	const query = `DELETE FROM budgets WHERE id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, budgetID, userID)
	if err != nil {
		return fmt.Errorf("deleting budget: %w", err)
	}
	return expectAffected(result)
}
