package resource

import (
	"context"
	"strings"

	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/models"
)

const MaxDescriptionLength = 500

// Expenses is the repository of expense records.
type Expenses = Repository[models.Expense, models.NewExpense, models.ExpensePatch]

// ExpenseDB is the part of the database the expense repository uses.
type ExpenseDB interface {
	ListExpenses(ctx context.Context, userID string) ([]models.Expense, error)
	GetExpenseByID(ctx context.Context, expenseID string) (models.Expense, error)
	CreateExpense(ctx context.Context, userID string, ne models.NewExpense) (models.Expense, error)
	UpdateExpense(ctx context.Context, userID, expenseID string, patch models.ExpensePatch) (models.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID string) error
}

func NewExpenses(db ExpenseDB) *Expenses {
	return New[models.Expense, models.NewExpense, models.ExpensePatch](expenseStore{db: db}, expenseRules{})
}

type expenseStore struct {
	db ExpenseDB
}

func (s expenseStore) List(ctx context.Context, ownerID string) ([]models.Expense, error) {
	return s.db.ListExpenses(ctx, ownerID)
}

func (s expenseStore) Find(ctx context.Context, id string) (models.Expense, error) {
	return s.db.GetExpenseByID(ctx, id)
}

func (s expenseStore) Insert(ctx context.Context, ownerID string, n models.NewExpense) (models.Expense, error) {
	return s.db.CreateExpense(ctx, ownerID, n)
}

func (s expenseStore) Patch(ctx context.Context, ownerID, id string, p models.ExpensePatch) (models.Expense, error) {
	return s.db.UpdateExpense(ctx, ownerID, id, p)
}

func (s expenseStore) Remove(ctx context.Context, ownerID, id string) error {
	return s.db.DeleteExpense(ctx, ownerID, id)
}

type expenseRules struct{}

func (expenseRules) Name() string { return "expense" }

func (expenseRules) Conflict() error {
	return errs.Newf(errs.InvalidArgument, "expense conflicts with an existing record")
}

func (expenseRules) ValidateNew(n models.NewExpense) (models.NewExpense, map[string]string) {
	fields := make(map[string]string)

	validateAmount(fields, n.Amount)

	n.Description = strings.TrimSpace(n.Description)
	validateDescription(fields, n.Description)

	if !n.Category.Valid() {
		fields["category"] = "invalid_category"
	}

	switch {
	case !n.IsRecurring:
		n.RecurringInterval = ""
	case n.RecurringInterval == "":
		fields["recurringInterval"] = "recurring_interval_required"
	case !n.RecurringInterval.Valid():
		fields["recurringInterval"] = "invalid_recurring_interval"
	}

	return n, fields
}

func (expenseRules) ValidatePatch(current models.Expense, p models.ExpensePatch) (models.ExpensePatch, map[string]string) {
	fields := make(map[string]string)

	if p.Amount != nil {
		validateAmount(fields, *p.Amount)
	}

	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		validateDescription(fields, desc)
		p.Description = &desc
	}

	if p.Category != nil && !p.Category.Valid() {
		fields["category"] = "invalid_category"
	}

	recurring := current.IsRecurring
	if p.IsRecurring != nil {
		recurring = *p.IsRecurring
	}
	interval := current.RecurringInterval
	if p.RecurringInterval != nil {
		interval = *p.RecurringInterval
	}

	switch {
	case !recurring:
		if interval != "" {
			cleared := models.Period("")
			p.RecurringInterval = &cleared
		}
	case interval == "":
		fields["recurringInterval"] = "recurring_interval_required"
	case !interval.Valid():
		fields["recurringInterval"] = "invalid_recurring_interval"
	}

	return p, fields
}

func validateDescription(fields map[string]string, desc string) {
	switch {
	case desc == "":
		fields["description"] = "description_required"
	case len([]rune(desc)) > MaxDescriptionLength:
		fields["description"] = "description_too_long"
	}
}
