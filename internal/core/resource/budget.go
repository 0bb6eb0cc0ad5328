package resource

import (
	"context"

	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/models"
)

// Budgets is the repository of budget records. A user holds at most one
// budget per category.
type Budgets = Repository[models.Budget, models.NewBudget, models.BudgetPatch]

// BudgetDB is the part of the database the budget repository uses.
type BudgetDB interface {
	ListBudgets(ctx context.Context, userID string) ([]models.Budget, error)
	GetBudgetByID(ctx context.Context, budgetID string) (models.Budget, error)
	CreateBudget(ctx context.Context, userID string, nb models.NewBudget) (models.Budget, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, patch models.BudgetPatch) (models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
}

func NewBudgets(db BudgetDB) *Budgets {
	return New[models.Budget, models.NewBudget, models.BudgetPatch](budgetStore{db: db}, budgetRules{})
}

type budgetStore struct {
	db BudgetDB
}

func (s budgetStore) List(ctx context.Context, ownerID string) ([]models.Budget, error) {
	return s.db.ListBudgets(ctx, ownerID)
}

func (s budgetStore) Find(ctx context.Context, id string) (models.Budget, error) {
	return s.db.GetBudgetByID(ctx, id)
}

func (s budgetStore) Insert(ctx context.Context, ownerID string, n models.NewBudget) (models.Budget, error) {
	return s.db.CreateBudget(ctx, ownerID, n)
}

func (s budgetStore) Patch(ctx context.Context, ownerID, id string, p models.BudgetPatch) (models.Budget, error) {
	return s.db.UpdateBudget(ctx, ownerID, id, p)
}

func (s budgetStore) Remove(ctx context.Context, ownerID, id string) error {
	return s.db.DeleteBudget(ctx, ownerID, id)
}

type budgetRules struct{}

func (budgetRules) Name() string { return "budget" }

func (budgetRules) Conflict() error {
	return errs.Newf(errs.DuplicateCategory, "a budget for this category already exists")
}

func (budgetRules) ValidateNew(n models.NewBudget) (models.NewBudget, map[string]string) {
	fields := make(map[string]string)

	if !n.Category.Valid() {
		fields["category"] = "invalid_category"
	}
	validateAmount(fields, n.Amount)
	if n.Period == "" {
		n.Period = models.PeriodMonthly
	} else if !n.Period.Valid() {
		fields["period"] = "invalid_period"
	}

	return n, fields
}

func (budgetRules) ValidatePatch(_ models.Budget, p models.BudgetPatch) (models.BudgetPatch, map[string]string) {
	fields := make(map[string]string)

	if p.Category != nil && !p.Category.Valid() {
		fields["category"] = "invalid_category"
	}
	if p.Amount != nil {
		validateAmount(fields, *p.Amount)
	}
	if p.Period != nil && !p.Period.Valid() {
		fields["period"] = "invalid_period"
	}

	return p, fields
}
