// Package report builds the dashboard summary of a user's spending against
// their budgets.
package report

import (
	"context"
	"sort"

	"github.com/nourabuild/finance-service/internal/sdk/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var hundred = decimal.NewFromInt(100)

// ExpenseLister and BudgetLister are satisfied by the resource repositories.
type ExpenseLister interface {
	List(ctx context.Context, ownerID string) ([]models.Expense, error)
}

type BudgetLister interface {
	List(ctx context.Context, ownerID string) ([]models.Budget, error)
}

type Totals struct {
	Expenses     decimal.Decimal `json:"expenses"`
	Budgets      decimal.Decimal `json:"budgets"`
	Remaining    decimal.Decimal `json:"remaining"`
	Utilization  decimal.Decimal `json:"utilization"`
	OverBudget   bool            `json:"overBudget"`
	ExpenseCount int             `json:"expenseCount"`
	BudgetCount  int             `json:"budgetCount"`
}

type CategorySpend struct {
	Category models.Category `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
	Share    decimal.Decimal `json:"percentage"`
}

type BudgetStatus struct {
	BudgetID   string          `json:"budgetId"`
	Category   models.Category `json:"category"`
	Period     models.Period   `json:"period"`
	Budget     decimal.Decimal `json:"budget"`
	Actual     decimal.Decimal `json:"actual"`
	Difference decimal.Decimal `json:"difference"`
	Percentage decimal.Decimal `json:"percentage"`
}

type MonthTotal struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type Summary struct {
	Totals           Totals          `json:"totals"`
	ByCategory       []CategorySpend `json:"byCategory"`
	BudgetComparison []BudgetStatus  `json:"budgetComparison"`
	MonthlyTrend     []MonthTotal    `json:"monthlyTrend"`
}

type Service struct {
	expenses ExpenseLister
	budgets  BudgetLister
}

func NewService(expenses ExpenseLister, budgets BudgetLister) *Service {
	return &Service{expenses: expenses, budgets: budgets}
}

// Summarize loads the owner's expenses and budgets concurrently and
// aggregates them.
func (s *Service) Summarize(ctx context.Context, ownerID string) (Summary, error) {
	var (
		expenses []models.Expense
		budgets  []models.Budget
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.expenses.List(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = s.budgets.List(gctx, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	return Build(expenses, budgets), nil
}

// Build aggregates already loaded records. Percentages are rounded to two
// decimals and are zero when their base is zero.
func Build(expenses []models.Expense, budgets []models.Budget) Summary {
	totalExpenses := decimal.Zero
	byCategory := make(map[models.Category]*CategorySpend)
	byMonth := make(map[string]decimal.Decimal)

	for _, e := range expenses {
		totalExpenses = totalExpenses.Add(e.Amount)

		cs, ok := byCategory[e.Category]
		if !ok {
			cs = &CategorySpend{Category: e.Category, Amount: decimal.Zero}
			byCategory[e.Category] = cs
		}
		cs.Amount = cs.Amount.Add(e.Amount)
		cs.Count++

		month := e.Date.UTC().Format("2006-01")
		byMonth[month] = byMonth[month].Add(e.Amount)
	}

	totalBudgets := decimal.Zero
	comparison := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		totalBudgets = totalBudgets.Add(b.Amount)

		actual := decimal.Zero
		if cs, ok := byCategory[b.Category]; ok {
			actual = cs.Amount
		}
		comparison = append(comparison, BudgetStatus{
			BudgetID:   b.ID,
			Category:   b.Category,
			Period:     b.Period,
			Budget:     b.Amount,
			Actual:     actual,
			Difference: b.Amount.Sub(actual),
			Percentage: percent(actual, b.Amount),
		})
	}

	categories := make([]CategorySpend, 0, len(byCategory))
	for _, cs := range byCategory {
		cs.Share = percent(cs.Amount, totalExpenses)
		categories = append(categories, *cs)
	}
	sort.Slice(categories, func(i, j int) bool {
		if c := categories[i].Amount.Cmp(categories[j].Amount); c != 0 {
			return c > 0
		}
		return categories[i].Category < categories[j].Category
	})

	trend := make([]MonthTotal, 0, len(byMonth))
	for month, amount := range byMonth {
		trend = append(trend, MonthTotal{Month: month, Amount: amount})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Month < trend[j].Month })

	utilization := percent(totalExpenses, totalBudgets)
	return Summary{
		Totals: Totals{
			Expenses:     totalExpenses,
			Budgets:      totalBudgets,
			Remaining:    totalBudgets.Sub(totalExpenses),
			Utilization:  utilization,
			OverBudget:   totalBudgets.IsPositive() && totalExpenses.GreaterThan(totalBudgets),
			ExpenseCount: len(expenses),
			BudgetCount:  len(budgets),
		},
		ByCategory:       categories,
		BudgetComparison: comparison,
		MonthlyTrend:     trend,
	}
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(2)
}
