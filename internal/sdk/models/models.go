// Package models defines data models for the finance service.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a user in the system
type User struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Password            []byte     `json:"-"`
	Phone               *string    `json:"phone,omitempty"`
	Avatar              string     `json:"avatar"`
	Role                Role       `json:"role"`
	Active              bool       `json:"-"`
	PasswordChangedAt   *time.Time `json:"-"`
	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ChangedPasswordAfter reports whether the password was changed after a token
// issued at issuedAt. Comparison is done at second precision, which is the
// precision of a token's iat claim.
func (u User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password []byte `json:"-"`
}

// UserPatch holds a partial profile update. Nil fields are left untouched.
type UserPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// Category tags expenses and budgets.
type Category string

const (
	CategoryFood           Category = "Food"
	CategoryTransportation Category = "Transportation"
	CategoryHousing        Category = "Housing"
	CategoryEntertainment  Category = "Entertainment"
	CategoryUtilities      Category = "Utilities"
	CategoryHealthcare     Category = "Healthcare"
	CategoryEducation      Category = "Education"
	CategoryShopping       Category = "Shopping"
	CategoryOther          Category = "Other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransportation,
	CategoryHousing,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryEducation,
	CategoryShopping,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Period is a recurrence or budgeting interval.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// Expense is a single spending record owned by a user.
type Expense struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	Category          Category        `json:"category"`
	Date              time.Time       `json:"date"`
	IsRecurring       bool            `json:"isRecurring"`
	RecurringInterval Period          `json:"recurringInterval,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Owner returns the id of the owning user.
func (e Expense) Owner() string { return e.UserID }

// NewExpense carries the caller-supplied fields of an expense. The owner is
// never part of it.
type NewExpense struct {
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	Category          Category        `json:"category"`
	Date              *time.Time      `json:"date"`
	IsRecurring       bool            `json:"isRecurring"`
	RecurringInterval Period          `json:"recurringInterval"`
}

type ExpensePatch struct {
	Amount            *decimal.Decimal `json:"amount"`
	Description       *string          `json:"description"`
	Category          *Category        `json:"category"`
	Date              *time.Time       `json:"date"`
	IsRecurring       *bool            `json:"isRecurring"`
	RecurringInterval *Period          `json:"recurringInterval"`
}

// Budget caps spending for one category. A user has at most one budget per
// category.
type Budget struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user"`
	Category  Category        `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Period    Period          `json:"period"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Owner returns the id of the owning user.
func (b Budget) Owner() string { return b.UserID }

type NewBudget struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Period   Period          `json:"period"`
}

type BudgetPatch struct {
	Category *Category        `json:"category"`
	Amount   *decimal.Decimal `json:"amount"`
	Period   *Period          `json:"period"`
}
