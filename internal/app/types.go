package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nourabuild/finance-service/internal/sdk/models"
	"github.com/shopspring/decimal"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type SetActiveRequest struct {
	Active *bool `json:"active"`
}

// AuthResponse is returned by every endpoint that issues a token.
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type AvatarResponse struct {
	AvatarURL string      `json:"avatarUrl"`
	User      models.User `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LivenessResponse struct {
	Status     string `json:"status"`
	Host       string `json:"host"`
	GOMAXPROCS int    `json:"gomaxprocs"`
}

// Date accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d *Date) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// ExpenseRequest is the body of expense create and update. Amounts may be
// JSON numbers or strings. Absent fields are left untouched on update.
type ExpenseRequest struct {
	Amount            *decimal.Decimal `json:"amount"`
	Description       *string          `json:"description"`
	Category          *models.Category `json:"category"`
	Date              *Date            `json:"date"`
	IsRecurring       *bool            `json:"isRecurring"`
	RecurringInterval *models.Period   `json:"recurringInterval"`
}

func (r ExpenseRequest) toNew() models.NewExpense {
	var n models.NewExpense
	if r.Amount != nil {
		n.Amount = *r.Amount
	}
	if r.Description != nil {
		n.Description = *r.Description
	}
	if r.Category != nil {
		n.Category = *r.Category
	}
	n.Date = r.Date.ptr()
	if r.IsRecurring != nil {
		n.IsRecurring = *r.IsRecurring
	}
	if r.RecurringInterval != nil {
		n.RecurringInterval = *r.RecurringInterval
	}
	return n
}

func (r ExpenseRequest) toPatch() models.ExpensePatch {
	return models.ExpensePatch{
		Amount:            r.Amount,
		Description:       r.Description,
		Category:          r.Category,
		Date:              r.Date.ptr(),
		IsRecurring:       r.IsRecurring,
		RecurringInterval: r.RecurringInterval,
	}
}

type BudgetRequest struct {
	Category *models.Category `json:"category"`
	Amount   *decimal.Decimal `json:"amount"`
	Period   *models.Period   `json:"period"`
}

func (r BudgetRequest) toNew() models.NewBudget {
	var n models.NewBudget
	if r.Category != nil {
		n.Category = *r.Category
	}
	if r.Amount != nil {
		n.Amount = *r.Amount
	}
	if r.Period != nil {
		n.Period = *r.Period
	}
	return n
}

func (r BudgetRequest) toPatch() models.BudgetPatch {
	return models.BudgetPatch{
		Category: r.Category,
		Amount:   r.Amount,
		Period:   r.Period,
	}
}
