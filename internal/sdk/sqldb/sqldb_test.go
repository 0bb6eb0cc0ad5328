package sqldb_test

import (
	"context"
	"testing"
	"time"

	"github.com/nourabuild/finance-service/internal/sdk/models"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb/sqldbtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite exercises the store against an in-memory SQLite database.
type DBTestSuite struct {
	suite.Suite
	ctx  context.Context
	db   sqldb.Service
	user models.User
}

func (s *DBTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = sqldbtest.New(s.T())

	user, err := s.db.CreateUser(s.ctx, models.NewUser{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: []byte("hash"),
	})
	require.NoError(s.T(), err)
	s.user = user
}

func (s *DBTestSuite) newUser(email string) models.User {
	user, err := s.db.CreateUser(s.ctx, models.NewUser{Name: "Other", Email: email, Password: []byte("hash")})
	require.NoError(s.T(), err)
	return user
}

func (s *DBTestSuite) TestCreateUserDefaults() {
	assert.NotEmpty(s.T(), s.user.ID)
	assert.Equal(s.T(), models.RoleUser, s.user.Role)
	assert.True(s.T(), s.user.Active)
	assert.Empty(s.T(), s.user.Avatar)
	assert.Nil(s.T(), s.user.PasswordChangedAt)
}

func (s *DBTestSuite) TestCreateUserDuplicateEmail() {
	_, err := s.db.CreateUser(s.ctx, models.NewUser{Name: "Bob", Email: "alice@example.com", Password: []byte("x")})
	assert.ErrorIs(s.T(), err, sqldb.ErrDBDuplicatedEntry)
}

func (s *DBTestSuite) TestInactiveUsersAreHiddenByDefault() {
	_, err := s.db.SetUserActive(s.ctx, s.user.ID, false)
	require.NoError(s.T(), err)

	_, err = s.db.GetUserByID(s.ctx, s.user.ID, false)
	assert.ErrorIs(s.T(), err, sqldb.ErrDBNotFound)

	_, err = s.db.GetUserByEmail(s.ctx, "alice@example.com", false)
	assert.ErrorIs(s.T(), err, sqldb.ErrDBNotFound)

	got, err := s.db.GetUserByID(s.ctx, s.user.ID, true)
	require.NoError(s.T(), err)
	assert.False(s.T(), got.Active)
}

func (s *DBTestSuite) TestUpdateUserPasswordClearsResetToken() {
	hash := "abc"
	expires := time.Now().Add(10 * time.Minute)
	require.NoError(s.T(), s.db.SetPasswordResetToken(s.ctx, s.user.ID, &hash, &expires))

	found, err := s.db.GetUserByResetTokenHash(s.ctx, hash, false)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.user.ID, found.ID)

	changed := time.Now().Add(-time.Second)
	require.NoError(s.T(), s.db.UpdateUserPassword(s.ctx, s.user.ID, []byte("new-hash"), changed))

	got, err := s.db.GetUserByID(s.ctx, s.user.ID, false)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []byte("new-hash"), got.Password)
	assert.Nil(s.T(), got.ResetTokenHash)
	require.NotNil(s.T(), got.PasswordChangedAt)
	assert.WithinDuration(s.T(), changed, *got.PasswordChangedAt, time.Millisecond)
}

func (s *DBTestSuite) TestExpenseLifecycle() {
	date := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	created, err := s.db.CreateExpense(s.ctx, s.user.ID, models.NewExpense{
		Amount:      decimal.RequireFromString("12.50"),
		Description: "Lunch",
		Category:    models.CategoryFood,
		Date:        &date,
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.user.ID, created.UserID)
	assert.True(s.T(), created.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.True(s.T(), created.Date.Equal(date))

	desc := "Dinner"
	updated, err := s.db.UpdateExpense(s.ctx, s.user.ID, created.ID, models.ExpensePatch{Description: &desc})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Dinner", updated.Description)
	assert.Equal(s.T(), models.CategoryFood, updated.Category)
	assert.True(s.T(), updated.Amount.Equal(created.Amount))

	list, err := s.db.ListExpenses(s.ctx, s.user.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), list, 1)

	require.NoError(s.T(), s.db.DeleteExpense(s.ctx, s.user.ID, created.ID))
	_, err = s.db.GetExpenseByID(s.ctx, created.ID)
	assert.ErrorIs(s.T(), err, sqldb.ErrDBNotFound)
}

func (s *DBTestSuite) TestExpenseMutationsAreOwnerScoped() {
	other := s.newUser("bob@example.com")
	created, err := s.db.CreateExpense(s.ctx, s.user.ID, models.NewExpense{
		Amount:      decimal.NewFromInt(5),
		Description: "Coffee",
		Category:    models.CategoryFood,
	})
	require.NoError(s.T(), err)

	desc := "hijacked"
	_, err = s.db.UpdateExpense(s.ctx, other.ID, created.ID, models.ExpensePatch{Description: &desc})
	assert.ErrorIs(s.T(), err, sqldb.ErrDBNotFound)

	err = s.db.DeleteExpense(s.ctx, other.ID, created.ID)
	assert.ErrorIs(s.T(), err, sqldb.ErrDBNotFound)

	got, err := s.db.GetExpenseByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Coffee", got.Description)
}

func (s *DBTestSuite) TestBudgetUniquePerUserAndCategory() {
	_, err := s.db.CreateBudget(s.ctx, s.user.ID, models.NewBudget{
		Category: models.CategoryFood,
		Amount:   decimal.NewFromInt(500),
		Period:   models.PeriodMonthly,
	})
	require.NoError(s.T(), err)

	_, err = s.db.CreateBudget(s.ctx, s.user.ID, models.NewBudget{
		Category: models.CategoryFood,
		Amount:   decimal.NewFromInt(200),
		Period:   models.PeriodMonthly,
	})
	assert.ErrorIs(s.T(), err, sqldb.ErrDBDuplicatedEntry)

	other := s.newUser("bob@example.com")
	_, err = s.db.CreateBudget(s.ctx, other.ID, models.NewBudget{
		Category: models.CategoryFood,
		Amount:   decimal.NewFromInt(200),
		Period:   models.PeriodWeekly,
	})
	assert.NoError(s.T(), err, "another user may budget the same category")
}

func (s *DBTestSuite) TestBudgetUpdateCategoryCollision() {
	_, err := s.db.CreateBudget(s.ctx, s.user.ID, models.NewBudget{
		Category: models.CategoryFood, Amount: decimal.NewFromInt(100), Period: models.PeriodMonthly,
	})
	require.NoError(s.T(), err)
	housing, err := s.db.CreateBudget(s.ctx, s.user.ID, models.NewBudget{
		Category: models.CategoryHousing, Amount: decimal.NewFromInt(900), Period: models.PeriodMonthly,
	})
	require.NoError(s.T(), err)

	food := models.CategoryFood
	_, err = s.db.UpdateBudget(s.ctx, s.user.ID, housing.ID, models.BudgetPatch{Category: &food})
	assert.ErrorIs(s.T(), err, sqldb.ErrDBDuplicatedEntry)

	got, err := s.db.GetBudgetByID(s.ctx, housing.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.CategoryHousing, got.Category)
}

func (s *DBTestSuite) TestDeleteUserCascades() {
	_, err := s.db.CreateExpense(s.ctx, s.user.ID, models.NewExpense{
		Amount: decimal.NewFromInt(5), Description: "Coffee", Category: models.CategoryFood,
	})
	require.NoError(s.T(), err)
	_, err = s.db.CreateBudget(s.ctx, s.user.ID, models.NewBudget{
		Category: models.CategoryFood, Amount: decimal.NewFromInt(100), Period: models.PeriodMonthly,
	})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.db.DeleteUser(s.ctx, s.user.ID))

	expenses, err := s.db.ListExpenses(s.ctx, s.user.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), expenses)

	budgets, err := s.db.ListBudgets(s.ctx, s.user.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), budgets)

	_, err = s.db.GetUserByID(s.ctx, s.user.ID, true)
	assert.ErrorIs(s.T(), err, sqldb.ErrDBNotFound)
}

func (s *DBTestSuite) TestRevokedTokens() {
	revoked, err := s.db.IsTokenRevoked(s.ctx, "jti-1")
	require.NoError(s.T(), err)
	assert.False(s.T(), revoked)

	exp := time.Now().Add(time.Hour)
	require.NoError(s.T(), s.db.RevokeToken(s.ctx, "jti-1", exp))
	require.NoError(s.T(), s.db.RevokeToken(s.ctx, "jti-1", exp), "revoking twice is idempotent")

	revoked, err = s.db.IsTokenRevoked(s.ctx, "jti-1")
	require.NoError(s.T(), err)
	assert.True(s.T(), revoked)
}

func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}
