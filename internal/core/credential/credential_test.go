package credential_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nourabuild/finance-service/internal/core/credential"
	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/models"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb/sqldbtest"
	"github.com/nourabuild/finance-service/internal/services/hash"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type CredentialTestSuite struct {
	suite.Suite
	ctx   context.Context
	db    sqldb.Service
	svc   *credential.Service
	clock time.Time
}

func (s *CredentialTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = sqldbtest.New(s.T())
	s.clock = time.Now().UTC()
	s.svc = credential.NewService(s.db, hash.NewHashService(bcrypt.MinCost),
		credential.WithClock(func() time.Time { return s.clock }))
}

func (s *CredentialTestSuite) register(name, email, password string) models.User {
	user, err := s.svc.Register(s.ctx, name, email, password)
	require.NoError(s.T(), err)
	return user
}

func (s *CredentialTestSuite) TestRegisterAndAuthenticate() {
	users := []struct{ name, email, password string }{
		{"Alice", "a@x.com", "secret1"},
		{"Bob", "bob@example.com", "hunter22"},
		{"Carol", "Carol@Example.com", "p4ssw0rd!"},
	}
	for _, u := range users {
		s.register(u.name, u.email, u.password)
	}

	for _, u := range users {
		got, err := s.svc.Authenticate(s.ctx, u.email, u.password)
		require.NoError(s.T(), err, u.email)
		assert.Equal(s.T(), u.name, got.Name)

		_, err = s.svc.Authenticate(s.ctx, u.email, u.password+"x")
		assert.True(s.T(), errs.Is(err, errs.InvalidCredentials), u.email)
	}
}

func (s *CredentialTestSuite) TestRegisterNormalizesEmail() {
	user := s.register("Carol", "  Carol@Example.COM ", "secret1")
	assert.Equal(s.T(), "carol@example.com", user.Email)

	_, err := s.svc.Authenticate(s.ctx, "CAROL@example.com", "secret1")
	assert.NoError(s.T(), err)
}

func (s *CredentialTestSuite) TestRegisterDuplicateEmail() {
	s.register("Alice", "a@x.com", "secret1")

	_, err := s.svc.Register(s.ctx, "Other", "A@X.com", "secret2")
	assert.True(s.T(), errs.Is(err, errs.DuplicateEmail))
}

func (s *CredentialTestSuite) TestRegisterValidation() {
	tests := []struct {
		name     string
		userName string
		email    string
		password string
		field    string
	}{
		{"missing name", "", "a@x.com", "secret1", "name"},
		{"long name", strings.Repeat("a", credential.MaxNameLength+1), "a@x.com", "secret1", "name"},
		{"bad email", "Alice", "not-an-email", "secret1", "email"},
		{"short password", "Alice", "a@x.com", "12345", "password"},
		{"long password", "Alice", "a@x.com", strings.Repeat("p", credential.MaxPasswordLength+1), "password"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.Register(s.ctx, tt.userName, tt.email, tt.password)
			require.Error(s.T(), err)

			var e *errs.Error
			require.ErrorAs(s.T(), err, &e)
			assert.Equal(s.T(), errs.InvalidArgument, e.Code)
			assert.Contains(s.T(), e.Fields, tt.field)
		})
	}
}

func (s *CredentialTestSuite) TestAuthenticateUnknownEmail() {
	_, err := s.svc.Authenticate(s.ctx, "nobody@x.com", "secret1")
	assert.True(s.T(), errs.Is(err, errs.InvalidCredentials))
}

func (s *CredentialTestSuite) TestAuthenticateInactiveIdentity() {
	user := s.register("Alice", "a@x.com", "secret1")
	_, err := s.svc.SetActive(s.ctx, user.ID, false)
	require.NoError(s.T(), err)

	_, err = s.svc.Authenticate(s.ctx, "a@x.com", "secret1")
	assert.True(s.T(), errs.Is(err, errs.InvalidCredentials))
}

func (s *CredentialTestSuite) TestPasswordNeverSerialized() {
	user := s.register("Alice", "a@x.com", "secret1")

	raw, err := json.Marshal(user)
	require.NoError(s.T(), err)
	assert.NotContains(s.T(), string(raw), "password")
	assert.NotContains(s.T(), string(raw), "secret1")
	assert.NotEqual(s.T(), "secret1", string(user.Password))
}

func (s *CredentialTestSuite) TestChangePasswordMakesOlderTokensStale() {
	user := s.register("Alice", "a@x.com", "secret1")
	issuedAt := s.clock.Add(-time.Minute)

	stale, err := s.svc.TokenIssuedBeforePasswordChange(s.ctx, user.ID, issuedAt)
	require.NoError(s.T(), err)
	assert.False(s.T(), stale, "no password change yet")

	s.clock = s.clock.Add(time.Minute)
	_, err = s.svc.ChangePassword(s.ctx, user.ID, "secret1", "secret2")
	require.NoError(s.T(), err)

	stale, err = s.svc.TokenIssuedBeforePasswordChange(s.ctx, user.ID, issuedAt)
	require.NoError(s.T(), err)
	assert.True(s.T(), stale)

	fresh, err := s.svc.TokenIssuedBeforePasswordChange(s.ctx, user.ID, s.clock)
	require.NoError(s.T(), err)
	assert.False(s.T(), fresh, "a token issued right after the change stays valid")

	_, err = s.svc.Authenticate(s.ctx, "a@x.com", "secret2")
	assert.NoError(s.T(), err)
	_, err = s.svc.Authenticate(s.ctx, "a@x.com", "secret1")
	assert.True(s.T(), errs.Is(err, errs.InvalidCredentials))
}

func (s *CredentialTestSuite) TestChangePasswordWrongCurrent() {
	user := s.register("Alice", "a@x.com", "secret1")

	_, err := s.svc.ChangePassword(s.ctx, user.ID, "wrong!", "secret2")
	assert.True(s.T(), errs.Is(err, errs.InvalidCredentials))

	_, err = s.svc.Authenticate(s.ctx, "a@x.com", "secret1")
	assert.NoError(s.T(), err)
}

func (s *CredentialTestSuite) TestPasswordLengthLimit() {
	longest := strings.Repeat("p", credential.MaxPasswordLength)
	tooLong := longest + "p"

	user := s.register("Alice", "a@x.com", longest)
	_, err := s.svc.Authenticate(s.ctx, "a@x.com", longest)
	require.NoError(s.T(), err)

	_, err = s.svc.ChangePassword(s.ctx, user.ID, longest, tooLong)
	s.requireField(err, "newPassword", "password_too_long")

	_, token, err := s.svc.ForgotPassword(s.ctx, "a@x.com")
	require.NoError(s.T(), err)
	_, err = s.svc.ResetPassword(s.ctx, token, tooLong)
	s.requireField(err, "password", "password_too_long")

	_, err = s.svc.Register(s.ctx, "Bob", "b@x.com", tooLong)
	s.requireField(err, "password", "password_too_long")
}

func (s *CredentialTestSuite) requireField(err error, field, code string) {
	var e *errs.Error
	require.ErrorAs(s.T(), err, &e)
	assert.Equal(s.T(), errs.InvalidArgument, e.Code)
	assert.Equal(s.T(), code, e.Fields[field])
}

func (s *CredentialTestSuite) TestIssueResetTokenStoresOnlyHash() {
	user := s.register("Alice", "a@x.com", "secret1")

	token, err := s.svc.IssueResetToken(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), token, 64)

	stored, err := s.db.GetUserByID(s.ctx, user.ID, false)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), stored.ResetTokenHash)
	assert.NotEqual(s.T(), token, *stored.ResetTokenHash)
	assert.Equal(s.T(), credential.HashResetToken(token), *stored.ResetTokenHash)
	require.NotNil(s.T(), stored.ResetTokenExpiresAt)
	assert.WithinDuration(s.T(), s.clock.Add(credential.ResetTokenTTL), *stored.ResetTokenExpiresAt, time.Second)
}

func (s *CredentialTestSuite) TestResetPassword() {
	s.register("Alice", "a@x.com", "secret1")

	_, token, err := s.svc.ForgotPassword(s.ctx, "A@x.com")
	require.NoError(s.T(), err)

	_, err = s.svc.ResetPassword(s.ctx, token, "brandnew")
	require.NoError(s.T(), err)

	_, err = s.svc.Authenticate(s.ctx, "a@x.com", "brandnew")
	assert.NoError(s.T(), err)

	_, err = s.svc.ResetPassword(s.ctx, token, "another1")
	assert.True(s.T(), errs.Is(err, errs.Unauthenticated), "reset tokens are single use")
}

func (s *CredentialTestSuite) TestResetPasswordExpired() {
	user := s.register("Alice", "a@x.com", "secret1")
	token, err := s.svc.IssueResetToken(s.ctx, user.ID)
	require.NoError(s.T(), err)

	s.clock = s.clock.Add(credential.ResetTokenTTL + time.Second)

	_, err = s.svc.ResetPassword(s.ctx, token, "brandnew")
	assert.True(s.T(), errs.Is(err, errs.Unauthenticated))
}

func (s *CredentialTestSuite) TestForgotPasswordUnknownEmail() {
	_, _, err := s.svc.ForgotPassword(s.ctx, "nobody@x.com")
	assert.True(s.T(), errs.Is(err, errs.NotFound))
}

func (s *CredentialTestSuite) TestUpdateProfile() {
	user := s.register("Alice", "a@x.com", "secret1")
	s.register("Bob", "b@x.com", "secret1")

	name := "  Alice Smith "
	phone := "+1 555-123-4567"
	updated, err := s.svc.UpdateProfile(s.ctx, user.ID, models.UserPatch{Name: &name, Phone: &phone})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Alice Smith", updated.Name)
	require.NotNil(s.T(), updated.Phone)
	assert.Equal(s.T(), phone, *updated.Phone)

	badPhone := "12ab"
	_, err = s.svc.UpdateProfile(s.ctx, user.ID, models.UserPatch{Phone: &badPhone})
	assert.True(s.T(), errs.Is(err, errs.InvalidArgument))

	taken := "B@x.com"
	_, err = s.svc.UpdateProfile(s.ctx, user.ID, models.UserPatch{Email: &taken})
	assert.True(s.T(), errs.Is(err, errs.DuplicateEmail))
}

func (s *CredentialTestSuite) TestDeleteAccountCascades() {
	user := s.register("Alice", "a@x.com", "secret1")
	_, err := s.db.CreateBudget(s.ctx, user.ID, models.NewBudget{
		Category: models.CategoryFood, Amount: decimal.NewFromInt(100), Period: models.PeriodMonthly,
	})
	require.NoError(s.T(), err)

	_, err = s.svc.DeleteAccount(s.ctx, user.ID)
	require.NoError(s.T(), err)

	_, err = s.svc.Get(s.ctx, user.ID)
	assert.True(s.T(), errs.Is(err, errs.NotFound))

	budgets, err := s.db.ListBudgets(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), budgets)
}

func (s *CredentialTestSuite) TestSetRole() {
	user := s.register("Alice", "a@x.com", "secret1")

	admin, err := s.svc.SetRole(s.ctx, user.ID, models.RoleAdmin)
	require.NoError(s.T(), err)
	assert.True(s.T(), admin.IsAdmin())

	_, err = s.svc.SetRole(s.ctx, user.ID, models.Role("root"))
	assert.True(s.T(), errs.Is(err, errs.InvalidArgument))

	_, err = s.svc.SetRole(s.ctx, "missing", models.RoleAdmin)
	assert.True(s.T(), errs.Is(err, errs.NotFound))
}

func TestCredentialSuite(t *testing.T) {
	suite.Run(t, new(CredentialTestSuite))
}
