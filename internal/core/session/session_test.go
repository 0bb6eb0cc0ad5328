package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/nourabuild/finance-service/internal/core/session"
	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/jwt"
	"github.com/nourabuild/finance-service/internal/sdk/models"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb/sqldbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SessionTestSuite struct {
	suite.Suite
	ctx   context.Context
	db    sqldb.Service
	clock time.Time
	gate  *session.Gate
	user  models.User
}

func (s *SessionTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = sqldbtest.New(s.T())
	s.clock = time.Now().UTC()

	tokens := jwt.NewTokenService("test-secret", jwt.WithClock(func() time.Time { return s.clock }))
	s.gate = session.NewGate(tokens, s.db, session.NewSQLDenylist(s.db))

	user, err := s.db.CreateUser(s.ctx, models.NewUser{Name: "Alice", Email: "a@x.com", Password: []byte("h")})
	require.NoError(s.T(), err)
	s.user = user
}

func (s *SessionTestSuite) TestIssueAndResolve() {
	token, err := s.gate.Issue(s.ctx, s.user)
	require.NoError(s.T(), err)

	id, err := s.gate.Resolve(s.ctx, token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.user.ID, id.User.ID)
	assert.Equal(s.T(), s.user.ID, id.Claims.Subject)
	assert.Equal(s.T(), string(models.RoleUser), id.Claims.Role)
}

func (s *SessionTestSuite) TestResolveRejectsBadTokens() {
	for name, token := range map[string]string{
		"empty":     "",
		"garbage":   "abc.def.ghi",
		"not a jwt": "hello",
	} {
		s.Run(name, func() {
			_, err := s.gate.Resolve(s.ctx, token)
			assert.True(s.T(), errs.Is(err, errs.Unauthenticated))
		})
	}
}

func (s *SessionTestSuite) TestResolveRejectsExpiredToken() {
	token, err := s.gate.Issue(s.ctx, s.user)
	require.NoError(s.T(), err)

	s.clock = s.clock.Add(jwt.DefaultTTL + time.Minute)

	_, err = s.gate.Resolve(s.ctx, token)
	assert.True(s.T(), errs.Is(err, errs.Unauthenticated))
}

func (s *SessionTestSuite) TestResolveRejectsInactiveOrDeletedUser() {
	token, err := s.gate.Issue(s.ctx, s.user)
	require.NoError(s.T(), err)

	_, err = s.db.SetUserActive(s.ctx, s.user.ID, false)
	require.NoError(s.T(), err)
	_, err = s.gate.Resolve(s.ctx, token)
	assert.True(s.T(), errs.Is(err, errs.Unauthenticated))

	require.NoError(s.T(), s.db.DeleteUser(s.ctx, s.user.ID))
	_, err = s.gate.Resolve(s.ctx, token)
	assert.True(s.T(), errs.Is(err, errs.Unauthenticated))
}

func (s *SessionTestSuite) TestResolveRejectsTokenIssuedBeforePasswordChange() {
	s.clock = s.clock.Add(-time.Hour)
	old, err := s.gate.Issue(s.ctx, s.user)
	require.NoError(s.T(), err)
	s.clock = s.clock.Add(time.Hour)

	require.NoError(s.T(), s.db.UpdateUserPassword(s.ctx, s.user.ID, []byte("new"), s.clock.Add(-time.Second)))

	_, err = s.gate.Resolve(s.ctx, old)
	assert.True(s.T(), errs.Is(err, errs.Unauthenticated))

	fresh, err := s.gate.Issue(s.ctx, s.user)
	require.NoError(s.T(), err)
	_, err = s.gate.Resolve(s.ctx, fresh)
	assert.NoError(s.T(), err)
}

func (s *SessionTestSuite) TestRevoke() {
	token, err := s.gate.Issue(s.ctx, s.user)
	require.NoError(s.T(), err)
	other, err := s.gate.Issue(s.ctx, s.user)
	require.NoError(s.T(), err)

	id, err := s.gate.Resolve(s.ctx, token)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.gate.Revoke(s.ctx, id.Claims))

	_, err = s.gate.Resolve(s.ctx, token)
	assert.True(s.T(), errs.Is(err, errs.Unauthenticated))

	_, err = s.gate.Resolve(s.ctx, other)
	assert.NoError(s.T(), err, "revoking one token leaves other sessions alone")
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"abc":          "",
		"":             "",
	}
	for header, want := range tests {
		assert.Equal(t, want, session.BearerToken(header), header)
	}
}
