package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type DenylistTestSuite struct {
	suite.Suite
	ctx  context.Context
	mr   *miniredis.Miniredis
	list *Denylist
	now  time.Time
}

func (s *DenylistTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.mr = miniredis.RunT(s.T())
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.list, err = NewDenylist(s.ctx, Config{Addr: s.mr.Addr()})
	require.NoError(s.T(), err)
	s.list.now = func() time.Time { return s.now }
	s.T().Cleanup(func() { _ = s.list.Close() })
}

func (s *DenylistTestSuite) TestRevokeSetsTTLUntilExpiry() {
	require.NoError(s.T(), s.list.Revoke(s.ctx, "jti-1", s.now.Add(time.Hour)))

	revoked, err := s.list.IsRevoked(s.ctx, "jti-1")
	require.NoError(s.T(), err)
	assert.True(s.T(), revoked)
	assert.True(s.T(), s.mr.Exists(keyPrefix+"jti-1"))
	assert.Equal(s.T(), time.Hour, s.mr.TTL(keyPrefix+"jti-1"))

	s.mr.FastForward(time.Hour + time.Second)

	revoked, err = s.list.IsRevoked(s.ctx, "jti-1")
	require.NoError(s.T(), err)
	assert.False(s.T(), revoked)
}

func (s *DenylistTestSuite) TestUnknownTokenIsNotRevoked() {
	revoked, err := s.list.IsRevoked(s.ctx, "never-seen")
	require.NoError(s.T(), err)
	assert.False(s.T(), revoked)
}

func (s *DenylistTestSuite) TestRevokeExpiredTokenIsNoop() {
	require.NoError(s.T(), s.list.Revoke(s.ctx, "jti-old", s.now.Add(-time.Minute)))
	assert.False(s.T(), s.mr.Exists(keyPrefix+"jti-old"))
}

func (s *DenylistTestSuite) TestUnavailableServer() {
	require.NoError(s.T(), s.list.Health(s.ctx))

	s.mr.Close()

	assert.Error(s.T(), s.list.Health(s.ctx))
	_, err := s.list.IsRevoked(s.ctx, "jti-1")
	assert.Error(s.T(), err)
	assert.Error(s.T(), s.list.Revoke(s.ctx, "jti-1", s.now.Add(time.Hour)))
}

func TestNewDenylistFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewDenylist(context.Background(), Config{Addr: addr})
	assert.Error(t, err)
}

func TestDenylistSuite(t *testing.T) {
	suite.Run(t, new(DenylistTestSuite))
}
