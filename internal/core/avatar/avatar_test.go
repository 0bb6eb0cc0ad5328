package avatar_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/nourabuild/finance-service/internal/core/avatar"
	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/models"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb/sqldbtest"
	"github.com/nourabuild/finance-service/internal/services/localfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AvatarTestSuite struct {
	suite.Suite
	ctx   context.Context
	db    sqldb.Service
	dir   string
	clock time.Time
	svc   *avatar.Service
	user  models.User
}

func (s *AvatarTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = sqldbtest.New(s.T())
	s.dir = s.T().TempDir()
	s.clock = time.UnixMilli(1700000000000)

	store, err := localfs.New(s.dir)
	require.NoError(s.T(), err)

	s.svc = avatar.NewService(store, s.db, slog.New(slog.NewTextHandler(io.Discard, nil)),
		avatar.WithMaxBytes(64<<10),
		avatar.WithClock(func() time.Time { return s.clock }))

	s.user, err = s.db.CreateUser(s.ctx, models.NewUser{Name: "Alice", Email: "a@x.com", Password: []byte("h")})
	require.NoError(s.T(), err)
}

func pngBytes(t require.TestingT, w, h int) []byte {
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

// pngHeader returns a PNG that is only a signature and an IHDR chunk
// declaring w x h RGBA pixels.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func (s *AvatarTestSuite) files() []string {
	entries, err := os.ReadDir(s.dir)
	require.NoError(s.T(), err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (s *AvatarTestSuite) TestStoreAvatar() {
	updated, err := s.svc.StoreAvatar(s.ctx, s.user, pngBytes(s.T(), 300, 200), "image/png")
	require.NoError(s.T(), err)

	name := "user-" + s.user.ID + "-1700000000000.png"
	assert.Equal(s.T(), avatar.PublicPrefix+name, updated.Avatar)

	stored, err := s.db.GetUserByID(s.ctx, s.user.ID, false)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), updated.Avatar, stored.Avatar)

	base := strings.TrimSuffix(name, ".png")
	assert.ElementsMatch(s.T(), []string{
		name,
		base + "_small.jpg",
		base + "_medium.jpg",
		base + "_large.jpg",
	}, s.files())

	small, err := imaging.Open(filepath.Join(s.dir, base+"_small.jpg"))
	require.NoError(s.T(), err)
	assert.LessOrEqual(s.T(), small.Bounds().Dx(), 64)

	rc, contentType, err := s.svc.Open(s.ctx, name)
	require.NoError(s.T(), err)
	defer rc.Close()
	assert.Equal(s.T(), "image/png", contentType)
}

func (s *AvatarTestSuite) TestReplacingRemovesPreviousAvatar() {
	first, err := s.svc.StoreAvatar(s.ctx, s.user, pngBytes(s.T(), 32, 32), "image/png")
	require.NoError(s.T(), err)

	s.clock = s.clock.Add(time.Second)
	second, err := s.svc.StoreAvatar(s.ctx, first, pngBytes(s.T(), 32, 32), "image/png")
	require.NoError(s.T(), err)
	assert.NotEqual(s.T(), first.Avatar, second.Avatar)

	for _, f := range s.files() {
		assert.True(s.T(), strings.HasPrefix(f, "user-"+s.user.ID+"-1700000001000"), f)
	}
}

func (s *AvatarTestSuite) TestRejectsNonImageMimeType() {
	_, err := s.svc.StoreAvatar(s.ctx, s.user, []byte("%PDF-1.4"), "application/pdf")
	assert.True(s.T(), errs.Is(err, errs.UnsupportedMediaType))
	assert.Empty(s.T(), s.files())
}

func (s *AvatarTestSuite) TestRejectsUndecodableImage() {
	_, err := s.svc.StoreAvatar(s.ctx, s.user, []byte("not really a png"), "image/png")
	assert.True(s.T(), errs.Is(err, errs.UnsupportedMediaType))
}

func (s *AvatarTestSuite) TestRejectsOversizedUpload() {
	data := make([]byte, 64<<10+1)
	_, err := s.svc.StoreAvatar(s.ctx, s.user, data, "image/png")
	assert.True(s.T(), errs.Is(err, errs.PayloadTooLarge))
	assert.Empty(s.T(), s.files())
}

func (s *AvatarTestSuite) TestRejectsOversizedDimensions() {
	for _, dims := range [][2]uint32{{40000, 40000}, {avatar.MaxDimension + 1, 10}, {10, avatar.MaxDimension + 1}} {
		_, err := s.svc.StoreAvatar(s.ctx, s.user, pngHeader(dims[0], dims[1]), "image/png")
		assert.True(s.T(), errs.Is(err, errs.PayloadTooLarge), "%dx%d: %v", dims[0], dims[1], err)
	}
	assert.Empty(s.T(), s.files())

	stored, err := s.db.GetUserByID(s.ctx, s.user.ID, false)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), stored.Avatar)
}

func (s *AvatarTestSuite) TestOpenMissing() {
	_, _, err := s.svc.Open(s.ctx, "user-nobody-1.png")
	assert.True(s.T(), errs.Is(err, errs.NotFound))

	_, _, err = s.svc.Open(s.ctx, "../secret")
	assert.True(s.T(), errs.Is(err, errs.NotFound))
}

func TestAvatarSuite(t *testing.T) {
	suite.Run(t, new(AvatarTestSuite))
}
