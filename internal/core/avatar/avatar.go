// Package avatar ingests profile pictures: it checks the upload, stores the
// original with resized variants, and points the user at the new reference.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/models"
)

const (
	// PublicPrefix is the URL path avatars are served under.
	PublicPrefix = "/uploads/avatars/"

	DefaultMaxBytes int64 = 2 << 20

	// MaxDimension bounds either side of an upload, checked before decoding.
	MaxDimension = 4096
)

type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

var sizeDimensions = map[Size]int{
	SizeSmall:  64,
	SizeMedium: 128,
	SizeLarge:  256,
}

var formatExtensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"bmp":  ".bmp",
	"tiff": ".tiff",
}

// BlobStore persists avatar objects by name. Download of a missing object
// returns an error matching fs.ErrNotExist.
type BlobStore interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Download(ctx context.Context, name string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, name string) error
}

// UserStore records the avatar reference of a user.
type UserStore interface {
	UpdateUserAvatar(ctx context.Context, userID, avatar string) (models.User, error)
}

type Service struct {
	blobs    BlobStore
	users    UserStore
	maxBytes int64
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(blobs BlobStore, users UserStore, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		blobs:    blobs,
		users:    users,
		maxBytes: DefaultMaxBytes,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxBytes is the largest accepted upload.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// StoreAvatar replaces the avatar of user with data and returns the updated
// user. The previous avatar is removed once the new one is recorded.
func (s *Service) StoreAvatar(ctx context.Context, user models.User, data []byte, mimeType string) (models.User, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/") {
		return models.User{}, errs.Newf(errs.UnsupportedMediaType, "only image uploads are allowed")
	}
	if int64(len(data)) > s.maxBytes {
		return models.User{}, errs.Newf(errs.PayloadTooLarge, "image exceeds %d bytes", s.maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	ext, known := formatExtensions[format]
	if err != nil || !known {
		return models.User{}, errs.Newf(errs.UnsupportedMediaType, "file is not a supported image")
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return models.User{}, errs.Newf(errs.PayloadTooLarge, "image exceeds %dx%d pixels", MaxDimension, MaxDimension)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return models.User{}, errs.Newf(errs.UnsupportedMediaType, "file is not a supported image")
	}

	name := fmt.Sprintf("user-%s-%d%s", user.ID, s.now().UnixMilli(), ext)
	if err := s.blobs.Upload(ctx, name, bytes.NewReader(data), int64(len(data)), "image/"+format); err != nil {
		return models.User{}, errs.New(errs.Internal, fmt.Errorf("storing avatar: %w", err))
	}
	s.storeVariants(ctx, name, img)

	updated, err := s.users.UpdateUserAvatar(ctx, user.ID, PublicPrefix+name)
	if err != nil {
		s.deleteWithVariants(ctx, name)
		return models.User{}, errs.New(errs.Internal, fmt.Errorf("recording avatar: %w", err))
	}

	s.Remove(ctx, user.Avatar)
	return updated, nil
}

// Open returns a stored avatar object by name.
func (s *Service) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if name != path.Base(name) || !strings.HasPrefix(name, "user-") {
		return nil, "", errs.Newf(errs.NotFound, "avatar not found")
	}
	rc, contentType, err := s.blobs.Download(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", errs.Newf(errs.NotFound, "avatar not found")
		}
		return nil, "", errs.New(errs.Internal, fmt.Errorf("opening avatar: %w", err))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}

// Remove deletes the object behind an avatar reference and its variants.
// Failures are logged, not returned.
func (s *Service) Remove(ctx context.Context, reference string) {
	name, ok := strings.CutPrefix(reference, PublicPrefix)
	if !ok || name == "" {
		return
	}
	s.deleteWithVariants(ctx, name)
}

func (s *Service) storeVariants(ctx context.Context, name string, img image.Image) {
	for size, dim := range sizeDimensions {
		resized := imaging.Fit(img, dim, dim, imaging.Lanczos)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
			s.log.Warn("encoding avatar variant", "name", name, "size", size, "error", err)
			continue
		}
		if err := s.blobs.Upload(ctx, variantName(name, size), &buf, int64(buf.Len()), "image/jpeg"); err != nil {
			s.log.Warn("storing avatar variant", "name", name, "size", size, "error", err)
		}
	}
}

func (s *Service) deleteWithVariants(ctx context.Context, name string) {
	names := []string{name}
	for size := range sizeDimensions {
		names = append(names, variantName(name, size))
	}
	for _, n := range names {
		if err := s.blobs.Delete(ctx, n); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("deleting avatar object", "name", n, "error", err)
		}
	}
}

// variantName derives "user-1-100_small.jpg" from "user-1-100.png".
func variantName(name string, size Size) string {
	return strings.TrimSuffix(name, path.Ext(name)) + "_" + string(size) + ".jpg"
}
