// Package credential owns user identities: registration, password checks,
// password changes and the reset-token lifecycle.
package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/models"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb"
)

const (
	MinPasswordLength = 6
	// MaxPasswordLength is the bcrypt input limit, in bytes.
	MaxPasswordLength = 72
	MaxNameLength     = 50
	MaxEmailLength    = 100

	// ResetTokenTTL is how long an issued reset token stays usable.
	ResetTokenTTL = 10 * time.Minute

	// PasswordChangeSkew is subtracted from the recorded change time so a
	// token issued right after the change is not considered stale.
	PasswordChangeSkew = time.Second

	resetTokenBytes = 32
)

var phonePattern = regexp.MustCompile(`^[+]?[\d\s-]{8,}$`)

// Store is the persistence the credential service needs.
type Store interface {
	GetUserByID(ctx context.Context, userID string, includeInactive bool) (models.User, error)
	GetUserByEmail(ctx context.Context, email string, includeInactive bool) (models.User, error)
	GetUserByResetTokenHash(ctx context.Context, tokenHash string, includeInactive bool) (models.User, error)
	CreateUser(ctx context.Context, user models.NewUser) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, userID string, patch models.UserPatch) (models.User, error)
	UpdateUserPassword(ctx context.Context, userID string, hash []byte, changedAt time.Time) error
	SetPasswordResetToken(ctx context.Context, userID string, tokenHash *string, expiresAt *time.Time) error
	SetUserActive(ctx context.Context, userID string, active bool) (models.User, error)
	SetUserRole(ctx context.Context, userID string, role models.Role) (models.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	HashPassword(password string) ([]byte, error)
	CheckPasswordHash(password string, hash []byte) bool
	BurnCompare(password string)
}

type Service struct {
	store  Store
	hasher Hasher
	now    func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, hasher Hasher, opts ...Option) *Service {
	s := &Service{
		store:  store,
		hasher: hasher,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------------------------------------------
// Registration and login
// ---------------------------------------------

// Register creates a new identity. The email is stored lowercased.
func (s *Service) Register(ctx context.Context, name, email, password string) (models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	fields := make(map[string]string)
	validateName(fields, name)
	validateEmail(fields, email)
	validatePassword(fields, "password", password)
	if len(fields) > 0 {
		return models.User{}, errs.Validation(fields)
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return models.User{}, errs.New(errs.Internal, err)
	}

	user, err := s.store.CreateUser(ctx, models.NewUser{
		Name:     name,
		Email:    email,
		Password: hash,
	})
	if err != nil {
		if errors.Is(err, sqldb.ErrDBDuplicatedEntry) {
			return models.User{}, errs.Newf(errs.DuplicateEmail, "email is already registered")
		}
		return models.User{}, errs.New(errs.Internal, fmt.Errorf("creating user: %w", err))
	}
	return user, nil
}

// Authenticate returns the active identity matching email and password. A
// missing identity and a wrong password fail the same way.
func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	email = normalizeEmail(email)

	fields := make(map[string]string)
	if email == "" {
		fields["email"] = "email_required"
	}
	if password == "" {
		fields["password"] = "password_required"
	}
	if len(fields) > 0 {
		return models.User{}, errs.Validation(fields)
	}

	user, err := s.store.GetUserByEmail(ctx, email, false)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			s.hasher.BurnCompare(password)
			return models.User{}, invalidCredentials()
		}
		return models.User{}, errs.New(errs.Internal, fmt.Errorf("selecting user: %w", err))
	}

	if !s.hasher.CheckPasswordHash(password, user.Password) {
		return models.User{}, invalidCredentials()
	}
	return user, nil
}

// Get returns an active identity.
func (s *Service) Get(ctx context.Context, userID string) (models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID, false)
	if err != nil {
		return models.User{}, userError(err, "selecting user")
	}
	return user, nil
}

// ---------------------------------------------
// Passwords
// ---------------------------------------------

// ChangePassword replaces the password after verifying the current one and
// records the change time, which makes previously issued tokens stale.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (models.User, error) {
	fields := make(map[string]string)
	if currentPassword == "" {
		fields["currentPassword"] = "password_required"
	}
	validatePassword(fields, "newPassword", newPassword)
	if len(fields) > 0 {
		return models.User{}, errs.Validation(fields)
	}

	user, err := s.store.GetUserByID(ctx, userID, false)
	if err != nil {
		return models.User{}, userError(err, "selecting user")
	}

	if !s.hasher.CheckPasswordHash(currentPassword, user.Password) {
		return models.User{}, errs.Newf(errs.InvalidCredentials, "current password is incorrect")
	}

	return s.setPassword(ctx, user, newPassword)
}

// IssueResetToken generates a reset token for userID, stores only its hash and
// returns the plaintext exactly once.
func (s *Service) IssueResetToken(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errs.New(errs.Internal, fmt.Errorf("generating reset token: %w", err))
	}
	token := hex.EncodeToString(buf)

	tokenHash := HashResetToken(token)
	expiresAt := s.now().Add(ResetTokenTTL)
	if err := s.store.SetPasswordResetToken(ctx, userID, &tokenHash, &expiresAt); err != nil {
		return "", userError(err, "storing reset token")
	}
	return token, nil
}

// ForgotPassword issues a reset token for the active identity owning email.
func (s *Service) ForgotPassword(ctx context.Context, email string) (models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return models.User{}, "", errs.Validation(map[string]string{"email": "email_required"})
	}

	user, err := s.store.GetUserByEmail(ctx, email, false)
	if err != nil {
		return models.User{}, "", userError(err, "selecting user by email")
	}

	token, err := s.IssueResetToken(ctx, user.ID)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// ResetPassword sets a new password using a reset token. Tokens are single use.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (models.User, error) {
	fields := make(map[string]string)
	if strings.TrimSpace(token) == "" {
		fields["token"] = "token_required"
	}
	validatePassword(fields, "password", newPassword)
	if len(fields) > 0 {
		return models.User{}, errs.Validation(fields)
	}

	user, err := s.store.GetUserByResetTokenHash(ctx, HashResetToken(strings.TrimSpace(token)), false)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return models.User{}, invalidResetToken()
		}
		return models.User{}, errs.New(errs.Internal, fmt.Errorf("selecting user by reset token: %w", err))
	}

	if user.ResetTokenExpiresAt == nil || !s.now().Before(*user.ResetTokenExpiresAt) {
		return models.User{}, invalidResetToken()
	}

	return s.setPassword(ctx, user, newPassword)
}

// TokenIssuedBeforePasswordChange reports whether a token issued at issuedAt
// predates the identity's last password change.
func (s *Service) TokenIssuedBeforePasswordChange(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	user, err := s.store.GetUserByID(ctx, userID, false)
	if err != nil {
		return false, userError(err, "selecting user")
	}
	return user.ChangedPasswordAfter(issuedAt), nil
}

func (s *Service) setPassword(ctx context.Context, user models.User, password string) (models.User, error) {
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return models.User{}, errs.New(errs.Internal, err)
	}

	changedAt := s.now().Add(-PasswordChangeSkew)
	if err := s.store.UpdateUserPassword(ctx, user.ID, hash, changedAt); err != nil {
		return models.User{}, userError(err, "updating password")
	}

	user.Password = hash
	user.PasswordChangedAt = &changedAt
	user.ResetTokenHash = nil
	user.ResetTokenExpiresAt = nil
	return user, nil
}

// HashResetToken returns the stored form of a reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ---------------------------------------------
// Profile and administration
// ---------------------------------------------

// UpdateProfile applies a validated partial update. An empty phone clears it.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch models.UserPatch) (models.User, error) {
	fields := make(map[string]string)

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		validateName(fields, name)
		patch.Name = &name
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		validateEmail(fields, email)
		patch.Email = &email
	}
	if patch.Phone != nil {
		phone := strings.TrimSpace(*patch.Phone)
		if phone != "" && !phonePattern.MatchString(phone) {
			fields["phone"] = "invalid_phone_format"
		}
		patch.Phone = &phone
	}
	if len(fields) > 0 {
		return models.User{}, errs.Validation(fields)
	}

	user, err := s.store.UpdateUser(ctx, userID, patch)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBDuplicatedEntry) {
			return models.User{}, errs.Newf(errs.DuplicateEmail, "email is already registered")
		}
		return models.User{}, userError(err, "updating user")
	}
	return user, nil
}

// DeleteAccount removes the identity and every record it owns. The deleted
// identity is returned so callers can clean up external objects.
func (s *Service) DeleteAccount(ctx context.Context, userID string) (models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID, false)
	if err != nil {
		return models.User{}, userError(err, "selecting user")
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return models.User{}, userError(err, "deleting user")
	}
	return user, nil
}

// SetActive enables or soft-disables any identity.
func (s *Service) SetActive(ctx context.Context, userID string, active bool) (models.User, error) {
	user, err := s.store.SetUserActive(ctx, userID, active)
	if err != nil {
		return models.User{}, userError(err, "setting user active")
	}
	return user, nil
}

// SetRole grants or withdraws admin rights.
func (s *Service) SetRole(ctx context.Context, userID string, role models.Role) (models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return models.User{}, errs.Validation(map[string]string{"role": "invalid_role"})
	}
	user, err := s.store.SetUserRole(ctx, userID, role)
	if err != nil {
		return models.User{}, userError(err, "setting user role")
	}
	return user, nil
}

// List returns every identity, inactive ones included.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, errs.New(errs.Internal, err)
	}
	return users, nil
}

// ---------------------------------------------
// Validation helpers
// ---------------------------------------------

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(fields map[string]string, name string) {
	switch {
	case name == "":
		fields["name"] = "name_required"
	case len([]rune(name)) > MaxNameLength:
		fields["name"] = "name_too_long"
	}
}

func validateEmail(fields map[string]string, email string) {
	if email == "" {
		fields["email"] = "email_required"
		return
	}
	if len(email) > MaxEmailLength {
		fields["email"] = "email_too_long"
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		fields["email"] = "invalid_email_format"
	}
}

func validatePassword(fields map[string]string, key, password string) {
	switch {
	case password == "":
		fields[key] = "password_required"
	case len(password) < MinPasswordLength:
		fields[key] = "password_too_short"
	case len(password) > MaxPasswordLength:
		fields[key] = "password_too_long"
	}
}

func invalidCredentials() error {
	return errs.Newf(errs.InvalidCredentials, "invalid email or password")
}

func invalidResetToken() error {
	return errs.Newf(errs.Unauthenticated, "invalid or expired reset token")
}

func userError(err error, op string) error {
	if errors.Is(err, sqldb.ErrDBNotFound) {
		return errs.Newf(errs.NotFound, "user not found")
	}
	return errs.New(errs.Internal, fmt.Errorf("%s: %w", op, err))
}
