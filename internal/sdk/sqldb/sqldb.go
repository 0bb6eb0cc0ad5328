// Package sqldb provides database operations for the finance service.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nourabuild/finance-service/internal/sdk/models"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// lib/pq errorCodeNames
// https://github.com/lib/pq/blob/master/error.go#L178
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

// sqlite extended result codes
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
	sqliteConstraintForeignKey = 787
)

var (
	ErrDBNotFound          = sql.ErrNoRows
	ErrDBDuplicatedEntry   = errors.New("duplicated entry")
	ErrForeignKeyViolation = errors.New("foreign key violation")
	ErrCheckViolation      = errors.New("check constraint violation")
	ErrTransactionFailed   = errors.New("transaction failed")
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health(ctx context.Context) map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error

	// User operations. Lookups exclude inactive users unless includeInactive is set.
	GetUserByID(ctx context.Context, userID string, includeInactive bool) (models.User, error)
	GetUserByEmail(ctx context.Context, email string, includeInactive bool) (models.User, error)
	GetUserByResetTokenHash(ctx context.Context, tokenHash string, includeInactive bool) (models.User, error)
	CreateUser(ctx context.Context, user models.NewUser) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, userID string, patch models.UserPatch) (models.User, error)
	UpdateUserPassword(ctx context.Context, userID string, hash []byte, changedAt time.Time) error
	SetPasswordResetToken(ctx context.Context, userID string, tokenHash *string, expiresAt *time.Time) error
	UpdateUserAvatar(ctx context.Context, userID, avatar string) (models.User, error)
	SetUserActive(ctx context.Context, userID string, active bool) (models.User, error)
	SetUserRole(ctx context.Context, userID string, role models.Role) (models.User, error)
	DeleteUser(ctx context.Context, userID string) error

	// Expense operations. Mutations are scoped to the owning user.
	ListExpenses(ctx context.Context, userID string) ([]models.Expense, error)
	GetExpenseByID(ctx context.Context, expenseID string) (models.Expense, error)
	CreateExpense(ctx context.Context, userID string, ne models.NewExpense) (models.Expense, error)
	UpdateExpense(ctx context.Context, userID, expenseID string, patch models.ExpensePatch) (models.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID string) error

	// Budget operations. Mutations are scoped to the owning user.
	ListBudgets(ctx context.Context, userID string) ([]models.Budget, error)
	GetBudgetByID(ctx context.Context, budgetID string) (models.Budget, error)
	CreateBudget(ctx context.Context, userID string, nb models.NewBudget) (models.Budget, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, patch models.BudgetPatch) (models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error

	// Revoked token operations
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpiredRevokedTokens(ctx context.Context) error
}

// Config selects and tunes the backing database.
type Config struct {
	Driver       string
	URL          string
	MaxOpenConns int
	Logger       *slog.Logger
}

type service struct {
	db     *sql.DB
	driver string
	log    *slog.Logger
	now    func() time.Time
}

// New opens the database described by cfg, checks connectivity and applies
// pending migrations.
func New(ctx context.Context, cfg Config) (Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case DriverPostgres:
		db, err = sql.Open("pgx", cfg.URL)
	case DriverSQLite:
		db, err = sql.Open("sqlite", sqliteDSN(cfg.URL))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	switch {
	case cfg.Driver == DriverSQLite:
		// Every connection to an in-memory database is a separate database,
		// and SQLite serializes writers anyway.
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := runMigrations(db, cfg); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("database ready", "driver", cfg.Driver)

	return &service{
		db:     db,
		driver: cfg.Driver,
		log:    logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	err := s.db.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = "database unreachable"
		s.log.Error("db down", "error", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["driver"] = s.driver

	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	if dbStats.OpenConnections > 40 {
		stats["message"] = "The database is experiencing heavy load."
	}

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	s.log.Info("disconnected from database", "driver", s.driver)
	return s.db.Close()
}

// ---------------------------------------------
// Helpers
// ---------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

// classify maps driver-specific constraint errors onto the package sentinels.
func classify(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrDBNotFound
	case IsDuplicateEntry(err):
		return ErrDBDuplicatedEntry
	case IsForeignKeyViolation(err):
		return ErrForeignKeyViolation
	case IsCheckViolation(err):
		return ErrCheckViolation
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isPgError checks if the error is a PostgreSQL error with the given code
func isPgError(err error, code string) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == code
	}
	return false
}

// isSQLiteError checks if the error is a SQLite error with one of the given
// extended result codes.
func isSQLiteError(err error, codes ...int) bool {
	var liteErr interface{ Code() int }
	if !errors.As(err, &liteErr) {
		return false
	}
	for _, c := range codes {
		if liteErr.Code() == c {
			return true
		}
	}
	return false
}

// NullString creates a sql.NullString from a string pointer.
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// NullBool creates a sql.NullBool from a bool pointer.
func NullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

// NullTime creates a sql.NullTime from a time.Time pointer.
func NullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// StringPtr returns a pointer to a string from sql.NullString.
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// TimePtr returns a pointer to a time.Time from sql.NullTime.
func TimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Time
}

// IsDuplicateEntry checks if the error is a duplicate entry error.
func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDBDuplicatedEntry) ||
		isPgError(err, uniqueViolation) ||
		isSQLiteError(err, sqliteConstraintUnique, sqliteConstraintPrimaryKey)
}

// IsForeignKeyViolation checks if the error is a foreign key violation error.
func IsForeignKeyViolation(err error) bool {
	return isPgError(err, foreignKeyViolation) || isSQLiteError(err, sqliteConstraintForeignKey)
}

// IsCheckViolation checks if the error is a check constraint violation error.
func IsCheckViolation(err error) bool {
	return isPgError(err, checkViolation)
}
