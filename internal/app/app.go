// Package app provides HTTP handlers for the finance service.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/nourabuild/finance-service/internal/core/avatar"
	"github.com/nourabuild/finance-service/internal/core/credential"
	"github.com/nourabuild/finance-service/internal/core/report"
	"github.com/nourabuild/finance-service/internal/core/resource"
	"github.com/nourabuild/finance-service/internal/core/session"
	"github.com/nourabuild/finance-service/internal/services/sentry"
)

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, toName, resetURL string, ttl time.Duration) error
}

// HealthChecker reports the state of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

// Pinger checks a dependency that has no stats of its own.
type Pinger interface {
	Health(ctx context.Context) error
}

type Config struct {
	Logger         *slog.Logger
	DB             HealthChecker
	Denylist       Pinger
	Credentials    *credential.Service
	Sessions       *session.Gate
	Expenses       *resource.Expenses
	Budgets        *resource.Budgets
	Avatars        *avatar.Service
	Reports        *report.Service
	Mailer         Mailer
	Sentry         *sentry.SentryService
	ResetURLBase   string
	RequestTimeout time.Duration
	CORSOrigins    []string
}

type App struct {
	log         *slog.Logger
	db          HealthChecker
	denylist    Pinger
	credentials *credential.Service
	sessions    *session.Gate
	expenses    *resource.Expenses
	budgets     *resource.Budgets
	avatars     *avatar.Service
	reports     *report.Service
	email       Mailer
	sentry      *sentry.SentryService

	resetURLBase   string
	requestTimeout time.Duration
	corsOrigins    []string
}

func NewApp(cfg Config) *App {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &App{
		log:            cfg.Logger,
		db:             cfg.DB,
		denylist:       cfg.Denylist,
		credentials:    cfg.Credentials,
		sessions:       cfg.Sessions,
		expenses:       cfg.Expenses,
		budgets:        cfg.Budgets,
		avatars:        cfg.Avatars,
		reports:        cfg.Reports,
		email:          cfg.Mailer,
		sentry:         cfg.Sentry,
		resetURLBase:   cfg.ResetURLBase,
		requestTimeout: cfg.RequestTimeout,
		corsOrigins:    cfg.CORSOrigins,
	}
}
