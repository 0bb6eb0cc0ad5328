package sentry

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

type (
	Level = sentry.Level
	Scope = sentry.Scope
)

const (
	LevelWarning = sentry.LevelWarning
	LevelError   = sentry.LevelError
)

type Config struct {
	DSN         string
	Environment string
	Release     string
}

// SentryService reports errors to Sentry. A zero DSN yields a disabled
// service whose methods do nothing.
type SentryService struct {
	initialized bool
}

func NewSentryService(cfg Config, log *slog.Logger) *SentryService {
	if cfg.DSN == "" {
		log.Info("sentry disabled", "reason", "SENTRY_DSN not set")
		return &SentryService{initialized: false}
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		TracesSampleRate: 0.2,
		EnableTracing:    true,
	})
	if err != nil {
		log.Error("sentry initialization failed", "error", err)
		return &SentryService{initialized: false}
	}

	log.Info("sentry initialized", "environment", cfg.Environment)
	return &SentryService{initialized: true}
}

func (s *SentryService) Enabled() bool {
	return s != nil && s.initialized
}

// CaptureException captures an error and sends it to Sentry
func (s *SentryService) CaptureException(err error) {
	if !s.Enabled() {
		return
	}
	sentry.CaptureException(err)
}

// Flush waits for all events to be sent to Sentry
func (s *SentryService) Flush(timeout time.Duration) bool {
	if !s.Enabled() {
		return true
	}
	return sentry.Flush(timeout)
}

// Close flushes and closes the Sentry client
func (s *SentryService) Close() {
	s.Flush(2 * time.Second)
}

// WithScope executes a function with a new Sentry scope
func (s *SentryService) WithScope(fn func(scope *Scope)) {
	if !s.Enabled() {
		return
	}
	sentry.WithScope(fn)
}
