// Package resource provides owner-scoped repositories for user records.
//
// A Repository is generic over the record type, its creation input and its
// partial update. The ownership rules live here once: reads only ever return
// records owned by the caller, and every mutation runs Get, then the ownership
// guard, then validation, then an owner-scoped store call.
package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/nourabuild/finance-service/internal/core/ownership"
	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb"
	"github.com/shopspring/decimal"
)

// Amounts are stored as NUMERIC(14,2).
const amountScale = 2

var maxAmount = decimal.New(1, 12)

// Store persists records of type T. Insert, Patch and Remove are scoped to
// ownerID and report sqldb.ErrDBNotFound when nothing matched. Find is not
// scoped; the repository checks ownership itself.
type Store[T ownership.Owned, N, P any] interface {
	List(ctx context.Context, ownerID string) ([]T, error)
	Find(ctx context.Context, id string) (T, error)
	Insert(ctx context.Context, ownerID string, n N) (T, error)
	Patch(ctx context.Context, ownerID, id string, p P) (T, error)
	Remove(ctx context.Context, ownerID, id string) error
}

// Rules validate and normalize input for one record type.
type Rules[T, N, P any] interface {
	// Name is used in error messages, e.g. "expense".
	Name() string
	// ValidateNew returns the normalized input or per-field problems.
	ValidateNew(n N) (N, map[string]string)
	// ValidatePatch checks a patch against the current record.
	ValidatePatch(current T, p P) (P, map[string]string)
	// Conflict translates a uniqueness violation into a domain error.
	Conflict() error
}

type Repository[T ownership.Owned, N, P any] struct {
	store Store[T, N, P]
	rules Rules[T, N, P]
}

func New[T ownership.Owned, N, P any](store Store[T, N, P], rules Rules[T, N, P]) *Repository[T, N, P] {
	return &Repository[T, N, P]{store: store, rules: rules}
}

// List returns every record owned by ownerID in insertion order.
func (r *Repository[T, N, P]) List(ctx context.Context, ownerID string) ([]T, error) {
	records, err := r.store.List(ctx, ownerID)
	if err != nil {
		return nil, errs.New(errs.Internal, fmt.Errorf("listing %ss: %w", r.rules.Name(), err))
	}
	return records, nil
}

// Get returns the record only when ownerID owns it. A record owned by someone
// else is reported exactly like a missing one.
func (r *Repository[T, N, P]) Get(ctx context.Context, ownerID, id string) (T, error) {
	var zero T

	record, err := r.store.Find(ctx, id)
	if err != nil {
		return zero, r.storeError(err)
	}
	if record.Owner() != ownerID {
		return zero, r.notFound()
	}
	return record, nil
}

// Create validates n and stores it owned by ownerID.
func (r *Repository[T, N, P]) Create(ctx context.Context, ownerID string, n N) (T, error) {
	var zero T

	n, fields := r.rules.ValidateNew(n)
	if len(fields) > 0 {
		return zero, errs.Validation(fields)
	}

	record, err := r.store.Insert(ctx, ownerID, n)
	if err != nil {
		return zero, r.storeError(err)
	}
	return record, nil
}

// Update applies a validated partial update to a record owned by actingID.
func (r *Repository[T, N, P]) Update(ctx context.Context, actingID, id string, p P) (T, error) {
	var zero T

	current, err := r.Get(ctx, actingID, id)
	if err != nil {
		return zero, err
	}
	if err := ownership.AuthorizeRecord(actingID, current); err != nil {
		return zero, err
	}

	p, fields := r.rules.ValidatePatch(current, p)
	if len(fields) > 0 {
		return zero, errs.Validation(fields)
	}

	record, err := r.store.Patch(ctx, actingID, id, p)
	if err != nil {
		return zero, r.storeError(err)
	}
	return record, nil
}

// Delete removes a record owned by actingID.
func (r *Repository[T, N, P]) Delete(ctx context.Context, actingID, id string) error {
	current, err := r.Get(ctx, actingID, id)
	if err != nil {
		return err
	}
	if err := ownership.AuthorizeRecord(actingID, current); err != nil {
		return err
	}

	if err := r.store.Remove(ctx, actingID, id); err != nil {
		return r.storeError(err)
	}
	return nil
}

func (r *Repository[T, N, P]) notFound() error {
	return errs.Newf(errs.NotFound, "%s not found", r.rules.Name())
}

func (r *Repository[T, N, P]) storeError(err error) error {
	switch {
	case errors.Is(err, sqldb.ErrDBNotFound):
		return r.notFound()
	case errors.Is(err, sqldb.ErrDBDuplicatedEntry):
		return r.rules.Conflict()
	default:
		return errs.New(errs.Internal, fmt.Errorf("%s store: %w", r.rules.Name(), err))
	}
}

func validateAmount(fields map[string]string, amount decimal.Decimal) {
	switch {
	case !amount.IsPositive():
		fields["amount"] = "amount_must_be_positive"
	case !amount.Equal(amount.Truncate(amountScale)):
		fields["amount"] = "amount_too_precise"
	case amount.GreaterThanOrEqual(maxAmount):
		fields["amount"] = "amount_too_large"
	}
}
