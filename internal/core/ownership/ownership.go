// Package ownership guards mutations of user-owned records.
package ownership

import "github.com/nourabuild/finance-service/internal/sdk/errs"

// Owned is implemented by records that belong to exactly one user.
type Owned interface {
	Owner() string
}

// Authorize succeeds only when the acting user owns the record.
func Authorize(actingID, ownerID string) error {
	if actingID == "" || actingID != ownerID {
		return errs.Newf(errs.PermissionDenied, "you do not own this record")
	}
	return nil
}

// AuthorizeRecord is Authorize applied to an Owned record.
func AuthorizeRecord(actingID string, record Owned) error {
	return Authorize(actingID, record.Owner())
}
