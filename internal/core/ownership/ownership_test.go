package ownership

import (
	"testing"

	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/models"
	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		acting  string
		owner   string
		allowed bool
	}{
		{name: "owner", acting: "a", owner: "a", allowed: true},
		{name: "other user", acting: "b", owner: "a", allowed: false},
		{name: "anonymous", acting: "", owner: "", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.acting, tt.owner)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errs.Is(err, errs.PermissionDenied))
		})
	}
}

func TestAuthorizeRecord(t *testing.T) {
	expense := models.Expense{UserID: "a"}
	budget := models.Budget{UserID: "a"}

	assert.NoError(t, AuthorizeRecord("a", expense))
	assert.NoError(t, AuthorizeRecord("a", budget))
	assert.True(t, errs.Is(AuthorizeRecord("b", expense), errs.PermissionDenied))
	assert.True(t, errs.Is(AuthorizeRecord("b", budget), errs.PermissionDenied))
}
