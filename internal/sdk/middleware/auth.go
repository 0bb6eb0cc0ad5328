package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/finance-service/internal/core/session"
	"github.com/nourabuild/finance-service/internal/sdk/errs"
)

const IdentityKey = "identity"

// Resolver turns a bearer token into an identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (session.Identity, error)
}

// ErrorWriter writes a failed request's error response. Callers use it to log
// and report internal failures before AbortWithError.
type ErrorWriter func(c *gin.Context, err error)

// Authenticate rejects requests without a valid bearer token and stores the
// resolved identity under IdentityKey. Resolve failures go through fail, or
// AbortWithError when fail is nil.
func Authenticate(gate Resolver, fail ErrorWriter) gin.HandlerFunc {
	if fail == nil {
		fail = AbortWithError
	}

	return func(c *gin.Context) {
		token := session.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, errs.Newf(errs.Unauthenticated, "missing bearer token"))
			return
		}

		identity, err := gate.Resolve(c.Request.Context(), token)
		if err != nil {
			fail(c, err)
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// GetIdentity returns the identity set by Authenticate.
func GetIdentity(c *gin.Context) (session.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return session.Identity{}, false
	}
	identity, ok := v.(session.Identity)
	return identity, ok
}

// Admin must run after Authenticate.
func Admin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			AbortWithError(c, errs.Newf(errs.Unauthenticated, "authentication required"))
			return
		}

		if !identity.User.IsAdmin() {
			AbortWithError(c, errs.Newf(errs.PermissionDenied, "admin access required"))
			return
		}

		c.Next()
	}
}
