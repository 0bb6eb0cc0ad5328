// Package middleware provides the gin middleware shared by every route group
// and the error envelope they respond with.
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/finance-service/internal/sdk/errs"
)

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

const internalErrorCode = "internal_server_error"

// AbortWithError writes err as an error envelope and stops the chain.
// Unclassified and internal errors are reported without detail.
func AbortWithError(c *gin.Context, err error) {
	var e *errs.Error
	if !errors.As(err, &e) || e.Code == errs.Internal {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  internalErrorCode,
		})
		return
	}

	c.AbortWithStatusJSON(e.HTTPStatus(), ErrorResponse{
		Error:   e.Message,
		Code:    string(e.Code),
		Details: e.Fields,
	})
}
