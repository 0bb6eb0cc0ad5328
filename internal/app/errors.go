package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/middleware"
	"github.com/nourabuild/finance-service/internal/services/sentry"
)

// Response is the success envelope. Count is set on list endpoints.
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Count   *int `json:"count,omitempty"`
}

func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

func writeList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	c.JSON(http.StatusOK, Response{Success: true, Data: items, Count: &n})
}

// writeError reports internal failures and writes the error envelope.
func (a *App) writeError(c *gin.Context, handler string, err error) {
	if errs.CodeOf(err) == errs.Internal {
		a.log.Error("request failed", "handler", handler, "request_id", middleware.RequestID(c), "error", err)
		a.toSentry(c, handler, "internal", sentry.LevelError, err)
	}
	middleware.AbortWithError(c, err)
}

func (a *App) toSentry(c *gin.Context, handler, errType string, level sentry.Level, err error) {
	a.sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("handler", handler)
		scope.SetExtra("error_type", errType)
		scope.SetLevel(level)
		if reqID := middleware.RequestID(c); reqID != "" {
			scope.SetTag("request_id", reqID)
		}
		a.sentry.CaptureException(err)
	})
}

func badBody() error {
	return errs.Newf(errs.InvalidArgument, "request body is not valid JSON")
}
