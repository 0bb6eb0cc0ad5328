package app

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/finance-service/internal/core/credential"
	"github.com/nourabuild/finance-service/internal/core/session"
	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/middleware"
	"github.com/nourabuild/finance-service/internal/sdk/models"
	"github.com/nourabuild/finance-service/internal/services/sentry"
)

const forgotPasswordMessage = "If the email exists, a password reset link has been sent"

func (a *App) HandleRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, "register", badBody())
		return
	}

	user, err := a.credentials.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		a.writeError(c, "register", err)
		return
	}

	a.respondWithToken(c, "register", http.StatusCreated, user)
}

func (a *App) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, "login", badBody())
		return
	}

	user, err := a.credentials.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(c, "login", err)
		return
	}

	a.respondWithToken(c, "login", http.StatusOK, user)
}

func (a *App) HandleLogout(c *gin.Context) {
	identity, ok := a.identity(c)
	if !ok {
		return
	}

	if err := a.sessions.Revoke(c.Request.Context(), identity.Claims); err != nil {
		a.writeError(c, "logout", err)
		return
	}

	writeData(c, http.StatusOK, gin.H{})
}

// HandleForgotPassword answers the same way whether or not the email is
// registered.
func (a *App) HandleForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, "forgot_password", badBody())
		return
	}

	user, token, err := a.credentials.ForgotPassword(c.Request.Context(), req.Email)
	switch {
	case errs.Is(err, errs.NotFound):
		writeData(c, http.StatusOK, MessageResponse{Message: forgotPasswordMessage})
		return
	case err != nil:
		a.writeError(c, "forgot_password", err)
		return
	}

	if err := a.sendResetEmail(c, user, token); err != nil {
		a.log.Warn("password reset email not sent", "user_id", user.ID, "error", err)
		a.toSentry(c, "forgot_password", "email", sentry.LevelWarning, err)
	}

	writeData(c, http.StatusOK, MessageResponse{Message: forgotPasswordMessage})
}

func (a *App) HandleResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, "reset_password", badBody())
		return
	}

	user, err := a.credentials.ResetPassword(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		a.writeError(c, "reset_password", err)
		return
	}

	a.respondWithToken(c, "reset_password", http.StatusOK, user)
}

func (a *App) sendResetEmail(c *gin.Context, user models.User, token string) error {
	if a.email == nil {
		return errs.Newf(errs.Internal, "no mailer configured")
	}

	link, err := url.Parse(a.resetURLBase)
	if err != nil {
		return err
	}
	q := link.Query()
	q.Set("token", token)
	link.RawQuery = q.Encode()

	return a.email.SendPasswordReset(c.Request.Context(), user.Email, user.Name, link.String(), credential.ResetTokenTTL)
}

func (a *App) respondWithToken(c *gin.Context, handler string, status int, user models.User) {
	token, err := a.sessions.Issue(c.Request.Context(), user)
	if err != nil {
		a.writeError(c, handler, err)
		return
	}

	writeData(c, status, AuthResponse{Token: token, User: user})
}

// identity returns the caller set by the auth middleware. It aborts the
// request when none is present.
func (a *App) identity(c *gin.Context) (session.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.AbortWithError(c, errs.Newf(errs.Unauthenticated, "authentication required"))
		return session.Identity{}, false
	}
	return identity, true
}
