package app

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/models"
)

// multipartOverhead is allowed on top of the avatar limit for form framing.
const multipartOverhead = 64 << 10

func (a *App) HandleGetMe(c *gin.Context) {
	identity, ok := a.identity(c)
	if !ok {
		return
	}
	writeData(c, http.StatusOK, identity.User)
}

func (a *App) HandleUpdateMe(c *gin.Context) {
	identity, ok := a.identity(c)
	if !ok {
		return
	}

	var patch models.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		a.writeError(c, "update_me", badBody())
		return
	}

	user, err := a.credentials.UpdateProfile(c.Request.Context(), identity.User.ID, patch)
	if err != nil {
		a.writeError(c, "update_me", err)
		return
	}

	writeData(c, http.StatusOK, user)
}

// HandleDeleteMe deletes the account with everything it owns and revokes the
// token used for the request.
func (a *App) HandleDeleteMe(c *gin.Context) {
	identity, ok := a.identity(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, err := a.credentials.DeleteAccount(ctx, identity.User.ID)
	if err != nil {
		a.writeError(c, "delete_me", err)
		return
	}

	a.avatars.Remove(ctx, user.Avatar)
	if err := a.sessions.Revoke(ctx, identity.Claims); err != nil {
		a.log.Warn("revoking token of deleted account", "user_id", user.ID, "error", err)
	}

	writeData(c, http.StatusOK, gin.H{})
}

// HandleChangePassword returns a fresh token because the change invalidates
// every token issued before it.
func (a *App) HandleChangePassword(c *gin.Context) {
	identity, ok := a.identity(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, "change_password", badBody())
		return
	}

	user, err := a.credentials.ChangePassword(c.Request.Context(), identity.User.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		a.writeError(c, "change_password", err)
		return
	}

	a.respondWithToken(c, "change_password", http.StatusOK, user)
}

func (a *App) HandleUploadAvatar(c *gin.Context) {
	identity, ok := a.identity(c)
	if !ok {
		return
	}

	limit := a.avatars.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fh, err := c.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			a.writeError(c, "upload_avatar", errs.Newf(errs.PayloadTooLarge, "image exceeds %d bytes", limit))
		default:
			a.writeError(c, "upload_avatar", errs.Validation(map[string]string{"avatar": "avatar_required"}))
		}
		return
	}
	if fh.Size > limit {
		a.writeError(c, "upload_avatar", errs.Newf(errs.PayloadTooLarge, "image exceeds %d bytes", limit))
		return
	}

	f, err := fh.Open()
	if err != nil {
		a.writeError(c, "upload_avatar", errs.New(errs.Internal, err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		a.writeError(c, "upload_avatar", errs.New(errs.Internal, err))
		return
	}

	user, err := a.avatars.StoreAvatar(c.Request.Context(), identity.User, data, fh.Header.Get("Content-Type"))
	if err != nil {
		a.writeError(c, "upload_avatar", err)
		return
	}

	writeData(c, http.StatusOK, AvatarResponse{AvatarURL: user.Avatar, User: user})
}

func (a *App) HandleServeAvatar(c *gin.Context) {
	rc, contentType, err := a.avatars.Open(c.Request.Context(), c.Param("name"))
	if err != nil {
		a.writeError(c, "serve_avatar", err)
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

// ---------------------------------------------
// Admin
// ---------------------------------------------

func (a *App) HandleListUsers(c *gin.Context) {
	users, err := a.credentials.List(c.Request.Context())
	if err != nil {
		a.writeError(c, "list_users", err)
		return
	}
	writeList(c, users)
}

func (a *App) HandleSetUserActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, "set_user_active", badBody())
		return
	}
	if req.Active == nil {
		a.writeError(c, "set_user_active", errs.Validation(map[string]string{"active": "active_required"}))
		return
	}

	user, err := a.credentials.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		a.writeError(c, "set_user_active", err)
		return
	}
	writeData(c, http.StatusOK, user)
}
