package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/finance-service/internal/core/ownership"
	"github.com/nourabuild/finance-service/internal/core/resource"
)

// resourceHandlers serves the CRUD routes of one owned resource. R is the
// request body shared by create and update.
type resourceHandlers[T ownership.Owned, N, P, R any] struct {
	app     *App
	name    string
	repo    *resource.Repository[T, N, P]
	toNew   func(R) N
	toPatch func(R) P
}

func (h resourceHandlers[T, N, P, R]) register(g *gin.RouterGroup) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h resourceHandlers[T, N, P, R]) list(c *gin.Context) {
	identity, ok := h.app.identity(c)
	if !ok {
		return
	}

	items, err := h.repo.List(c.Request.Context(), identity.User.ID)
	if err != nil {
		h.app.writeError(c, "list_"+h.name, err)
		return
	}
	writeList(c, items)
}

func (h resourceHandlers[T, N, P, R]) get(c *gin.Context) {
	identity, ok := h.app.identity(c)
	if !ok {
		return
	}

	item, err := h.repo.Get(c.Request.Context(), identity.User.ID, c.Param("id"))
	if err != nil {
		h.app.writeError(c, "get_"+h.name, err)
		return
	}
	writeData(c, http.StatusOK, item)
}

// create never takes the owner from the body.
func (h resourceHandlers[T, N, P, R]) create(c *gin.Context) {
	identity, ok := h.app.identity(c)
	if !ok {
		return
	}

	var req R
	if err := c.ShouldBindJSON(&req); err != nil {
		h.app.writeError(c, "create_"+h.name, badBody())
		return
	}

	item, err := h.repo.Create(c.Request.Context(), identity.User.ID, h.toNew(req))
	if err != nil {
		h.app.writeError(c, "create_"+h.name, err)
		return
	}
	writeData(c, http.StatusCreated, item)
}

func (h resourceHandlers[T, N, P, R]) update(c *gin.Context) {
	identity, ok := h.app.identity(c)
	if !ok {
		return
	}

	var req R
	if err := c.ShouldBindJSON(&req); err != nil {
		h.app.writeError(c, "update_"+h.name, badBody())
		return
	}

	item, err := h.repo.Update(c.Request.Context(), identity.User.ID, c.Param("id"), h.toPatch(req))
	if err != nil {
		h.app.writeError(c, "update_"+h.name, err)
		return
	}
	writeData(c, http.StatusOK, item)
}

func (h resourceHandlers[T, N, P, R]) delete(c *gin.Context) {
	identity, ok := h.app.identity(c)
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), identity.User.ID, c.Param("id")); err != nil {
		h.app.writeError(c, "delete_"+h.name, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{})
}

func (a *App) HandleDashboard(c *gin.Context) {
	identity, ok := a.identity(c)
	if !ok {
		return
	}

	summary, err := a.reports.Summarize(c.Request.Context(), identity.User.ID)
	if err != nil {
		a.writeError(c, "dashboard", err)
		return
	}
	writeData(c, http.StatusOK, summary)
}
