package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nourabuild/finance-service/internal/core/avatar"
	"github.com/nourabuild/finance-service/internal/sdk/middleware"
	"github.com/nourabuild/finance-service/internal/sdk/models"
)

// ----------------------------------------------------------------------------
// Route Registration
// ----------------------------------------------------------------------------

// Handler returns the full HTTP handler: the gin engine wrapped in CORS.
func (a *App) Handler() http.Handler {
	return middleware.WrapMiddleware(a.RegisterRoutes(), middleware.CORS(a.corsOrigins))
}

func (a *App) RegisterRoutes() *gin.Engine {
	router := gin.New()

	// Global middleware chain
	router.Use(middleware.Logger(a.log))              // Request id + slog line
	router.Use(gin.CustomRecovery(a.recoverPanic))    // Panic recovery
	router.Use(middleware.Deadline(a.requestTimeout)) // Request deadline

	router.GET(avatarRoute, a.HandleServeAvatar)

	expenses := resourceHandlers[models.Expense, models.NewExpense, models.ExpensePatch, ExpenseRequest]{
		app: a, name: "expense", repo: a.expenses,
		toNew: ExpenseRequest.toNew, toPatch: ExpenseRequest.toPatch,
	}
	budgets := resourceHandlers[models.Budget, models.NewBudget, models.BudgetPatch, BudgetRequest]{
		app: a, name: "budget", repo: a.budgets,
		toNew: BudgetRequest.toNew, toPatch: BudgetRequest.toPatch,
	}
	authenticate := middleware.Authenticate(a.sessions, func(c *gin.Context, err error) {
		a.writeError(c, "authenticate", err)
	})

	// API v1 route group
	v1 := router.Group("/api/v1")
	{
		// Health check routes (public)
		health := v1.Group("/health")
		{
			health.GET("/readiness", a.HandleReadiness)
			health.GET("/liveness", a.HandleLiveness)
		}

		// Auth routes (public except logout)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", a.HandleRegister)
			auth.POST("/login", a.HandleLogin)
			auth.POST("/forgot-password", a.HandleForgotPassword)
			auth.POST("/reset-password", a.HandleResetPassword)
			auth.POST("/logout", authenticate, a.HandleLogout)
		}

		// Current user routes
		me := v1.Group("/users/me", authenticate)
		{
			me.GET("", a.HandleGetMe)
			me.PUT("", a.HandleUpdateMe)
			me.DELETE("", a.HandleDeleteMe)
			me.PUT("/password", a.HandleChangePassword)
			me.POST("/avatar", a.HandleUploadAvatar)
		}

		expenses.register(v1.Group("/expenses", authenticate))
		budgets.register(v1.Group("/budgets", authenticate))
		v1.GET("/dashboard", authenticate, a.HandleDashboard)

		// Admin routes (protected - requires admin role)
		admin := v1.Group("/admin", authenticate, middleware.Admin())
		{
			admin.GET("/users", a.HandleListUsers)
			admin.PUT("/users/:id/active", a.HandleSetUserActive)
		}
	}

	return router
}

const avatarRoute = avatar.PublicPrefix + ":name"

func (a *App) recoverPanic(c *gin.Context, recovered any) {
	a.writeError(c, "panic", fmt.Errorf("panic: %v", recovered))
}
