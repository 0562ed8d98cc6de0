package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/tallyhq/tally-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, auth *middleware.DualAuthMiddleware, rateLimiter *middleware.RateLimiter, authHandler *AuthHandler, tokenHandler *APITokenHandler, teamHandler *TeamHandler, categoryHandler *CategoryHandler, expenseHandler *ExpenseHandler, budgetHandler *BudgetHandler, recurringHandler *RecurringHandler, receiptHandler *ReceiptHandler, wsHandler *WebSocketHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Public auth routes
	api.POST("/auth/signup", authHandler.Signup)
	api.POST("/auth/login", authHandler.Login)

	// Auth routes (protected, session only)
	auths := api.Group("/auth")
	auths.Use(auth.SessionOnly())
	auths.POST("/logout", authHandler.Logout)
	auths.GET("/me", authHandler.Me)
	auths.DELETE("/me", authHandler.DeleteAccount)

	// API token management (session only: a token must not mint tokens)
	tokens := api.Group("/api-tokens")
	tokens.Use(auth.SessionOnly())
	tokens.POST("", tokenHandler.CreateToken)
	tokens.GET("", tokenHandler.ListTokens)
	tokens.DELETE("/:id", tokenHandler.RevokeToken)

	// Team routes (protected)
	teams := api.Group("/teams")
	teams.Use(auth.Authenticate(), middleware.RateLimitMiddleware(rateLimiter))
	teams.POST("", teamHandler.CreateTeam)
	teams.GET("", teamHandler.GetTeams)
	teams.GET("/:id", teamHandler.GetTeam)
	teams.PUT("/:id", teamHandler.UpdateTeam)
	teams.DELETE("/:id", teamHandler.DeleteTeam)
	teams.GET("/:id/members", teamHandler.GetMembers)
	teams.POST("/:id/members", teamHandler.InviteMember)
	teams.PUT("/:id/members/:userId", teamHandler.ChangeRole)
	teams.DELETE("/:id/members/:userId", teamHandler.RemoveMember)

	// Category routes (protected)
	categories := api.Group("/categories")
	categories.Use(auth.Authenticate(), middleware.RateLimitMiddleware(rateLimiter))
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)
	categories.GET("/:id/can-delete", categoryHandler.CanDeleteCategory)

	// Expense routes (protected)
	expenses := api.Group("/expenses")
	expenses.Use(auth.Authenticate(), middleware.RateLimitMiddleware(rateLimiter))
	expenses.POST("", expenseHandler.CreateExpense)
	expenses.GET("", expenseHandler.GetExpenses)
	expenses.GET("/summary", expenseHandler.GetSummary)
	expenses.GET("/:id", expenseHandler.GetExpense)
	expenses.PUT("/:id", expenseHandler.UpdateExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)
	expenses.POST("/:id/receipt", receiptHandler.UploadReceipt)
	expenses.GET("/:id/receipt", receiptHandler.GetReceipt)
	expenses.DELETE("/:id/receipt", receiptHandler.DeleteReceipt)

	// Budget routes (protected)
	budgets := api.Group("/budgets")
	budgets.Use(auth.Authenticate(), middleware.RateLimitMiddleware(rateLimiter))
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	// Recurring template routes (protected)
	recurring := api.Group("/recurring")
	recurring.Use(auth.Authenticate(), middleware.RateLimitMiddleware(rateLimiter))
	recurring.POST("", recurringHandler.CreateRecurring)
	recurring.GET("", recurringHandler.GetRecurring)
	recurring.GET("/:id", recurringHandler.GetRecurringByID)
	recurring.PUT("/:id", recurringHandler.UpdateRecurring)
	recurring.DELETE("/:id", recurringHandler.DeleteRecurring)

	// WebSocket endpoint (authenticates inside the handler)
	e.GET("/ws", wsHandler.HandleWS)

	// OpenAPI spec
	e.GET("/openapi.json", ServeOpenAPI3Spec)
}
