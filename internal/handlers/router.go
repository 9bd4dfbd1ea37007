package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/metrics"
	"github.com/yukikurage/taxoffice-api/internal/middleware"
	"go.uber.org/zap"
)

// RouterDeps is everything the HTTP surface needs. Metrics is optional.
type RouterDeps struct {
	Log     *zap.Logger
	Tokens  *auth.TokenManager
	Metrics *metrics.Metrics

	Auth     *AuthHandler
	Clients  *ClientHandler
	Invoices *InvoiceHandler
	Payments *PaymentHandler
	Tasks    *TaskHandler
	Subtasks *SubtaskHandler
	Users    *UserHandler
	Reports  *ReportHandler
	Audit    *AuditHandler
}

// NewRouter builds the gin engine with every route registered
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Log))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Tax Office API is running",
		})
	})

	requireAuth := middleware.RequireAuth(deps.Tokens, deps.Log)
	numericID := middleware.RequireNumericID()

	api := r.Group("/api")
	{
		// Auth routes
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", deps.Auth.Login)
			authGroup.POST("/logout", deps.Auth.Logout)
			authGroup.GET("/me", requireAuth, deps.Auth.GetCurrentUser)
		}

		protected := api.Group("")
		protected.Use(requireAuth)

		// Client IDs are UUIDs, so no numeric ID check
		clients := protected.Group("/clients")
		{
			clients.GET("", deps.Clients.ListClients)
			clients.POST("", deps.Clients.CreateClient)
			clients.GET("/:id", deps.Clients.GetClient)
			clients.PATCH("/:id", deps.Clients.UpdateClient)
			clients.DELETE("/:id", deps.Clients.DeleteClient)
		}

		invoices := protected.Group("/invoices")
		{
			invoices.GET("", deps.Invoices.ListInvoices)
			invoices.POST("", deps.Invoices.CreateInvoice)
			invoices.GET("/:id", numericID, deps.Invoices.GetInvoice)
			invoices.PATCH("/:id", numericID, deps.Invoices.UpdateInvoice)
			invoices.PATCH("/:id/status", numericID, deps.Invoices.UpdateInvoiceStatus)
			invoices.DELETE("/:id", numericID, deps.Invoices.DeleteInvoice)
		}

		payments := protected.Group("/payments")
		{
			payments.GET("", deps.Payments.ListPayments)
			payments.POST("", deps.Payments.RecordPayment)
			payments.GET("/:id", numericID, deps.Payments.GetPayment)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.GET("", deps.Tasks.ListTasks)
			tasks.POST("", deps.Tasks.CreateTask)
			tasks.GET("/:id", numericID, deps.Tasks.GetTask)
			tasks.PATCH("/:id", numericID, deps.Tasks.UpdateTask)
			tasks.DELETE("/:id", numericID, deps.Tasks.DeleteTask)
			tasks.POST("/:id/suggest-subtasks", numericID, deps.Tasks.SuggestSubtasks)
		}
		protected.GET("/tasks-enhanced", deps.Tasks.ListTasksWithProgress)

		subtasks := protected.Group("/subtasks")
		{
			subtasks.GET("", deps.Subtasks.ListSubtasks)
			subtasks.POST("", deps.Subtasks.CreateSubtask)
			subtasks.PATCH("/:id", numericID, deps.Subtasks.UpdateSubtask)
			subtasks.DELETE("/:id", numericID, deps.Subtasks.DeleteSubtask)
		}

		users := protected.Group("/users")
		{
			users.GET("", deps.Users.ListUsers)
			users.POST("", deps.Users.CreateUser)
			users.GET("/:id", numericID, deps.Users.GetUser)
			users.PATCH("/:id", numericID, deps.Users.UpdateUser)
			users.DELETE("/:id", numericID, deps.Users.DeactivateUser)
		}

		reports := protected.Group("")
		{
			reports.GET("/dashboard/stats", deps.Reports.Dashboard)
			reports.GET("/analytics", deps.Reports.Analytics)
			reports.GET("/team-performance", deps.Reports.TeamPerformance)
			reports.GET("/team-overview", deps.Reports.TeamOverview)
			reports.GET("/task-reports", deps.Reports.TaskReport)
		}

		protected.GET("/audit-logs", deps.Audit.ListAuditLogs)
	}

	return r
}
