package handlers

import (
	"ecopoints/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every route. limiter guards the endpoints that call the
// image classifier.
func NewRouter(h *Handlers, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())

	router.GET("/health", h.Health)
	router.GET("/version", h.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.Session(h.sessions)
	limited := middleware.UserRateLimit(limiter)

	api := router.Group("/api/v1")
	{
		api.POST("/session", h.CreateSession)

		api.GET("/stations", h.ListStations)
		api.GET("/leaderboard", h.Leaderboard)
		api.GET("/impact", h.Impact)
		api.GET("/tasks", h.ListTasks)
		api.GET("/reports/recent", h.ListRecentReports)
		api.GET("/reports/pending", h.ListPendingReports)
		api.GET("/collections", h.ListCollections)
	}

	protected := api.Group("")
	protected.Use(auth)
	{
		protected.POST("/stations", h.CreateStation)

		protected.GET("/me", h.GetMe)
		protected.PUT("/me", h.UpdateMe)
		protected.DELETE("/me", h.DeleteMe)
		protected.GET("/me/reports", h.ListMyReports)
		protected.GET("/me/collections", h.ListMyCollections)
		protected.GET("/me/balance", h.GetBalance)
		protected.GET("/me/transactions", h.ListTransactions)
		protected.GET("/me/rewards", h.ListRewards)
		protected.POST("/me/rewards/:id/redeem", h.RedeemReward)
		protected.GET("/me/notifications", h.ListNotifications)
		protected.POST("/me/notifications/:id/read", h.MarkNotificationRead)
		protected.GET("/me/notifications/ws", h.NotificationsWS)

		protected.POST("/reports", h.CreateReport)
		protected.POST("/analyze", limited, h.AnalyzeImage)

		protected.POST("/tasks/:id/claim", h.ClaimTask)
		protected.PUT("/tasks/:id/status", h.UpdateTaskStatus)
		protected.POST("/tasks/:id/verify", limited, h.VerifyTask)
	}

	return router
}
