package router

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/gripehq/gripe/handlers"
	"github.com/gripehq/gripe/internal/config"
	"github.com/gripehq/gripe/internal/metrics"
	"github.com/gripehq/gripe/services"
)

// NewGinRouter wires services, handlers, and middleware into the HTTP
// surface. The identity provider is injected so tests can substitute a
// double.
func NewGinRouter(pg *sql.DB, rdb *redis.Client, provider services.IdentityProvider) *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	collector := metrics.NewCollector()
	r.Use(collector.Middleware())

	// Initialize services
	tokenService := services.NewTokenService(config.App.JWTSecret, config.App.TokenTTL)
	sessionService := services.NewSessionService(rdb, config.App.TokenTTL)
	accountService := services.NewAccountService(pg)
	complaintService := services.NewComplaintService(pg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(provider, accountService, tokenService, sessionService)
	complaintHandler := handlers.NewComplaintHandler(complaintService)

	// Initialize middleware
	authMiddleware := handlers.NewAuthMiddleware(tokenService, sessionService)
	authLimiter := handlers.NewRateLimiter(rate.Limit(10.0/60.0), 10) // 10 req/min per client

	// PUBLIC ENDPOINTS (no authentication required)
	r.GET("/healthz", func(c *gin.Context) {
		if err := pg.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", collector.Handler())

	authRoutes := r.Group("/auth")
	authRoutes.Use(authLimiter.Middleware())
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
	}

	// PROTECTED ENDPOINTS (require a valid session token)
	protected := r.Group("/")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/profile", authHandler.Profile)

		complaintRoutes := protected.Group("/complaints")
		{
			complaintRoutes.GET("", complaintHandler.ListComplaints)
			complaintRoutes.POST("", complaintHandler.CreateComplaint)
			complaintRoutes.GET("/:id", complaintHandler.GetComplaint)
			complaintRoutes.PUT("/:id", complaintHandler.UpdateComplaint)
			complaintRoutes.PUT("/:id/status", complaintHandler.UpdateComplaintStatus)
			complaintRoutes.DELETE("/:id", complaintHandler.DeleteComplaint)
		}
	}

	return r
}
