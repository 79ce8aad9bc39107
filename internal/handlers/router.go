package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kanri/backend/internal/config"
	"kanri/backend/internal/middleware"
	"kanri/backend/internal/monitoring"
	"kanri/backend/internal/services"
)

type RouterConfig struct {
	DB           *gorm.DB
	Config       *config.Config
	Logger       *zap.Logger
	TaskService  services.TaskService
	StatsService services.StatsService
	AuthService  services.AuthService
	TokenService services.TokenService
	Warmer       OwnerWarmer
	Reminders    ReminderScheduler
	Health       *monitoring.HealthChecker
	RateLimiter  *middleware.RateLimiter
}

func NewRouter(rc RouterConfig) *gin.Engine {
	if rc.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RecoveryWithLog(rc.Logger))
	r.Use(monitoring.MetricsMiddleware())
	r.Use(corsMiddleware(rc.Config.CORS.AllowedOrigins))

	if rc.RateLimiter != nil {
		r.Use(rc.RateLimiter.Middleware())
	}

	authHandler := NewAuthHandler(rc.DB, rc.AuthService, rc.TokenService, rc.Config.Auth.CookieName, rc.Config.IsProduction(), rc.Warmer)
	taskHandler := NewTaskHandler(rc.DB, rc.TaskService, rc.Reminders)
	statsHandler := NewStatsHandler(rc.DB, rc.StatsService)
	userHandler := NewUserHandler(rc.DB, rc.AuthService)

	r.GET("/health", healthEndpoint(rc.Health))
	r.GET("/metrics", monitoring.MetricsHandler())

	api := r.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		authed := api.Group("")
		authed.Use(middleware.RequireAuth(rc.DB, rc.TokenService, rc.AuthService, rc.Config.Auth.CookieName))
		{
			authed.GET("/auth/me", authHandler.Me)

			authed.GET("/tasks", taskHandler.GetTasks)
			authed.POST("/tasks", taskHandler.CreateTask)
			authed.PUT("/tasks/:id", taskHandler.UpdateTask)
			authed.DELETE("/tasks/:id", taskHandler.DeleteTask)

			authed.GET("/stats", statsHandler.GetTaskStats)

			authed.GET("/admin/users", userHandler.GetUsers)
		}
	}

	return r
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return originAllowed(origin, allowedOrigins)
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// originAllowed matches an origin against the configured list. Entries of the
// form "*.example.com" match any subdomain of example.com.
func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
		if suffix, ok := strings.CutPrefix(a, "*."); ok {
			if strings.HasSuffix(origin, "."+suffix) || strings.HasSuffix(origin, "//"+suffix) {
				return true
			}
		}
	}
	return false
}

func healthEndpoint(hc *monitoring.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hc == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		healthy, checks := hc.Run(c.Request.Context())
		status := http.StatusOK
		state := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": checks})
	}
}
