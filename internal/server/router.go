// Package server assembles the HTTP routes from explicitly constructed
// dependencies.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/handlers"
	"github.com/yukikurage/taskmaster/internal/logging"
	"github.com/yukikurage/taskmaster/internal/middleware"
	"github.com/yukikurage/taskmaster/internal/realtime"
	"github.com/yukikurage/taskmaster/internal/services"
)

// Dependencies is everything the routes need. main builds it once.
type Dependencies struct {
	Log          logging.Logger
	SessionStore sessions.Store
	Broker       realtime.Broker

	AuthService    *services.AuthService
	TaskService    *services.TaskService
	ProfileService *services.ProfileService

	APIKey              string
	SignupRedirectDelay time.Duration
	RateLimiter         *middleware.RateLimiter
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(sessions.Sessions(constants.SessionCookieName, deps.SessionStore))
	r.MaxMultipartMemory = constants.MaxAvatarBytes + (1 << 20)

	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.SignupRedirectDelay, deps.Log)
	taskHandler := handlers.NewTaskHandler(deps.TaskService, deps.Broker, deps.Log)
	profileHandler := handlers.NewProfileHandler(deps.ProfileService, deps.Log)
	dashboardHandler := handlers.NewDashboardHandler(deps.AuthService, deps.TaskService)

	limit := func(c *gin.Context) { c.Next() }
	if deps.RateLimiter != nil {
		limit = deps.RateLimiter.Middleware()
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "TaskMaster API is running",
		})
	})

	r.GET("/", middleware.RequireAuth(), dashboardHandler.Show)
	r.GET("/confirm-email", authHandler.ConfirmEmail)

	api := r.Group("/api")
	api.Use(middleware.RequireAPIKey(deps.APIKey))
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", limit, authHandler.Signup)
			auth.POST("/login", limit, authHandler.Login)
			auth.POST("/resend", limit, authHandler.ResendConfirmation)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/refresh", middleware.RequireAuth(), authHandler.Refresh)
			auth.GET("/session", authHandler.GetSession)
			auth.GET("/confirm", authHandler.ConfirmEmail)
		}

		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/stream", taskHandler.StreamTasks)
			tasks.POST("/suggest", taskHandler.SuggestTasks)
			tasks.PATCH("/:id", middleware.RequireTaskID(), taskHandler.UpdateTask)
			tasks.POST("/:id/toggle", middleware.RequireTaskID(), taskHandler.ToggleTask)
			tasks.DELETE("/:id", middleware.RequireTaskID(), taskHandler.DeleteTask)
		}

		profile := api.Group("/profile")
		profile.Use(middleware.RequireAuth())
		{
			profile.GET("", profileHandler.GetProfile)
			profile.PUT("", profileHandler.UpdateProfile)
			profile.POST("/avatar", profileHandler.UploadAvatar)
		}
	}

	return r
}
