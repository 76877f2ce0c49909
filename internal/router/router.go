package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pomodoro/collab/internal/handler"
	"pomodoro/collab/internal/middleware"
	"pomodoro/collab/internal/service"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Rooms     *handler.RoomHandler
	Analytics *handler.AnalyticsHandler
}

func New(authService *service.AuthService, handlers Handlers, corsOrigins []string) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", handlers.Auth.Register)
	auth.POST("/login", handlers.Auth.Login)
	auth.POST("/guest", handlers.Auth.Guest)

	rooms := api.Group("/rooms")
	rooms.Use(middleware.OptionalAuth(authService))
	rooms.GET("", handlers.Rooms.List)
	rooms.POST("", handlers.Rooms.Create)
	rooms.GET("/:roomId", handlers.Rooms.Get)
	rooms.POST("/:roomId", handlers.Rooms.Act)

	analytics := api.Group("/analytics")
	analytics.Use(middleware.Auth(authService))
	analytics.POST("/sessions", handlers.Analytics.RecordSession)
	analytics.GET("/daily", handlers.Analytics.Daily)

	return engine
}
