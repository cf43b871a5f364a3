package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the HTTP router
func SetupRouter(components *Components) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	setupRoutes(router, components)

	return router
}

// setupRoutes configures all API routes
func setupRoutes(router *gin.Engine, components *Components) {
	multiplayer := router.Group("/multiplayer")
	{
		multiplayer.POST("/create-session", components.Admin.CreateSession)
		multiplayer.GET("/session/:code", components.Admin.GetSession)
		multiplayer.GET("/session/:code/participants", components.Admin.Participants)
		multiplayer.POST("/session/:code/join", components.Admin.Join)
		multiplayer.POST("/session/:code/start", components.Admin.Start)
		multiplayer.POST("/session/:code/end", components.Admin.End)
		multiplayer.POST("/session/:code/validate", components.Admin.Validate)
		multiplayer.GET("/session/:code/qr", components.Admin.QRCode)
	}

	router.GET("/ws/:code/:userId", components.WS.HandleConnection)
}
