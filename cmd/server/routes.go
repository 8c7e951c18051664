package main

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/quebecsigns/server/api/rest/explain"
	"codeberg.org/quebecsigns/server/api/rest/health"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) {
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())
	router.GET("/health", health.Handler)

	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware())

	{
		v1.GET("/ping", health.PingHandler)

		explain.RegisterRoutes(v1, server.services.Pipeline)
	}
}
