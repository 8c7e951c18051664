package explain

import "github.com/gin-gonic/gin"

// registers explanation routes
func RegisterRoutes(router *gin.RouterGroup, pipe Explainer) {
	router.POST("/explain", Handler(pipe))
}
