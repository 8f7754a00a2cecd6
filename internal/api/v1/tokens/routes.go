package tokens

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	tokenGroup := r.Group("/tokens")
	{
		tokenGroup.POST("/estimate", h.Estimate)
		tokenGroup.POST("/check", h.Check)
		tokenGroup.POST("/consume", h.Consume)
		tokenGroup.POST("/adjust", h.Adjust)
		tokenGroup.GET("/balance", h.Balance)
	}
}
