package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the gateway callbacks. They are unauthenticated;
// the signature and transaction_uuid are the only trust anchors.
func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	group := g.Group("/payments/gateway")
	{
		group.GET("/success", h.Success)
		group.POST("/success", h.Success)
		group.GET("/failure", h.Failure)
	}
}
