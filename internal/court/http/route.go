package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *CourtHandler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/courts")

	// === Public Routes ===
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.GET("/:id/image", h.Image)
	group.GET("/:id/thumbnail", h.Thumbnail)

	// === Vendor Routes ===
	vendor := group.Group("", authMiddleware, auth.RequireRole(auth.RoleVendor))
	{
		vendor.POST("", h.Create)
		vendor.PATCH("/:id", h.Update)
		vendor.PUT("/:id/image", h.UploadImage)
	}
}
