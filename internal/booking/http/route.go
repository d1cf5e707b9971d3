package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Public Routes ===
	group.GET("/booked-times", h.BookedTimes)
	group.GET("/availability", h.Availability)

	// === Authenticated Routes ===
	authed := group.Group("", authMiddleware)
	{
		authed.GET("", h.List)
		authed.GET("/:id", h.Get)
		authed.POST("", h.Create)
		authed.PATCH("/:id", h.Update)
		authed.POST("/:id/cancel", h.Cancel())
	}

	// === Vendor Routes ===
	vendorOnly := auth.RequireRole(auth.RoleVendor)
	authed.POST("/:id/approve", vendorOnly, h.Approve())
	authed.POST("/:id/reject", vendorOnly, h.Reject())

	g.POST("/vendor/bookings", authMiddleware, vendorOnly, h.CreateManual)
}
