package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/futsal-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/futsal-booking-backend/internal/court"
	courtHttp "github.com/nekogravitycat/futsal-booking-backend/internal/court/http"
	"github.com/nekogravitycat/futsal-booking-backend/internal/payment"
	paymentHttp "github.com/nekogravitycat/futsal-booking-backend/internal/payment/http"
	"github.com/nekogravitycat/futsal-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/futsal-booking-backend/internal/user/http"
)

// Config holds the services the router exposes.
type Config struct {
	IsProduction bool
	ProdOrigins  []string
	DevOrigins   []string

	UserService    user.Service
	CourtService   court.Service
	BookingService booking.Service
	PaymentEngine  *payment.Engine
	Signer         *payment.Signer
	JWTManager     *auth.JWTManager
}

// NewRouter assembles middleware and registers every module's routes under /v1.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestID(), RequestLogger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.DevOrigins
	if cfg.IsProduction {
		corsConfig.AllowOrigins = cfg.ProdOrigins
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	courtHandler := courtHttp.NewHandler(cfg.CourtService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, cfg.Signer)
	paymentHandler := paymentHttp.NewHandler(cfg.PaymentEngine)

	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		courtHttp.RegisterRoutes(v1, courtHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
		paymentHttp.RegisterRoutes(v1, paymentHandler)
	}

	return r
}
