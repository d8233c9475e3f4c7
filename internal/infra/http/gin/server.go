package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"stayride/internal/infra/config"
	"stayride/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Confirm(c *gin.Context)
	CancellationPreview(c *gin.Context)
	Cancel(c *gin.Context)
}

type ModificationHTTP interface {
	Propose(c *gin.Context)
	Approve(c *gin.Context)
	Reject(c *gin.Context)
	Withdraw(c *gin.Context)
}

type AvailabilityHTTP interface {
	Calendar(c *gin.Context)
	Block(c *gin.Context)
	Unblock(c *gin.Context)
}

type QuoteHTTP interface {
	Quote(c *gin.Context)
}

type Handlers struct {
	Booking      BookingHTTP
	Modification ModificationHTTP
	Availability AvailabilityHTTP
	Quote        QuoteHTTP
	// RateLimit guards /api/v1 when set.
	RateLimit gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the routing tree without touching the process-wide gin mode.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", headerActorID, headerActorRole},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.RateLimit != nil {
		api.Use(h.RateLimit)
	}
	if h.Quote != nil {
		api.POST("/quotes", h.Quote.Quote)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/confirm", h.Booking.Confirm)
		api.GET("/bookings/:id/cancellation-preview", h.Booking.CancellationPreview)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
	}
	if h.Modification != nil {
		api.POST("/bookings/:id/modifications", h.Modification.Propose)
		api.POST("/modifications/:id/approve", h.Modification.Approve)
		api.POST("/modifications/:id/reject", h.Modification.Reject)
		api.POST("/modifications/:id/withdraw", h.Modification.Withdraw)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/calendar", h.Availability.Calendar)
		api.POST("/listings/:id/blocks", h.Availability.Block)
		api.DELETE("/listings/:id/blocks/:ref", h.Availability.Unblock)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
