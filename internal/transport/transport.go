package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/ds124wfegd/parkingbooker/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	// Context bounds background work of the router such as rate limiter cleanup.
	Context   context.Context
	Tokens    middleware.TokenParser
	RateLimit float64
	Burst     int
	Timeout   time.Duration
}

func InitRoutes(authHandler *AuthHandler, venueHandler *VenueHandler, bookingHandler *BookingHandler, adminHandler *AdminHandler, opts RouterOptions) *gin.Engine {

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Metrics())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(opts.Timeout))

	limiter := middleware.NewRateLimiter(opts.RateLimit, opts.Burst)
	if opts.Context != nil {
		go limiter.StartCleanup(opts.Context)
	}
	authenticate := middleware.Authenticate(opts.Tokens)

	// API routes
	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", limiter.Limit(), authHandler.Register)
			auth.POST("/login", limiter.Limit(), authHandler.Login)
			auth.GET("/me", authenticate, authHandler.Me)
		}

		venues := api.Group("/venues")
		{
			venues.GET("", venueHandler.GetAllVenues)
			venues.GET("/:id", venueHandler.GetVenue)
			venues.GET("/:id/availability", venueHandler.GetAvailability)
			venues.GET("/:id/quote", venueHandler.GetQuote)
		}
		api.GET("/timeslots", venueHandler.GetTimeSlots)

		// Booking routes
		bookings := api.Group("/bookings", authenticate)
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.GetMyBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.GET("/:id/qr", bookingHandler.GetQR)
			bookings.GET("/:id/qr.png", bookingHandler.GetQRImage)
			bookings.GET("/:id/pass.pdf", bookingHandler.GetPassPDF)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
		}

		// Admin routes
		admin := api.Group("/admin", authenticate, middleware.RequireAdmin())
		{
			admin.GET("/bookings", bookingHandler.GetAllBookings)
			admin.GET("/stats", bookingHandler.GetStats)
			admin.GET("/venues/:id/occupancy", venueHandler.GetOccupancy)
			admin.POST("/scan/verify", limiter.Limit(), bookingHandler.VerifyScan)
			admin.POST("/scan/checkin", limiter.Limit(), bookingHandler.ScanCheckIn)
			admin.POST("/bookings/:id/checkin", bookingHandler.CheckIn)
			admin.POST("/bookings/:id/complete", bookingHandler.CompleteBooking)
			admin.POST("/bookings/:id/cancel", bookingHandler.CancelBooking)

			admin.GET("/events/dlq", adminHandler.GetFailedEvents)
			admin.GET("/events/dlq/stats", adminHandler.GetDLQStats)
			admin.DELETE("/events/dlq", adminHandler.PurgeDLQ)
			admin.GET("/worker/stats", adminHandler.GetWorkerStats)
		}
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	})

	return router
}
