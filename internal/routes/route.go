package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/container"
	"github.com/joshua-takyi/cleanbook/internal/handlers"
	"github.com/joshua-takyi/cleanbook/internal/middleware"
	"github.com/joshua-takyi/cleanbook/internal/services"
	"github.com/joshua-takyi/cleanbook/internal/telemetry"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	cfg := container.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	secure := cfg.IsProduction()

	r := gin.New()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	// API version 1
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": telemetry.ServiceName,
			})
		})

		// public routes
		v1.POST("/signup", handlers.SignUp(container.UserService))
		v1.POST("/login", handlers.Login(container.UserService, container.Tokens, container.SessionService, secure, container.Logger))
		v1.POST("/logout", handlers.Logout(container.Tokens, container.SessionService, secure))
		v1.POST("/enquiries",
			middleware.RateLimit(container.RateCounter, cfg.RateLimit, "enquiries", container.Logger),
			handlers.SubmitEnquiry(container.EnquiryService))
		v1.POST("/newsletter/subscribe",
			middleware.RateLimit(container.RateCounter, cfg.RateLimit, "subscribe", container.Logger),
			handlers.Subscribe(container.EnquiryService))
		v1.GET("/content/:slug", handlers.GetContent(container.ContentService))
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(middleware.AuthConfig{
		Tokens:       container.Tokens,
		Refresher:    container.UserService,
		Sessions:     container.SessionService,
		Roles:        container.RoleService,
		SecureCookie: secure,
		Logger:       container.Logger,
	}))

	protected.GET("/me", handlers.Me(container.UserService))

	registerBookingRoutes(protected, container.BookingService)

	manageEnquiries := middleware.RequireCapability(access.CapManageEnquiries)
	manageContent := middleware.RequireCapability(access.CapManageContent)

	adminRoutes := protected.Group("/admin")
	{
		adminRoutes.PUT("/users/:id/role", middleware.RequireCapability(access.CapManageRoles), handlers.ReplaceRole(container.RoleService))
		adminRoutes.POST("/staff", middleware.RequireCapability(access.CapManageStaff), handlers.CreateStaff(container.UserService))

		adminRoutes.GET("/enquiries", manageEnquiries, handlers.ListEnquiries(container.EnquiryService))
		adminRoutes.POST("/enquiries/:id/reply", manageEnquiries, handlers.ReplyEnquiry(container.EnquiryService))
		adminRoutes.POST("/newsletter", middleware.RequireCapability(access.CapSendNewsletter), handlers.SendNewsletter(container.EnquiryService))

		adminRoutes.GET("/content", manageContent, handlers.ListContent(container.ContentService))
		adminRoutes.PUT("/content/:slug", manageContent, handlers.SaveContent(container.ContentService))
		adminRoutes.POST("/content/:slug/image", manageContent, handlers.UploadContentImage(container.ContentService))
	}

	return r
}

// registerBookingRoutes mounts the customer, staff and admin booking routes
// on an authenticated group.
func registerBookingRoutes(protected *gin.RouterGroup, bs *services.BookingService) {
	bookingRoutes := protected.Group("/bookings")
	{
		bookingRoutes.POST("", handlers.CreateBooking(bs))
		bookingRoutes.GET("/mine", handlers.MyBookings(bs))
		bookingRoutes.GET("/:id", handlers.GetBooking(bs))
		bookingRoutes.GET("/:id/photos", handlers.BookingPhotos(bs))
	}

	staffRoutes := protected.Group("/staff")
	staffRoutes.Use(middleware.RequireCapability(access.CapWorkBookings))
	{
		staffRoutes.GET("/bookings", handlers.StaffBookings(bs))
		staffRoutes.POST("/bookings/:id/accept", handlers.AcceptBooking(bs))
		staffRoutes.POST("/bookings/:id/start", handlers.StartBooking(bs))
		staffRoutes.POST("/bookings/:id/cancel", handlers.CancelBooking(bs))
		staffRoutes.POST("/bookings/:id/complete", handlers.CompleteBooking(bs))
		staffRoutes.POST("/bookings/:id/photos", handlers.UploadTaskPhotos(bs))
	}

	// Admins complete through the status route with hours_worked and upload
	// through their own photos route.
	adminRoutes := protected.Group("/admin/bookings")
	adminRoutes.Use(middleware.RequireCapability(access.CapManageBookings))
	{
		adminRoutes.GET("", handlers.AdminBookings(bs))
		adminRoutes.PATCH("/:id/status", handlers.SetBookingStatus(bs))
		adminRoutes.PATCH("/:id/staff", handlers.AssignStaff(bs))
		adminRoutes.PATCH("/:id/estimate", handlers.UpdateEstimate(bs))
		adminRoutes.POST("/:id/photos", handlers.UploadTaskPhotos(bs))
	}
}
