// Package routes assembles the meeting service HTTP surface.
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"meetdesk-backend/meeting-service/handlers"
	"meetdesk-backend/meeting-service/middleware"
	"meetdesk-backend/shared/config"
	"meetdesk-backend/shared/metrics"
	"meetdesk-backend/shared/store"
	utils "meetdesk-backend/shared/utils/auth"
	"meetdesk-backend/shared/utils/response"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Dependencies are the collaborators the router wires into handlers
type Dependencies struct {
	Config      *config.Config
	Store       store.Store
	Tokens      *utils.TokenManager
	Notifier    handlers.Notifier
	Meetings    handlers.MeetingProvider
	Payments    handlers.PaymentProvider
	Events      handlers.EventPublisher
	Stream      handlers.NotificationStream
	SlotCache   handlers.SlotCache
	Avatars     handlers.AvatarStorage
	AuthLimiter *middleware.RateLimiter
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	// Checks run on /health in addition to the store ping
	Checks map[string]HealthCheck
}

// NewRouter builds the gin engine with every endpoint and the middleware chain
func NewRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	middleware.UseJSONFieldNames()

	router := gin.New()
	router.Use(middleware.Recovery(cfg.IsProduction()))
	router.Use(middleware.RequestLogger(deps.Metrics))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.ErrorHandler(cfg.IsProduction(), deps.Metrics))

	router.NoRoute(func(c *gin.Context) {
		response.Failure(c, http.StatusNotFound, "Route "+c.Request.URL.Path+" not found", nil, "")
	})

	router.GET("/health", healthHandler(deps))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if !cfg.IsProduction() {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authn := middleware.NewAuthenticator(deps.Tokens, deps.Store)
	staff := authn.RequireStaff()

	limited := func(scope string) gin.HandlerFunc {
		if deps.AuthLimiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return deps.AuthLimiter.Middleware(scope)
	}

	api := router.Group("/api")

	// Staff auth
	authHandler := handlers.NewAuthHandler(deps.Store, deps.Tokens, deps.Notifier)
	auth := api.Group("/auth")
	{
		auth.POST("/register", limited("auth"), authHandler.Register)
		auth.POST("/login", limited("auth"), authHandler.Login)
		auth.POST("/password-reset", limited("auth"), authHandler.RequestPasswordReset)
		auth.POST("/reset-password", limited("auth"), authHandler.ResetPassword)
		auth.GET("/me", staff, authHandler.Me)
	}

	// Customer self-service auth
	customerAuthHandler := handlers.NewCustomerAuthHandler(deps.Store, deps.Tokens, deps.Notifier)
	customerAuth := api.Group("/customer-auth")
	{
		customerAuth.POST("/signup", limited("customer-auth"), customerAuthHandler.Signup)
		customerAuth.POST("/verify-otp", limited("customer-auth"), customerAuthHandler.VerifyOTP)
		customerAuth.POST("/login", limited("customer-auth"), customerAuthHandler.Login)
		customerAuth.POST("/resend-otp", limited("customer-auth"), customerAuthHandler.ResendOTP)
		customerAuth.POST("/forgot-password", limited("customer-auth"), customerAuthHandler.ForgotPassword)
		customerAuth.POST("/reset-password", limited("customer-auth"), customerAuthHandler.ResetPassword)
		customerAuth.GET("/me", authn.RequireCustomer(), customerAuthHandler.Me)
	}

	// Customers
	customerHandler := handlers.NewCustomerHandler(deps.Store, deps.Store, deps.Notifier)
	customers := api.Group("/customers", staff)
	{
		customers.POST("", middleware.RequireCapability(utils.CapCustomersWrite), customerHandler.Create)
		customers.GET("", customerHandler.List)
		customers.GET("/:id", customerHandler.Get)
		customers.PUT("/:id", middleware.RequireCapability(utils.CapCustomersWrite), customerHandler.Update)
		customers.POST("/:id/notes", middleware.RequireCapability(utils.CapCustomersWrite), customerHandler.AddNote)
		customers.DELETE("/:id", middleware.RequireCapability(utils.CapCustomersDelete), customerHandler.Delete)
	}

	// Meetings
	meetingHandler := handlers.NewMeetingHandler(deps.Store, deps.Meetings, deps.Notifier, deps.Events)
	meetings := api.Group("/meetings", staff)
	{
		meetings.POST("", middleware.RequireCapability(utils.CapMeetingsWrite), meetingHandler.Create)
		meetings.GET("", meetingHandler.List)
		meetings.GET("/:id", meetingHandler.Get)
		meetings.PATCH("/:id/status", middleware.RequireCapability(utils.CapMeetingsWrite), meetingHandler.UpdateStatus)
	}

	// Slots
	slotHandler := handlers.NewSlotHandler(deps.Store, deps.Store, deps.SlotCache)
	slots := api.Group("/slots", staff)
	{
		slots.POST("", middleware.RequireCapability(utils.CapSlotsWrite), slotHandler.Create)
		slots.GET("/available", slotHandler.Available)
		slots.POST("/book", middleware.RequireCapability(utils.CapSlotsWrite), slotHandler.Book)
		slots.GET("/my-slots", slotHandler.MySlots)
	}

	// Payments
	paymentHandler := handlers.NewPaymentHandler(deps.Store, deps.Payments, deps.Events)
	payments := api.Group("/payments", authn.RequireAny(), middleware.RequireCapability(utils.CapPaymentsWrite))
	{
		payments.POST("/create-order", paymentHandler.CreateOrder)
		payments.POST("/verify", paymentHandler.Verify)
	}

	// Profile and user administration
	profileHandler := handlers.NewProfileHandler(deps.Store, deps.Avatars, cfg.AvatarMaxBytes)
	users := api.Group("/users", staff)
	{
		users.GET("/me", profileHandler.Get)
		users.PUT("/me", profileHandler.Update)
		users.POST("/me/avatar", profileHandler.UploadAvatar)
		users.PUT("/:id/role", middleware.RequireCapability(utils.CapUsersManage), profileHandler.UpdateRole)
	}

	// Realtime notifications
	if deps.Stream != nil {
		wsHandler := handlers.NewWebSocketHandler(deps.Stream)
		router.GET("/ws/notifications", staff, wsHandler.Notifications)
	}

	return router
}

type healthStatus struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
}

func healthHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := healthStatus{Status: "healthy", Service: "meeting", Checks: map[string]string{}}
		checks := map[string]HealthCheck{"database": deps.Store.Ping}
		for name, check := range deps.Checks {
			checks[name] = check
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status.Status = "unhealthy"
				status.Checks[name] = err.Error()
				continue
			}
			status.Checks[name] = "ok"
		}

		if status.Status != "healthy" {
			c.JSON(http.StatusServiceUnavailable, response.Envelope{Success: false, Message: "Service unhealthy", Data: status})
			return
		}
		response.Success(c, http.StatusOK, "Service healthy", status)
	}
}
