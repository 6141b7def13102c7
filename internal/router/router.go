package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/vtc-admin-api/internal/handler"
	"github.com/noah-isme/vtc-admin-api/internal/middleware"
	"github.com/noah-isme/vtc-admin-api/internal/models"
	"github.com/noah-isme/vtc-admin-api/internal/service"
	"github.com/noah-isme/vtc-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/vtc-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/vtc-admin-api/pkg/middleware/requestid"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Auth          *handler.AuthHandler
	Departments   *handler.DepartmentHandler
	Students      *handler.StudentHandler
	Registration  *handler.RegistrationHandler
	Dashboard     *handler.DashboardHandler
	Notifications *handler.NotificationHandler
	Ops           *handler.MetricsHandler
}

// Options configures the engine.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Auth           tokenValidator
}

// New builds the gin engine with global middleware and all routes.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics))

	r.GET("/health", h.Ops.Health)
	r.GET("/ready", h.Ops.Ready)
	r.GET("/metrics", h.Ops.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	{
		public := api.Group("/public")
		public.GET("/departments", h.Registration.Departments)
		public.POST("/apply", h.Registration.Apply)

		api.POST("/auth/login", h.Auth.Login)
		api.GET("/auth/me", middleware.JWT(opts.Auth), h.Auth.Me)

		staff := api.Group("")
		staff.Use(middleware.JWT(opts.Auth), middleware.RequireVerified())
		{
			staff.GET("/dashboard", h.Dashboard.Summary)

			departments := staff.Group("/departments")
			departments.GET("", h.Departments.List)
			departments.POST("", h.Departments.Create)
			departments.GET("/:id", h.Departments.Get)
			departments.PUT("/:id", h.Departments.Update)
			departments.DELETE("/:id", h.Departments.Delete)

			students := staff.Group("/students")
			students.GET("", h.Students.List)
			students.GET("/export", h.Students.Export)
			students.POST("", h.Students.Create)
			students.GET("/:id", h.Students.Get)
			students.PUT("/:id", h.Students.Update)
			students.DELETE("/:id", h.Students.Delete)

			notifications := staff.Group("/notifications")
			notifications.GET("", h.Notifications.List)
			notifications.POST("/:id/read", h.Notifications.MarkRead)
		}
	}

	return r
}
