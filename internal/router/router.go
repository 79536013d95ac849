package router

import (
	"reflect"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/config"
	"github.com/noah-isme/course-registration-api/internal/handler"
	"github.com/noah-isme/course-registration-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	RoleHandler         *handler.RoleHandler
	SubjectHandler      *handler.SubjectHandler
	CourseHandler       *handler.CourseHandler
	ScheduleHandler     *handler.ScheduleHandler
	RegistrationHandler *handler.RegistrationHandler
	ClassMemberHandler  *handler.ClassMemberHandler
	LessonHandler       *handler.LessonHandler
	AssignmentHandler   *handler.AssignmentHandler
	SubmissionHandler   *handler.SubmissionHandler
	JWTMiddleware       fiber.Handler
	AuthLimiter         fiber.Handler
	DB                  *gorm.DB
	Redis               *redis.Client
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())
	if cfg.UploadDir != "" && cfg.UploadPublicPath != "" {
		app.Static(cfg.UploadPublicPath, cfg.UploadDir)
	}

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB, deps.Redis))

	// Use provided middlewares, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = passThrough
	}
	authLimiter := deps.AuthLimiter
	if authLimiter == nil {
		authLimiter = passThrough
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), authLimiter, jwtMiddleware)
	}

	protected := []struct {
		prefix  string
		handler routeRegistrar
	}{
		{"/users", deps.UserHandler},
		{"/roles", deps.RoleHandler},
		{"/subjects", deps.SubjectHandler},
		{"/course", deps.CourseHandler},
		{"/courseschedules", deps.ScheduleHandler},
		{"/registercourse", deps.RegistrationHandler},
		{"/classmember", deps.ClassMemberHandler},
		{"/lesson", deps.LessonHandler},
		{"/assignment", deps.AssignmentHandler},
		{"/submission", deps.SubmissionHandler},
	}

	for _, route := range protected {
		if isNil(route.handler) {
			continue
		}
		route.handler.Register(api.Group(route.prefix, jwtMiddleware))
	}
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}

type routeRegistrar interface {
	Register(fiber.Router)
}

// isNil reports whether a registrar holds a nil handler pointer.
func isNil(r routeRegistrar) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
