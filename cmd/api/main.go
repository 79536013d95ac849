package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-registration-api/internal/config"
	"github.com/noah-isme/course-registration-api/internal/database"
	"github.com/noah-isme/course-registration-api/internal/events"
	"github.com/noah-isme/course-registration-api/internal/handler"
	"github.com/noah-isme/course-registration-api/internal/middleware"
	"github.com/noah-isme/course-registration-api/internal/observability"
	"github.com/noah-isme/course-registration-api/internal/repository"
	"github.com/noah-isme/course-registration-api/internal/router"
	"github.com/noah-isme/course-registration-api/internal/service"
	cloud "github.com/noah-isme/course-registration-api/pkg/cloudinary"
	"github.com/noah-isme/course-registration-api/pkg/mailer"
	"github.com/noah-isme/course-registration-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}
	observability.RegisterMetrics()

	ctx := context.Background()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, cfg.AppEnv == "development")
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("%v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, course cache and otp cooldown disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, registration events disabled")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}
	publisher := events.NewNATSPublisher(natsConn, cfg.NATSSubject, logger)

	fileStorage, err := newFileStorage(cfg, logger)
	if err != nil {
		log.Fatalf("failed to configure file storage: %v", err)
	}

	otpMailer := newMailer(cfg, logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	scheduleRepo := repository.NewCourseScheduleRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	accessRepo := repository.NewAccessRepository(db)

	courseCache := service.NewCourseCache(redisClient, cfg.CourseCacheTTL, logger)
	accessPolicy := service.NewAccessPolicy(accessRepo)
	uploadService := service.NewUploadService(fileStorage, uploadRepo, cfg.UploadMaxMB, logger)

	roleService := service.NewRoleService(roleRepo, logger)
	if err := roleService.Seed(ctx); err != nil {
		log.Fatalf("failed to seed roles: %v", err)
	}

	authService := service.NewAuthService(userRepo, otpRepo, otpMailer, redisClient, validate, service.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.TokenTTL,
		OTPTTL:         cfg.OTPTTL,
		ResendCooldown: cfg.OTPCooldown,
	}, logger)
	userService := service.NewUserService(userRepo, uploadService, courseCache, validate, logger)
	subjectService := service.NewSubjectService(subjectRepo, courseCache, validate, logger)
	courseService := service.NewCourseService(courseRepo, subjectRepo, userRepo, courseCache, validate, logger)
	scheduleService := service.NewScheduleService(scheduleRepo, courseRepo, courseCache, validate, logger)
	registrationService := service.NewRegistrationService(registrationRepo, courseRepo, userRepo, accessPolicy, publisher, validate, logger)
	lessonService := service.NewLessonService(lessonRepo, accessPolicy, uploadService, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, accessPolicy, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, accessPolicy, uploadService, validate, logger)

	if cfg.SweepAssignmentsOnStart {
		if count, err := assignmentService.ExpireOverdue(ctx); err != nil {
			logger.Error().Err(err).Msg("assignment expiry sweep failed")
		} else {
			logger.Info().Int64("expired", count).Msg("assignment expiry sweep finished")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		RoleHandler:         handler.NewRoleHandler(roleService, logger),
		SubjectHandler:      handler.NewSubjectHandler(subjectService, logger),
		CourseHandler:       handler.NewCourseHandler(courseService, registrationService, logger),
		ScheduleHandler:     handler.NewScheduleHandler(scheduleService, logger),
		RegistrationHandler: handler.NewRegistrationHandler(registrationService, logger),
		ClassMemberHandler:  handler.NewClassMemberHandler(registrationService, logger),
		LessonHandler:       handler.NewLessonHandler(lessonService, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret, userRepo),
		AuthLimiter:         middleware.RateLimit("auth", cfg.AuthRateLimit, time.Minute),
		DB:                  db,
		Redis:               redisClient,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func newFileStorage(cfg config.Config, logger zerolog.Logger) (service.FileStorage, error) {
	if cfg.CloudinaryEnabled() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			return nil, err
		}
		return uploader, nil
	}

	local, err := storage.NewLocal(cfg.UploadDir, cfg.UploadPublicPath)
	if err != nil {
		return nil, err
	}
	return local, nil
}

func newMailer(cfg config.Config, logger zerolog.Logger) service.OTPMailer {
	if !cfg.SMTPEnabled() {
		return mailer.NewConsole(logger)
	}
	smtp, err := mailer.NewSMTP(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		AppName:  cfg.AppName,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("smtp misconfigured, falling back to console mailer")
		return mailer.NewConsole(logger)
	}
	return smtp
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
