package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-registration-api/internal/middleware"
	"github.com/noah-isme/course-registration-api/internal/service"
	"github.com/noah-isme/course-registration-api/internal/utils"
)

func actorFromContext(c *fiber.Ctx) service.Actor {
	id, _ := middleware.CurrentUserID(c)
	role, _ := middleware.CurrentRole(c)
	return service.Actor{ID: id, Role: role}
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func optionalFile(c *fiber.Ctx, field string) *multipart.FileHeader {
	file, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return file
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

type errorMapping struct {
	target  error
	status  int
	message string
}

var errorMappings = []errorMapping{
	{service.ErrForbidden, fiber.StatusForbidden, "forbidden"},
	{service.ErrInvalidCredentials, fiber.StatusUnauthorized, "invalid email or password"},
	{service.ErrUserNotFound, fiber.StatusNotFound, "user not found"},
	{service.ErrRoleNotFound, fiber.StatusNotFound, "role not found"},
	{service.ErrSubjectNotFound, fiber.StatusNotFound, "subject not found"},
	{service.ErrCourseNotFound, fiber.StatusNotFound, "course not found"},
	{service.ErrScheduleNotFound, fiber.StatusNotFound, "schedule not found"},
	{service.ErrRegistrationNotFound, fiber.StatusNotFound, "registration not found"},
	{service.ErrLessonNotFound, fiber.StatusNotFound, "lesson not found"},
	{service.ErrAssignmentNotFound, fiber.StatusNotFound, "assignment not found"},
	{service.ErrSubmissionNotFound, fiber.StatusNotFound, "submission not found"},
	{service.ErrEmailTaken, fiber.StatusConflict, "email already registered"},
	{service.ErrSubjectInUse, fiber.StatusConflict, "subject is used by a course"},
	{service.ErrSubjectCodeTaken, fiber.StatusConflict, "subject code already exists"},
	{service.ErrCourseInUse, fiber.StatusConflict, "course has members or lessons"},
	{service.ErrRegistrationExists, fiber.StatusConflict, "a pending registration already exists for this term"},
	{service.ErrAlreadySubmitted, fiber.StatusConflict, "assignment already submitted"},
	{service.ErrScheduleConflict, fiber.StatusConflict, ""},
	{service.ErrOTPCooldown, fiber.StatusTooManyRequests, "please wait before requesting another code"},
	{service.ErrOTPInvalid, fiber.StatusBadRequest, "invalid or expired code"},
	{service.ErrLastSchedule, fiber.StatusBadRequest, "a course must keep at least one schedule"},
	{service.ErrSubmissionClosed, fiber.StatusBadRequest, "assignment is past its due date"},
	{service.ErrSubmissionEmpty, fiber.StatusBadRequest, "submission needs content or a file"},
	{service.ErrInvalidInput, fiber.StatusBadRequest, ""},
	{service.ErrUploadMissing, fiber.StatusBadRequest, "file is required"},
	{service.ErrUploadTooLarge, fiber.StatusRequestEntityTooLarge, "file too large"},
	{service.ErrUploadTypeNotAllowed, fiber.StatusUnsupportedMediaType, "file type not allowed"},
	{service.ErrUploadScanFailed, fiber.StatusBadRequest, "file failed security scan"},
}

// respondError maps a service error to its HTTP response. Unknown errors are
// logged and reported as 500.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "validation failed", validationDetails(validationErrors))
	}

	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.target) {
			message := mapping.message
			if message == "" {
				message = err.Error()
			}
			return utils.SendError(c, mapping.status, message)
		}
	}

	requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
