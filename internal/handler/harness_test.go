package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/config"
	"github.com/noah-isme/course-registration-api/internal/events"
	"github.com/noah-isme/course-registration-api/internal/handler"
	"github.com/noah-isme/course-registration-api/internal/middleware"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
	"github.com/noah-isme/course-registration-api/internal/router"
	"github.com/noah-isme/course-registration-api/internal/service"
	"github.com/noah-isme/course-registration-api/internal/utils"
)

type memoryStorage struct{}

func (memoryStorage) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://files.test/" + name, nil
}

type apiHarness struct {
	app     *fiber.App
	db      *gorm.DB
	admin   models.User
	teacher models.User
	student models.User
	subject models.Subject
}

// identify authenticates requests from the X-Test-User header using the stored role.
func identify(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Get("X-Test-User"), 10, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "missing token")
		}
		var user models.User
		if err := db.First(&user, id).Error; err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "unknown user")
		}
		middleware.SetIdentity(c, user.ID, user.RoleID)
		return c.Next()
	}
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	policy := service.NewAccessPolicy(repository.NewAccessRepository(db))
	uploads := service.NewUploadService(memoryStorage{}, repository.NewUploadRepository(db), 5, logger)
	cache := service.NewCourseCache(nil, 0, logger)

	courses := service.NewCourseService(courseRepo, subjectRepo, userRepo, cache, validate, logger)
	registrations := service.NewRegistrationService(registrationRepo, courseRepo, userRepo, policy, events.Nop{}, validate, logger)
	lessons := service.NewLessonService(repository.NewLessonRepository(db), policy, uploads, validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		UserHandler:         handler.NewUserHandler(service.NewUserService(userRepo, uploads, cache, validate, logger), logger),
		SubjectHandler:      handler.NewSubjectHandler(service.NewSubjectService(subjectRepo, cache, validate, logger), logger),
		CourseHandler:       handler.NewCourseHandler(courses, registrations, logger),
		RegistrationHandler: handler.NewRegistrationHandler(registrations, logger),
		ClassMemberHandler:  handler.NewClassMemberHandler(registrations, logger),
		LessonHandler:       handler.NewLessonHandler(lessons, logger),
		JWTMiddleware:       identify(db),
		DB:                  db,
	})

	h := &apiHarness{app: app, db: db}
	h.admin = h.user(t, "admin@example.com", models.RoleAdmin)
	h.teacher = h.user(t, "teacher@example.com", models.RoleTeacher)
	h.student = h.user(t, "student@example.com", models.RoleStudent)
	h.subject = models.Subject{Code: "CS201", Name: "Data Structures", Credits: 3}
	require.NoError(t, db.Create(&h.subject).Error)
	return h
}

func (h *apiHarness) user(t *testing.T, email string, role models.Role) models.User {
	t.Helper()
	user := models.User{Name: strings.Split(email, "@")[0], Email: email, PasswordHash: "x", RoleID: role}
	require.NoError(t, h.db.Create(&user).Error)
	return user
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *apiHarness) do(t *testing.T, as *models.User, method, path string, body interface{}) (int, apiEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if as != nil {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(as.ID), 10))
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope apiEnvelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &envelope), string(raw))
	}
	return resp.StatusCode, envelope
}

func (h *apiHarness) createCourse(t *testing.T, teacherID uint, price float64, date, start, end string) (int, apiEnvelope) {
	t.Helper()
	return h.do(t, &h.admin, http.MethodPost, "/api/course", map[string]interface{}{
		"subject_id":   h.subject.ID,
		"teacher_id":   teacherID,
		"semester":     1,
		"year":         2025,
		"price":        price,
		"period_count": 30,
		"schedules": []map[string]string{
			{"date": date, "start_time": start, "end_time": end, "room": "A1"},
		},
	})
}

func decodeID(t *testing.T, data json.RawMessage) uint {
	t.Helper()
	var payload struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	require.NotZero(t, payload.ID)
	return payload.ID
}
