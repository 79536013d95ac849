package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/observability"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

// CourseService manages course openings and their initial timetable.
type CourseService interface {
	List(ctx context.Context, filter dto.CourseFilter) ([]dto.CourseResponse, error)
	Get(ctx context.Context, id uint) (dto.CourseResponse, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]dto.CourseResponse, error)
	ListEnrolled(ctx context.Context, studentID uint) ([]dto.CourseResponse, error)
	Create(ctx context.Context, payload dto.CourseCreateRequest) (dto.CourseResponse, error)
	Update(ctx context.Context, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error)
	Delete(ctx context.Context, id uint) error
}

type courseService struct {
	repo      repository.CourseRepository
	subjects  repository.SubjectRepository
	users     repository.UserRepository
	cache     *CourseCache
	validator *validator.Validate
	policy    *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewCourseService constructs the course service.
func NewCourseService(repo repository.CourseRepository, subjects repository.SubjectRepository, users repository.UserRepository, cache *CourseCache, validate *validator.Validate, logger zerolog.Logger) CourseService {
	return &courseService{
		repo:      repo,
		subjects:  subjects,
		users:     users,
		cache:     cache,
		validator: validate,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "course_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/course-registration-api/internal/service/course"),
	}
}

func (s *courseService) List(ctx context.Context, filter dto.CourseFilter) ([]dto.CourseResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	courses, err := s.repo.List(ctx, repository.CourseFilter{
		Year:      filter.Year,
		Semester:  filter.Semester,
		SubjectID: filter.SubjectID,
		TeacherID: filter.TeacherID,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewCourseResponseSlice(courses), nil
}

func (s *courseService) Get(ctx context.Context, id uint) (dto.CourseResponse, error) {
	if cached, ok := s.cache.Get(ctx, id); ok {
		return cached, nil
	}

	course, err := s.load(ctx, id)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	response := dto.NewCourseResponse(course)
	s.cache.Set(ctx, response)
	return response, nil
}

func (s *courseService) ListByTeacher(ctx context.Context, teacherID uint) ([]dto.CourseResponse, error) {
	courses, err := s.repo.List(ctx, repository.CourseFilter{TeacherID: &teacherID})
	if err != nil {
		return nil, err
	}
	return dto.NewCourseResponseSlice(courses), nil
}

func (s *courseService) ListEnrolled(ctx context.Context, studentID uint) ([]dto.CourseResponse, error) {
	courses, err := s.repo.ListEnrolled(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return dto.NewCourseResponseSlice(courses), nil
}

func (s *courseService) Create(ctx context.Context, payload dto.CourseCreateRequest) (dto.CourseResponse, error) {
	ctx, span := s.tracer.Start(ctx, "course.create")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.CourseResponse{}, err
	}
	span.SetAttributes(
		attribute.Int("course.teacher_id", int(payload.TeacherID)),
		attribute.Int("course.slots", len(payload.Schedules)),
	)

	if err := s.ensureSubject(ctx, payload.SubjectID); err != nil {
		return dto.CourseResponse{}, err
	}
	if err := s.ensureTeacher(ctx, payload.TeacherID); err != nil {
		return dto.CourseResponse{}, err
	}

	schedules := make([]models.CourseSchedule, 0, len(payload.Schedules))
	for _, input := range payload.Schedules {
		slot, err := s.parseSlot(input)
		if err != nil {
			return dto.CourseResponse{}, err
		}
		schedules = append(schedules, slot)
	}

	course := models.Course{
		SubjectID:   payload.SubjectID,
		TeacherID:   payload.TeacherID,
		Semester:    payload.Semester,
		Year:        payload.Year,
		Price:       payload.Price,
		PeriodCount: payload.PeriodCount,
		Schedules:   schedules,
	}

	if err := s.repo.Create(ctx, &course, teacherLoadValidator(schedules)); err != nil {
		if errors.Is(err, ErrScheduleConflict) {
			span.SetStatus(codes.Error, "schedule conflict")
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, "create failed")
		}
		return dto.CourseResponse{}, err
	}

	span.SetAttributes(attribute.Int("course.id", int(course.ID)))
	span.SetStatus(codes.Ok, "created")
	s.logger.Info().Uint("course_id", course.ID).Uint("teacher_id", course.TeacherID).Int("slots", len(schedules)).Msg("course created")

	return s.Get(ctx, course.ID)
}

func (s *courseService) Update(ctx context.Context, id uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := s.load(ctx, id)
	if err != nil {
		return dto.CourseResponse{}, err
	}

	if payload.SubjectID != nil && *payload.SubjectID != course.SubjectID {
		if err := s.ensureSubject(ctx, *payload.SubjectID); err != nil {
			return dto.CourseResponse{}, err
		}
		course.SubjectID = *payload.SubjectID
	}

	var validate repository.ScheduleValidator
	if payload.TeacherID != nil && *payload.TeacherID != course.TeacherID {
		if err := s.ensureTeacher(ctx, *payload.TeacherID); err != nil {
			return dto.CourseResponse{}, err
		}
		course.TeacherID = *payload.TeacherID
		validate = teacherLoadValidator(course.Schedules)
	}
	if payload.Semester != nil {
		course.Semester = *payload.Semester
	}
	if payload.Year != nil {
		course.Year = *payload.Year
	}
	if payload.Price != nil {
		course.Price = *payload.Price
	}
	if payload.PeriodCount != nil {
		course.PeriodCount = *payload.PeriodCount
	}

	if err := s.repo.Update(ctx, &course, validate); err != nil {
		return dto.CourseResponse{}, err
	}
	s.cache.Invalidate(ctx, id)

	return s.Get(ctx, id)
}

func (s *courseService) Delete(ctx context.Context, id uint) error {
	err := s.repo.Delete(ctx, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrCourseNotFound
	case errors.Is(err, repository.ErrInUse):
		return ErrCourseInUse
	case err != nil:
		return err
	}

	s.cache.Invalidate(ctx, id)
	s.logger.Info().Uint("course_id", id).Msg("course deleted")
	return nil
}

func (s *courseService) load(ctx context.Context, id uint) (models.Course, error) {
	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}
	return course, nil
}

func (s *courseService) ensureSubject(ctx context.Context, id uint) error {
	if _, err := s.subjects.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubjectNotFound
		}
		return err
	}
	return nil
}

func (s *courseService) ensureTeacher(ctx context.Context, id uint) error {
	teacher, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: teacher %d does not exist", ErrInvalidInput, id)
		}
		return err
	}
	if teacher.RoleID != models.RoleTeacher {
		return fmt.Errorf("%w: user %d is not a teacher", ErrInvalidInput, id)
	}
	return nil
}

func (s *courseService) parseSlot(input dto.ScheduleInput) (models.CourseSchedule, error) {
	slot, err := dto.ParseScheduleInput(input)
	if err != nil {
		return models.CourseSchedule{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !slot.Range().Valid() {
		return models.CourseSchedule{}, fmt.Errorf("%w: start time must be before end time", ErrInvalidInput)
	}
	slot.Room = s.policy.Sanitize(slot.Room)
	slot.Note = s.policy.Sanitize(slot.Note)
	return slot, nil
}

// teacherLoadValidator rejects candidates that overlap each other or any slot
// the teacher already holds.
func teacherLoadValidator(candidates []models.CourseSchedule) repository.ScheduleValidator {
	return func(existing []models.CourseSchedule) error {
		conflict, found := models.FindScheduleConflict(candidates, existing)
		if !found {
			return nil
		}
		observability.ScheduleConflicts().WithLabelValues("teacher").Inc()
		return fmt.Errorf("%w: %s overlaps %s", ErrScheduleConflict, describeSlot(conflict.Candidate), describeSlot(conflict.Existing))
	}
}

func describeSlot(slot models.CourseSchedule) string {
	label := fmt.Sprintf("%s %s-%s", slot.Day().Format(dto.DateLayout), dto.FormatClock(slot.StartTime), dto.FormatClock(slot.EndTime))
	if slot.CourseID != 0 {
		label += fmt.Sprintf(" (course %d)", slot.CourseID)
	}
	return label
}

