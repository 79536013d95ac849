package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

// ScheduleService manages individual slots of an existing course.
type ScheduleService interface {
	ListByCourse(ctx context.Context, courseID uint) ([]dto.ScheduleResponse, error)
	Get(ctx context.Context, id uint) (dto.ScheduleResponse, error)
	Create(ctx context.Context, payload dto.ScheduleCreateRequest) (dto.ScheduleResponse, error)
	Update(ctx context.Context, id uint, payload dto.ScheduleUpdateRequest) (dto.ScheduleResponse, error)
	Delete(ctx context.Context, id uint) error
}

type scheduleService struct {
	repo      repository.CourseScheduleRepository
	courses   repository.CourseRepository
	cache     *CourseCache
	validator *validator.Validate
	policy    *bluemonday.Policy
	logger    zerolog.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(repo repository.CourseScheduleRepository, courses repository.CourseRepository, cache *CourseCache, validate *validator.Validate, logger zerolog.Logger) ScheduleService {
	return &scheduleService{
		repo:      repo,
		courses:   courses,
		cache:     cache,
		validator: validate,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "schedule_service").Logger(),
	}
}

func (s *scheduleService) ListByCourse(ctx context.Context, courseID uint) ([]dto.ScheduleResponse, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	schedules, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return dto.NewScheduleResponseSlice(schedules), nil
}

func (s *scheduleService) Get(ctx context.Context, id uint) (dto.ScheduleResponse, error) {
	schedule, err := s.load(ctx, id)
	if err != nil {
		return dto.ScheduleResponse{}, err
	}
	return dto.NewScheduleResponse(schedule), nil
}

func (s *scheduleService) Create(ctx context.Context, payload dto.ScheduleCreateRequest) (dto.ScheduleResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ScheduleResponse{}, err
	}

	slot, err := dto.ParseScheduleInput(payload.ScheduleInput)
	if err != nil {
		return dto.ScheduleResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !slot.Range().Valid() {
		return dto.ScheduleResponse{}, fmt.Errorf("%w: start time must be before end time", ErrInvalidInput)
	}
	slot.CourseID = payload.CourseID
	slot.Room = s.policy.Sanitize(slot.Room)
	slot.Note = s.policy.Sanitize(slot.Note)

	if err := s.repo.Create(ctx, &slot, teacherLoadValidator([]models.CourseSchedule{slot})); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScheduleResponse{}, ErrCourseNotFound
		}
		return dto.ScheduleResponse{}, err
	}

	s.cache.Invalidate(ctx, slot.CourseID)
	s.logger.Info().Uint("schedule_id", slot.ID).Uint("course_id", slot.CourseID).Msg("schedule created")
	return dto.NewScheduleResponse(slot), nil
}

func (s *scheduleService) Update(ctx context.Context, id uint, payload dto.ScheduleUpdateRequest) (dto.ScheduleResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ScheduleResponse{}, err
	}

	slot, err := s.load(ctx, id)
	if err != nil {
		return dto.ScheduleResponse{}, err
	}

	retimed := false
	if payload.Date != nil {
		input := dto.ScheduleInput{Date: *payload.Date, StartTime: dto.FormatClock(slot.StartTime), EndTime: dto.FormatClock(slot.EndTime)}
		parsed, err := dto.ParseScheduleInput(input)
		if err != nil {
			return dto.ScheduleResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		slot.Date = parsed.Date
		retimed = true
	}
	if payload.StartTime != nil {
		start, err := dto.ParseClock(*payload.StartTime)
		if err != nil {
			return dto.ScheduleResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		slot.StartTime = start
		retimed = true
	}
	if payload.EndTime != nil {
		end, err := dto.ParseClock(*payload.EndTime)
		if err != nil {
			return dto.ScheduleResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		slot.EndTime = end
		retimed = true
	}
	if !slot.Range().Valid() {
		return dto.ScheduleResponse{}, fmt.Errorf("%w: start time must be before end time", ErrInvalidInput)
	}
	if payload.Room != nil {
		slot.Room = s.policy.Sanitize(*payload.Room)
	}
	if payload.Note != nil {
		slot.Note = s.policy.Sanitize(*payload.Note)
	}

	var validate repository.ScheduleValidator
	if retimed {
		validate = teacherLoadValidator([]models.CourseSchedule{slot})
	}
	if err := s.repo.Update(ctx, &slot, validate); err != nil {
		return dto.ScheduleResponse{}, err
	}

	s.cache.Invalidate(ctx, slot.CourseID)
	return dto.NewScheduleResponse(slot), nil
}

func (s *scheduleService) Delete(ctx context.Context, id uint) error {
	slot, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	err = s.repo.Delete(ctx, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrScheduleNotFound
	case errors.Is(err, repository.ErrInUse):
		return ErrLastSchedule
	case err != nil:
		return err
	}

	s.cache.Invalidate(ctx, slot.CourseID)
	return nil
}

func (s *scheduleService) load(ctx context.Context, id uint) (models.CourseSchedule, error) {
	schedule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseSchedule{}, ErrScheduleNotFound
		}
		return models.CourseSchedule{}, err
	}
	return schedule, nil
}
