package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/observability"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	ListByLesson(ctx context.Context, actor Actor, lessonID uint) ([]dto.AssignmentResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	ExpireOverdue(ctx context.Context) (int64, error)
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	access    AccessPolicy
	validator *validator.Validate
	policy    *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(repo repository.AssignmentRepository, access AccessPolicy, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:      repo,
		access:    access,
		validator: validate,
		policy:    bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "assignment_service").Logger(),
		now:       time.Now,
	}
}

func (s *assignmentService) ListByLesson(ctx context.Context, actor Actor, lessonID uint) ([]dto.AssignmentResponse, error) {
	if err := s.access.Require(ctx, actor, ActionView, ResourceLesson, lessonID); err != nil {
		return nil, err
	}
	assignments, err := s.repo.ListByLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return dto.NewAssignmentResponseSlice(assignments, s.now()), nil
}

func (s *assignmentService) Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error) {
	if err := s.access.Require(ctx, actor, ActionView, ResourceAssignment, id); err != nil {
		return dto.AssignmentResponse{}, err
	}
	assignment, err := s.load(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	return dto.NewAssignmentResponse(assignment, s.now()), nil
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	payload.Title = strings.TrimSpace(payload.Title)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := s.access.Require(ctx, actor, ActionManage, ResourceLesson, payload.LessonID); err != nil {
		return dto.AssignmentResponse{}, err
	}

	start, end, err := parseDueWindow(payload.DueDateStart, payload.DueDateEnd)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	now := s.now()
	if !end.After(now) {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: due date must be in the future", ErrInvalidInput)
	}

	assignment := models.Assignment{
		LessonID:     payload.LessonID,
		Title:        payload.Title,
		Description:  s.policy.Sanitize(payload.Description),
		DueDateStart: start,
		DueDateEnd:   end,
		Status:       models.AssignmentOpen,
		CreatedBy:    actor.ID,
	}
	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("lesson_id", assignment.LessonID).Msg("assignment created")
	return dto.NewAssignmentResponse(assignment, now), nil
}

func (s *assignmentService) Update(ctx context.Context, actor Actor, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	payload.Title = trimmedPtr(payload.Title)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := s.access.Require(ctx, actor, ActionManage, ResourceAssignment, id); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.load(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.Description != nil {
		assignment.Description = s.policy.Sanitize(*payload.Description)
	}
	if payload.DueDateStart != nil {
		parsed, err := dto.ParseISOTime(*payload.DueDateStart)
		if err != nil {
			return dto.AssignmentResponse{}, fmt.Errorf("%w: invalid due_date_start", ErrInvalidInput)
		}
		assignment.DueDateStart = parsed
	}
	if payload.DueDateEnd != nil {
		parsed, err := dto.ParseISOTime(*payload.DueDateEnd)
		if err != nil {
			return dto.AssignmentResponse{}, fmt.Errorf("%w: invalid due_date_end", ErrInvalidInput)
		}
		assignment.DueDateEnd = parsed
	}
	if !assignment.DueDateEnd.After(assignment.DueDateStart) {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: due_date_end must be after due_date_start", ErrInvalidInput)
	}

	now := s.now()
	// Extending the deadline reopens an expired assignment.
	assignment.Status = models.AssignmentOpen
	if assignment.IsPastDue(now) {
		assignment.Status = models.AssignmentExpired
	}

	if err := s.repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}
	return dto.NewAssignmentResponse(assignment, now), nil
}

func (s *assignmentService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := s.access.Require(ctx, actor, ActionManage, ResourceAssignment, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}
	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	return nil
}

func (s *assignmentService) ExpireOverdue(ctx context.Context) (int64, error) {
	count, err := s.repo.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		observability.AssignmentsExpired().Add(float64(count))
		s.logger.Info().Int64("count", count).Msg("overdue assignments expired")
	}
	return count, nil
}

func (s *assignmentService) load(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

func parseDueWindow(startValue, endValue string) (time.Time, time.Time, error) {
	start, err := dto.ParseISOTime(startValue)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid due_date_start", ErrInvalidInput)
	}
	end, err := dto.ParseISOTime(endValue)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid due_date_end", ErrInvalidInput)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: due_date_end must be after due_date_start", ErrInvalidInput)
	}
	return start, end, nil
}
