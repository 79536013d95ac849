package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

// LessonService manages course lessons.
type LessonService interface {
	ListByCourse(ctx context.Context, actor Actor, courseID uint) ([]dto.LessonResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.LessonResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.LessonCreateRequest, file *multipart.FileHeader) (dto.LessonResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.LessonUpdateRequest, file *multipart.FileHeader) (dto.LessonResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type lessonService struct {
	repo      repository.LessonRepository
	access    AccessPolicy
	uploads   UploadService
	validator *validator.Validate
	policy    *bluemonday.Policy
	logger    zerolog.Logger
}

// NewLessonService constructs the lesson service.
func NewLessonService(repo repository.LessonRepository, access AccessPolicy, uploads UploadService, validate *validator.Validate, logger zerolog.Logger) LessonService {
	return &lessonService{
		repo:      repo,
		access:    access,
		uploads:   uploads,
		validator: validate,
		policy:    bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "lesson_service").Logger(),
	}
}

func (s *lessonService) ListByCourse(ctx context.Context, actor Actor, courseID uint) ([]dto.LessonResponse, error) {
	if err := s.access.Require(ctx, actor, ActionView, ResourceCourse, courseID); err != nil {
		return nil, err
	}
	lessons, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return dto.NewLessonResponseSlice(lessons), nil
}

func (s *lessonService) Get(ctx context.Context, actor Actor, id uint) (dto.LessonResponse, error) {
	if err := s.access.Require(ctx, actor, ActionView, ResourceLesson, id); err != nil {
		return dto.LessonResponse{}, err
	}
	lesson, err := s.load(ctx, id)
	if err != nil {
		return dto.LessonResponse{}, err
	}
	return dto.NewLessonResponse(lesson), nil
}

func (s *lessonService) Create(ctx context.Context, actor Actor, payload dto.LessonCreateRequest, file *multipart.FileHeader) (dto.LessonResponse, error) {
	payload.Title = strings.TrimSpace(payload.Title)
	if err := s.validator.Struct(payload); err != nil {
		return dto.LessonResponse{}, err
	}
	if err := s.access.Require(ctx, actor, ActionManage, ResourceCourse, payload.CourseID); err != nil {
		return dto.LessonResponse{}, err
	}

	lesson := models.Lesson{
		CourseID:  payload.CourseID,
		Title:     payload.Title,
		Content:   s.policy.Sanitize(payload.Content),
		CreatedBy: actor.ID,
	}
	if file != nil {
		record, err := s.uploads.Store(ctx, file, actor.ID, models.UploadLessonAttachment)
		if err != nil {
			return dto.LessonResponse{}, err
		}
		lesson.AttachmentURL = record.URL
	}

	if err := s.repo.Create(ctx, &lesson); err != nil {
		return dto.LessonResponse{}, err
	}

	s.logger.Info().Uint("lesson_id", lesson.ID).Uint("course_id", lesson.CourseID).Msg("lesson created")
	return dto.NewLessonResponse(lesson), nil
}

func (s *lessonService) Update(ctx context.Context, actor Actor, id uint, payload dto.LessonUpdateRequest, file *multipart.FileHeader) (dto.LessonResponse, error) {
	payload.Title = trimmedPtr(payload.Title)
	if err := s.validator.Struct(payload); err != nil {
		return dto.LessonResponse{}, err
	}
	if err := s.access.Require(ctx, actor, ActionManage, ResourceLesson, id); err != nil {
		return dto.LessonResponse{}, err
	}

	lesson, err := s.load(ctx, id)
	if err != nil {
		return dto.LessonResponse{}, err
	}
	if payload.Title != nil {
		lesson.Title = *payload.Title
	}
	if payload.Content != nil {
		lesson.Content = s.policy.Sanitize(*payload.Content)
	}
	if file != nil {
		record, err := s.uploads.Store(ctx, file, actor.ID, models.UploadLessonAttachment)
		if err != nil {
			return dto.LessonResponse{}, err
		}
		lesson.AttachmentURL = record.URL
	}

	if err := s.repo.Update(ctx, &lesson); err != nil {
		return dto.LessonResponse{}, err
	}
	return dto.NewLessonResponse(lesson), nil
}

func (s *lessonService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := s.access.Require(ctx, actor, ActionManage, ResourceLesson, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLessonNotFound
		}
		return err
	}
	s.logger.Info().Uint("lesson_id", id).Msg("lesson deleted")
	return nil
}

func (s *lessonService) load(ctx context.Context, id uint) (models.Lesson, error) {
	lesson, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Lesson{}, ErrLessonNotFound
		}
		return models.Lesson{}, err
	}
	return lesson, nil
}
