package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

// SubjectService manages the subject catalogue.
type SubjectService interface {
	List(ctx context.Context, search string) ([]dto.SubjectResponse, error)
	Get(ctx context.Context, id uint) (dto.SubjectResponse, error)
	Create(ctx context.Context, payload dto.SubjectCreateRequest) (dto.SubjectResponse, error)
	Update(ctx context.Context, id uint, payload dto.SubjectUpdateRequest) (dto.SubjectResponse, error)
	Delete(ctx context.Context, id uint) error
}

type subjectService struct {
	repo      repository.SubjectRepository
	cache     *CourseCache
	validator *validator.Validate
	policy    *bluemonday.Policy
	logger    zerolog.Logger
}

// NewSubjectService constructs the subject service.
func NewSubjectService(repo repository.SubjectRepository, cache *CourseCache, validate *validator.Validate, logger zerolog.Logger) SubjectService {
	return &subjectService{
		repo:      repo,
		cache:     cache,
		validator: validate,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "subject_service").Logger(),
	}
}

func (s *subjectService) List(ctx context.Context, search string) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, err
	}
	return dto.NewSubjectResponseSlice(subjects), nil
}

func (s *subjectService) Get(ctx context.Context, id uint) (dto.SubjectResponse, error) {
	subject, err := s.load(ctx, id)
	if err != nil {
		return dto.SubjectResponse{}, err
	}
	return dto.NewSubjectResponse(subject), nil
}

func (s *subjectService) Create(ctx context.Context, payload dto.SubjectCreateRequest) (dto.SubjectResponse, error) {
	payload.Code = normalizeSubjectCode(payload.Code)
	payload.Name = strings.TrimSpace(payload.Name)
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubjectResponse{}, err
	}

	if err := s.ensureCodeFree(ctx, payload.Code, 0); err != nil {
		return dto.SubjectResponse{}, err
	}

	subject := models.Subject{
		Code:        payload.Code,
		Name:        payload.Name,
		Credits:     payload.Credits,
		Description: s.policy.Sanitize(payload.Description),
	}
	if err := s.repo.Create(ctx, &subject); err != nil {
		return dto.SubjectResponse{}, err
	}

	s.logger.Info().Uint("subject_id", subject.ID).Str("code", subject.Code).Msg("subject created")
	return dto.NewSubjectResponse(subject), nil
}

func (s *subjectService) Update(ctx context.Context, id uint, payload dto.SubjectUpdateRequest) (dto.SubjectResponse, error) {
	if payload.Code != nil {
		code := normalizeSubjectCode(*payload.Code)
		payload.Code = &code
	}
	payload.Name = trimmedPtr(payload.Name)
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubjectResponse{}, err
	}

	subject, err := s.load(ctx, id)
	if err != nil {
		return dto.SubjectResponse{}, err
	}

	if payload.Code != nil {
		if err := s.ensureCodeFree(ctx, *payload.Code, subject.ID); err != nil {
			return dto.SubjectResponse{}, err
		}
		subject.Code = *payload.Code
	}
	if payload.Name != nil {
		subject.Name = *payload.Name
	}
	if payload.Credits != nil {
		subject.Credits = *payload.Credits
	}
	if payload.Description != nil {
		subject.Description = s.policy.Sanitize(*payload.Description)
	}

	if err := s.repo.Update(ctx, &subject); err != nil {
		return dto.SubjectResponse{}, err
	}
	s.cache.InvalidateSubject(ctx, subject.ID)
	return dto.NewSubjectResponse(subject), nil
}

func (s *subjectService) Delete(ctx context.Context, id uint) error {
	err := s.repo.Delete(ctx, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrSubjectNotFound
	case errors.Is(err, repository.ErrInUse):
		return ErrSubjectInUse
	default:
		return err
	}
}

func (s *subjectService) load(ctx context.Context, id uint) (models.Subject, error) {
	subject, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Subject{}, ErrSubjectNotFound
		}
		return models.Subject{}, err
	}
	return subject, nil
}

func (s *subjectService) ensureCodeFree(ctx context.Context, code string, excludeID uint) error {
	taken, err := s.repo.CodeTaken(ctx, code, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrSubjectCodeTaken
	}
	return nil
}

func normalizeSubjectCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
