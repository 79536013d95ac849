package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

// SubmissionService manages student answers and grading.
type SubmissionService interface {
	List(ctx context.Context, actor Actor, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error)
	Submit(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.SubmissionUpdateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, actor Actor, id uint, payload dto.SubmissionGradeRequest) (dto.SubmissionResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type submissionService struct {
	repo        repository.SubmissionRepository
	assignments repository.AssignmentRepository
	access      AccessPolicy
	uploads     UploadService
	validator   *validator.Validate
	policy      *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(repo repository.SubmissionRepository, assignments repository.AssignmentRepository, access AccessPolicy, uploads UploadService, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		repo:        repo,
		assignments: assignments,
		access:      access,
		uploads:     uploads,
		validator:   validate,
		policy:      bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) List(ctx context.Context, actor Actor, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	repoFilter := repository.SubmissionFilter{AssignmentID: filter.AssignmentID, StudentID: filter.StudentID, Graded: filter.Graded}

	switch {
	case actor.IsAdmin():
	case filter.AssignmentID != nil:
		canManage, err := s.access.Can(ctx, actor, ActionManage, ResourceAssignment, *filter.AssignmentID)
		if err != nil {
			return nil, err
		}
		if !canManage {
			repoFilter.StudentID = &actor.ID
		}
	case actor.Role == models.RoleStudent:
		repoFilter.StudentID = &actor.ID
	case actor.Role == models.RoleTeacher:
		repoFilter.TeacherID = &actor.ID
	default:
		return nil, ErrForbidden
	}

	submissions, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error) {
	if err := s.access.Require(ctx, actor, ActionView, ResourceSubmission, id); err != nil {
		return dto.SubmissionResponse{}, err
	}
	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Submit(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if actor.Role != models.RoleStudent {
		return dto.SubmissionResponse{}, ErrForbidden
	}
	if err := s.access.Require(ctx, actor, ActionView, ResourceAssignment, payload.AssignmentID); err != nil {
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	now := s.now()
	if assignment.EffectiveStatus(now) == models.AssignmentExpired {
		return dto.SubmissionResponse{}, ErrSubmissionClosed
	}

	if _, err := s.repo.GetByAssignmentAndStudent(ctx, assignment.ID, actor.ID); err == nil {
		return dto.SubmissionResponse{}, ErrAlreadySubmitted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, err
	}

	content := strings.TrimSpace(s.policy.Sanitize(payload.Content))
	if content == "" && file == nil {
		return dto.SubmissionResponse{}, ErrSubmissionEmpty
	}

	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    actor.ID,
		Content:      content,
		SubmittedAt:  now,
	}
	if file != nil {
		record, err := s.uploads.Store(ctx, file, actor.ID, models.UploadSubmissionFile)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		submission.FileURL = record.URL
	}

	if err := s.repo.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submission.ID).Uint("assignment_id", assignment.ID).Uint("student_id", actor.ID).Msg("submission created")
	return s.Get(ctx, actor, submission.ID)
}

func (s *submissionService) Update(ctx context.Context, actor Actor, id uint, payload dto.SubmissionUpdateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.editable(ctx, actor, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if payload.Content != nil {
		submission.Content = strings.TrimSpace(s.policy.Sanitize(*payload.Content))
	}
	if file != nil {
		record, err := s.uploads.Store(ctx, file, actor.ID, models.UploadSubmissionFile)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		submission.FileURL = record.URL
	}
	if submission.Content == "" && submission.FileURL == "" {
		return dto.SubmissionResponse{}, ErrSubmissionEmpty
	}

	if err := s.repo.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}
	return s.reload(ctx, id)
}

func (s *submissionService) Grade(ctx context.Context, actor Actor, id uint, payload dto.SubmissionGradeRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := s.access.Require(ctx, actor, ActionManage, ResourceSubmission, id); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	grade := payload.Grade
	gradedBy := actor.ID
	gradedAt := s.now()
	submission.Grade = &grade
	submission.Feedback = s.policy.Sanitize(payload.Feedback)
	submission.GradedBy = &gradedBy
	submission.GradedAt = &gradedAt

	if err := s.repo.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", id).Float64("grade", grade).Uint("graded_by", gradedBy).Msg("submission graded")
	return s.reload(ctx, id)
}

func (s *submissionService) Delete(ctx context.Context, actor Actor, id uint) error {
	if _, err := s.editable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}
	return nil
}

// editable loads a submission the actor may still change: admins always,
// the owning student until the assignment's due date.
func (s *submissionService) editable(ctx context.Context, actor Actor, id uint) (models.Submission, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return models.Submission{}, err
	}
	if actor.IsAdmin() {
		return submission, nil
	}
	if actor.Role != models.RoleStudent || submission.StudentID != actor.ID {
		return models.Submission{}, ErrForbidden
	}
	if submission.Assignment.IsPastDue(s.now()) {
		return models.Submission{}, ErrSubmissionClosed
	}
	return submission, nil
}

func (s *submissionService) load(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

func (s *submissionService) reload(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}
