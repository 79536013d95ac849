package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

// UserListResult is a page of users.
type UserListResult struct {
	Items []dto.UserResponse `json:"items"`
	Meta  dto.PageMeta       `json:"meta"`
}

// UserService manages accounts.
type UserService interface {
	List(ctx context.Context, filter dto.UserFilter) (UserListResult, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.UserResponse, error)
	Create(ctx context.Context, payload dto.UserCreateRequest) (dto.UserResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.UserUpdateRequest) (dto.UserResponse, error)
	ChangePassword(ctx context.Context, actor Actor, payload dto.ChangePasswordRequest) error
	Delete(ctx context.Context, id uint) error
	UpdateAvatar(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.UserResponse, error)
}

type userService struct {
	repo      repository.UserRepository
	uploads   UploadService
	cache     *CourseCache
	validator *validator.Validate
	logger    zerolog.Logger
	hashCost  int
}

// NewUserService constructs the user service.
func NewUserService(repo repository.UserRepository, uploads UploadService, cache *CourseCache, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		repo:      repo,
		uploads:   uploads,
		cache:     cache,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
		hashCost:  bcrypt.DefaultCost,
	}
}

func (s *userService) List(ctx context.Context, filter dto.UserFilter) (UserListResult, error) {
	if err := s.validator.Struct(filter); err != nil {
		return UserListResult{}, err
	}

	repoFilter := repository.UserFilter{
		Search:   strings.TrimSpace(filter.Search),
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if filter.Role != nil {
		role := models.Role(*filter.Role)
		repoFilter.Role = &role
	}

	users, total, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return UserListResult{}, err
	}

	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	return UserListResult{
		Items: dto.NewUserResponseSlice(users),
		Meta:  dto.PageMeta{Page: page, PageSize: pageSize, Total: total},
	}, nil
}

func (s *userService) Get(ctx context.Context, actor Actor, id uint) (dto.UserResponse, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return dto.UserResponse{}, ErrForbidden
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) Create(ctx context.Context, payload dto.UserCreateRequest) (dto.UserResponse, error) {
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Email = normalizeEmail(payload.Email)
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	email := payload.Email
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return dto.UserResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), s.hashCost)
	if err != nil {
		return dto.UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:         payload.Name,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       models.Role(payload.Role),
		Phone:        strings.TrimSpace(payload.Phone),
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", user.RoleID.String()).Msg("user created")
	return dto.NewUserResponse(user), nil
}

func (s *userService) Update(ctx context.Context, actor Actor, id uint, payload dto.UserUpdateRequest) (dto.UserResponse, error) {
	payload.Name = trimmedPtr(payload.Name)
	if payload.Email != nil {
		email := normalizeEmail(*payload.Email)
		payload.Email = &email
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}
	if !actor.IsAdmin() {
		if actor.ID != id || payload.Role != nil || payload.Email != nil {
			return dto.UserResponse{}, ErrForbidden
		}
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}

	if payload.Name != nil {
		user.Name = *payload.Name
	}
	if payload.Phone != nil {
		user.Phone = strings.TrimSpace(*payload.Phone)
	}
	if payload.Role != nil {
		user.RoleID = models.Role(*payload.Role)
	}
	if payload.Email != nil {
		email := *payload.Email
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return dto.UserResponse{}, err
			}
			user.Email = email
		}
	}

	if err := s.repo.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}
	s.cache.InvalidateTeacher(ctx, user.ID)
	return dto.NewUserResponse(user), nil
}

func (s *userService) ChangePassword(ctx context.Context, actor Actor, payload dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	user, err := s.load(ctx, actor.ID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	return s.repo.Update(ctx, &user)
}

func (s *userService) Delete(ctx context.Context, id uint) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateTeacher(ctx, id)
	s.logger.Info().Uint("user_id", id).Msg("user deleted")
	return nil
}

func (s *userService) UpdateAvatar(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.UserResponse, error) {
	user, err := s.load(ctx, actor.ID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	record, err := s.uploads.Store(ctx, file, actor.ID, models.UploadAvatar)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user.Avatar = record.URL
	if err := s.repo.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) load(ctx context.Context, id uint) (models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *userService) ensureEmailFree(ctx context.Context, email string, selfID uint) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil && existing.ID != selfID {
		return ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}
