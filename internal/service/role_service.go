package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

// RoleService reads the closed set of roles and seeds it at startup.
type RoleService interface {
	List(ctx context.Context) ([]dto.RoleResponse, error)
	Get(ctx context.Context, id models.Role) (dto.RoleResponse, error)
	Seed(ctx context.Context) error
}

type roleService struct {
	repo   repository.RoleRepository
	logger zerolog.Logger
}

// NewRoleService constructs the role service.
func NewRoleService(repo repository.RoleRepository, logger zerolog.Logger) RoleService {
	return &roleService{repo: repo, logger: logger.With().Str("component", "role_service").Logger()}
}

func (s *roleService) List(ctx context.Context) ([]dto.RoleResponse, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.RoleResponse, 0, len(roles))
	for _, role := range roles {
		responses = append(responses, dto.NewRoleResponse(role))
	}
	return responses, nil
}

func (s *roleService) Get(ctx context.Context, id models.Role) (dto.RoleResponse, error) {
	if !id.Valid() {
		return dto.RoleResponse{}, ErrRoleNotFound
	}
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RoleResponse{}, ErrRoleNotFound
		}
		return dto.RoleResponse{}, err
	}
	return dto.NewRoleResponse(role), nil
}

func (s *roleService) Seed(ctx context.Context) error {
	if err := s.repo.Seed(ctx, models.DefaultRoleRecords()); err != nil {
		return err
	}
	s.logger.Debug().Int("count", len(models.Roles)).Msg("roles seeded")
	return nil
}
