package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// RoleRepository exposes the role catalogue.
type RoleRepository interface {
	List(ctx context.Context) ([]models.RoleRecord, error)
	GetByID(ctx context.Context, id models.Role) (models.RoleRecord, error)
	Seed(ctx context.Context, roles []models.RoleRecord) error
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository constructs a role repository.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) List(ctx context.Context) ([]models.RoleRecord, error) {
	var roles []models.RoleRecord
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) GetByID(ctx context.Context, id models.Role) (models.RoleRecord, error) {
	var role models.RoleRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&role).Error; err != nil {
		return models.RoleRecord{}, err
	}
	return role, nil
}

func (r *roleRepository) Seed(ctx context.Context, roles []models.RoleRecord) error {
	if len(roles) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description"}),
	}).Create(&roles).Error
}
