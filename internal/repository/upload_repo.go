package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// UploadRepository keeps the metadata of stored files.
type UploadRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
	// FindByChecksum returns gorm.ErrRecordNotFound when the user has not
	// stored identical content of that kind before.
	FindByChecksum(ctx context.Context, userID uint, kind models.UploadKind, checksum string) (models.UploadRecord, error)
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs a repository for upload records.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *uploadRepository) FindByChecksum(ctx context.Context, userID uint, kind models.UploadKind, checksum string) (models.UploadRecord, error) {
	var record models.UploadRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND checksum = ?", userID, kind, checksum).
		Order("id DESC").
		First(&record).Error
	return record, err
}
