package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// OTPRepository stores one-time codes.
type OTPRepository interface {
	Create(ctx context.Context, otp *models.OTP) error
	Latest(ctx context.Context, email string, purpose models.OTPPurpose) (models.OTP, error)
	Consume(ctx context.Context, id uint, at time.Time) error
}

type otpRepository struct {
	db *gorm.DB
}

// NewOTPRepository constructs an OTP repository.
func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

// Create stores a new code and consumes any older unused codes for the same
// email and purpose, so only the most recent code is ever valid.
func (r *otpRepository) Create(ctx context.Context, otp *models.OTP) error {
	otp.Email = strings.ToLower(strings.TrimSpace(otp.Email))
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OTP{}).
			Where("email = ? AND purpose = ? AND consumed_at IS NULL", otp.Email, otp.Purpose).
			Update("consumed_at", time.Now().UTC()).Error; err != nil {
			return err
		}
		return tx.Create(otp).Error
	})
}

func (r *otpRepository) Latest(ctx context.Context, email string, purpose models.OTPPurpose) (models.OTP, error) {
	var otp models.OTP
	if err := r.db.WithContext(ctx).
		Where("email = ? AND purpose = ?", strings.ToLower(strings.TrimSpace(email)), purpose).
		Order("id DESC").
		First(&otp).Error; err != nil {
		return models.OTP{}, err
	}
	return otp, nil
}

func (r *otpRepository) Consume(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.OTP{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
