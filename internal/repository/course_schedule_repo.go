package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// CourseScheduleRepository defines persistence operations for schedule slots.
type CourseScheduleRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.CourseSchedule, error)
	GetByID(ctx context.Context, id uint) (models.CourseSchedule, error)
	Create(ctx context.Context, schedule *models.CourseSchedule, validate ScheduleValidator) error
	Update(ctx context.Context, schedule *models.CourseSchedule, validate ScheduleValidator) error
	Delete(ctx context.Context, id uint) error
}

type courseScheduleRepository struct {
	db *gorm.DB
}

// NewCourseScheduleRepository constructs the repository.
func NewCourseScheduleRepository(db *gorm.DB) CourseScheduleRepository {
	return &courseScheduleRepository{db: db}
}

func (r *courseScheduleRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.CourseSchedule, error) {
	var schedules []models.CourseSchedule
	if err := orderSchedules(r.db.WithContext(ctx).Where("course_id = ?", courseID)).Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *courseScheduleRepository) GetByID(ctx context.Context, id uint) (models.CourseSchedule, error) {
	var schedule models.CourseSchedule
	if err := r.db.WithContext(ctx).First(&schedule, id).Error; err != nil {
		return models.CourseSchedule{}, err
	}
	return schedule, nil
}

func (r *courseScheduleRepository) Create(ctx context.Context, schedule *models.CourseSchedule, validate ScheduleValidator) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validateTeacherLoad(tx, schedule.CourseID, validate); err != nil {
			return err
		}
		return tx.Create(schedule).Error
	})
}

func (r *courseScheduleRepository) Update(ctx context.Context, schedule *models.CourseSchedule, validate ScheduleValidator) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validateTeacherLoad(tx, schedule.CourseID, validate); err != nil {
			return err
		}
		return tx.Save(schedule).Error
	})
}

// Delete removes a slot unless it is the last one of its course.
func (r *courseScheduleRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var schedule models.CourseSchedule
		if err := tx.First(&schedule, id).Error; err != nil {
			return err
		}

		var siblings int64
		if err := tx.Model(&models.CourseSchedule{}).Where("course_id = ?", schedule.CourseID).Count(&siblings).Error; err != nil {
			return err
		}
		if siblings <= 1 {
			return ErrInUse
		}

		return tx.Delete(&models.CourseSchedule{}, id).Error
	})
}

func validateTeacherLoad(tx *gorm.DB, courseID uint, validate ScheduleValidator) error {
	var course models.Course
	if err := tx.Select("id", "teacher_id").First(&course, courseID).Error; err != nil {
		return err
	}
	if validate == nil {
		return nil
	}

	existing, err := teacherSchedules(tx, course.TeacherID, 0)
	if err != nil {
		return err
	}
	return validate(existing)
}
