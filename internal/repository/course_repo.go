package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// ScheduleValidator inspects the schedule slots already held by a teacher
// inside the write transaction and returns an error to abort the write.
type ScheduleValidator func(existing []models.CourseSchedule) error

// CourseFilter narrows course listings.
type CourseFilter struct {
	Year      *int
	Semester  *int
	SubjectID *uint
	TeacherID *uint
}

// CourseRepository defines persistence operations for courses.
type CourseRepository interface {
	List(ctx context.Context, filter CourseFilter) ([]models.Course, error)
	ListEnrolled(ctx context.Context, studentID uint) ([]models.Course, error)
	GetByID(ctx context.Context, id uint) (models.Course, error)
	Create(ctx context.Context, course *models.Course, validate ScheduleValidator) error
	Update(ctx context.Context, course *models.Course, validate ScheduleValidator) error
	Delete(ctx context.Context, id uint) error
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates a GORM-backed course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Course{}).
		Preload("Subject").
		Preload("Teacher").
		Preload("Schedules", orderSchedules)
}

func orderSchedules(db *gorm.DB) *gorm.DB {
	return db.Order("date ASC").Order("start_time ASC")
}

func (r *courseRepository) List(ctx context.Context, filter CourseFilter) ([]models.Course, error) {
	query := r.baseQuery(ctx)

	if filter.Year != nil {
		query = query.Where("year = ?", *filter.Year)
	}
	if filter.Semester != nil {
		query = query.Where("semester = ?", *filter.Semester)
	}
	if filter.SubjectID != nil {
		query = query.Where("subject_id = ?", *filter.SubjectID)
	}
	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}

	var courses []models.Course
	if err := query.Order("year DESC").Order("semester DESC").Order("id ASC").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepository) ListEnrolled(ctx context.Context, studentID uint) ([]models.Course, error) {
	paidMembers := r.db.Model(&models.ClassMember{}).
		Select("class_members.course_id").
		Joins("JOIN register_courses ON register_courses.id = class_members.register_course_id").
		Where("class_members.user_id = ? AND register_courses.status = ?", studentID, models.RegistrationPaid)

	var courses []models.Course
	if err := r.baseQuery(ctx).Where("id IN (?)", paidMembers).Order("id ASC").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.baseQuery(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

// Create inserts the course and its schedules in one transaction after
// validate accepts the teacher's current slots.
func (r *courseRepository) Create(ctx context.Context, course *models.Course, validate ScheduleValidator) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := teacherSchedules(tx, course.TeacherID, 0)
		if err != nil {
			return err
		}
		if validate != nil {
			if err := validate(existing); err != nil {
				return err
			}
		}

		return tx.Omit("Subject", "Teacher").Create(course).Error
	})
}

// Update saves course columns. validate receives the teacher's slots from
// every other course so a teacher change can be checked atomically.
func (r *courseRepository) Update(ctx context.Context, course *models.Course, validate ScheduleValidator) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if validate != nil {
			existing, err := teacherSchedules(tx, course.TeacherID, course.ID)
			if err != nil {
				return err
			}
			if err := validate(existing); err != nil {
				return err
			}
		}

		return tx.Omit(clause.Associations).Save(course).Error
	})
}

// Delete removes a course and its schedules. Courses that already have class
// members or lessons are kept.
func (r *courseRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var references int64
		if err := tx.Model(&models.ClassMember{}).Where("course_id = ?", id).Count(&references).Error; err != nil {
			return err
		}
		if references > 0 {
			return ErrInUse
		}
		if err := tx.Model(&models.Lesson{}).Where("course_id = ?", id).Count(&references).Error; err != nil {
			return err
		}
		if references > 0 {
			return ErrInUse
		}

		if err := tx.Where("course_id = ?", id).Delete(&models.CourseSchedule{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Course{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func teacherSchedules(tx *gorm.DB, teacherID, excludeCourseID uint) ([]models.CourseSchedule, error) {
	courses := tx.Session(&gorm.Session{NewDB: true}).Model(&models.Course{}).Select("id").Where("teacher_id = ?", teacherID)
	query := tx.Session(&gorm.Session{NewDB: true}).Model(&models.CourseSchedule{}).Where("course_id IN (?)", courses)
	if excludeCourseID != 0 {
		query = query.Where("course_id <> ?", excludeCourseID)
	}

	var schedules []models.CourseSchedule
	if err := query.Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}
