package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// RegistrationFilter narrows registration period listings.
type RegistrationFilter struct {
	UserID   *uint
	Status   *models.RegistrationStatus
	Year     *int
	Semester *int
	Page     int
	PageSize int
}

// CartValidator inspects the locked registration and its current cart rows
// inside the write transaction and returns an error to abort the write.
type CartValidator func(registration models.RegisterCourse, cart []models.ClassMember) error

// RegistrationRepository persists registration periods and their class members.
type RegistrationRepository interface {
	Create(ctx context.Context, registration *models.RegisterCourse) error
	HasPending(ctx context.Context, userID uint, year, semester int) (bool, error)
	GetByID(ctx context.Context, id uint) (models.RegisterCourse, error)
	Latest(ctx context.Context, userID uint) (models.RegisterCourse, error)
	List(ctx context.Context, filter RegistrationFilter) ([]models.RegisterCourse, int64, error)
	UpdateStatus(ctx context.Context, id uint, from, to models.RegistrationStatus) error
	SaveTuition(ctx context.Context, id uint, validate CartValidator) (float64, error)
	MarkPaid(ctx context.Context, id uint, paidAt time.Time, validate CartValidator) (models.RegisterCourse, error)
	ListMembers(ctx context.Context, registrationID uint) ([]models.ClassMember, error)
	AddMember(ctx context.Context, member *models.ClassMember, validate CartValidator) error
	RemoveMember(ctx context.Context, registrationID, courseID uint, validate CartValidator) error
	Roster(ctx context.Context, courseID uint) ([]models.ClassMember, error)
}

type registrationRepository struct {
	db *gorm.DB
}

// NewRegistrationRepository instantiates the repository.
func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) Create(ctx context.Context, registration *models.RegisterCourse) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(registration).Error
}

func (r *registrationRepository) HasPending(ctx context.Context, userID uint, year, semester int) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.RegisterCourse{}).
		Where("user_id = ? AND year = ? AND semester = ? AND status = ?", userID, year, semester, models.RegistrationPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id uint) (models.RegisterCourse, error) {
	var registration models.RegisterCourse
	if err := r.db.WithContext(ctx).First(&registration, id).Error; err != nil {
		return models.RegisterCourse{}, err
	}
	return registration, nil
}

func (r *registrationRepository) Latest(ctx context.Context, userID uint) (models.RegisterCourse, error) {
	var registration models.RegisterCourse
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		First(&registration).Error; err != nil {
		return models.RegisterCourse{}, err
	}
	return registration, nil
}

func (r *registrationRepository) List(ctx context.Context, filter RegistrationFilter) ([]models.RegisterCourse, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.RegisterCourse{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Year != nil {
		query = query.Where("year = ?", *filter.Year)
	}
	if filter.Semester != nil {
		query = query.Where("semester = ?", *filter.Semester)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	var registrations []models.RegisterCourse
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&registrations).Error; err != nil {
		return nil, 0, err
	}
	return registrations, total, nil
}

// UpdateStatus moves a registration from one status to another. It reports
// gorm.ErrRecordNotFound when the row is no longer in the expected status.
func (r *registrationRepository) UpdateStatus(ctx context.Context, id uint, from, to models.RegistrationStatus) error {
	result := r.db.WithContext(ctx).Model(&models.RegisterCourse{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SaveTuition recomputes the tuition from the current cart and stores it.
func (r *registrationRepository) SaveTuition(ctx context.Context, id uint, validate CartValidator) (float64, error) {
	var tuition float64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		registration, cart, err := lockCart(tx, id)
		if err != nil {
			return err
		}
		if validate != nil {
			if err := validate(registration, cart); err != nil {
				return err
			}
		}

		tuition = models.SumTuition(cart)
		return tx.Model(&models.RegisterCourse{}).Where("id = ?", id).Update("tuition", tuition).Error
	})
	if err != nil {
		return 0, err
	}
	return tuition, nil
}

// MarkPaid stores the cart total and flips the status to paid atomically.
func (r *registrationRepository) MarkPaid(ctx context.Context, id uint, paidAt time.Time, validate CartValidator) (models.RegisterCourse, error) {
	var paid models.RegisterCourse
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		registration, cart, err := lockCart(tx, id)
		if err != nil {
			return err
		}
		if validate != nil {
			if err := validate(registration, cart); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"tuition": models.SumTuition(cart),
			"status":  models.RegistrationPaid,
			"paid_at": paidAt,
		}
		result := tx.Model(&models.RegisterCourse{}).
			Where("id = ? AND status = ?", id, models.RegistrationPending).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.First(&paid, id).Error
	})
	if err != nil {
		return models.RegisterCourse{}, err
	}
	return paid, nil
}

func (r *registrationRepository) ListMembers(ctx context.Context, registrationID uint) ([]models.ClassMember, error) {
	var members []models.ClassMember
	if err := membersQuery(r.db.WithContext(ctx)).
		Where("register_course_id = ?", registrationID).
		Order("joined_at ASC").
		Order("id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// AddMember inserts a cart row after validate accepts the locked cart.
func (r *registrationRepository) AddMember(ctx context.Context, member *models.ClassMember, validate CartValidator) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		registration, cart, err := lockCart(tx, member.RegisterCourseID)
		if err != nil {
			return err
		}
		if validate != nil {
			if err := validate(registration, cart); err != nil {
				return err
			}
		}

		return tx.Omit(clause.Associations).Create(member).Error
	})
}

// RemoveMember deletes the cart row for the course after validate accepts the
// locked cart.
func (r *registrationRepository) RemoveMember(ctx context.Context, registrationID, courseID uint, validate CartValidator) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		registration, cart, err := lockCart(tx, registrationID)
		if err != nil {
			return err
		}
		if validate != nil {
			if err := validate(registration, cart); err != nil {
				return err
			}
		}

		if err := tx.Where("register_course_id = ? AND course_id = ?", registrationID, courseID).
			Delete(&models.ClassMember{}).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&models.ClassMember{}).Where("register_course_id = ?", registrationID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 || registration.Tuition == 0 {
			return nil
		}
		// An emptied cart has nothing left to pay for.
		return tx.Model(&models.RegisterCourse{}).Where("id = ?", registrationID).Update("tuition", 0).Error
	})
}

func (r *registrationRepository) Roster(ctx context.Context, courseID uint) ([]models.ClassMember, error) {
	var members []models.ClassMember
	if err := r.db.WithContext(ctx).Model(&models.ClassMember{}).
		Preload("User").
		Joins("JOIN register_courses ON register_courses.id = class_members.register_course_id").
		Where("class_members.course_id = ? AND register_courses.status = ?", courseID, models.RegistrationPaid).
		Order("class_members.joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func membersQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&models.ClassMember{}).
		Preload("Course").
		Preload("Course.Subject").
		Preload("Course.Teacher").
		Preload("Course.Schedules", orderSchedules)
}

// lockCart loads the registration row with a row lock (ignored by SQLite) and
// the cart it owns, so concurrent cart writes for one registration serialise.
func lockCart(tx *gorm.DB, registrationID uint) (models.RegisterCourse, []models.ClassMember, error) {
	var registration models.RegisterCourse
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&registration, registrationID).Error; err != nil {
		return models.RegisterCourse{}, nil, err
	}

	var cart []models.ClassMember
	if err := membersQuery(tx.Session(&gorm.Session{NewDB: true})).
		Where("register_course_id = ?", registrationID).
		Find(&cart).Error; err != nil {
		return models.RegisterCourse{}, nil, err
	}

	return registration, cart, nil
}
