package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// AccessRepository resolves the ownership facts the access policy needs.
// Every lookup returns gorm.ErrRecordNotFound for unknown ids.
type AccessRepository interface {
	CourseTeacher(ctx context.Context, courseID uint) (uint, error)
	LessonCourse(ctx context.Context, lessonID uint) (uint, error)
	AssignmentCourse(ctx context.Context, assignmentID uint) (uint, error)
	SubmissionScope(ctx context.Context, submissionID uint) (courseID uint, studentID uint, err error)
	IsEnrolled(ctx context.Context, studentID, courseID uint) (bool, error)
}

type accessRepository struct {
	db *gorm.DB
}

// NewAccessRepository constructs the repository.
func NewAccessRepository(db *gorm.DB) AccessRepository {
	return &accessRepository{db: db}
}

func (r *accessRepository) CourseTeacher(ctx context.Context, courseID uint) (uint, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Select("id", "teacher_id").First(&course, courseID).Error; err != nil {
		return 0, err
	}
	return course.TeacherID, nil
}

func (r *accessRepository) LessonCourse(ctx context.Context, lessonID uint) (uint, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).Select("id", "course_id").First(&lesson, lessonID).Error; err != nil {
		return 0, err
	}
	return lesson.CourseID, nil
}

func (r *accessRepository) AssignmentCourse(ctx context.Context, assignmentID uint) (uint, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).Select("id", "lesson_id").First(&assignment, assignmentID).Error; err != nil {
		return 0, err
	}
	return r.LessonCourse(ctx, assignment.LessonID)
}

func (r *accessRepository) SubmissionScope(ctx context.Context, submissionID uint) (uint, uint, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).Select("id", "assignment_id", "student_id").First(&submission, submissionID).Error; err != nil {
		return 0, 0, err
	}
	courseID, err := r.AssignmentCourse(ctx, submission.AssignmentID)
	if err != nil {
		return 0, 0, err
	}
	return courseID, submission.StudentID, nil
}

// IsEnrolled reports whether the student holds a paid class membership for the course.
func (r *accessRepository) IsEnrolled(ctx context.Context, studentID, courseID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ClassMember{}).
		Joins("JOIN register_courses ON register_courses.id = class_members.register_course_id").
		Where("class_members.user_id = ? AND class_members.course_id = ? AND register_courses.status = ?", studentID, courseID, models.RegistrationPaid).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
