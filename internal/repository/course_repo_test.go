package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/models"
)

var errTestConflict = errors.New("conflict")

func TestCourseRepositoryCreatePersistsSchedules(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	subject := seedSubject(t, db, "CS101")

	course := models.Course{
		SubjectID: subject.ID,
		TeacherID: teacher.ID,
		Semester:  1,
		Year:      2025,
		Price:     1200,
		Schedules: []models.CourseSchedule{testSlot(t, "2025-03-01", 9, 11), testSlot(t, "2025-03-08", 9, 11)},
	}

	var seen []models.CourseSchedule
	require.NoError(t, repo.Create(ctx, &course, func(existing []models.CourseSchedule) error {
		seen = existing
		return nil
	}))
	require.Empty(t, seen)
	require.NotZero(t, course.ID)

	stored, err := repo.GetByID(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, stored.Schedules, 2)
	require.Equal(t, "CS101", stored.Subject.Code)
	require.Equal(t, teacher.ID, stored.Teacher.ID)
	require.Equal(t, 9, int(stored.Schedules[0].Range().Start.Hours()))

	second := models.Course{SubjectID: subject.ID, TeacherID: teacher.ID, Semester: 1, Year: 2025,
		Schedules: []models.CourseSchedule{testSlot(t, "2025-03-01", 13, 15)}}
	require.NoError(t, repo.Create(ctx, &second, func(existing []models.CourseSchedule) error {
		seen = existing
		return nil
	}))
	require.Len(t, seen, 2, "validator sees the teacher's slots from other courses")
}

func TestCourseRepositoryCreateRollsBackOnValidationFailure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	subject := seedSubject(t, db, "CS102")

	course := models.Course{SubjectID: subject.ID, TeacherID: teacher.ID, Semester: 2, Year: 2025,
		Schedules: []models.CourseSchedule{testSlot(t, "2025-03-01", 9, 11)}}
	err := repo.Create(ctx, &course, func([]models.CourseSchedule) error { return errTestConflict })
	require.ErrorIs(t, err, errTestConflict)

	var courses, schedules int64
	require.NoError(t, db.Model(&models.Course{}).Count(&courses).Error)
	require.NoError(t, db.Model(&models.CourseSchedule{}).Count(&schedules).Error)
	require.Zero(t, courses)
	require.Zero(t, schedules)
}

func TestCourseRepositoryDeleteRejectsCoursesWithMembers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	student := seedUser(t, db, "student@example.com", models.RoleStudent)
	subject := seedSubject(t, db, "CS103")

	course := models.Course{SubjectID: subject.ID, TeacherID: teacher.ID, Semester: 1, Year: 2025,
		Schedules: []models.CourseSchedule{testSlot(t, "2025-03-01", 9, 11)}}
	require.NoError(t, repo.Create(ctx, &course, nil))

	registration := models.RegisterCourse{UserID: student.ID, Year: 2025, Semester: 1, Status: models.RegistrationPending,
		BeginRegister: mustDate(t, "2025-01-01"), EndRegister: mustDate(t, "2025-01-10"),
		DueDateStart: mustDate(t, "2025-01-11"), DueDateEnd: mustDate(t, "2025-01-31")}
	require.NoError(t, db.Create(&registration).Error)
	require.NoError(t, db.Create(&models.ClassMember{UserID: student.ID, RegisterCourseID: registration.ID, CourseID: course.ID, JoinedAt: mustDate(t, "2025-01-02")}).Error)

	require.ErrorIs(t, repo.Delete(ctx, course.ID), ErrInUse)

	require.NoError(t, db.Where("course_id = ?", course.ID).Delete(&models.ClassMember{}).Error)
	require.NoError(t, repo.Delete(ctx, course.ID))
	require.ErrorIs(t, repo.Delete(ctx, course.ID), gorm.ErrRecordNotFound)

	var schedules int64
	require.NoError(t, db.Model(&models.CourseSchedule{}).Count(&schedules).Error)
	require.Zero(t, schedules)
}

func TestCourseScheduleRepositoryKeepsLastSlot(t *testing.T) {
	db := setupTestDB(t)
	courses := NewCourseRepository(db)
	schedules := NewCourseScheduleRepository(db)
	ctx := context.Background()

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	subject := seedSubject(t, db, "CS104")
	course := models.Course{SubjectID: subject.ID, TeacherID: teacher.ID, Semester: 1, Year: 2025,
		Schedules: []models.CourseSchedule{testSlot(t, "2025-03-01", 9, 11)}}
	require.NoError(t, courses.Create(ctx, &course, nil))

	extra := testSlot(t, "2025-03-02", 9, 11)
	extra.CourseID = course.ID
	var seen []models.CourseSchedule
	require.NoError(t, schedules.Create(ctx, &extra, func(existing []models.CourseSchedule) error {
		seen = existing
		return nil
	}))
	require.Len(t, seen, 1)

	require.NoError(t, schedules.Delete(ctx, extra.ID))
	require.ErrorIs(t, schedules.Delete(ctx, course.Schedules[0].ID), ErrInUse)
}
