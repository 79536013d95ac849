package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Set(t *testing.T, value string) {
	t.Helper()
	c.now = mustTime(t, value)
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	layout := "2006-01-02"
	if strings.Contains(value, "T") {
		layout = time.RFC3339
	}
	parsed, err := time.Parse(layout, value)
	require.NoError(t, err)
	return parsed
}

// serviceFixture seeds one user per role and a subject.
type serviceFixture struct {
	db       *gorm.DB
	validate *validator.Validate
	admin    models.User
	teacher  models.User
	student  models.User
	subject  models.Subject
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &serviceFixture{db: db, validate: validator.New()}
	f.admin = f.user(t, "admin@example.com", models.RoleAdmin)
	f.teacher = f.user(t, "teacher@example.com", models.RoleTeacher)
	f.student = f.user(t, "student@example.com", models.RoleStudent)

	f.subject = models.Subject{Code: "CS101", Name: "Programming", Credits: 3}
	require.NoError(t, db.Create(&f.subject).Error)
	return f
}

func (f *serviceFixture) user(t *testing.T, email string, role models.Role) models.User {
	t.Helper()
	user := models.User{Name: strings.Split(email, "@")[0], Email: email, PasswordHash: "x", RoleID: role}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *serviceFixture) course(t *testing.T, teacherID uint, price float64, slots ...models.CourseSchedule) models.Course {
	t.Helper()
	course := models.Course{SubjectID: f.subject.ID, TeacherID: teacherID, Year: 2025, Semester: 1, Price: price, PeriodCount: 30, Schedules: slots}
	require.NoError(t, repository.NewCourseRepository(f.db).Create(context.Background(), &course, nil))
	return course
}

func (f *serviceFixture) policy() AccessPolicy {
	return NewAccessPolicy(repository.NewAccessRepository(f.db))
}

func actorOf(user models.User) Actor {
	return Actor{ID: user.ID, Role: user.RoleID}
}

func slotAt(t *testing.T, day, start, end string) models.CourseSchedule {
	t.Helper()
	startTime, err := dto.ParseClock(start)
	require.NoError(t, err)
	endTime, err := dto.ParseClock(end)
	require.NoError(t, err)
	return models.CourseSchedule{
		Date:      models.NewScheduleDate(mustTime(t, day)),
		StartTime: startTime,
		EndTime:   endTime,
		Room:      "B2",
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// enroll records a paid registration holding courseID for the student.
func (f *serviceFixture) enroll(t *testing.T, studentID, courseID uint) {
	t.Helper()
	now := time.Now()
	reg := models.RegisterCourse{
		UserID:        studentID,
		Year:          2025,
		Semester:      1,
		BeginRegister: now.AddDate(0, 0, -30),
		EndRegister:   now.AddDate(0, 0, -20),
		DueDateStart:  now.AddDate(0, 0, -19),
		DueDateEnd:    now.AddDate(0, 0, -10),
		Tuition:       100,
		Status:        models.RegistrationPaid,
		PaidAt:        &now,
	}
	require.NoError(t, f.db.Create(&reg).Error)
	member := models.ClassMember{UserID: studentID, RegisterCourseID: reg.ID, CourseID: courseID, JoinedAt: now, Price: 100}
	require.NoError(t, f.db.Create(&member).Error)
}

func (f *serviceFixture) lesson(t *testing.T, courseID uint) models.Lesson {
	t.Helper()
	lesson := models.Lesson{CourseID: courseID, Title: "Lesson", Content: "content", CreatedBy: f.teacher.ID}
	require.NoError(t, f.db.Create(&lesson).Error)
	return lesson
}
