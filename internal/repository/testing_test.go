package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	t.Helper()
	user := models.User{Name: email, Email: email, PasswordHash: "x", RoleID: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedSubject(t *testing.T, db *gorm.DB, code string) models.Subject {
	t.Helper()
	subject := models.Subject{Code: code, Name: code, Credits: 3}
	require.NoError(t, db.Create(&subject).Error)
	return subject
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}

func testSlot(t *testing.T, day string, startHour, endHour int) models.CourseSchedule {
	t.Helper()
	return models.CourseSchedule{
		Date:      models.NewScheduleDate(mustDate(t, day)),
		StartTime: models.NewScheduleTime(startHour, 0),
		EndTime:   models.NewScheduleTime(endHour, 0),
		Room:      "A1",
	}
}
