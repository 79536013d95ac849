package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

type courseHarness struct {
	*serviceFixture
	courses   CourseService
	schedules ScheduleService
	cache     *CourseCache
	redis     *miniredis.Miniredis
}

func newCourseHarness(t *testing.T) *courseHarness {
	t.Helper()
	f := newServiceFixture(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCourseCache(client, time.Minute, testLogger())
	courseRepo := repository.NewCourseRepository(f.db)

	return &courseHarness{
		serviceFixture: f,
		courses:        NewCourseService(courseRepo, repository.NewSubjectRepository(f.db), repository.NewUserRepository(f.db), cache, f.validate, testLogger()),
		schedules:      NewScheduleService(repository.NewCourseScheduleRepository(f.db), courseRepo, cache, f.validate, testLogger()),
		cache:          cache,
		redis:          mr,
	}
}

func (h *courseHarness) createRequest(slots ...dto.ScheduleInput) dto.CourseCreateRequest {
	return dto.CourseCreateRequest{
		SubjectID:   h.subject.ID,
		TeacherID:   h.teacher.ID,
		Semester:    1,
		Year:        2025,
		Price:       1500,
		PeriodCount: 45,
		Schedules:   slots,
	}
}

func TestCourseServiceCreateChecksTeacherLoad(t *testing.T) {
	h := newCourseHarness(t)
	ctx := context.Background()

	created, err := h.courses.Create(ctx, h.createRequest(dto.ScheduleInput{Date: "2025-03-01", StartTime: "09:00", EndTime: "11:00", Room: "<b>A1</b>"}))
	require.NoError(t, err)
	require.Len(t, created.Schedules, 1)
	require.Equal(t, "09:00", created.Schedules[0].StartTime)
	require.Equal(t, "A1", created.Schedules[0].Room)
	require.Equal(t, h.teacher.ID, created.Teacher.ID)

	_, err = h.courses.Create(ctx, h.createRequest(
		dto.ScheduleInput{Date: "2025-03-02", StartTime: "09:00", EndTime: "10:00"},
		dto.ScheduleInput{Date: "2025-03-01", StartTime: "10:00", EndTime: "12:00"},
	))
	require.ErrorIs(t, err, ErrScheduleConflict)

	var count int64
	require.NoError(t, h.db.Model(&models.Course{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
	require.NoError(t, h.db.Model(&models.CourseSchedule{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	touching, err := h.courses.Create(ctx, h.createRequest(dto.ScheduleInput{Date: "2025-03-01", StartTime: "11:00", EndTime: "13:00"}))
	require.NoError(t, err)
	require.NotZero(t, touching.ID)
}

func TestCourseServiceCreateRejectsOverlappingCandidates(t *testing.T) {
	h := newCourseHarness(t)

	_, err := h.courses.Create(context.Background(), h.createRequest(
		dto.ScheduleInput{Date: "2025-03-01", StartTime: "09:00", EndTime: "11:00"},
		dto.ScheduleInput{Date: "2025-03-01", StartTime: "10:30", EndTime: "11:30"},
	))
	require.ErrorIs(t, err, ErrScheduleConflict)
}

func TestCourseServiceCreateValidatesInput(t *testing.T) {
	h := newCourseHarness(t)
	ctx := context.Background()

	_, err := h.courses.Create(ctx, h.createRequest())
	require.Error(t, err)

	_, err = h.courses.Create(ctx, h.createRequest(dto.ScheduleInput{Date: "2025-03-01", StartTime: "11:00", EndTime: "09:00"}))
	require.ErrorIs(t, err, ErrInvalidInput)

	request := h.createRequest(dto.ScheduleInput{Date: "2025-03-01", StartTime: "09:00", EndTime: "10:00"})
	request.TeacherID = h.student.ID
	_, err = h.courses.Create(ctx, request)
	require.ErrorIs(t, err, ErrInvalidInput)

	request.TeacherID = h.teacher.ID
	request.SubjectID = 404
	_, err = h.courses.Create(ctx, request)
	require.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestCourseServiceGetUsesCache(t *testing.T) {
	h := newCourseHarness(t)
	ctx := context.Background()

	created, err := h.courses.Create(ctx, h.createRequest(dto.ScheduleInput{Date: "2025-03-01", StartTime: "09:00", EndTime: "11:00"}))
	require.NoError(t, err)
	require.True(t, h.redis.Exists("course:detail:"+itoa(created.ID)))

	// Bypass the service so only the cache reflects the old price.
	require.NoError(t, h.db.Model(&models.Course{}).Where("id = ?", created.ID).Update("price", 99).Error)
	cached, err := h.courses.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 1500.0, cached.Price)

	_, err = h.schedules.Create(ctx, dto.ScheduleCreateRequest{
		CourseID:      created.ID,
		ScheduleInput: dto.ScheduleInput{Date: "2025-03-08", StartTime: "09:00", EndTime: "11:00"},
	})
	require.NoError(t, err)

	fresh, err := h.courses.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 99.0, fresh.Price)
	require.Len(t, fresh.Schedules, 2)
}

func TestCourseServiceUpdateTeacherRechecksLoad(t *testing.T) {
	h := newCourseHarness(t)
	ctx := context.Background()
	other := h.user(t, "teacher2@example.com", models.RoleTeacher)

	_, err := h.courses.Create(ctx, h.createRequest(dto.ScheduleInput{Date: "2025-03-01", StartTime: "09:00", EndTime: "11:00"}))
	require.NoError(t, err)

	request := h.createRequest(dto.ScheduleInput{Date: "2025-03-01", StartTime: "10:00", EndTime: "12:00"})
	request.TeacherID = other.ID
	second, err := h.courses.Create(ctx, request)
	require.NoError(t, err)

	_, err = h.courses.Update(ctx, second.ID, dto.CourseUpdateRequest{TeacherID: &h.teacher.ID})
	require.ErrorIs(t, err, ErrScheduleConflict)

	price := 2000.0
	updated, err := h.courses.Update(ctx, second.ID, dto.CourseUpdateRequest{Price: &price})
	require.NoError(t, err)
	require.Equal(t, other.ID, updated.Teacher.ID)
	require.Equal(t, price, updated.Price)
}

func TestScheduleServiceKeepsLastSlotAndChecksConflicts(t *testing.T) {
	h := newCourseHarness(t)
	ctx := context.Background()

	course, err := h.courses.Create(ctx, h.createRequest(dto.ScheduleInput{Date: "2025-03-01", StartTime: "09:00", EndTime: "11:00"}))
	require.NoError(t, err)
	slotID := course.Schedules[0].ID

	err = h.schedules.Delete(ctx, slotID)
	require.ErrorIs(t, err, ErrLastSchedule)

	_, err = h.schedules.Create(ctx, dto.ScheduleCreateRequest{
		CourseID:      course.ID,
		ScheduleInput: dto.ScheduleInput{Date: "2025-03-01", StartTime: "10:00", EndTime: "10:30"},
	})
	require.ErrorIs(t, err, ErrScheduleConflict)

	added, err := h.schedules.Create(ctx, dto.ScheduleCreateRequest{
		CourseID:      course.ID,
		ScheduleInput: dto.ScheduleInput{Date: "2025-03-02", StartTime: "09:00", EndTime: "11:00"},
	})
	require.NoError(t, err)

	later := "10:00"
	end := "12:00"
	moved, err := h.schedules.Update(ctx, slotID, dto.ScheduleUpdateRequest{StartTime: &later, EndTime: &end})
	require.NoError(t, err)
	require.Equal(t, "10:00", moved.StartTime)

	require.NoError(t, h.schedules.Delete(ctx, added.ID))

	_, err = h.schedules.Get(ctx, added.ID)
	require.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestCourseServiceDeleteRejectsCourseInUse(t *testing.T) {
	h := newCourseHarness(t)
	ctx := context.Background()

	course, err := h.courses.Create(ctx, h.createRequest(dto.ScheduleInput{Date: "2025-03-01", StartTime: "09:00", EndTime: "11:00"}))
	require.NoError(t, err)

	lesson := models.Lesson{CourseID: course.ID, Title: "Intro", CreatedBy: h.teacher.ID}
	require.NoError(t, h.db.Create(&lesson).Error)

	require.ErrorIs(t, h.courses.Delete(ctx, course.ID), ErrCourseInUse)

	require.NoError(t, h.db.Delete(&lesson).Error)
	require.NoError(t, h.courses.Delete(ctx, course.ID))
	require.False(t, h.redis.Exists("course:detail:"+itoa(course.ID)))

	_, err = h.courses.Get(ctx, course.ID)
	require.ErrorIs(t, err, ErrCourseNotFound)
	require.ErrorIs(t, h.courses.Delete(ctx, course.ID), ErrCourseNotFound)
}

func TestCourseCacheDropsEntriesOnSubjectAndTeacherEdits(t *testing.T) {
	h := newCourseHarness(t)
	ctx := context.Background()
	subjects := NewSubjectService(repository.NewSubjectRepository(h.db), h.cache, h.validate, testLogger())
	uploads := NewUploadService(&storageStub{}, repository.NewUploadRepository(h.db), 5, testLogger())
	users := NewUserService(repository.NewUserRepository(h.db), uploads, h.cache, h.validate, testLogger())

	created, err := h.courses.Create(ctx, h.createRequest(dto.ScheduleInput{Date: "2025-03-01", StartTime: "09:00", EndTime: "11:00"}))
	require.NoError(t, err)
	_, err = h.courses.Get(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, h.redis.Exists("course:detail:"+itoa(created.ID)))

	name := "Advanced Programming"
	_, err = subjects.Update(ctx, h.subject.ID, dto.SubjectUpdateRequest{Name: &name})
	require.NoError(t, err)
	require.False(t, h.redis.Exists("course:detail:"+itoa(created.ID)))

	detail, err := h.courses.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, name, detail.Subject.Name)
	require.True(t, h.redis.Exists("course:detail:"+itoa(created.ID)))

	teacherName := "Dr. Renamed"
	_, err = users.Update(ctx, actorOf(h.admin), h.teacher.ID, dto.UserUpdateRequest{Name: &teacherName})
	require.NoError(t, err)
	require.False(t, h.redis.Exists("course:detail:"+itoa(created.ID)))

	detail, err = h.courses.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, teacherName, detail.Teacher.Name)
}
