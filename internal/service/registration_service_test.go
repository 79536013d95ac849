package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/events"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

type registrationHarness struct {
	*serviceFixture
	svc      *registrationService
	clock    *testClock
	recorder *events.Recorder
	repo     repository.RegistrationRepository
}

func newRegistrationHarness(t *testing.T) *registrationHarness {
	t.Helper()
	f := newServiceFixture(t)
	recorder := &events.Recorder{}
	repo := repository.NewRegistrationRepository(f.db)
	svc := NewRegistrationService(
		repo,
		repository.NewCourseRepository(f.db),
		repository.NewUserRepository(f.db),
		f.policy(),
		recorder,
		f.validate,
		testLogger(),
	).(*registrationService)

	clock := &testClock{}
	clock.Set(t, "2025-01-05")
	svc.now = clock.Now

	return &registrationHarness{serviceFixture: f, svc: svc, clock: clock, recorder: recorder, repo: repo}
}

// open gives the student the registration window 2025-01-01..2025-01-10 and
// the payment window 2025-01-11..2025-01-31.
func (h *registrationHarness) open(t *testing.T) dto.RegistrationResponse {
	t.Helper()
	result, err := h.svc.Open(context.Background(), dto.RegistrationOpenRequest{
		UserID:        &h.student.ID,
		Year:          2025,
		Semester:      1,
		BeginRegister: mustTime(t, "2025-01-01"),
		EndRegister:   mustTime(t, "2025-01-10"),
		DueDateStart:  mustTime(t, "2025-01-11"),
		DueDateEnd:    mustTime(t, "2025-01-31"),
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	return result.Created[0]
}

func (h *registrationHarness) add(t *testing.T, courseID uint) dto.RegistrationResult {
	t.Helper()
	result, err := h.svc.AddClassMember(context.Background(), h.student.ID, dto.ClassMemberRequest{CourseID: courseID})
	require.NoError(t, err)
	return result
}

func TestAddClassMemberInsideRegistrationWindow(t *testing.T) {
	h := newRegistrationHarness(t)
	h.open(t)
	course := h.course(t, h.teacher.ID, 1500, slotAt(t, "2025-03-01", "09:00", "11:00"))

	result := h.add(t, course.ID)
	require.Equal(t, MsgMemberAdded, result.Message)
	require.False(t, result.Rejected())

	cart, ok := result.Data.(dto.CartResponse)
	require.True(t, ok)
	require.Len(t, cart.Items, 1)
	require.Equal(t, 1500.0, cart.Items[0].Price)
	require.Equal(t, 1500.0, cart.Total)
	require.Contains(t, h.recorder.Types(), events.ClassMemberAdded)
}

func TestAddClassMemberOutsideRegistrationWindow(t *testing.T) {
	h := newRegistrationHarness(t)
	registration := h.open(t)
	course := h.course(t, h.teacher.ID, 1500, slotAt(t, "2025-03-01", "09:00", "11:00"))

	h.clock.Set(t, "2025-01-15")
	result := h.add(t, course.ID)
	require.True(t, result.Rejected())
	require.Equal(t, MsgOutsideRegistration, result.Message)

	stored, err := h.repo.GetByID(context.Background(), registration.ID)
	require.NoError(t, err)
	require.Equal(t, models.RegistrationCancelled, stored.Status)
	require.Contains(t, h.recorder.Types(), events.RegistrationCancelled)
}

func TestAddThenRemoveRestoresCart(t *testing.T) {
	h := newRegistrationHarness(t)
	h.open(t)
	course := h.course(t, h.teacher.ID, 800, slotAt(t, "2025-03-02", "13:00", "15:00"))

	before, err := h.svc.Current(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Empty(t, before.Items)

	require.False(t, h.add(t, course.ID).Rejected())

	result, err := h.svc.RemoveClassMember(context.Background(), h.student.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, MsgMemberRemoved, result.Message)

	after, err := h.svc.Current(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Equal(t, before.Items, after.Items)
	require.Zero(t, after.Total)
}

func TestAddClassMemberRejectsDuplicateAndOverlap(t *testing.T) {
	h := newRegistrationHarness(t)
	h.open(t)
	other := h.user(t, "teacher2@example.com", models.RoleTeacher)

	base := h.course(t, h.teacher.ID, 1000, slotAt(t, "2025-03-01", "09:00", "11:00"))
	overlapping := h.course(t, other.ID, 1000, slotAt(t, "2025-03-01", "10:00", "12:00"))
	touching := h.course(t, other.ID, 1000, slotAt(t, "2025-03-01", "11:00", "13:00"))

	require.False(t, h.add(t, base.ID).Rejected())

	duplicate := h.add(t, base.ID)
	require.True(t, duplicate.Rejected())
	require.Equal(t, MsgDuplicateCourse, duplicate.Message)

	overlap := h.add(t, overlapping.ID)
	require.True(t, overlap.Rejected())
	require.Equal(t, MsgScheduleOverlap, overlap.Message)

	require.False(t, h.add(t, touching.ID).Rejected())

	cart, err := h.svc.Current(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
}

func TestAddClassMemberRejectsOtherTerm(t *testing.T) {
	h := newRegistrationHarness(t)
	h.open(t)

	course := models.Course{SubjectID: h.subject.ID, TeacherID: h.teacher.ID, Year: 2025, Semester: 2, Price: 10,
		Schedules: []models.CourseSchedule{slotAt(t, "2025-09-01", "09:00", "10:00")}}
	require.NoError(t, repository.NewCourseRepository(h.db).Create(context.Background(), &course, nil))

	result := h.add(t, course.ID)
	require.Equal(t, MsgWrongTerm, result.Message)
}

func TestAddClassMemberUnknownCourse(t *testing.T) {
	h := newRegistrationHarness(t)
	h.open(t)

	_, err := h.svc.AddClassMember(context.Background(), h.student.ID, dto.ClassMemberRequest{CourseID: 999})
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCartOperationsWithoutRegistration(t *testing.T) {
	h := newRegistrationHarness(t)

	result, err := h.svc.Save(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Equal(t, MsgNoRegistration, result.Message)

	_, err = h.svc.Current(context.Background(), h.student.ID)
	require.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestSaveThenPayTuition(t *testing.T) {
	h := newRegistrationHarness(t)
	registration := h.open(t)
	course := h.course(t, h.teacher.ID, 1200, slotAt(t, "2025-03-01", "07:00", "09:00"))
	require.False(t, h.add(t, course.ID).Rejected())

	early, err := h.svc.Pay(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Equal(t, MsgOutsidePayment, early.Message)

	saved, err := h.svc.Save(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Equal(t, MsgSaved, saved.Message)
	require.Equal(t, 1200.0, saved.Data.(dto.RegistrationResponse).Tuition)

	h.clock.Set(t, "2025-01-15")
	paid, err := h.svc.Pay(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Equal(t, MsgPaid, paid.Message)
	response := paid.Data.(dto.RegistrationResponse)
	require.Equal(t, registration.ID, response.ID)
	require.Equal(t, "paid", response.StatusCode)
	require.NotNil(t, response.PaidAt)

	again, err := h.svc.Pay(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.True(t, again.Rejected())
	require.Equal(t, MsgNotPending, again.Message)

	late := h.add(t, course.ID)
	require.Equal(t, MsgOutsideRegistration, late.Message)

	require.Equal(t,
		[]string{events.RegistrationOpened, events.ClassMemberAdded, events.RegistrationSaved, events.RegistrationPaid},
		h.recorder.Types())
}

func TestUnsavedRegistrationIsCancelledAfterWindow(t *testing.T) {
	h := newRegistrationHarness(t)
	h.open(t)
	course := h.course(t, h.teacher.ID, 500, slotAt(t, "2025-03-01", "07:00", "09:00"))
	require.False(t, h.add(t, course.ID).Rejected())

	h.clock.Set(t, "2025-01-15")
	result, err := h.svc.Pay(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Equal(t, MsgNotPending, result.Message)

	history, err := h.svc.History(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, string(models.RegistrationCancelled), history[0].Status)
}

func TestEmptiedSavedCartIsCancelledAfterWindow(t *testing.T) {
	h := newRegistrationHarness(t)
	h.open(t)
	course := h.course(t, h.teacher.ID, 800, slotAt(t, "2025-03-01", "07:00", "09:00"))
	require.False(t, h.add(t, course.ID).Rejected())

	saved, err := h.svc.Save(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Equal(t, MsgSaved, saved.Message)

	removed, err := h.svc.RemoveClassMember(context.Background(), h.student.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, MsgMemberRemoved, removed.Message)

	var stored models.RegisterCourse
	require.NoError(t, h.db.Where("user_id = ?", h.student.ID).First(&stored).Error)
	require.Zero(t, stored.Tuition)

	h.clock.Set(t, "2025-01-15")
	result, err := h.svc.Pay(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Equal(t, MsgNotPending, result.Message)

	history, err := h.svc.History(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, string(models.RegistrationCancelled), history[0].Status)
}

func TestPayRejectsZeroTuition(t *testing.T) {
	h := newRegistrationHarness(t)
	_, err := h.svc.Open(context.Background(), dto.RegistrationOpenRequest{
		UserID:        &h.student.ID,
		Year:          2025,
		Semester:      1,
		BeginRegister: mustTime(t, "2025-01-01"),
		EndRegister:   mustTime(t, "2025-01-10"),
		DueDateStart:  mustTime(t, "2025-01-02"),
		DueDateEnd:    mustTime(t, "2025-01-31"),
	})
	require.NoError(t, err)

	result, err := h.svc.Pay(context.Background(), h.student.ID)
	require.NoError(t, err)
	require.Equal(t, MsgZeroTuition, result.Message)
}

func TestOpenRegistrationForAllStudents(t *testing.T) {
	h := newRegistrationHarness(t)
	second := h.user(t, "student2@example.com", models.RoleStudent)
	h.open(t)

	result, err := h.svc.Open(context.Background(), dto.RegistrationOpenRequest{
		Year:          2025,
		Semester:      1,
		BeginRegister: mustTime(t, "2025-01-01"),
		EndRegister:   mustTime(t, "2025-01-10"),
		DueDateStart:  mustTime(t, "2025-01-11"),
		DueDateEnd:    mustTime(t, "2025-01-31"),
	})
	require.NoError(t, err)
	require.Equal(t, []uint{h.student.ID}, result.Skipped)
	require.Len(t, result.Created, 1)
	require.Equal(t, second.ID, result.Created[0].UserID)

	_, err = h.svc.Open(context.Background(), dto.RegistrationOpenRequest{
		UserID:        &h.student.ID,
		Year:          2025,
		Semester:      1,
		BeginRegister: mustTime(t, "2025-01-01"),
		EndRegister:   mustTime(t, "2025-01-10"),
		DueDateStart:  mustTime(t, "2025-01-11"),
		DueDateEnd:    mustTime(t, "2025-01-31"),
	})
	require.ErrorIs(t, err, ErrRegistrationExists)
}

func TestRosterListsPaidMembersForOwner(t *testing.T) {
	h := newRegistrationHarness(t)
	h.open(t)
	course := h.course(t, h.teacher.ID, 700, slotAt(t, "2025-03-03", "09:00", "11:00"))
	require.False(t, h.add(t, course.ID).Rejected())

	ctx := context.Background()
	roster, err := h.svc.Roster(ctx, actorOf(h.teacher), course.ID)
	require.NoError(t, err)
	require.Empty(t, roster)

	_, err = h.svc.Save(ctx, h.student.ID)
	require.NoError(t, err)
	h.clock.Set(t, "2025-01-12")
	paid, err := h.svc.Pay(ctx, h.student.ID)
	require.NoError(t, err)
	require.False(t, paid.Rejected())

	roster, err = h.svc.Roster(ctx, actorOf(h.teacher), course.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, h.student.Email, roster[0].Email)

	stranger := h.user(t, "other-teacher@example.com", models.RoleTeacher)
	_, err = h.svc.Roster(ctx, actorOf(stranger), course.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.Get(ctx, actorOf(stranger), paid.Data.(dto.RegistrationResponse).ID)
	require.ErrorIs(t, err, ErrForbidden)
}
