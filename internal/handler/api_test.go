package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/service"
)

func TestProtectedRoutesRequireIdentity(t *testing.T) {
	h := newAPIHarness(t)

	status, body := h.do(t, nil, http.MethodGet, "/api/course", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.False(t, body.Success)

	status, body = h.do(t, nil, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Success)
}

func TestCourseCreateTeacherConflict(t *testing.T) {
	h := newAPIHarness(t)

	status, body := h.createCourse(t, h.teacher.ID, 500, "2025-03-03", "09:00", "11:00")
	require.Equal(t, http.StatusCreated, status, body.Message)

	status, body = h.createCourse(t, h.teacher.ID, 500, "2025-03-03", "10:00", "12:00")
	require.Equal(t, http.StatusConflict, status)
	require.False(t, body.Success)

	status, _ = h.createCourse(t, h.teacher.ID, 500, "2025-03-03", "11:00", "13:00")
	require.Equal(t, http.StatusCreated, status)

	var count int64
	require.NoError(t, h.db.Model(&models.Course{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestCourseCreateValidationAndRole(t *testing.T) {
	h := newAPIHarness(t)

	status, body := h.do(t, &h.admin, http.MethodPost, "/api/course", map[string]interface{}{
		"subject_id": h.subject.ID,
		"teacher_id": h.teacher.ID,
		"semester":   1,
		"year":       2025,
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "validation failed", body.Message)

	status, _ = h.do(t, &h.teacher, http.MethodPost, "/api/course", map[string]interface{}{})
	require.Equal(t, http.StatusForbidden, status)
}

func TestClassMemberRejectionCarriesNullData(t *testing.T) {
	h := newAPIHarness(t)

	status, body := h.createCourse(t, h.teacher.ID, 500, "2025-03-03", "09:00", "11:00")
	require.Equal(t, http.StatusCreated, status)
	courseID := decodeID(t, body.Data)

	status, body = h.do(t, &h.student, http.MethodPost, "/api/classmember", dto.ClassMemberRequest{CourseID: courseID})
	require.Equal(t, http.StatusBadRequest, status)
	require.False(t, body.Success)
	require.Equal(t, service.MsgNoRegistration, body.Message)
	require.JSONEq(t, "null", string(body.Data))

	status, _ = h.do(t, &h.admin, http.MethodPost, "/api/classmember", dto.ClassMemberRequest{CourseID: courseID})
	require.Equal(t, http.StatusForbidden, status)
}

func TestRegistrationFlowOverHTTP(t *testing.T) {
	h := newAPIHarness(t)

	status, body := h.createCourse(t, h.teacher.ID, 750, "2025-03-03", "09:00", "11:00")
	require.Equal(t, http.StatusCreated, status)
	courseID := decodeID(t, body.Data)

	now := time.Now().UTC()
	status, body = h.do(t, &h.admin, http.MethodPost, "/api/registercourse/open", map[string]interface{}{
		"user_id":        h.student.ID,
		"year":           2025,
		"semester":       1,
		"begin_register": now.Add(-time.Hour),
		"end_register":   now.Add(time.Hour),
		"due_date_start": now.Add(-time.Hour),
		"due_date_end":   now.Add(2 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, status, body.Message)

	status, body = h.do(t, &h.student, http.MethodPost, "/api/classmember", dto.ClassMemberRequest{CourseID: courseID})
	require.Equal(t, http.StatusOK, status, body.Message)
	require.True(t, body.Success)
	require.Equal(t, service.MsgMemberAdded, body.Message)

	status, body = h.do(t, &h.student, http.MethodPost, "/api/classmember", dto.ClassMemberRequest{CourseID: courseID})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, service.MsgDuplicateCourse, body.Message)

	status, body = h.do(t, &h.student, http.MethodGet, "/api/classmember", nil)
	require.Equal(t, http.StatusOK, status)
	var cart dto.CartResponse
	require.NoError(t, json.Unmarshal(body.Data, &cart))
	require.Len(t, cart.Items, 1)
	require.InDelta(t, 750, cart.Total, 0.001)

	status, body = h.do(t, &h.student, http.MethodPost, "/api/registercourse/save", nil)
	require.Equal(t, http.StatusOK, status, body.Message)

	status, body = h.do(t, &h.student, http.MethodPost, "/api/registercourse/pay", nil)
	require.Equal(t, http.StatusOK, status, body.Message)
	require.Equal(t, service.MsgPaid, body.Message)

	status, body = h.do(t, &h.student, http.MethodPost, "/api/registercourse/pay", nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.JSONEq(t, "null", string(body.Data))

	status, body = h.do(t, &h.admin, http.MethodGet, fmt.Sprintf("/api/course/%d/roster", courseID), nil)
	require.Equal(t, http.StatusOK, status)
	var roster []dto.RosterEntry
	require.NoError(t, json.Unmarshal(body.Data, &roster))
	require.Len(t, roster, 1)
	require.Equal(t, h.student.ID, roster[0].UserID)

	status, body = h.do(t, &h.student, http.MethodGet, "/api/course/enrolled", nil)
	require.Equal(t, http.StatusOK, status)
	var enrolled []dto.CourseResponse
	require.NoError(t, json.Unmarshal(body.Data, &enrolled))
	require.Len(t, enrolled, 1)
}

func TestRosterAccess(t *testing.T) {
	h := newAPIHarness(t)
	other := h.user(t, "other.teacher@example.com", models.RoleTeacher)

	status, body := h.createCourse(t, h.teacher.ID, 500, "2025-03-03", "09:00", "11:00")
	require.Equal(t, http.StatusCreated, status)
	courseID := decodeID(t, body.Data)
	path := fmt.Sprintf("/api/course/%d/roster", courseID)

	status, _ = h.do(t, &h.student, http.MethodGet, path, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = h.do(t, &other, http.MethodGet, path, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, body = h.do(t, &h.teacher, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, "[]", string(body.Data))
}

func TestLessonListRequiresEnrolment(t *testing.T) {
	h := newAPIHarness(t)

	status, body := h.createCourse(t, h.teacher.ID, 500, "2025-03-03", "09:00", "11:00")
	require.Equal(t, http.StatusCreated, status)
	courseID := decodeID(t, body.Data)
	path := fmt.Sprintf("/api/lesson?course_id=%d", courseID)

	status, _ = h.do(t, &h.student, http.MethodGet, path, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, body = h.do(t, &h.teacher, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, "[]", string(body.Data))

	status, _ = h.do(t, &h.teacher, http.MethodGet, "/api/lesson", nil)
	require.Equal(t, http.StatusBadRequest, status)
}
