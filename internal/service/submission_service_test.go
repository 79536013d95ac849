package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
)

func TestSubmissionServiceSubmitRules(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()
	lesson := h.lesson(t, h.course.ID)
	assignment := h.assignment(t, lesson.ID, "2025-03-05T17:00:00Z")
	student := actorOf(h.student)

	_, err := h.submissions.Submit(ctx, student, dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "answer"}, nil)
	require.ErrorIs(t, err, ErrForbidden)

	h.enroll(t, h.student.ID, h.course.ID)

	_, err = h.submissions.Submit(ctx, actorOf(h.teacher), dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "answer"}, nil)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = h.submissions.Submit(ctx, student, dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "<script></script>"}, nil)
	require.ErrorIs(t, err, ErrSubmissionEmpty)

	file := buildFileHeader(t, "answer.txt", []byte("my answer"))
	submitted, err := h.submissions.Submit(ctx, student, dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "see file"}, file)
	require.NoError(t, err)
	require.Equal(t, h.student.ID, submitted.Student.ID)
	require.Equal(t, "Homework", submitted.Assignment.Title)
	require.Contains(t, submitted.FileURL, "submission_file/")

	_, err = h.submissions.Submit(ctx, student, dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "again"}, nil)
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	_, err = h.submissions.Submit(ctx, student, dto.SubmissionCreateRequest{AssignmentID: 404, Content: "answer"}, nil)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestSubmissionServiceRejectsAfterDueDate(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()
	lesson := h.lesson(t, h.course.ID)
	assignment := h.assignment(t, lesson.ID, "2025-03-05T17:00:00Z")
	h.enroll(t, h.student.ID, h.course.ID)

	h.clock.Set(t, "2025-03-05T17:00:01Z")
	_, err := h.submissions.Submit(ctx, actorOf(h.student), dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "late"}, nil)
	require.ErrorIs(t, err, ErrSubmissionClosed)
}

func TestSubmissionServiceEditWindow(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()
	lesson := h.lesson(t, h.course.ID)
	assignment := h.assignment(t, lesson.ID, "2025-03-05T17:00:00Z")
	h.enroll(t, h.student.ID, h.course.ID)
	classmate := h.user(t, "classmate@example.com", models.RoleStudent)
	h.enroll(t, classmate.ID, h.course.ID)

	submitted, err := h.submissions.Submit(ctx, actorOf(h.student), dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "draft"}, nil)
	require.NoError(t, err)

	final := "final answer"
	updated, err := h.submissions.Update(ctx, actorOf(h.student), submitted.ID, dto.SubmissionUpdateRequest{Content: &final}, nil)
	require.NoError(t, err)
	require.Equal(t, final, updated.Content)

	_, err = h.submissions.Update(ctx, actorOf(classmate), submitted.ID, dto.SubmissionUpdateRequest{Content: &final}, nil)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = h.submissions.Get(ctx, actorOf(classmate), submitted.ID)
	require.ErrorIs(t, err, ErrForbidden)

	h.clock.Set(t, "2025-03-06T00:00:00Z")
	_, err = h.submissions.Update(ctx, actorOf(h.student), submitted.ID, dto.SubmissionUpdateRequest{Content: &final}, nil)
	require.ErrorIs(t, err, ErrSubmissionClosed)
	require.ErrorIs(t, h.submissions.Delete(ctx, actorOf(h.student), submitted.ID), ErrSubmissionClosed)

	late := "corrected by admin"
	adminEdit, err := h.submissions.Update(ctx, actorOf(h.admin), submitted.ID, dto.SubmissionUpdateRequest{Content: &late}, nil)
	require.NoError(t, err)
	require.Equal(t, late, adminEdit.Content)
}

func TestSubmissionServiceGradeAndList(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()
	lesson := h.lesson(t, h.course.ID)
	assignment := h.assignment(t, lesson.ID, "2025-03-05T17:00:00Z")
	h.enroll(t, h.student.ID, h.course.ID)
	classmate := h.user(t, "classmate@example.com", models.RoleStudent)
	h.enroll(t, classmate.ID, h.course.ID)

	first, err := h.submissions.Submit(ctx, actorOf(h.student), dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "one"}, nil)
	require.NoError(t, err)
	_, err = h.submissions.Submit(ctx, actorOf(classmate), dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "two"}, nil)
	require.NoError(t, err)

	_, err = h.submissions.Grade(ctx, actorOf(h.student), first.ID, dto.SubmissionGradeRequest{Grade: 100})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = h.submissions.Grade(ctx, actorOf(h.teacher), first.ID, dto.SubmissionGradeRequest{Grade: 101})
	require.Error(t, err)

	graded, err := h.submissions.Grade(ctx, actorOf(h.teacher), first.ID, dto.SubmissionGradeRequest{Grade: 87.5, Feedback: "Good"})
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	require.Equal(t, 87.5, *graded.Grade)
	require.Equal(t, h.teacher.ID, *graded.GradedBy)

	all, err := h.submissions.List(ctx, actorOf(h.teacher), dto.SubmissionFilter{AssignmentID: &assignment.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)

	own, err := h.submissions.List(ctx, actorOf(h.student), dto.SubmissionFilter{AssignmentID: &assignment.ID})
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, first.ID, own[0].ID)

	pending := false
	ungraded, err := h.submissions.List(ctx, actorOf(h.teacher), dto.SubmissionFilter{Graded: &pending})
	require.NoError(t, err)
	require.Len(t, ungraded, 1)
	require.Equal(t, classmate.ID, ungraded[0].StudentID)

	outsider := h.user(t, "outsider@example.com", models.RoleTeacher)
	none, err := h.submissions.List(ctx, actorOf(outsider), dto.SubmissionFilter{})
	require.NoError(t, err)
	require.Empty(t, none)

	require.NoError(t, h.submissions.Delete(ctx, actorOf(h.admin), first.ID))
	_, err = h.submissions.Get(ctx, actorOf(h.admin), first.ID)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}
