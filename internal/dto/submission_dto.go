package dto

import (
	"time"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// SubmissionCreateRequest describes the multipart payload for a submission.
// The file part is optional when Content is present.
type SubmissionCreateRequest struct {
	AssignmentID uint   `form:"assignment_id" validate:"required,gt=0"`
	Content      string `form:"content" validate:"omitempty,max=20000"`
}

// SubmissionUpdateRequest replaces the student's answer.
type SubmissionUpdateRequest struct {
	Content *string `form:"content" validate:"omitempty,max=20000"`
}

// SubmissionGradeRequest is used by a course manager to grade a submission.
type SubmissionGradeRequest struct {
	Grade    float64 `json:"grade" validate:"gte=0,lte=100"`
	Feedback string  `json:"feedback" validate:"omitempty,max=5000"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	AssignmentID *uint `query:"assignment_id"`
	StudentID    *uint `query:"student_id"`
	Graded       *bool `query:"graded"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint           `json:"id"`
	AssignmentID uint           `json:"assignment_id"`
	StudentID    uint           `json:"student_id"`
	Content      string         `json:"content"`
	FileURL      string         `json:"file_url"`
	Grade        *float64       `json:"grade"`
	Feedback     string         `json:"feedback"`
	GradedBy     *uint          `json:"graded_by"`
	GradedAt     *time.Time     `json:"graded_at"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Assignment   AssignmentLite `json:"assignment"`
	Student      UserLite       `json:"student"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	DueDateEnd time.Time `json:"due_date_end"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		Content:      model.Content,
		FileURL:      model.FileURL,
		Grade:        model.Grade,
		Feedback:     model.Feedback,
		GradedBy:     model.GradedBy,
		GradedAt:     model.GradedAt,
		SubmittedAt:  model.SubmittedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if model.Assignment.ID != 0 {
		response.Assignment = AssignmentLite{
			ID:         model.Assignment.ID,
			Title:      model.Assignment.Title,
			DueDateEnd: model.Assignment.DueDateEnd,
		}
	}

	if model.Student.ID != 0 {
		response.Student = NewUserLite(model.Student)
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
