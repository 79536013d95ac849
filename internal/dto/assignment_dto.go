package dto

import (
	"time"

	"github.com/noah-isme/course-registration-api/internal/models"
)

const isoLayout = time.RFC3339

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	LessonID     uint   `form:"lesson_id" json:"lesson_id" validate:"required,gt=0"`
	Title        string `form:"title" json:"title" validate:"required,min=3,max=255"`
	Description  string `form:"description" json:"description" validate:"omitempty,max=10000"`
	DueDateStart string `form:"due_date_start" json:"due_date_start" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	DueDateEnd   string `form:"due_date_end" json:"due_date_end" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// AssignmentUpdateRequest describes the payload for updating an assignment.
type AssignmentUpdateRequest struct {
	Title        *string `form:"title" json:"title" validate:"omitnil,min=3,max=255"`
	Description  *string `form:"description" json:"description" validate:"omitempty,max=10000"`
	DueDateStart *string `form:"due_date_start" json:"due_date_start" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	DueDateEnd   *string `form:"due_date_end" json:"due_date_end" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// AssignmentResponse is the serialized representation returned to API clients.
// Status is projected at read time.
type AssignmentResponse struct {
	ID           uint      `json:"id"`
	LessonID     uint      `json:"lesson_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	DueDateStart time.Time `json:"due_date_start"`
	DueDateEnd   time.Time `json:"due_date_end"`
	Status       string    `json:"status"`
	CreatedBy    uint      `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ParseISOTime parses an RFC3339 timestamp from a request.
func ParseISOTime(value string) (time.Time, error) {
	return time.Parse(isoLayout, value)
}

// NewAssignmentResponse converts a model into a DTO using now for the status.
func NewAssignmentResponse(model models.Assignment, now time.Time) AssignmentResponse {
	return AssignmentResponse{
		ID:           model.ID,
		LessonID:     model.LessonID,
		Title:        model.Title,
		Description:  model.Description,
		DueDateStart: model.DueDateStart,
		DueDateEnd:   model.DueDateEnd,
		Status:       string(model.EffectiveStatus(now)),
		CreatedBy:    model.CreatedBy,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment, now time.Time) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment, now))
	}

	return responses
}
