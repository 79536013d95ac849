package dto

import (
	"time"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// LessonCreateRequest is the multipart payload for a new lesson. The
// attachment part is optional.
type LessonCreateRequest struct {
	CourseID uint   `form:"course_id" validate:"required,gt=0"`
	Title    string `form:"title" validate:"required,min=3,max=255"`
	Content  string `form:"content" validate:"omitempty,max=100000"`
}

// LessonUpdateRequest holds optional lesson changes.
type LessonUpdateRequest struct {
	Title   *string `form:"title" validate:"omitnil,min=3,max=255"`
	Content *string `form:"content" validate:"omitempty,max=100000"`
}

// LessonResponse is the serialized lesson.
type LessonResponse struct {
	ID            uint      `json:"id"`
	CourseID      uint      `json:"course_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	AttachmentURL string    `json:"attachment_url"`
	CreatedBy     uint      `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewLessonResponse converts a model into a DTO.
func NewLessonResponse(model models.Lesson) LessonResponse {
	return LessonResponse{
		ID:            model.ID,
		CourseID:      model.CourseID,
		Title:         model.Title,
		Content:       model.Content,
		AttachmentURL: model.AttachmentURL,
		CreatedBy:     model.CreatedBy,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

// NewLessonResponseSlice converts a slice of models into DTOs.
func NewLessonResponseSlice(lessons []models.Lesson) []LessonResponse {
	responses := make([]LessonResponse, 0, len(lessons))
	for _, lesson := range lessons {
		responses = append(responses, NewLessonResponse(lesson))
	}
	return responses
}

// UploadResponse describes a stored file.
type UploadResponse struct {
	ID        uint      `json:"id"`
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUploadResponse converts an upload record into a DTO.
func NewUploadResponse(model models.UploadRecord) UploadResponse {
	return UploadResponse{
		ID:        model.ID,
		URL:       model.URL,
		FileName:  model.FileName,
		MimeType:  model.MimeType,
		SizeBytes: model.SizeBytes,
		Checksum:  model.Checksum,
		CreatedAt: model.CreatedAt,
	}
}
