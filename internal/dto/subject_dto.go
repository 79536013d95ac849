package dto

import "github.com/noah-isme/course-registration-api/internal/models"

// SubjectCreateRequest describes a new catalogue subject.
type SubjectCreateRequest struct {
	Code        string `json:"code" validate:"required,min=2,max=32"`
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Credits     int    `json:"credits" validate:"gte=0,lte=20"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

// SubjectUpdateRequest holds optional subject changes.
type SubjectUpdateRequest struct {
	Code        *string `json:"code" validate:"omitnil,min=2,max=32"`
	Name        *string `json:"name" validate:"omitnil,min=2,max=255"`
	Credits     *int    `json:"credits" validate:"omitempty,gte=0,lte=20"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

// SubjectResponse is the serialized subject.
type SubjectResponse struct {
	ID          uint   `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Credits     int    `json:"credits"`
	Description string `json:"description"`
}

// RoleResponse is the serialized role.
type RoleResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewSubjectResponse converts a model into a DTO.
func NewSubjectResponse(model models.Subject) SubjectResponse {
	return SubjectResponse{
		ID:          model.ID,
		Code:        model.Code,
		Name:        model.Name,
		Credits:     model.Credits,
		Description: model.Description,
	}
}

// NewSubjectResponseSlice converts a slice of models into DTOs.
func NewSubjectResponseSlice(subjects []models.Subject) []SubjectResponse {
	responses := make([]SubjectResponse, 0, len(subjects))
	for _, subject := range subjects {
		responses = append(responses, NewSubjectResponse(subject))
	}
	return responses
}

// NewRoleResponse converts a role record into a DTO.
func NewRoleResponse(model models.RoleRecord) RoleResponse {
	return RoleResponse{ID: int(model.ID), Name: model.Name, Description: model.Description}
}
