package dto

import (
	"time"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// UserCreateRequest is used by admins to create accounts of any role.
type UserCreateRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     int    `json:"role" validate:"required,oneof=1 2 3"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

// UserUpdateRequest holds optional profile changes.
type UserUpdateRequest struct {
	Name  *string `json:"name" validate:"omitnil,min=2,max=255"`
	Email *string `json:"email" validate:"omitnil,email"`
	Role  *int    `json:"role" validate:"omitempty,oneof=1 2 3"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
}

// UserFilter describes query string filters for listing users.
type UserFilter struct {
	Role     *int   `query:"role" validate:"omitempty,oneof=1 2 3"`
	Search   string `query:"search" validate:"omitempty,max=100"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// UserResponse is the public representation of an account.
type UserResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      int       `json:"role"`
	RoleName  string    `json:"role_name"`
	Phone     string    `json:"phone"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserLite summarizes a user inside other payloads.
type UserLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PageMeta describes a paginated listing.
type PageMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// NewUserResponse converts a model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:        model.ID,
		Name:      model.Name,
		Email:     model.Email,
		Role:      int(model.RoleID),
		RoleName:  model.RoleID.String(),
		Phone:     model.Phone,
		Avatar:    model.Avatar,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewUserResponseSlice converts a slice of models into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}
	return responses
}

// NewUserLite converts a model into its summary.
func NewUserLite(model models.User) UserLite {
	return UserLite{ID: model.ID, Name: model.Name, Email: model.Email}
}
