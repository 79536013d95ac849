package dto

import (
	"time"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// RegistrationOpenRequest opens a registration period. A nil UserID opens it
// for every student.
type RegistrationOpenRequest struct {
	UserID        *uint     `json:"user_id" validate:"omitempty,gt=0"`
	Year          int       `json:"year" validate:"required,gte=2000,lte=2100"`
	Semester      int       `json:"semester" validate:"required,gte=1,lte=3"`
	BeginRegister time.Time `json:"begin_register" validate:"required"`
	EndRegister   time.Time `json:"end_register" validate:"required,gtfield=BeginRegister"`
	DueDateStart  time.Time `json:"due_date_start" validate:"required"`
	DueDateEnd    time.Time `json:"due_date_end" validate:"required,gtfield=DueDateStart"`
}

// RegistrationFilter describes query string filters for the admin listing.
type RegistrationFilter struct {
	UserID   *uint  `query:"user_id"`
	Status   string `query:"status" validate:"omitempty,oneof=pending paid cancelled"`
	Year     *int   `query:"year" validate:"omitempty,gte=2000,lte=2100"`
	Semester *int   `query:"semester" validate:"omitempty,gte=1,lte=3"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// ClassMemberRequest names the course to add to or remove from the cart.
type ClassMemberRequest struct {
	CourseID uint `json:"course_id" validate:"required"`
}

// RegistrationResult carries the outcome of a cart or payment operation. Data
// is nil when the operation was rejected and Message explains why.
type RegistrationResult struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Rejected reports whether the operation did not take effect.
func (r RegistrationResult) Rejected() bool {
	return r.Data == nil
}

// RegistrationResponse is the serialized registration period.
type RegistrationResponse struct {
	ID            uint       `json:"id"`
	UserID        uint       `json:"user_id"`
	Year          int        `json:"year"`
	Semester      int        `json:"semester"`
	BeginRegister time.Time  `json:"begin_register"`
	EndRegister   time.Time  `json:"end_register"`
	DueDateStart  time.Time  `json:"due_date_start"`
	DueDateEnd    time.Time  `json:"due_date_end"`
	Tuition       float64    `json:"tuition"`
	Status        string     `json:"status"`
	StatusCode    string     `json:"status_code"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CartItemResponse is one course in the cart with its snapshot price.
type CartItemResponse struct {
	ID       uint           `json:"id"`
	CourseID uint           `json:"course_id"`
	Price    float64        `json:"price"`
	JoinedAt time.Time      `json:"joined_at"`
	Course   CourseResponse `json:"course"`
}

// CartResponse is the registration with its cart and running total.
type CartResponse struct {
	Registration RegistrationResponse `json:"registration"`
	Items        []CartItemResponse   `json:"items"`
	Total        float64              `json:"total"`
}

// RosterEntry is one paid member of a course.
type RosterEntry struct {
	UserID           uint      `json:"user_id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	RegisterCourseID uint      `json:"register_course_id"`
	JoinedAt         time.Time `json:"joined_at"`
}

// OpenRegistrationResponse summarizes a bulk open.
type OpenRegistrationResponse struct {
	Created []RegistrationResponse `json:"created"`
	Skipped []uint                 `json:"skipped"`
}

// NewRegistrationResponse converts a model into a DTO.
func NewRegistrationResponse(model models.RegisterCourse) RegistrationResponse {
	return RegistrationResponse{
		ID:            model.ID,
		UserID:        model.UserID,
		Year:          model.Year,
		Semester:      model.Semester,
		BeginRegister: model.BeginRegister,
		EndRegister:   model.EndRegister,
		DueDateStart:  model.DueDateStart,
		DueDateEnd:    model.DueDateEnd,
		Tuition:       model.Tuition,
		Status:        string(model.Status),
		StatusCode:    model.Status.Code(),
		PaidAt:        model.PaidAt,
		CreatedAt:     model.CreatedAt,
	}
}

// NewRegistrationResponseSlice converts a slice of models into DTOs.
func NewRegistrationResponseSlice(registrations []models.RegisterCourse) []RegistrationResponse {
	responses := make([]RegistrationResponse, 0, len(registrations))
	for _, registration := range registrations {
		responses = append(responses, NewRegistrationResponse(registration))
	}
	return responses
}

// NewCartResponse builds the cart view.
func NewCartResponse(registration models.RegisterCourse, members []models.ClassMember) CartResponse {
	items := make([]CartItemResponse, 0, len(members))
	for _, member := range members {
		items = append(items, CartItemResponse{
			ID:       member.ID,
			CourseID: member.CourseID,
			Price:    member.Price,
			JoinedAt: member.JoinedAt,
			Course:   NewCourseResponse(member.Course),
		})
	}

	return CartResponse{
		Registration: NewRegistrationResponse(registration),
		Items:        items,
		Total:        models.SumTuition(members),
	}
}

// NewRosterEntries converts paid members into roster rows.
func NewRosterEntries(members []models.ClassMember) []RosterEntry {
	entries := make([]RosterEntry, 0, len(members))
	for _, member := range members {
		entries = append(entries, RosterEntry{
			UserID:           member.UserID,
			Name:             member.User.Name,
			Email:            member.User.Email,
			RegisterCourseID: member.RegisterCourseID,
			JoinedAt:         member.JoinedAt,
		})
	}
	return entries
}
