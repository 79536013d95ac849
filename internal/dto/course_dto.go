package dto

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/course-registration-api/internal/models"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// ScheduleInput is one dated slot supplied when creating a course or a schedule.
type ScheduleInput struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
	Room      string `json:"room" validate:"omitempty,max=64"`
	Note      string `json:"note" validate:"omitempty,max=1000"`
}

// CourseCreateRequest describes a new course with its initial slots.
type CourseCreateRequest struct {
	SubjectID   uint            `json:"subject_id" validate:"required"`
	TeacherID   uint            `json:"teacher_id" validate:"required"`
	Semester    int             `json:"semester" validate:"required,gte=1,lte=3"`
	Year        int             `json:"year" validate:"required,gte=2000,lte=2100"`
	Price       float64         `json:"price" validate:"gte=0"`
	PeriodCount int             `json:"period_count" validate:"gte=0"`
	Schedules   []ScheduleInput `json:"schedules" validate:"required,min=1,dive"`
}

// CourseUpdateRequest holds optional course changes.
type CourseUpdateRequest struct {
	SubjectID   *uint    `json:"subject_id" validate:"omitempty,gt=0"`
	TeacherID   *uint    `json:"teacher_id" validate:"omitempty,gt=0"`
	Semester    *int     `json:"semester" validate:"omitempty,gte=1,lte=3"`
	Year        *int     `json:"year" validate:"omitempty,gte=2000,lte=2100"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	PeriodCount *int     `json:"period_count" validate:"omitempty,gte=0"`
}

// CourseFilter describes query string filters for listing courses.
type CourseFilter struct {
	Year      *int  `query:"year" validate:"omitempty,gte=2000,lte=2100"`
	Semester  *int  `query:"semester" validate:"omitempty,gte=1,lte=3"`
	SubjectID *uint `query:"subject_id"`
	TeacherID *uint `query:"teacher_id"`
}

// ScheduleCreateRequest adds a slot to an existing course.
type ScheduleCreateRequest struct {
	CourseID uint `json:"course_id" validate:"required"`
	ScheduleInput
}

// ScheduleUpdateRequest holds optional slot changes.
type ScheduleUpdateRequest struct {
	Date      *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime *string `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime   *string `json:"end_time" validate:"omitempty,datetime=15:04"`
	Room      *string `json:"room" validate:"omitempty,max=64"`
	Note      *string `json:"note" validate:"omitempty,max=1000"`
}

// ScheduleResponse is the serialized slot.
type ScheduleResponse struct {
	ID        uint   `json:"id"`
	CourseID  uint   `json:"course_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Room      string `json:"room"`
	Note      string `json:"note"`
}

// CourseResponse is the serialized course with its subject, teacher and slots.
type CourseResponse struct {
	ID          uint               `json:"id"`
	Subject     SubjectResponse    `json:"subject"`
	Teacher     UserLite           `json:"teacher"`
	Semester    int                `json:"semester"`
	Year        int                `json:"year"`
	Price       float64            `json:"price"`
	PeriodCount int                `json:"period_count"`
	Schedules   []ScheduleResponse `json:"schedules"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// ParseScheduleInput converts wire values into a slot model.
func ParseScheduleInput(input ScheduleInput) (models.CourseSchedule, error) {
	day, err := time.Parse(DateLayout, input.Date)
	if err != nil {
		return models.CourseSchedule{}, fmt.Errorf("invalid date %q", input.Date)
	}
	start, err := ParseClock(input.StartTime)
	if err != nil {
		return models.CourseSchedule{}, err
	}
	end, err := ParseClock(input.EndTime)
	if err != nil {
		return models.CourseSchedule{}, err
	}

	return models.CourseSchedule{
		Date:      models.NewScheduleDate(day),
		StartTime: start,
		EndTime:   end,
		Room:      input.Room,
		Note:      input.Note,
	}, nil
}

// ParseClock parses an HH:MM value.
func ParseClock(value string) (datatypes.Time, error) {
	parsed, err := time.Parse(ClockLayout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return models.NewScheduleTime(parsed.Hour(), parsed.Minute()), nil
}

// FormatClock renders a time-of-day value as HH:MM.
func FormatClock(value datatypes.Time) string {
	d := time.Duration(value)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// NewScheduleResponse converts a model into a DTO.
func NewScheduleResponse(model models.CourseSchedule) ScheduleResponse {
	return ScheduleResponse{
		ID:        model.ID,
		CourseID:  model.CourseID,
		Date:      model.Day().Format(DateLayout),
		StartTime: FormatClock(model.StartTime),
		EndTime:   FormatClock(model.EndTime),
		Room:      model.Room,
		Note:      model.Note,
	}
}

// NewScheduleResponseSlice converts a slice of models into DTOs.
func NewScheduleResponseSlice(schedules []models.CourseSchedule) []ScheduleResponse {
	responses := make([]ScheduleResponse, 0, len(schedules))
	for _, schedule := range schedules {
		responses = append(responses, NewScheduleResponse(schedule))
	}
	return responses
}

// NewCourseResponse converts a model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	return CourseResponse{
		ID:          model.ID,
		Subject:     NewSubjectResponse(model.Subject),
		Teacher:     NewUserLite(model.Teacher),
		Semester:    model.Semester,
		Year:        model.Year,
		Price:       model.Price,
		PeriodCount: model.PeriodCount,
		Schedules:   NewScheduleResponseSlice(model.Schedules),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewCourseResponseSlice converts a slice of models into DTOs.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}
	return responses
}
