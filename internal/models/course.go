package models

import "time"

// Course is one opening of a subject taught by a teacher in a semester.
type Course struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	SubjectID   uint             `gorm:"not null;index" json:"subject_id"`
	TeacherID   uint             `gorm:"not null;index" json:"teacher_id"`
	Semester    int              `gorm:"not null;index:idx_course_term" json:"semester"`
	Year        int              `gorm:"not null;index:idx_course_term" json:"year"`
	Price       float64          `gorm:"not null;default:0" json:"price"`
	PeriodCount int              `gorm:"not null;default:0" json:"period_count"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Subject     Subject          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"subject"`
	Teacher     User             `gorm:"foreignKey:TeacherID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"teacher"`
	Schedules   []CourseSchedule `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"schedules"`
}
