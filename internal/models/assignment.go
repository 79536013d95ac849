package models

import "time"

// AssignmentStatus is the stored or projected state of an assignment.
type AssignmentStatus string

const (
	AssignmentOpen    AssignmentStatus = "đang mở"
	AssignmentExpired AssignmentStatus = "đã hết hạn"
)

// Assignment belongs to a lesson and collects submissions until DueDateEnd.
type Assignment struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	LessonID     uint             `gorm:"not null;index" json:"lesson_id"`
	Title        string           `gorm:"size:255;not null" json:"title"`
	Description  string           `gorm:"type:text" json:"description"`
	DueDateStart time.Time        `gorm:"not null" json:"due_date_start"`
	DueDateEnd   time.Time        `gorm:"not null;index" json:"due_date_end"`
	Status       AssignmentStatus `gorm:"size:32;not null" json:"status"`
	CreatedBy    uint             `gorm:"not null" json:"created_by"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Lesson       Lesson           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Submissions  []Submission     `json:"-"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDateEnd)
}

// EffectiveStatus projects the status at the given time; expiry overrides
// whatever is stored.
func (a Assignment) EffectiveStatus(reference time.Time) AssignmentStatus {
	if a.IsPastDue(reference) {
		return AssignmentExpired
	}
	if a.Status == "" {
		return AssignmentOpen
	}
	return a.Status
}
