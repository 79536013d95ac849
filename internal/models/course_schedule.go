package models

import (
	"time"

	"gorm.io/datatypes"
)

// CourseSchedule is a single dated class meeting of a course.
type CourseSchedule struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CourseID  uint           `gorm:"not null;index" json:"course_id"`
	Date      datatypes.Date `gorm:"not null;index" json:"date"`
	StartTime datatypes.Time `gorm:"not null" json:"start_time"`
	EndTime   datatypes.Time `gorm:"not null" json:"end_time"`
	Room      string         `gorm:"size:64" json:"room"`
	Note      string         `gorm:"type:text" json:"note"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TimeRange is a half-open [Start, End) span measured from midnight.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

// Valid reports whether the range is non-empty.
func (r TimeRange) Valid() bool {
	return r.Start >= 0 && r.End <= 24*time.Hour && r.Start < r.End
}

// Overlaps reports whether two ranges intersect. Touching ranges do not.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && r.End > other.Start
}

// Range returns the slot's time span.
func (s CourseSchedule) Range() TimeRange {
	return TimeRange{Start: time.Duration(s.StartTime), End: time.Duration(s.EndTime)}
}

// Day returns the calendar date of the slot at midnight UTC.
func (s CourseSchedule) Day() time.Time {
	y, m, d := time.Time(s.Date).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether both slots fall on the same calendar date.
func (s CourseSchedule) SameDay(other CourseSchedule) bool {
	return s.Day().Equal(other.Day())
}

// ConflictsWith reports whether two slots share a date and overlapping times.
func (s CourseSchedule) ConflictsWith(other CourseSchedule) bool {
	return s.SameDay(other) && s.Range().Overlaps(other.Range())
}

// ScheduleConflict names the pair of slots that collide.
type ScheduleConflict struct {
	Candidate CourseSchedule
	Existing  CourseSchedule
}

// FindScheduleConflict returns the first candidate slot that collides with an
// existing slot or with an earlier candidate. Slots with the same non-zero ID
// are the same row and are never compared.
func FindScheduleConflict(candidates, existing []CourseSchedule) (ScheduleConflict, bool) {
	for i, candidate := range candidates {
		for j := 0; j < i; j++ {
			if candidate.ConflictsWith(candidates[j]) {
				return ScheduleConflict{Candidate: candidate, Existing: candidates[j]}, true
			}
		}
		for _, slot := range existing {
			if candidate.ID != 0 && candidate.ID == slot.ID {
				continue
			}
			if candidate.ConflictsWith(slot) {
				return ScheduleConflict{Candidate: candidate, Existing: slot}, true
			}
		}
	}

	return ScheduleConflict{}, false
}

// NewScheduleDate truncates t to its calendar date.
func NewScheduleDate(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// NewScheduleTime builds a time-of-day value.
func NewScheduleTime(hour, minute int) datatypes.Time {
	return datatypes.NewTime(hour, minute, 0, 0)
}
