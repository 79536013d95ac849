package models

import "time"

// RegistrationStatus is the state of a registration period.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "đang chờ xử lý"
	RegistrationPaid      RegistrationStatus = "đã thanh toán"
	RegistrationCancelled RegistrationStatus = "đã hủy môn"
)

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationPaid, RegistrationCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s RegistrationStatus) Terminal() bool {
	switch s {
	case RegistrationPaid, RegistrationCancelled:
		return true
	default:
		return false
	}
}

// Code returns a stable ASCII identifier for metrics and events.
func (s RegistrationStatus) Code() string {
	switch s {
	case RegistrationPending:
		return "pending"
	case RegistrationPaid:
		return "paid"
	case RegistrationCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// RegisterCourse is a student's registration period. Its class members form
// the cart while the status is pending.
type RegisterCourse struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	UserID        uint               `gorm:"not null;index:idx_register_user_term" json:"user_id"`
	Year          int                `gorm:"not null;index:idx_register_user_term" json:"year"`
	Semester      int                `gorm:"not null;index:idx_register_user_term" json:"semester"`
	BeginRegister time.Time          `gorm:"not null" json:"begin_register"`
	EndRegister   time.Time          `gorm:"not null" json:"end_register"`
	DueDateStart  time.Time          `gorm:"not null" json:"due_date_start"`
	DueDateEnd    time.Time          `gorm:"not null" json:"due_date_end"`
	Tuition       float64            `gorm:"not null;default:0" json:"tuition"`
	Status        RegistrationStatus `gorm:"size:32;not null;index" json:"status"`
	PaidAt        *time.Time         `json:"paid_at"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	User          User               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ClassMembers  []ClassMember      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"class_members,omitempty"`
}

// InRegistrationWindow reports whether now lies in [BeginRegister, EndRegister].
func (r RegisterCourse) InRegistrationWindow(now time.Time) bool {
	return !now.Before(r.BeginRegister) && !now.After(r.EndRegister)
}

// InPaymentWindow reports whether now lies in [DueDateStart, DueDateEnd].
func (r RegisterCourse) InPaymentWindow(now time.Time) bool {
	return !now.Before(r.DueDateStart) && !now.After(r.DueDateEnd)
}

// Reconcile applies the lazy cancellation rule and reports whether the status
// changed. A pending registration is cancelled once the registration window
// has closed without a saved tuition, or once the payment window has closed.
// A saved registration deliberately outlives EndRegister so it can still be
// paid during a later payment window. Removing the last cart row clears the
// saved tuition, which makes an emptied cart eligible for cancellation again.
// Calling it again with the same or a later time is a no-op.
func Reconcile(reg *RegisterCourse, now time.Time) bool {
	if reg == nil || reg.Status != RegistrationPending {
		return false
	}

	expired := now.After(reg.DueDateEnd) || (now.After(reg.EndRegister) && reg.Tuition <= 0)
	if !expired {
		return false
	}

	reg.Status = RegistrationCancelled
	return true
}

// ClassMember is a course placed in a registration period's cart.
type ClassMember struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	RegisterCourseID uint      `gorm:"not null;uniqueIndex:idx_member_register_course" json:"register_course_id"`
	CourseID         uint      `gorm:"not null;uniqueIndex:idx_member_register_course;index" json:"course_id"`
	JoinedAt         time.Time `gorm:"not null" json:"joined_at"`
	Price            float64   `gorm:"not null;default:0" json:"price"`
	Course           Course    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"course"`
	User             User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// SumTuition totals the snapshot prices of the given cart rows.
func SumTuition(members []ClassMember) float64 {
	var total float64
	for _, member := range members {
		total += member.Price
	}
	return total
}
