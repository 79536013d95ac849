package models

import "time"

// OTPPurpose scopes a one-time code to the flow that issued it.
type OTPPurpose string

const (
	OTPPurposeSignup        OTPPurpose = "signup"
	OTPPurposeResetPassword OTPPurpose = "reset_password"
)

// OTP stores a hashed one-time code sent by email.
type OTP struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Email      string     `gorm:"size:255;index:idx_otp_email_purpose;not null" json:"email"`
	Purpose    OTPPurpose `gorm:"size:32;index:idx_otp_email_purpose;not null" json:"purpose"`
	CodeHash   string     `gorm:"size:255;not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Usable reports whether the code is unconsumed and not yet expired.
func (o OTP) Usable(now time.Time) bool {
	return o.ConsumedAt == nil && now.Before(o.ExpiresAt)
}
