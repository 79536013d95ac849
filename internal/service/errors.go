package service

import "errors"

var (
	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput wraps request values that pass tag validation but not domain parsing.
	ErrInvalidInput = errors.New("invalid input")

	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrOTPInvalid           = errors.New("otp is invalid or expired")
	ErrOTPCooldown          = errors.New("otp was requested too recently")
	ErrRoleNotFound         = errors.New("role not found")
	ErrSubjectNotFound      = errors.New("subject not found")
	ErrSubjectInUse         = errors.New("subject is used by a course")
	ErrSubjectCodeTaken     = errors.New("subject code already exists")
	ErrCourseNotFound       = errors.New("course not found")
	ErrCourseInUse          = errors.New("course has members or lessons")
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrScheduleConflict     = errors.New("schedule conflicts with the teacher's timetable")
	ErrLastSchedule         = errors.New("a course must keep at least one schedule")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationExists   = errors.New("a pending registration already exists for this term")
	ErrLessonNotFound       = errors.New("lesson not found")
	ErrAssignmentNotFound   = errors.New("assignment not found")
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrSubmissionClosed     = errors.New("assignment is no longer accepting submissions")
	ErrAlreadySubmitted     = errors.New("assignment already submitted")
	ErrSubmissionEmpty      = errors.New("submission needs content or a file")
)
