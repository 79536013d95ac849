// Package models holds the persisted entities and the pure rules that act on
// them: schedule overlap, registration reconciliation and assignment expiry.
package models

// All lists every model managed by AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&RoleRecord{},
		&User{},
		&OTP{},
		&Subject{},
		&Course{},
		&CourseSchedule{},
		&RegisterCourse{},
		&ClassMember{},
		&Lesson{},
		&Assignment{},
		&Submission{},
		&UploadRecord{},
	}
}
