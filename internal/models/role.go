package models

import "strings"

// Role enumerates the account types recognised by the API.
type Role int

const (
	RoleAdmin   Role = 1
	RoleStudent Role = 2
	RoleTeacher Role = 3
)

// Roles lists every known role in ascending id order.
var Roles = []Role{RoleAdmin, RoleStudent, RoleTeacher}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStudent, RoleTeacher:
		return true
	default:
		return false
	}
}

// String returns the lowercase role name.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleStudent:
		return "student"
	case RoleTeacher:
		return "teacher"
	default:
		return "unknown"
	}
}

// ParseRole accepts either a role name or its numeric id.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "admin", "1":
		return RoleAdmin, true
	case "student", "2":
		return RoleStudent, true
	case "teacher", "3":
		return RoleTeacher, true
	default:
		return 0, false
	}
}

// RoleRecord is the persisted description of a role.
type RoleRecord struct {
	ID          Role   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name        string `gorm:"size:32;uniqueIndex;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
}

// TableName pins the table to "roles".
func (RoleRecord) TableName() string { return "roles" }

// DefaultRoleRecords returns the rows seeded at startup.
func DefaultRoleRecords() []RoleRecord {
	return []RoleRecord{
		{ID: RoleAdmin, Name: RoleAdmin.String(), Description: "Quản trị viên"},
		{ID: RoleStudent, Name: RoleStudent.String(), Description: "Sinh viên"},
		{ID: RoleTeacher, Name: RoleTeacher.String(), Description: "Giảng viên"},
	}
}
