package models

import "time"

// UploadKind tags what an uploaded file is attached to.
type UploadKind string

const (
	UploadLessonAttachment UploadKind = "lesson_attachment"
	UploadSubmissionFile   UploadKind = "submission_file"
	UploadAvatar           UploadKind = "avatar"
)

// UploadRecord stores metadata about uploaded files.
type UploadRecord struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	Kind      UploadKind `gorm:"size:32;not null" json:"kind"`
	FileName  string     `gorm:"size:255;not null" json:"file_name"`
	URL       string     `gorm:"size:512;not null" json:"url"`
	MimeType  string     `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes int64      `gorm:"not null" json:"size_bytes"`
	Checksum  string     `gorm:"size:128;index" json:"checksum"`
	CreatedAt time.Time  `json:"created_at"`
}
