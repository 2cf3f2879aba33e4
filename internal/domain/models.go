// Package domain defines the persistence models for subjects, uploaded note
// files, and chat history. These types are mapped with GORM and form the core
// data layer of the notes assistant.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Default presentation values applied to newly created subjects.
const (
	DefaultSubjectIcon  = "📘"
	DefaultSubjectColor = "s0"
)

// Subject is a user-named collection of uploaded files. Subjects are keyed by
// the client-chosen SubjectID within an owner, so the same SubjectID may exist
// independently for different owners.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - OwnerID / SubjectID: identity key, unique together.
//   - Name: display name, refreshed on every upload call.
//   - Icon / Color: presentation hints used by the web client.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//
// Subjects are hard-deleted so that the identity key can be reused.
type Subject struct {
	ID        string    `json:"-"          gorm:"type:char(36);primaryKey"`
	OwnerID   string    `json:"owner_id"   gorm:"type:varchar(64);not null;uniqueIndex:ux_subject_owner_key,priority:1"`
	SubjectID string    `json:"subject_id" gorm:"type:varchar(128);not null;uniqueIndex:ux_subject_owner_key,priority:2"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Icon      string    `json:"icon"       gorm:"type:varchar(32);not null;default:'📘'"`
	Color     string    `json:"color"      gorm:"type:varchar(32);not null;default:'s0'"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Subject.
func (Subject) TableName() string { return "subjects" }

// File is one uploaded document within a subject, holding the text extracted
// at upload time. (OwnerID, SubjectID, FileName) is unique: re-uploading a
// file with the same name replaces the previous row.
//
// UploadedAt defines the assembly order of a subject's notes; ID breaks ties.
type File struct {
	ID            string    `json:"id"          gorm:"type:char(36);primaryKey"`
	OwnerID       string    `json:"owner_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_file_owner_subject_name,priority:1;index:idx_file_order,priority:1"`
	SubjectID     string    `json:"subject_id"  gorm:"type:varchar(128);not null;uniqueIndex:ux_file_owner_subject_name,priority:2;index:idx_file_order,priority:2"`
	FileName      string    `json:"file_name"   gorm:"type:varchar(255);not null;uniqueIndex:ux_file_owner_subject_name,priority:3"`
	ExtractedText string    `json:"-"           gorm:"type:text;not null"`
	SizeBytes     int64     `json:"size_bytes"  gorm:"not null;default:0"`
	BlobRef       string    `json:"-"           gorm:"type:varchar(512)"` // optional remote copy, e.g. gs://bucket/key
	UploadedAt    time.Time `json:"uploaded_at" gorm:"not null;index:idx_file_order,priority:3"`
}

// TableName returns the database table name for File.
func (File) TableName() string { return "files" }

// ChatHistoryEntry is an append-only record of one answered question.
// Response holds the validated answer object exactly as returned to the client.
type ChatHistoryEntry struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	OwnerID   string         `json:"-"          gorm:"type:varchar(64);not null;index:idx_history_subject,priority:1"`
	SubjectID string         `json:"subject_id" gorm:"type:varchar(128);not null;index:idx_history_subject,priority:2"`
	Question  string         `json:"question"   gorm:"type:text;not null"`
	Response  datatypes.JSON `json:"response"   gorm:"not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_history_subject,priority:3"`
}

// TableName returns the database table name for ChatHistoryEntry.
func (ChatHistoryEntry) TableName() string { return "chat_history" }
