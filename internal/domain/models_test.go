package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestTableNames(t *testing.T) {
	for got, want := range map[string]string{
		(Subject{}).TableName():          "subjects",
		(File{}).TableName():             "files",
		(ChatHistoryEntry{}).TableName(): "chat_history",
		(Idempotency{}).TableName():      "idempotency",
	} {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_IndexesAndDefaults(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Subject{}, &File{}, &ChatHistoryEntry{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for model, idx := range map[any]string{
		&Subject{}:          "ux_subject_owner_key",
		&File{}:             "ux_file_owner_subject_name",
		&ChatHistoryEntry{}: "idx_history_subject",
		&Idempotency{}:      "ux_user_scope_key",
	} {
		if !m.HasIndex(model, idx) {
			t.Fatalf("expected index %s on %T", idx, model)
		}
	}

	// Column defaults apply when the struct leaves them empty.
	if err := db.Omit("Icon", "Color").Create(&Subject{ID: "s-1", OwnerID: "u1", SubjectID: "bio101", Name: "Biology"}).Error; err != nil {
		t.Fatalf("insert subject: %v", err)
	}
	var s Subject
	if err := db.First(&s, "id = ?", "s-1").Error; err != nil {
		t.Fatalf("load subject: %v", err)
	}
	if s.Icon != DefaultSubjectIcon || s.Color != DefaultSubjectColor {
		t.Fatalf("defaults not applied: icon=%q color=%q", s.Icon, s.Color)
	}
}

func TestFile_UniquePerOwnerSubjectName(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&File{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	now := time.Now().UTC()
	mk := func(id, owner string) *File {
		return &File{ID: id, OwnerID: owner, SubjectID: "bio101", FileName: "cells.txt", ExtractedText: "x", UploadedAt: now}
	}
	if err := db.Create(mk("f1", "u1")).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := db.Create(mk("f2", "u1")).Error; err == nil {
		t.Fatalf("expected unique violation for same owner/subject/name")
	}
	if err := db.Create(mk("f3", "u2")).Error; err != nil {
		t.Fatalf("other owner should not collide: %v", err)
	}
}

func TestChatHistoryEntry_ResponseRoundTrip(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&ChatHistoryEntry{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	e := &ChatHistoryEntry{
		ID:        "h1",
		OwnerID:   "u1",
		SubjectID: "bio101",
		Question:  "What is ATP?",
		Response:  datatypes.JSON(`{"answer":"energy currency","confidence":"High"}`),
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("insert history: %v", err)
	}
	var got ChatHistoryEntry
	if err := db.First(&got, "id = ?", "h1").Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	if string(got.Response) != string(e.Response) {
		t.Fatalf("response mismatch: %s", got.Response)
	}
}
