// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// chat history.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/askmynotes-backend/internal/domain"
)

// CreateHistory inserts a history entry. ID and CreatedAt are assigned when
// empty. Entries are never updated afterwards.
func CreateHistory(ctx context.Context, db *gorm.DB, e *domain.ChatHistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(e).Error
}

// GetHistory fetches one entry owned by ownerID, or ErrNotFound.
func GetHistory(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.ChatHistoryEntry, error) {
	var e domain.ChatHistoryEntry
	err := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CountHistory returns the number of entries recorded for a subject.
func CountHistory(ctx context.Context, db *gorm.DB, ownerID, subjectID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatHistoryEntry{}).
		Where("owner_id = ? AND subject_id = ?", ownerID, subjectID).
		Count(&total).Error
	return total, err
}

// ListHistoryPage returns a page of a subject's history, newest first.
func ListHistoryPage(ctx context.Context, db *gorm.DB, ownerID, subjectID string, offset, limit int) ([]domain.ChatHistoryEntry, error) {
	var out []domain.ChatHistoryEntry
	err := db.WithContext(ctx).
		Where("owner_id = ? AND subject_id = ?", ownerID, subjectID).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
