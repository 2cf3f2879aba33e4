// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) and the health endpoint.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/askmynotes-backend/internal/domain"
)

// SubjectsStats returns aggregate metadata for an owner's library: the number
// of subjects and files, and the latest change among subject updates and file
// uploads. latest is nil when the owner has neither.
func SubjectsStats(ctx context.Context, db *gorm.DB, ownerID string) (subjects, files int64, latest *time.Time, err error) {
	sq := func() *gorm.DB { return db.WithContext(ctx).Model(&domain.Subject{}).Where("owner_id = ?", ownerID) }
	fq := func() *gorm.DB { return db.WithContext(ctx).Model(&domain.File{}).Where("owner_id = ?", ownerID) }

	if err = sq().Count(&subjects).Error; err != nil {
		return 0, 0, nil, err
	}
	if err = fq().Count(&files).Error; err != nil {
		return 0, 0, nil, err
	}

	// Latest timestamps (avoid MAX() -> TEXT in SQLite)
	if subjects > 0 {
		var row struct{ UpdatedAt time.Time }
		if err = sq().Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
			return 0, 0, nil, err
		}
		latest = &row.UpdatedAt
	}
	if files > 0 {
		var row struct{ UploadedAt time.Time }
		if err = fq().Select("uploaded_at").Order("uploaded_at DESC").Limit(1).Scan(&row).Error; err != nil {
			return 0, 0, nil, err
		}
		if latest == nil || row.UploadedAt.After(*latest) {
			latest = &row.UploadedAt
		}
	}
	return subjects, files, latest, nil
}

// CountAll returns the total number of subjects and files across all owners.
func CountAll(ctx context.Context, db *gorm.DB) (subjects, files int64, err error) {
	if err = db.WithContext(ctx).Model(&domain.Subject{}).Count(&subjects).Error; err != nil {
		return 0, 0, err
	}
	if err = db.WithContext(ctx).Model(&domain.File{}).Count(&files).Error; err != nil {
		return 0, 0, err
	}
	return subjects, files, nil
}
