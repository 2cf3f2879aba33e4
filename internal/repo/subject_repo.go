// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Subject
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only persistence
// and query composition. Every query is scoped by owner.
//
// Error semantics:
//   - When a subject is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/askmynotes-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// SubjectPatch carries optional subject attribute updates. Nil fields are
// left untouched.
type SubjectPatch struct {
	Name  *string
	Icon  *string
	Color *string
}

// UpsertSubject creates the subject identified by (ownerID, subjectID) or, if
// it already exists, refreshes its display name. The stored row is returned.
func UpsertSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID, name string) (*domain.Subject, error) {
	now := time.Now().UTC()
	s := &domain.Subject{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		SubjectID: subjectID,
		Name:      name,
		Icon:      domain.DefaultSubjectIcon,
		Color:     domain.DefaultSubjectColor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "subject_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(s).Error
	if err != nil {
		return nil, err
	}
	return GetSubject(ctx, db, ownerID, subjectID)
}

// GetSubject fetches a subject by its owner-scoped key, or ErrNotFound.
func GetSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID string) (*domain.Subject, error) {
	var s domain.Subject
	err := db.WithContext(ctx).
		Where("owner_id = ? AND subject_id = ?", ownerID, subjectID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSubjects returns all subjects of ownerID, most recently created first.
func ListSubjects(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.Subject, error) {
	var out []domain.Subject
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Order("id").
		Find(&out).Error
	return out, err
}

// UpdateSubject applies a patch to an existing subject. It returns ErrNotFound
// when no subject matches. An empty patch only verifies existence.
func UpdateSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID string, p SubjectPatch) error {
	updates := map[string]any{}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Icon != nil {
		updates["icon"] = *p.Icon
	}
	if p.Color != nil {
		updates["color"] = *p.Color
	}
	if len(updates) == 0 {
		_, err := GetSubject(ctx, db, ownerID, subjectID)
		return err
	}
	updates["updated_at"] = time.Now().UTC()

	res := db.WithContext(ctx).
		Model(&domain.Subject{}).
		Where("owner_id = ? AND subject_id = ?", ownerID, subjectID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSubject removes a subject together with all of its files in one
// transaction and returns the deleted file rows so callers can release any
// remote blobs. Chat history is kept. Returns ErrNotFound when the subject
// does not exist.
func DeleteSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID string) ([]domain.File, error) {
	var removed []domain.File
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("owner_id = ? AND subject_id = ?", ownerID, subjectID).Delete(&domain.Subject{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		files, err := DeleteFiles(ctx, tx, ownerID, subjectID)
		if err != nil {
			return err
		}
		removed = files
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
