// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for uploaded files
// and their extracted text.
//
// Ordering contract: FindFiles always returns files by UploadedAt ascending
// with ID as a tie-breaker, which is the order notes are assembled in.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/askmynotes-backend/internal/domain"
)

// FileMeta is a lightweight projection of a File without its extracted text.
type FileMeta struct {
	SubjectID  string
	FileName   string
	SizeBytes  int64
	UploadedAt time.Time
}

// FindFiles returns the files of a subject in assembly order. When fileName is
// non-empty only that file is returned (zero or one rows).
func FindFiles(ctx context.Context, db *gorm.DB, ownerID, subjectID, fileName string) ([]domain.File, error) {
	q := db.WithContext(ctx).Where("owner_id = ? AND subject_id = ?", ownerID, subjectID)
	if fileName != "" {
		q = q.Where("file_name = ?", fileName)
	}
	var out []domain.File
	err := q.Order("uploaded_at asc").Order("id asc").Find(&out).Error
	return out, err
}

// GetFile fetches one file by its owner-scoped key, or ErrNotFound.
func GetFile(ctx context.Context, db *gorm.DB, ownerID, subjectID, fileName string) (*domain.File, error) {
	var f domain.File
	err := db.WithContext(ctx).
		Where("owner_id = ? AND subject_id = ? AND file_name = ?", ownerID, subjectID, fileName).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ReplaceFile stores f, first deleting any existing file with the same
// (owner, subject, file name). Both steps run in one transaction so readers
// never observe two rows for the same name. The replaced rows are returned.
//
// ID and UploadedAt are assigned when empty.
func ReplaceFile(ctx context.Context, db *gorm.DB, f *domain.File) ([]domain.File, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}

	var replaced []domain.File
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		where := tx.Where("owner_id = ? AND subject_id = ? AND file_name = ?", f.OwnerID, f.SubjectID, f.FileName)
		if err := where.Find(&replaced).Error; err != nil {
			return err
		}
		if len(replaced) > 0 {
			if err := tx.Where("owner_id = ? AND subject_id = ? AND file_name = ?", f.OwnerID, f.SubjectID, f.FileName).
				Delete(&domain.File{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(f).Error
	})
	if err != nil {
		return nil, err
	}
	return replaced, nil
}

// DeleteFiles removes every file of a subject and returns the removed rows.
// Deleting from an empty subject is not an error.
func DeleteFiles(ctx context.Context, db *gorm.DB, ownerID, subjectID string) ([]domain.File, error) {
	var removed []domain.File
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "file_name", "blob_ref").
			Where("owner_id = ? AND subject_id = ?", ownerID, subjectID).
			Find(&removed).Error; err != nil {
			return err
		}
		return tx.Where("owner_id = ? AND subject_id = ?", ownerID, subjectID).Delete(&domain.File{}).Error
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// DeleteFile removes a single file and returns it, or ErrNotFound.
func DeleteFile(ctx context.Context, db *gorm.DB, ownerID, subjectID, fileName string) (*domain.File, error) {
	var removed *domain.File
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := GetFile(ctx, tx, ownerID, subjectID, fileName)
		if err != nil {
			return err
		}
		if err := tx.Delete(&domain.File{}, "id = ?", f.ID).Error; err != nil {
			return err
		}
		removed = f
		return nil
	})
	return removed, err
}

// ListFileMeta returns file metadata for all subjects of ownerID in upload
// order, without loading extracted text.
func ListFileMeta(ctx context.Context, db *gorm.DB, ownerID string) ([]FileMeta, error) {
	var out []FileMeta
	err := db.WithContext(ctx).
		Model(&domain.File{}).
		Select("subject_id", "file_name", "size_bytes", "uploaded_at").
		Where("owner_id = ?", ownerID).
		Order("uploaded_at asc").
		Order("id asc").
		Scan(&out).Error
	return out, err
}
