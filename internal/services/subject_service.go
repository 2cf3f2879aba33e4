// Package services – SubjectService
//
// SubjectService manages subjects and their stored files outside the upload
// path: listing with nested file metadata, renaming, deleting whole subjects
// or single files, reading a file's extracted text, clearing a subject, and
// paging through its chat history.
//
// Every mutation of a subject's files also releases remote blobs and
// invalidates cached context for that subject, both best-effort.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/askmynotes-backend/internal/blob"
	"github.com/tbourn/askmynotes-backend/internal/domain"
	"github.com/tbourn/askmynotes-backend/internal/repo"
)

// SubjectRepo defines the repository contract required by SubjectService.
type SubjectRepo interface {
	// ListSubjects returns the owner's subjects, newest first.
	ListSubjects(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.Subject, error)
	// ListFileMeta returns file metadata for all of the owner's subjects in upload order.
	ListFileMeta(ctx context.Context, db *gorm.DB, ownerID string) ([]repo.FileMeta, error)
	// UpdateSubject patches a subject or returns repo.ErrNotFound.
	UpdateSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID string, p repo.SubjectPatch) error
	// GetSubject fetches one subject or returns repo.ErrNotFound.
	GetSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID string) (*domain.Subject, error)
	// DeleteSubject removes a subject and its files, returning the removed files.
	DeleteSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID string) ([]domain.File, error)
	// DeleteFiles removes every file of a subject.
	DeleteFiles(ctx context.Context, db *gorm.DB, ownerID, subjectID string) ([]domain.File, error)
	// DeleteFile removes one file or returns repo.ErrNotFound.
	DeleteFile(ctx context.Context, db *gorm.DB, ownerID, subjectID, fileName string) (*domain.File, error)
	// GetFile fetches one file (with text) or returns repo.ErrNotFound.
	GetFile(ctx context.Context, db *gorm.DB, ownerID, subjectID, fileName string) (*domain.File, error)
	// CountHistory counts a subject's history entries.
	CountHistory(ctx context.Context, db *gorm.DB, ownerID, subjectID string) (int64, error)
	// ListHistoryPage returns a page of a subject's history, newest first.
	ListHistoryPage(ctx context.Context, db *gorm.DB, ownerID, subjectID string, offset, limit int) ([]domain.ChatHistoryEntry, error)
}

// SubjectWithFiles is a subject together with its files in upload order.
type SubjectWithFiles struct {
	Subject domain.Subject
	Files   []repo.FileMeta
}

// SubjectPatch is a partial subject update; nil fields are left unchanged.
type SubjectPatch struct {
	Name  *string
	Icon  *string
	Color *string
}

// SubjectService provides subject-level operations.
type SubjectService struct {
	DB    *gorm.DB
	Repo  SubjectRepo
	Blobs blob.Store         // optional
	Cache ContextInvalidator // optional
}

// NewSubjectService constructs a SubjectService without optional integrations.
func NewSubjectService(db *gorm.DB, r SubjectRepo) *SubjectService {
	return &SubjectService{DB: db, Repo: r}
}

func (s *SubjectService) span(ctx context.Context, name, ownerID, subjectID string) (context.Context, trace.Span) {
	return otel.Tracer("services/SubjectService").Start(ctx, name,
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("subject.id", subjectID),
		),
	)
}

// List returns the owner's subjects, newest first, each with its files.
func (s *SubjectService) List(ctx context.Context, ownerID string) ([]SubjectWithFiles, error) {
	ctx, span := s.span(ctx, "List", ownerID, "")
	defer span.End()

	subjects, err := s.Repo.ListSubjects(ctx, s.DB, ownerID)
	if err != nil {
		return nil, err
	}
	metas, err := s.Repo.ListFileMeta(ctx, s.DB, ownerID)
	if err != nil {
		return nil, err
	}

	bySubject := make(map[string][]repo.FileMeta, len(subjects))
	for _, m := range metas {
		bySubject[m.SubjectID] = append(bySubject[m.SubjectID], m)
	}
	out := make([]SubjectWithFiles, 0, len(subjects))
	for _, sub := range subjects {
		files := bySubject[sub.SubjectID]
		if files == nil {
			files = []repo.FileMeta{}
		}
		out = append(out, SubjectWithFiles{Subject: sub, Files: files})
	}
	return out, nil
}

// Update patches a subject's display attributes. Blank values are rejected.
func (s *SubjectService) Update(ctx context.Context, ownerID, subjectID string, p SubjectPatch) (*domain.Subject, error) {
	subjectID = strings.TrimSpace(subjectID)
	ctx, span := s.span(ctx, "Update", ownerID, subjectID)
	defer span.End()

	var rp repo.SubjectPatch
	for _, f := range []struct {
		in  *string
		out **string
	}{{p.Name, &rp.Name}, {p.Icon, &rp.Icon}, {p.Color, &rp.Color}} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v == "" {
			return nil, ErrInvalidSubject
		}
		*f.out = &v
	}

	if err := s.Repo.UpdateSubject(ctx, s.DB, ownerID, subjectID, rp); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	return s.Repo.GetSubject(ctx, s.DB, ownerID, subjectID)
}

// Delete removes a subject and all of its files. Chat history is kept.
func (s *SubjectService) Delete(ctx context.Context, ownerID, subjectID string) error {
	subjectID = strings.TrimSpace(subjectID)
	ctx, span := s.span(ctx, "Delete", ownerID, subjectID)
	defer span.End()

	removed, err := s.Repo.DeleteSubject(ctx, s.DB, ownerID, subjectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrSubjectNotFound
		}
		return err
	}
	releaseBlobs(ctx, s.Blobs, removed)
	invalidate(ctx, s.Cache, ownerID, subjectID)
	return nil
}

// Clear removes every file of a subject but keeps the subject. Clearing an
// empty or unknown subject succeeds.
func (s *SubjectService) Clear(ctx context.Context, ownerID, subjectID string) (int, error) {
	subjectID = strings.TrimSpace(subjectID)
	ctx, span := s.span(ctx, "Clear", ownerID, subjectID)
	defer span.End()

	if subjectID == "" {
		return 0, ErrSubjectRequired
	}
	removed, err := s.Repo.DeleteFiles(ctx, s.DB, ownerID, subjectID)
	if err != nil {
		return 0, err
	}
	releaseBlobs(ctx, s.Blobs, removed)
	invalidate(ctx, s.Cache, ownerID, subjectID)
	span.SetAttributes(attribute.Int("files.removed", len(removed)))
	return len(removed), nil
}

// DeleteFile removes a single file from a subject.
func (s *SubjectService) DeleteFile(ctx context.Context, ownerID, subjectID, fileName string) error {
	subjectID = strings.TrimSpace(subjectID)
	fileName = strings.TrimSpace(fileName)
	ctx, span := s.span(ctx, "DeleteFile", ownerID, subjectID)
	defer span.End()

	f, err := s.Repo.DeleteFile(ctx, s.DB, ownerID, subjectID, fileName)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrFileNotFound
		}
		return err
	}
	releaseBlobs(ctx, s.Blobs, []domain.File{*f})
	invalidate(ctx, s.Cache, ownerID, subjectID)
	return nil
}

// FileContent returns the extracted text of one file.
func (s *SubjectService) FileContent(ctx context.Context, ownerID, subjectID, fileName string) (string, error) {
	subjectID = strings.TrimSpace(subjectID)
	fileName = strings.TrimSpace(fileName)
	ctx, span := s.span(ctx, "FileContent", ownerID, subjectID)
	defer span.End()

	f, err := s.Repo.GetFile(ctx, s.DB, ownerID, subjectID, fileName)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrFileNotFound
		}
		return "", err
	}
	return f.ExtractedText, nil
}

// HistoryPage returns a page of a subject's chat history, newest first, and
// the total count. History survives subject deletion, so an unknown subject
// simply yields an empty page.
func (s *SubjectService) HistoryPage(ctx context.Context, ownerID, subjectID string, page, pageSize int) ([]domain.ChatHistoryEntry, int64, error) {
	ctx, span := s.span(ctx, "HistoryPage", ownerID, subjectID)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := s.Repo.CountHistory(ctx, s.DB, ownerID, subjectID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatHistoryEntry{}, 0, nil
	}
	items, err := s.Repo.ListHistoryPage(ctx, s.DB, ownerID, subjectID, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Fingerprint summarizes the owner's subjects for conditional GETs.
func (s *SubjectService) Fingerprint(ctx context.Context, ownerID string) (subjects, files int64, latest *time.Time, err error) {
	return repo.SubjectsStats(ctx, s.DB, ownerID)
}

// Counts returns store-wide subject and file totals for the health endpoint.
func (s *SubjectService) Counts(ctx context.Context) (subjects, files int64, err error) {
	return repo.CountAll(ctx, s.DB)
}
