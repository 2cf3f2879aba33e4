// Package services – UploadService
//
// UploadService ingests a batch of note files into a subject. Files are
// processed one at a time and independently: one file's failure is reported
// in its own result entry and never aborts the batch.
//
// Per-file lifecycle:
//
//	received -> extracting -> {extracted | extraction_failed} -> persisted -> temp_cleaned
//
// temp_cleaned is reached on every path once a file was staged. Files rejected
// before staging (bad type, too large) never create a temp file.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/askmynotes-backend/internal/blob"
	"github.com/tbourn/askmynotes-backend/internal/domain"
	"github.com/tbourn/askmynotes-backend/internal/extract"
	"github.com/tbourn/askmynotes-backend/internal/observability"
	"github.com/tbourn/askmynotes-backend/internal/repo"
)

// Per-file outcome statuses.
const (
	FileStatusSuccess = "success"
	FileStatusError   = "error"
)

// User-facing per-file error messages.
const (
	msgUnsupportedType = "Unsupported file type. Allowed: PDF, TXT"
	msgNoText          = "No extractable text found in file"
	msgExtractFailed   = "Failed to extract text from file"
	msgSaveFailed      = "Failed to save file"
	msgReadFailed      = "Failed to read uploaded file"
	msgMissingName     = "File name is missing"
)

// UploadFile is one file of an upload batch. Open is called at most once.
type UploadFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FileResult reports the outcome for one file.
type FileResult struct {
	FileName string
	Status   string
	Length   int    // extracted characters, on success
	Error    string // on error
}

// UploadResult is the outcome of a whole batch.
type UploadResult struct {
	Subject *domain.Subject
	Files   []FileResult
}

// Succeeded counts successful files.
func (r *UploadResult) Succeeded() int {
	n := 0
	for _, f := range r.Files {
		if f.Status == FileStatusSuccess {
			n++
		}
	}
	return n
}

// UploadService coordinates extraction and persistence of uploaded files.
type UploadService struct {
	DB    *gorm.DB
	Blobs blob.Store         // optional raw-file copies
	Cache ContextInvalidator // optional

	TempDir      string // staging directory; os.TempDir() when empty
	MaxFiles     int    // per request; <= 0 means unlimited
	MaxFileBytes int64  // per file; <= 0 means unlimited
}

// Upload stores files under (ownerID, subjectID). The subject is created or
// renamed first: subjectName when given, otherwise "Subject <id>".
func (s *UploadService) Upload(ctx context.Context, ownerID, subjectID, subjectName string, files []UploadFile) (*UploadResult, error) {
	ctx, span := otel.Tracer("services/UploadService").Start(ctx, "Upload",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("subject.id", subjectID),
			attribute.Int("files", len(files)),
		),
	)
	defer span.End()

	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, ErrSubjectRequired
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if s.MaxFiles > 0 && len(files) > s.MaxFiles {
		return nil, fmt.Errorf("%w: at most %d per upload", ErrTooManyFiles, s.MaxFiles)
	}

	name := strings.TrimSpace(subjectName)
	if name == "" {
		name = "Subject " + subjectID
	}
	subject, err := repo.UpsertSubject(ctx, s.DB, ownerID, subjectID, name)
	if err != nil {
		return nil, err
	}

	tmpDir := s.TempDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	if err := os.MkdirAll(tmpDir, 0o700); err != nil {
		return nil, fmt.Errorf("prepare temp dir: %w", err)
	}

	res := &UploadResult{Subject: subject, Files: make([]FileResult, 0, len(files))}
	for _, f := range files {
		fr := s.ingest(ctx, tmpDir, ownerID, subjectID, f)
		observability.ObserveUpload(fr.Status == FileStatusSuccess, fr.Length)
		res.Files = append(res.Files, fr)
	}

	if res.Succeeded() > 0 {
		invalidate(ctx, s.Cache, ownerID, subjectID)
	}
	span.SetAttributes(attribute.Int("files.succeeded", res.Succeeded()))
	return res, nil
}

func (s *UploadService) ingest(ctx context.Context, tmpDir, ownerID, subjectID string, f UploadFile) FileResult {
	name := cleanFileName(f.Name)
	lg := log.With().Str("owner_id", ownerID).Str("subject_id", subjectID).Str("file_name", name).Logger()
	fail := func(msg string) FileResult {
		return FileResult{FileName: name, Status: FileStatusError, Error: msg}
	}

	lg.Debug().Str("state", "received").Int64("size", f.Size).Msg("upload")
	if name == "" {
		return fail(msgMissingName)
	}
	if !extract.Supported(name) {
		return fail(msgUnsupportedType)
	}
	if s.MaxFileBytes > 0 && f.Size > s.MaxFileBytes {
		return fail(s.tooLargeMessage())
	}

	tmpPath, size, err := s.stage(tmpDir, name, f)
	if tmpPath != "" {
		defer func() {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				lg.Warn().Err(rmErr).Msg("upload: temp cleanup failed")
			}
			lg.Debug().Str("state", "temp_cleaned").Msg("upload")
		}()
	}
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			return fail(s.tooLargeMessage())
		}
		lg.Warn().Err(err).Msg("upload: staging failed")
		return fail(msgReadFailed)
	}

	lg.Debug().Str("state", "extracting").Msg("upload")
	text, err := extract.File(ctx, tmpPath, name)
	if err != nil {
		lg.Debug().Str("state", "extraction_failed").Err(err).Msg("upload")
		switch {
		case errors.Is(err, extract.ErrUnsupportedType):
			return fail(msgUnsupportedType)
		case errors.Is(err, extract.ErrNoText):
			return fail(msgNoText)
		default:
			return fail(msgExtractFailed)
		}
	}
	lg.Debug().Str("state", "extracted").Int("chars", len([]rune(text))).Msg("upload")

	blobRef := s.putBlob(ctx, ownerID, subjectID, name, tmpPath, &lg)

	row := &domain.File{
		OwnerID:       ownerID,
		SubjectID:     subjectID,
		FileName:      name,
		ExtractedText: text,
		SizeBytes:     size,
		BlobRef:       blobRef,
	}
	replaced, err := repo.ReplaceFile(ctx, s.DB, row)
	if err != nil {
		lg.Error().Err(err).Msg("upload: persist failed")
		if blobRef != "" {
			releaseBlobs(ctx, s.Blobs, []domain.File{{FileName: name, BlobRef: blobRef}})
		}
		return fail(msgSaveFailed)
	}
	lg.Debug().Str("state", "persisted").Int("replaced", len(replaced)).Msg("upload")
	releaseBlobs(ctx, s.Blobs, replaced)

	return FileResult{FileName: name, Status: FileStatusSuccess, Length: len([]rune(text))}
}

var errFileTooLarge = errors.New("file too large")

// stage copies the upload into a fresh temp file. The returned path is set
// whenever a temp file was created, even on error, so the caller can remove
// it.
func (s *UploadService) stage(tmpDir, name string, f UploadFile) (path string, size int64, err error) {
	if f.Open == nil {
		return "", 0, errors.New("no content")
	}
	src, err := f.Open()
	if err != nil {
		return "", 0, err
	}
	defer src.Close()

	dst, err := os.CreateTemp(tmpDir, "upload-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return "", 0, err
	}
	path = dst.Name()

	var r io.Reader = src
	if s.MaxFileBytes > 0 {
		r = io.LimitReader(src, s.MaxFileBytes+1)
	}
	size, err = io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return path, size, err
	}
	if s.MaxFileBytes > 0 && size > s.MaxFileBytes {
		return path, size, errFileTooLarge
	}
	return path, size, nil
}

func (s *UploadService) putBlob(ctx context.Context, ownerID, subjectID, name, path string, lg *zerolog.Logger) string {
	if s.Blobs == nil {
		return ""
	}
	fh, err := os.Open(path)
	if err != nil {
		lg.Warn().Err(err).Msg("upload: reopen for blob failed")
		return ""
	}
	defer fh.Close()

	ref, err := s.Blobs.Put(ctx, blob.ObjectKey(ownerID, subjectID, name), fh, blob.ContentType(name))
	if err != nil {
		lg.Warn().Err(err).Msg("upload: blob copy failed, storing text only")
		return ""
	}
	return ref
}

func (s *UploadService) tooLargeMessage() string {
	return fmt.Sprintf("File exceeds the %s limit", humanBytes(s.MaxFileBytes))
}

// cleanFileName drops any directory part a client may send.
func cleanFileName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func humanBytes(n int64) string {
	const mib = 1 << 20
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%d MB", n/mib)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%d KB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
