package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/askmynotes-backend/internal/domain"
	"github.com/tbourn/askmynotes-backend/internal/llm"
	"github.com/tbourn/askmynotes-backend/internal/repo"
)

// ---------- database ----------

// newSvcDB opens a migrated, file-backed SQLite database. A single
// connection keeps background history writes from racing test queries.
func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedFile(t *testing.T, db *gorm.DB, owner, subject, name, text string, at time.Time) *domain.File {
	t.Helper()
	f := &domain.File{OwnerID: owner, SubjectID: subject, FileName: name, ExtractedText: text, SizeBytes: int64(len(text)), UploadedAt: at}
	if _, err := repo.ReplaceFile(context.Background(), db, f); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	return f
}

// sqlRepo forwards SubjectRepo to the repo package.
type sqlRepo struct{}

func (sqlRepo) ListSubjects(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.Subject, error) {
	return repo.ListSubjects(ctx, db, ownerID)
}
func (sqlRepo) ListFileMeta(ctx context.Context, db *gorm.DB, ownerID string) ([]repo.FileMeta, error) {
	return repo.ListFileMeta(ctx, db, ownerID)
}
func (sqlRepo) UpdateSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID string, p repo.SubjectPatch) error {
	return repo.UpdateSubject(ctx, db, ownerID, subjectID, p)
}
func (sqlRepo) GetSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID string) (*domain.Subject, error) {
	return repo.GetSubject(ctx, db, ownerID, subjectID)
}
func (sqlRepo) DeleteSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID string) ([]domain.File, error) {
	return repo.DeleteSubject(ctx, db, ownerID, subjectID)
}
func (sqlRepo) DeleteFiles(ctx context.Context, db *gorm.DB, ownerID, subjectID string) ([]domain.File, error) {
	return repo.DeleteFiles(ctx, db, ownerID, subjectID)
}
func (sqlRepo) DeleteFile(ctx context.Context, db *gorm.DB, ownerID, subjectID, fileName string) (*domain.File, error) {
	return repo.DeleteFile(ctx, db, ownerID, subjectID, fileName)
}
func (sqlRepo) GetFile(ctx context.Context, db *gorm.DB, ownerID, subjectID, fileName string) (*domain.File, error) {
	return repo.GetFile(ctx, db, ownerID, subjectID, fileName)
}
func (sqlRepo) CountHistory(ctx context.Context, db *gorm.DB, ownerID, subjectID string) (int64, error) {
	return repo.CountHistory(ctx, db, ownerID, subjectID)
}
func (sqlRepo) ListHistoryPage(ctx context.Context, db *gorm.DB, ownerID, subjectID string, offset, limit int) ([]domain.ChatHistoryEntry, error) {
	return repo.ListHistoryPage(ctx, db, ownerID, subjectID, offset, limit)
}

// ---------- fakes ----------

// fakeGen replays scripted outputs/errors in order; the last output repeats.
type fakeGen struct {
	mu      sync.Mutex
	outputs []string
	errs    []error
	reqs    []llm.Request
}

func (g *fakeGen) Generate(_ context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.reqs)
	g.reqs = append(g.reqs, req)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if len(g.outputs) == 0 {
		return "{}", nil
	}
	if i >= len(g.outputs) {
		i = len(g.outputs) - 1
	}
	return g.outputs[i], nil
}

func (g *fakeGen) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.reqs)
}

type genFunc func(ctx context.Context, req llm.Request) (string, error)

func (f genFunc) Generate(ctx context.Context, req llm.Request) (string, error) { return f(ctx, req) }

// fakeBlobs records puts and deletes.
type fakeBlobs struct {
	mu      sync.Mutex
	puts    []string
	deleted []string
	putErr  error
}

func (b *fakeBlobs) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if b.putErr != nil {
		return "", b.putErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ref := "gs://test-bucket/" + key
	b.puts = append(b.puts, ref)
	return ref, nil
}

func (b *fakeBlobs) Delete(_ context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, ref)
	return nil
}

// fakeInvalidator records invalidated subjects as "owner/subject".
type fakeInvalidator struct{ calls []string }

func (f *fakeInvalidator) Invalidate(_ context.Context, ownerID, subjectID string) {
	f.calls = append(f.calls, ownerID+"/"+subjectID)
}

func memFile(name, content string) UploadFile {
	return UploadFile{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
