package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/askmynotes-backend/internal/domain"
	"github.com/tbourn/askmynotes-backend/internal/http/middleware"
	"github.com/tbourn/askmynotes-backend/internal/notes"
	"github.com/tbourn/askmynotes-backend/internal/services"
)

// ---------- service stubs ----------

type stubUploader struct {
	upload func(ctx context.Context, owner, subjectID, subjectName string, files []services.UploadFile) (*services.UploadResult, error)
}

func (s stubUploader) Upload(ctx context.Context, owner, subjectID, subjectName string, files []services.UploadFile) (*services.UploadResult, error) {
	if s.upload != nil {
		return s.upload(ctx, owner, subjectID, subjectName, files)
	}
	return &services.UploadResult{}, nil
}

type stubSubjects struct {
	list        func(ctx context.Context, owner string) ([]services.SubjectWithFiles, error)
	update      func(ctx context.Context, owner, subjectID string, p services.SubjectPatch) (*domain.Subject, error)
	del         func(ctx context.Context, owner, subjectID string) error
	clear       func(ctx context.Context, owner, subjectID string) (int, error)
	deleteFile  func(ctx context.Context, owner, subjectID, fileName string) error
	fileContent func(ctx context.Context, owner, subjectID, fileName string) (string, error)
	history     func(ctx context.Context, owner, subjectID string, page, pageSize int) ([]domain.ChatHistoryEntry, int64, error)
	fingerprint func(ctx context.Context, owner string) (int64, int64, *time.Time, error)
	counts      func(ctx context.Context) (int64, int64, error)
}

func (s stubSubjects) List(ctx context.Context, owner string) ([]services.SubjectWithFiles, error) {
	if s.list != nil {
		return s.list(ctx, owner)
	}
	return nil, nil
}

func (s stubSubjects) Update(ctx context.Context, owner, subjectID string, p services.SubjectPatch) (*domain.Subject, error) {
	if s.update != nil {
		return s.update(ctx, owner, subjectID, p)
	}
	return &domain.Subject{SubjectID: subjectID}, nil
}

func (s stubSubjects) Delete(ctx context.Context, owner, subjectID string) error {
	if s.del != nil {
		return s.del(ctx, owner, subjectID)
	}
	return nil
}

func (s stubSubjects) Clear(ctx context.Context, owner, subjectID string) (int, error) {
	if s.clear != nil {
		return s.clear(ctx, owner, subjectID)
	}
	return 0, nil
}

func (s stubSubjects) DeleteFile(ctx context.Context, owner, subjectID, fileName string) error {
	if s.deleteFile != nil {
		return s.deleteFile(ctx, owner, subjectID, fileName)
	}
	return nil
}

func (s stubSubjects) FileContent(ctx context.Context, owner, subjectID, fileName string) (string, error) {
	if s.fileContent != nil {
		return s.fileContent(ctx, owner, subjectID, fileName)
	}
	return "", nil
}

func (s stubSubjects) HistoryPage(ctx context.Context, owner, subjectID string, page, pageSize int) ([]domain.ChatHistoryEntry, int64, error) {
	if s.history != nil {
		return s.history(ctx, owner, subjectID, page, pageSize)
	}
	return nil, 0, nil
}

func (s stubSubjects) Fingerprint(ctx context.Context, owner string) (int64, int64, *time.Time, error) {
	if s.fingerprint != nil {
		return s.fingerprint(ctx, owner)
	}
	return 0, 0, nil, nil
}

func (s stubSubjects) Counts(ctx context.Context) (int64, int64, error) {
	if s.counts != nil {
		return s.counts(ctx)
	}
	return 0, 0, nil
}

type stubAssistant struct {
	chat   func(ctx context.Context, req services.ChatRequest) (*services.ChatReply, error)
	study  func(ctx context.Context, req services.StudyRequest) (*notes.StudySet, error)
	replay func(ctx context.Context, owner, scope, key string) (*notes.Answer, bool, error)
}

func (s stubAssistant) Chat(ctx context.Context, req services.ChatRequest) (*services.ChatReply, error) {
	if s.chat != nil {
		return s.chat(ctx, req)
	}
	return &services.ChatReply{NotFound: true, SubjectName: "Subject"}, nil
}

func (s stubAssistant) Study(ctx context.Context, req services.StudyRequest) (*notes.StudySet, error) {
	if s.study != nil {
		return s.study(ctx, req)
	}
	return &notes.StudySet{MCQs: []notes.MCQ{}, ShortAnswer: []notes.ShortAnswer{}}, nil
}

func (s stubAssistant) Replay(ctx context.Context, owner, scope, key string) (*notes.Answer, bool, error) {
	if s.replay != nil {
		return s.replay(ctx, owner, scope, key)
	}
	return nil, false, nil
}

// ---------- router + request helpers ----------

// newTestRouter mounts every handler the way the production router does,
// minus rate limiting and observability.
func newTestRouter(h *Handlers, lookup middleware.IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Identity())

	api := r.Group("/api")
	api.POST("/upload", h.Upload)
	api.POST("/clear-subject", h.ClearSubject)
	api.POST("/chat", middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, lookup), h.Chat)
	api.POST("/study-mode", h.StudyMode)
	api.GET("/subjects", h.ListSubjects)
	api.PUT("/subjects/:subjectId", h.UpdateSubject)
	api.DELETE("/subjects/:subjectId", h.DeleteSubject)
	api.DELETE("/subjects/:subjectId/files/:fileName", h.DeleteFile)
	api.GET("/subjects/:subjectId/files/:fileName/content", h.FileContent)
	api.GET("/subjects/:subjectId/history", h.SubjectHistory)
	api.GET("/health", h.Health)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d body=%s", w.Code, status, w.Body.String())
	}
	er := decodeBody[ErrorResponse](t, w)
	if er.Code != code {
		t.Fatalf("code=%q want %q (message %q)", er.Code, code, er.Message)
	}
	if er.RequestID == "" {
		t.Fatalf("request_id missing from envelope")
	}
	return er
}
