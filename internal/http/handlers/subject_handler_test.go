package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/askmynotes-backend/internal/domain"
	"github.com/tbourn/askmynotes-backend/internal/http/middleware"
	"github.com/tbourn/askmynotes-backend/internal/repo"
	"github.com/tbourn/askmynotes-backend/internal/services"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestListSubjects_ShapeAndETag(t *testing.T) {
	latest := t0.Add(time.Hour)
	listCalls := 0
	subs := stubSubjects{
		fingerprint: func(_ context.Context, owner string) (int64, int64, *time.Time, error) {
			return 2, 1, &latest, nil
		},
		list: func(_ context.Context, owner string) ([]services.SubjectWithFiles, error) {
			listCalls++
			if owner != "u1" {
				t.Fatalf("owner=%q", owner)
			}
			return []services.SubjectWithFiles{
				{
					Subject: domain.Subject{SubjectID: "bio101", Name: "Biology", Icon: "📘", Color: "s0", CreatedAt: t0.Add(time.Minute)},
					Files:   []repo.FileMeta{{SubjectID: "bio101", FileName: "cells.txt", SizeBytes: 12, UploadedAt: latest}},
				},
				{Subject: domain.Subject{SubjectID: "7", Name: "Subject 7", CreatedAt: t0}},
			}, nil
		},
	}
	r := newTestRouter(New(stubUploader{}, subs, stubAssistant{}), nil)
	hdr := map[string]string{middleware.HeaderUserID: "u1"}

	w := doJSON(t, r, http.MethodGet, "/api/subjects", "", hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"subjects:u1:2:1:`) {
		t.Fatalf("unexpected ETag %q", etag)
	}

	list := decodeBody[[]SubjectResponse](t, w)
	if len(list) != 2 || list[0].SubjectID != "bio101" || len(list[0].Files) != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if f := list[0].Files[0]; f.Name != "cells.txt" || f.Size != 12 || !f.UploadedAt.Equal(latest) {
		t.Fatalf("unexpected file: %+v", f)
	}
	if list[1].Files == nil {
		t.Fatalf("files must be an empty array, not null")
	}
	if !strings.Contains(w.Body.String(), `"files":[]`) {
		t.Fatalf("expected empty files array: %s", w.Body.String())
	}

	// conditional GET
	hdr["If-None-Match"] = etag
	w = doJSON(t, r, http.MethodGet, "/api/subjects", "", hdr)
	if w.Code != http.StatusNotModified {
		t.Fatalf("status=%d want 304", w.Code)
	}
	if listCalls != 1 {
		t.Fatalf("304 must not load the list, calls=%d", listCalls)
	}
}

func TestListSubjects_EmptyAndErrors(t *testing.T) {
	subs := stubSubjects{}
	r := newTestRouter(New(stubUploader{}, subs, stubAssistant{}), nil)
	w := doJSON(t, r, http.MethodGet, "/api/subjects", "", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	subs = stubSubjects{
		fingerprint: func(context.Context, string) (int64, int64, *time.Time, error) {
			return 0, 0, nil, errors.New("stats down")
		},
		list: func(context.Context, string) ([]services.SubjectWithFiles, error) {
			return nil, errors.New("db down")
		},
	}
	r = newTestRouter(New(stubUploader{}, subs, stubAssistant{}), nil)
	w = doJSON(t, r, http.MethodGet, "/api/subjects", "", nil)
	expectError(t, w, http.StatusInternalServerError, ErrCodeListFailed)
	if w.Header().Get("ETag") != "" {
		t.Fatalf("no ETag when stats fail")
	}
}

func TestUpdateSubject(t *testing.T) {
	var gotPatch services.SubjectPatch
	subs := stubSubjects{update: func(_ context.Context, owner, subjectID string, p services.SubjectPatch) (*domain.Subject, error) {
		gotPatch = p
		switch subjectID {
		case "missing":
			return nil, services.ErrSubjectNotFound
		case "blank":
			return nil, services.ErrInvalidSubject
		case "boom":
			return nil, errors.New("db down")
		}
		return &domain.Subject{SubjectID: subjectID, Name: *p.Name, Icon: "📘", Color: "s0"}, nil
	}}
	r := newTestRouter(New(stubUploader{}, subs, stubAssistant{}), nil)

	w := doJSON(t, r, http.MethodPut, "/api/subjects/bio101", `{"name":"Biology II"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if gotPatch.Name == nil || *gotPatch.Name != "Biology II" || gotPatch.Icon != nil || gotPatch.Color != nil {
		t.Fatalf("unexpected patch: %+v", gotPatch)
	}
	s := decodeBody[SubjectSummary](t, w)
	if s.SubjectID != "bio101" || s.Name != "Biology II" {
		t.Fatalf("unexpected body: %+v", s)
	}
	if strings.Contains(w.Body.String(), `"files"`) {
		t.Fatalf("update response should not list files")
	}

	expectError(t, doJSON(t, r, http.MethodPut, "/api/subjects/missing", `{"name":"x"}`, nil), http.StatusNotFound, ErrCodeNotFound)
	expectError(t, doJSON(t, r, http.MethodPut, "/api/subjects/blank", `{"name":""}`, nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, doJSON(t, r, http.MethodPut, "/api/subjects/boom", `{"name":"x"}`, nil), http.StatusInternalServerError, ErrCodeInternal)
	expectError(t, doJSON(t, r, http.MethodPut, "/api/subjects/bio101", `not json`, nil), http.StatusBadRequest, ErrCodeBadRequest)
}

func TestDeleteSubject(t *testing.T) {
	subs := stubSubjects{del: func(_ context.Context, owner, subjectID string) error {
		if subjectID == "missing" {
			return services.ErrSubjectNotFound
		}
		return nil
	}}
	r := newTestRouter(New(stubUploader{}, subs, stubAssistant{}), nil)

	w := doJSON(t, r, http.MethodDelete, "/api/subjects/bio101", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if m := decodeBody[MessageResponse](t, w); m.Message != "Subject and associated files deleted" {
		t.Fatalf("message=%q", m.Message)
	}
	expectError(t, doJSON(t, r, http.MethodDelete, "/api/subjects/missing", "", nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestDeleteFileAndContent(t *testing.T) {
	var gotName string
	subs := stubSubjects{
		deleteFile: func(_ context.Context, owner, subjectID, fileName string) error {
			gotName = fileName
			if fileName == "gone.txt" {
				return services.ErrFileNotFound
			}
			return nil
		},
		fileContent: func(_ context.Context, owner, subjectID, fileName string) (string, error) {
			if fileName == "gone.txt" {
				return "", services.ErrFileNotFound
			}
			return "Cells are the unit of life.", nil
		},
	}
	r := newTestRouter(New(stubUploader{}, subs, stubAssistant{}), nil)

	w := doJSON(t, r, http.MethodDelete, "/api/subjects/bio101/files/lecture%201.pdf", "", nil)
	if w.Code != http.StatusOK || gotName != "lecture 1.pdf" {
		t.Fatalf("status=%d name=%q", w.Code, gotName)
	}
	if m := decodeBody[MessageResponse](t, w); m.Message != "File deleted" {
		t.Fatalf("message=%q", m.Message)
	}
	expectError(t, doJSON(t, r, http.MethodDelete, "/api/subjects/bio101/files/gone.txt", "", nil), http.StatusNotFound, ErrCodeNotFound)

	w = doJSON(t, r, http.MethodGet, "/api/subjects/bio101/files/cells.txt/content", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if c := decodeBody[FileContentResponse](t, w); c.Text != "Cells are the unit of life." {
		t.Fatalf("text=%q", c.Text)
	}
	expectError(t, doJSON(t, r, http.MethodGet, "/api/subjects/bio101/files/gone.txt/content", "", nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestSubjectHistory_Pagination(t *testing.T) {
	var gotPage, gotSize int
	subs := stubSubjects{history: func(_ context.Context, owner, subjectID string, page, pageSize int) ([]domain.ChatHistoryEntry, int64, error) {
		gotPage, gotSize = page, pageSize
		if subjectID == "empty" {
			return nil, 0, nil
		}
		return []domain.ChatHistoryEntry{{ID: "h2", SubjectID: subjectID, Question: "q2", Response: []byte(`{"answer":"a"}`)}}, 3, nil
	}}
	r := newTestRouter(New(stubUploader{}, subs, stubAssistant{}), nil)

	w := doJSON(t, r, http.MethodGet, "/api/subjects/bio101/history?page=2&page_size=1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if gotPage != 2 || gotSize != 1 {
		t.Fatalf("page=%d size=%d", gotPage, gotSize)
	}
	resp := decodeBody[HistoryResponse](t, w)
	if len(resp.Entries) != 1 || resp.Entries[0].Question != "q2" {
		t.Fatalf("entries: %+v", resp.Entries)
	}
	want := Pagination{Page: 2, PageSize: 1, Total: 3, TotalPages: 3, HasNext: true}
	if resp.Pagination != want {
		t.Fatalf("pagination=%+v want %+v", resp.Pagination, want)
	}

	w = doJSON(t, r, http.MethodGet, "/api/subjects/empty/history?page_size=500", "", nil)
	if gotSize != maxPageSize {
		t.Fatalf("page size not clamped: %d", gotSize)
	}
	if !strings.Contains(w.Body.String(), `"entries":[]`) {
		t.Fatalf("expected empty entries array: %s", w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	subs := stubSubjects{counts: func(context.Context) (int64, int64, error) { return 3, 12, nil }}
	r := newTestRouter(New(stubUploader{}, subs, stubAssistant{}), nil)

	w := doJSON(t, r, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	h := decodeBody[HealthResponse](t, w)
	if h.Status != "ok" || h.Subjects == nil || *h.Subjects != 3 || h.Files == nil || *h.Files != 12 || h.Uptime < 0 {
		t.Fatalf("unexpected health: %s", w.Body.String())
	}

	subs = stubSubjects{counts: func(context.Context) (int64, int64, error) { return 0, 0, errors.New("db down") }}
	r = newTestRouter(New(stubUploader{}, subs, stubAssistant{}), nil)
	w = doJSON(t, r, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health must stay 200, got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "subjects") || strings.Contains(body, "files") || !strings.Contains(body, "uptime") {
		t.Fatalf("counts should be omitted: %s", body)
	}
}
