// Package handlers exposes the notes assistant over HTTP.
//
// Handlers are transport-thin: they bind and validate input, call the
// application services through the interfaces below, and translate results
// and sentinel errors into JSON responses using the ErrorResponse envelope.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/askmynotes-backend/internal/domain"
	"github.com/tbourn/askmynotes-backend/internal/http/middleware"
	"github.com/tbourn/askmynotes-backend/internal/notes"
	"github.com/tbourn/askmynotes-backend/internal/services"
	"github.com/tbourn/askmynotes-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// Uploader ingests uploaded files into a subject.
type Uploader interface {
	Upload(ctx context.Context, ownerID, subjectID, subjectName string, files []services.UploadFile) (*services.UploadResult, error)
}

// SubjectService manages subjects, their files and their chat history.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SubjectService interface {
	List(ctx context.Context, ownerID string) ([]services.SubjectWithFiles, error)
	Update(ctx context.Context, ownerID, subjectID string, p services.SubjectPatch) (*domain.Subject, error)
	Delete(ctx context.Context, ownerID, subjectID string) error
	Clear(ctx context.Context, ownerID, subjectID string) (int, error)
	DeleteFile(ctx context.Context, ownerID, subjectID, fileName string) error
	FileContent(ctx context.Context, ownerID, subjectID, fileName string) (string, error)
	HistoryPage(ctx context.Context, ownerID, subjectID string, page, pageSize int) ([]domain.ChatHistoryEntry, int64, error)
	// Fingerprint summarizes the owner's library for ETag generation.
	Fingerprint(ctx context.Context, ownerID string) (subjects, files int64, latest *time.Time, err error)
	// Counts returns store-wide totals for the health endpoint.
	Counts(ctx context.Context) (subjects, files int64, err error)
}

// Assistant answers questions and produces study material from notes.
type Assistant interface {
	Chat(ctx context.Context, req services.ChatRequest) (*services.ChatReply, error)
	Study(ctx context.Context, req services.StudyRequest) (*notes.StudySet, error)
	// Replay returns a previously recorded answer for an idempotency key.
	Replay(ctx context.Context, ownerID, scope, key string) (*notes.Answer, bool, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the API.
type Handlers struct {
	uploads   Uploader
	subjects  SubjectService
	assistant Assistant
	started   time.Time
}

// New constructs a Handlers instance bound to the given services. The
// current time is taken as process start for the health endpoint.
func New(uploads Uploader, subjects SubjectService, assistant Assistant) *Handlers {
	return &Handlers{
		uploads:   uploads,
		subjects:  subjects,
		assistant: assistant,
		started:   time.Now(),
	}
}

// userID returns the caller identity resolved by middleware.Identity.
func userID(c *gin.Context) string { return middleware.UserID(c) }

//
// Shared DTOs
//

// subjectRef is a subject id taken from a JSON body. The web client sends
// numeric ids (0 included), so numbers are accepted and kept in their
// decimal form. null decodes to "".
type subjectRef string

func (r *subjectRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = subjectRef(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("subjectId must be a string or a number")
	}
	*r = subjectRef(n.String())
	return nil
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// clampPagination reads page and page_size from the query string.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(c.Query("page"), c.Query("page_size"), defaultPageSize, maxPageSize)
}

func newPagination(page, pageSize int, total int64) Pagination {
	pages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
	}
}
