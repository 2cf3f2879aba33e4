// Subject HTTP handlers.
//
//   - GET    /subjects                                   (list with files, ETag support)
//   - PUT    /subjects/{subjectId}                       (rename / restyle)
//   - DELETE /subjects/{subjectId}                       (subject and its files)
//   - DELETE /subjects/{subjectId}/files/{fileName}      (single file)
//   - GET    /subjects/{subjectId}/files/{fileName}/content
//   - GET    /subjects/{subjectId}/history               (paginated chat history)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/askmynotes-backend/internal/domain"
	"github.com/tbourn/askmynotes-backend/internal/http/middleware"
	"github.com/tbourn/askmynotes-backend/internal/services"
)

//
// DTOs
//

// SubjectFile is the file listing entry of a subject.
type SubjectFile struct {
	Name       string    `json:"name" example:"respiration.pdf"`
	UploadedAt time.Time `json:"uploadedAt"`
	Size       int64     `json:"size" example:"48213"`
}

// SubjectSummary describes a subject without its files.
type SubjectSummary struct {
	SubjectID string    `json:"subjectId" example:"bio101"`
	Name      string    `json:"name" example:"Biology 101"`
	Icon      string    `json:"icon" example:"📘"`
	Color     string    `json:"color" example:"s0"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SubjectResponse is a subject with its files in upload order.
type SubjectResponse struct {
	SubjectSummary
	Files []SubjectFile `json:"files"`
}

// UpdateSubjectRequest is a partial update; omitted fields are unchanged.
type UpdateSubjectRequest struct {
	Name  *string `json:"name,omitempty" example:"Biology 102"`
	Icon  *string `json:"icon,omitempty" example:"🧬"`
	Color *string `json:"color,omitempty" example:"s3"`
}

// MessageResponse is the acknowledgement returned by delete routes.
type MessageResponse struct {
	Message string `json:"message" example:"File deleted"`
}

// FileContentResponse carries the extracted text of a file.
type FileContentResponse struct {
	Text string `json:"text"`
}

// HistoryResponse wraps a page of chat history and pagination information.
type HistoryResponse struct {
	Entries    []domain.ChatHistoryEntry `json:"entries"`
	Pagination Pagination                `json:"pagination"`
}

func summaryOf(s domain.Subject) SubjectSummary {
	return SubjectSummary{
		SubjectID: s.SubjectID,
		Name:      s.Name,
		Icon:      s.Icon,
		Color:     s.Color,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

//
// Handlers
//

// ListSubjects godoc
// @ID          listSubjects
// @Summary     List subjects
// @Description Returns the caller's subjects, newest first, each with its files. Supports weak ETag via If-None-Match.
// @Tags        Subjects
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"subjects:user123:1:2:1700000000\")
//
// @Success     200  {array}   handlers.SubjectResponse
// @Header      200  {string}  ETag           "Weak ETag for current result"
// @Header      200  {string}  Cache-Control  "private, no-cache (revalidate with If-None-Match)"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /subjects [get]
func (h *Handlers) ListSubjects(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// ETag pre-check (best effort).
	if subjects, files, latest, err := h.subjects.Fingerprint(ctx, uid); err == nil {
		var ts int64
		if latest != nil {
			ts = latest.UnixNano()
		}
		etag := fmt.Sprintf(`W/"subjects:%s:%d:%d:%d"`, uid, subjects, files, ts)
		c.Header("ETag", etag)
		c.Header("Cache-Control", "private, no-cache")
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	list, err := h.subjects.List(ctx, uid)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("list subjects failed")
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to list subjects")
		return
	}

	out := make([]SubjectResponse, 0, len(list))
	for _, s := range list {
		files := make([]SubjectFile, 0, len(s.Files))
		for _, f := range s.Files {
			files = append(files, SubjectFile{Name: f.FileName, UploadedAt: f.UploadedAt, Size: f.SizeBytes})
		}
		out = append(out, SubjectResponse{SubjectSummary: summaryOf(s.Subject), Files: files})
	}
	ok(c, http.StatusOK, out)
}

// UpdateSubject godoc
// @ID          updateSubject
// @Summary     Update a subject
// @Description Changes the name, icon or color of a subject. Omitted fields are left as they are.
// @Tags        Subjects
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       subjectId  path    string  true  "Subject identifier"     example(bio101)
// @Param       body       body    handlers.UpdateSubjectRequest  true  "Fields to change"
//
// @Success     200  {object}  handlers.SubjectSummary
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Subject not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /subjects/{subjectId} [put]
func (h *Handlers) UpdateSubject(c *gin.Context) {
	var req UpdateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	s, err := h.subjects.Update(c.Request.Context(), userID(c), c.Param("subjectId"), services.SubjectPatch{
		Name:  req.Name,
		Icon:  req.Icon,
		Color: req.Color,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSubject):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrSubjectNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "subject not found")
		default:
			middleware.LoggerFrom(c).Error().Err(err).Msg("update subject failed")
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to update subject")
		}
		return
	}
	ok(c, http.StatusOK, summaryOf(*s))
}

// DeleteSubject godoc
// @ID          deleteSubject
// @Summary     Delete a subject
// @Description Deletes the subject and all of its files. Chat history is kept.
// @Tags        Subjects
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       subjectId  path    string  true  "Subject identifier"     example(bio101)
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     404  {object}  handlers.ErrorResponse "Subject not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /subjects/{subjectId} [delete]
func (h *Handlers) DeleteSubject(c *gin.Context) {
	if err := h.subjects.Delete(c.Request.Context(), userID(c), c.Param("subjectId")); err != nil {
		if errors.Is(err, services.ErrSubjectNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "subject not found")
			return
		}
		middleware.LoggerFrom(c).Error().Err(err).Msg("delete subject failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to delete subject")
		return
	}
	message(c, "Subject and associated files deleted")
}

// DeleteFile godoc
// @ID          deleteFile
// @Summary     Delete a file
// @Description Removes one file from a subject.
// @Tags        Subjects
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       subjectId  path    string  true  "Subject identifier"     example(bio101)
// @Param       fileName   path    string  true  "File name"              example(respiration.pdf)
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     404  {object}  handlers.ErrorResponse "File not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /subjects/{subjectId}/files/{fileName} [delete]
func (h *Handlers) DeleteFile(c *gin.Context) {
	err := h.subjects.DeleteFile(c.Request.Context(), userID(c), c.Param("subjectId"), c.Param("fileName"))
	if err != nil {
		if errors.Is(err, services.ErrFileNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "file not found")
			return
		}
		middleware.LoggerFrom(c).Error().Err(err).Msg("delete file failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to delete file")
		return
	}
	message(c, "File deleted")
}

// FileContent godoc
// @ID          fileContent
// @Summary     Get extracted file text
// @Tags        Subjects
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       subjectId  path    string  true  "Subject identifier"     example(bio101)
// @Param       fileName   path    string  true  "File name"              example(respiration.pdf)
//
// @Success     200  {object}  handlers.FileContentResponse
// @Failure     404  {object}  handlers.ErrorResponse "File not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /subjects/{subjectId}/files/{fileName}/content [get]
func (h *Handlers) FileContent(c *gin.Context) {
	text, err := h.subjects.FileContent(c.Request.Context(), userID(c), c.Param("subjectId"), c.Param("fileName"))
	if err != nil {
		if errors.Is(err, services.ErrFileNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "file not found")
			return
		}
		middleware.LoggerFrom(c).Error().Err(err).Msg("read file content failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to read file")
		return
	}
	ok(c, http.StatusOK, FileContentResponse{Text: text})
}

// SubjectHistory godoc
// @ID          subjectHistory
// @Summary     List chat history of a subject
// @Description Returns recorded questions and answers, newest first.
// @Tags        Subjects
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       subjectId  path    string  true  "Subject identifier"     example(bio101)
// @Param       page       query   int     false "Page number"            minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"         minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.HistoryResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /subjects/{subjectId}/history [get]
func (h *Handlers) SubjectHistory(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.subjects.HistoryPage(c.Request.Context(), userID(c), c.Param("subjectId"), page, pageSize)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("list history failed")
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to list history")
		return
	}
	if items == nil {
		items = []domain.ChatHistoryEntry{}
	}
	ok(c, http.StatusOK, HistoryResponse{Entries: items, Pagination: newPagination(page, pageSize, total)})
}
