// Upload HTTP handlers.
//
//   - POST /upload          (multipart: subjectId, subjectName, files)
//   - POST /clear-subject   (remove every file of a subject)
//
// Per-file extraction failures are not request errors: they are reported in
// the files array while the rest of the batch is stored.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/askmynotes-backend/internal/http/middleware"
	"github.com/tbourn/askmynotes-backend/internal/services"
)

//
// DTOs
//

// UploadedFile is the per-file outcome of an upload. Length is the number of
// extracted characters on success; Error is set on failure.
type UploadedFile struct {
	FileName string `json:"fileName" example:"respiration.pdf"`
	Status   string `json:"status" enums:"success,error" example:"success"`
	Length   int    `json:"length,omitempty" example:"5321"`
	Error    string `json:"error,omitempty" example:"unsupported file type"`
}

// UploadResponse reports the subject and the per-file outcomes.
type UploadResponse struct {
	Success   bool           `json:"success" example:"true"`
	SubjectID string         `json:"subjectId" example:"bio101"`
	Files     []UploadedFile `json:"files"`
}

// ClearSubjectRequest is the JSON payload for clearing a subject.
type ClearSubjectRequest struct {
	SubjectID subjectRef `json:"subjectId" swaggertype:"string" example:"bio101"`
}

// SuccessResponse is the bare acknowledgement {"success": true}.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

//
// Handlers
//

// Upload godoc
// @ID          uploadNotes
// @Summary     Upload note files
// @Description Stores PDF or plain-text files under a subject, replacing files with the same name.
// @Description Extraction failures are reported per file; the request still succeeds.
// @Tags        Uploads
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       X-User-ID    header    string  false "User ID (demo header)"  example(user123)
// @Param       subjectId    formData  string  true  "Subject identifier"     example(bio101)
// @Param       subjectName  formData  string  false "Subject display name"   example(Biology 101)
// @Param       files        formData  file    true  "Note files (.pdf, .txt)"
//
// @Success     200  {object}  handlers.UploadResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     413  {object}  handlers.ErrorResponse  "Upload too large"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /upload [post]
func (h *Handlers) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = form.RemoveAll() }()

	subjectID := formValue(form, "subjectId")
	subjectName := formValue(form, "subjectName")

	headers := append(form.File["files"], form.File["files[]"]...)
	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, services.UploadFile{
			Name: fh.Filename,
			Size: fh.Size,
			Open: openPart(fh),
		})
	}

	res, err := h.uploads.Upload(c.Request.Context(), userID(c), subjectID, subjectName, files)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSubjectRequired):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "subjectId is required")
		case errors.Is(err, services.ErrNoFiles):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "No files uploaded")
		case errors.Is(err, services.ErrTooManyFiles):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			middleware.LoggerFrom(c).Error().Err(err).Str("subject_id", subjectID).Msg("upload failed")
			fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, "failed to store upload")
		}
		return
	}

	out := UploadResponse{
		Success:   true,
		SubjectID: strings.TrimSpace(subjectID),
		Files:     make([]UploadedFile, 0, len(res.Files)),
	}
	for _, f := range res.Files {
		out.Files = append(out.Files, UploadedFile{
			FileName: f.FileName,
			Status:   f.Status,
			Length:   f.Length,
			Error:    f.Error,
		})
	}
	ok(c, http.StatusOK, out)
}

// ClearSubject godoc
// @ID          clearSubject
// @Summary     Remove all files of a subject
// @Description Deletes every stored file of the subject. The subject itself is kept.
// @Tags        Uploads
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.ClearSubjectRequest  true  "Subject to clear"
//
// @Success     200  {object}  handlers.SuccessResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /clear-subject [post]
func (h *Handlers) ClearSubject(c *gin.Context) {
	var req ClearSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	n, err := h.subjects.Clear(c.Request.Context(), userID(c), string(req.SubjectID))
	if err != nil {
		if errors.Is(err, services.ErrSubjectRequired) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "subjectId is required")
			return
		}
		middleware.LoggerFrom(c).Error().Err(err).Msg("clear subject failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to clear subject")
		return
	}

	middleware.LoggerFrom(c).Debug().Int("files_removed", n).Str("subject_id", string(req.SubjectID)).Msg("subject cleared")
	ok(c, http.StatusOK, SuccessResponse{Success: true})
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}
