// Assistant HTTP handlers.
//
//   - POST /chat         (answer a question from a subject's notes)
//   - POST /study-mode   (summary or practice set)
//
// Idempotency:
// When middleware.IdempotencyValidator has found a recorded answer for the
// caller's Idempotency-Key, Chat returns it without calling the model and
// sets `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/askmynotes-backend/internal/http/middleware"
	"github.com/tbourn/askmynotes-backend/internal/llm"
	"github.com/tbourn/askmynotes-backend/internal/services"
)

//
// DTOs
//

// ChatRequest is the JSON payload for asking a question.
type ChatRequest struct {
	SubjectID   subjectRef `json:"subjectId" swaggertype:"string" example:"bio101"`
	Question    string     `json:"question" example:"What is the role of mitochondria?"`
	SubjectName string     `json:"subjectName,omitempty" example:"Biology 101"`
}

// NotFoundResponse is returned by /chat when the subject has no notes.
type NotFoundResponse struct {
	NotFound    bool   `json:"notFound" example:"true"`
	SubjectName string `json:"subjectName" example:"Biology 101"`
}

// StudyRequest is the JSON payload for study material generation.
type StudyRequest struct {
	SubjectID   subjectRef `json:"subjectId" swaggertype:"string" example:"bio101"`
	SubjectName string     `json:"subjectName,omitempty" example:"Biology 101"`
	FileName    string     `json:"fileName,omitempty" example:"respiration.pdf"`
	Mode        string     `json:"mode" enums:"summarize,practice" example:"practice"`
}

//
// Handlers
//

// Chat godoc
// @ID          chat
// @Summary     Ask a question about a subject's notes
// @Description Answers strictly from the stored notes. A subject without notes yields {notFound: true}.
// @Description Supports idempotency via the Idempotency-Key header (same key → same answer).
// @Tags        Assistant
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.ChatRequest  true  "Question payload"
//
// @Success     200  {object}  notes.Answer
// @Success     200  {object}  handlers.NotFoundResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     429  {object}  handlers.ErrorResponse  "Model rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Answer failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Model not configured"
// @Failure     504  {object}  handlers.ErrorResponse  "Model timeout"
// @Router      /chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	ctx := c.Request.Context()

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	uid := userID(c)
	scope := middleware.IdempotencyScope(c)
	key, _ := middleware.GetIdempotencyKey(c)

	if key != "" && middleware.IsReplay(c) {
		prev, found, err := h.assistant.Replay(ctx, uid, scope, key)
		switch {
		case err != nil:
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotent replay failed, answering again")
		case found:
			c.Header(middleware.HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusOK, prev)
			return
		}
	}

	reply, err := h.assistant.Chat(ctx, services.ChatRequest{
		OwnerID:          uid,
		SubjectID:        string(req.SubjectID),
		Question:         req.Question,
		SubjectName:      req.SubjectName,
		IdempotencyScope: scope,
		IdempotencyKey:   key,
	})
	if err != nil {
		failAssistant(c, err)
		return
	}
	if reply.NotFound {
		ok(c, http.StatusOK, NotFoundResponse{NotFound: true, SubjectName: reply.SubjectName})
		return
	}
	ok(c, http.StatusOK, reply.Answer)
}

// StudyMode godoc
// @ID          studyMode
// @Summary     Generate a summary or practice set
// @Description Builds study material from all notes of a subject, or from a single file when fileName is given.
// @Tags        Assistant
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.StudyRequest  true  "Study request"
//
// @Success     200  {object}  notes.StudySet
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or no notes"
// @Failure     429  {object}  handlers.ErrorResponse  "Model rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Answer failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Model not configured"
// @Failure     504  {object}  handlers.ErrorResponse  "Model timeout"
// @Router      /study-mode [post]
func (h *Handlers) StudyMode(c *gin.Context) {
	var req StudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	set, err := h.assistant.Study(c.Request.Context(), services.StudyRequest{
		OwnerID:     userID(c),
		SubjectID:   string(req.SubjectID),
		SubjectName: req.SubjectName,
		FileName:    req.FileName,
		Mode:        req.Mode,
	})
	if err != nil {
		failAssistant(c, err)
		return
	}
	ok(c, http.StatusOK, set)
}

// failAssistant maps notes-pipeline errors onto the error envelope.
func failAssistant(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSubjectRequired),
		errors.Is(err, services.ErrEmptyQuestion),
		errors.Is(err, services.ErrInvalidMode):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrNoNotes):
		fail(c, http.StatusBadRequest, ErrCodeNoNotes, msgNoNotes)
	case errors.Is(err, llm.ErrRateLimited):
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, msgDailyLimit)
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeModelTimeout, msgModelSlow)
	case errors.Is(err, llm.ErrDisabled):
		fail(c, http.StatusServiceUnavailable, ErrCodeModelUnavailable, msgModelOff)
	case errors.Is(err, services.ErrAnswerFailed), errors.Is(err, llm.ErrUpstream):
		middleware.LoggerFrom(c).Error().Err(err).Msg("model call failed")
		fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, msgAnswerError)
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("assistant request failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
