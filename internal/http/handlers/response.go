package handlers

// Response writers shared by every notes endpoint.
//
// Failures always use ErrorResponse so the web client can branch on `code`
// (see errors.go) and show `message` as is; "no_notes" and the model codes are
// the ones it renders specially. Successes are the route's own DTO, or a
// plain acknowledgement from message() on delete routes:
//
//	HTTP/1.1 400 Bad Request
//	{"request_id": "5f0c...", "code": "no_notes", "message": "No notes found."}
//
//	HTTP/1.1 200 OK
//	{"message": "File deleted"}

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/askmynotes-backend/internal/http/middleware"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	// X-Request-ID of the failed request, for matching server logs
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable error code, one of the ErrCode constants
	Code string `json:"code" example:"no_notes"`
	// User-facing text
	Message string `json:"message" example:"No notes found."`
}

// fail aborts the handler chain with an ErrorResponse. Only server-side
// failures are logged; caller mistakes would drown the log on a public demo.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("route", c.FullPath()).
			Msg(msg)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router answer NoRoute/NoMethod in the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// message writes the {"message": ...} acknowledgement used by delete routes.
func message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, MessageResponse{Message: msg})
}
