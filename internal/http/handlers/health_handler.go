package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/askmynotes-backend/internal/http/middleware"
)

// HealthResponse reports liveness plus store totals. Subjects and Files are
// omitted when the store cannot be read.
type HealthResponse struct {
	Status   string  `json:"status" example:"ok"`
	Subjects *int64  `json:"subjects,omitempty" example:"3"`
	Files    *int64  `json:"files,omitempty" example:"12"`
	Uptime   float64 `json:"uptime" example:"3605.2"`
}

// Health godoc
// @ID          health
// @Summary     Service health
// @Description Always 200 while the process is serving. Store totals are included when available.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	resp := HealthResponse{
		Status: "ok",
		Uptime: time.Since(h.started).Seconds(),
	}
	subjects, files, err := h.subjects.Counts(c.Request.Context())
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("health: store unavailable")
	} else {
		resp.Subjects, resp.Files = &subjects, &files
	}
	ok(c, http.StatusOK, resp)
}
