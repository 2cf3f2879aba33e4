// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Model-backed routes get their own, stricter rate limit
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/askmynotes-backend/docs"
	"github.com/tbourn/askmynotes-backend/internal/blob"
	"github.com/tbourn/askmynotes-backend/internal/cache"
	"github.com/tbourn/askmynotes-backend/internal/config"
	"github.com/tbourn/askmynotes-backend/internal/domain"
	"github.com/tbourn/askmynotes-backend/internal/http/handlers"
	"github.com/tbourn/askmynotes-backend/internal/http/middleware"
	"github.com/tbourn/askmynotes-backend/internal/llm"
	"github.com/tbourn/askmynotes-backend/internal/notes"
	"github.com/tbourn/askmynotes-backend/internal/repo"
	"github.com/tbourn/askmynotes-backend/internal/services"
)

// jsonBodyLimit caps every non-upload request body.
const jsonBodyLimit = 1 << 20

// subjectRepoShim adapts the repository free functions to the
// services.SubjectRepo interface expected by the SubjectService.
type subjectRepoShim struct{}

// ListSubjects proxies repo.ListSubjects.
func (subjectRepoShim) ListSubjects(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.Subject, error) {
	return repo.ListSubjects(ctx, db, ownerID)
}

// ListFileMeta proxies repo.ListFileMeta.
func (subjectRepoShim) ListFileMeta(ctx context.Context, db *gorm.DB, ownerID string) ([]repo.FileMeta, error) {
	return repo.ListFileMeta(ctx, db, ownerID)
}

// UpdateSubject proxies repo.UpdateSubject.
func (subjectRepoShim) UpdateSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID string, p repo.SubjectPatch) error {
	return repo.UpdateSubject(ctx, db, ownerID, subjectID, p)
}

// GetSubject proxies repo.GetSubject.
func (subjectRepoShim) GetSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID string) (*domain.Subject, error) {
	return repo.GetSubject(ctx, db, ownerID, subjectID)
}

// DeleteSubject proxies repo.DeleteSubject.
func (subjectRepoShim) DeleteSubject(ctx context.Context, db *gorm.DB, ownerID, subjectID string) ([]domain.File, error) {
	return repo.DeleteSubject(ctx, db, ownerID, subjectID)
}

// DeleteFiles proxies repo.DeleteFiles.
func (subjectRepoShim) DeleteFiles(ctx context.Context, db *gorm.DB, ownerID, subjectID string) ([]domain.File, error) {
	return repo.DeleteFiles(ctx, db, ownerID, subjectID)
}

// DeleteFile proxies repo.DeleteFile.
func (subjectRepoShim) DeleteFile(ctx context.Context, db *gorm.DB, ownerID, subjectID, fileName string) (*domain.File, error) {
	return repo.DeleteFile(ctx, db, ownerID, subjectID, fileName)
}

// GetFile proxies repo.GetFile.
func (subjectRepoShim) GetFile(ctx context.Context, db *gorm.DB, ownerID, subjectID, fileName string) (*domain.File, error) {
	return repo.GetFile(ctx, db, ownerID, subjectID, fileName)
}

// CountHistory proxies repo.CountHistory (pagination support).
func (subjectRepoShim) CountHistory(ctx context.Context, db *gorm.DB, ownerID, subjectID string) (int64, error) {
	return repo.CountHistory(ctx, db, ownerID, subjectID)
}

// ListHistoryPage proxies repo.ListHistoryPage (pagination support).
func (subjectRepoShim) ListHistoryPage(ctx context.Context, db *gorm.DB, ownerID, subjectID string, offset, limit int) ([]domain.ChatHistoryEntry, error) {
	return repo.ListHistoryPage(ctx, db, ownerID, subjectID, offset, limit)
}

// Deps carries the infrastructure the routes are built on. Only DB is
// required.
type Deps struct {
	DB      *gorm.DB
	Model   llm.Generator             // nil serves model routes with 503
	Blobs   blob.Store                // optional raw-file copies
	Cache   *cache.ContextCache       // optional assembled-context cache
	History *services.HistoryRecorder // nil drops chat history
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Identity: resolve the owner before anything keys on it
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS, security headers and compression
//
// Per route: body size limit, then on model routes the idempotency validator
// followed by the stricter model limiter, so replays skip the model budget.
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
		SkipPaths:   []string{"/health", "/metrics"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Owner identity
	r.Use(middleware.Identity())

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	corsHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", middleware.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	// Study sets and file text compress well; /metrics has its own negotiation.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(newUploadService(d, cfg), newSubjectService(d), newAssistantService(d, cfg))

	// Model calls are expensive; a second limiter guards them with the
	// client-facing daily-limit message.
	modelRL := middleware.NewRateLimiter(cfg.ModelRateRPS, cfg.ModelRateBurst, middleware.KeyByUserOrIP()).
		WithMessage("The AI is currently at its daily limit. Please try again in an hour or with a smaller document.")
	idem := middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idempotencyLookup(d.DB))
	small := limitBody(jsonBodyLimit)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.NoStore())
	{
		api.GET("/health", h.Health)

		// Uploads
		api.POST("/upload", limitBody(cfg.UploadBodyLimit()), h.Upload)
		api.POST("/clear-subject", small, h.ClearSubject)

		// Assistant
		api.POST("/chat", small, idem, modelRL.Handler(), h.Chat)
		api.POST("/study-mode", small, modelRL.Handler(), h.StudyMode)

		// Subjects
		api.GET("/subjects", h.ListSubjects)
		api.PUT("/subjects/:subjectId", small, h.UpdateSubject)
		api.DELETE("/subjects/:subjectId", h.DeleteSubject)
		api.DELETE("/subjects/:subjectId/files/:fileName", h.DeleteFile)
		api.GET("/subjects/:subjectId/files/:fileName/content", h.FileContent)
		api.GET("/subjects/:subjectId/history", h.SubjectHistory)
	}
}

// Dependency injection: services ← repo/db/cache/blobs/model

func newUploadService(d Deps, cfg config.Config) *services.UploadService {
	s := &services.UploadService{
		DB:           d.DB,
		Blobs:        d.Blobs,
		TempDir:      cfg.Upload.TempDir,
		MaxFiles:     cfg.Upload.MaxFiles,
		MaxFileBytes: cfg.Upload.MaxFileBytes,
	}
	if d.Cache != nil {
		s.Cache = d.Cache
	}
	return s
}

func newSubjectService(d Deps) *services.SubjectService {
	s := services.NewSubjectService(d.DB, subjectRepoShim{})
	s.Blobs = d.Blobs
	if d.Cache != nil {
		s.Cache = d.Cache
	}
	return s
}

func newAssistantService(d Deps, cfg config.Config) *services.AssistantService {
	asm := &notes.Assembler{Finder: services.DBSources{DB: d.DB}}
	if d.Cache != nil {
		asm.Cache = d.Cache
	}
	model := d.Model
	if model == nil {
		model = llm.Disabled{}
	}
	return &services.AssistantService{
		DB:           d.DB,
		Assembler:    asm,
		Model:        model,
		History:      d.History,
		ChatModel:    cfg.LLM.ChatModel,
		StudyModel:   cfg.LLM.StudyModel,
		Temperature:  cfg.LLM.Temperature,
		Timeout:      cfg.LLM.Timeout,
		ParseRetries: cfg.LLM.ParseRetries,
		AnswerBudget: cfg.Context.AnswerBudget,
		StudyBudget:  cfg.Context.StudyBudget,
	}
}

// idempotencyLookup reports whether a live idempotency record exists.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return rec != nil, nil
	}
}

// limitBody returns a Gin middleware that caps the request body size to
// maxBytes using http.MaxBytesReader. Requests exceeding the cap will cause
// downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
