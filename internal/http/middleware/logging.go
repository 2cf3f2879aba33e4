// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides request correlation, caller identity, and panic
// recovery:
//
//   - RequestID() reuses or generates an X-Request-ID and stores it in the
//     Gin context.
//   - Identity() resolves the owner of the request from X-User-ID. Every
//     subject, file, and history entry is scoped by this value.
//   - Recovery() turns panics into the standard JSON error envelope.
//   - LoggerFrom() returns the request-scoped logger attached by
//     RedactingLogger, or a plain global logger.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// loggerKey holds the request-scoped *zerolog.Logger.
	loggerKey = "logger"
	// maxRequestIDLength bounds client-supplied correlation IDs.
	maxRequestIDLength = 128
)

// Identity constants. The owner identity is opaque: authentication happens
// upstream and only the resulting id reaches this service.
const (
	HeaderUserID  = "X-User-ID"
	UserIDKey     = "userID"
	DefaultUserID = "demo-user"

	// MaxUserIDLength matches the width of the owner_id columns.
	MaxUserIDLength = 64
)

// RequestID attaches (or propagates) a correlation identifier per request.
// Client IDs that are too long are replaced with a fresh UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" || len(rid) > maxRequestIDLength {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Identity stores the caller's owner id under UserIDKey. A value already set
// by an upstream auth layer wins; otherwise X-User-ID is used, falling back
// to DefaultUserID. Ids longer than MaxUserIDLength are rejected with 400.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, ok := c.Get(UserIDKey); ok {
			if s, ok := v.(string); ok && s != "" {
				c.Next()
				return
			}
		}
		uid := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if len(uid) > MaxUserIDLength {
			abortJSON(c, http.StatusBadRequest, "bad_request", "X-User-ID too long")
			return
		}
		if uid == "" {
			uid = DefaultUserID
		}
		c.Set(UserIDKey, uid)
		c.Next()
	}
}

// UserID returns the owner id resolved by Identity, or DefaultUserID.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(UserIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return DefaultUserID
}

// Recovery intercepts panics, logs a stack trace, and returns a JSON 500
// error unless a response was already started.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", asString(rid)).
					Str("path", routeOf(c)).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header(requestIDHeader, asString(rid))
					abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger. Callers can use the
// result without nil checks.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// abortJSON writes the standard error envelope used across the API.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}

// routeOf returns the matched route template, or the raw path for 404s.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	if c.Request != nil && c.Request.URL != nil {
		return c.Request.URL.Path
	}
	return ""
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
