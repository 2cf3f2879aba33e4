package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type lookupCall struct{ user, scope, key string }

func TestIdempotencyValidator_NoHeader(t *testing.T) {
	called := false
	r := newEngine()
	r.POST("/api/chat", IdempotencyValidator(IdempotencyOptions{}, func(context.Context, string, string, string, time.Time) (bool, error) {
		called = true
		return false, nil
	}), func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok || IsReplay(c) {
			t.Fatalf("no key expected")
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", nil))
	if w.Code != http.StatusNoContent || called {
		t.Fatalf("status %d, lookup called=%v", w.Code, called)
	}
}

func TestIdempotencyValidator_InvalidKeys(t *testing.T) {
	r := newEngine()
	r.Use(RequestID())
	r.POST("/api/chat",
		IdempotencyValidator(IdempotencyOptions{MaxLen: 8, Pattern: regexp.MustCompile(`^[a-z]+$`)}, nil),
		func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, key := range []string{"toolongkey", "UPPER", "sp ace"} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: status %d", key, w.Code)
		}
		if e := decodeEnvelope(t, w); e.Code != "bad_request" || !strings.Contains(e.Message, "Idempotency-Key") {
			t.Fatalf("key %q: unexpected envelope %+v", key, e)
		}
	}
}

func TestIdempotencyValidator_ScopeIsRouteAndMarksReplay(t *testing.T) {
	var calls []lookupCall
	lookup := func(_ context.Context, user, scope, key string, now time.Time) (bool, error) {
		if now.IsZero() {
			t.Fatalf("now must be set")
		}
		calls = append(calls, lookupCall{user, scope, key})
		return key == "seen-key", nil
	}

	r := newEngine()
	r.Use(Identity())
	api := r.Group("/api")
	api.POST("/chat", IdempotencyValidator(IdempotencyOptions{}, lookup), func(c *gin.Context) {
		k, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": k, "replay": IsReplay(c), "bypass": IsRateBypass(c), "scope": IdempotencyScope(c)})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set(HeaderIdempotencyKey, "seen-key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"replay":true`) || !strings.Contains(w.Body.String(), `"bypass":true`) {
		t.Fatalf("expected replay, got %d %s", w.Code, w.Body.String())
	}
	if len(calls) != 1 || calls[0] != (lookupCall{"u1", "/api/chat", "seen-key"}) {
		t.Fatalf("unexpected lookup calls: %+v", calls)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set(HeaderIdempotencyKey, "new-key")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"replay":false`) || !strings.Contains(w.Body.String(), `"key":"new-key"`) {
		t.Fatalf("expected fresh request, got %s", w.Body.String())
	}
	if calls[1].user != DefaultUserID {
		t.Fatalf("lookup should use the resolved identity, got %q", calls[1].user)
	}
}

func TestIdempotencyValidator_LookupErrorIsNotReplay(t *testing.T) {
	_ = captureLogs(t)
	r := newEngine()
	r.POST("/api/chat", IdempotencyValidator(IdempotencyOptions{}, func(context.Context, string, string, string, time.Time) (bool, error) {
		return false, errors.New("db down")
	}), func(c *gin.Context) {
		if IsReplay(c) {
			t.Fatalf("lookup errors must not mark a replay")
		}
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set(HeaderIdempotencyKey, "k-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status %d", w.Code)
	}
}

func TestIdempotencyAccessors_WrongTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ctxKeyIdemKey, 123)
	c.Set(ctxKeyIdemReplay, "yes")
	c.Set(ctxKeyRateBypass, 1)
	if _, ok := GetIdempotencyKey(c); ok || IsReplay(c) || IsRateBypass(c) {
		t.Fatalf("wrong-typed values must read as absent")
	}
}
