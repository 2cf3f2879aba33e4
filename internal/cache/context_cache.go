package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/askmynotes-backend/internal/notes"
	"github.com/tbourn/askmynotes-backend/internal/observability"
)

const defaultContextTTL = 10 * time.Minute

// ContextCache caches assembled context per (owner, subject, file, budget).
//
// Entries are keyed by a per-subject version counter. Invalidate bumps the
// counter, so stale entries become unreachable at once and expire on their
// own TTL. A nil *ContextCache is valid and always misses.
type ContextCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewContextCache wraps client. A non-positive ttl selects the default.
func NewContextCache(client *redis.Client, ttl time.Duration) *ContextCache {
	if ttl <= 0 {
		ttl = defaultContextTTL
	}
	return &ContextCache{client: client, ttl: ttl}
}

var _ notes.ContextCache = (*ContextCache)(nil)

// Get looks up q under the subject's current version.
func (c *ContextCache) Get(ctx context.Context, q notes.Query) (string, string, bool) {
	if c == nil || c.client == nil {
		return "", "", false
	}
	version, err := c.version(ctx, q.OwnerID, q.SubjectID)
	if err != nil {
		observability.ObserveCacheLookup("error")
		log.Warn().Err(err).Str("subject_id", q.SubjectID).Msg("context cache: read version")
		return "", "", false
	}

	text, err := c.client.Get(ctx, ContextKey(q, version)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		observability.ObserveCacheLookup("miss")
		return "", version, false
	case err != nil:
		observability.ObserveCacheLookup("error")
		log.Warn().Err(err).Str("subject_id", q.SubjectID).Msg("context cache: get")
		return "", "", false
	}
	observability.ObserveCacheLookup("hit")
	return text, version, true
}

// Put stores text for q under version.
func (c *ContextCache) Put(ctx context.Context, q notes.Query, version, text string) {
	if c == nil || c.client == nil || version == "" {
		return
	}
	if err := c.client.Set(ctx, ContextKey(q, version), text, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("subject_id", q.SubjectID).Msg("context cache: set")
	}
}

// Invalidate makes every cached context of the subject unreachable. Call it
// after any change to the subject's files.
func (c *ContextCache) Invalidate(ctx context.Context, ownerID, subjectID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, VersionKey(ownerID, subjectID)).Err(); err != nil {
		log.Warn().Err(err).Str("subject_id", subjectID).Msg("context cache: invalidate")
	}
}

func (c *ContextCache) version(ctx context.Context, ownerID, subjectID string) (string, error) {
	v, err := c.client.Get(ctx, VersionKey(ownerID, subjectID)).Int64()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(v, 10), nil
}

// VersionKey is the counter bumped by Invalidate.
func VersionKey(ownerID, subjectID string) string {
	return fmt.Sprintf("notes:ver:%s:%s", url.QueryEscape(ownerID), url.QueryEscape(subjectID))
}

// ContextKey addresses one cached context.
func ContextKey(q notes.Query, version string) string {
	return fmt.Sprintf("notes:ctx:%s:%s:v%s:%s:%d",
		url.QueryEscape(q.OwnerID),
		url.QueryEscape(q.SubjectID),
		version,
		url.QueryEscape(q.FileName),
		q.Budget,
	)
}
