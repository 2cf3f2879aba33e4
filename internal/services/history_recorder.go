// Package services – HistoryRecorder
//
// HistoryRecorder persists question/answer pairs off the request path. A
// write never blocks or fails the chat request that produced it: it runs in
// its own goroutine on a context detached from request cancellation, bounded
// by Timeout, and failures are only logged and counted.
//
// When the chat request carried an Idempotency-Key, the recorder also stores
// the key so a retry can be served from history instead of calling the model
// again. The key therefore becomes usable only after the entry is written.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/askmynotes-backend/internal/domain"
	"github.com/tbourn/askmynotes-backend/internal/observability"
	"github.com/tbourn/askmynotes-backend/internal/repo"
)

const (
	defaultHistoryTimeout = 5 * time.Second
	defaultIdemTTL        = 24 * time.Hour
)

// HistoryRecord is one answered question.
type HistoryRecord struct {
	OwnerID   string
	SubjectID string
	Question  string
	Response  any // serialized as JSON

	// Optional idempotency binding.
	IdempotencyScope string
	IdempotencyKey   string
}

// HistoryRecorder writes HistoryRecords asynchronously. The zero value is not
// usable; DB must be set. A nil *HistoryRecorder drops every record.
type HistoryRecorder struct {
	DB             *gorm.DB
	Timeout        time.Duration
	IdempotencyTTL time.Duration

	wg sync.WaitGroup
}

// Record schedules rec for persistence and returns immediately.
func (r *HistoryRecorder) Record(ctx context.Context, rec HistoryRecord) {
	if r == nil || r.DB == nil {
		return
	}
	// Serialize now so the caller may keep using its value.
	payload, err := json.Marshal(rec.Response)
	if err != nil {
		observability.ObserveHistoryWrite(false)
		log.Error().Err(err).Str("subject_id", rec.SubjectID).Msg("history: encode response")
		return
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultHistoryTimeout
	}
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		r.write(bg, rec, payload)
	}()
}

func (r *HistoryRecorder) write(ctx context.Context, rec HistoryRecord, payload []byte) {
	entry := &domain.ChatHistoryEntry{
		OwnerID:   rec.OwnerID,
		SubjectID: rec.SubjectID,
		Question:  rec.Question,
		Response:  datatypes.JSON(payload),
	}
	if err := repo.CreateHistory(ctx, r.DB, entry); err != nil {
		observability.ObserveHistoryWrite(false)
		log.Warn().Err(err).
			Str("owner_id", rec.OwnerID).
			Str("subject_id", rec.SubjectID).
			Msg("history: write failed")
		return
	}
	observability.ObserveHistoryWrite(true)

	if rec.IdempotencyKey == "" || rec.IdempotencyScope == "" {
		return
	}
	ttl := r.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdemTTL
	}
	_, err := repo.CreateIdempotency(ctx, r.DB, rec.OwnerID, rec.IdempotencyScope, rec.IdempotencyKey, entry.ID, http.StatusOK, ttl)
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		log.Warn().Err(err).Str("subject_id", rec.SubjectID).Msg("history: idempotency record failed")
	}
}

// Wait blocks until every scheduled write has finished or ctx is done.
func (r *HistoryRecorder) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
