package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/askmynotes-backend/internal/blob"
	"github.com/tbourn/askmynotes-backend/internal/domain"
)

// ContextInvalidator drops cached assembled context for a subject. It is
// satisfied by *cache.ContextCache; nil disables invalidation.
type ContextInvalidator interface {
	Invalidate(ctx context.Context, ownerID, subjectID string)
}

func invalidate(ctx context.Context, inv ContextInvalidator, ownerID, subjectID string) {
	if inv != nil {
		inv.Invalidate(ctx, ownerID, subjectID)
	}
}

// releaseBlobs deletes the remote copies of removed files. Failures are
// logged and otherwise ignored; the rows are already gone.
func releaseBlobs(ctx context.Context, store blob.Store, files []domain.File) {
	if store == nil {
		return
	}
	for _, f := range files {
		if f.BlobRef == "" {
			continue
		}
		if err := store.Delete(ctx, f.BlobRef); err != nil {
			log.Warn().Err(err).
				Str("file_name", f.FileName).
				Str("blob_ref", f.BlobRef).
				Msg("blob delete failed")
		}
	}
}
