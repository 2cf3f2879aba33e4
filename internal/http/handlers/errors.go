// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These codes are written into the ErrorResponse envelope (see fail()) and give
// clients a stable, machine-readable taxonomy next to the human-readable
// message.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes mirror HTTP status semantics.
//   - Domain codes (no_notes, answer_failed, model_timeout...) are reserved for
//     notes-pipeline failures that status alone cannot convey.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "no_notes",
//	  "message": "No notes found."
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodePayloadTooLarge  = "payload_too_large"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeNoNotes          = "no_notes"
	ErrCodeUploadFailed     = "upload_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeAnswerFailed     = "answer_failed"
	ErrCodeModelTimeout     = "model_timeout"
	ErrCodeModelUnavailable = "model_unavailable"
)

// Client-facing messages kept identical across handlers.
const (
	msgNoNotes     = "No notes found."
	msgDailyLimit  = "The AI is currently at its daily limit. Please try again in an hour or with a smaller document."
	msgModelSlow   = "The AI took too long to respond. Please try again."
	msgModelOff    = "The AI model is not configured on this server."
	msgAnswerError = "Failed to generate a response from your notes."
)
