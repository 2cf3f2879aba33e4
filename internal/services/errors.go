// Package services defines the business logic for subjects, uploads, and the
// notes assistant. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Input errors.
var (
	// ErrSubjectRequired is returned when a request carries no subject id.
	ErrSubjectRequired = errors.New("subjectId is required")

	// ErrNoFiles is returned for an upload without files.
	ErrNoFiles = errors.New("no files uploaded")

	// ErrTooManyFiles is returned when an upload exceeds the per-request file
	// limit. The whole batch is rejected.
	ErrTooManyFiles = errors.New("too many files")

	// ErrEmptyQuestion is returned when a chat request has a blank question.
	ErrEmptyQuestion = errors.New("question is required")

	// ErrInvalidMode is returned for a study mode other than summarize or
	// practice.
	ErrInvalidMode = errors.New("mode must be summarize or practice")

	// ErrInvalidSubject is returned when a subject update carries an empty
	// name, icon, or color.
	ErrInvalidSubject = errors.New("subject fields must not be empty")
)

// Lookup errors.
var (
	// ErrSubjectNotFound indicates that the subject does not exist for the
	// current owner.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrFileNotFound indicates that the file does not exist in the subject.
	ErrFileNotFound = errors.New("file not found")

	// ErrNoNotes is returned by study generation when the subject (or the
	// selected file) has no stored text.
	ErrNoNotes = errors.New("no notes found")
)

// ErrAnswerFailed is returned when the model output could not be parsed
// after all retries.
var ErrAnswerFailed = errors.New("model returned an unusable response")
