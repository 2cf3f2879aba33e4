// Package services – AssistantService
//
// AssistantService runs the notes pipeline for chat and study requests:
//
//	assemble context -> build prompt -> model call -> validate response
//
// Chat answers are recorded by the HistoryRecorder after the response is
// ready; study sets are not recorded. Model calls are bounded by Timeout and
// retried only when the output cannot be parsed, never on provider errors.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/askmynotes-backend/internal/llm"
	"github.com/tbourn/askmynotes-backend/internal/notes"
	"github.com/tbourn/askmynotes-backend/internal/observability"
	"github.com/tbourn/askmynotes-backend/internal/repo"
)

const defaultSubjectName = "Subject"

// ChatRequest is one question about a subject's notes.
type ChatRequest struct {
	OwnerID     string
	SubjectID   string
	Question    string
	SubjectName string // optional display name override

	// Optional; lets a retry with the same key be answered from history.
	IdempotencyScope string
	IdempotencyKey   string
}

// ChatReply is the outcome of a chat request. Answer is nil when NotFound.
type ChatReply struct {
	NotFound    bool
	SubjectName string
	Answer      *notes.Answer
}

// StudyRequest asks for a summary or practice set.
type StudyRequest struct {
	OwnerID     string
	SubjectID   string
	SubjectName string
	FileName    string // optional: restrict to one file
	Mode        string
}

// AssistantService answers questions and generates study material.
type AssistantService struct {
	DB        *gorm.DB
	Assembler *notes.Assembler
	Model     llm.Generator
	History   *HistoryRecorder // optional

	ChatModel    string
	StudyModel   string
	Temperature  float64
	Timeout      time.Duration // per model call; <= 0 disables
	ParseRetries int           // extra attempts after unparsable output

	AnswerBudget int
	StudyBudget  int
}

// Chat answers req.Question from the subject's notes. A subject without
// notes is not an error: the reply has NotFound set.
func (s *AssistantService) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	ctx, span := otel.Tracer("services/AssistantService").Start(ctx, "Chat",
		trace.WithAttributes(
			attribute.String("user.id", req.OwnerID),
			attribute.String("subject.id", req.SubjectID),
		),
	)
	defer span.End()

	subjectID := strings.TrimSpace(req.SubjectID)
	if subjectID == "" {
		return nil, ErrSubjectRequired
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	name := s.subjectName(ctx, req.OwnerID, subjectID, req.SubjectName)

	text, found, err := s.Assembler.Assemble(ctx, notes.Query{
		OwnerID:   req.OwnerID,
		SubjectID: subjectID,
		Budget:    s.AnswerBudget,
	})
	if err != nil {
		return nil, err
	}
	if !found {
		span.SetAttributes(attribute.Bool("notes.found", false))
		return &ChatReply{NotFound: true, SubjectName: name}, nil
	}

	prompt, err := notes.BuildPrompt(notes.ModeAnswer, name, text, question)
	if err != nil {
		return nil, err
	}
	res, err := s.generate(ctx, notes.ModeAnswer, s.ChatModel, prompt)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.History.Record(ctx, HistoryRecord{
		OwnerID:          req.OwnerID,
		SubjectID:        subjectID,
		Question:         question,
		Response:         res.Answer,
		IdempotencyScope: req.IdempotencyScope,
		IdempotencyKey:   req.IdempotencyKey,
	})
	return &ChatReply{SubjectName: name, Answer: res.Answer}, nil
}

// Study generates a summary or a practice set. It returns ErrNoNotes when
// nothing matches the subject (and file, if given).
func (s *AssistantService) Study(ctx context.Context, req StudyRequest) (*notes.StudySet, error) {
	ctx, span := otel.Tracer("services/AssistantService").Start(ctx, "Study",
		trace.WithAttributes(
			attribute.String("user.id", req.OwnerID),
			attribute.String("subject.id", req.SubjectID),
			attribute.String("mode", req.Mode),
		),
	)
	defer span.End()

	subjectID := strings.TrimSpace(req.SubjectID)
	if subjectID == "" {
		return nil, ErrSubjectRequired
	}
	mode, err := notes.ParseMode(req.Mode)
	if err != nil || !mode.IsStudy() {
		return nil, ErrInvalidMode
	}
	name := s.subjectName(ctx, req.OwnerID, subjectID, req.SubjectName)

	text, found, err := s.Assembler.Assemble(ctx, notes.Query{
		OwnerID:   req.OwnerID,
		SubjectID: subjectID,
		FileName:  strings.TrimSpace(req.FileName),
		Budget:    s.StudyBudget,
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoNotes
	}

	prompt, err := notes.BuildPrompt(mode, name, text, "")
	if err != nil {
		return nil, err
	}
	res, err := s.generate(ctx, mode, s.StudyModel, prompt)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return res.Study, nil
}

// Replay returns the answer recorded for a previous chat request with the
// same idempotency scope and key. ok is false when there is none.
func (s *AssistantService) Replay(ctx context.Context, ownerID, scope, key string) (*notes.Answer, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, ownerID, scope, key, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	entry, err := repo.GetHistory(ctx, s.DB, rec.EntryID, ownerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var a notes.Answer
	if err := json.Unmarshal(entry.Response, &a); err != nil {
		return nil, false, fmt.Errorf("decode recorded answer: %w", err)
	}
	return &a, true, nil
}

// generate calls the model and validates its output, retrying unparsable
// output up to ParseRetries times.
func (s *AssistantService) generate(ctx context.Context, mode notes.Mode, model, prompt string) (notes.Result, error) {
	attempts := 1 + max(s.ParseRetries, 0)

	var lastErr error
	for i := 0; i < attempts; i++ {
		raw, err := s.call(ctx, mode, model, prompt)
		if err != nil {
			return notes.Result{}, err
		}
		res, err := notes.ValidateResponse(mode, raw)
		if err == nil {
			return res, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("mode", string(mode)).Int("attempt", i+1).Msg("model output not parseable")
	}
	return notes.Result{}, fmt.Errorf("%w: %v", ErrAnswerFailed, lastErr)
}

func (s *AssistantService) call(ctx context.Context, mode notes.Mode, model, prompt string) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.Model.Generate(ctx, llm.Request{
		Model:       model,
		Prompt:      prompt,
		Temperature: s.Temperature,
		JSON:        true,
	})
	took := time.Since(start)

	switch {
	case err == nil:
		observability.ObserveModelCall(string(mode), "ok", took)
	case errors.Is(err, llm.ErrRateLimited):
		observability.ObserveModelCall(string(mode), "rate_limited", took)
	default:
		observability.ObserveModelCall(string(mode), "error", took)
	}
	return raw, err
}

// subjectName picks the display name: request override, stored name, then a
// generic fallback.
func (s *AssistantService) subjectName(ctx context.Context, ownerID, subjectID, override string) string {
	if n := strings.TrimSpace(override); n != "" {
		return n
	}
	if s.DB != nil {
		if sub, err := repo.GetSubject(ctx, s.DB, ownerID, subjectID); err == nil && strings.TrimSpace(sub.Name) != "" {
			return sub.Name
		}
	}
	return defaultSubjectName
}
