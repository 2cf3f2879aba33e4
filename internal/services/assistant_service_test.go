package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/askmynotes-backend/internal/llm"
	"github.com/tbourn/askmynotes-backend/internal/notes"
	"github.com/tbourn/askmynotes-backend/internal/repo"
)

const validAnswer = `{"notFound":false,"answer":"Mitochondria produce ATP.","confidence":"High","evidence":["Mitochondria produce ATP."],"citations":["respiration.pdf"]}`

func newAssistant(t *testing.T, gen llm.Generator) *AssistantService {
	t.Helper()
	db := newSvcDB(t)
	return &AssistantService{
		DB:           db,
		Assembler:    &notes.Assembler{Finder: DBSources{DB: db}},
		Model:        gen,
		History:      &HistoryRecorder{DB: db, Timeout: 2 * time.Second},
		ChatModel:    "chat-model",
		StudyModel:   "study-model",
		Temperature:  0.2,
		Timeout:      time.Second,
		ParseRetries: 1,
		AnswerBudget: 12000,
		StudyBudget:  30000,
	}
}

func seedBio101(t *testing.T, s *AssistantService, owner string) {
	t.Helper()
	// Seeded out of upload order on purpose.
	seedFile(t, s.DB, owner, "bio101", "respiration.pdf", "Mitochondria produce ATP.", t0.Add(time.Minute))
	seedFile(t, s.DB, owner, "bio101", "cells.txt", "Cells are the basic unit of life.", t0)
}

func waitHistory(t *testing.T, s *AssistantService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.History.Wait(ctx); err != nil {
		t.Fatalf("history wait: %v", err)
	}
}

func TestChat_Bio101EndToEnd(t *testing.T) {
	gen := &fakeGen{outputs: []string{validAnswer}}
	s := newAssistant(t, gen)
	seedBio101(t, s, "u1")
	ctx := context.Background()

	reply, err := s.Chat(ctx, ChatRequest{
		OwnerID:          "u1",
		SubjectID:        "bio101",
		Question:         "What produces ATP?",
		SubjectName:      "Biology",
		IdempotencyScope: "/api/chat",
		IdempotencyKey:   "k-1",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.NotFound || reply.Answer == nil || reply.Answer.Confidence != notes.ConfidenceHigh {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	req := gen.reqs[0]
	if req.Model != "chat-model" || !req.JSON || req.Temperature != 0.2 {
		t.Fatalf("unexpected model request: %+v", req)
	}
	ci := strings.Index(req.Prompt, "--- Source: cells.txt ---")
	ri := strings.Index(req.Prompt, "--- Source: respiration.pdf ---")
	if ci < 0 || ri < 0 || ci > ri {
		t.Fatalf("sources missing or out of upload order in prompt")
	}
	if !strings.Contains(req.Prompt, "QUESTION: What produces ATP?") || !strings.Contains(req.Prompt, "SUBJECT: Biology") {
		t.Fatalf("prompt missing question or subject")
	}

	waitHistory(t, s)
	if n, err := repo.CountHistory(ctx, s.DB, "u1", "bio101"); err != nil || n != 1 {
		t.Fatalf("history count = %d, err=%v", n, err)
	}

	replayed, ok, err := s.Replay(ctx, "u1", "/api/chat", "k-1")
	if err != nil || !ok {
		t.Fatalf("Replay: ok=%v err=%v", ok, err)
	}
	if replayed.Answer != reply.Answer.Answer || len(replayed.Citations) != 1 {
		t.Fatalf("replayed answer differs: %+v", replayed)
	}
	if _, ok, _ := s.Replay(ctx, "u2", "/api/chat", "k-1"); ok {
		t.Fatalf("replay must be owner scoped")
	}
}

func TestChat_NotFoundSkipsModel(t *testing.T) {
	gen := &fakeGen{}
	s := newAssistant(t, gen)
	seedBio101(t, s, "owner-a")

	reply, err := s.Chat(context.Background(), ChatRequest{OwnerID: "owner-b", SubjectID: "bio101", Question: "What is a cell?"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !reply.NotFound || reply.Answer != nil || reply.SubjectName != defaultSubjectName {
		t.Fatalf("expected notFound reply, got %+v", reply)
	}
	if gen.calls() != 0 {
		t.Fatalf("model must not be called without notes")
	}
	waitHistory(t, s)
	if n, _ := repo.CountHistory(context.Background(), s.DB, "owner-b", "bio101"); n != 0 {
		t.Fatalf("notFound replies are not recorded")
	}
}

func TestChat_StoredSubjectName(t *testing.T) {
	gen := &fakeGen{outputs: []string{validAnswer}}
	s := newAssistant(t, gen)
	seedBio101(t, s, "u1")
	if _, err := repo.UpsertSubject(context.Background(), s.DB, "u1", "bio101", "Cell Biology"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := s.Chat(context.Background(), ChatRequest{OwnerID: "u1", SubjectID: "bio101", Question: "q?"}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	waitHistory(t, s)
	if !strings.Contains(gen.reqs[0].Prompt, "SUBJECT: Cell Biology") {
		t.Fatalf("stored subject name not used")
	}
}

func TestChat_InputValidation(t *testing.T) {
	s := newAssistant(t, &fakeGen{})
	ctx := context.Background()
	if _, err := s.Chat(ctx, ChatRequest{OwnerID: "u", SubjectID: " ", Question: "q"}); !errors.Is(err, ErrSubjectRequired) {
		t.Fatalf("expected ErrSubjectRequired, got %v", err)
	}
	if _, err := s.Chat(ctx, ChatRequest{OwnerID: "u", SubjectID: "s", Question: "  "}); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
}

func TestChat_ParseRetry(t *testing.T) {
	gen := &fakeGen{outputs: []string{"Sure! Here is your answer:", validAnswer}}
	s := newAssistant(t, gen)
	seedBio101(t, s, "u1")

	reply, err := s.Chat(context.Background(), ChatRequest{OwnerID: "u1", SubjectID: "bio101", Question: "q?"})
	if err != nil || reply.Answer == nil {
		t.Fatalf("Chat after retry: reply=%+v err=%v", reply, err)
	}
	if gen.calls() != 2 {
		t.Fatalf("expected 2 model calls, got %d", gen.calls())
	}
	waitHistory(t, s)
}

func TestChat_ParseFailureAfterRetries(t *testing.T) {
	gen := &fakeGen{outputs: []string{"not json"}}
	s := newAssistant(t, gen)
	seedBio101(t, s, "u1")

	_, err := s.Chat(context.Background(), ChatRequest{OwnerID: "u1", SubjectID: "bio101", Question: "q?"})
	if !errors.Is(err, ErrAnswerFailed) {
		t.Fatalf("expected ErrAnswerFailed, got %v", err)
	}
	if gen.calls() != 2 {
		t.Fatalf("expected 1 + ParseRetries calls, got %d", gen.calls())
	}
	waitHistory(t, s)
	if n, _ := repo.CountHistory(context.Background(), s.DB, "u1", "bio101"); n != 0 {
		t.Fatalf("failed answers are not recorded")
	}
}

func TestChat_RateLimitIsNotRetried(t *testing.T) {
	gen := &fakeGen{errs: []error{fmt.Errorf("%w: 429 daily limit", llm.ErrRateLimited)}, outputs: []string{validAnswer}}
	s := newAssistant(t, gen)
	seedBio101(t, s, "u1")

	_, err := s.Chat(context.Background(), ChatRequest{OwnerID: "u1", SubjectID: "bio101", Question: "q?"})
	if !errors.Is(err, llm.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if gen.calls() != 1 {
		t.Fatalf("provider errors must not be retried, got %d calls", gen.calls())
	}
}

func TestChat_ModelTimeout(t *testing.T) {
	slow := genFunc(func(ctx context.Context, _ llm.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	s := newAssistant(t, slow)
	s.Timeout = 20 * time.Millisecond
	seedBio101(t, s, "u1")

	_, err := s.Chat(context.Background(), ChatRequest{OwnerID: "u1", SubjectID: "bio101", Question: "q?"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestStudy_PracticeSingleFile(t *testing.T) {
	out := `{"notes":"","mcqs":[{"question":"Unit of life?","options":["A) Cell","B) Atom","C) Organ","D) Tissue"],"correctKey":"a","explanation":"From notes","citation":"cells.txt"}],"shortAnswer":[{"question":"Define cell","answer":"Basic unit of life","citation":"cells.txt"}]}`
	gen := &fakeGen{outputs: []string{out}}
	s := newAssistant(t, gen)
	seedBio101(t, s, "u1")

	set, err := s.Study(context.Background(), StudyRequest{OwnerID: "u1", SubjectID: "bio101", FileName: "cells.txt", Mode: "practice"})
	if err != nil {
		t.Fatalf("Study: %v", err)
	}
	if len(set.MCQs) != 1 || set.MCQs[0].CorrectKey != "A" || len(set.ShortAnswer) != 1 {
		t.Fatalf("unexpected practice set: %+v", set)
	}
	req := gen.reqs[0]
	if req.Model != "study-model" {
		t.Fatalf("study should use the study model, got %q", req.Model)
	}
	if !strings.Contains(req.Prompt, "cells.txt") || strings.Contains(req.Prompt, "respiration.pdf") {
		t.Fatalf("file filter not applied to prompt")
	}
	waitHistory(t, s)
	if n, _ := repo.CountHistory(context.Background(), s.DB, "u1", "bio101"); n != 0 {
		t.Fatalf("study requests are not recorded")
	}
}

func TestStudy_SummarizeFallback(t *testing.T) {
	s := newAssistant(t, &fakeGen{outputs: []string{`{}`}})
	seedBio101(t, s, "u1")

	set, err := s.Study(context.Background(), StudyRequest{OwnerID: "u1", SubjectID: "bio101", Mode: "summarize"})
	if err != nil {
		t.Fatalf("Study: %v", err)
	}
	if set.Notes != notes.FallbackSummary || len(set.MCQs) != 0 || set.ShortAnswer == nil {
		t.Fatalf("unexpected summary: %+v", set)
	}
}

func TestStudy_Errors(t *testing.T) {
	gen := &fakeGen{}
	s := newAssistant(t, gen)
	seedBio101(t, s, "u1")
	ctx := context.Background()

	for _, mode := range []string{"answer", "quiz", ""} {
		if _, err := s.Study(ctx, StudyRequest{OwnerID: "u1", SubjectID: "bio101", Mode: mode}); !errors.Is(err, ErrInvalidMode) {
			t.Fatalf("mode %q: expected ErrInvalidMode, got %v", mode, err)
		}
	}
	if _, err := s.Study(ctx, StudyRequest{OwnerID: "u1", SubjectID: "chem", Mode: "summarize"}); !errors.Is(err, ErrNoNotes) {
		t.Fatalf("expected ErrNoNotes, got %v", err)
	}
	if _, err := s.Study(ctx, StudyRequest{OwnerID: "u1", SubjectID: "bio101", FileName: "missing.txt", Mode: "summarize"}); !errors.Is(err, ErrNoNotes) {
		t.Fatalf("expected ErrNoNotes for unknown file, got %v", err)
	}
	if gen.calls() != 0 {
		t.Fatalf("model must not be called on invalid requests")
	}
}

func TestAnswerBudgetTruncatesContext(t *testing.T) {
	gen := &fakeGen{outputs: []string{validAnswer}}
	s := newAssistant(t, gen)
	s.AnswerBudget = 30
	seedBio101(t, s, "u1")

	if _, err := s.Chat(context.Background(), ChatRequest{OwnerID: "u1", SubjectID: "bio101", Question: "q?"}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	waitHistory(t, s)
	p := gen.reqs[0].Prompt
	if strings.Contains(p, "respiration.pdf") || !strings.Contains(p, "--- Source: cells.txt ---\nCell") {
		t.Fatalf("context not truncated to budget")
	}
}
