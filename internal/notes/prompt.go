package notes

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQuestionRequired is returned when answer mode is given a blank question.
var ErrQuestionRequired = errors.New("question is required")

// Practice set sizes requested from the model.
const (
	PracticeMCQs         = 5
	PracticeShortAnswers = 3
)

const answerTemplate = `You are "AskMyNotes", a study assistant. Answer the question using ONLY the notes below.
Never use outside knowledge and never invent facts, quotes, or file names.
If the notes do not contain the answer, set "notFound" to true and leave "answer" empty.

SUBJECT: %s

NOTES:
%s

QUESTION: %s

Respond with a single JSON object and nothing else:
{
  "notFound": boolean,
  "answer": "markdown string",
  "confidence": "High" | "Medium" | "Low",
  "evidence": ["short verbatim quotes from the notes"],
  "citations": ["file names the evidence came from"]
}`

const summarizeTemplate = `Produce a study summary for "%s" based STRICTLY on the notes below.
Never use outside knowledge and never invent facts.

NOTES:
%s

REQUIREMENTS:
1. "notes": a substantial Markdown summary with headers and bullet points.
2. Leave "mcqs" and "shortAnswer" as empty arrays [].

Respond with a single JSON object and nothing else:
{
  "notes": "Markdown summary",
  "mcqs": [],
  "shortAnswer": []
}`

const practiceTemplate = `Generate a practice set for "%s" based STRICTLY on the notes below.
Every question must be answerable from the notes alone. Never invent facts.

NOTES:
%s

REQUIREMENTS:
1. "mcqs": exactly %d multiple choice questions, each with 4 options labelled "A) ..." to "D) ...", the letter of the correct option in "correctKey", a one-sentence "explanation", and the source file name in "citation".
2. "shortAnswer": exactly %d flashcard-style questions with a concise "answer" and the source file name in "citation".
3. Leave "notes" as an empty string "".

Respond with a single JSON object and nothing else:
{
  "notes": "",
  "mcqs": [{"question": "", "options": ["A) ", "B) ", "C) ", "D) "], "correctKey": "A", "explanation": "", "citation": ""}],
  "shortAnswer": [{"question": "", "answer": "", "citation": ""}]
}`

// BuildPrompt renders the instruction template for mode. The context is
// embedded verbatim. question is only used, and then required, in answer mode.
func BuildPrompt(mode Mode, subjectName, context, question string) (string, error) {
	name := strings.TrimSpace(subjectName)
	if name == "" {
		name = "Subject"
	}
	switch mode {
	case ModeAnswer:
		q := strings.TrimSpace(question)
		if q == "" {
			return "", ErrQuestionRequired
		}
		return fmt.Sprintf(answerTemplate, name, context, q), nil
	case ModeSummarize:
		return fmt.Sprintf(summarizeTemplate, name, context), nil
	case ModePractice:
		return fmt.Sprintf(practiceTemplate, name, context, PracticeMCQs, PracticeShortAnswers), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, string(mode))
	}
}
