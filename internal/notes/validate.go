package notes

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Fallback texts used when the model leaves a required field empty.
const (
	FallbackAnswer  = "I couldn't produce an answer from your notes. Try rephrasing the question."
	FallbackSummary = "No summary could be generated from the provided notes."
)

// Confidence levels accepted in answer mode.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// ParseError reports model output that is not a single JSON object.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model response is not a JSON object: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Answer is the validated answer-mode response.
type Answer struct {
	NotFound   bool     `json:"notFound"`
	Answer     string   `json:"answer"`
	Confidence string   `json:"confidence"`
	Evidence   []string `json:"evidence"`
	Citations  []string `json:"citations"`
}

// MCQ is one multiple choice question of a practice set.
type MCQ struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	CorrectKey  string   `json:"correctKey"`
	Explanation string   `json:"explanation"`
	Citation    string   `json:"citation"`
}

// ShortAnswer is one flashcard-style question.
type ShortAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Citation string `json:"citation"`
}

// StudySet is the validated summarize/practice response. Both modes share the
// shape; the unused parts are empty.
type StudySet struct {
	Notes       string        `json:"notes"`
	MCQs        []MCQ         `json:"mcqs"`
	ShortAnswer []ShortAnswer `json:"shortAnswer"`
}

// Result carries the validated response for one mode. Exactly one of Answer
// and Study is set.
type Result struct {
	Mode   Mode
	Answer *Answer
	Study  *StudySet
}

// Payload returns the value to serialize back to the client.
func (r Result) Payload() any {
	if r.Answer != nil {
		return r.Answer
	}
	return r.Study
}

// ValidateResponse parses raw model output for mode and coerces it into the
// mode's schema. Missing or mistyped fields get defaults and unknown fields
// are dropped. Only output that is not a JSON object is rejected.
func ValidateResponse(mode Mode, raw string) (Result, error) {
	obj, err := parseObject(raw)
	if err != nil {
		return Result{}, &ParseError{Raw: raw, Err: err}
	}

	switch mode {
	case ModeAnswer:
		return Result{Mode: mode, Answer: coerceAnswer(obj)}, nil
	case ModeSummarize, ModePractice:
		return Result{Mode: mode, Study: coerceStudy(mode, obj)}, nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMode, string(mode))
	}
}

// parseObject decodes a single JSON object, tolerating a surrounding Markdown
// code fence.
func parseObject(raw string) (map[string]any, error) {
	s := stripFence(strings.TrimSpace(raw))
	if s == "" {
		return nil, fmt.Errorf("empty output")
	}
	dec := json.NewDecoder(strings.NewReader(s))
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("null document")
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after object")
	}
	return obj, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the info string, e.g. "json"
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func coerceAnswer(obj map[string]any) *Answer {
	a := &Answer{
		NotFound:   asBool(obj["notFound"]),
		Answer:     strings.TrimSpace(asString(obj["answer"])),
		Confidence: normalizeConfidence(asString(obj["confidence"])),
		Evidence:   asStrings(obj["evidence"]),
		Citations:  asStrings(obj["citations"]),
	}
	if a.Answer == "" && !a.NotFound {
		a.Answer = FallbackAnswer
		a.Confidence = ConfidenceLow
	}
	return a
}

func coerceStudy(mode Mode, obj map[string]any) *StudySet {
	s := &StudySet{
		Notes:       asString(obj["notes"]),
		MCQs:        []MCQ{},
		ShortAnswer: []ShortAnswer{},
	}
	if mode == ModeSummarize && strings.TrimSpace(s.Notes) == "" {
		s.Notes = FallbackSummary
	}

	for _, item := range asObjects(obj["mcqs"]) {
		q := strings.TrimSpace(asString(item["question"]))
		if q == "" {
			continue
		}
		s.MCQs = append(s.MCQs, MCQ{
			Question:    q,
			Options:     asOptions(item["options"]),
			CorrectKey:  strings.ToUpper(strings.TrimSpace(asString(item["correctKey"]))),
			Explanation: asString(item["explanation"]),
			Citation:    asString(item["citation"]),
		})
	}
	for _, item := range asObjects(obj["shortAnswer"]) {
		q := strings.TrimSpace(asString(item["question"]))
		if q == "" {
			continue
		}
		s.ShortAnswer = append(s.ShortAnswer, ShortAnswer{
			Question: q,
			Answer:   asString(item["answer"]),
			Citation: asString(item["citation"]),
		})
	}
	return s
}

func normalizeConfidence(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ConfidenceHigh
	case "medium":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	default:
		return false
	}
}

// asStrings keeps the string elements of a JSON array. A lone string becomes
// a one-element slice. The result is never nil.
func asStrings(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
	case string:
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}

// asOptions accepts either an array of strings or an object keyed by option
// letter, which some models produce. Objects become "K) value" sorted by key.
func asOptions(v any) []string {
	m, ok := v.(map[string]any)
	if !ok {
		return asStrings(v)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if s := asString(m[k]); s != "" {
			out = append(out, k+") "+s)
		}
	}
	return out
}

func asObjects(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
