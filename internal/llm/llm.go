// Package llm is the boundary to the hosted language model.
//
// The rest of the application treats the model as an opaque function from a
// prompt to raw text. Generator is that function; OpenAI implements it for any
// OpenAI-compatible chat completions endpoint (Groq by default) through
// github.com/tmc/langchaingo.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrRateLimited is returned when the provider refuses the call because a
	// quota or rate limit was hit.
	ErrRateLimited = errors.New("model rate limited")
	// ErrUpstream is returned for every other provider failure.
	ErrUpstream = errors.New("model call failed")
	// ErrDisabled is returned by Disabled.
	ErrDisabled = errors.New("model not configured")
)

// Request is one completion call.
type Request struct {
	Model       string // empty means the client default
	Prompt      string
	Temperature float64
	JSON        bool // ask the provider for a JSON object response
}

// Generator produces raw model output for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Options configures an OpenAI client.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string

	// HTTPClient sends the provider requests; http.DefaultClient when nil.
	HTTPClient *http.Client
}

// OpenAI is a Generator backed by an OpenAI-compatible endpoint.
type OpenAI struct {
	model llms.Model
}

// NewOpenAI builds a client. The API key is required.
func NewOpenAI(o Options) (*OpenAI, error) {
	if strings.TrimSpace(o.APIKey) == "" {
		return nil, errors.New("llm: api key required")
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	opts := []openai.Option{
		openai.WithToken(o.APIKey),
		openai.WithHTTPClient(jsonModeDoer{next: hc}),
	}
	if o.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(o.BaseURL))
	}
	if o.Model != "" {
		opts = append(opts, openai.WithModel(o.Model))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: create client: %w", err)
	}
	return &OpenAI{model: m}, nil
}

// Generate sends req as a single user message and returns the first choice.
func (c *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if req.JSON {
		ctx = context.WithValue(ctx, jsonModeKey{}, true)
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, req.Prompt, opts...)
	if err != nil {
		return "", Classify(err)
	}
	return out, nil
}

// jsonModeKey marks a context whose completion call must request a JSON
// object response.
type jsonModeKey struct{}

// jsonModeDoer adds `"response_format": {"type": "json_object"}` to chat
// completion bodies sent under a jsonModeKey context. The langchaingo client
// has no call option for the response format, so it is set on the wire.
type jsonModeDoer struct {
	next *http.Client
}

func (d jsonModeDoer) Do(req *http.Request) (*http.Response, error) {
	on, _ := req.Context().Value(jsonModeKey{}).(bool)
	if on && req.Body != nil && strings.HasSuffix(req.URL.Path, "/chat/completions") {
		if err := setJSONResponseFormat(req); err != nil {
			return nil, fmt.Errorf("llm: set response format: %w", err)
		}
	}
	return d.next.Do(req)
}

func setJSONResponseFormat(req *http.Request) error {
	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return err
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	payload["response_format"] = json.RawMessage(`{"type":"json_object"}`)
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
	req.ContentLength = int64(len(body))
	return nil
}

// Classify maps a provider error onto ErrRateLimited or ErrUpstream, keeping
// the original message. Context errors pass through untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstream) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit") {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

// Disabled is the Generator used when no API key is configured. Every call
// fails with ErrDisabled so uploads and subject management keep working.
type Disabled struct{}

func (Disabled) Generate(context.Context, Request) (string, error) {
	return "", ErrDisabled
}
