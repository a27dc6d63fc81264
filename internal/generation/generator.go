// Package generation wraps chat completions for answer writing. Prompt
// assembly lives with the caller; this package owns the model call, its
// timeout, and retry behaviour.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the chat model used unless overridden.
	DefaultModel = "gpt-4o"

	// DefaultTimeout bounds a single completion call. Generation is
	// slower than embedding, so the budget is wider.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts is the total attempt budget, counting the
	// first try.
	DefaultMaxAttempts = 4
)

// GenerationError reports a failed completion after retries were
// exhausted or a permanent failure occurred.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with %s: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator produces text completions with rate-limit-aware retries.
type Generator struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	maxAttempts int
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithModel overrides the chat model.
func WithModel(model string) GeneratorOption {
	return func(g *Generator) { g.model = model }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxAttempts overrides the total attempt budget.
func WithMaxAttempts(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// NewGenerator creates a Generator with the given OpenAI client.
func NewGenerator(client *openai.Client, opts ...GeneratorOption) *Generator {
	g := &Generator{
		client:      client,
		model:       DefaultModel,
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complete sends the prompt as a single user message and returns the
// model's reply with surrounding whitespace trimmed. Rate limit errors
// retry with exponential backoff; anything else fails immediately.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	var answer string

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model: openai.ChatModel(g.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("response contains no choices"))
		}
		answer = strings.TrimSpace(resp.Choices[0].Message.Content)
		if answer == "" {
			return backoff.Permanent(errors.New("model returned an empty completion"))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	policy := backoff.WithMaxRetries(b, uint64(g.maxAttempts-1))

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return "", &GenerationError{Model: g.model, Err: err}
	}
	return answer, nil
}

// isRateLimitError reports whether the error is an HTTP 429 from the API.
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
