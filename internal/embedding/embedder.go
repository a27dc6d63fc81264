// Package embedding turns chunk text and queries into vectors via
// OpenAI's embedding API, with batching and rate-limit-aware retries.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the embedding model used unless overridden.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimensions is the vector width of DefaultModel. The vector
	// store collection is created with the same width.
	DefaultDimensions = 1536

	// DefaultBatchSize keeps a single request comfortably inside token
	// limits for chunk-sized legal text.
	DefaultBatchSize = 64

	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxAttempts is the total attempt budget per batch, counting
	// the first try.
	DefaultMaxAttempts = 4
)

// EmbeddingError reports a failed embedding request after retries were
// exhausted or a permanent failure occurred.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding with %s: %v", e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// Embedder generates embeddings in batches. Rate-limited requests retry
// with exponential backoff up to a bounded attempt count; other API
// failures are permanent.
type Embedder struct {
	client      *Client
	model       string
	dimensions  int
	batchSize   int
	timeout     time.Duration
	maxAttempts int
}

// EmbedderOption configures an Embedder.
type EmbedderOption func(*Embedder)

// WithModel overrides the embedding model.
func WithModel(model string) EmbedderOption {
	return func(e *Embedder) { e.model = model }
}

// WithDimensions overrides the expected vector width.
func WithDimensions(n int) EmbedderOption {
	return func(e *Embedder) { e.dimensions = n }
}

// WithBatchSize overrides how many texts go into one request.
func WithBatchSize(n int) EmbedderOption {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) EmbedderOption {
	return func(e *Embedder) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxAttempts overrides the total attempt budget per batch.
func WithMaxAttempts(n int) EmbedderOption {
	return func(e *Embedder) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// NewEmbedder creates an Embedder with the given client.
func NewEmbedder(client *Client, opts ...EmbedderOption) *Embedder {
	e := &Embedder{
		client:      client,
		model:       DefaultModel,
		dimensions:  DefaultDimensions,
		batchSize:   DefaultBatchSize,
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EmbedTexts generates one vector per input text, preserving order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var all [][]float32
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		vectors, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, &EmbeddingError{Model: e.model, Err: fmt.Errorf("batch %d-%d: %w", i, end, err)}
		}
		all = append(all, vectors...)
	}
	return all, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, &EmbeddingError{Model: e.model, Err: fmt.Errorf("expected 1 vector, got %d", len(vectors))}
	}
	return vectors[0], nil
}

// embedBatch sends one batch, retrying rate limit errors with exponential
// backoff. Every attempt gets its own timeout so a stalled call cannot
// consume the whole retry budget.
func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		resp, err := e.client.client.Embeddings.New(callCtx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("got %d vectors for %d texts", len(resp.Data), len(texts)))
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			if len(data.Embedding) != e.dimensions {
				return backoff.Permanent(fmt.Errorf("vector %d has %d dimensions, expected %d",
					i, len(data.Embedding), e.dimensions))
			}
			vectors[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	policy := backoff.WithMaxRetries(b, uint64(e.maxAttempts-1))

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	return vectors, err
}

// isRateLimitError reports whether the error is an HTTP 429 from the API.
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 narrows the API's float64 vectors to the float32 the vector
// store expects.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
