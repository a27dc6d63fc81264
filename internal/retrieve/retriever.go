// Package retrieve turns a routed query into ranked chunks. Structural
// decisions resolve through a direct label lookup; semantic decisions
// embed the query and search the vector store with overfetch, then
// dedupe and rank. An empty structural lookup falls back to semantic
// search so a mistyped citation still gets an answer.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/paklaw/lawrag/internal/corpus"
	"github.com/paklaw/lawrag/internal/index"
	"github.com/paklaw/lawrag/internal/router"
	"github.com/paklaw/lawrag/internal/storage"
	"github.com/paklaw/lawrag/internal/structural"
)

const (
	// DefaultTopK is the number of hits returned by semantic retrieval.
	DefaultTopK = 5
	// DefaultOverfetch is the multiplier applied to TopK when querying the
	// store, leaving headroom for overlap dedup to discard neighbors.
	DefaultOverfetch = 2
	// DefaultTimeout bounds each outbound call made during retrieval.
	DefaultTimeout = 20 * time.Second
)

// ErrEmptyQuery indicates a blank query string.
var ErrEmptyQuery = errors.New("empty query")

// StructuralScore is the fixed score assigned to chunks found by direct
// label lookup. An exact citation match is maximally relevant; scores
// exist so structural and semantic hits rank uniformly downstream.
const StructuralScore = 1.0

// ChunkSource is the store surface the retriever reads from.
// *storage.QdrantStore satisfies it.
type ChunkSource interface {
	LookupLabel(ctx context.Context, label string, documentType string) ([]*storage.Chunk, error)
	SearchChunks(ctx context.Context, embedding []float32, limit int, documentType string) ([]*storage.ScoredChunk, error)
}

// QueryEmbedder embeds a single query string. *embedding.Embedder
// satisfies it.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Hit is one retrieved chunk with its score and final rank.
type Hit struct {
	Chunk *storage.Chunk
	Score float64
	Rank  int // 1-based position after ranking
}

// Result is the outcome of retrieval for one query. Mode names the path
// that actually produced the hits; it differs from Decision.Kind when an
// empty structural lookup fell back to semantic search.
type Result struct {
	Decision router.Decision
	Mode     router.Kind
	Hits     []Hit
}

// FellBack reports whether the hits came from the semantic fallback of a
// structural decision.
func (r *Result) FellBack() bool {
	return r.Decision.Kind == router.Structural && r.Mode == router.Semantic
}

// Retriever answers routed queries from the vector store.
type Retriever struct {
	store     ChunkSource
	embedder  QueryEmbedder
	router    *router.Router
	locks     *index.Locks
	topK      int
	overfetch int
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithTopK sets how many hits semantic retrieval returns.
func WithTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithOverfetch sets the store-query multiplier over TopK.
func WithOverfetch(factor int) Option {
	return func(r *Retriever) {
		if factor >= 1 {
			r.overfetch = factor
		}
	}
}

// WithTimeout bounds each outbound call made during retrieval.
func WithTimeout(d time.Duration) Option {
	return func(r *Retriever) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLocks shares the indexer's lock registry so reads exclude a
// document's rebuild window when both run in one process.
func WithLocks(locks *index.Locks) Option {
	return func(r *Retriever) {
		r.locks = locks
	}
}

// WithLogger sets the logger used for retrieval events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRetriever returns a Retriever reading from store, embedding queries
// with embedder, and routing with rt. A nil rt gets a router with the
// default confidence threshold.
func NewRetriever(store ChunkSource, embedder QueryEmbedder, rt *router.Router, opts ...Option) *Retriever {
	if rt == nil {
		rt = router.NewRouter(router.DefaultConfidence)
	}
	r := &Retriever{
		store:     store,
		embedder:  embedder,
		router:    rt,
		topK:      DefaultTopK,
		overfetch: DefaultOverfetch,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve routes the query and resolves it through the matching path.
func (r *Retriever) Retrieve(ctx context.Context, query string) (*Result, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	decision := r.router.Route(query)
	if decision.Kind == router.Structural {
		return r.structural(ctx, decision, true)
	}
	return r.semantic(ctx, decision, r.topK)
}

// Lookup retrieves every chunk of a cited section or article directly,
// bypassing the router. The label is normalized first, so "section 302-a"
// and "302A" resolve identically; a label that does not parse returns
// structural.ErrMalformedLabel. An unknown label yields empty hits with
// no semantic fallback: the caller asked for that citation and nothing
// else.
func (r *Retriever) Lookup(ctx context.Context, label string, documentType corpus.DocumentType) (*Result, error) {
	canonical, err := structural.Normalize(label)
	if err != nil {
		return nil, err
	}
	decision := router.Decision{
		Kind:     router.Structural,
		Label:    canonical,
		TypeHint: documentType,
	}
	return r.structural(ctx, decision, false)
}

// Search retrieves semantically regardless of routing. A topK of zero
// falls back to the retriever's configured value.
func (r *Retriever) Search(ctx context.Context, query string, topK int) (*Result, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = r.topK
	}
	decision := router.Decision{Kind: router.Semantic, Query: query}
	return r.semantic(ctx, decision, topK)
}

func (r *Retriever) structural(ctx context.Context, decision router.Decision, fallback bool) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	unlock := r.readLock()
	chunks, err := r.store.LookupLabel(callCtx, decision.Label, string(decision.TypeHint))
	unlock()
	if err != nil {
		return nil, fmt.Errorf("lookup label %s: %w", decision.Label, err)
	}

	if len(chunks) == 0 && fallback && decision.Query != "" {
		r.logger.Info("Label not indexed, falling back to semantic search",
			"label", decision.Label,
			"document_type", string(decision.TypeHint))
		result, err := r.semantic(ctx, decision, r.topK)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	hits := make([]Hit, len(chunks))
	for i, chunk := range chunks {
		hits[i] = Hit{Chunk: chunk, Score: StructuralScore, Rank: i + 1}
	}
	return &Result{Decision: decision, Mode: router.Structural, Hits: hits}, nil
}

func (r *Retriever) semantic(ctx context.Context, decision router.Decision, topK int) (*Result, error) {
	embedCtx, cancel := context.WithTimeout(ctx, r.timeout)
	embedding, err := r.embedder.EmbedQuery(embedCtx, decision.Query)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Structural decisions only reach here via fallback, where the typed
	// citation already failed; dropping the filter widens the net.
	documentType := ""
	if decision.Kind == router.Semantic {
		documentType = string(decision.TypeHint)
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	unlock := r.readLock()
	scored, err := r.store.SearchChunks(searchCtx, embedding, topK*r.overfetch, documentType)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	hits := rankSemantic(scored, topK)
	return &Result{Decision: decision, Mode: router.Semantic, Hits: hits}, nil
}

// rankSemantic orders scored chunks by score descending with ties broken
// by document then offset, drops hits whose rune range overlaps a
// higher-scored hit of the same document, and truncates to topK.
// Overlapping windows of one passage say the same thing twice; the
// surviving hit carries the better score.
func rankSemantic(scored []*storage.ScoredChunk, topK int) []Hit {
	ordered := make([]*storage.ScoredChunk, len(scored))
	copy(ordered, scored)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		if ordered[i].Chunk.DocumentID != ordered[j].Chunk.DocumentID {
			return ordered[i].Chunk.DocumentID < ordered[j].Chunk.DocumentID
		}
		return ordered[i].Chunk.Start < ordered[j].Chunk.Start
	})

	hits := make([]Hit, 0, topK)
	for _, candidate := range ordered {
		if overlapsKept(hits, candidate.Chunk) {
			continue
		}
		hits = append(hits, Hit{Chunk: candidate.Chunk, Score: candidate.Score, Rank: len(hits) + 1})
		if len(hits) == topK {
			break
		}
	}
	return hits
}

func overlapsKept(hits []Hit, chunk *storage.Chunk) bool {
	for _, hit := range hits {
		kept := hit.Chunk
		if kept.DocumentID != chunk.DocumentID {
			continue
		}
		if chunk.Start < kept.End && kept.Start < chunk.End {
			return true
		}
	}
	return false
}

// readLock takes the shared read gate when one is configured, so a
// document's delete+upsert window never interleaves with a store read.
func (r *Retriever) readLock() func() {
	if r.locks == nil {
		return func() {}
	}
	r.locks.RLock()
	return r.locks.RUnlock
}
