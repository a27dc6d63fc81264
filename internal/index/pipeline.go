// Package index orchestrates the corpus indexing pipeline: extract text,
// segment into chunks, embed, and swap the chunks into the vector store
// under locks that keep queries consistent.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paklaw/lawrag/internal/corpus"
	"github.com/paklaw/lawrag/internal/extract"
	"github.com/paklaw/lawrag/internal/segment"
	"github.com/paklaw/lawrag/internal/storage"
)

// IndexReport contains statistics about one indexing run.
type IndexReport struct {
	TotalDocs   int
	IndexedDocs int
	TotalChunks int
	FailedDocs  []FailedDoc
	Duration    time.Duration
}

// FailedDoc records a document that could not be indexed. Failures are
// isolated; the rest of the run continues.
type FailedDoc struct {
	DocumentID string
	Reason     string
}

// VectorWriter is the slice of the store the pipeline writes through.
type VectorWriter interface {
	EnsureCollection(ctx context.Context) error
	DeleteByDocument(ctx context.Context, documentID string) error
	UpsertChunks(ctx context.Context, chunks []*storage.Chunk) error
}

// TextEmbedder turns chunk texts into vectors.
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline indexes documents with a bounded worker pool. Embedding runs
// outside the swap gate; only the delete-and-upsert of a document's
// chunks holds it.
type Pipeline struct {
	segmenter *segment.Segmenter
	embedder  TextEmbedder
	store     VectorWriter
	locks     *Locks
	workers   int
	logger    *slog.Logger
}

// NewPipeline creates an indexing pipeline. A nil logger falls back to
// slog.Default; workers below 1 are raised to 1.
func NewPipeline(
	segmenter *segment.Segmenter,
	embedder TextEmbedder,
	store VectorWriter,
	locks *Locks,
	workers int,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	if locks == nil {
		locks = NewLocks()
	}
	return &Pipeline{
		segmenter: segmenter,
		embedder:  embedder,
		store:     store,
		locks:     locks,
		workers:   workers,
		logger:    logger,
	}
}

type docResult struct {
	documentID string
	chunks     int
	err        error
}

// IndexAll indexes every document, re-indexing ones already present. Per
// document failures are collected in the report rather than aborting the
// run; only collection setup is fatal.
func (p *Pipeline) IndexAll(ctx context.Context, docs []corpus.Document) (*IndexReport, error) {
	start := time.Now()
	report := &IndexReport{TotalDocs: len(docs)}

	if err := p.store.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	p.logger.Info("Starting indexing", "documents", len(docs), "workers", p.workers)

	jobs := make(chan corpus.Document)
	results := make(chan docResult, len(docs))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				chunks, err := p.indexDocument(ctx, doc)
				results <- docResult{documentID: doc.ID, chunks: chunks, err: err}
			}
		}()
	}

	for _, doc := range docs {
		jobs <- doc
	}
	close(jobs)
	wg.Wait()
	close(results)

	for res := range results {
		if res.err != nil {
			p.logger.Warn("Failed to index document", "document", res.documentID, "error", res.err)
			report.FailedDocs = append(report.FailedDocs, FailedDoc{
				DocumentID: res.documentID,
				Reason:     res.err.Error(),
			})
			continue
		}
		report.IndexedDocs++
		report.TotalChunks += res.chunks
	}

	// Workers finish in arbitrary order; keep reports reproducible.
	sort.Slice(report.FailedDocs, func(i, j int) bool {
		return report.FailedDocs[i].DocumentID < report.FailedDocs[j].DocumentID
	})

	report.Duration = time.Since(start)
	p.logger.Info("Indexing complete",
		"indexed", report.IndexedDocs,
		"failed", len(report.FailedDocs),
		"chunks", report.TotalChunks,
		"duration", report.Duration,
	)

	return report, nil
}

// indexDocument runs the full pipeline for one document and returns the
// number of chunks written.
func (p *Pipeline) indexDocument(ctx context.Context, doc corpus.Document) (int, error) {
	unlock := p.locks.LockDocument(doc.ID)
	defer unlock()

	text, err := extract.Text(doc.Path)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	p.logger.Debug("Extracted document", "document", doc.ID, "runes", len([]rune(text)))

	chunks, err := p.segmenter.Segment(doc, text)
	if err != nil {
		return 0, fmt.Errorf("segment: %w", err)
	}
	p.logger.Debug("Segmented document", "document", doc.ID, "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	now := time.Now().UTC()
	records := make([]*storage.Chunk, len(chunks))
	for i, chunk := range chunks {
		records[i] = &storage.Chunk{
			ID:           chunkID(doc.ID, chunk.Start, chunk.End),
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			DocumentType: string(doc.Type),
			ChunkIndex:   chunk.Index,
			Start:        chunk.Start,
			End:          chunk.End,
			Text:         chunk.Text,
			Label:        chunk.Label,
			Labels:       chunk.Labels,
			IndexedAt:    now,
			Embedding:    vectors[i],
		}
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// The swap must land whole: once the stale chunks are gone the new ones
	// go in even if the caller cancels, so a document is always either in
	// its pre-run or fully rebuilt state.
	commitCtx := context.WithoutCancel(ctx)
	err = p.locks.Swap(func() error {
		if err := p.store.DeleteByDocument(commitCtx, doc.ID); err != nil {
			return fmt.Errorf("delete stale chunks: %w", err)
		}
		if err := p.store.UpsertChunks(commitCtx, records); err != nil {
			return fmt.Errorf("store chunks: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	p.logger.Info("Indexed document", "document", doc.ID, "chunks", len(records))
	return len(records), nil
}

// chunkID derives a stable UUID from the document and rune span, so
// re-indexing the same segmentation overwrites points in place.
func chunkID(documentID string, start, end int) string {
	name := fmt.Sprintf("lawrag:%s:%d:%d", documentID, start, end)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
