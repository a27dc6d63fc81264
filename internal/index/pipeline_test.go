package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/paklaw/lawrag/internal/corpus"
	"github.com/paklaw/lawrag/internal/segment"
	"github.com/paklaw/lawrag/internal/storage"
)

// fakeStore records pipeline writes in memory. Safe for concurrent use.
type fakeStore struct {
	mu         sync.Mutex
	ensured    int
	chunks     map[string][]*storage.Chunk // by document ID
	events     map[string][]string         // per-document call sequence
	failUpsert string                      // document ID whose upsert fails
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chunks: make(map[string][]*storage.Chunk),
		events: make(map[string][]string),
	}
}

func (f *fakeStore) EnsureCollection(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured++
	return nil
}

func (f *fakeStore) DeleteByDocument(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[documentID] = append(f.events[documentID], "delete")
	f.chunks[documentID] = nil
	return nil
}

func (f *fakeStore) UpsertChunks(ctx context.Context, chunks []*storage.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(chunks) == 0 {
		return nil
	}
	docID := chunks[0].DocumentID
	if docID == f.failUpsert {
		return fmt.Errorf("upsert rejected")
	}
	f.events[docID] = append(f.events[docID], "upsert")
	f.chunks[docID] = append(f.chunks[docID], chunks...)
	return nil
}

// fakeEmbedder returns a fixed-width vector per text, derived from the
// text length so tests can spot misalignment.
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 0, 0, 0}
	}
	return vectors, nil
}

func testSegmenter(t *testing.T) *segment.Segmenter {
	t.Helper()
	s, err := segment.NewSegmenter(
		segment.WithChunkSize(120),
		segment.WithOverlap(20),
		segment.WithBreakTolerance(30),
	)
	if err != nil {
		t.Fatalf("NewSegmenter failed: %v", err)
	}
	return s
}

// writeCorpus creates .txt law files and returns the discovered documents.
func writeCorpus(t *testing.T, files map[string]string) []corpus.Document {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
	}
	docs, err := corpus.Discover(dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	return docs
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestIndexAll verifies the happy path: every document is segmented,
// embedded, and written with labels and deterministic chunk IDs.
func TestIndexAll(t *testing.T) {
	docs := writeCorpus(t, map[string]string{
		"penal_code.txt":   "Section 302. " + strings.Repeat("Punishment for murder. ", 12),
		"constitution.txt": "Article 19. " + strings.Repeat("Freedom of speech. ", 12),
	})

	store := newFakeStore()
	pipeline := NewPipeline(testSegmenter(t), fakeEmbedder{}, store, NewLocks(), 2, quietLogger())

	report, err := pipeline.IndexAll(context.Background(), docs)
	if err != nil {
		t.Fatalf("IndexAll failed: %v", err)
	}

	if report.TotalDocs != 2 || report.IndexedDocs != 2 || len(report.FailedDocs) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if store.ensured != 1 {
		t.Errorf("EnsureCollection called %d times, want 1", store.ensured)
	}
	if report.TotalChunks <= 0 {
		t.Error("expected chunks to be written")
	}

	penal := store.chunks["penal_code"]
	if len(penal) == 0 {
		t.Fatal("penal code chunks missing")
	}
	for _, chunk := range penal {
		if chunk.DocumentType != "penal_code" {
			t.Errorf("chunk type %q, want penal_code", chunk.DocumentType)
		}
		if chunk.Label != "302" {
			t.Errorf("chunk label %q, want 302", chunk.Label)
		}
		if chunk.ID != chunkID("penal_code", chunk.Start, chunk.End) {
			t.Error("chunk ID is not the deterministic UUID for its span")
		}
		if chunk.IndexedAt.IsZero() {
			t.Error("chunk missing IndexedAt")
		}
	}

	for docID, events := range store.events {
		if len(events) < 2 || events[0] != "delete" {
			t.Errorf("document %s: expected delete before upsert, got %v", docID, events)
		}
	}
}

// TestIndexAll_FailureIsolation verifies that one broken document does
// not abort the run and is reported with its reason.
func TestIndexAll_FailureIsolation(t *testing.T) {
	docs := writeCorpus(t, map[string]string{
		"penal_code.txt": "Section 302. " + strings.Repeat("Punishment for murder. ", 12),
		"empty_act.txt":  "   \n  ",
	})

	store := newFakeStore()
	pipeline := NewPipeline(testSegmenter(t), fakeEmbedder{}, store, NewLocks(), 2, quietLogger())

	report, err := pipeline.IndexAll(context.Background(), docs)
	if err != nil {
		t.Fatalf("IndexAll failed: %v", err)
	}

	if report.IndexedDocs != 1 {
		t.Errorf("IndexedDocs = %d, want 1", report.IndexedDocs)
	}
	if len(report.FailedDocs) != 1 {
		t.Fatalf("FailedDocs = %v, want exactly one", report.FailedDocs)
	}
	failed := report.FailedDocs[0]
	if failed.DocumentID != "empty_act" {
		t.Errorf("failed document %q, want empty_act", failed.DocumentID)
	}
	if failed.Reason == "" {
		t.Error("failure reason missing")
	}
	if len(store.chunks["penal_code"]) == 0 {
		t.Error("healthy document was not indexed")
	}
}

// TestIndexAll_UpsertFailure verifies that store write errors are
// attributed to the right document.
func TestIndexAll_UpsertFailure(t *testing.T) {
	docs := writeCorpus(t, map[string]string{
		"penal_code.txt": "Section 302. " + strings.Repeat("Punishment for murder. ", 12),
		"other_act.txt":  "Section 5. " + strings.Repeat("General provisions apply. ", 12),
	})

	store := newFakeStore()
	store.failUpsert = "other_act"
	pipeline := NewPipeline(testSegmenter(t), fakeEmbedder{}, store, NewLocks(), 1, quietLogger())

	report, err := pipeline.IndexAll(context.Background(), docs)
	if err != nil {
		t.Fatalf("IndexAll failed: %v", err)
	}

	if report.IndexedDocs != 1 || len(report.FailedDocs) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.FailedDocs[0].DocumentID != "other_act" {
		t.Errorf("failed document %q, want other_act", report.FailedDocs[0].DocumentID)
	}
	if !strings.Contains(report.FailedDocs[0].Reason, "store chunks") {
		t.Errorf("reason %q does not name the failing stage", report.FailedDocs[0].Reason)
	}
}

// TestIndexAll_Reindex verifies that re-running the pipeline replaces a
// document's chunks instead of accumulating duplicates.
func TestIndexAll_Reindex(t *testing.T) {
	docs := writeCorpus(t, map[string]string{
		"penal_code.txt": "Section 302. " + strings.Repeat("Punishment for murder. ", 12),
	})

	store := newFakeStore()
	pipeline := NewPipeline(testSegmenter(t), fakeEmbedder{}, store, NewLocks(), 1, quietLogger())

	first, err := pipeline.IndexAll(context.Background(), docs)
	if err != nil {
		t.Fatalf("first IndexAll failed: %v", err)
	}
	firstIDs := chunkIDs(store.chunks["penal_code"])

	second, err := pipeline.IndexAll(context.Background(), docs)
	if err != nil {
		t.Fatalf("second IndexAll failed: %v", err)
	}

	if first.TotalChunks != second.TotalChunks {
		t.Errorf("chunk counts differ between runs: %d vs %d", first.TotalChunks, second.TotalChunks)
	}
	if got := len(store.chunks["penal_code"]); got != second.TotalChunks {
		t.Errorf("store holds %d chunks after re-index, want %d", got, second.TotalChunks)
	}

	secondIDs := chunkIDs(store.chunks["penal_code"])
	if len(firstIDs) != len(secondIDs) {
		t.Fatalf("ID sets differ in size: %d vs %d", len(firstIDs), len(secondIDs))
	}
	for i := range firstIDs {
		if firstIDs[i] != secondIDs[i] {
			t.Errorf("chunk %d ID changed across identical runs", i)
		}
	}
}

// TestChunkID verifies stability and span sensitivity.
func TestChunkID(t *testing.T) {
	a := chunkID("pakistan_penal_code", 0, 950)
	b := chunkID("pakistan_penal_code", 0, 950)
	c := chunkID("pakistan_penal_code", 750, 1700)
	d := chunkID("constitution_1973", 0, 950)

	if a != b {
		t.Error("same inputs produced different IDs")
	}
	if a == c || a == d {
		t.Error("different inputs produced colliding IDs")
	}
}

// TestLocks_DocumentMutualExclusion verifies that the per-document lock
// serializes workers touching the same document.
func TestLocks_DocumentMutualExclusion(t *testing.T) {
	locks := NewLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.LockDocument("pakistan_penal_code")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}

// TestLocks_SwapAndReaders verifies that gate usage composes without
// deadlock in the orders the pipeline and retriever use it.
func TestLocks_SwapAndReaders(t *testing.T) {
	locks := NewLocks()

	locks.RLock()
	locks.RUnlock()

	err := locks.Swap(func() error { return nil })
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}

	unlock := locks.LockDocument("doc")
	if err := locks.Swap(func() error { return nil }); err != nil {
		t.Fatalf("Swap under document lock failed: %v", err)
	}
	unlock()
}

func chunkIDs(chunks []*storage.Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}
