// Package main provides the lawsync CLI for the Pakistani law index.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/paklaw/lawrag/internal/answer"
	"github.com/paklaw/lawrag/internal/config"
	"github.com/paklaw/lawrag/internal/corpus"
	"github.com/paklaw/lawrag/internal/embedding"
	"github.com/paklaw/lawrag/internal/generation"
	"github.com/paklaw/lawrag/internal/index"
	"github.com/paklaw/lawrag/internal/retrieve"
	"github.com/paklaw/lawrag/internal/router"
	"github.com/paklaw/lawrag/internal/segment"
	"github.com/paklaw/lawrag/internal/storage"
	"github.com/paklaw/lawrag/internal/structural"
)

var (
	configPath string
	lookupType string
)

var rootCmd = &cobra.Command{
	Use:   "lawsync",
	Short: "Pakistani law indexing and query tool",
	Long:  "CLI tool for managing the Pakistani law index in Qdrant and querying it from the terminal",
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the default law PDFs into the corpus directory",
	Long: `Downloads the Pakistan Penal Code and the Constitution of Pakistan
from their official sources into the corpus directory. Sources already
present on disk are skipped, so the command is safe to re-run. PDFs
obtained elsewhere can simply be dropped into the same directory.`,
	RunE: runFetch,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Index the law corpus into Qdrant",
	Long: `Segments every document in the corpus directory, embeds the chunks,
and rebuilds each document's points in Qdrant.

This command:
1. Discovers PDF and text documents in the corpus directory
2. Connects to Qdrant and verifies health
3. Extracts, segments and embeds each document
4. Replaces each document's chunks atomically (delete then upsert)

Documents that fail are reported at the end without aborting the run.

Environment variables:
  QDRANT_HOST        Qdrant hostname (default: localhost)
  QDRANT_PORT        Qdrant gRPC port (default: 6334)
  LAWRAG_CORPUS_DIR  Corpus directory (default: ./pdfs)
  LAWRAG_COLLECTION  Qdrant collection (default: pakistani_laws)
  OPENAI_API_KEY     OpenAI API key for embeddings (required)`,
	RunE: runSync,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the collection",
	Long:  "Deletes the Qdrant collection and recreates it empty. Run sync afterwards to rebuild the index.",
	RunE:  runReset,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a legal question from the index",
	Long: `Routes the question (direct section lookup vs semantic search),
retrieves the relevant passages, and generates a cited answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup [label]",
	Short: "Print the full text of a section or article",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLookup,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")
	lookupCmd.Flags().StringVar(&lookupType, "type", "", "restrict to a body of law: penal_code, constitution or other")
	rootCmd.AddCommand(fetchCmd, syncCmd, resetCmd, askCmd, lookupCmd, statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Printf("Fetching corpus into %s...\n", cfg.Index.CorpusDir)
	fetcher := corpus.NewFetcher(cfg.Index.CorpusDir, slog.Default())
	report, err := fetcher.FetchAll(ctx, corpus.DefaultSources())
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Downloaded: %d  Skipped (already present): %d\n", report.Downloaded, report.Skipped)
	if len(report.Failed) > 0 {
		fmt.Println()
		fmt.Println("Failed sources:")
		for _, failed := range report.Failed {
			fmt.Printf("  - %s: %s\n", failed.Name, failed.Reason)
		}
		fmt.Println()
		fmt.Printf("Download these manually and place them in %s.\n", cfg.Index.CorpusDir)
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Println("Starting sync...")
	fmt.Println()

	// 1. Discover the corpus
	docs, err := corpus.Discover(cfg.Index.CorpusDir)
	if err != nil {
		return fmt.Errorf("discover corpus: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents under %s; run `lawsync fetch` or copy PDFs there", cfg.Index.CorpusDir)
	}
	fmt.Printf("Found %d documents under %s\n", len(docs), cfg.Index.CorpusDir)

	// 2. Connect to Qdrant and check health
	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.Qdrant.Host, cfg.Qdrant.Port)
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Health(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	fmt.Println("Qdrant healthy")

	// 3. Build the pipeline
	_, embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	segmenter, err := newSegmenter(cfg)
	if err != nil {
		return err
	}
	pipeline := index.NewPipeline(segmenter, embedder, store, index.NewLocks(), cfg.Index.Workers, slog.Default())

	// 4. Index
	fmt.Println()
	fmt.Println("Indexing documents...")
	report, err := pipeline.IndexAll(ctx, docs)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	// 5. Print results
	fmt.Println()
	fmt.Println("Sync complete!")
	fmt.Printf("  Documents: %d/%d\n", report.IndexedDocs, report.TotalDocs)
	fmt.Printf("  Chunks: %d\n", report.TotalChunks)
	fmt.Printf("  Duration: %s\n", report.Duration.Round(time.Second))

	if len(report.FailedDocs) > 0 {
		fmt.Println()
		fmt.Println("Failed documents:")
		for _, failed := range report.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.DocumentID, failed.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Resetting collection %s...\n", cfg.Qdrant.Collection)
	if err := store.ClearCollection(ctx); err != nil {
		return fmt.Errorf("reset collection: %w", err)
	}
	fmt.Println("Collection reset. Run `lawsync sync` to rebuild the index.")
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := strings.Join(args, " ")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	retriever, composer, err := newQueryStack(cfg, store)
	if err != nil {
		return err
	}

	result, err := retriever.Retrieve(ctx, question)
	if err != nil {
		return fmt.Errorf("retrieve passages: %w", err)
	}
	if result.FellBack() {
		fmt.Printf("Note: %s %s is not indexed; showing semantic matches instead.\n\n",
			result.Decision.Term, result.Decision.Label)
	}

	composed, err := composer.Compose(ctx, question, result)
	if err != nil {
		var cerr *answer.CompositionError
		if errors.As(err, &cerr) {
			fmt.Println("No relevant legal provisions were found for this question.")
			return nil
		}
		return err
	}

	fmt.Println(strings.TrimSpace(composed.Text))
	fmt.Println()
	fmt.Println("Sources:")
	for i, c := range composed.Citations {
		fmt.Printf("  %d. %s — %s (score %.2f)\n", i+1, c.Reference, c.Document, c.Score)
	}
	return nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	label := strings.Join(args, " ")

	documentType, err := parseDocumentType(lookupType)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	retriever, _, err := newQueryStack(cfg, store)
	if err != nil {
		return err
	}

	result, err := retriever.Lookup(ctx, label, documentType)
	if err != nil {
		if errors.Is(err, structural.ErrMalformedLabel) {
			return fmt.Errorf("%q is not a section or article reference (use forms like 302, 489-F, article 19)", label)
		}
		return err
	}

	if len(result.Hits) == 0 {
		fmt.Printf("%s %s is not in the index.\n", termFor(documentType), result.Decision.Label)
		return nil
	}

	fmt.Printf("%s — %d passages\n", result.Decision.Label, len(result.Hits))
	for _, hit := range result.Hits {
		fmt.Println()
		fmt.Printf("[%s] %s (offsets %d-%d)\n", hit.Chunk.DocumentName, answer.Reference(hit.Chunk), hit.Chunk.Start, hit.Chunk.End)
		fmt.Println(strings.TrimSpace(hit.Chunk.Text))
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Health(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read index stats: %w", err)
	}

	fmt.Printf("Collection:   %s\n", cfg.Qdrant.Collection)
	fmt.Printf("Total chunks: %d\n", stats.TotalChunks)
	if len(stats.Documents) == 0 {
		fmt.Println("No documents indexed. Run `lawsync sync`.")
		return nil
	}
	fmt.Println("Documents:")
	for _, doc := range stats.Documents {
		fmt.Printf("  %-30s %-13s %6d chunks  indexed %s\n",
			doc.DocumentID, doc.DocumentType, doc.Chunks, doc.LastIndexed.Format(time.RFC3339))
	}
	return nil
}

func newStore(cfg *config.Config) (*storage.QdrantStore, error) {
	store, err := storage.NewQdrantStore(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("connect to Qdrant: %w", err)
	}
	return store, nil
}

func newEmbedder(cfg *config.Config) (*embedding.Client, *embedding.Embedder, error) {
	client, err := embedding.NewClient()
	if err != nil {
		return nil, nil, err
	}
	embedder := embedding.NewEmbedder(client,
		embedding.WithModel(cfg.Embedding.Model),
		embedding.WithDimensions(cfg.Embedding.Dimensions),
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithTimeout(time.Duration(cfg.Embedding.TimeoutSecs)*time.Second),
		embedding.WithMaxAttempts(cfg.Index.RetryAttempts),
	)
	return client, embedder, nil
}

func newSegmenter(cfg *config.Config) (*segment.Segmenter, error) {
	return segment.NewSegmenter(
		segment.WithChunkSize(cfg.Segment.ChunkSize),
		segment.WithOverlap(cfg.Segment.ChunkOverlap),
		segment.WithBreakTolerance(cfg.Segment.BreakTolerance),
	)
}

// newQueryStack wires the retriever and composer for the query commands.
// The generator shares the embedding client's OpenAI connection.
func newQueryStack(cfg *config.Config, store *storage.QdrantStore) (*retrieve.Retriever, *answer.Composer, error) {
	client, embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}

	retriever := retrieve.NewRetriever(store, embedder,
		router.NewRouter(cfg.Retrieval.StructuralConfidence),
		retrieve.WithTopK(cfg.Retrieval.TopK),
		retrieve.WithOverfetch(cfg.Retrieval.OverfetchFactor),
		retrieve.WithTimeout(time.Duration(cfg.Embedding.TimeoutSecs)*time.Second),
	)

	generator := generation.NewGenerator(client.Client(),
		generation.WithModel(cfg.Generation.Model),
		generation.WithTimeout(time.Duration(cfg.Generation.TimeoutSecs)*time.Second),
		generation.WithMaxAttempts(cfg.Index.RetryAttempts),
	)
	composer := answer.NewComposer(generator, answer.WithContextBudget(cfg.Retrieval.ContextBudget))

	return retriever, composer, nil
}

func parseDocumentType(raw string) (corpus.DocumentType, error) {
	switch corpus.DocumentType(raw) {
	case "", corpus.TypePenalCode, corpus.TypeConstitution, corpus.TypeOther:
		return corpus.DocumentType(raw), nil
	default:
		return "", fmt.Errorf("unknown document type %q: use penal_code, constitution or other", raw)
	}
}

func termFor(documentType corpus.DocumentType) string {
	if documentType == "" {
		return "Label"
	}
	return documentType.SectionTerm()
}
