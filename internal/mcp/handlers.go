package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/paklaw/lawrag/internal/answer"
	"github.com/paklaw/lawrag/internal/corpus"
	"github.com/paklaw/lawrag/internal/retrieve"
	"github.com/paklaw/lawrag/internal/storage"
	"github.com/paklaw/lawrag/internal/structural"
)

// Retriever is the query surface the tool handlers call.
// *retrieve.Retriever satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*retrieve.Result, error)
	Lookup(ctx context.Context, label string, documentType corpus.DocumentType) (*retrieve.Result, error)
	Search(ctx context.Context, query string, topK int) (*retrieve.Result, error)
}

// Composer generates grounded answers from retrieval results.
// *answer.Composer satisfies it.
type Composer interface {
	Compose(ctx context.Context, query string, result *retrieve.Result) (*answer.Answer, error)
}

// IndexReader reports index statistics. *storage.QdrantStore satisfies it.
type IndexReader interface {
	Collection() string
	Stats(ctx context.Context) (*storage.IndexStats, error)
}

// makeAskHandler creates the ask_law tool handler.
// Flow: route the question (structural citation vs semantic), retrieve
// passages, compose an answer over them. Retrieval finding nothing is a
// structured "no provisions found" output, not a tool error, so agents
// can relay it to the user.
func makeAskHandler(retriever Retriever, composer Composer) func(
	context.Context, *mcp.CallToolRequest, AskLawInput,
) (*mcp.CallToolResult, AskLawOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskLawInput) (
		*mcp.CallToolResult, AskLawOutput, error,
	) {
		result, err := retriever.Retrieve(ctx, input.Question)
		if err != nil {
			return nil, AskLawOutput{}, fmt.Errorf("retrieve passages: %w", err)
		}

		composed, err := composer.Compose(ctx, input.Question, result)
		if err != nil {
			var cerr *answer.CompositionError
			if errors.As(err, &cerr) {
				return nil, AskLawOutput{
					Mode:      string(result.Mode),
					FellBack:  result.FellBack(),
					Citations: []CitationResult{},
					Message:   "No relevant legal provisions were found for this question. Try rephrasing, or ask about a specific section or article.",
				}, nil
			}
			return nil, AskLawOutput{}, err
		}

		citations := make([]CitationResult, len(composed.Citations))
		for i, c := range composed.Citations {
			citations[i] = CitationResult{
				Document:  c.Document,
				Reference: c.Reference,
				Label:     c.Label,
				Score:     c.Score,
			}
		}
		return nil, AskLawOutput{
			Answer:    composed.Text,
			Mode:      string(result.Mode),
			FellBack:  result.FellBack(),
			Citations: citations,
		}, nil
	}
}

// makeLookupHandler creates the lookup_section tool handler.
// Retrieves the full text of a cited section or article. A label that
// does not parse or is not indexed returns found=false with a message
// rather than a tool error.
func makeLookupHandler(retriever Retriever) func(
	context.Context, *mcp.CallToolRequest, LookupSectionInput,
) (*mcp.CallToolResult, LookupSectionOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input LookupSectionInput) (
		*mcp.CallToolResult, LookupSectionOutput, error,
	) {
		documentType, err := parseDocumentType(input.DocumentType)
		if err != nil {
			return nil, LookupSectionOutput{}, err
		}

		result, err := retriever.Lookup(ctx, input.Label, documentType)
		if err != nil {
			if errors.Is(err, structural.ErrMalformedLabel) {
				return nil, LookupSectionOutput{
					Found:    false,
					Label:    input.Label,
					Passages: []PassageResult{},
					Message:  fmt.Sprintf("%q is not a section or article reference. Use forms like 302, 489-F or article 19.", input.Label),
				}, nil
			}
			return nil, LookupSectionOutput{}, fmt.Errorf("lookup section: %w", err)
		}

		if len(result.Hits) == 0 {
			return nil, LookupSectionOutput{
				Found:    false,
				Label:    result.Decision.Label,
				Passages: []PassageResult{},
				Message:  fmt.Sprintf("%s %s is not in the index. Check the number, or search_passages for related text.", termFor(documentType), result.Decision.Label),
			}, nil
		}

		return nil, LookupSectionOutput{
			Found:    true,
			Label:    result.Decision.Label,
			Passages: toPassages(result.Hits),
		}, nil
	}
}

// makeSearchHandler creates the search_passages tool handler.
// Semantic search over all indexed statutes, with an optional score
// floor applied on top of the retriever's ranking.
func makeSearchHandler(retriever Retriever) func(
	context.Context, *mcp.CallToolRequest, SearchPassagesInput,
) (*mcp.CallToolResult, SearchPassagesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchPassagesInput) (
		*mcp.CallToolResult, SearchPassagesOutput, error,
	) {
		topK := input.TopK
		if topK <= 0 {
			topK = 5
		}
		if topK > 20 {
			topK = 20
		}

		result, err := retriever.Search(ctx, input.Query, topK)
		if err != nil {
			return nil, SearchPassagesOutput{}, fmt.Errorf("search passages: %w", err)
		}

		hits := result.Hits
		if input.MinScore > 0 {
			filtered := hits[:0:0]
			for _, hit := range hits {
				if hit.Score >= input.MinScore {
					filtered = append(filtered, hit)
				}
			}
			hits = filtered
		}

		if len(hits) == 0 {
			return nil, SearchPassagesOutput{
				Results: []PassageResult{},
				Message: "No matching passages found. Try broader search terms or a lower min_score.",
			}, nil
		}
		return nil, SearchPassagesOutput{Results: toPassages(hits)}, nil
	}
}

// makeStatusHandler creates the index_status tool handler.
// Reports the collection name, chunk counts per document, and the most
// recent indexing time.
func makeStatusHandler(index IndexReader) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		stats, err := index.Stats(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("read index stats: %w", err)
		}

		out := StatusOutput{
			Collection:  index.Collection(),
			TotalChunks: stats.TotalChunks,
			Documents:   make([]DocumentStatus, len(stats.Documents)),
		}
		for i, doc := range stats.Documents {
			out.Documents[i] = DocumentStatus{
				ID:          doc.DocumentID,
				Name:        doc.DocumentName,
				Type:        doc.DocumentType,
				Chunks:      doc.Chunks,
				LastIndexed: doc.LastIndexed,
			}
			if doc.LastIndexed.After(out.LastIndexed) {
				out.LastIndexed = doc.LastIndexed
			}
		}
		return nil, out, nil
	}
}

func toPassages(hits []retrieve.Hit) []PassageResult {
	passages := make([]PassageResult, len(hits))
	for i, hit := range hits {
		passages[i] = PassageResult{
			Document:  hit.Chunk.DocumentName,
			Reference: answer.Reference(hit.Chunk),
			Text:      hit.Chunk.Text,
			Start:     hit.Chunk.Start,
			End:       hit.Chunk.End,
			Score:     hit.Score,
		}
	}
	return passages
}

func parseDocumentType(raw string) (corpus.DocumentType, error) {
	switch corpus.DocumentType(raw) {
	case "", corpus.TypePenalCode, corpus.TypeConstitution, corpus.TypeOther:
		return corpus.DocumentType(raw), nil
	default:
		return "", fmt.Errorf("unknown document_type %q: use penal_code, constitution or other", raw)
	}
}

func termFor(documentType corpus.DocumentType) string {
	if documentType == "" {
		return "Label"
	}
	return documentType.SectionTerm()
}
