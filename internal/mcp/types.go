// Package mcp exposes the Pakistani law retrieval pipeline over the
// Model Context Protocol: question answering, direct section lookup,
// semantic passage search, and index status.
package mcp

import "time"

// AskLawInput defines the input parameters for the ask_law tool.
type AskLawInput struct {
	// Question is the legal question to answer.
	Question string `json:"question" jsonschema:"required,description=The legal question to answer from the indexed Pakistani statutes"`
}

// AskLawOutput contains the generated answer and its grounding.
type AskLawOutput struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Mode is the retrieval path that grounded the answer: structural or semantic.
	Mode string `json:"mode"`
	// FellBack indicates a cited section was not indexed and semantic results were used instead.
	FellBack bool `json:"fell_back,omitempty"`
	// Citations lists the passages the answer is based on.
	Citations []CitationResult `json:"citations"`
	// Message provides informational context (e.g., "No relevant provisions found").
	Message string `json:"message,omitempty"`
}

// CitationResult names one passage an answer was grounded on.
type CitationResult struct {
	// Document is the source document display name.
	Document string `json:"document"`
	// Reference is the human-readable citation (e.g., "Section 302").
	Reference string `json:"reference"`
	// Label is the canonical section or article label, empty for unlabeled passages.
	Label string `json:"label,omitempty"`
	// Score is the relevance score (1.0 for direct lookups).
	Score float64 `json:"score"`
}

// LookupSectionInput defines the input parameters for the lookup_section tool.
type LookupSectionInput struct {
	// Label is the section or article to retrieve.
	Label string `json:"label" jsonschema:"required,description=Section or article number to retrieve (e.g. 302 or 489-F or article 19)"`
	// DocumentType optionally restricts the lookup to one body of law.
	DocumentType string `json:"document_type,omitempty" jsonschema:"description=Restrict to one body of law: penal_code or constitution or other"`
}

// LookupSectionOutput contains every indexed passage of the requested label.
type LookupSectionOutput struct {
	// Found indicates whether the label is in the index.
	Found bool `json:"found"`
	// Label is the canonical form of the requested label.
	Label string `json:"label"`
	// Passages is the full text of the section in document order.
	Passages []PassageResult `json:"passages"`
	// Message provides informational context when nothing was found.
	Message string `json:"message,omitempty"`
}

// PassageResult is one retrieved chunk of statute text.
type PassageResult struct {
	// Document is the source document display name.
	Document string `json:"document"`
	// Reference is the human-readable citation for the passage.
	Reference string `json:"reference"`
	// Text is the passage text.
	Text string `json:"text"`
	// Start and End are the passage's rune offsets in the source document.
	Start int `json:"start"`
	End   int `json:"end"`
	// Score is the relevance score (1.0 for direct lookups).
	Score float64 `json:"score"`
}

// SearchPassagesInput defines the input parameters for the search_passages tool.
type SearchPassagesInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query for finding relevant statute passages"`
	// TopK is the maximum number of passages to return.
	TopK int `json:"top_k,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of passages to return"`
	// MinScore drops passages scoring below the threshold (0 keeps everything).
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum=0,maximum=1,default=0,description=Minimum relevance score threshold (0-1)"`
}

// SearchPassagesOutput contains the ranked search results.
type SearchPassagesOutput struct {
	// Results is the list of matching passages.
	Results []PassageResult `json:"results"`
	// Message provides informational context (e.g., "No matching passages found").
	Message string `json:"message,omitempty"`
}

// StatusInput defines the input parameters for the index_status tool.
// The tool takes no parameters.
type StatusInput struct{}

// StatusOutput describes the current state of the law index.
type StatusOutput struct {
	// Collection is the Qdrant collection name.
	Collection string `json:"collection"`
	// TotalChunks is the number of indexed chunks across all documents.
	TotalChunks uint64 `json:"total_chunks"`
	// Documents summarizes each indexed document.
	Documents []DocumentStatus `json:"documents"`
	// LastIndexed is the most recent indexing time across documents.
	LastIndexed time.Time `json:"last_indexed,omitempty"`
}

// DocumentStatus summarizes one indexed document.
type DocumentStatus struct {
	// ID is the document identifier (filename stem).
	ID string `json:"id"`
	// Name is the document display name.
	Name string `json:"name"`
	// Type is the body of law: penal_code, constitution or other.
	Type string `json:"type"`
	// Chunks is the number of indexed chunks for the document.
	Chunks uint64 `json:"chunks"`
	// LastIndexed is when the document was last rebuilt.
	LastIndexed time.Time `json:"last_indexed"`
}
