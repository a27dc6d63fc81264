// Package router decides how a user query should be answered: by direct
// structural lookup of a cited section or article, or by semantic vector
// search. The decision is deterministic and carries everything the
// retriever needs for either path.
package router

import (
	"github.com/paklaw/lawrag/internal/corpus"
	"github.com/paklaw/lawrag/internal/structural"
)

// Kind is the retrieval strategy chosen for a query.
type Kind string

const (
	// Structural answers the query by looking up the cited label directly.
	Structural Kind = "structural"
	// Semantic answers the query by vector similarity search.
	Semantic Kind = "semantic"
)

// DefaultConfidence is the minimum fraction of a query a citation must
// cover before the router trusts it as the query's intent. Below it,
// mentions like "murder under section 302" search semantically so the
// surrounding words still count.
const DefaultConfidence = 0.6

// Decision is the routing outcome for a single query.
type Decision struct {
	Kind     Kind
	Query    string              // Original query text, used by the semantic path
	Label    string              // Canonical label when Kind is Structural
	Term     string              // Citation unit for display: "Section" or "Article"
	TypeHint corpus.DocumentType // Document type filter, empty when the citation implies none
	Coverage float64             // Citation span over the trimmed query, 0 when none found
}

// Router routes queries between structural lookup and semantic search.
type Router struct {
	confidence float64
}

// NewRouter returns a Router with the given confidence threshold.
// Values outside (0, 1] fall back to DefaultConfidence.
func NewRouter(confidence float64) *Router {
	if confidence <= 0 || confidence > 1 {
		confidence = DefaultConfidence
	}
	return &Router{confidence: confidence}
}

// Route classifies a query. A citation routes structurally only when its
// coverage of the filler-trimmed query meets the confidence threshold;
// everything else, including sub-threshold citations, routes semantically
// with the original text.
func (r *Router) Route(query string) Decision {
	m, ok := structural.FindQueryReference(query)
	if !ok {
		return Decision{Kind: Semantic, Query: query}
	}
	if m.Coverage < r.confidence {
		return Decision{Kind: Semantic, Query: query, Coverage: m.Coverage}
	}
	return Decision{
		Kind:     Structural,
		Query:    query,
		Label:    m.Label,
		Term:     m.Term,
		TypeHint: m.TypeHint,
		Coverage: m.Coverage,
	}
}
