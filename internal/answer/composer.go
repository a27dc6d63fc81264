// Package answer turns retrieved chunks into a grounded answer: it
// builds a legal-assistant prompt from the ranked hits, enforces a
// character budget on the context it quotes, invokes the generation
// model, and reports which passages the answer cites.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/paklaw/lawrag/internal/corpus"
	"github.com/paklaw/lawrag/internal/retrieve"
	"github.com/paklaw/lawrag/internal/router"
	"github.com/paklaw/lawrag/internal/storage"
)

// DefaultContextBudget is the maximum number of characters of context
// quoted into the prompt.
const DefaultContextBudget = 8000

// CompositionError indicates an answer could not be composed at all, as
// opposed to a failure of the generation call.
type CompositionError struct {
	Reason string
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("compose answer: %s", e.Reason)
}

// TextGenerator produces a completion for a prompt. *generation.Generator
// satisfies it.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Citation names one passage the answer was grounded on.
type Citation struct {
	Document  string      // Document display name
	Label     string      // Canonical label, empty for unlabeled passages
	Reference string      // Display form: "Section 302", "Article 19" or an offset range
	Start     int         // Rune offset of the cited chunk
	End       int
	Score     float64
	Kind      router.Kind // Path that produced the hit
}

// Answer is a generated answer with the citations that ground it.
type Answer struct {
	Text      string
	Citations []Citation
}

// Composer builds prompts from retrieval results and generates answers.
type Composer struct {
	generator TextGenerator
	budget    int
	logger    *slog.Logger
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithContextBudget caps the characters of retrieved context quoted into
// the prompt.
func WithContextBudget(chars int) ComposerOption {
	return func(c *Composer) {
		if chars > 0 {
			c.budget = chars
		}
	}
}

// WithLogger sets the logger used for composition events.
func WithLogger(logger *slog.Logger) ComposerOption {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewComposer returns a Composer that generates answers with generator.
func NewComposer(generator TextGenerator, opts ...ComposerOption) *Composer {
	c := &Composer{
		generator: generator,
		budget:    DefaultContextBudget,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose generates an answer to query grounded on the retrieval result.
// It returns a CompositionError without invoking the generator when there
// is nothing to ground on: no hits, or a blank question. Hits beyond the
// context budget are dropped lowest-ranked first; the top hit is always
// included, truncated when it alone exceeds the budget.
func (c *Composer) Compose(ctx context.Context, query string, result *retrieve.Result) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &CompositionError{Reason: "empty question"}
	}
	if result == nil || len(result.Hits) == 0 {
		return nil, &CompositionError{Reason: "retrieval returned no passages"}
	}

	kept := c.fitBudget(result.Hits)
	if dropped := len(result.Hits) - len(kept); dropped > 0 {
		c.logger.Info("Context budget trimmed retrieval hits",
			"kept", len(kept),
			"dropped", dropped,
			"budget_chars", c.budget)
	}

	prompt := buildPrompt(query, kept)
	text, err := c.generator.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	citations := make([]Citation, len(kept))
	for i, hit := range kept {
		citations[i] = Citation{
			Document:  hit.Chunk.DocumentName,
			Label:     hit.Chunk.Label,
			Reference: Reference(hit.Chunk),
			Start:     hit.Chunk.Start,
			End:       hit.Chunk.End,
			Score:     hit.Score,
			Kind:      result.Mode,
		}
	}
	return &Answer{Text: text, Citations: citations}, nil
}

// fitBudget keeps hits in rank order while their context blocks fit the
// character budget. When even the first block is over budget its text is
// cut down so the top passage always survives.
func (c *Composer) fitBudget(hits []retrieve.Hit) []retrieve.Hit {
	kept := make([]retrieve.Hit, 0, len(hits))
	used := 0
	for _, hit := range hits {
		n := len(kept) + 1
		size := utf8.RuneCountInString(contextBlock(n, hit.Chunk))
		if used+size > c.budget {
			if len(kept) > 0 {
				break
			}
			hit = truncateHit(hit, c.budget)
			size = utf8.RuneCountInString(contextBlock(n, hit.Chunk))
		}
		kept = append(kept, hit)
		used += size
	}
	return kept
}

// truncateHit shortens the chunk text so its context block fits within
// budget characters. The chunk is copied; retrieval results stay intact.
func truncateHit(hit retrieve.Hit, budget int) retrieve.Hit {
	chunk := *hit.Chunk
	overhead := utf8.RuneCountInString(contextBlock(1, &storage.Chunk{
		DocumentName: chunk.DocumentName,
		DocumentType: chunk.DocumentType,
		Label:        chunk.Label,
		Start:        chunk.Start,
		End:          chunk.End,
	}))
	allowed := budget - overhead
	if allowed < 0 {
		allowed = 0
	}
	runes := []rune(chunk.Text)
	if len(runes) > allowed {
		chunk.Text = string(runes[:allowed])
	}
	hit.Chunk = &chunk
	return hit
}

const promptInstructions = `Instructions:
1. Provide a clear, accurate answer based on the legal documents provided
2. If the answer is found in a specific section/article, mention the section number
3. If the information is not available in the provided context, say so clearly
4. Use simple language that a non-lawyer can understand
5. If applicable, provide relevant details about punishments, procedures, or requirements

Answer:`

func buildPrompt(query string, hits []retrieve.Hit) string {
	var context strings.Builder
	for i, hit := range hits {
		context.WriteString(contextBlock(i+1, hit.Chunk))
	}

	var b strings.Builder
	b.WriteString("You are a legal assistant specializing in Pakistani law. ")
	b.WriteString("Answer the user's question based on the provided legal documents.\n\n")
	b.WriteString("Context Documents:\n")
	b.WriteString(context.String())
	b.WriteString("User Question: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString(promptInstructions)
	return b.String()
}

func contextBlock(n int, chunk *storage.Chunk) string {
	return fmt.Sprintf("Document %d:\nSection: %s\nTitle: %s\nContent: %s\n\n",
		n, Reference(chunk), chunk.DocumentName, chunk.Text)
}

// Reference renders a chunk's citation: its label with the document's
// citation unit, or the rune offsets when the passage is unlabeled.
// Serving layers use the same form so a citation in an answer matches
// the passage returned by a lookup.
func Reference(chunk *storage.Chunk) string {
	if chunk.Label != "" {
		return corpus.DocumentType(chunk.DocumentType).SectionTerm() + " " + chunk.Label
	}
	return fmt.Sprintf("offsets %d-%d", chunk.Start, chunk.End)
}
