// Package segment splits cleaned document text into overlapping chunks,
// the unit of storage and retrieval. Chunk boundaries snap to sentence or
// paragraph breaks where possible, and every chunk carries the structural
// labels that govern it.
package segment

import (
	"fmt"
	"strings"

	"github.com/paklaw/lawrag/internal/corpus"
	"github.com/paklaw/lawrag/internal/structural"
)

const (
	// DefaultChunkSize is the window size W in runes.
	DefaultChunkSize = 1000
	// DefaultOverlap is the overlap O between consecutive chunks in runes.
	DefaultOverlap = 200
	// DefaultBreakTolerance is how far back from the hard window boundary
	// a chunk end may move to land on a clean break.
	DefaultBreakTolerance = 120
)

// SegmentationError reports document input that cannot be segmented.
// It is unrecoverable for that document; indexing skips it and continues.
type SegmentationError struct {
	DocumentID string
	Reason     string
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segment document %s: %s", e.DocumentID, e.Reason)
}

// Chunk is one retrievable slice of a document. Offsets are rune positions
// in the cleaned source text.
type Chunk struct {
	Index  int      // Position within the document (0, 1, 2...)
	Start  int      // First rune of the slice
	End    int      // One past the last rune
	Text   string   // The slice text
	Label  string   // Governing structural label, "" when none precedes the chunk
	Labels []string // Labels registered for lookup: governing plus any heading inside the range
}

// Segmenter splits document text into overlapping windows.
type Segmenter struct {
	chunkSize int
	overlap   int
	tolerance int
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithChunkSize overrides the window size W.
func WithChunkSize(n int) Option {
	return func(s *Segmenter) { s.chunkSize = n }
}

// WithOverlap overrides the overlap O between consecutive chunks.
func WithOverlap(n int) Option {
	return func(s *Segmenter) { s.overlap = n }
}

// WithBreakTolerance overrides how far a chunk end may snap backward.
func WithBreakTolerance(n int) Option {
	return func(s *Segmenter) { s.tolerance = n }
}

// NewSegmenter creates a Segmenter, validating that the window geometry
// guarantees forward progress: overlap and tolerance must both leave room
// inside the window.
func NewSegmenter(opts ...Option) (*Segmenter, error) {
	s := &Segmenter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
		tolerance: DefaultBreakTolerance,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", s.chunkSize)
	}
	if s.overlap < 0 || s.overlap >= s.chunkSize {
		return nil, fmt.Errorf("overlap %d must be in [0, chunk size %d)", s.overlap, s.chunkSize)
	}
	if s.tolerance < 0 || s.tolerance >= s.chunkSize-s.overlap {
		return nil, fmt.Errorf("break tolerance %d must be in [0, chunk size minus overlap %d)",
			s.tolerance, s.chunkSize-s.overlap)
	}
	return s, nil
}

// Segment splits text into chunks for doc. Headings are detected first so
// each chunk inherits the most recent label preceding its end, and every
// heading inside a chunk's range registers with that chunk — a heading in
// the overlap region is therefore attached to both neighbours. A document
// shorter than the window yields exactly one chunk.
func (s *Segmenter) Segment(doc corpus.Document, text string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &SegmentationError{DocumentID: doc.ID, Reason: "document text is empty"}
	}

	runes := []rune(text)
	headings := structural.DetectHeadings(text)

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.snapToBreak(runes, start, end)
		}

		chunk := Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		}
		chunk.Label, chunk.Labels = labelsFor(headings, start, end)
		chunks = append(chunks, chunk)

		if end == len(runes) {
			break
		}
		start = end - s.overlap
	}

	return chunks, nil
}

// snapToBreak moves the hard window end backward to the cleanest break
// within tolerance: a paragraph break wins over a sentence end, which wins
// over a line break. With no break in range the hard boundary stands. The
// end only ever moves backward, so the chunk size bound holds, and the
// floor keeps the next chunk's start ahead of the current one.
func (s *Segmenter) snapToBreak(runes []rune, start, end int) int {
	limit := end - s.tolerance
	if floor := start + s.overlap + 1; limit < floor {
		limit = floor
	}

	sentence, newline := -1, -1
	for i := end - 1; i >= limit; i-- {
		r := runes[i]
		if r == '\n' {
			if i > 0 && runes[i-1] == '\n' {
				return i + 1 // paragraph break
			}
			if newline < 0 {
				newline = i + 1
			}
			continue
		}
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && isBreakSpace(runes[i+1]) {
			if sentence < 0 {
				sentence = i + 1
			}
		}
	}

	if sentence > 0 {
		return sentence
	}
	if newline > 0 {
		return newline
	}
	return end
}

func isBreakSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t'
}

// labelsFor computes the governing label and the registered label set for
// a chunk spanning [start, end) over headings sorted by offset.
func labelsFor(headings []structural.Heading, start, end int) (string, []string) {
	governing := ""
	var labels []string
	seen := make(map[string]bool)

	for _, h := range headings {
		if h.Start >= end {
			break
		}
		governing = h.Label
		if h.Start >= start && !seen[h.Label] {
			seen[h.Label] = true
			labels = append(labels, h.Label)
		}
	}

	if governing != "" && !seen[governing] {
		labels = append([]string{governing}, labels...)
	}
	return governing, labels
}
