// Package structural implements the citation grammar of Pakistani law
// texts: detecting section/article headings in documents, normalizing
// labels to a canonical form, and recognizing structural references in
// user queries. The grammar is a small ordered set of declarative rules
// so behavior is deterministic and testable in isolation.
package structural

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/paklaw/lawrag/internal/corpus"
)

// ErrMalformedLabel indicates input that does not parse as a structural
// label at all, as opposed to a well-formed label that is simply not in
// the index.
var ErrMalformedLabel = errors.New("malformed structural label")

// Heading is a structural heading detected in document text.
type Heading struct {
	Label string // Canonical label, e.g. "302A"
	Term  string // Citation unit as written: "Section" or "Article"
	Start int    // Rune offset where the heading begins
}

// Match is a structural reference recognized in a user query.
type Match struct {
	Label    string              // Canonical label
	Term     string              // Citation unit: "Section" or "Article"
	TypeHint corpus.DocumentType // Body of law implied by the reference, empty when it implies none
	Coverage float64             // Matched span over the trimmed query, 0..1
}

var (
	labelQualifierRe = regexp.MustCompile(`^(?i)(?:the\s+)?(?:section|sec\.?|art(?:icle)?\.?|s\.)\s*`)
	labelShapeRe     = regexp.MustCompile(`^(\d{1,4})\s*-?\s*([A-Za-z]{0,2})$`)
)

// Normalize canonicalizes a structural label: trims and case-folds,
// collapses whitespace, strips a leading "Section"/"Article" qualifier,
// and joins the number to its letter suffix. "Section 302", "302-a" and
// " 302 A " all yield "302A"-style canonical forms ("302A", "302A",
// "302A"); "Article 19" yields "19". Returns ErrMalformedLabel when the
// input has no recognizable number.
func Normalize(raw string) (string, error) {
	s := strings.Join(strings.Fields(raw), " ")
	s = labelQualifierRe.ReplaceAllString(s, "")

	m := labelShapeRe.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedLabel, raw)
	}
	return m[1] + strings.ToUpper(m[2]), nil
}
