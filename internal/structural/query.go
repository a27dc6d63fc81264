package structural

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/paklaw/lawrag/internal/corpus"
)

// queryRule recognizes a structural reference phrased as a query. Broader
// than heading rules: no trailing punctuation is required and an "of the
// <document>" qualifier may follow the number. Qualified rules come first
// so an explicit document mention wins over the bare forms.
type queryRule struct {
	re       *regexp.Regexp
	term     string
	typeHint corpus.DocumentType
}

const numPattern = `\d{1,4}(?:\s*-\s*[A-Za-z]{1,2}|[A-Za-z]{1,2})?`

var queryRules = []queryRule{
	{
		re:       regexp.MustCompile(`(?i)\b(?:the\s+)?section\s+(` + numPattern + `)\s+(?:of\s+)?(?:the\s+)?(?:pakistan\s+)?(?:penal\s+code|ppc)\b`),
		term:     "Section",
		typeHint: corpus.TypePenalCode,
	},
	{
		re:       regexp.MustCompile(`(?i)\b(?:the\s+)?article\s+(` + numPattern + `)\s+(?:of\s+)?(?:the\s+)?constitution(?:\s+of\s+pakistan)?\b`),
		term:     "Article",
		typeHint: corpus.TypeConstitution,
	},
	{
		// Bare "section N" carries no document hint: statutes other than
		// the penal code use sections too, so the lookup spans all types.
		re:   regexp.MustCompile(`(?i)\b(?:the\s+)?section\s+(` + numPattern + `)\b`),
		term: "Section",
	},
	{
		// Articles appear only in the Constitution.
		re:       regexp.MustCompile(`(?i)\b(?:the\s+)?article\s+(` + numPattern + `)\b`),
		term:     "Article",
		typeHint: corpus.TypeConstitution,
	},
}

// fillerWords may surround a citation without making the query semantic:
// "what does section 302 say" is still a lookup.
var fillerWords = map[string]bool{
	"what": true, "is": true, "are": true, "does": true, "do": true,
	"did": true, "tell": true, "me": true, "about": true, "show": true,
	"give": true, "explain": true, "describe": true, "define": true,
	"quote": true, "read": true, "find": true, "look": true, "up": true,
	"lookup": true, "get": true, "fetch": true, "say": true, "says": true,
	"state": true, "states": true, "mean": true, "means": true,
	"please": true, "can": true, "you": true, "the": true,
}

// FindQueryReference scans a user query for a structural citation.
// Coverage is computed against the query with conversational filler
// stripped from both ends, so "what does section 302 say" scores as high
// as "section 302". Returns ok=false when no citation is present.
func FindQueryReference(query string) (Match, bool) {
	trimmed := trimConversational(query)
	if trimmed == "" {
		return Match{}, false
	}
	total := utf8.RuneCountInString(trimmed)

	for _, rule := range queryRules {
		loc := rule.re.FindStringSubmatchIndex(trimmed)
		if loc == nil {
			continue
		}
		label, err := Normalize(trimmed[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		span := utf8.RuneCountInString(trimmed[loc[0]:loc[1]])
		return Match{
			Label:    label,
			Term:     rule.term,
			TypeHint: rule.typeHint,
			Coverage: float64(span) / float64(total),
		}, true
	}
	return Match{}, false
}

// trimConversational strips leading and trailing filler words plus
// punctuation so coverage reflects the substantive part of the query.
func trimConversational(query string) string {
	words := strings.Fields(query)
	for len(words) > 0 && isFiller(words[0]) {
		words = words[1:]
	}
	for len(words) > 0 && isFiller(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	return strings.Trim(strings.Join(words, " "), " .,!?")
}

func isFiller(word string) bool {
	return fillerWords[strings.ToLower(strings.Trim(word, ".,!?"))]
}
