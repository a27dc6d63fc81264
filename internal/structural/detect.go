package structural

import (
	"regexp"
	"sort"
	"unicode/utf8"
)

// headingRule binds one heading pattern to its citation unit. Group 1
// captures the label number. Headings require trailing punctuation after
// the number ("Section 302." or "Section 489-F:") so running-text
// cross-references like "under Section 34," are not mistaken for them.
type headingRule struct {
	re   *regexp.Regexp
	term string
}

var headingRules = []headingRule{
	{
		re:   regexp.MustCompile(`(?i)\bsection\s+(\d{1,4}(?:\s*-\s*[A-Za-z]{1,2}|[A-Za-z]{1,2})?)\s*[.:\-]`),
		term: "Section",
	},
	{
		re:   regexp.MustCompile(`(?i)\barticle\s+(\d{1,4}(?:\s*-\s*[A-Za-z]{1,2}|[A-Za-z]{1,2})?)\s*[.:\-]`),
		term: "Article",
	},
}

// DetectHeadings scans cleaned document text and returns every structural
// heading ordered by position. Offsets are rune positions so they line up
// with the segmenter's windowing.
func DetectHeadings(text string) []Heading {
	type hit struct {
		byteStart int
		heading   Heading
	}

	var hits []hit
	for _, rule := range headingRules {
		for _, m := range rule.re.FindAllStringSubmatchIndex(text, -1) {
			label, err := Normalize(text[m[2]:m[3]])
			if err != nil {
				continue
			}
			hits = append(hits, hit{
				byteStart: m[0],
				heading:   Heading{Label: label, Term: rule.term},
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].byteStart < hits[j].byteStart })

	// Byte offsets to rune offsets in a single pass over the text.
	headings := make([]Heading, 0, len(hits))
	bytePos, runePos := 0, 0
	for _, h := range hits {
		runePos += utf8.RuneCountInString(text[bytePos:h.byteStart])
		bytePos = h.byteStart
		h.heading.Start = runePos
		headings = append(headings, h.heading)
	}
	return headings
}
