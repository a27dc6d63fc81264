package structural

import (
	"errors"
	"testing"

	"github.com/paklaw/lawrag/internal/corpus"
)

// TestNormalize verifies canonicalization across casing, whitespace, and
// qualifier variants of the same label.
func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"302", "302"},
		{"Section 302", "302"},
		{"  SECTION   302  ", "302"},
		{"section 302-a", "302A"},
		{"302 - A", "302A"},
		{"302a", "302A"},
		{"Article 19", "19"},
		{"art. 19", "19"},
		{"s. 420", "420"},
		{"489-F", "489F"},
		{"the section 1", "1"},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.raw)
		if err != nil {
			t.Errorf("Normalize(%q) failed: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

// TestNormalize_Idempotent verifies canonical forms normalize to themselves.
func TestNormalize_Idempotent(t *testing.T) {
	for _, canonical := range []string{"302", "302A", "489F", "19"} {
		got, err := Normalize(canonical)
		if err != nil {
			t.Errorf("Normalize(%q) failed: %v", canonical, err)
			continue
		}
		if got != canonical {
			t.Errorf("Normalize(%q) = %q, not idempotent", canonical, got)
		}
	}
}

// TestNormalize_Malformed verifies inputs without a recognizable number
// surface ErrMalformedLabel.
func TestNormalize_Malformed(t *testing.T) {
	for _, raw := range []string{"", "five", "section", "section five", "19733", "about murder"} {
		_, err := Normalize(raw)
		if !errors.Is(err, ErrMalformedLabel) {
			t.Errorf("Normalize(%q): expected ErrMalformedLabel, got %v", raw, err)
		}
	}
}

// TestDetectHeadings verifies heading detection, canonical labels, and
// offset ordering on penal-code style text.
func TestDetectHeadings(t *testing.T) {
	text := "Pakistan Penal Code\n\n" +
		"Section 302. Punishment for murder.\n" +
		"Whoever commits murder shall be punished with death, as provided under Section 34, read with clause (b).\n\n" +
		"Section 489-F: Dishonestly issuing a cheque."

	headings := DetectHeadings(text)

	if len(headings) != 2 {
		t.Fatalf("Expected 2 headings, got %d: %+v", len(headings), headings)
	}

	if headings[0].Label != "302" {
		t.Errorf("Heading 0 label: expected '302', got %q", headings[0].Label)
	}
	if headings[0].Term != "Section" {
		t.Errorf("Heading 0 term: expected 'Section', got %q", headings[0].Term)
	}
	if headings[0].Start != 21 {
		t.Errorf("Heading 0 start: expected 21, got %d", headings[0].Start)
	}

	if headings[1].Label != "489F" {
		t.Errorf("Heading 1 label: expected '489F', got %q", headings[1].Label)
	}
	if headings[1].Start <= headings[0].Start {
		t.Errorf("Headings not in offset order: %d then %d", headings[0].Start, headings[1].Start)
	}
}

// TestDetectHeadings_CrossReference verifies running-text references
// without heading punctuation are not detected.
func TestDetectHeadings_CrossReference(t *testing.T) {
	text := "An offence under Section 34 read with any other provision shall apply."
	if headings := DetectHeadings(text); len(headings) != 0 {
		t.Errorf("Cross-reference detected as heading: %+v", headings)
	}
}

// TestDetectHeadings_Articles verifies constitution-style headings.
func TestDetectHeadings_Articles(t *testing.T) {
	text := "Article 19. Freedom of speech.\n\nArticle 19-A. Right to information."

	headings := DetectHeadings(text)
	if len(headings) != 2 {
		t.Fatalf("Expected 2 headings, got %d", len(headings))
	}

	if headings[0].Label != "19" || headings[0].Term != "Article" || headings[0].Start != 0 {
		t.Errorf("Heading 0: got %+v", headings[0])
	}
	if headings[1].Label != "19A" {
		t.Errorf("Heading 1 label: expected '19A', got %q", headings[1].Label)
	}
	if headings[1].Start != 32 {
		t.Errorf("Heading 1 start: expected 32, got %d", headings[1].Start)
	}
}

// TestDetectHeadings_Empty verifies plain prose yields no headings.
func TestDetectHeadings_Empty(t *testing.T) {
	if headings := DetectHeadings("No structure in this text at all."); len(headings) != 0 {
		t.Errorf("Expected no headings, got %+v", headings)
	}
}

// TestFindQueryReference verifies citation recognition in queries.
func TestFindQueryReference(t *testing.T) {
	tests := []struct {
		query    string
		ok       bool
		label    string
		typeHint corpus.DocumentType
		fullSpan bool // expect coverage 1.0 after filler trimming
	}{
		{"Section 302", true, "302", "", true},
		{"what does section 302 say?", true, "302", "", true},
		{"section 302 of the pakistan penal code", true, "302", corpus.TypePenalCode, true},
		{"section 489-F of ppc", true, "489F", corpus.TypePenalCode, true},
		{"article 19 of the constitution", true, "19", corpus.TypeConstitution, true},
		{"tell me about article 19", true, "19", corpus.TypeConstitution, true},
		{"What is the punishment for murder?", false, "", "", false},
		{"what happened in 1973", false, "", "", false},
		{"freedom of speech rights", false, "", "", false},
	}

	for _, tt := range tests {
		m, ok := FindQueryReference(tt.query)
		if ok != tt.ok {
			t.Errorf("FindQueryReference(%q) ok = %v, want %v", tt.query, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if m.Label != tt.label {
			t.Errorf("FindQueryReference(%q) label = %q, want %q", tt.query, m.Label, tt.label)
		}
		if m.TypeHint != tt.typeHint {
			t.Errorf("FindQueryReference(%q) hint = %q, want %q", tt.query, m.TypeHint, tt.typeHint)
		}
		if tt.fullSpan && m.Coverage < 0.999 {
			t.Errorf("FindQueryReference(%q) coverage = %f, want 1.0", tt.query, m.Coverage)
		}
	}
}

// TestFindQueryReference_PartialCoverage verifies citations embedded in
// longer substantive queries score proportionally lower.
func TestFindQueryReference_PartialCoverage(t *testing.T) {
	m, ok := FindQueryReference("murder under section 302")
	if !ok {
		t.Fatal("Expected a reference match")
	}
	if m.Coverage <= 0 || m.Coverage >= 0.6 {
		t.Errorf("Coverage = %f, expected within (0, 0.6)", m.Coverage)
	}
}

// TestFindQueryReference_Deterministic verifies repeated calls agree.
func TestFindQueryReference_Deterministic(t *testing.T) {
	query := "explain section 302 of the penal code"
	first, ok1 := FindQueryReference(query)
	second, ok2 := FindQueryReference(query)

	if ok1 != ok2 || first != second {
		t.Errorf("Non-deterministic matching: %+v/%v vs %+v/%v", first, ok1, second, ok2)
	}
}
