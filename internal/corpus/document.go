// Package corpus manages the local collection of Pakistani law source
// documents: discovery on disk and download from official sources.
package corpus

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DocumentType classifies a law document by its body of law.
type DocumentType string

const (
	// TypePenalCode marks the Pakistan Penal Code and related criminal statutes.
	TypePenalCode DocumentType = "penal_code"
	// TypeConstitution marks the Constitution of Pakistan.
	TypeConstitution DocumentType = "constitution"
	// TypeOther marks documents that match no known body of law.
	TypeOther DocumentType = "other"
)

// Document is a logical law document discovered in the corpus directory.
// Documents are created at discovery time and never mutated; indexing and
// retrieval reference them by ID.
type Document struct {
	ID   string       // Stable slug derived from the file name
	Name string       // Human-readable title used in citations
	Type DocumentType // Body of law, derived from the file name
	Path string       // Location of the source file on disk
}

// TypeFromFilename determines the document type from a file name.
// Matching is case-insensitive on well-known markers: "penal" or "ppc"
// identify the Penal Code, "constitution" identifies the Constitution.
func TypeFromFilename(name string) DocumentType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "penal") || strings.Contains(lower, "ppc"):
		return TypePenalCode
	case strings.Contains(lower, "constitution"):
		return TypeConstitution
	default:
		return TypeOther
	}
}

// SectionTerm returns the citation unit used by this body of law:
// the Constitution is divided into articles, statutes into sections.
func (t DocumentType) SectionTerm() string {
	if t == TypeConstitution {
		return "Article"
	}
	return "Section"
}

// NewDocument builds a Document for a source file. The ID is a slug of the
// base name without extension ("pakistan_penal_code.pdf" becomes
// "pakistan_penal_code"), so re-discovering the same file always yields the
// same identity.
func NewDocument(path string) Document {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	return Document{
		ID:   slugify(stem),
		Name: displayName(stem),
		Type: TypeFromFilename(base),
		Path: path,
	}
}

// slugify lowercases the stem and collapses runs of non-alphanumeric
// characters into single underscores.
func slugify(stem string) string {
	var b strings.Builder
	lastUnderscore := true // trim leading separators
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// displayName turns a file stem into a readable title:
// "pakistan_penal_code" becomes "Pakistan Penal Code".
func displayName(stem string) string {
	words := strings.FieldsFunc(stem, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	title := cases.Title(language.English)
	for i, w := range words {
		// Years and section numbers stay as-is (e.g. "1973").
		if !isNumeric(w) {
			words[i] = title.String(w)
		}
	}
	return strings.Join(words, " ")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
