package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestClean_PageArtifacts verifies page headers and bare page numbers are removed.
func TestClean_PageArtifacts(t *testing.T) {
	input := "Section 302. Punishment for murder.\nPage 3 of 120\n17\nWhoever commits murder shall be punished."

	got := Clean(input)

	if strings.Contains(got, "Page 3 of 120") {
		t.Errorf("Page header not removed: %q", got)
	}
	if strings.Contains(got, "\n17\n") {
		t.Errorf("Bare page number not removed: %q", got)
	}
	if !strings.Contains(got, "Punishment for murder") {
		t.Errorf("Body text lost: %q", got)
	}
}

// TestClean_WhitespaceCollapse verifies space runs collapse but paragraph
// breaks survive.
func TestClean_WhitespaceCollapse(t *testing.T) {
	input := "Article  19.\t\tFreedom   of speech.\n\n\n\nEvery citizen shall have the right."

	got := Clean(input)

	if strings.Contains(got, "  ") {
		t.Errorf("Space run survived: %q", got)
	}
	if !strings.Contains(got, "\n\n") {
		t.Errorf("Paragraph break lost: %q", got)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("Blank-line run not reduced: %q", got)
	}
}

// TestClean_CRLF verifies Windows line endings are normalized.
func TestClean_CRLF(t *testing.T) {
	got := Clean("line one\r\nline two\rline three")
	if strings.ContainsAny(got, "\r") {
		t.Errorf("Carriage return survived: %q", got)
	}
	if got != "line one\nline two\nline three" {
		t.Errorf("Unexpected result: %q", got)
	}
}

// TestClean_StrayCharacters verifies PDF artifacts are stripped while legal
// punctuation is kept.
func TestClean_StrayCharacters(t *testing.T) {
	got := Clean("Section 302§•: (a) murder; [b] \"culpable homicide\" - yes/no?")

	if strings.ContainsAny(got, "§•") {
		t.Errorf("Stray characters survived: %q", got)
	}
	for _, keep := range []string{"(a)", "[b]", "\"culpable homicide\"", "-", "/", "?", ";", ":"} {
		if !strings.Contains(got, keep) {
			t.Errorf("Legal punctuation %q was stripped: %q", keep, got)
		}
	}
}

// TestText_PlainFile verifies .txt extraction end to end.
func TestText_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penal.txt")
	if err := os.WriteFile(path, []byte("Section 1. Title   and extent.\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := Text(path)
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if got != "Section 1. Title and extent." {
		t.Errorf("Unexpected text: %q", got)
	}
}

// TestText_Empty verifies empty sources surface ErrNoText.
func TestText_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("   \n\n  "), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := Text(path)
	if !errors.Is(err, ErrNoText) {
		t.Errorf("Expected ErrNoText, got %v", err)
	}
}

// TestText_UnsupportedType verifies unknown extensions are rejected.
func TestText_UnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "laws.docx")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := Text(path); err == nil {
		t.Error("Expected error for unsupported type, got nil")
	}
}
