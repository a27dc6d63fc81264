package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv pins the override variables to empty so tests see only file
// and default values regardless of the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"QDRANT_HOST", "QDRANT_PORT", "LAWRAG_COLLECTION", "LAWRAG_CORPUS_DIR"} {
		t.Setenv(key, "")
	}
}

// TestLoad_MissingFile verifies that a missing config file yields the
// built-in defaults.
func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	def := Default()
	if cfg.Qdrant.Host != def.Qdrant.Host || cfg.Qdrant.Port != def.Qdrant.Port {
		t.Errorf("qdrant defaults not applied: %+v", cfg.Qdrant)
	}
	if cfg.Segment.ChunkSize != 1000 || cfg.Segment.ChunkOverlap != 200 {
		t.Errorf("segment defaults not applied: %+v", cfg.Segment)
	}
	if cfg.Retrieval.StructuralConfidence != 0.6 {
		t.Errorf("structural_confidence default not applied: %g", cfg.Retrieval.StructuralConfidence)
	}
}

// TestLoad_PartialFile verifies that fields present in the file take
// effect while unset fields keep their defaults.
func TestLoad_PartialFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
qdrant:
  host: qdrant.internal
segment:
  chunk_size: 800
  chunk_overlap: 150
index:
  corpus_dir: /data/laws
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Qdrant.Host != "qdrant.internal" {
		t.Errorf("host = %q, want qdrant.internal", cfg.Qdrant.Host)
	}
	if cfg.Qdrant.Port != 6334 {
		t.Errorf("port default not applied: %d", cfg.Qdrant.Port)
	}
	if cfg.Segment.ChunkSize != 800 || cfg.Segment.ChunkOverlap != 150 {
		t.Errorf("segment overrides not applied: %+v", cfg.Segment)
	}
	if cfg.Index.CorpusDir != "/data/laws" {
		t.Errorf("corpus_dir = %q, want /data/laws", cfg.Index.CorpusDir)
	}
	if cfg.Index.Workers != 4 {
		t.Errorf("workers default not applied: %d", cfg.Index.Workers)
	}
}

// TestLoad_EnvOverrides verifies that environment variables win over both
// defaults and file values.
func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("qdrant:\n  host: from-file\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	t.Setenv("QDRANT_HOST", "qdrant.prod")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("LAWRAG_COLLECTION", "laws_v2")
	t.Setenv("LAWRAG_CORPUS_DIR", "/srv/corpus")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Qdrant.Host != "qdrant.prod" {
		t.Errorf("host = %q, want qdrant.prod", cfg.Qdrant.Host)
	}
	if cfg.Qdrant.Port != 7000 {
		t.Errorf("port = %d, want 7000", cfg.Qdrant.Port)
	}
	if cfg.Qdrant.Collection != "laws_v2" {
		t.Errorf("collection = %q, want laws_v2", cfg.Qdrant.Collection)
	}
	if cfg.Index.CorpusDir != "/srv/corpus" {
		t.Errorf("corpus_dir = %q, want /srv/corpus", cfg.Index.CorpusDir)
	}
}

// TestLoad_BadPortEnv verifies that an unparsable QDRANT_PORT is an error
// rather than a silent fallback.
func TestLoad_BadPortEnv(t *testing.T) {
	t.Setenv("QDRANT_PORT", "not-a-port")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "QDRANT_PORT") {
		t.Errorf("error does not name the variable: %v", err)
	}
}

// TestLoad_InvalidGeometry verifies that overlap and tolerance settings
// that would break segmentation are rejected.
func TestLoad_InvalidGeometry(t *testing.T) {
	clearEnv(t)
	cases := []struct {
		name    string
		content string
	}{
		{"overlap >= chunk size", "segment:\n  chunk_size: 200\n  chunk_overlap: 200\n  break_tolerance: 10\n"},
		{"tolerance too large", "segment:\n  chunk_size: 300\n  chunk_overlap: 200\n  break_tolerance: 150\n"},
		{"negative top_k", "retrieval:\n  top_k: -1\n"},
		{"confidence above one", "retrieval:\n  structural_confidence: 1.5\n"},
	}

	for _, tc := range cases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
			t.Fatalf("%s: write fixture: %v", tc.name, err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected validation error, got nil", tc.name)
		}
	}
}

// TestLoad_MalformedYAML verifies that syntax errors surface.
func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("qdrant: [unclosed"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}
