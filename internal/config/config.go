// Package config loads the application configuration from YAML with
// environment overrides. The OpenAI API key is deliberately not part of
// the file format; the client reads OPENAI_API_KEY from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// QdrantConfig contains connection details for the Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// EmbeddingConfig configures the OpenAI embedding client.
type EmbeddingConfig struct {
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GenerationConfig configures the answer generation model.
type GenerationConfig struct {
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SegmentConfig configures how document text is split into chunks.
type SegmentConfig struct {
	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	BreakTolerance int `yaml:"break_tolerance"`
}

// RetrievalConfig configures query routing and passage retrieval.
type RetrievalConfig struct {
	TopK                 int     `yaml:"top_k"`
	OverfetchFactor      int     `yaml:"overfetch_factor"`
	StructuralConfidence float64 `yaml:"structural_confidence"`
	ContextBudget        int     `yaml:"context_budget"`
}

// IndexConfig configures corpus discovery and the indexing pipeline.
type IndexConfig struct {
	CorpusDir     string `yaml:"corpus_dir"`
	Workers       int    `yaml:"workers"`
	RetryAttempts int    `yaml:"retry_attempts"`
}

// Config is the root application configuration.
type Config struct {
	Qdrant     QdrantConfig     `yaml:"qdrant"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Segment    SegmentConfig    `yaml:"segment"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Index      IndexConfig      `yaml:"index"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "pakistani_laws",
		},
		Embedding: EmbeddingConfig{
			Model:       "text-embedding-3-small",
			Dimensions:  1536,
			BatchSize:   64,
			TimeoutSecs: 20,
		},
		Generation: GenerationConfig{
			Model:       "gpt-4o",
			TimeoutSecs: 30,
		},
		Segment: SegmentConfig{
			ChunkSize:      1000,
			ChunkOverlap:   200,
			BreakTolerance: 120,
		},
		Retrieval: RetrievalConfig{
			TopK:                 5,
			OverfetchFactor:      2,
			StructuralConfidence: 0.6,
			ContextBudget:        8000,
		},
		Index: IndexConfig{
			CorpusDir:     "./pdfs",
			Workers:       4,
			RetryAttempts: 4,
		},
	}
}

// Load reads the configuration from path. A missing file yields the
// defaults; a present file is parsed and any unset field falls back to its
// default. Environment overrides are applied last, then the result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		applyDefaults(cfg)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can drive the pipeline.
func (c *Config) Validate() error {
	if c.Qdrant.Host == "" {
		return errors.New("qdrant host must not be empty")
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("qdrant port %d out of range", c.Qdrant.Port)
	}
	if c.Qdrant.Collection == "" {
		return errors.New("qdrant collection must not be empty")
	}
	if c.Segment.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Segment.ChunkSize)
	}
	if c.Segment.ChunkOverlap < 0 || c.Segment.ChunkOverlap >= c.Segment.ChunkSize {
		return fmt.Errorf("chunk_overlap %d must be in [0, chunk_size %d)",
			c.Segment.ChunkOverlap, c.Segment.ChunkSize)
	}
	if c.Segment.BreakTolerance < 0 || c.Segment.BreakTolerance >= c.Segment.ChunkSize-c.Segment.ChunkOverlap {
		return fmt.Errorf("break_tolerance %d must be in [0, chunk_size minus chunk_overlap %d)",
			c.Segment.BreakTolerance, c.Segment.ChunkSize-c.Segment.ChunkOverlap)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.OverfetchFactor < 1 {
		return fmt.Errorf("overfetch_factor must be at least 1, got %d", c.Retrieval.OverfetchFactor)
	}
	if c.Retrieval.StructuralConfidence < 0 || c.Retrieval.StructuralConfidence > 1 {
		return fmt.Errorf("structural_confidence %g must be in [0, 1]", c.Retrieval.StructuralConfidence)
	}
	if c.Retrieval.ContextBudget <= 0 {
		return fmt.Errorf("context_budget must be positive, got %d", c.Retrieval.ContextBudget)
	}
	if c.Index.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Index.Workers)
	}
	if c.Index.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1, got %d", c.Index.RetryAttempts)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.BatchSize < 1 {
		return fmt.Errorf("embedding batch_size must be at least 1, got %d", c.Embedding.BatchSize)
	}
	return nil
}

// applyDefaults fills fields the YAML left at their zero value. Explicit
// zero values for required settings are indistinguishable from unset ones
// and fall back too; Validate catches genuinely broken combinations.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = def.Qdrant.Host
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = def.Qdrant.Port
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = def.Qdrant.Collection
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = def.Embedding.Dimensions
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = def.Embedding.BatchSize
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = def.Embedding.TimeoutSecs
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = def.Generation.Model
	}
	if cfg.Generation.TimeoutSecs == 0 {
		cfg.Generation.TimeoutSecs = def.Generation.TimeoutSecs
	}
	if cfg.Segment.ChunkSize == 0 {
		cfg.Segment.ChunkSize = def.Segment.ChunkSize
	}
	if cfg.Segment.ChunkOverlap == 0 {
		cfg.Segment.ChunkOverlap = def.Segment.ChunkOverlap
	}
	if cfg.Segment.BreakTolerance == 0 {
		cfg.Segment.BreakTolerance = def.Segment.BreakTolerance
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.OverfetchFactor == 0 {
		cfg.Retrieval.OverfetchFactor = def.Retrieval.OverfetchFactor
	}
	if cfg.Retrieval.StructuralConfidence == 0 {
		cfg.Retrieval.StructuralConfidence = def.Retrieval.StructuralConfidence
	}
	if cfg.Retrieval.ContextBudget == 0 {
		cfg.Retrieval.ContextBudget = def.Retrieval.ContextBudget
	}
	if cfg.Index.CorpusDir == "" {
		cfg.Index.CorpusDir = def.Index.CorpusDir
	}
	if cfg.Index.Workers == 0 {
		cfg.Index.Workers = def.Index.Workers
	}
	if cfg.Index.RetryAttempts == 0 {
		cfg.Index.RetryAttempts = def.Index.RetryAttempts
	}
}

// applyEnvOverrides lets deployment environments point the binary at a
// different Qdrant instance, corpus directory, or collection without
// editing the file.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		cfg.Qdrant.Host = v
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse QDRANT_PORT %q: %w", v, err)
		}
		cfg.Qdrant.Port = port
	}
	if v := os.Getenv("LAWRAG_COLLECTION"); v != "" {
		cfg.Qdrant.Collection = v
	}
	if v := os.Getenv("LAWRAG_CORPUS_DIR"); v != "" {
		cfg.Index.CorpusDir = v
	}
	return nil
}
