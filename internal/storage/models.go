package storage

import "time"

// Chunk is the stored form of one document slice. Offsets are rune
// positions in the cleaned document text, so a chunk can always be traced
// back to its place in the source.
type Chunk struct {
	ID           string    // Deterministic UUID derived from document ID and offsets
	DocumentID   string    // Slug of the owning document: "pakistan_penal_code"
	DocumentName string    // Display name: "Pakistan Penal Code"
	DocumentType string    // "penal_code", "constitution", "other"
	ChunkIndex   int       // Position in document (0, 1, 2...)
	Start        int       // First rune of the slice
	End          int       // One past the last rune
	Text         string    // Chunk text content
	Label        string    // Governing structural label ("302", "19A"), may be empty
	Labels       []string  // Labels registered for structural lookup
	IndexedAt    time.Time // When this chunk version was written
	Embedding    []float32 // Vector sized to the collection dimension
}

// ScoredChunk pairs a chunk with its similarity score from vector search.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// DocumentStats summarizes the indexed chunks of one document.
type DocumentStats struct {
	DocumentID   string
	DocumentName string
	DocumentType string
	Chunks       uint64
	LastIndexed  time.Time
}

// IndexStats summarizes the whole collection.
type IndexStats struct {
	TotalChunks uint64
	Documents   []DocumentStats
}

// DefaultCollection is the Qdrant collection holding all law chunks.
const DefaultCollection = "pakistani_laws"

// DefaultVectorDimension is the embedding size for text-embedding-3-small.
const DefaultVectorDimension = 1536
