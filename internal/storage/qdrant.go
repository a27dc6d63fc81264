// Package storage persists law chunks in Qdrant and serves both vector
// search and structural label lookup over them.
package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore wraps the Qdrant client with connection management, health
// checks, and the collection schema for law chunks.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimensions uint64
	host       string
	port       int
}

// NewQdrantStore creates a Qdrant client and verifies the server is
// reachable, retrying with exponential backoff before failing fast.
// Empty collection or non-positive dimensions fall back to the defaults.
func NewQdrantStore(host string, port int, collection string, dimensions int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	if collection == "" {
		collection = DefaultCollection
	}
	if dimensions <= 0 {
		dimensions = DefaultVectorDimension
	}

	store := &QdrantStore{
		client:     client,
		collection: collection,
		dimensions: uint64(dimensions),
		host:       host,
		port:       port,
	}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// Collection returns the collection name this store writes to.
func (s *QdrantStore) Collection() string {
	return s.collection
}

// healthCheckWithRetry performs health checks with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		return s.Health(ctx)
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection creates the collection if it does not exist: a single
// cosine-distance vector per point plus keyword indexes on the filterable
// payload fields. Idempotent.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dimensions,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("create payload indexes: %w", err)
	}

	return nil
}

// createPayloadIndexes indexes the fields used in filters. Without these,
// filtered search and label lookup degrade to full scans.
func (s *QdrantStore) createPayloadIndexes(ctx context.Context) error {
	fields := []string{
		"document_id",   // Delete and stats by document
		"document_type", // Restrict search to penal code or constitution
		"label",         // Governing label of a chunk
		"labels",        // Every label registered for structural lookup
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create index for field %s: %w", field, err)
		}
	}

	return nil
}

// ClearCollection drops every stored chunk by deleting and recreating the
// collection. Used by full re-index runs.
func (s *QdrantStore) ClearCollection(ctx context.Context) error {
	err := s.client.DeleteCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("delete collection %s: %w", s.collection, err)
	}

	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry writes points with exponential backoff. Writes wait for
// commit so a following lookup sees its own data.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// UpsertChunks stores chunks with their embeddings, batched in groups of
// 100. Point IDs are the chunks' deterministic UUIDs, so re-indexing the
// same document overwrites in place.
func (s *QdrantStore) UpsertChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("%w: chunk %d of document %s", ErrEmptyChunkID, i, chunk.DocumentID)
		}
		if uint64(len(chunk.Embedding)) != s.dimensions {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), s.dimensions)
		}
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))

		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(chunk.ID),
				Vectors: qdrant.NewVectors(chunk.Embedding...),
				Payload: qdrant.NewValueMap(chunkPayload(chunk)),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// chunkPayload builds the stored payload for a chunk.
func chunkPayload(chunk *Chunk) map[string]any {
	labels := make([]interface{}, len(chunk.Labels))
	for i, label := range chunk.Labels {
		labels[i] = label
	}

	indexedAt := chunk.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now().UTC()
	}

	return map[string]any{
		"document_id":   chunk.DocumentID,
		"document_name": chunk.DocumentName,
		"document_type": chunk.DocumentType,
		"chunk_index":   chunk.ChunkIndex,
		"start":         chunk.Start,
		"end":           chunk.End,
		"text":          chunk.Text,
		"label":         chunk.Label,
		"labels":        labels,
		"indexed_at":    indexedAt.Format(time.RFC3339),
	}
}

// pointToChunk decodes a stored payload back into a Chunk. Embeddings are
// not returned; readers never need them.
func pointToChunk(id string, payload map[string]*qdrant.Value) *Chunk {
	var labels []string
	if v, ok := payload["labels"]; ok && v.GetListValue() != nil {
		for _, item := range v.GetListValue().Values {
			labels = append(labels, item.GetStringValue())
		}
	}

	indexedAt, err := time.Parse(time.RFC3339, payload["indexed_at"].GetStringValue())
	if err != nil {
		indexedAt = time.Time{}
	}

	return &Chunk{
		ID:           id,
		DocumentID:   payload["document_id"].GetStringValue(),
		DocumentName: payload["document_name"].GetStringValue(),
		DocumentType: payload["document_type"].GetStringValue(),
		ChunkIndex:   int(payload["chunk_index"].GetIntegerValue()),
		Start:        int(payload["start"].GetIntegerValue()),
		End:          int(payload["end"].GetIntegerValue()),
		Text:         payload["text"].GetStringValue(),
		Label:        payload["label"].GetStringValue(),
		Labels:       labels,
		IndexedAt:    indexedAt,
	}
}

// DeleteByDocument removes every chunk belonging to the document. Runs
// before re-upserting so a shorter re-segmentation cannot leave stale
// chunks behind. Waits for commit.
func (s *QdrantStore) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("delete chunks of document %s: %w", documentID, err)
	}

	return nil
}

// SearchChunks performs vector similarity search, optionally restricted
// to one document type. Results arrive ordered by score descending.
func (s *QdrantStore) SearchChunks(ctx context.Context, embedding []float32, limit int, documentType string) ([]*ScoredChunk, error) {
	if uint64(len(embedding)) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimensions)
	}

	var filter *qdrant.Filter
	if documentType != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_type", documentType),
			},
		}
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	scored := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		scored = append(scored, &ScoredChunk{
			Chunk: pointToChunk(result.Id.GetUuid(), result.Payload),
			Score: float64(result.Score),
		})
	}

	return scored, nil
}

// LookupLabel returns every chunk registered under the given normalized
// label, optionally restricted to one document type. Results are ordered
// by document then start offset so callers can stitch a section back
// together; an unknown label yields an empty slice, not an error.
func (s *QdrantStore) LookupLabel(ctx context.Context, label string, documentType string) ([]*Chunk, error) {
	must := []*qdrant.Condition{
		qdrant.NewMatch("labels", label),
	}
	if documentType != "" {
		must = append(must, qdrant.NewMatch("document_type", documentType))
	}
	filter := &qdrant.Filter{Must: must}

	var chunks []*Chunk
	seen := make(map[string]bool)
	var offset *qdrant.PointId
	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         filter,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scroll chunks for label %s: %w", label, err)
		}

		for _, result := range results {
			id := result.Id.GetUuid()
			if seen[id] {
				continue
			}
			seen[id] = true
			chunks = append(chunks, pointToChunk(id, result.Payload))
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].Start < chunks[j].Start
	})

	return chunks, nil
}

// Count returns the total number of stored chunks.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	collection, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("get collection %s: %w", s.collection, err)
	}

	return collection.GetPointsCount(), nil
}

// Stats aggregates per-document chunk counts by scrolling the collection
// payloads. Meant for status reporting, not hot paths.
func (s *QdrantStore) Stats(ctx context.Context) (*IndexStats, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}

	byDoc := make(map[string]*DocumentStats)
	seen := make(map[string]bool)
	var offset *qdrant.PointId
	batchSize := uint32(256)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("document_id", "document_name", "document_type", "indexed_at"),
		})
		if err != nil {
			return nil, fmt.Errorf("scroll collection stats: %w", err)
		}

		for _, result := range results {
			id := result.Id.GetUuid()
			if seen[id] {
				continue
			}
			seen[id] = true

			docID := result.Payload["document_id"].GetStringValue()
			stats, ok := byDoc[docID]
			if !ok {
				stats = &DocumentStats{
					DocumentID:   docID,
					DocumentName: result.Payload["document_name"].GetStringValue(),
					DocumentType: result.Payload["document_type"].GetStringValue(),
				}
				byDoc[docID] = stats
			}
			stats.Chunks++

			if ts, err := time.Parse(time.RFC3339, result.Payload["indexed_at"].GetStringValue()); err == nil && ts.After(stats.LastIndexed) {
				stats.LastIndexed = ts
			}
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	stats := &IndexStats{TotalChunks: total}
	for _, doc := range byDoc {
		stats.Documents = append(stats.Documents, *doc)
	}
	sort.Slice(stats.Documents, func(i, j int) bool {
		return stats.Documents[i].DocumentID < stats.Documents[j].DocumentID
	})

	return stats, nil
}
