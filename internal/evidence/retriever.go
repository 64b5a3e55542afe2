package evidence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/biomed-agent/backend/internal/metrics"
	"github.com/biomed-agent/backend/internal/vector/milvus"
	"github.com/biomed-agent/backend/pkg/logger"
	"github.com/biomed-agent/backend/pkg/utils"
)

// Snippet is a retrieved service-manual fragment offered as supplementary
// evidence. Retrieval is auxiliary: its absence never fails a diagnosis.
type Snippet struct {
	DocID     string  `json:"doc_id"`
	Title     string  `json:"title"`
	Section   string  `json:"section,omitempty"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
}

// Retriever returns ranked document snippets for a free-text query scoped
// to one equipment model.
type Retriever interface {
	Retrieve(ctx context.Context, query, equipmentModel string, topK int) ([]Snippet, error)
}

// Embedder turns text into a vector for similarity search. Satisfied by
// the LLM client.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingCache stores query embeddings keyed by text hash. Satisfied by
// the redis client.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// VectorRetriever retrieves snippets by embedding similarity over the
// service-manual collection, filtered by equipment model.
type VectorRetriever struct {
	vectorDB *milvus.Client
	embedder Embedder

	cache    EmbeddingCache
	cacheTTL time.Duration
}

type RetrieverOption func(*VectorRetriever)

// WithEmbeddingCache enables read-through caching of query embeddings.
// The same trigger text recurs across sessions for a recurring fault, so
// a hit saves one embedding call.
func WithEmbeddingCache(cache EmbeddingCache, ttl time.Duration) RetrieverOption {
	return func(r *VectorRetriever) {
		r.cache = cache
		r.cacheTTL = ttl
	}
}

func NewVectorRetriever(vectorDB *milvus.Client, embedder Embedder, opts ...RetrieverOption) *VectorRetriever {
	r := &VectorRetriever{
		vectorDB: vectorDB,
		embedder: embedder,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query, equipmentModel string, topK int) ([]Snippet, error) {
	searchQuery := BuildQuery(query, equipmentModel)

	embedding, err := r.embedQuery(ctx, searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to embed evidence query: %w", err)
	}

	results, err := r.vectorDB.Search(ctx, embedding, topK, equipmentModel)
	if err != nil {
		return nil, fmt.Errorf("failed to search evidence store: %w", err)
	}

	snippets := make([]Snippet, 0, len(results))
	for _, res := range results {
		snippets = append(snippets, Snippet{
			DocID:     res.ManualID,
			Title:     res.Title,
			Section:   res.Section,
			Content:   res.Text,
			Relevance: relevanceFromDistance(res.Score),
		})
	}

	logger.Debug("Evidence retrieved",
		zap.String("equipment_model", equipmentModel),
		zap.String("query", searchQuery),
		zap.Int("snippets", len(snippets)),
	)

	return snippets, nil
}

// embedQuery resolves the query embedding through the cache when one is
// configured. Cache failures fall through to the embedder; only the
// embedder itself can fail the retrieval.
func (r *VectorRetriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.cache == nil {
		return r.embedder.GenerateEmbedding(ctx, query)
	}

	textHash := utils.HashString(query)

	cached, found, err := r.cache.GetEmbedding(ctx, textHash)
	if err != nil {
		logger.Warn("Embedding cache read failed", zap.Error(err))
	}
	if found {
		metrics.CacheHits.WithLabelValues("embedding").Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues("embedding").Inc()

	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetEmbedding(ctx, textHash, embedding, r.cacheTTL); err != nil {
		logger.Warn("Embedding cache write failed", zap.Error(err))
	}

	return embedding, nil
}

// relevanceFromDistance maps an L2 distance (0 = identical) onto (0, 1].
func relevanceFromDistance(distance float32) float64 {
	return 1.0 / (1.0 + float64(distance))
}
