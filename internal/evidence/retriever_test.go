package evidence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	embedding []float32
	err       error
	calls     int
}

func (s *stubEmbedder) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	return s.embedding, s.err
}

type stubCache struct {
	entries map[string][]float32
	getErr  error
	setErr  error
	sets    int
}

func newStubCache() *stubCache {
	return &stubCache{entries: map[string][]float32{}}
}

func (s *stubCache) GetEmbedding(_ context.Context, textHash string) ([]float32, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	embedding, found := s.entries[textHash]
	return embedding, found, nil
}

func (s *stubCache) SetEmbedding(_ context.Context, textHash string, embedding []float32, _ time.Duration) error {
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.entries[textHash] = embedding
	return nil
}

func TestEmbedQueryWithoutCache(t *testing.T) {
	embedder := &stubEmbedder{embedding: []float32{0.1, 0.2}}
	r := NewVectorRetriever(nil, embedder)

	got, err := r.embedQuery(context.Background(), "output voltage high")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, got)
	assert.Equal(t, 1, embedder.calls)
}

func TestEmbedQueryReadThrough(t *testing.T) {
	embedder := &stubEmbedder{embedding: []float32{0.1, 0.2}}
	cache := newStubCache()
	r := NewVectorRetriever(nil, embedder, WithEmbeddingCache(cache, time.Hour))

	first, err := r.embedQuery(context.Background(), "output voltage high")
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 1, cache.sets, "miss populates the cache")

	second, err := r.embedQuery(context.Background(), "output voltage high")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, embedder.calls, "hit skips the embedder")
}

func TestEmbedQueryCacheFailuresFallThrough(t *testing.T) {
	embedder := &stubEmbedder{embedding: []float32{0.3}}
	cache := newStubCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	r := NewVectorRetriever(nil, embedder, WithEmbeddingCache(cache, time.Hour))

	got, err := r.embedQuery(context.Background(), "smoke from enclosure")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.3}, got)
	assert.Equal(t, 1, embedder.calls)
}

func TestEmbedQueryEmbedderErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	embedder := &stubEmbedder{err: boom}
	r := NewVectorRetriever(nil, embedder, WithEmbeddingCache(newStubCache(), time.Hour))

	_, err := r.embedQuery(context.Background(), "no output")

	assert.ErrorIs(t, err, boom)
}
