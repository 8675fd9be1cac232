package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radpushman/ct-knowledge/internal/storage"
)

type stubEmbedder struct{ err error }

func (s stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return make([]float32, storage.VectorDimension), nil
}

type stubIndex struct {
	hits         []*storage.ScoredChunk
	err          error
	lastCategory string
}

func (s *stubIndex) SearchChunks(_ context.Context, _ []float32, _ int, category string) ([]*storage.ScoredChunk, error) {
	s.lastCategory = category
	return s.hits, s.err
}

func hit(docID string, score float64) *storage.ScoredChunk {
	return &storage.ScoredChunk{Chunk: &storage.Chunk{DocumentID: docID}, Score: score}
}

func TestSearcherKeywordOnly(t *testing.T) {
	s := NewSearcher(ctCorpus(), nil)
	assert.False(t, s.Semantic())

	results := s.Search(context.Background(), "조영제", 5, Filter{})
	require.Len(t, results, 2)
	assert.Equal(t, SourceKeyword, results[0].Source)
}

func TestSearcherSemanticDedupes(t *testing.T) {
	index := &stubIndex{hits: []*storage.ScoredChunk{
		hit("contrast", 0.91),
		hit("contrast", 0.88),
		hit("missing", 0.85),
		hit("protocol", 0.52),
		hit("protocol", 0.10),
	}}
	s := NewSearcher(ctCorpus(), nil).WithSemantic(stubEmbedder{}, index)

	results := s.Search(context.Background(), "allergic reaction", 5, Filter{Category: "응급상황"})
	require.Len(t, results, 2)
	assert.Equal(t, "contrast", results[0].ID)
	assert.Equal(t, 0.91, results[0].Score)
	assert.Equal(t, "protocol", results[1].ID)
	assert.Equal(t, SourceSemantic, results[1].Source)
	assert.Equal(t, "응급상황", index.lastCategory)
}

func TestSearcherFallsBackOnError(t *testing.T) {
	s := NewSearcher(ctCorpus(), nil).WithSemantic(stubEmbedder{err: errors.New("quota")}, &stubIndex{})

	results := s.Search(context.Background(), "조영제", 5, Filter{})
	require.NotEmpty(t, results)
	assert.Equal(t, SourceKeyword, results[0].Source)
}

func TestSearcherFallsBackOnWeakHits(t *testing.T) {
	index := &stubIndex{hits: []*storage.ScoredChunk{hit("contrast", 0.05)}}
	s := NewSearcher(ctCorpus(), nil).WithSemantic(stubEmbedder{}, index)

	results := s.Search(context.Background(), "조영제", 5, Filter{})
	require.Len(t, results, 2)
	assert.Equal(t, SourceKeyword, results[0].Source)
}
