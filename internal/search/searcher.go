package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/radpushman/ct-knowledge/internal/storage"
)

// DefaultMinScore drops weak vector matches.
const DefaultMinScore = 0.3

// DocumentStore resolves chunk hits back to documents.
type DocumentStore interface {
	DocumentSource
	Get(id string) (storage.Document, error)
}

// QueryEmbedder embeds a search query.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// ChunkIndex runs vector similarity search over document chunks.
type ChunkIndex interface {
	SearchChunks(ctx context.Context, embedding []float32, limit int, category string) ([]*storage.ScoredChunk, error)
}

// Searcher tries the semantic index first and falls back to keyword
// ranking when it is not configured, fails, or finds nothing.
type Searcher struct {
	store    DocumentStore
	keyword  *Engine
	embedder QueryEmbedder
	index    ChunkIndex
	minScore float64
	logger   *slog.Logger
}

// NewSearcher creates a keyword-only searcher.
func NewSearcher(store DocumentStore, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		store:    store,
		keyword:  NewEngine(store),
		minScore: DefaultMinScore,
		logger:   logger,
	}
}

// WithSemantic enables vector search.
func (s *Searcher) WithSemantic(embedder QueryEmbedder, index ChunkIndex) *Searcher {
	s.embedder = embedder
	s.index = index
	return s
}

// Semantic reports whether vector search is enabled.
func (s *Searcher) Semantic() bool {
	return s.embedder != nil && s.index != nil
}

// Search returns at most n results for query.
func (s *Searcher) Search(ctx context.Context, query string, n int, f Filter) []Result {
	if n <= 0 {
		n = DefaultLimit
	}
	if s.Semantic() {
		results, err := s.semantic(ctx, query, n, f)
		if err != nil {
			s.logger.Warn("Semantic search failed, using keyword search", "error", err)
		} else if len(results) > 0 {
			return results
		}
	}
	return s.keyword.SearchWithFilter(query, n, f)
}

func (s *Searcher) semantic(ctx context.Context, query string, n int, f Filter) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	// Several chunks can hit one document; hits arrive best first.
	chunks, err := s.index.SearchChunks(ctx, vec, n*3, f.Category)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var results []Result
	for _, hit := range chunks {
		if hit.Score < s.minScore || seen[hit.DocumentID] {
			continue
		}
		seen[hit.DocumentID] = true
		doc, err := s.store.Get(hit.DocumentID)
		if err != nil {
			s.logger.Debug("Skipping stale chunk", "doc_id", hit.DocumentID)
			continue
		}
		results = append(results, Result{Document: doc, Score: hit.Score, Source: SourceSemantic})
		if len(results) == n {
			break
		}
	}
	return results, nil
}
