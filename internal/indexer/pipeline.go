package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/radpushman/ct-knowledge/internal/markdown"
	"github.com/radpushman/ct-knowledge/internal/storage"
)

// IndexResult contains statistics about an indexing run.
type IndexResult struct {
	TotalDocs      int
	TotalChunks    int
	SuccessfulDocs int
	FailedDocs     []FailedDoc
	Duration       time.Duration
}

// FailedDoc represents a document that failed to index.
type FailedDoc struct {
	ID     string
	Title  string
	Reason string
}

// DocumentSource lists the documents to index.
type DocumentSource interface {
	All() []storage.Document
}

// Embedder turns chunk texts into vectors.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex stores chunk vectors.
type VectorIndex interface {
	ClearCollection(ctx context.Context) error
	UpsertChunks(ctx context.Context, chunks []*storage.Chunk) error
	DeleteDocumentChunks(ctx context.Context, docID string) error
}

// Pipeline keeps the semantic index in step with the document store.
type Pipeline struct {
	source   DocumentSource
	chunker  *markdown.Chunker
	embedder Embedder
	index    VectorIndex
	logger   *slog.Logger
}

// NewPipeline creates an indexing pipeline.
func NewPipeline(
	source DocumentSource,
	chunker *markdown.Chunker,
	embedder Embedder,
	index VectorIndex,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:   source,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// IndexAll clears the index and rebuilds it from every stored document.
// A document that fails is recorded and skipped.
func (p *Pipeline) IndexAll(ctx context.Context) (*IndexResult, error) {
	start := time.Now()

	if err := p.index.ClearCollection(ctx); err != nil {
		return nil, fmt.Errorf("clear index: %w", err)
	}

	docs := p.source.All()
	result := &IndexResult{TotalDocs: len(docs)}
	p.logger.Info("Starting indexing", "documents", len(docs))

	for _, doc := range docs {
		chunks, err := p.indexChunks(ctx, doc)
		if err != nil {
			p.logger.Warn("Failed to index document", "id", doc.ID, "title", doc.Title, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{
				ID:     doc.ID,
				Title:  doc.Title,
				Reason: err.Error(),
			})
			continue
		}
		result.SuccessfulDocs++
		result.TotalChunks += chunks
	}

	result.Duration = time.Since(start)
	p.logger.Info("Indexing complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}

// IndexDocument replaces the chunks of one document.
func (p *Pipeline) IndexDocument(ctx context.Context, doc storage.Document) (int, error) {
	if err := p.index.DeleteDocumentChunks(ctx, doc.ID); err != nil {
		return 0, err
	}
	return p.indexChunks(ctx, doc)
}

// RemoveDocument drops the chunks of a deleted document.
func (p *Pipeline) RemoveDocument(ctx context.Context, id string) error {
	return p.index.DeleteDocumentChunks(ctx, id)
}

func (p *Pipeline) indexChunks(ctx context.Context, doc storage.Document) (int, error) {
	chunks, err := p.chunker.ChunkDocument(doc.Title, doc.Content)
	if err != nil {
		return 0, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	embeddings, err := p.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embeddings: got %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	stored := make([]*storage.Chunk, len(chunks))
	for i, chunk := range chunks {
		stored[i] = &storage.Chunk{
			ID:         ChunkID(doc.ID, chunk.Index),
			DocumentID: doc.ID,
			ChunkIndex: chunk.Index,
			HeaderPath: chunk.HeaderPath,
			Content:    chunk.RawContent,
			Title:      doc.Title,
			Category:   doc.Category,
			Embedding:  embeddings[i],
		}
	}
	if err := p.index.UpsertChunks(ctx, stored); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	p.logger.Debug("Indexed document", "id", doc.ID, "chunks", len(stored))
	return len(stored), nil
}

// ChunkID derives a stable point id, so re-indexing overwrites in place.
func ChunkID(docID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%s#%d", docID, index)).String()
}
