package storage

import "time"

// Document is a single knowledge entry.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      string    `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitzero"` // zero until the first update
}

// Categories offered by the UI. The store accepts any string.
const (
	CategoryProtocol   = "프로토콜"
	CategorySafetyRule = "안전수칙"
	CategoryEquipment  = "장비운용"
	CategoryEmergency  = "응급상황"
	CategoryOther      = "기타"
)

// Categories lists the selectable categories in display order.
var Categories = []string{
	CategoryProtocol,
	CategorySafetyRule,
	CategoryEquipment,
	CategoryEmergency,
	CategoryOther,
}

// NormalizeCategory maps unknown categories to CategoryOther for display.
func NormalizeCategory(category string) string {
	for _, c := range Categories {
		if c == category {
			return c
		}
	}
	return CategoryOther
}

// Stats summarizes the collection.
type Stats struct {
	Total       int            `json:"total_documents"`
	Categories  map[string]int `json:"categories"`
	LastUpdated time.Time      `json:"last_updated"`
}

// MirrorFile is one raw file of the text mirror.
type MirrorFile struct {
	Name string
	Data []byte
}

// LoadReport describes one LoadExisting pass over the text mirror.
type LoadReport struct {
	Scanned   int
	Imported  []string      // ids added to the collection
	Divergent []string      // ids whose mirror file disagrees with the loaded record
	Failed    []FileFailure // files that could not be read or parsed
}

// FileFailure records a mirror file that was skipped.
type FileFailure struct {
	Name   string
	Reason string
}

// Chunk is a document section with an embedding vector, stored in Qdrant
// for semantic search. The parent document lives in the Store.
type Chunk struct {
	ID         string    // UUID derived from DocumentID and ChunkIndex
	DocumentID string    // Links to Document.ID
	ChunkIndex int       // Position in document (0, 1, 2...)
	HeaderPath string    // Section hierarchy: "# Title > ## Section"
	Content    string    // Chunk text content
	Title      string    // Parent title (for display without a store lookup)
	Category   string    // Parent category (for filtering)
	Embedding  []float32 // 1536-dim vector (text-embedding-3-small)
}

// ScoredChunk is a chunk returned by similarity search.
type ScoredChunk struct {
	*Chunk
	Score float64
}

// CollectionName is the single Qdrant collection for knowledge chunks.
const CollectionName = "ct_knowledge"

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536
