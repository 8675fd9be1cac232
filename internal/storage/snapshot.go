package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Snapshot is a decoded JSON mirror.
type Snapshot struct {
	Documents   []Document
	LastUpdated time.Time
}

// jsonDB is the on-disk shape of the JSON mirror.
type jsonDB struct {
	Documents   map[string]jsonEntry `json:"documents"`
	LastUpdated string               `json:"last_updated"`
}

type jsonEntry struct {
	Content  string       `json:"content"`
	Metadata jsonMetadata `json:"metadata"`
}

type jsonMetadata struct {
	Title     string `json:"title"`
	Category  string `json:"category"`
	Tags      string `json:"tags"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// EncodeSnapshot renders documents in the JSON mirror format.
func EncodeSnapshot(docs []Document, lastUpdated time.Time) ([]byte, error) {
	db := jsonDB{
		Documents:   make(map[string]jsonEntry, len(docs)),
		LastUpdated: formatTime(lastUpdated),
	}
	for _, doc := range docs {
		db.Documents[doc.ID] = jsonEntry{
			Content: doc.Content,
			Metadata: jsonMetadata{
				Title:     doc.Title,
				Category:  doc.Category,
				Tags:      doc.Tags,
				CreatedAt: formatTime(doc.CreatedAt),
				UpdatedAt: formatTime(doc.UpdatedAt),
			},
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(db); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot parses a JSON mirror. Documents are returned oldest first.
// Input without a "documents" object yields ErrMalformedSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var db jsonDB
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if db.Documents == nil {
		return nil, fmt.Errorf("%w: missing documents", ErrMalformedSnapshot)
	}

	snap := &Snapshot{
		Documents:   make([]Document, 0, len(db.Documents)),
		LastUpdated: parseTime(db.LastUpdated),
	}
	for id, entry := range db.Documents {
		if id == "" {
			return nil, fmt.Errorf("%w: empty document id", ErrMalformedSnapshot)
		}
		snap.Documents = append(snap.Documents, Document{
			ID:        id,
			Title:     entry.Metadata.Title,
			Content:   entry.Content,
			Category:  entry.Metadata.Category,
			Tags:      entry.Metadata.Tags,
			CreatedAt: parseTime(entry.Metadata.CreatedAt),
			UpdatedAt: parseTime(entry.Metadata.UpdatedAt),
		})
	}
	sortOldestFirst(snap.Documents)
	return snap, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// sortOldestFirst orders by CreatedAt, then id, so iteration is deterministic.
func sortOldestFirst(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}
