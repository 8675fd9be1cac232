// Package mcp exposes the CT knowledge base as Model Context Protocol tools.
package mcp

// SearchInput defines the input parameters for the search_knowledge tool.
type SearchInput struct {
	// Query is the free-text search query.
	Query string `json:"query" jsonschema:"Keywords or a question, e.g. 조영제 부작용"`
	// MaxResults is the maximum number of documents to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"Maximum number of documents to return (default 5)"`
	// Category restricts results to one category.
	Category string `json:"category,omitempty" jsonschema:"Only return documents of this category"`
}

// SearchOutput contains the search results.
type SearchOutput struct {
	Results []SearchResult `json:"results"`
	// Message provides informational context (e.g., "No matching documents found").
	Message string `json:"message,omitempty"`
}

// SearchResult is a single ranked document.
type SearchResult struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Tags     string  `json:"tags"`
	Score    float64 `json:"score"`
	// Source is "keyword" or "semantic".
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
}

// AskInput defines the input parameters for the ask_question tool.
type AskInput struct {
	Question   string `json:"question" jsonschema:"A question in natural language"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Number of documents used as references (default 5)"`
}

// AskOutput carries the answer and the references it was built from.
type AskOutput struct {
	Answer string `json:"answer,omitempty"`
	// Degraded explains why Answer is empty.
	Degraded   string         `json:"degraded,omitempty"`
	References []SearchResult `json:"references"`
	UsageCount int            `json:"usage_count,omitempty"`
	UsageLimit int            `json:"usage_limit,omitempty"`
}

// ListInput defines the input parameters for the list_knowledge tool.
type ListInput struct {
	Category string `json:"category,omitempty" jsonschema:"Only list documents of this category"`
}

// ListOutput lists documents, most recent first.
type ListOutput struct {
	Documents []DocumentSummary `json:"documents"`
	Count     int               `json:"count"`
}

// DocumentSummary is a document without its body.
type DocumentSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Tags      string `json:"tags"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// GetInput defines the input parameters for the get_knowledge tool.
type GetInput struct {
	ID string `json:"id" jsonschema:"Document id as returned by search or list"`
}

// GetOutput contains the retrieved document.
type GetOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	Category  string `json:"category,omitempty"`
	Tags      string `json:"tags,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Content   string `json:"content,omitempty"`
	// Found indicates whether the document exists.
	Found bool `json:"found"`
}

// AddInput defines the input parameters for the add_knowledge tool.
type AddInput struct {
	SecurityCode string `json:"security_code" jsonschema:"Staff security code"`
	Title        string `json:"title" jsonschema:"Document title"`
	Content      string `json:"content" jsonschema:"Document body in markdown"`
	Category     string `json:"category,omitempty" jsonschema:"프로토콜, 안전수칙, 장비운용, 응급상황 or 기타 (default 기타)"`
	Tags         string `json:"tags,omitempty" jsonschema:"Comma separated tags"`
}

// UpdateInput defines the input parameters for the update_knowledge tool.
type UpdateInput struct {
	SecurityCode string `json:"security_code" jsonschema:"Staff security code"`
	ID           string `json:"id" jsonschema:"Document id"`
	Title        string `json:"title" jsonschema:"New title"`
	Content      string `json:"content" jsonschema:"New body in markdown"`
	Category     string `json:"category,omitempty" jsonschema:"New category (default 기타)"`
	Tags         string `json:"tags,omitempty" jsonschema:"New comma separated tags"`
}

// DeleteInput defines the input parameters for the delete_knowledge tool.
type DeleteInput struct {
	SecurityCode string `json:"security_code" jsonschema:"Staff security code"`
	ID           string `json:"id" jsonschema:"Document id"`
}

// MutationOutput reports a write. Backup and index problems do not fail
// the write itself.
type MutationOutput struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	BackedUp    bool   `json:"backed_up"`
	BackupError string `json:"backup_error,omitempty"`
	IndexError  string `json:"index_error,omitempty"`
}

// StatsInput takes no parameters.
type StatsInput struct{}

// StatsOutput summarizes the knowledge base.
type StatsOutput struct {
	TotalDocuments int            `json:"total_documents"`
	Categories     map[string]int `json:"categories"`
	LastUpdated    string         `json:"last_updated,omitempty"`
	SemanticSearch bool           `json:"semantic_search"`
	BackupEnabled  bool           `json:"backup_enabled"`
	AIUsage        int            `json:"ai_usage,omitempty"`
	AILimit        int            `json:"ai_limit,omitempty"`
}

// BackupInput defines the input parameters for backup_knowledge and
// restore_knowledge.
type BackupInput struct {
	SecurityCode string `json:"security_code" jsonschema:"Staff security code"`
	// Mode is "snapshot" (one JSON file) or "files" (one markdown file per document).
	Mode string `json:"mode,omitempty" jsonschema:"snapshot (default) or files"`
}

// BackupOutput reports a backup or restore.
type BackupOutput struct {
	Mode      string   `json:"mode"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failures  []string `json:"failures,omitempty"`
	Message   string   `json:"message"`
}

// SeedInput defines the input parameters for the seed_defaults tool.
type SeedInput struct {
	SecurityCode string `json:"security_code" jsonschema:"Staff security code"`
}

// SeedOutput reports how many default documents were added.
type SeedOutput struct {
	Added   int    `json:"added"`
	Message string `json:"message"`
}
