// Package search ranks knowledge documents against free-text queries.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/radpushman/ct-knowledge/internal/storage"
)

// DefaultLimit is the result count used when n <= 0.
const DefaultLimit = 5

// Ranking weights.
const (
	weightTitleQuery    = 20
	weightTitleWord     = 15
	weightCategoryQuery = 10
	weightTagWord       = 12
	weightContentWord   = 3
	maxContentWords     = 15
	weightContentQuery  = 8
)

// DocumentSource lists the documents to rank.
type DocumentSource interface {
	All() []storage.Document
}

// Result is a ranked document.
type Result struct {
	storage.Document
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// Result sources.
const (
	SourceKeyword  = "keyword"
	SourceSemantic = "semantic"
)

// Filter narrows results. The zero value matches everything.
type Filter struct {
	Category string
}

func (f Filter) match(doc storage.Document) bool {
	return f.Category == "" || doc.Category == f.Category
}

// Engine scores every document by weighted substring matching.
type Engine struct {
	source DocumentSource
}

// NewEngine creates a keyword engine over source.
func NewEngine(source DocumentSource) *Engine {
	return &Engine{source: source}
}

// Search returns at most n documents matching query, best first.
func (e *Engine) Search(query string, n int) []Result {
	return e.SearchWithFilter(query, n, Filter{})
}

// SearchWithFilter is Search restricted to documents accepted by f.
// An empty or whitespace-only query matches nothing.
func (e *Engine) SearchWithFilter(query string, n int, f Filter) []Result {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if n <= 0 {
		n = DefaultLimit
	}
	words := queryWords(q)

	docs := e.source.All()
	// Ties keep this order: oldest first.
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	var results []Result
	for _, doc := range docs {
		if !f.match(doc) {
			continue
		}
		if score := Score(doc, q, words); score > 0 {
			results = append(results, Result{Document: doc, Score: float64(score), Source: SourceKeyword})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > n {
		results = results[:n]
	}
	return results
}

// Score computes the keyword score of doc for a lower-cased query and its
// words.
func Score(doc storage.Document, query string, words []string) int {
	title := strings.ToLower(doc.Title)
	category := strings.ToLower(doc.Category)
	tags := strings.ToLower(doc.Tags)
	content := strings.ToLower(doc.Content)

	score := 0
	if strings.Contains(title, query) {
		score += weightTitleQuery
	}
	for _, w := range words {
		if strings.Contains(title, w) {
			score += weightTitleWord
		}
	}
	if strings.Contains(category, query) {
		score += weightCategoryQuery
	}
	for _, w := range words {
		if strings.Contains(tags, w) {
			score += weightTagWord
		}
	}

	occurrences := 0
	for _, w := range words {
		occurrences += strings.Count(content, w)
	}
	score += min(occurrences*weightContentWord, maxContentWords)

	if strings.Contains(content, query) {
		score += weightContentQuery
	}
	return score
}

// queryWords splits a lower-cased query into words longer than one rune.
func queryWords(query string) []string {
	var words []string
	for _, w := range strings.Fields(query) {
		if utf8.RuneCountInString(w) > 1 {
			words = append(words, w)
		}
	}
	return words
}
