package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Default file layout under the data directory.
const (
	DefaultJSONName   = "knowledge_db.json"
	DefaultMirrorName = "knowledge"
)

// Options configures a Store.
type Options struct {
	Dir       string // Data directory (default ".")
	JSONPath  string // JSON mirror (default Dir/knowledge_db.json)
	MirrorDir string // Text mirror directory (default Dir/knowledge)
	Logger    *slog.Logger
	Now       func() time.Time
}

// Store owns the in-memory document collection and keeps two derived
// mirrors in sync with it: a JSON file and a directory of markdown files.
// The JSON mirror decides whether a mutation succeeded; text mirror
// failures are logged and otherwise ignored.
type Store struct {
	mu          sync.RWMutex
	docs        map[string]*Document
	lastUpdated time.Time

	jsonPath  string
	mirrorDir string
	logger    *slog.Logger
	now       func() time.Time
}

// Open creates the data directories, loads the JSON mirror and imports any
// text mirror files it does not already contain.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.JSONPath == "" {
		opts.JSONPath = filepath.Join(opts.Dir, DefaultJSONName)
	}
	if opts.MirrorDir == "" {
		opts.MirrorDir = filepath.Join(opts.Dir, DefaultMirrorName)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := os.MkdirAll(opts.MirrorDir, 0o755); err != nil {
		return nil, fmt.Errorf("create mirror dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(opts.JSONPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{
		docs:      make(map[string]*Document),
		jsonPath:  opts.JSONPath,
		mirrorDir: opts.MirrorDir,
		logger:    opts.Logger,
		now:       opts.Now,
	}

	if err := s.loadJSON(); err != nil {
		return nil, err
	}
	report, err := s.LoadExisting()
	if err != nil {
		return nil, err
	}
	s.logger.Info("Knowledge store opened",
		"documents", len(s.docs),
		"imported", len(report.Imported),
		"divergent", len(report.Divergent),
	)
	return s, nil
}

// MirrorDir returns the text mirror directory.
func (s *Store) MirrorDir() string { return s.mirrorDir }

func (s *Store) loadJSON() error {
	data, err := os.ReadFile(s.jsonPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.jsonPath, err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.jsonPath, err)
	}
	for i := range snap.Documents {
		doc := snap.Documents[i]
		s.docs[doc.ID] = &doc
	}
	s.lastUpdated = snap.LastUpdated
	return nil
}

func (s *Store) newID() string {
	for {
		id, err := uuid.NewV7()
		if err != nil {
			id = uuid.New()
		}
		if _, taken := s.docs[id.String()]; !taken {
			return id.String()
		}
	}
}

// touchLocked advances lastUpdated, never moving it backwards.
func (s *Store) touchLocked(t time.Time) {
	if t.After(s.lastUpdated) {
		s.lastUpdated = t
	}
}

// Add stores a new document and returns its id. Empty title or content is
// accepted; callers validate input.
func (s *Store) Add(title, content, category, tags string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	doc := &Document{
		ID:        s.newID(),
		Title:     title,
		Content:   content,
		Category:  category,
		Tags:      tags,
		CreatedAt: now,
	}

	prevUpdated := s.lastUpdated
	s.docs[doc.ID] = doc
	s.touchLocked(now)
	if err := s.persistLocked(); err != nil {
		delete(s.docs, doc.ID)
		s.lastUpdated = prevUpdated
		s.logger.Error("Failed to add document", "title", title, "error", err)
		return "", fmt.Errorf("add %q: %w", title, err)
	}

	s.writeMirrorLocked(doc)
	s.logger.Info("Added document", "id", doc.ID, "title", title)
	return doc.ID, nil
}

// Get returns a copy of the document with the given id.
func (s *Store) Get(id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return *doc, nil
}

// All returns a copy of every document, most recently created first.
func (s *Store) All() []Document {
	s.mu.RLock()
	docs := s.copyLocked()
	s.mu.RUnlock()

	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID > docs[j].ID
	})
	return docs
}

func (s *Store) copyLocked() []Document {
	docs := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, *doc)
	}
	return docs
}

// Update replaces title, content, category and tags of an existing document.
// CreatedAt is preserved and UpdatedAt is stamped.
func (s *Store) Update(id, title, content, category, tags string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}

	now := s.now()
	prev, prevUpdated := *doc, s.lastUpdated
	doc.Title = title
	doc.Content = content
	doc.Category = category
	doc.Tags = tags
	doc.UpdatedAt = now
	s.touchLocked(now)

	if err := s.persistLocked(); err != nil {
		*doc = prev
		s.lastUpdated = prevUpdated
		s.logger.Error("Failed to update document", "id", id, "error", err)
		return fmt.Errorf("update %s: %w", id, err)
	}

	// The file name embeds the title, so the old file goes first.
	s.removeMirrorLocked(id)
	s.writeMirrorLocked(doc)
	s.logger.Info("Updated document", "id", id, "title", title)
	return nil
}

// Delete removes a document. There is no tombstone.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}

	prevUpdated := s.lastUpdated
	delete(s.docs, id)
	s.touchLocked(s.now())
	if err := s.persistLocked(); err != nil {
		s.docs[id] = doc
		s.lastUpdated = prevUpdated
		s.logger.Error("Failed to delete document", "id", id, "error", err)
		return fmt.Errorf("delete %s: %w", id, err)
	}

	s.removeMirrorLocked(id)
	s.logger.Info("Deleted document", "id", id)
	return nil
}

// LoadExisting imports text mirror files whose id is not in the collection.
// Loaded records are never overwritten; a file that disagrees with the
// loaded record is reported as divergent. Safe to call repeatedly.
func (s *Store) LoadExisting() (*LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &LoadReport{}
	names, err := s.mirrorNamesLocked()
	if err != nil {
		return report, err
	}

	for _, name := range names {
		report.Scanned++
		data, err := os.ReadFile(filepath.Join(s.mirrorDir, name))
		if err != nil {
			s.logger.Warn("Failed to read mirror file", "file", name, "error", err)
			report.Failed = append(report.Failed, FileFailure{Name: name, Reason: err.Error()})
			continue
		}
		parsed, err := ParseMarkdown(name, data)
		if err != nil {
			s.logger.Warn("Failed to parse mirror file", "file", name, "error", err)
			report.Failed = append(report.Failed, FileFailure{Name: name, Reason: err.Error()})
			continue
		}

		if existing, ok := s.docs[parsed.ID]; ok {
			if contentHash(*existing) != contentHash(parsed) {
				s.logger.Warn("Mirror file diverges from loaded document", "id", parsed.ID, "file", name)
				report.Divergent = append(report.Divergent, parsed.ID)
			}
			continue
		}

		if parsed.CreatedAt.IsZero() {
			parsed.CreatedAt = s.now()
		}
		doc := parsed
		s.docs[doc.ID] = &doc
		report.Imported = append(report.Imported, doc.ID)
	}

	if len(report.Imported) == 0 {
		return report, nil
	}

	s.touchLocked(s.now())
	if err := s.persistLocked(); err != nil {
		// Imported records stay in memory; the mirror files still hold them.
		s.logger.Error("Failed to persist imported documents", "count", len(report.Imported), "error", err)
		return report, fmt.Errorf("persist imported documents: %w", err)
	}
	s.logger.Info("Imported mirror files", "count", len(report.Imported))
	return report, nil
}

// contentHash fingerprints the fields both mirrors carry.
func contentHash(doc Document) uint64 {
	h := xxhash.New()
	for _, field := range []string{doc.Title, doc.Category, doc.Tags, doc.Content} {
		h.WriteString(strings.TrimSpace(field))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// Stats returns the document count, per-category counts and the time of the
// last mutation.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Total:       len(s.docs),
		Categories:  make(map[string]int),
		LastUpdated: s.lastUpdated,
	}
	for _, doc := range s.docs {
		stats.Categories[doc.Category]++
	}
	return stats
}

// Reset clears the collection and every text mirror file. When the JSON
// mirror cannot be written nothing changes.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevDocs, prevUpdated := s.docs, s.lastUpdated
	s.docs = make(map[string]*Document)
	s.touchLocked(s.now())
	if err := s.persistLocked(); err != nil {
		s.docs, s.lastUpdated = prevDocs, prevUpdated
		s.logger.Error("Failed to reset store", "error", err)
		return fmt.Errorf("reset: %w", err)
	}
	s.clearMirrorLocked()
	s.logger.Info("Knowledge store reset")
	return nil
}

// Replace swaps the whole collection for docs and rewrites both mirrors.
// A zero lastUpdated is replaced by the current time.
func (s *Store) Replace(docs []Document, lastUpdated time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevDocs, prevUpdated := s.docs, s.lastUpdated
	s.docs = make(map[string]*Document, len(docs))
	for i := range docs {
		doc := docs[i]
		s.docs[doc.ID] = &doc
	}
	if lastUpdated.IsZero() {
		lastUpdated = s.now()
	}
	s.lastUpdated = lastUpdated

	if err := s.persistLocked(); err != nil {
		s.docs, s.lastUpdated = prevDocs, prevUpdated
		return fmt.Errorf("replace: %w", err)
	}

	s.clearMirrorLocked()
	for _, doc := range s.docs {
		s.writeMirrorLocked(doc)
	}
	s.logger.Info("Knowledge store replaced", "documents", len(s.docs))
	return nil
}

// Snapshot encodes the collection in the JSON mirror format.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() ([]byte, error) {
	docs := s.copyLocked()
	sortOldestFirst(docs)
	return EncodeSnapshot(docs, s.lastUpdated)
}

func (s *Store) persistLocked() error {
	data, err := s.snapshotLocked()
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(s.jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("write json mirror: %w", err)
	}
	return nil
}

// MirrorFiles returns the raw text mirror files sorted by name.
func (s *Store) MirrorFiles() ([]MirrorFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names, err := s.mirrorNamesLocked()
	if err != nil {
		return nil, err
	}
	files := make([]MirrorFile, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.mirrorDir, name))
		if err != nil {
			return nil, fmt.Errorf("read mirror file %s: %w", name, err)
		}
		files = append(files, MirrorFile{Name: name, Data: data})
	}
	return files, nil
}

// WriteMirrorFile writes a raw text mirror file, overwriting any file of the
// same name. The collection is not touched until LoadExisting runs.
func (s *Store) WriteMirrorFile(name string, data []byte) error {
	if !ValidMirrorName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidMirrorName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return WriteFileAtomic(filepath.Join(s.mirrorDir, name), data, 0o644)
}

// ValidMirrorName reports whether name is a plain, visible ".md" file name
// that WriteMirrorFile accepts.
func ValidMirrorName(name string) bool {
	return name == filepath.Base(name) && strings.HasSuffix(name, MirrorExt) && !strings.HasPrefix(name, ".")
}

func (s *Store) mirrorNamesLocked() ([]string, error) {
	entries, err := os.ReadDir(s.mirrorDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mirror dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, MirrorExt) || strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) writeMirrorLocked(doc *Document) {
	name := MirrorFileName(doc.ID, doc.Title)
	if err := WriteFileAtomic(filepath.Join(s.mirrorDir, name), RenderMarkdown(*doc), 0o644); err != nil {
		s.logger.Warn("Failed to write mirror file", "id", doc.ID, "file", name, "error", err)
	}
}

func (s *Store) removeMirrorLocked(id string) {
	names, err := s.mirrorNamesLocked()
	if err != nil {
		s.logger.Warn("Failed to list mirror files", "error", err)
		return
	}
	for _, name := range names {
		if IDFromFileName(name) != id {
			continue
		}
		if err := os.Remove(filepath.Join(s.mirrorDir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to remove mirror file", "id", id, "file", name, "error", err)
		}
	}
}

func (s *Store) clearMirrorLocked() {
	names, err := s.mirrorNamesLocked()
	if err != nil {
		s.logger.Warn("Failed to list mirror files", "error", err)
		return
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(s.mirrorDir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to remove mirror file", "file", name, "error", err)
		}
	}
}

// Health reports whether the data directories are writable.
func (s *Store) Health() error {
	f, err := os.CreateTemp(s.mirrorDir, tempFilePrefix+"health-*")
	if err != nil {
		return fmt.Errorf("mirror dir not writable: %w", err)
	}
	return errors.Join(f.Close(), os.Remove(f.Name()))
}
