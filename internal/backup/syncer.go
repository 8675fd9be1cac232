// Package backup mirrors the knowledge store to and from a remote file
// store, one markdown file per document or a single JSON snapshot.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/radpushman/ct-knowledge/internal/github"
	"github.com/radpushman/ct-knowledge/internal/storage"
)

// Remote layout defaults.
const (
	DefaultFolder = "knowledge"
	MarkerName    = ".gitkeep"
	SnapshotPath  = storage.DefaultJSONName
)

// Remote is the path-addressed file store backups are written to.
type Remote interface {
	Stat(ctx context.Context, p string) (*github.RemoteFile, error)
	List(ctx context.Context, dir string) ([]github.RemoteFile, error)
	Download(ctx context.Context, file github.RemoteFile) ([]byte, error)
	Put(ctx context.Context, p string, content []byte, sha, message string) (*github.RemoteFile, error)
	Delete(ctx context.Context, p, sha, message string) error
	Info(ctx context.Context) (*github.RepoInfo, error)
}

// Report aggregates a bulk transfer.
type Report struct {
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Failure records one file that could not be transferred.
type Failure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	err    error
}

// OK reports whether every file was transferred.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

func (r *Report) fail(name string, err error) {
	r.Failures = append(r.Failures, Failure{Name: name, Reason: err.Error(), err: err})
}

// Err returns nil when every file succeeded, otherwise ErrPartialFailure
// wrapping the first failure.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	first := r.Failures[0]
	return fmt.Errorf("%w: %d of %d, first %s: %w", ErrPartialFailure, len(r.Failures), r.Total, first.Name, first.err)
}

// Syncer backs the store up to a remote folder and restores it from there.
// Concurrent writers to one remote are not coordinated; the last write wins.
type Syncer struct {
	remote Remote
	store  *storage.Store
	folder string
	logger *slog.Logger

	mu          sync.Mutex
	folderReady bool
}

// NewSyncer creates a syncer writing into folder (DefaultFolder if empty).
func NewSyncer(remote Remote, store *storage.Store, folder string, logger *slog.Logger) *Syncer {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = DefaultFolder
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		remote: remote,
		store:  store,
		folder: folder,
		logger: logger,
	}
}

// Folder returns the remote folder holding per-document files.
func (s *Syncer) Folder() string {
	return s.folder
}

// Upload writes content to p, sending the current version token when a file
// already exists there.
func (s *Syncer) Upload(ctx context.Context, p string, content []byte, message string) error {
	var sha string
	existing, err := s.remote.Stat(ctx, p)
	switch {
	case err == nil:
		sha = existing.SHA
	case errors.Is(err, github.ErrNotFound):
	default:
		return fmt.Errorf("upload %s: %w", p, err)
	}

	if _, err := s.remote.Put(ctx, p, content, sha, message); err != nil {
		return fmt.Errorf("upload %s: %w", p, err)
	}
	return nil
}

// EnsureFolder creates the remote folder by uploading a marker file if it
// does not exist. It talks to the remote once per Syncer.
func (s *Syncer) EnsureFolder(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.folderReady {
		return nil
	}

	_, err := s.remote.List(ctx, s.folder)
	switch {
	case err == nil:
	case errors.Is(err, github.ErrNotFound):
		marker := path.Join(s.folder, MarkerName)
		if _, err := s.remote.Put(ctx, marker, nil, "", "Create "+s.folder+" folder"); err != nil {
			return fmt.Errorf("create remote folder: %w", err)
		}
		s.logger.Info("Created remote folder", "folder", s.folder)
	default:
		return fmt.Errorf("check remote folder: %w", err)
	}

	s.folderReady = true
	return nil
}

// BackupOne uploads one document and removes remote files left behind by
// earlier titles of the same document.
func (s *Syncer) BackupOne(ctx context.Context, doc storage.Document) error {
	if err := s.EnsureFolder(ctx); err != nil {
		return err
	}

	name := storage.MirrorFileName(doc.ID, doc.Title)
	if err := s.Upload(ctx, path.Join(s.folder, name), storage.RenderMarkdown(doc), "Add knowledge: "+doc.Title); err != nil {
		return err
	}
	s.logger.Info("Backed up document", "id", doc.ID, "file", name)

	if _, err := s.deleteRemote(ctx, doc.ID, name); err != nil {
		s.logger.Warn("Failed to remove stale backups", "id", doc.ID, "error", err)
	}
	return nil
}

// BackupAll uploads every local text mirror file. A failed file does not
// stop the others; the report lists every failure.
func (s *Syncer) BackupAll(ctx context.Context) (*Report, error) {
	if err := s.EnsureFolder(ctx); err != nil {
		return nil, err
	}
	files, err := s.store.MirrorFiles()
	if err != nil {
		return nil, err
	}

	report := &Report{Total: len(files)}
	for _, file := range files {
		if err := s.Upload(ctx, path.Join(s.folder, file.Name), file.Data, "Backup: "+file.Name); err != nil {
			s.logger.Warn("Failed to back up file", "file", file.Name, "error", err)
			report.fail(file.Name, err)
			continue
		}
		report.Succeeded++
	}

	s.logger.Info("Backup complete", "total", report.Total, "succeeded", report.Succeeded)
	return report, report.Err()
}

// BackupSnapshot uploads the whole collection as one JSON file.
func (s *Syncer) BackupSnapshot(ctx context.Context) error {
	data, err := s.store.Snapshot()
	if err != nil {
		return err
	}
	if err := s.Upload(ctx, SnapshotPath, data, "Backup knowledge database"); err != nil {
		return err
	}
	s.logger.Info("Backed up snapshot", "path", SnapshotPath, "bytes", len(data))
	return nil
}

// fetch downloads every remote document file. The marker is skipped.
func (s *Syncer) fetch(ctx context.Context) ([]storage.MirrorFile, *Report, error) {
	entries, err := s.remote.List(ctx, s.folder)
	if errors.Is(err, github.ErrNotFound) {
		return nil, nil, ErrNoRemoteData
	}
	if err != nil {
		return nil, nil, err
	}

	report := &Report{}
	var files []storage.MirrorFile
	for _, entry := range entries {
		if entry.Name == MarkerName || !strings.HasSuffix(entry.Name, storage.MirrorExt) {
			continue
		}
		report.Total++
		data, err := s.remote.Download(ctx, entry)
		if err != nil {
			s.logger.Warn("Failed to download file", "file", entry.Name, "error", err)
			report.fail(entry.Name, err)
			continue
		}
		files = append(files, storage.MirrorFile{Name: entry.Name, Data: data})
		report.Succeeded++
	}
	if report.Total == 0 {
		return nil, nil, ErrNoRemoteData
	}
	return files, report, nil
}

// SyncPull downloads remote document files into the local text mirror,
// overwriting local files of the same name. The collection itself changes
// only when LoadExisting runs.
func (s *Syncer) SyncPull(ctx context.Context) (*Report, error) {
	files, report, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if err := s.store.WriteMirrorFile(file.Name, file.Data); err != nil {
			report.Succeeded--
			report.fail(file.Name, err)
		}
	}
	s.logger.Info("Pulled remote files", "total", report.Total, "succeeded", report.Succeeded)
	return report, report.Err()
}

// RestoreAll replaces the local collection with the remote document files.
// Local documents missing from the remote are lost. Nothing local changes
// if any download fails or a remote file name is not a valid mirror name.
// Files that cannot be written after the reset are listed in Failed.
func (s *Syncer) RestoreAll(ctx context.Context) (*storage.LoadReport, error) {
	files, report, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if !storage.ValidMirrorName(file.Name) {
			report.Succeeded--
			report.fail(file.Name, fmt.Errorf("%w: %q", storage.ErrInvalidMirrorName, file.Name))
		}
	}
	if err := report.Err(); err != nil {
		return nil, err
	}

	if err := s.store.Reset(); err != nil {
		return nil, err
	}
	var unwritten []storage.FileFailure
	for _, file := range files {
		if err := s.store.WriteMirrorFile(file.Name, file.Data); err != nil {
			s.logger.Error("Failed to write restored file", "file", file.Name, "error", err)
			unwritten = append(unwritten, storage.FileFailure{Name: file.Name, Reason: err.Error()})
		}
	}
	loaded, err := s.store.LoadExisting()
	if err != nil {
		return nil, err
	}
	loaded.Scanned += len(unwritten)
	loaded.Failed = append(loaded.Failed, unwritten...)
	s.logger.Info("Restored from remote files",
		"files", len(files),
		"imported", len(loaded.Imported),
		"failed", len(loaded.Failed),
	)
	return loaded, nil
}

// RestoreSnapshot replaces the local collection with the remote JSON
// snapshot. A malformed snapshot leaves local state untouched.
func (s *Syncer) RestoreSnapshot(ctx context.Context) (int, error) {
	file, err := s.remote.Stat(ctx, SnapshotPath)
	if errors.Is(err, github.ErrNotFound) {
		return 0, ErrNoRemoteData
	}
	if err != nil {
		return 0, err
	}
	data, err := s.remote.Download(ctx, *file)
	if err != nil {
		return 0, err
	}

	snap, err := storage.DecodeSnapshot(data)
	if err != nil {
		return 0, err
	}
	if err := s.store.Replace(snap.Documents, snap.LastUpdated); err != nil {
		return 0, err
	}
	s.logger.Info("Restored snapshot", "documents", len(snap.Documents))
	return len(snap.Documents), nil
}

// DeleteBackup removes every remote file of a document.
func (s *Syncer) DeleteBackup(ctx context.Context, id string) (int, error) {
	return s.deleteRemote(ctx, id, "")
}

// deleteRemote removes remote files belonging to id, except keep.
func (s *Syncer) deleteRemote(ctx context.Context, id, keep string) (int, error) {
	entries, err := s.remote.List(ctx, s.folder)
	if errors.Is(err, github.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, entry := range entries {
		if entry.Name == keep || storage.IDFromFileName(entry.Name) != id {
			continue
		}
		if err := s.remote.Delete(ctx, entry.Path, entry.SHA, "Delete knowledge: "+entry.Name); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// RepoInfo returns metadata of the backup repository.
func (s *Syncer) RepoInfo(ctx context.Context) (*github.RepoInfo, error) {
	return s.remote.Info(ctx)
}
