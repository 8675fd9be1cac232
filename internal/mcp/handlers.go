package mcp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/radpushman/ct-knowledge/internal/backup"
	"github.com/radpushman/ct-knowledge/internal/search"
	"github.com/radpushman/ct-knowledge/internal/storage"
)

// Backup modes.
const (
	ModeSnapshot = "snapshot"
	ModeFiles    = "files"
)

const timeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}

func summarize(doc storage.Document) DocumentSummary {
	return DocumentSummary{
		ID:        doc.ID,
		Title:     doc.Title,
		Category:  doc.Category,
		Tags:      doc.Tags,
		CreatedAt: formatTime(doc.CreatedAt),
		UpdatedAt: formatTime(doc.UpdatedAt),
	}
}

func toSearchResults(results []search.Result, query string) []SearchResult {
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			ID:       r.ID,
			Title:    r.Title,
			Category: r.Category,
			Tags:     r.Tags,
			Score:    r.Score,
			Source:   r.Source,
			Snippet:  search.Snippet(r.Content, query),
		})
	}
	return out
}

// authorize gates writes behind the configured security code.
func (s *Server) authorize(code string) error {
	if s.securityCode == "" {
		return ErrWritesDisabled
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(s.securityCode)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func normalizeCategory(category string) string {
	if c := strings.TrimSpace(category); c != "" {
		return c
	}
	return storage.CategoryOther
}

// requireText takes name, value pairs.
func requireText(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, pairs[i])
		}
	}
	return nil
}

// makeSearchHandler creates the search_knowledge tool handler.
func makeSearchHandler(s *Server) func(
	context.Context, *mcp.CallToolRequest, SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, SearchOutput, error,
	) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, SearchOutput{}, fmt.Errorf("%w: query is required", ErrInvalidInput)
		}

		results := s.searcher.Search(ctx, input.Query, input.MaxResults, search.Filter{Category: input.Category})
		if len(results) == 0 {
			return nil, SearchOutput{
				Results: []SearchResult{},
				Message: "No matching documents found. Try broader search terms.",
			}, nil
		}
		return nil, SearchOutput{Results: toSearchResults(results, input.Query)}, nil
	}
}

// makeAskHandler creates the ask_question tool handler.
func makeAskHandler(s *Server) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		resp, err := s.answers.Ask(ctx, input.Question, input.MaxResults)
		if err != nil {
			return nil, AskOutput{}, err
		}

		out := AskOutput{
			Answer:     resp.Answer,
			Degraded:   resp.Degraded,
			References: toSearchResults(resp.Results, resp.Question),
		}
		if resp.Usage != nil {
			out.UsageCount = resp.Usage.Count
			out.UsageLimit = resp.Usage.Limit
		}
		return nil, out, nil
	}
}

// makeListHandler creates the list_knowledge tool handler.
func makeListHandler(s *Server) func(
	context.Context, *mcp.CallToolRequest, ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (
		*mcp.CallToolResult, ListOutput, error,
	) {
		docs := make([]DocumentSummary, 0)
		for _, doc := range s.store.All() {
			if input.Category != "" && doc.Category != input.Category {
				continue
			}
			docs = append(docs, summarize(doc))
		}
		return nil, ListOutput{Documents: docs, Count: len(docs)}, nil
	}
}

// makeGetHandler creates the get_knowledge tool handler.
func makeGetHandler(s *Server) func(
	context.Context, *mcp.CallToolRequest, GetInput,
) (*mcp.CallToolResult, GetOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetInput) (
		*mcp.CallToolResult, GetOutput, error,
	) {
		doc, err := s.store.Get(input.ID)
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return nil, GetOutput{ID: input.ID, Found: false}, nil
		}
		if err != nil {
			return nil, GetOutput{}, err
		}
		return nil, GetOutput{
			ID:        doc.ID,
			Title:     doc.Title,
			Category:  doc.Category,
			Tags:      doc.Tags,
			CreatedAt: formatTime(doc.CreatedAt),
			UpdatedAt: formatTime(doc.UpdatedAt),
			Content:   doc.Content,
			Found:     true,
		}, nil
	}
}

// makeAddHandler creates the add_knowledge tool handler.
func makeAddHandler(s *Server) func(
	context.Context, *mcp.CallToolRequest, AddInput,
) (*mcp.CallToolResult, MutationOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AddInput) (
		*mcp.CallToolResult, MutationOutput, error,
	) {
		if err := s.authorize(input.SecurityCode); err != nil {
			return nil, MutationOutput{}, err
		}
		if err := requireText("title", input.Title, "content", input.Content); err != nil {
			return nil, MutationOutput{}, err
		}

		id, err := s.store.Add(input.Title, input.Content, normalizeCategory(input.Category), input.Tags)
		if err != nil {
			return nil, MutationOutput{}, err
		}
		out := MutationOutput{ID: id, Message: "Knowledge added"}
		s.afterWrite(ctx, id, &out)
		return nil, out, nil
	}
}

// makeUpdateHandler creates the update_knowledge tool handler.
func makeUpdateHandler(s *Server) func(
	context.Context, *mcp.CallToolRequest, UpdateInput,
) (*mcp.CallToolResult, MutationOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input UpdateInput) (
		*mcp.CallToolResult, MutationOutput, error,
	) {
		if err := s.authorize(input.SecurityCode); err != nil {
			return nil, MutationOutput{}, err
		}
		if err := requireText("id", input.ID, "title", input.Title, "content", input.Content); err != nil {
			return nil, MutationOutput{}, err
		}

		if err := s.store.Update(input.ID, input.Title, input.Content, normalizeCategory(input.Category), input.Tags); err != nil {
			return nil, MutationOutput{}, err
		}
		out := MutationOutput{ID: input.ID, Message: "Knowledge updated"}
		s.afterWrite(ctx, input.ID, &out)
		return nil, out, nil
	}
}

// makeDeleteHandler creates the delete_knowledge tool handler.
func makeDeleteHandler(s *Server) func(
	context.Context, *mcp.CallToolRequest, DeleteInput,
) (*mcp.CallToolResult, MutationOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DeleteInput) (
		*mcp.CallToolResult, MutationOutput, error,
	) {
		if err := s.authorize(input.SecurityCode); err != nil {
			return nil, MutationOutput{}, err
		}
		if err := s.store.Delete(input.ID); err != nil {
			return nil, MutationOutput{}, err
		}

		out := MutationOutput{ID: input.ID, Message: "Knowledge deleted"}
		if s.syncer != nil {
			if _, err := s.syncer.DeleteBackup(ctx, input.ID); err != nil {
				s.logger.Warn("Failed to delete backup", "id", input.ID, "error", err)
				out.BackupError = err.Error()
			} else {
				out.BackedUp = true
			}
		}
		if s.indexer != nil {
			if err := s.indexer.RemoveDocument(ctx, input.ID); err != nil {
				s.logger.Warn("Failed to remove document from index", "id", input.ID, "error", err)
				out.IndexError = err.Error()
			}
		}
		return nil, out, nil
	}
}

// afterWrite pushes a stored document to the backup and the semantic index.
func (s *Server) afterWrite(ctx context.Context, id string, out *MutationOutput) {
	doc, err := s.store.Get(id)
	if err != nil {
		return
	}
	if s.syncer != nil {
		if err := s.syncer.BackupOne(ctx, doc); err != nil {
			s.logger.Warn("Failed to back up document", "id", id, "error", err)
			out.BackupError = err.Error()
		} else {
			out.BackedUp = true
		}
	}
	if s.indexer != nil {
		if _, err := s.indexer.IndexDocument(ctx, doc); err != nil {
			s.logger.Warn("Failed to index document", "id", id, "error", err)
			out.IndexError = err.Error()
		}
	}
}

// makeStatsHandler creates the get_stats tool handler.
func makeStatsHandler(s *Server) func(
	context.Context, *mcp.CallToolRequest, StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (
		*mcp.CallToolResult, StatsOutput, error,
	) {
		stats := s.store.Stats()
		out := StatsOutput{
			TotalDocuments: stats.Total,
			Categories:     stats.Categories,
			LastUpdated:    formatTime(stats.LastUpdated),
			SemanticSearch: s.searcher.Semantic(),
			BackupEnabled:  s.syncer != nil,
		}
		if usage := s.answers.Usage(); usage != nil {
			// Usage is informational; a read failure is not an error for the tool.
			if state, err := usage.Current(); err == nil {
				out.AIUsage = state.Count
				out.AILimit = state.Limit
			}
		}
		return nil, out, nil
	}
}

// makeBackupHandler creates the backup_knowledge tool handler.
func makeBackupHandler(s *Server) func(
	context.Context, *mcp.CallToolRequest, BackupInput,
) (*mcp.CallToolResult, BackupOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input BackupInput) (
		*mcp.CallToolResult, BackupOutput, error,
	) {
		if err := s.authorize(input.SecurityCode); err != nil {
			return nil, BackupOutput{}, err
		}
		if s.syncer == nil {
			return nil, BackupOutput{}, ErrBackupDisabled
		}

		switch mode(input.Mode) {
		case ModeFiles:
			report, err := s.syncer.BackupAll(ctx)
			if report == nil {
				return nil, BackupOutput{}, err
			}
			out := fromReport(ModeFiles, report)
			out.Message = fmt.Sprintf("Backed up %d of %d files", report.Succeeded, report.Total)
			return nil, out, nil
		default:
			if err := s.syncer.BackupSnapshot(ctx); err != nil {
				return nil, BackupOutput{}, err
			}
			total := s.store.Stats().Total
			return nil, BackupOutput{
				Mode:      ModeSnapshot,
				Total:     total,
				Succeeded: total,
				Message:   fmt.Sprintf("Backed up %d documents to %s", total, backup.SnapshotPath),
			}, nil
		}
	}
}

// makeRestoreHandler creates the restore_knowledge tool handler.
// Restoring replaces every local document.
func makeRestoreHandler(s *Server) func(
	context.Context, *mcp.CallToolRequest, BackupInput,
) (*mcp.CallToolResult, BackupOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input BackupInput) (
		*mcp.CallToolResult, BackupOutput, error,
	) {
		if err := s.authorize(input.SecurityCode); err != nil {
			return nil, BackupOutput{}, err
		}
		if s.syncer == nil {
			return nil, BackupOutput{}, ErrBackupDisabled
		}

		var out BackupOutput
		switch mode(input.Mode) {
		case ModeFiles:
			loaded, err := s.syncer.RestoreAll(ctx)
			if err != nil {
				return nil, BackupOutput{}, err
			}
			out = BackupOutput{
				Mode:      ModeFiles,
				Total:     loaded.Scanned,
				Succeeded: len(loaded.Imported),
			}
			for _, f := range loaded.Failed {
				out.Failures = append(out.Failures, f.Name+": "+f.Reason)
			}
		default:
			n, err := s.syncer.RestoreSnapshot(ctx)
			if err != nil {
				return nil, BackupOutput{}, err
			}
			out = BackupOutput{Mode: ModeSnapshot, Total: n, Succeeded: n}
		}
		out.Message = fmt.Sprintf("Restored %d documents", out.Succeeded)
		s.reindex(ctx)
		return nil, out, nil
	}
}

// makeSeedHandler creates the seed_defaults tool handler.
func makeSeedHandler(s *Server) func(
	context.Context, *mcp.CallToolRequest, SeedInput,
) (*mcp.CallToolResult, SeedOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SeedInput) (
		*mcp.CallToolResult, SeedOutput, error,
	) {
		if err := s.authorize(input.SecurityCode); err != nil {
			return nil, SeedOutput{}, err
		}
		n, err := s.store.SeedDefaults()
		if err != nil {
			return nil, SeedOutput{}, err
		}
		if n == 0 {
			return nil, SeedOutput{Message: "Knowledge base is not empty; nothing seeded"}, nil
		}
		s.reindex(ctx)
		return nil, SeedOutput{Added: n, Message: fmt.Sprintf("Added %d default documents", n)}, nil
	}
}

// reindex rebuilds the semantic index after a bulk change.
func (s *Server) reindex(ctx context.Context) {
	if s.indexer == nil {
		return
	}
	if _, err := s.indexer.IndexAll(ctx); err != nil {
		s.logger.Warn("Failed to rebuild semantic index", "error", err)
	}
}

func mode(m string) string {
	if strings.EqualFold(strings.TrimSpace(m), ModeFiles) {
		return ModeFiles
	}
	return ModeSnapshot
}

func fromReport(m string, report *backup.Report) BackupOutput {
	out := BackupOutput{Mode: m, Total: report.Total, Succeeded: report.Succeeded}
	for _, f := range report.Failures {
		out.Failures = append(out.Failures, f.Name+": "+f.Reason)
	}
	return out
}
