package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/radpushman/ct-knowledge/internal/app"
	"github.com/radpushman/ct-knowledge/internal/backup"
	"github.com/radpushman/ct-knowledge/internal/storage"
)

var (
	useFiles   bool
	confirmed  bool
	askResults int
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withApp(runAsk),
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection statistics",
	RunE:  withApp(runStats),
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Add the default documents when the collection is empty",
	RunE:  withApp(runSeed),
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import text mirror files missing from the collection",
	RunE:  withApp(runImport),
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the collection to GitHub",
	Long:  "Uploads the JSON snapshot, or one markdown file per document with --files.",
	RunE:  withApp(runBackup),
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download backup files into the text mirror without loading them",
	RunE:  withApp(runPull),
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local collection with the GitHub backup",
	Long: `Replaces every local document with the backup.

By default the JSON snapshot is restored. With --files the per-document
markdown files are downloaded and loaded instead. Requires --yes.`,
	RunE: withApp(runRestore),
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the semantic search index",
	Long: `Clears the Qdrant collection and re-embeds every document.

Requires OPENAI_API_KEY and QDRANT_HOST.`,
	RunE: withApp(runIndex),
}

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Show the backup repository",
	RunE:  withApp(runRepo),
}

func init() {
	askCmd.Flags().IntVarP(&askResults, "results", "n", 3, "Documents used as context")
	backupCmd.Flags().BoolVar(&useFiles, "files", false, "Back up one markdown file per document")
	restoreCmd.Flags().BoolVar(&useFiles, "files", false, "Restore from per-document markdown files")
	restoreCmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm replacing local documents")
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func runAsk(cmd *cobra.Command, args []string, kb *app.App) error {
	question := strings.Join(args, " ")

	resp, err := kb.Answers.Ask(cmd.Context(), question, askResults)
	if err != nil {
		return err
	}

	if resp.Answer != "" {
		fmt.Println(resp.Answer)
	} else {
		fmt.Printf("(%s)\n", resp.Degraded)
	}
	if len(resp.Results) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		printResults(resp.Results, question)
	}
	if resp.Usage != nil {
		fmt.Println()
		fmt.Printf("AI usage: %d/%d (%d remaining)\n", resp.Usage.Count, resp.Usage.Limit, resp.Usage.Remaining())
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string, kb *app.App) error {
	stats := kb.Store.Stats()
	fmt.Printf("Documents: %d\n", stats.Total)

	categories := make([]string, 0, len(stats.Categories))
	for c := range stats.Categories {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Printf("  %s: %d\n", c, stats.Categories[c])
	}
	if !stats.LastUpdated.IsZero() {
		fmt.Printf("Last updated: %s\n", formatTime(stats.LastUpdated))
	}

	if usage := kb.Answers.Usage(); usage != nil {
		state, err := usage.Current()
		if err == nil {
			fmt.Printf("AI usage: %d/%d\n", state.Count, state.Limit)
		}
	}
	if kb.Index != nil {
		if n, err := kb.Index.PointsCount(cmd.Context()); err == nil {
			fmt.Printf("Indexed chunks: %d\n", n)
		}
	}
	return nil
}

func runSeed(cmd *cobra.Command, _ []string, kb *app.App) error {
	n, err := kb.Store.SeedDefaults()
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("Collection is not empty; nothing seeded.")
		return nil
	}
	fmt.Printf("Seeded %d documents\n", n)
	return reindex(cmd, kb)
}

func runImport(cmd *cobra.Command, _ []string, kb *app.App) error {
	report, err := kb.Store.LoadExisting()
	if err != nil {
		return err
	}
	printLoadReport(report)
	if len(report.Imported) > 0 {
		return reindex(cmd, kb)
	}
	return nil
}

func printLoadReport(report *storage.LoadReport) {
	fmt.Printf("Scanned %d files, imported %d\n", report.Scanned, len(report.Imported))
	for _, id := range report.Divergent {
		fmt.Printf("  Divergent (kept existing record): %s\n", id)
	}
	for _, f := range report.Failed {
		fmt.Printf("  Skipped %s: %s\n", f.Name, f.Reason)
	}
}

func printReport(report *backup.Report) {
	fmt.Printf("Transferred %d/%d files\n", report.Succeeded, report.Total)
	for _, f := range report.Failures {
		fmt.Printf("  - %s: %s\n", f.Name, f.Reason)
	}
}

func runBackup(cmd *cobra.Command, _ []string, kb *app.App) error {
	syncer, err := kb.Backup()
	if err != nil {
		return err
	}
	start := time.Now()

	if !useFiles {
		fmt.Printf("Uploading snapshot to %s...\n", syncer.Folder())
		if err := syncer.BackupSnapshot(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Backup complete in %s\n", time.Since(start).Round(time.Millisecond))
		return nil
	}

	fmt.Printf("Uploading %d documents to %s...\n", kb.Store.Stats().Total, syncer.Folder())
	report, err := syncer.BackupAll(cmd.Context())
	if err != nil {
		return err
	}
	printReport(report)
	return report.Err()
}

func runPull(cmd *cobra.Command, _ []string, kb *app.App) error {
	syncer, err := kb.Backup()
	if err != nil {
		return err
	}
	report, err := syncer.SyncPull(cmd.Context())
	if err != nil {
		return err
	}
	printReport(report)
	fmt.Println("Run 'kb import' to load new files.")
	return report.Err()
}

func runRestore(cmd *cobra.Command, _ []string, kb *app.App) error {
	syncer, err := kb.Backup()
	if err != nil {
		return err
	}
	if !confirmed {
		return errors.New("restore replaces every local document; rerun with --yes")
	}

	if !useFiles {
		n, err := syncer.RestoreSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Restored %d documents from snapshot\n", n)
		return reindex(cmd, kb)
	}

	report, err := syncer.RestoreAll(cmd.Context())
	if err != nil {
		return err
	}
	printLoadReport(report)
	return reindex(cmd, kb)
}

func runIndex(cmd *cobra.Command, _ []string, kb *app.App) error {
	pipeline, err := kb.Indexer()
	if err != nil {
		return err
	}
	fmt.Println("Indexing documents...")
	result, err := pipeline.IndexAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	printIndexResult(result.SuccessfulDocs, result.TotalDocs, result.TotalChunks, result.Duration)
	for _, failed := range result.FailedDocs {
		fmt.Printf("  - %s (%s): %s\n", failed.Title, failed.ID, failed.Reason)
	}
	return nil
}

// reindex rebuilds the semantic index after a bulk change, when enabled.
func reindex(cmd *cobra.Command, kb *app.App) error {
	if kb.Pipeline == nil {
		return nil
	}
	result, err := kb.Pipeline.IndexAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	printIndexResult(result.SuccessfulDocs, result.TotalDocs, result.TotalChunks, result.Duration)
	return nil
}

func printIndexResult(ok, total, chunks int, d time.Duration) {
	fmt.Printf("Indexed %d/%d documents, %d chunks in %s\n", ok, total, chunks, d.Round(time.Second))
}

func runRepo(cmd *cobra.Command, _ []string, kb *app.App) error {
	syncer, err := kb.Backup()
	if err != nil {
		return err
	}
	info, err := syncer.RepoInfo(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Repository:     %s\n", info.FullName)
	if info.Description != "" {
		fmt.Printf("Description:    %s\n", info.Description)
	}
	fmt.Printf("Default branch: %s\n", info.DefaultBranch)
	fmt.Printf("Language:       %s\n", info.Language)
	fmt.Printf("Private:        %t\n", info.Private)
	fmt.Printf("Size:           %d KB\n", info.Size)
	fmt.Printf("Backup folder:  %s\n", syncer.Folder())
	fmt.Printf("Updated:        %s\n", formatTime(info.UpdatedAt))
	return nil
}
