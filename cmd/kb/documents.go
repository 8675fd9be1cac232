package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/radpushman/ct-knowledge/internal/app"
	"github.com/radpushman/ct-knowledge/internal/search"
	"github.com/radpushman/ct-knowledge/internal/storage"
)

var (
	docTitle    string
	docContent  string
	docFile     string
	docCategory string
	docTags     string
	listLimit   int
	searchLimit int
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a document",
	Example: `  kb add --title "조영제 부작용 대응" --category 응급상황 --tags "조영제,부작용" --file reaction.md`,
	RunE: withApp(runAdd),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, most recent first",
	RunE:  withApp(runList),
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one document",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runShow),
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace a document's fields",
	Long:  "Replaces title, content, category and tags. Flags left unset keep the current value.",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runUpdate),
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document and its backup files",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runDelete),
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search documents by keyword",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withApp(runSearch),
}

func init() {
	for _, cmd := range []*cobra.Command{addCmd, updateCmd} {
		cmd.Flags().StringVar(&docTitle, "title", "", "Document title")
		cmd.Flags().StringVar(&docContent, "content", "", "Document body")
		cmd.Flags().StringVar(&docFile, "file", "", "Read the body from a file")
		cmd.Flags().StringVar(&docCategory, "category", "", "Category ("+strings.Join(storage.Categories, ", ")+")")
		cmd.Flags().StringVar(&docTags, "tags", "", "Comma-separated tags")
	}

	for _, cmd := range []*cobra.Command{listCmd, searchCmd} {
		cmd.Flags().StringVar(&docCategory, "category", "", "Only this category")
	}
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum documents (0 for all)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", search.DefaultLimit, "Maximum results")
}

// body returns --content, or the contents of --file when set.
func body() (string, error) {
	if docFile == "" {
		return docContent, nil
	}
	data, err := readFile(docFile)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func runAdd(cmd *cobra.Command, _ []string, kb *app.App) error {
	content, err := body()
	if err != nil {
		return err
	}
	if strings.TrimSpace(docTitle) == "" || strings.TrimSpace(content) == "" {
		return errors.New("--title and --content (or --file) are required")
	}
	category := docCategory
	if category == "" {
		category = storage.CategoryOther
	}

	id, err := kb.Store.Add(docTitle, content, category, docTags)
	if err != nil {
		return err
	}
	fmt.Printf("Added %s\n", id)

	doc, err := kb.Store.Get(id)
	if err != nil {
		return err
	}
	afterWrite(cmd, kb, doc)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string, kb *app.App) error {
	current, err := kb.Store.Get(args[0])
	if err != nil {
		return err
	}
	content, err := body()
	if err != nil {
		return err
	}

	title := pick(docTitle, current.Title)
	content = pick(content, current.Content)
	category := pick(docCategory, current.Category)
	tags := current.Tags
	if cmd.Flags().Changed("tags") {
		tags = docTags
	}

	if err := kb.Store.Update(current.ID, title, content, category, tags); err != nil {
		return err
	}
	fmt.Printf("Updated %s\n", current.ID)

	doc, err := kb.Store.Get(current.ID)
	if err != nil {
		return err
	}
	afterWrite(cmd, kb, doc)
	return nil
}

func runDelete(cmd *cobra.Command, args []string, kb *app.App) error {
	id := args[0]
	if err := kb.Store.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", id)

	if kb.Syncer != nil {
		n, err := kb.Syncer.DeleteBackup(cmd.Context(), id)
		if err != nil {
			fmt.Printf("  Backup cleanup failed: %v\n", err)
		} else {
			fmt.Printf("  Removed %d backup file(s)\n", n)
		}
	}
	if kb.Pipeline != nil {
		if err := kb.Pipeline.RemoveDocument(cmd.Context(), id); err != nil {
			fmt.Printf("  Index cleanup failed: %v\n", err)
		}
	}
	return nil
}

// afterWrite backs up and reindexes one document. Failures are reported but
// do not undo the local write.
func afterWrite(cmd *cobra.Command, kb *app.App, doc storage.Document) {
	if kb.Syncer != nil {
		if err := kb.Syncer.BackupOne(cmd.Context(), doc); err != nil {
			fmt.Printf("  Backup failed: %v\n", err)
		} else {
			fmt.Println("  Backed up to GitHub")
		}
	}
	if kb.Pipeline != nil {
		if _, err := kb.Pipeline.IndexDocument(cmd.Context(), doc); err != nil {
			fmt.Printf("  Indexing failed: %v\n", err)
		}
	}
}

func runList(_ *cobra.Command, _ []string, kb *app.App) error {
	docs := kb.Store.All()
	shown := 0
	// All returns oldest first.
	for i := len(docs) - 1; i >= 0; i-- {
		doc := docs[i]
		if docCategory != "" && doc.Category != docCategory {
			continue
		}
		if listLimit > 0 && shown == listLimit {
			break
		}
		fmt.Printf("%s  [%s]  %s  (%s)\n", doc.ID, doc.Category, doc.Title, formatTime(doc.CreatedAt))
		shown++
	}
	if shown == 0 {
		fmt.Println("No documents.")
	}
	return nil
}

func runShow(_ *cobra.Command, args []string, kb *app.App) error {
	doc, err := kb.Store.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n\n", doc.Title)
	fmt.Printf("ID:       %s\n", doc.ID)
	fmt.Printf("Category: %s\n", doc.Category)
	fmt.Printf("Tags:     %s\n", doc.Tags)
	fmt.Printf("Created:  %s\n", formatTime(doc.CreatedAt))
	if !doc.UpdatedAt.IsZero() {
		fmt.Printf("Updated:  %s\n", formatTime(doc.UpdatedAt))
	}
	fmt.Println()
	fmt.Println(doc.Content)
	return nil
}

func runSearch(cmd *cobra.Command, args []string, kb *app.App) error {
	query := strings.Join(args, " ")
	results := kb.Searcher.Search(cmd.Context(), query, searchLimit, search.Filter{Category: docCategory})
	if len(results) == 0 {
		fmt.Println("No matching documents.")
		return nil
	}
	printResults(results, query)
	return nil
}

func printResults(results []search.Result, query string) {
	for i, r := range results {
		fmt.Printf("%d. %s  [%s]  score %.2f (%s)\n", i+1, r.Title, r.Category, r.Score, r.Source)
		fmt.Printf("   id: %s\n", r.ID)
		fmt.Printf("   %s\n", strings.ReplaceAll(search.Snippet(r.Content, query), "\n", " "))
	}
}

func pick(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
