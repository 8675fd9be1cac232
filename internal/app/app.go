// Package app wires the knowledge base components from configuration.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/radpushman/ct-knowledge/internal/answer"
	"github.com/radpushman/ct-knowledge/internal/backup"
	"github.com/radpushman/ct-knowledge/internal/config"
	"github.com/radpushman/ct-knowledge/internal/embedding"
	ghclient "github.com/radpushman/ct-knowledge/internal/github"
	"github.com/radpushman/ct-knowledge/internal/indexer"
	"github.com/radpushman/ct-knowledge/internal/markdown"
	"github.com/radpushman/ct-knowledge/internal/search"
	"github.com/radpushman/ct-knowledge/internal/storage"
)

// ErrBackupDisabled is returned by Backup when GitHub is not configured.
var ErrBackupDisabled = errors.New("GitHub backup is not configured (set GITHUB_TOKEN and GITHUB_REPO)")

// ErrSemanticDisabled is returned by Indexer when semantic search is off.
var ErrSemanticDisabled = errors.New("semantic search is not configured (set OPENAI_API_KEY and QDRANT_HOST)")

// App holds the wired components. Syncer, Pipeline and Index are nil when
// their feature is not configured.
type App struct {
	Config   *config.Config
	Store    *storage.Store
	Searcher *search.Searcher
	Answers  *answer.Service
	Syncer   *backup.Syncer
	Pipeline *indexer.Pipeline
	Index    *storage.QdrantIndex
	Logger   *slog.Logger
}

// New opens the store and enables the optional features cfg configures.
// An unreachable Qdrant disables semantic search instead of failing.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.Open(storage.Options{Dir: cfg.DataDir, Logger: logger})
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Store:    store,
		Searcher: search.NewSearcher(store, logger),
		Logger:   logger,
	}

	var answerer answer.Answerer
	if cfg.AnswerEnabled() {
		client, err := embedding.NewClient(cfg.OpenAI.APIKey)
		if err != nil {
			return nil, err
		}
		answerer = answer.NewOpenAIAnswerer(client.Client(), cfg.OpenAI.Model)
		if cfg.SemanticEnabled() {
			a.enableSemantic(ctx, client)
		}
	}
	usage := answer.NewUsage(cfg.UsagePath(), cfg.AI.Limit, answer.ParsePeriod(cfg.AI.Period))
	a.Answers = answer.NewService(a.Searcher, answerer, usage, logger)

	if cfg.GitHubEnabled() {
		client, err := ghclient.NewClient(cfg.GitHub.Token, cfg.GitHub.Timeout)
		if err != nil {
			return nil, err
		}
		remote, err := ghclient.NewRemote(client, cfg.GitHub.Repo, cfg.GitHub.Branch)
		if err != nil {
			return nil, err
		}
		a.Syncer = backup.NewSyncer(remote, store, cfg.GitHub.Folder, logger)
	}

	logger.Info("Knowledge base ready",
		"documents", store.Stats().Total,
		"semantic", a.Searcher.Semantic(),
		"answers", answerer != nil,
		"backup", a.Syncer != nil,
	)
	return a, nil
}

func (a *App) enableSemantic(ctx context.Context, client *embedding.Client) {
	index, err := storage.NewQdrantIndex(a.Config.Qdrant.Host, a.Config.Qdrant.Port)
	if err != nil {
		a.Logger.Warn("Semantic search disabled", "error", err)
		return
	}
	if err := index.EnsureCollection(ctx); err != nil {
		a.Logger.Warn("Semantic search disabled", "error", err)
		index.Close()
		return
	}

	embedder := embedding.NewEmbedder(client, 0) // Use default batch size
	a.Index = index
	a.Searcher.WithSemantic(embedder, index)
	a.Pipeline = indexer.NewPipeline(a.Store, markdown.NewChunker(0), embedder, index, a.Logger)
}

// Backup returns the syncer or ErrBackupDisabled.
func (a *App) Backup() (*backup.Syncer, error) {
	if a.Syncer == nil {
		return nil, ErrBackupDisabled
	}
	return a.Syncer, nil
}

// Indexer returns the indexing pipeline or ErrSemanticDisabled.
func (a *App) Indexer() (*indexer.Pipeline, error) {
	if a.Pipeline == nil {
		return nil, ErrSemanticDisabled
	}
	return a.Pipeline, nil
}

// Close releases the Qdrant connection.
func (a *App) Close() error {
	if a.Index != nil {
		return a.Index.Close()
	}
	return nil
}
