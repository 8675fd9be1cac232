package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/radpushman/ct-knowledge/internal/answer"
	"github.com/radpushman/ct-knowledge/internal/backup"
	"github.com/radpushman/ct-knowledge/internal/indexer"
	"github.com/radpushman/ct-knowledge/internal/search"
	"github.com/radpushman/ct-knowledge/internal/storage"
)

// Version is reported to MCP clients.
const Version = "v0.1.0"

// Server wraps the MCP server with dependencies.
type Server struct {
	server       *mcp.Server
	store        *storage.Store
	searcher     *search.Searcher
	answers      *answer.Service
	syncer       *backup.Syncer
	indexer      *indexer.Pipeline
	securityCode string
	logger       *slog.Logger
}

// Config holds server dependencies. Syncer and Indexer are optional.
type Config struct {
	Store        *storage.Store
	Searcher     *search.Searcher
	Answers      *answer.Service
	Syncer       *backup.Syncer
	Indexer      *indexer.Pipeline
	SecurityCode string
	Logger       *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:        cfg.Store,
		searcher:     cfg.Searcher,
		answers:      cfg.Answers,
		syncer:       cfg.Syncer,
		indexer:      cfg.Indexer,
		securityCode: cfg.SecurityCode,
		logger:       logger,
	}

	impl := &mcp.Implementation{
		Name:    "ct-knowledge-server",
		Version: Version,
	}
	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the CT room knowledge base. Returns ranked documents with a snippet. Use get_knowledge for the full text.",
	}, makeSearchHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question from the knowledge base. Falls back to the matching documents when AI answers are unavailable.",
	}, makeAskHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_knowledge",
		Description: "List knowledge documents, most recent first, optionally by category.",
	}, makeListHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_knowledge",
		Description: "Retrieve one knowledge document by id.",
	}, makeGetHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_knowledge",
		Description: "Add a knowledge document. Requires the staff security code.",
	}, makeAddHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_knowledge",
		Description: "Replace the title, content, category and tags of a document. Requires the staff security code.",
	}, makeUpdateHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_knowledge",
		Description: "Permanently delete a document and its backup. Requires the staff security code.",
	}, makeDeleteHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_stats",
		Description: "Get document counts per category, last update time and feature status.",
	}, makeStatsHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "backup_knowledge",
		Description: "Back up the knowledge base to GitHub as one JSON snapshot or one file per document. Requires the staff security code.",
	}, makeBackupHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "restore_knowledge",
		Description: "Replace the local knowledge base with the GitHub backup. Local-only documents are lost. Requires the staff security code.",
	}, makeRestoreHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "seed_defaults",
		Description: "Add the default CT protocol documents to an empty knowledge base. Requires the staff security code.",
	}, makeSeedHandler(s))

	s.server = server
	return s
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
