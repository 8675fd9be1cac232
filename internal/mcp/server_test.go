package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radpushman/ct-knowledge/internal/answer"
	"github.com/radpushman/ct-knowledge/internal/search"
	"github.com/radpushman/ct-knowledge/internal/storage"
)

const testCode = "2398"

func newTestServer(t *testing.T, code string) *Server {
	t.Helper()
	store, err := storage.Open(storage.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	searcher := search.NewSearcher(store, nil)
	return NewServer(&Config{
		Store:        store,
		Searcher:     searcher,
		Answers:      answer.NewService(searcher, nil, nil, nil),
		SecurityCode: code,
	})
}

func addTestDoc(t *testing.T, s *Server, title, content, category string) string {
	t.Helper()
	_, out, err := makeAddHandler(s)(context.Background(), nil, AddInput{
		SecurityCode: testCode,
		Title:        title,
		Content:      content,
		Category:     category,
	})
	require.NoError(t, err)
	return out.ID
}

func TestAddRequiresSecurityCode(t *testing.T) {
	s := newTestServer(t, testCode)
	add := makeAddHandler(s)

	_, _, err := add(context.Background(), nil, AddInput{SecurityCode: "0000", Title: "t", Content: "c"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = add(context.Background(), nil, AddInput{SecurityCode: testCode, Title: " ", Content: "c"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = makeAddHandler(newTestServer(t, ""))(context.Background(), nil, AddInput{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, ErrWritesDisabled)
}

func TestAddGetListDelete(t *testing.T) {
	s := newTestServer(t, testCode)
	ctx := context.Background()

	id := addTestDoc(t, s, "조영제 부작용 대응", "즉시 투여 중단", "")

	_, got, err := makeGetHandler(s)(ctx, nil, GetInput{ID: id})
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.Equal(t, "즉시 투여 중단", got.Content)
	assert.Equal(t, storage.CategoryOther, got.Category)
	assert.NotEmpty(t, got.CreatedAt)

	_, list, err := makeListHandler(s)(ctx, nil, ListInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)

	_, list, err = makeListHandler(s)(ctx, nil, ListInput{Category: storage.CategoryProtocol})
	require.NoError(t, err)
	assert.Zero(t, list.Count)
	assert.NotNil(t, list.Documents)

	_, del, err := makeDeleteHandler(s)(ctx, nil, DeleteInput{SecurityCode: testCode, ID: id})
	require.NoError(t, err)
	assert.False(t, del.BackedUp)

	_, got, err = makeGetHandler(s)(ctx, nil, GetInput{ID: id})
	require.NoError(t, err)
	assert.False(t, got.Found)

	_, _, err = makeDeleteHandler(s)(ctx, nil, DeleteInput{SecurityCode: testCode, ID: id})
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)
}

func TestUpdateHandler(t *testing.T) {
	s := newTestServer(t, testCode)
	ctx := context.Background()
	id := addTestDoc(t, s, "old", "body", storage.CategoryProtocol)

	_, out, err := makeUpdateHandler(s)(ctx, nil, UpdateInput{
		SecurityCode: testCode,
		ID:           id,
		Title:        "new",
		Content:      "new body",
		Category:     storage.CategoryEquipment,
		Tags:         "gantry",
	})
	require.NoError(t, err)
	assert.Equal(t, id, out.ID)

	_, got, err := makeGetHandler(s)(ctx, nil, GetInput{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "gantry", got.Tags)
	assert.NotEmpty(t, got.UpdatedAt)
}

func TestSearchHandler(t *testing.T) {
	s := newTestServer(t, testCode)
	ctx := context.Background()
	addTestDoc(t, s, "CT 스캔 기본 프로토콜", "환자 확인", storage.CategoryProtocol)
	contrast := addTestDoc(t, s, "조영제 부작용 대응", "조영제 투여 후 관찰", storage.CategoryEmergency)

	_, out, err := makeSearchHandler(s)(ctx, nil, SearchInput{Query: "조영제"})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, contrast, out.Results[0].ID)
	assert.Equal(t, search.SourceKeyword, out.Results[0].Source)
	assert.Contains(t, out.Results[0].Snippet, "조영제")

	_, out, err = makeSearchHandler(s)(ctx, nil, SearchInput{Query: "MRI"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	assert.NotEmpty(t, out.Message)

	_, _, err = makeSearchHandler(s)(ctx, nil, SearchInput{Query: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAskHandlerWithoutAnswerer(t *testing.T) {
	s := newTestServer(t, testCode)
	addTestDoc(t, s, "조영제 부작용 대응", "즉시 투여 중단", storage.CategoryEmergency)

	_, out, err := makeAskHandler(s)(context.Background(), nil, AskInput{Question: "조영제 부작용은?"})
	require.NoError(t, err)
	assert.Empty(t, out.Answer)
	assert.Equal(t, answer.ReasonDisabled, out.Degraded)
	assert.Len(t, out.References, 1)
}

func TestStatsAndSeed(t *testing.T) {
	s := newTestServer(t, testCode)
	ctx := context.Background()

	_, seeded, err := makeSeedHandler(s)(ctx, nil, SeedInput{SecurityCode: testCode})
	require.NoError(t, err)
	assert.Equal(t, len(storage.DefaultDocuments()), seeded.Added)

	_, seeded, err = makeSeedHandler(s)(ctx, nil, SeedInput{SecurityCode: testCode})
	require.NoError(t, err)
	assert.Zero(t, seeded.Added)

	_, stats, err := makeStatsHandler(s)(ctx, nil, StatsInput{})
	require.NoError(t, err)
	assert.Equal(t, seeded.Added+len(storage.DefaultDocuments()), stats.TotalDocuments)
	assert.False(t, stats.BackupEnabled)
	assert.False(t, stats.SemanticSearch)
}

func TestBackupDisabled(t *testing.T) {
	s := newTestServer(t, testCode)

	_, _, err := makeBackupHandler(s)(context.Background(), nil, BackupInput{SecurityCode: testCode})
	assert.ErrorIs(t, err, ErrBackupDisabled)
	_, _, err = makeRestoreHandler(s)(context.Background(), nil, BackupInput{SecurityCode: testCode, Mode: "files"})
	assert.ErrorIs(t, err, ErrBackupDisabled)
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	s := newTestServer(t, testCode)
	addTestDoc(t, s, "조영제 부작용 대응", "즉시 투여 중단", storage.CategoryEmergency)
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"search_knowledge", "ask_question", "list_knowledge", "get_knowledge",
		"add_knowledge", "update_knowledge", "delete_knowledge", "get_stats",
		"backup_knowledge", "restore_knowledge", "seed_defaults",
	}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "search_knowledge",
		Arguments: map[string]any{"query": "조영제"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "add_knowledge",
		Arguments: map[string]any{"security_code": "wrong", "title": "t", "content": "c"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

type fakeStore struct {
	err   error
	total int
}

func (f fakeStore) Health() error        { return f.err }
func (f fakeStore) Stats() storage.Stats { return storage.Stats{Total: f.total} }

type fakeIndex struct{ err error }

func (f fakeIndex) Health(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		store      fakeStore
		index      IndexChecker
		wantCode   int
		wantStatus string
		wantIndex  string
	}{
		{"healthy without index", fakeStore{total: 3}, nil, http.StatusOK, "healthy", ""},
		{"healthy with index", fakeStore{total: 3}, fakeIndex{}, http.StatusOK, "healthy", "connected"},
		{"index down", fakeStore{total: 3}, fakeIndex{err: errors.New("refused")}, http.StatusOK, "degraded", "disconnected"},
		{"store down", fakeStore{err: errors.New("read-only")}, nil, http.StatusServiceUnavailable, "unhealthy", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.store, tt.index)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantIndex, resp.Index)
		})
	}
}

func TestMuxRoutes(t *testing.T) {
	srv := httptest.NewServer(NewMux(newTestServer(t, testCode), nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "healthy", health.Status)

	resp, err = http.Get(srv.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
