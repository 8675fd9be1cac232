package github

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contentsServer is an in-memory Contents API that enforces version tokens.
type contentsServer struct {
	mu    sync.Mutex
	files map[string][]byte
	puts  []putRequest
	srv   *httptest.Server
}

type putRequest struct {
	Path    string
	Message string `json:"message"`
	Content []byte `json:"content"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch"`
}

func newContentsServer(t *testing.T) *contentsServer {
	t.Helper()
	cs := &contentsServer{files: map[string][]byte{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/ct/kb/contents/", cs.handleContents)
	mux.HandleFunc("/raw/", func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		defer cs.mu.Unlock()
		data, ok := cs.files[strings.TrimPrefix(r.URL.Path, "/raw/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	})
	mux.HandleFunc("/repos/ct/kb", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"full_name":      "ct/kb",
			"description":    "CT knowledge backup",
			"default_branch": "main",
			"private":        true,
			"size":           42,
			"created_at":     "2024-01-02T03:04:05Z",
			"updated_at":     "2024-02-03T04:05:06Z",
		})
	})
	cs.srv = httptest.NewServer(mux)
	t.Cleanup(cs.srv.Close)
	return cs
}

func blobSHA(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (cs *contentsServer) entry(p string) map[string]any {
	return map[string]any{
		"type":         "file",
		"name":         path.Base(p),
		"path":         p,
		"sha":          blobSHA(cs.files[p]),
		"size":         len(cs.files[p]),
		"download_url": cs.srv.URL + "/raw/" + p,
	}
}

func notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
}

func (cs *contentsServer) handleContents(w http.ResponseWriter, r *http.Request) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	p := strings.TrimPrefix(r.URL.Path, "/repos/ct/kb/contents/")

	switch r.Method {
	case http.MethodGet:
		if _, ok := cs.files[p]; ok {
			json.NewEncoder(w).Encode(cs.entry(p))
			return
		}
		var names []string
		for name := range cs.files {
			if path.Dir(name) == p {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			notFound(w)
			return
		}
		sort.Strings(names)
		entries := make([]map[string]any, 0, len(names))
		for _, name := range names {
			entries = append(entries, cs.entry(name))
		}
		json.NewEncoder(w).Encode(entries)

	case http.MethodPut:
		var req putRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Path = p
		cs.puts = append(cs.puts, req)
		current, exists := cs.files[p]
		if exists && req.SHA != blobSHA(current) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"message": "sha does not match"})
			return
		}
		if !exists && req.SHA != "" {
			notFound(w)
			return
		}
		cs.files[p] = req.Content
		status := http.StatusCreated
		if exists {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{"content": cs.entry(p)})

	case http.MethodDelete:
		var req putRequest
		json.NewDecoder(r.Body).Decode(&req)
		current, exists := cs.files[p]
		if !exists {
			notFound(w)
			return
		}
		if req.SHA != blobSHA(current) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"message": "sha does not match"})
			return
		}
		delete(cs.files, p)
		json.NewEncoder(w).Encode(map[string]any{"content": nil, "commit": map[string]any{}})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestRemote(t *testing.T, cs *contentsServer) *Remote {
	t.Helper()
	client := newClient(cs.srv.Client(), "test-token")
	base, err := url.Parse(cs.srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	remote, err := NewRemote(client, "ct/kb", "")
	require.NoError(t, err)
	return remote
}

func TestParseRepo(t *testing.T) {
	owner, repo, err := ParseRepo("radpushman/ct-knowledge")
	require.NoError(t, err)
	assert.Equal(t, "radpushman", owner)
	assert.Equal(t, "ct-knowledge", repo)

	for _, bad := range []string{"", "noslash", "/repo", "owner/", "a/b/c"} {
		_, _, err := ParseRepo(bad)
		assert.ErrorIs(t, err, ErrInvalidRepo, bad)
	}
}

func TestStatNotFound(t *testing.T) {
	remote := newTestRemote(t, newContentsServer(t))

	_, err := remote.Stat(context.Background(), "knowledge/missing.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutCreateThenUpdate(t *testing.T) {
	cs := newContentsServer(t)
	remote := newTestRemote(t, cs)
	ctx := context.Background()

	created, err := remote.Put(ctx, "knowledge/a.md", []byte("first"), "", "Add a")
	require.NoError(t, err)
	assert.Equal(t, blobSHA([]byte("first")), created.SHA)

	// An update without the token is rejected.
	_, err = remote.Put(ctx, "knowledge/a.md", []byte("second"), "", "Update a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	stat, err := remote.Stat(ctx, "knowledge/a.md")
	require.NoError(t, err)
	_, err = remote.Put(ctx, "knowledge/a.md", []byte("second"), stat.SHA, "Update a")
	require.NoError(t, err)

	assert.Equal(t, []byte("second"), cs.files["knowledge/a.md"])
	require.Len(t, cs.puts, 3)
	assert.Equal(t, created.SHA, cs.puts[2].SHA)
	assert.Equal(t, "Update a", cs.puts[2].Message)
}

func TestListAndDownload(t *testing.T) {
	cs := newContentsServer(t)
	cs.files["knowledge/b.md"] = []byte("# 조영제 부작용 대응")
	cs.files["knowledge/a.md"] = []byte("# CT 스캔 기본 프로토콜")
	cs.files["other/c.md"] = []byte("elsewhere")
	remote := newTestRemote(t, cs)
	ctx := context.Background()

	files, err := remote.List(ctx, "knowledge")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.md", files[0].Name)
	assert.Equal(t, "knowledge/a.md", files[0].Path)

	data, err := remote.Download(ctx, files[1])
	require.NoError(t, err)
	assert.Equal(t, "# 조영제 부작용 대응", string(data))

	_, err = remote.List(ctx, "empty")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	cs := newContentsServer(t)
	cs.files["knowledge/a.md"] = []byte("body")
	remote := newTestRemote(t, cs)
	ctx := context.Background()

	require.Error(t, remote.Delete(ctx, "knowledge/a.md", "stale", "Delete a"))
	require.NoError(t, remote.Delete(ctx, "knowledge/a.md", blobSHA([]byte("body")), "Delete a"))
	assert.Empty(t, cs.files)

	err := remote.Delete(ctx, "knowledge/a.md", "any", "Delete a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInfo(t *testing.T) {
	remote := newTestRemote(t, newContentsServer(t))

	info, err := remote.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ct/kb", info.FullName)
	assert.Equal(t, "Markdown", info.Language)
	assert.True(t, info.Private)
	assert.Equal(t, 42, info.Size)
	assert.Equal(t, 2024, info.CreatedAt.Year())
}
