package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
)

// RemoteFile describes a file in the backup repository.
type RemoteFile struct {
	Name        string
	Path        string
	SHA         string // version token required to overwrite or delete
	Size        int
	DownloadURL string
}

// RepoInfo summarizes the backup repository.
type RepoInfo struct {
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	DefaultBranch string    `json:"default_branch"`
	Language      string    `json:"language"`
	Private       bool      `json:"private"`
	Size          int       `json:"size"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Remote is a path-addressed file store backed by one repository.
type Remote struct {
	client *Client
	owner  string
	repo   string
	branch string
}

// NewRemote creates a remote for fullRepo ("owner/name"). An empty branch
// uses the repository default.
func NewRemote(client *Client, fullRepo, branch string) (*Remote, error) {
	owner, repo, err := ParseRepo(fullRepo)
	if err != nil {
		return nil, err
	}
	return &Remote{
		client: client,
		owner:  owner,
		repo:   repo,
		branch: branch,
	}, nil
}

// ParseRepo splits "owner/name".
func ParseRepo(fullRepo string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(fullRepo), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepo, fullRepo)
	}
	return owner, repo, nil
}

// FullName returns "owner/name".
func (r *Remote) FullName() string {
	return r.owner + "/" + r.repo
}

func (r *Remote) getOptions() *github.RepositoryContentGetOptions {
	return &github.RepositoryContentGetOptions{Ref: r.branch}
}

// Stat returns the file at p, or ErrNotFound.
func (r *Remote) Stat(ctx context.Context, p string) (*RemoteFile, error) {
	file, _, resp, err := r.client.Repositories.GetContents(ctx, r.owner, r.repo, p, r.getOptions())
	if err != nil {
		return nil, wrapError(resp, err, "stat %s", p)
	}
	if file == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, p)
	}
	return toRemoteFile(file), nil
}

// List returns the files directly under dir. Subdirectories are skipped.
func (r *Remote) List(ctx context.Context, dir string) ([]RemoteFile, error) {
	file, entries, resp, err := r.client.Repositories.GetContents(ctx, r.owner, r.repo, dir, r.getOptions())
	if err != nil {
		return nil, wrapError(resp, err, "list %s", dir)
	}
	if file != nil {
		return nil, fmt.Errorf("list %s: path is a file", dir)
	}

	files := make([]RemoteFile, 0, len(entries))
	for _, entry := range entries {
		if entry.GetType() != "file" {
			continue
		}
		files = append(files, *toRemoteFile(entry))
	}
	return files, nil
}

// Download fetches the raw bytes of a file. The download URL is used when
// known since the Contents API omits bodies of large files.
func (r *Remote) Download(ctx context.Context, file RemoteFile) ([]byte, error) {
	if file.DownloadURL == "" {
		content, _, resp, err := r.client.Repositories.GetContents(ctx, r.owner, r.repo, file.Path, r.getOptions())
		if err != nil {
			return nil, wrapError(resp, err, "download %s", file.Path)
		}
		if content == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotAFile, file.Path)
		}
		body, err := content.GetContent()
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", file.Path, err)
		}
		return []byte(body), nil
	}

	req, err := r.client.NewRequest(http.MethodGet, file.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", file.Path, err)
	}
	resp, err := r.client.BareDo(ctx, req)
	if err != nil {
		return nil, wrapError(resp, err, "download %s", file.Path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file.Path, err)
	}
	return data, nil
}

// Put creates p when sha is empty and overwrites it otherwise. The remote
// rejects an overwrite whose sha is not the current one.
func (r *Remote) Put(ctx context.Context, p string, content []byte, sha, message string) (*RemoteFile, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
	}
	if r.branch != "" {
		opts.Branch = github.Ptr(r.branch)
	}

	var (
		result *github.RepositoryContentResponse
		resp   *github.Response
		err    error
	)
	if sha == "" {
		result, resp, err = r.client.Repositories.CreateFile(ctx, r.owner, r.repo, p, opts)
	} else {
		opts.SHA = github.Ptr(sha)
		result, resp, err = r.client.Repositories.UpdateFile(ctx, r.owner, r.repo, p, opts)
	}
	if err != nil {
		return nil, wrapError(resp, err, "put %s", p)
	}
	if result == nil || result.Content == nil {
		return &RemoteFile{Name: path.Base(p), Path: p}, nil
	}
	return toRemoteFile(result.Content), nil
}

// Delete removes p at version sha.
func (r *Remote) Delete(ctx context.Context, p, sha, message string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		SHA:     github.Ptr(sha),
	}
	if r.branch != "" {
		opts.Branch = github.Ptr(r.branch)
	}
	_, resp, err := r.client.Repositories.DeleteFile(ctx, r.owner, r.repo, p, opts)
	if err != nil {
		return wrapError(resp, err, "delete %s", p)
	}
	return nil
}

// Info returns repository metadata.
func (r *Remote) Info(ctx context.Context) (*RepoInfo, error) {
	repo, resp, err := r.client.Repositories.Get(ctx, r.owner, r.repo)
	if err != nil {
		return nil, wrapError(resp, err, "get repository %s", r.FullName())
	}
	language := repo.GetLanguage()
	if language == "" {
		language = "Markdown"
	}
	return &RepoInfo{
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		DefaultBranch: repo.GetDefaultBranch(),
		Language:      language,
		Private:       repo.GetPrivate(),
		Size:          repo.GetSize(),
		CreatedAt:     repo.GetCreatedAt().Time,
		UpdatedAt:     repo.GetUpdatedAt().Time,
	}, nil
}

func toRemoteFile(c *github.RepositoryContent) *RemoteFile {
	return &RemoteFile{
		Name:        c.GetName(),
		Path:        c.GetPath(),
		SHA:         c.GetSHA(),
		Size:        c.GetSize(),
		DownloadURL: c.GetDownloadURL(),
	}
}

// wrapError maps a 404 to ErrNotFound and keeps the HTTP reason otherwise.
func wrapError(resp *github.Response, err error, format string, args ...any) error {
	op := fmt.Sprintf(format, args...)
	if IsNotFound(resp, err) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsNotFound reports whether a go-github call failed with 404.
func IsNotFound(resp *github.Response, err error) bool {
	if resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}
