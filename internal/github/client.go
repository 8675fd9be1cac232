// Package github reads and writes knowledge backups through the GitHub
// Contents API.
package github

import (
	"net/http"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 30 * time.Second

// Client wraps the GitHub API client with rate limiting support
type Client struct {
	*github.Client
}

// NewClient creates a GitHub client authenticated with token. The rate
// limit waiter sleeps through primary and secondary limits; timeout caps
// each request including that wait.
func NewClient(token string, timeout time.Duration) (*Client, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rateLimiter.Timeout = timeout

	return newClient(rateLimiter, token), nil
}

func newClient(httpClient *http.Client, token string) *Client {
	ghClient := github.NewClient(httpClient)
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}
	return &Client{Client: ghClient}
}
