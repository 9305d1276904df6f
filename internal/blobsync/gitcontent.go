package blobsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

const (
	// GitHubBaseURL is the default API root for ProviderGitHub.
	GitHubBaseURL = "https://api.github.com"
	// CNBBaseURL is the default API root for ProviderCNB.
	CNBBaseURL = "https://api.cnb.cool"

	// maxMessageRunes bounds the raw body kept as an API error message.
	maxMessageRunes = 200

	// maxBodySize bounds the response bodies read from the content API.
	maxBodySize = 32 << 20
)

// GitContent talks to a GitHub-style repository contents API:
//
//	GET /repos/{owner}/{repo}/contents/{path}?ref={branch}
//	PUT /repos/{owner}/{repo}/contents/{path}
type GitContent struct {
	provider   domain.Provider
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

// Option customizes a GitContent client.
type Option func(*GitContent)

// WithBaseURL points the client at a self-hosted or fake API.
func WithBaseURL(base string) Option {
	return func(c *GitContent) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient replaces the http client. A zero Timeout means a hung call
// blocks until ctx is done.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *GitContent) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http client.
func WithTimeout(d time.Duration) Option {
	return func(c *GitContent) { c.httpClient = &http.Client{Timeout: d} }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *GitContent) {
		if log != nil {
			c.logger = log
		}
	}
}

// NewGitContent creates a content API client for provider.
func NewGitContent(provider domain.Provider, opts ...Option) *GitContent {
	c := &GitContent{
		provider:   provider,
		baseURL:    defaultBaseURL(provider),
		httpClient: &http.Client{},
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultBaseURL(p domain.Provider) string {
	if p == domain.ProviderCNB {
		return CNBBaseURL
	}
	return GitHubBaseURL
}

// contentFile is the subset of the contents API answer we use.
type contentFile struct {
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

// putRequest is the body of the write. SHA is omitted when the file is new.
type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

// apiMessage is the error body returned by the API.
type apiMessage struct {
	Message string `json:"message"`
}

func (c *GitContent) contentsURL(cfg domain.SyncConfig) string {
	segments := strings.Split(cfg.Path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(cfg.Owner), url.PathEscape(cfg.Repo), strings.Join(segments, "/"))
}

// Pull downloads and decodes the remote list. 404 is an empty list.
func (c *GitContent) Pull(ctx context.Context, cfg domain.SyncConfig) ([]domain.Bookmark, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	file, err := c.get(ctx, cfg, "pull")
	if err != nil {
		return nil, err
	}
	if file == nil {
		c.logger.Info("remote file does not exist yet", logger.String("path", cfg.Path))
		return []domain.Bookmark{}, nil
	}

	list, err := DecodeContent(file.Content)
	if err != nil {
		return nil, fmt.Errorf("%s pull: %w", c.provider, err)
	}
	return list, nil
}

// Push replaces the remote file with list, using the current sha as the
// write precondition. A rejected precondition is ErrConflict, never retried.
func (c *GitContent) Push(ctx context.Context, cfg domain.SyncConfig, list []domain.Bookmark) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	current, err := c.get(ctx, cfg, "push")
	if err != nil {
		return err
	}

	content, err := EncodeContent(list)
	if err != nil {
		return err
	}
	body := putRequest{Message: CommitMessage, Content: content, Branch: cfg.Branch}
	if current != nil {
		body.SHA = current.SHA
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(cfg), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req, cfg)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s push: %w", c.provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%s push: read response: %w", c.provider, err)
	}
	if resp.StatusCode/100 != 2 {
		return c.failure("push", resp.StatusCode, respBody)
	}

	c.logger.Debug("pushed remote file",
		logger.String("path", cfg.Path),
		logger.Int("bookmarks", len(list)),
		logger.Bool("created", current == nil))
	return nil
}

// get fetches the file metadata and content. A nil file means 404.
func (c *GitContent) get(ctx context.Context, cfg domain.SyncConfig, op string) (*contentFile, error) {
	u := c.contentsURL(cfg) + "?ref=" + url.QueryEscape(cfg.Branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req, cfg)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.provider, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", c.provider, op, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, c.failure(op, resp.StatusCode, body)
	}

	var file contentFile
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, fmt.Errorf("%s %s: %w: unreadable contents answer: %v", c.provider, op, domain.ErrFormat, err)
	}
	return &file, nil
}

func (c *GitContent) authorize(req *http.Request, cfg domain.SyncConfig) {
	req.Header.Set("Authorization", "token "+cfg.Token)
}

// failure builds the error of a non-2xx answer, carrying the API message.
// A rejected sha precondition also matches ErrConflict.
func (c *GitContent) failure(op string, status int, body []byte) error {
	var msg apiMessage
	if err := json.Unmarshal(body, &msg); err != nil || msg.Message == "" {
		msg.Message = strings.TrimSpace(string(body))
		msg.Message = truncate(msg.Message, maxMessageRunes)
	}
	apiErr := &domain.APIError{Provider: c.provider, Op: op, Status: status, Message: msg.Message}

	if isConflict(status, msg.Message) {
		c.logger.Warn("remote file changed since it was read",
			logger.String("op", op),
			logger.Int("status", status))
		return fmt.Errorf("%w: %w", domain.ErrConflict, apiErr)
	}
	return apiErr
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func isConflict(status int, message string) bool {
	switch status {
	case http.StatusConflict:
		return true
	case http.StatusUnprocessableEntity:
		return strings.Contains(strings.ToLower(message), "sha")
	}
	return false
}

var _ Remote = (*GitContent)(nil)
