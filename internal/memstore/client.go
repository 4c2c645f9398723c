// Package memstore is a small client for the Supermemory HTTP API, the store
// captured turns are written to.
package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the hosted API.
	DefaultBaseURL = "https://api.supermemory.ai"
	// DefaultContainerTag is used when a call names no container.
	DefaultContainerTag = "sm_project_default"
	// Source is stamped on the metadata of every memory this client writes.
	Source = "claude-code-plugin"

	defaultTimeout = 30 * time.Second
	maxBodySize    = 4 << 20
)

// ErrMissingAPIKey is returned by New without an API key.
var ErrMissingAPIKey = errors.New("memstore: API key is required")

// Client talks to the memory store. Requests are rate limited so a burst of
// hook invocations in one process cannot flood the API.
type Client struct {
	baseURL      string
	apiKey       string
	containerTag string
	http         *http.Client
	limiter      *rate.Limiter
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another deployment.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLimiter replaces the request limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New returns a Client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		baseURL:      DefaultBaseURL,
		apiKey:       apiKey,
		containerTag: DefaultContainerTag,
		http:         &http.Client{Timeout: defaultTimeout},
		limiter:      rate.NewLimiter(rate.Limit(5), 10), // 5 req/s, burst 10
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AddResult is the store's acknowledgement of a write.
type AddResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ContainerTag string `json:"-"`
}

// AddMemory stores content under containerTag. A non-empty customID makes the
// write idempotent: repeating it updates the same document.
func (c *Client) AddMemory(ctx context.Context, content, containerTag string, metadata map[string]any, customID string) (*AddResult, error) {
	tag := c.tag(containerTag)
	meta := map[string]any{"sm_source": Source}
	for k, v := range metadata {
		meta[k] = v
	}

	body := map[string]any{
		"content":      content,
		"containerTag": tag,
		"metadata":     meta,
	}
	if customID != "" {
		body["customId"] = customID
	}

	var res AddResult
	if err := c.do(ctx, http.MethodPost, "/v3/documents", body, &res); err != nil {
		return nil, err
	}
	res.ContainerTag = tag
	return &res, nil
}

// SearchHit is one search result.
type SearchHit struct {
	ID         string  `json:"id"`
	Memory     string  `json:"memory"`
	Similarity float64 `json:"similarity"`
	Title      string  `json:"title,omitempty"`
}

// SearchResult is the response of Search and the search part of a profile.
type SearchResult struct {
	Results []SearchHit `json:"results"`
	Total   int         `json:"total"`
	Timing  float64     `json:"timing"`
}

type rawHit struct {
	ID         string  `json:"id"`
	Memory     string  `json:"memory"`
	Content    string  `json:"content"`
	Context    string  `json:"context"`
	Chunk      string  `json:"chunk"`
	Similarity float64 `json:"similarity"`
	Title      string  `json:"title"`
}

type rawSearch struct {
	Results []rawHit `json:"results"`
	Total   int      `json:"total"`
	Timing  float64  `json:"timing"`
}

func (r rawSearch) normalize() SearchResult {
	out := SearchResult{Total: r.Total, Timing: r.Timing, Results: make([]SearchHit, 0, len(r.Results))}
	for _, h := range r.Results {
		text := firstNonEmpty(h.Content, h.Memory, h.Context, h.Chunk)
		out.Results = append(out.Results, SearchHit{ID: h.ID, Memory: text, Similarity: h.Similarity, Title: h.Title})
	}
	return out
}

// Search runs a hybrid search within containerTag. A non-positive limit selects 10.
func (c *Client) Search(ctx context.Context, query, containerTag string, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	body := map[string]any{
		"q":            query,
		"containerTag": c.tag(containerTag),
		"limit":        limit,
		"searchMode":   "hybrid",
	}
	var raw rawSearch
	if err := c.do(ctx, http.MethodPost, "/v4/search", body, &raw); err != nil {
		return nil, err
	}
	res := raw.normalize()
	return &res, nil
}

// Profile is the distilled knowledge held for a container.
type Profile struct {
	Static        []string      `json:"static"`
	Dynamic       []string      `json:"dynamic"`
	SearchResults *SearchResult `json:"searchResults,omitempty"`
}

// Profile fetches the container's profile, with search results for query
// when query is non-empty.
func (c *Client) Profile(ctx context.Context, containerTag, query string) (*Profile, error) {
	body := map[string]any{"containerTag": c.tag(containerTag)}
	if query != "" {
		body["q"] = query
	}

	var raw struct {
		Profile struct {
			Static  []string `json:"static"`
			Dynamic []string `json:"dynamic"`
		} `json:"profile"`
		SearchResults *rawSearch `json:"searchResults"`
	}
	if err := c.do(ctx, http.MethodPost, "/v4/profile", body, &raw); err != nil {
		return nil, err
	}

	p := &Profile{Static: raw.Profile.Static, Dynamic: raw.Profile.Dynamic}
	if p.Static == nil {
		p.Static = []string{}
	}
	if p.Dynamic == nil {
		p.Dynamic = []string{}
	}
	if raw.SearchResults != nil {
		res := raw.SearchResults.normalize()
		p.SearchResults = &res
	}
	return p, nil
}

// Memory is a stored document as returned by ListMemories.
type Memory struct {
	ID            string         `json:"id"`
	Title         string         `json:"title,omitempty"`
	Summary       string         `json:"summary,omitempty"`
	Content       string         `json:"content,omitempty"`
	Status        string         `json:"status,omitempty"`
	ContainerTags []string       `json:"containerTags,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// ListMemories returns the newest memories in containerTag. A non-positive
// limit selects 20.
func (c *Client) ListMemories(ctx context.Context, containerTag string, limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = 20
	}
	body := map[string]any{
		"containerTags": []string{c.tag(containerTag)},
		"limit":         limit,
		"order":         "desc",
		"sort":          "createdAt",
	}
	var raw struct {
		Memories []Memory `json:"memories"`
		Results  []Memory `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/v3/documents/list", body, &raw); err != nil {
		return nil, err
	}
	if raw.Memories != nil {
		return raw.Memories, nil
	}
	if raw.Results != nil {
		return raw.Results, nil
	}
	return []Memory{}, nil
}

// GetMemory fetches one memory by id.
func (c *Client) GetMemory(ctx context.Context, id string) (*Memory, error) {
	if id == "" {
		return nil, errors.New("memstore: memory id is required")
	}
	var m Memory
	if err := c.do(ctx, http.MethodGet, "/v3/documents/"+url.PathEscape(id), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMemory removes a memory by id.
func (c *Client) DeleteMemory(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("memstore: memory id is required")
	}
	return c.do(ctx, http.MethodDelete, "/v3/documents/"+url.PathEscape(id), nil, nil)
}

func (c *Client) tag(containerTag string) string {
	if containerTag != "" {
		return containerTag
	}
	return c.containerTag
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("memstore: rate limiter: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("memstore: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("memstore: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("memstore: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("memstore: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("memstore: decode response: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
