package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Snippet is one external search result.
type Snippet struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"snippet"`
}

// Client is the external web search/scrape skill consumed by retrieval
// fallback and the tool agent.
type Client interface {
	Search(ctx context.Context, query string) ([]Snippet, error)
	Scrape(ctx context.Context, url string) (string, error)
}

// HTTPClient calls a search-API endpoint (serper-style JSON contract).
// An empty API key leaves the client in degraded mode: every call returns
// empty results instead of an error, per the optional-collaborator policy.
type HTTPClient struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

var _ Client = &HTTPClient{}

func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	if endpoint == "" {
		endpoint = "https://google.serper.dev/search"
	}
	return &HTTPClient{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether the client can reach the external service.
func (c *HTTPClient) Configured() bool { return c.APIKey != "" }

type searchRequest struct {
	Q string `json:"q"`
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (c *HTTPClient) Search(ctx context.Context, query string) ([]Snippet, error) {
	if !c.Configured() {
		return nil, nil
	}

	payload, err := json.Marshal(searchRequest{Q: query})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.Endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	snippets := make([]Snippet, 0, len(parsed.Organic))
	for _, item := range parsed.Organic {
		snippets = append(snippets, Snippet{Title: item.Title, URL: item.Link, Text: item.Snippet})
	}
	return snippets, nil
}

// Scrape fetches a URL and returns its raw text body, truncated.
func (c *HTTPClient) Scrape(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scrape request failed: %w", err)
	}
	defer resp.Body.Close()

	const maxBody = 64 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("scrape error: status %d", resp.StatusCode)
	}
	return string(body), nil
}

// StaticClient returns canned snippets; used by tests and the simulation.
type StaticClient struct {
	Snippets []Snippet
	Err      error
}

var _ Client = &StaticClient{}

func (s *StaticClient) Search(ctx context.Context, query string) ([]Snippet, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Snippets, nil
}

func (s *StaticClient) Scrape(ctx context.Context, url string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	for _, sn := range s.Snippets {
		if sn.URL == url {
			return sn.Text, nil
		}
	}
	return "", nil
}
