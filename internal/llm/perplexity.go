package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultHealthDomains limits deep search to established health sources.
var DefaultHealthDomains = []string{
	"who.int",
	"nih.gov",
	"cdc.gov",
	"mayoclinic.org",
	"apa.org",
	"health.harvard.edu",
}

// SearchOptions are the Perplexity search parameters sent with every request.
type SearchOptions struct {
	DomainFilter    []string
	RecencyFilter   string
	ReturnCitations bool
}

// PerplexityConfig configures a PerplexityClient.
type PerplexityConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Search     *SearchOptions
	HTTPClient *http.Client
}

// PerplexityClient calls Perplexity's OpenAI-compatible chat endpoint with
// web search enabled.  Perplexity rejects histories that do not alternate
// user and assistant turns; callers format messages with PerplexityFormatter.
type PerplexityClient struct {
	apiKey     string
	baseURL    string
	model      string
	search     SearchOptions
	httpClient *http.Client
}

type perplexityRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	Temperature         float32   `json:"temperature,omitempty"`
	MaxTokens           int       `json:"max_tokens,omitempty"`
	SearchDomainFilter  []string  `json:"search_domain_filter,omitempty"`
	ReturnCitations     bool      `json:"return_citations"`
	SearchRecencyFilter string    `json:"search_recency_filter,omitempty"`
}

type perplexityResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewPerplexityClient constructs a Perplexity client.  Search defaults to the
// health domain whitelist, citations on and a one month recency window.
func NewPerplexityClient(cfg PerplexityConfig) *PerplexityClient {
	c := &PerplexityClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
		search: SearchOptions{
			DomainFilter:    DefaultHealthDomains,
			RecencyFilter:   "month",
			ReturnCitations: true,
		},
	}
	if cfg.Search != nil {
		c.search = *cfg.Search
	}
	if c.baseURL == "" {
		c.baseURL = "https://api.perplexity.ai"
	}
	if c.model == "" {
		c.model = "sonar"
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return c
}

// Complete sends one chat completion request with search enabled.
func (c *PerplexityClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("perplexity: PERPLEXITY_API_KEY is not set: %w", ErrMissingAPIKey)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	body, err := json.Marshal(perplexityRequest{
		Model:               model,
		Messages:            req.Messages,
		Temperature:         req.Temperature,
		MaxTokens:           req.MaxTokens,
		SearchDomainFilter:  c.search.DomainFilter,
		ReturnCitations:     c.search.ReturnCitations,
		SearchRecencyFilter: c.search.RecencyFilter,
	})
	if err != nil {
		return "", fmt.Errorf("perplexity: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("perplexity: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("perplexity: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("perplexity: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("perplexity: status %d: %s", resp.StatusCode, truncate(string(raw), 300))
	}

	var parsed perplexityResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("perplexity: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("perplexity: api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("perplexity: %w", ErrEmptyResponse)
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
