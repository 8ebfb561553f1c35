package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// GoogleConfig carries the Custom Search API credentials and tuning.
type GoogleConfig struct {
	APIKey   string
	Endpoint string
	EngineID string
	// Country and Language restrict results the way the annotation
	// workflow expects (certification records are national).
	Country  string
	Language string
	Timeout  time.Duration
}

// GoogleSearch queries the Google Custom Search JSON API.
type GoogleSearch struct {
	cfg    GoogleConfig
	client *http.Client
	logger *zap.Logger
}

// NewGoogleSearch validates the credentials and builds the client.
func NewGoogleSearch(cfg GoogleConfig, logger *zap.Logger) (*GoogleSearch, error) {
	if cfg.APIKey == "" || cfg.Endpoint == "" || cfg.EngineID == "" {
		return nil, fmt.Errorf("missing google search credentials")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &GoogleSearch{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// googleResponse is the slice of the API response we consume.
type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search issues one API call for the query and returns the ranked hits.
func (g *GoogleSearch) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", g.cfg.APIKey)
	params.Set("cx", g.cfg.EngineID)
	if g.cfg.Country != "" {
		params.Set("cr", g.cfg.Country)
	}
	if g.cfg.Language != "" {
		params.Set("lr", g.cfg.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	if err := classifyStatus(resp.StatusCode); err != nil {
		g.logger.Debug("search request rejected",
			zap.String("query", query),
			zap.Int("status", resp.StatusCode))
		return nil, err
	}

	var parsed googleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &TransientError{Err: fmt.Errorf("decode search response: %w", err)}
	}

	results := make([]Result, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		results = append(results, Result{Title: item.Title, Snippet: item.Snippet})
	}
	return results, nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{StatusCode: status}
	case status == http.StatusTooManyRequests:
		return &QuotaError{StatusCode: status}
	default:
		return &TransientError{StatusCode: status}
	}
}
