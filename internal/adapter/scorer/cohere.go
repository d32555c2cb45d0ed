// Package scorer provides RelevanceScorer implementations: a Cohere-style
// cross-encoder HTTP client and a lexical-overlap fallback for callers that
// want explicit graceful degradation.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hsaeed3/yosemite/internal/domain"
)

// CohereScorer scores (query, passage) pairs with Cohere's rerank endpoint.
type CohereScorer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// NewCohereScorer creates a scorer reading its key from apiKeyEnv.
func NewCohereScorer(apiKeyEnv, model string) (*CohereScorer, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	if model == "" {
		model = "rerank-english-v3.0"
	}
	return &CohereScorer{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.cohere.ai/v1",
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Score returns the cross-encoder relevance of passage to query.
func (s *CohereScorer) Score(ctx context.Context, query, passage string) (float64, error) {
	reqBody := rerankRequest{
		Query:     query,
		Documents: []string{passage},
		Model:     s.model,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rerank", bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrScorerUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: rerank API returned status %d: %s", domain.ErrScorerUnavailable, resp.StatusCode, string(body))
	}

	var rr rerankResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(rr.Results) == 0 {
		return 0, fmt.Errorf("%w: empty rerank response", domain.ErrScorerUnavailable)
	}
	return rr.Results[0].RelevanceScore, nil
}
