package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/use-agent/postmeta/models"
)

// apiClient talks to a running postmeta server.
type apiClient struct {
	baseURL      string
	apiKey       string
	http         *http.Client
	pollInterval time.Duration
}

func newAPIClient(baseURL, apiKey string) *apiClient {
	return &apiClient{
		baseURL:      baseURL,
		apiKey:       apiKey,
		http:         &http.Client{Timeout: 30 * time.Second},
		pollInterval: 2 * time.Second,
	}
}

// submit posts a scrape request and returns the job ID.
func (c *apiClient) submit(ctx context.Context, req models.ScrapeRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, status, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	if status != http.StatusAccepted {
		return "", apiError(status, respBody)
	}
	var ack models.SubmitResponse
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return ack.JobID, nil
}

// job fetches the current job state.
func (c *apiClient) job(ctx context.Context, id string) (*models.JobResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/jobs/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	respBody, status, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apiError(status, respBody)
	}
	var job models.JobResponse
	if err := json.Unmarshal(respBody, &job); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &job, nil
}

// wait polls until the job is terminal or ctx is done.
func (c *apiClient) wait(ctx context.Context, id string) (*models.JobResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			job, err := c.job(ctx, id)
			if err != nil {
				return nil, err
			}
			if job.Status.Terminal() {
				return job, nil
			}
		}
	}
}

func (c *apiClient) do(req *http.Request) ([]byte, int, error) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func apiError(status int, body []byte) error {
	var e models.ErrorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != nil {
		return fmt.Errorf("API error %d: %s: %s", status, e.Error.Code, e.Error.Message)
	}
	return fmt.Errorf("API error %d", status)
}
