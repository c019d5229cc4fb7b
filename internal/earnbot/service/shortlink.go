package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ShortlinkClient generates tracking URLs and reports task completion.
type ShortlinkClient interface {
	Generate(ctx context.Context, targetURL, correlationID string) (string, error)
	CheckStatus(ctx context.Context, correlationID string) (bool, error)
}

// HTTPShortlinkClient talks to the shortlink service over HTTP
type HTTPShortlinkClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewShortlinkClient creates a new shortlink client
func NewShortlinkClient(baseURL, apiToken string) *HTTPShortlinkClient {
	return &HTTPShortlinkClient{
		baseURL:  baseURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type shortlinkResponse struct {
	Status       string `json:"status"`
	ShortenedURL string `json:"shortenedUrl"`
}

type statusResponse struct {
	Completed bool `json:"completed"`
}

// Generate requests a tracking URL for targetURL. The correlation ID rides
// along as the alias so CheckStatus can match the completion later.
func (c *HTTPShortlinkClient) Generate(ctx context.Context, targetURL, correlationID string) (string, error) {
	endpoint := fmt.Sprintf("%s/api?api=%s&url=%s&alias=%s",
		c.baseURL, url.QueryEscape(c.apiToken), url.QueryEscape(targetURL), url.QueryEscape(correlationID))

	var resp shortlinkResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return "", err
	}

	if resp.Status != "success" || resp.ShortenedURL == "" {
		return "", fmt.Errorf("shortlink service returned status %q", resp.Status)
	}
	return resp.ShortenedURL, nil
}

// CheckStatus reports whether the task behind correlationID was completed
func (c *HTTPShortlinkClient) CheckStatus(ctx context.Context, correlationID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/status?api=%s&alias=%s",
		c.baseURL, url.QueryEscape(c.apiToken), url.QueryEscape(correlationID))

	var resp statusResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return false, err
	}
	return resp.Completed, nil
}

// getJSON performs a GET and decodes the JSON body. Any non-OK status or
// undecodable body is an error; callers treat it as transient.
func (c *HTTPShortlinkClient) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shortlink service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("malformed shortlink response: %w", err)
	}
	return nil
}
