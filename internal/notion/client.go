package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2022-06-28"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type queryRequest struct {
	Filter      map[string]any      `json:"filter,omitempty"`
	Sorts       []map[string]string `json:"sorts,omitempty"`
	StartCursor string              `json:"start_cursor,omitempty"`
	PageSize    int                 `json:"page_size,omitempty"`
}

type queryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// QueryDatabase fetches every row of the database, newest edits first,
// following pagination. When editedSince is non-nil only pages edited on or
// after that instant are returned.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, editedSince *time.Time) ([]Page, error) {
	url := fmt.Sprintf("%s/databases/%s/query", c.baseURL, databaseID)

	body := queryRequest{
		Sorts: []map[string]string{
			{"timestamp": "last_edited_time", "direction": "descending"},
		},
		PageSize: 100,
	}
	if editedSince != nil {
		body.Filter = map[string]any{
			"timestamp": "last_edited_time",
			"last_edited_time": map[string]any{
				"on_or_after": editedSince.UTC().Format(time.RFC3339),
			},
		}
	}

	var pages []Page
	for {
		resp, err := c.query(ctx, url, body)
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore || resp.NextCursor == nil {
			return pages, nil
		}
		body.StartCursor = *resp.NextCursor
	}
}

func (c *Client) query(ctx context.Context, url string, body queryRequest) (*queryResponse, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("notion API error (status %d): %s", resp.StatusCode, string(msg))
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
