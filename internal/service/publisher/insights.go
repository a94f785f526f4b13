package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Insights are the engagement metrics the platform reports for one
// published item.
type Insights struct {
	Reach    int `json:"reach"`
	Likes    int `json:"likes"`
	Saves    int `json:"saves"`
	Comments int `json:"comments"`
}

// InsightsFetcher reads engagement metrics for a published item id.
type InsightsFetcher interface {
	Insights(ctx context.Context, itemID string) (*Insights, error)
}

// Insights fetches Graph API metrics for a published reel.
func (ig *Instagram) Insights(ctx context.Context, itemID string) (*Insights, error) {
	url := fmt.Sprintf("%s/%s/insights?metric=reach,likes,saved,comments&access_token=%s",
		ig.config.BaseURL, itemID, ig.config.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ig.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("graph API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var response struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	metric := func(name string) int {
		for _, d := range response.Data {
			if d.Name == name && len(d.Values) > 0 {
				return d.Values[0].Value
			}
		}
		return 0
	}

	return &Insights{
		Reach:    metric("reach"),
		Likes:    metric("likes"),
		Saves:    metric("saved"),
		Comments: metric("comments"),
	}, nil
}
