// Package render is the video-render collaborator: submit a composition
// spec, get back an opaque job id, and later verify the completion webhook
// the engine posts against a shared secret.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Spec is everything the engine needs to compose one reel.
type Spec struct {
	AudioURL string
	ClipURLs []string
	Caption  string
	Subtitle string
}

// Result is the payload of the engine's completion callback.
type Result struct {
	JobID    string `json:"id"`
	Status   string `json:"status"`
	URL      string `json:"url"`
	CoverURL string `json:"snapshot_url"`
}

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Engine submits render jobs to the external compositor.
type Engine interface {
	Submit(ctx context.Context, spec Spec) (jobID string, err error)
}

// Config configures the render engine client.
type Config struct {
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`
	OutputWidth   int    `yaml:"output_width"`
	OutputHeight  int    `yaml:"output_height"`
}

// Client talks to a renders API: POST a composition source plus a webhook
// URL, receive a job id, and let the engine call back when done.
type Client struct {
	config *Config
	client *http.Client
	logger *zap.Logger
}

func NewClient(cfg *Config, logger *zap.Logger) *Client {
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (c *Client) Submit(ctx context.Context, spec Spec) (string, error) {
	width := c.config.OutputWidth
	if width == 0 {
		width = 1080
	}
	height := c.config.OutputHeight
	if height == 0 {
		height = 1920
	}

	elements := []map[string]any{}
	for _, clip := range spec.ClipURLs {
		elements = append(elements, map[string]any{
			"type":     "video",
			"track":    1,
			"source":   clip,
			"fit":      "cover",
			"duration": "auto",
		})
	}
	elements = append(elements,
		map[string]any{
			"type":     "audio",
			"id":       "voiceover",
			"source":   spec.AudioURL,
			"duration": "auto",
		},
		map[string]any{
			"type":              "text",
			"transcript_source": "voiceover",
			"transcript_effect": "highlight",
			"width":             "85%",
			"y":                 "62%",
			"fill_color":        "#FFFFFF",
			"text_align":        "center",
		},
	)

	body := map[string]any{
		"source": map[string]any{
			"output_format": "mp4",
			"width":         width,
			"height":        height,
			"elements":      elements,
		},
		"webhook_url": c.config.WebhookURL,
		"metadata":    spec.Subtitle,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/renders", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("render API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	// The renders endpoint returns an array with one entry per output.
	var renders []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&renders); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(renders) == 0 || renders[0].ID == "" {
		return "", fmt.Errorf("render API returned no job id")
	}

	c.logger.Info("Render job submitted", zap.String("job_id", renders[0].ID))
	return renders[0].ID, nil
}
