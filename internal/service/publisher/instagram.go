package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/models"
)

// InstagramConfig configures the Graph API reels publisher.
type InstagramConfig struct {
	AccessToken  string `yaml:"access_token"`
	AccountID    string `yaml:"account_id"`
	BaseURL      string `yaml:"base_url"`
	PollInterval string `yaml:"poll_interval"`
	PollDeadline string `yaml:"poll_deadline"`
}

// Instagram publishes reels through the Graph API three-step protocol:
// create a media container, poll it until processed, then publish it.
type Instagram struct {
	config       *InstagramConfig
	client       *http.Client
	logger       *zap.Logger
	pollInterval time.Duration
	pollDeadline time.Duration
}

func NewInstagram(cfg *InstagramConfig, logger *zap.Logger) *Instagram {
	pollInterval := 5 * time.Second
	if d, err := time.ParseDuration(cfg.PollInterval); err == nil && d > 0 {
		pollInterval = d
	}
	pollDeadline := 60 * time.Second
	if d, err := time.ParseDuration(cfg.PollDeadline); err == nil && d > 0 {
		pollDeadline = d
	}

	return &Instagram{
		config:       cfg,
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
		pollInterval: pollInterval,
		pollDeadline: pollDeadline,
	}
}

func (ig *Instagram) Publish(ctx context.Context, post *models.Post) (*PublishResult, error) {
	containerID, err := ig.createContainer(ctx, post)
	if err != nil {
		return nil, err
	}

	if err := ig.waitForContainer(ctx, containerID); err != nil {
		return nil, err
	}

	itemID, err := ig.publishContainer(ctx, containerID)
	if err != nil {
		return nil, err
	}

	ig.logger.Info("Reel published",
		zap.String("post_id", post.ID),
		zap.String("item_id", itemID))

	return &PublishResult{
		PublishedItemID: itemID,
		URL:             "https://instagram.com/p/" + itemID,
	}, nil
}

func (ig *Instagram) createContainer(ctx context.Context, post *models.Post) (string, error) {
	body := map[string]any{
		"media_type":   "REELS",
		"video_url":    post.VideoURL,
		"cover_url":    post.CoverURL,
		"caption":      post.FullCaption(),
		"access_token": ig.config.AccessToken,
	}

	var response struct {
		ID string `json:"id"`
	}
	url := fmt.Sprintf("%s/%s/media", ig.config.BaseURL, ig.config.AccountID)
	if err := ig.post(ctx, url, body, &response); err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	if response.ID == "" {
		return "", fmt.Errorf("create container: empty container id")
	}
	return response.ID, nil
}

func (ig *Instagram) waitForContainer(ctx context.Context, containerID string) error {
	deadline := time.Now().Add(ig.pollDeadline)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ig.pollInterval):
		}

		status, err := ig.containerStatus(ctx, containerID)
		if err != nil {
			return err
		}
		switch status {
		case "FINISHED":
			return nil
		case "ERROR":
			return fmt.Errorf("container %s processing failed", containerID)
		}
		// IN_PROGRESS or unknown, keep waiting
	}
	return fmt.Errorf("container %s not ready within %s", containerID, ig.pollDeadline)
}

func (ig *Instagram) containerStatus(ctx context.Context, containerID string) (string, error) {
	url := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s",
		ig.config.BaseURL, containerID, ig.config.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ig.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("graph API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var response struct {
		StatusCode string `json:"status_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return response.StatusCode, nil
}

func (ig *Instagram) publishContainer(ctx context.Context, containerID string) (string, error) {
	body := map[string]any{
		"creation_id":  containerID,
		"access_token": ig.config.AccessToken,
	}

	var response struct {
		ID string `json:"id"`
	}
	url := fmt.Sprintf("%s/%s/media_publish", ig.config.BaseURL, ig.config.AccountID)
	if err := ig.post(ctx, url, body, &response); err != nil {
		return "", fmt.Errorf("publish container: %w", err)
	}
	if response.ID == "" {
		return "", fmt.Errorf("publish container: empty item id")
	}
	return response.ID, nil
}

func (ig *Instagram) post(ctx context.Context, url string, body map[string]any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ig.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("graph API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
