// Package voice is the text-to-speech collaborator: it turns a voiceover
// script into audio bytes which the media store then turns into a ref the
// render engine can fetch.
package voice

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

// Synthesizer produces spoken audio for a script.
type Synthesizer interface {
	Synthesize(ctx context.Context, script string) ([]byte, error)
}

// Config configures the TTS API client.
type Config struct {
	APIKey  string `yaml:"api_key"`
	VoiceID string `yaml:"voice_id"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Client calls an ElevenLabs-style text-to-speech endpoint and returns the
// raw MPEG audio.
type Client struct {
	config *Config
	client *http.Client
	logger *zap.Logger
}

func NewClient(cfg *Config, logger *zap.Logger) *Client {
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

func (c *Client) Synthesize(ctx context.Context, script string) ([]byte, error) {
	model := c.config.Model
	if model == "" {
		model = "eleven_multilingual_v2"
	}

	body := map[string]any{
		"text":     script,
		"model_id": model,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.config.BaseURL, c.config.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("TTS API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio body: %w", err)
	}

	c.logger.Debug("Voiceover synthesized", zap.Int("bytes", len(audio)))
	return audio, nil
}
