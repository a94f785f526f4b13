package generator

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

// Config configures the content-model API client.
type Config struct {
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIVersion string `yaml:"api_version"`
	MaxTokens  int    `yaml:"max_tokens"`
}

// Client calls a messages-style completion API and extracts a structured
// draft payload via a tool schema, so the model cannot return free text.
type Client struct {
	config *Config
	client *http.Client
	logger *zap.Logger
}

func NewClient(cfg *Config, logger *zap.Logger) *Client {
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: 90 * time.Second},
		logger: logger,
	}
}

const systemPrompt = `You are a short-form video content strategist. You write Instagram reel drafts that sound like a real founder, not a marketing department. engagement_score is always an integer from 1 to 10. Always respond through the create_post tool.`

var goalByType = map[models.PostType]string{
	models.TypeEducational:     "Build authority. Teach something genuinely useful. List or did-you-know format, max 5 points.",
	models.TypeSocialProof:     "Build trust via results. Mini case study or result snapshot, lead with the result.",
	models.TypeBehindTheScenes: "Humanize the brand. Personal story or day-in-the-life snippet, first person.",
	models.TypeProblemSolution: "Hit a pain point, agitate, then reveal the solution.",
	models.TypePromotional:     "Drive direct action. Clear offer plus specific CTA, no fluff.",
	models.TypeInspirational:   "Broad reach, shares and saves. Short punchy thought, grounded not guru.",
	models.TypeTipsTricks:      "Maximum saves. Numbered list of 3-5 actionable tips, pure value.",
}

var postTool = map[string]any{
	"name":        "create_post",
	"description": "Create a structured video post draft with all required fields",
	"input_schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"caption":           map[string]any{"type": "string", "description": "Caption, 80-150 words. Hook in first line, CTA before hashtags, hashtags only at the end."},
			"hashtags":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "20 hashtags total"},
			"voiceover_script":  map[string]any{"type": "string", "description": "Exact spoken words. Natural first-person speech, no emoji, no hashtags, 30-40 seconds at 130 words/min."},
			"shot_list":         map[string]any{"type": "string", "description": "First line states voiceover length, then one shot per line: prop/location, exact action, duration in seconds. Achievable alone with a phone."},
			"engagement_score":  map[string]any{"type": "number", "description": "Integer from 1 to 10 only"},
			"engagement_reason": map[string]any{"type": "string", "description": "One sentence explaining the score"},
			"best_time":         map[string]any{"type": "string", "description": "Best posting time, e.g. \"Monday 18:00\""},
			"cta":               map[string]any{"type": "string", "description": "Call-to-action text"},
		},
		"required": []string{"caption", "hashtags", "voiceover_script", "shot_list", "engagement_score", "engagement_reason", "best_time", "cta"},
	},
}

func (c *Client) Generate(ctx context.Context, postType models.PostType, dayOfWeek, weekNumber int) (models.Payload, error) {
	prompt := fmt.Sprintf(
		"Write a %s reel draft for day %d of week %d.\nGoal: %s\nReturn every field through the create_post tool.",
		postType, dayOfWeek, weekNumber, goalByType[postType])
	return c.complete(ctx, prompt)
}

func (c *Client) Regenerate(ctx context.Context, post *models.Post) (models.Payload, error) {
	prompt := fmt.Sprintf(
		"Write a completely new %s reel draft for day %d of week %d. "+
			"The previous attempt was rejected; take a different angle and do not reuse its hook.\n\nPrevious caption:\n%s",
		post.PostType, post.DayOfWeek, post.WeekNumber, post.Caption)
	return c.complete(ctx, prompt)
}

type messagesRequest struct {
	Model      string           `json:"model"`
	MaxTokens  int              `json:"max_tokens"`
	System     string           `json:"system"`
	Messages   []map[string]any `json:"messages"`
	Tools      []map[string]any `json:"tools"`
	ToolChoice map[string]any   `json:"tool_choice"`
}

type messagesResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
}

func (c *Client) complete(ctx context.Context, prompt string) (models.Payload, error) {
	maxTokens := c.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	reqBody := messagesRequest{
		Model:     c.config.Model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []map[string]any{
			{"role": "user", "content": prompt},
		},
		Tools:      []map[string]any{postTool},
		ToolChoice: map[string]any{"type": "tool", "name": "create_post"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return models.Payload{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return models.Payload{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", c.config.APIVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Payload{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return models.Payload{}, fmt.Errorf("content API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return models.Payload{}, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, block := range response.Content {
		if block.Type != "tool_use" || block.Name != "create_post" {
			continue
		}
		var payload models.Payload
		if err := json.Unmarshal(block.Input, &payload); err != nil {
			return models.Payload{}, fmt.Errorf("failed to decode draft payload: %w", err)
		}
		if payload.EngagementScore < 1 {
			payload.EngagementScore = 1
		}
		if payload.EngagementScore > 10 {
			payload.EngagementScore = 10
		}
		return payload, nil
	}

	return models.Payload{}, fmt.Errorf("content API response contained no create_post tool call")
}
