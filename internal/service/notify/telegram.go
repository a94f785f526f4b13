package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/pkg/util"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	BotToken      string `yaml:"bot_token"`
	ChatID        string `yaml:"chat_id"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"` // override for tests
}

// Telegram delivers notifications as bot messages with inline callback
// buttons. Button taps come back through the webhook as "action:post_id"
// callback data.
type Telegram struct {
	config *TelegramConfig
	client *http.Client
	logger *zap.Logger
}

func NewTelegram(cfg *TelegramConfig, logger *zap.Logger) *Telegram {
	return &Telegram{
		config: cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

func (t *Telegram) DraftReady(ctx context.Context, post *models.Post) error {
	text := strings.Join([]string{
		fmt.Sprintf("<b>%s</b> · day %d · week %d · draft %d", post.PostType, post.DayOfWeek, post.WeekNumber, post.RegenerationCount+1),
		"",
		post.Caption,
		"",
		fmt.Sprintf("<i>%s</i>", strings.Join(firstN(post.Hashtags, 5), " ")),
		"",
		"<b>Shot list:</b>",
		post.ShotList,
		"",
		"<b>Voiceover:</b>",
		post.VoiceoverScript,
		"",
		fmt.Sprintf("Score: <b>%d/10</b> · %s", post.EngagementScore, post.EngagementReason),
		fmt.Sprintf("Best time: %s · CTA: %s", post.BestTime, post.CTA),
	}, "\n")

	buttons := []inlineButton{
		{Text: "Approve", CallbackData: "approve:" + post.ID},
		{Text: "Regenerate", CallbackData: "regenerate:" + post.ID},
		{Text: "Skip", CallbackData: "skip:" + post.ID},
	}
	return t.sendMessage(ctx, text, buttons)
}

func (t *Telegram) PostApproved(ctx context.Context, post *models.Post) error {
	return t.sendMessage(ctx, fmt.Sprintf("Approved for day %d. Shoot the clips when ready.", post.DayOfWeek), nil)
}

func (t *Telegram) VideoRequested(ctx context.Context, post *models.Post) error {
	text := strings.Join([]string{
		"<b>Time to shoot today's clips</b>",
		"",
		post.ShotList,
	}, "\n")
	buttons := []inlineButton{
		{Text: "Clips uploaded, start render", CallbackData: "uploaded:" + post.ID},
		{Text: "Skip today", CallbackData: "skip:" + post.ID},
	}
	return t.sendMessage(ctx, text, buttons)
}

func (t *Telegram) ReviewReady(ctx context.Context, post *models.Post) error {
	text := strings.Join([]string{
		"<b>Video is ready</b>",
		"",
		"Review before it goes live:",
		post.VideoURL,
	}, "\n")
	buttons := []inlineButton{
		{Text: "Schedule tonight", CallbackData: "schedule:" + post.ID},
		{Text: "Publish now", CallbackData: "publish:" + post.ID},
		{Text: "Reject", CallbackData: "skip:" + post.ID},
	}
	return t.sendMessage(ctx, text, buttons)
}

func (t *Telegram) RenderFailed(ctx context.Context, post *models.Post) error {
	return t.sendMessage(ctx, fmt.Sprintf("Render failed for post %s. The post was marked failed.", post.ID), nil)
}

func (t *Telegram) Published(ctx context.Context, post *models.Post) error {
	return t.sendMessage(ctx, fmt.Sprintf("Published! Item id: %s", post.PublishedItemID), nil)
}

func (t *Telegram) Digest(ctx context.Context, text string) error {
	return t.sendMessage(ctx, text, nil)
}

// Bot API rejects messages longer than 4096 characters.
const telegramMessageLimit = 4096

func (t *Telegram) sendMessage(ctx context.Context, text string, buttons []inlineButton) error {
	body := map[string]any{
		"chat_id":    t.config.ChatID,
		"text":       util.Truncate(text, telegramMessageLimit),
		"parse_mode": "HTML",
	}
	if len(buttons) > 0 {
		body["reply_markup"] = map[string]any{
			"inline_keyboard": [][]inlineButton{buttons},
		}
	}
	return t.call(ctx, "sendMessage", body)
}

// AnswerCallback acknowledges a button tap so the client stops spinning.
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID string) error {
	return t.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
	})
}

// EditMessage replaces a previously sent message, used to confirm the
// outcome of a button tap in place.
func (t *Telegram) EditMessage(ctx context.Context, chatID int64, messageID int64, text string) error {
	return t.call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	})
}

func (t *Telegram) call(ctx context.Context, method string, body map[string]any) error {
	base := t.config.BaseURL
	if base == "" {
		base = telegramAPIBase
	}
	url := fmt.Sprintf("%s/bot%s/%s", base, t.config.BotToken, method)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
