package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/pkg/util"
)

const twilioAPIBase = "https://api.twilio.com"

// Twilio caps WhatsApp message bodies at 1600 characters.
const whatsappMessageLimit = 1600

// WhatsAppConfig configures the Twilio WhatsApp channel.
type WhatsAppConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"` // e.g. +14155238886
	To         string `yaml:"to"`
	ActionBase string `yaml:"action_base"` // public base URL for deep-link actions
	BaseURL    string `yaml:"base_url"`    // override for tests
}

// WhatsApp delivers notifications through the Twilio Messages API. The
// channel has no structured callback buttons; affordances are deep links
// into the action endpoint plus quick-reply persistent actions whose
// payload comes back on the inbound webhook.
type WhatsApp struct {
	config *WhatsAppConfig
	client *http.Client
	logger *zap.Logger
}

func NewWhatsApp(cfg *WhatsAppConfig, logger *zap.Logger) *WhatsApp {
	return &WhatsApp{
		config: cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Quick-reply payload tokens. The inbound webhook maps these back into
// pipeline triggers; keep them stable.
const (
	ButtonStartRender = "start_render"
	ButtonSkipToday   = "skip_today"
	ButtonSchedule    = "schedule_publish"
	ButtonReject      = "reject"
)

func (w *WhatsApp) DraftReady(ctx context.Context, post *models.Post) error {
	words := len(strings.Fields(post.Caption))
	body := strings.Join([]string{
		fmt.Sprintf("*%s* · day %d · week %d", post.PostType, post.DayOfWeek, post.WeekNumber),
		fmt.Sprintf("%d words · score %d/10", words, post.EngagementScore),
		"",
		post.Caption,
		"",
		fmt.Sprintf("%s · %s", post.BestTime, post.CTA),
		"",
		"Approve → " + w.actionLink("approve", post.ID),
		"Regenerate → " + w.actionLink("regenerate", post.ID),
		"Skip → " + w.actionLink("skip", post.ID),
	}, "\n")
	return w.send(ctx, body, nil)
}

func (w *WhatsApp) PostApproved(ctx context.Context, post *models.Post) error {
	body := strings.Join([]string{
		"*Approved post for today*",
		"",
		"Caption:",
		post.Caption,
		"",
		"Voiceover:",
		post.VoiceoverScript,
	}, "\n")
	return w.send(ctx, body, nil)
}

func (w *WhatsApp) VideoRequested(ctx context.Context, post *models.Post) error {
	body := strings.Join([]string{
		"*Time to shoot today's clips*",
		"",
		post.ShotList,
		"",
		"Tap when the clips are uploaded.",
	}, "\n")
	actions := []string{
		"reply:" + ButtonStartRender,
		"reply:" + ButtonSkipToday,
	}
	return w.send(ctx, body, actions)
}

func (w *WhatsApp) ReviewReady(ctx context.Context, post *models.Post) error {
	body := strings.Join([]string{
		"*Video is ready!*",
		"",
		"Review before publishing:",
		post.VideoURL,
	}, "\n")
	actions := []string{
		"reply:" + ButtonSchedule,
		"reply:" + ButtonReject,
	}
	return w.send(ctx, body, actions)
}

func (w *WhatsApp) RenderFailed(ctx context.Context, post *models.Post) error {
	return w.send(ctx, fmt.Sprintf("Render failed for post %s.", post.ID), nil)
}

func (w *WhatsApp) Published(ctx context.Context, post *models.Post) error {
	return w.send(ctx, "Published!\n\nItem id: "+post.PublishedItemID, nil)
}

func (w *WhatsApp) Digest(ctx context.Context, text string) error {
	return w.send(ctx, text, nil)
}

func (w *WhatsApp) actionLink(action, postID string) string {
	return fmt.Sprintf("%s/api/v1/whatsapp/action?action=%s&id=%s", w.config.ActionBase, action, postID)
}

func (w *WhatsApp) send(ctx context.Context, body string, persistentActions []string) error {
	base := w.config.BaseURL
	if base == "" {
		base = twilioAPIBase
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", base, w.config.AccountSID)

	params := url.Values{}
	params.Set("From", "whatsapp:"+w.config.From)
	params.Set("To", "whatsapp:"+w.config.To)
	params.Set("Body", util.Truncate(body, whatsappMessageLimit))
	for i, action := range persistentActions {
		params.Set(fmt.Sprintf("PersistentAction[%d]", i), action)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", w.basicAuth())

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twilio API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (w *WhatsApp) basicAuth() string {
	creds := w.config.AccountSID + ":" + w.config.AuthToken
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}
