package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/service/notify"
	"github.com/reelforge/reelforge/internal/service/render"
)

// handleRenderWebhook receives the render engine's completion callback.
// The signature is verified over the exact raw body before any lookup, so
// a forged callback never touches the store.
func (s *Server) handleRenderWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	signature := c.GetHeader(render.SignatureHeader)
	if !render.VerifySignature(s.Config.Render.WebhookSecret, body, signature) {
		s.Logger.Warn("Render webhook signature mismatch",
			zap.Int("body_bytes", len(body)))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var result render.Result
	if err := json.Unmarshal(body, &result); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if result.JobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing job id"})
		return
	}

	res, err := s.Correlator.Resolve(c.Request.Context(), result)
	if err != nil {
		s.Logger.Error("Failed to resolve render callback",
			zap.String("job_id", result.JobID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": res.Outcome})
}

// telegramUpdate is the subset of the Bot API update we act on.
type telegramUpdate struct {
	CallbackQuery *telegramCallback `json:"callback_query"`
}

type telegramCallback struct {
	ID      string           `json:"id"`
	Data    string           `json:"data"`
	Message *telegramMessage `json:"message"`
}

type telegramMessage struct {
	MessageID int64 `json:"message_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

// telegramTriggers maps button callback actions to pipeline triggers.
var telegramTriggers = map[string]pipeline.Trigger{
	"approve":    pipeline.TriggerApprove,
	"regenerate": pipeline.TriggerRegenerate,
	"skip":       pipeline.TriggerSkip,
	"uploaded":   pipeline.TriggerStartRender,
	"schedule":   pipeline.TriggerSchedule,
	"publish":    pipeline.TriggerPublish,
}

// handleTelegramWebhook handles bot updates. Only callback queries carry
// commands; everything else is acknowledged and dropped. Telegram retries
// on non-200, so command failures are logged and still acknowledged.
func (s *Server) handleTelegramWebhook(c *gin.Context) {
	if secret := s.Config.Telegram.WebhookSecret; secret != "" && c.Query("secret") != secret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var update telegramUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if update.CallbackQuery == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	cq := update.CallbackQuery
	action, postID, found := strings.Cut(cq.Data, ":")
	trigger, known := telegramTriggers[action]
	if !found || !known || postID == "" {
		s.Logger.Warn("Unrecognized callback data", zap.String("data", cq.Data))
		s.ackTelegram(c, cq.ID, cq.Message, "Unrecognized action.")
		return
	}

	res, err := s.Pipeline.Apply(c.Request.Context(), pipeline.Command{
		Trigger: trigger,
		PostID:  postID,
	})
	if err != nil {
		s.Logger.Error("Telegram command failed",
			zap.String("trigger", string(trigger)),
			zap.String("post_id", postID),
			zap.Error(err))
		s.ackTelegram(c, cq.ID, cq.Message, "Something went wrong, try again.")
		return
	}

	s.ackTelegram(c, cq.ID, cq.Message, outcomeText(trigger, res))
}

func (s *Server) ackTelegram(c *gin.Context, callbackID string, msg *telegramMessage, text string) {
	ctx := c.Request.Context()
	if err := s.Telegram.AnswerCallback(ctx, callbackID); err != nil {
		s.Logger.Warn("Failed to answer callback", zap.Error(err))
	}
	if msg != nil {
		if err := s.Telegram.EditMessage(ctx, msg.Chat.ID, msg.MessageID, text); err != nil {
			s.Logger.Warn("Failed to edit message", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func outcomeText(trigger pipeline.Trigger, res *pipeline.Result) string {
	switch res.Outcome {
	case pipeline.OutcomeUnknownTarget:
		return "That post no longer exists."
	case pipeline.OutcomeNoOp:
		if res.Post != nil {
			return fmt.Sprintf("Already handled (status: %s).", res.Post.Status)
		}
		return "Already handled."
	}

	switch trigger {
	case pipeline.TriggerApprove:
		return "Approved. Other drafts for the day were retired."
	case pipeline.TriggerRegenerate:
		return "Regenerated, new draft incoming."
	case pipeline.TriggerSkip:
		return "Skipped."
	case pipeline.TriggerStartRender:
		return "Render started, you'll get the result here."
	case pipeline.TriggerSchedule:
		return fmt.Sprintf("Scheduled for %s.", res.Post.ScheduledFor.Format("15:04 MST"))
	case pipeline.TriggerPublish:
		return "Published!"
	default:
		return "Done."
	}
}

// whatsappCommands maps quick-reply button payloads to commands. The
// inbound payload carries no post id, so each command names the statuses
// that identify today's target.
var whatsappCommands = map[string]pipeline.Command{
	notify.ButtonStartRender: {
		Trigger:      pipeline.TriggerStartRender,
		FindStatuses: []models.PostStatus{models.StatusWaitingVideo, models.StatusApproved},
	},
	notify.ButtonSkipToday: {
		Trigger:      pipeline.TriggerSkip,
		FindStatuses: []models.PostStatus{models.StatusWaitingVideo, models.StatusApproved, models.StatusPendingReview},
	},
	notify.ButtonSchedule: {
		Trigger:      pipeline.TriggerSchedule,
		FindStatuses: []models.PostStatus{models.StatusReadyForReview},
	},
	notify.ButtonReject: {
		Trigger:      pipeline.TriggerSkip,
		FindStatuses: []models.PostStatus{models.StatusReadyForReview},
	},
}

// handleWhatsAppWebhook handles inbound Twilio messages. Always replies
// 200 with TwiML; a non-200 would make Twilio redeliver and the commands
// are already safe under replay anyway.
func (s *Server) handleWhatsAppWebhook(c *gin.Context) {
	payload := c.PostForm("ButtonPayload")
	if payload == "" {
		payload = strings.TrimSpace(strings.ToLower(c.PostForm("Body")))
	}

	cmd, ok := whatsappCommands[payload]
	if !ok {
		s.replyTwiML(c, "Unrecognized reply. Use the buttons on the last message.")
		return
	}

	res, err := s.Pipeline.Apply(c.Request.Context(), cmd)
	if err != nil {
		s.Logger.Error("WhatsApp command failed",
			zap.String("payload", payload),
			zap.Error(err))
		s.replyTwiML(c, "Something went wrong, try again.")
		return
	}

	s.replyTwiML(c, outcomeText(cmd.Trigger, res))
}

func (s *Server) replyTwiML(c *gin.Context, message string) {
	twiml := fmt.Sprintf(
		"<?xml version=\"1.0\" encoding=\"UTF-8\"?><Response><Message>%s</Message></Response>",
		message)
	c.Data(http.StatusOK, "text/xml", []byte(twiml))
}

// whatsappActions limits what the GET deep links may do. Links land in a
// plain browser tab, so only review-stage actions are exposed this way.
var whatsappActions = map[string]pipeline.Trigger{
	"approve":    pipeline.TriggerApprove,
	"regenerate": pipeline.TriggerRegenerate,
	"skip":       pipeline.TriggerSkip,
}

// handleWhatsAppAction handles deep links from message bodies. Responds
// with a small HTML page so the tap has visible feedback.
func (s *Server) handleWhatsAppAction(c *gin.Context) {
	action := c.Query("action")
	postID := c.Query("id")

	trigger, ok := whatsappActions[action]
	if !ok || postID == "" {
		c.Data(http.StatusBadRequest, "text/html; charset=utf-8",
			[]byte(actionPage("Bad link", "This action link is malformed or expired.")))
		return
	}

	res, err := s.Pipeline.Apply(c.Request.Context(), pipeline.Command{
		Trigger: trigger,
		PostID:  postID,
	})
	if err != nil {
		s.Logger.Error("WhatsApp action failed",
			zap.String("action", action),
			zap.String("post_id", postID),
			zap.Error(err))
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8",
			[]byte(actionPage("Error", "Something went wrong, try again.")))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8",
		[]byte(actionPage("Done", outcomeText(trigger, res))))
}

func actionPage(title, body string) string {
	return fmt.Sprintf(
		"<!DOCTYPE html><html><head><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"><title>%s</title></head>"+
			"<body style=\"font-family: sans-serif; padding: 2em; text-align: center\"><h2>%s</h2><p>%s</p>"+
			"<p>You can close this tab.</p></body></html>",
		title, title, body)
}
