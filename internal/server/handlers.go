package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/store"
)

// handleCronDaily generates the day's draft variants. Invoked once a day;
// a retried invocation generates extra variants for the same slot, which
// the approval flow retires like any other sibling.
func (s *Server) handleCronDaily(c *gin.Context) {
	posts, err := s.Producer.ProduceDaily(c.Request.Context())
	if err != nil {
		s.Logger.Error("Daily production failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if posts == nil {
		c.JSON(http.StatusOK, gin.H{"generated": 0, "message": "rest day"})
		return
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	c.JSON(http.StatusOK, gin.H{"generated": len(posts), "post_ids": ids})
}

// handleCronReminder nudges about an approved post still missing clips.
func (s *Server) handleCronReminder(c *gin.Context) {
	post, err := s.Producer.RemindApproved(c.Request.Context())
	if err != nil {
		s.Logger.Error("Reminder failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if post == nil {
		c.JSON(http.StatusOK, gin.H{"reminded": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminded": true, "post_id": post.ID})
}

// handleCronVideoReminder moves today's approved post to waiting_for_video
// and sends the shot list.
func (s *Server) handleCronVideoReminder(c *gin.Context) {
	res, err := s.Producer.RequestVideo(c.Request.Context())
	if err != nil {
		s.Logger.Error("Video reminder failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": res.Outcome})
}

// handleCronPublish sweeps scheduled posts whose time has come.
func (s *Server) handleCronPublish(c *gin.Context) {
	published, err := s.Sweeper.Sweep(c.Request.Context(), time.Now().UTC())
	if err != nil {
		s.Logger.Error("Publish sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "published": published})
		return
	}
	c.JSON(http.StatusOK, gin.H{"published": published})
}

// handleCronWeeklyReport aggregates last week's engagement metrics and
// sends the digest to the chat channels.
func (s *Server) handleCronWeeklyReport(c *gin.Context) {
	report, err := s.Reporter.Run(c.Request.Context())
	if err != nil {
		s.Logger.Error("Weekly report failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListPosts(c *gin.Context) {
	posts, err := s.Store.List(c.Request.Context())
	if err != nil {
		s.Logger.Error("Failed to list posts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}

func (s *Server) handleGetPost(c *gin.Context) {
	post, err := s.Store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	if err != nil {
		s.Logger.Error("Failed to get post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, post)
}

// handleAttachClips records uploaded clip refs on a post awaiting video.
func (s *Server) handleAttachClips(c *gin.Context) {
	var req struct {
		Clips []string `json:"clips" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := s.Pipeline.AttachClips(c.Request.Context(), c.Param("id"), req.Clips)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) handleStartRender(c *gin.Context) {
	s.applyCommand(c, pipeline.Command{
		Trigger: pipeline.TriggerStartRender,
		PostID:  c.Param("id"),
	})
}

func (s *Server) handleSchedule(c *gin.Context) {
	var req struct {
		When *time.Time `json:"when"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := pipeline.Command{
		Trigger: pipeline.TriggerSchedule,
		PostID:  c.Param("id"),
	}
	if req.When != nil {
		cmd.When = *req.When
	}
	s.applyCommand(c, cmd)
}

func (s *Server) handleCancelSchedule(c *gin.Context) {
	s.applyCommand(c, pipeline.Command{
		Trigger: pipeline.TriggerCancelSchedule,
		PostID:  c.Param("id"),
	})
}

func (s *Server) handlePublishNow(c *gin.Context) {
	s.applyCommand(c, pipeline.Command{
		Trigger: pipeline.TriggerPublish,
		PostID:  c.Param("id"),
	})
}

// applyCommand runs one operator command and maps the outcome to a status
// code: applied and noop are 200, an unknown target is 404.
func (s *Server) applyCommand(c *gin.Context, cmd pipeline.Command) {
	res, err := s.Pipeline.Apply(c.Request.Context(), cmd)
	if err != nil {
		s.Logger.Error("Operator command failed",
			zap.String("trigger", string(cmd.Trigger)),
			zap.String("post_id", cmd.PostID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if res.Outcome == pipeline.OutcomeUnknownTarget {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": res.Outcome, "post": res.Post})
}
