package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/service/notify"
	"github.com/reelforge/reelforge/internal/service/publisher"
	"github.com/reelforge/reelforge/internal/store"
)

const reportWindow = 7 * 24 * time.Hour

// Reporter builds the weekly performance digest: engagement metrics for
// every post that went live in the last seven days, aggregated and sent
// through the notification channels. It reads platform metrics only and
// never touches post state.
type Reporter struct {
	store    store.Store
	insights publisher.InsightsFetcher
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewReporter(s store.Store, insights publisher.InsightsFetcher,
	notifier notify.Notifier, logger *zap.Logger) *Reporter {
	return &Reporter{
		store:    s,
		insights: insights,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WeeklyReport summarizes one report run.
type WeeklyReport struct {
	Posts          int     `json:"posts"`
	TotalReach     int     `json:"total_reach"`
	TotalLikes     int     `json:"total_likes"`
	TotalSaves     int     `json:"total_saves"`
	AvgEngagement  float64 `json:"avg_engagement"`
	TopItemID      string  `json:"top_item_id,omitempty"`
	TopReach       int     `json:"top_reach"`
	Recommendation string  `json:"recommendation"`
}

// Run collects metrics for last week's published posts and delivers the
// digest. A post whose metrics cannot be fetched is skipped, not fatal;
// the digest reflects whatever was collected.
func (r *Reporter) Run(ctx context.Context) (*WeeklyReport, error) {
	since := r.now().Add(-reportWindow)
	posts, err := r.store.ListPostedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	report := &WeeklyReport{Recommendation: recommendationFor("")}
	var topPost *models.Post

	for _, post := range posts {
		if post.PublishedItemID == "" {
			continue
		}
		metrics, err := r.insights.Insights(ctx, post.PublishedItemID)
		if err != nil {
			r.logger.Warn("Insights fetch failed",
				zap.String("post_id", post.ID),
				zap.String("item_id", post.PublishedItemID),
				zap.Error(err))
			continue
		}

		report.Posts++
		report.TotalReach += metrics.Reach
		report.TotalLikes += metrics.Likes
		report.TotalSaves += metrics.Saves
		if topPost == nil || metrics.Reach > report.TopReach {
			topPost = post
			report.TopItemID = post.PublishedItemID
			report.TopReach = metrics.Reach
		}
	}

	if report.Posts == 0 {
		r.deliver(ctx, "No posts were published in the last week.")
		return report, nil
	}

	if report.TotalReach > 0 {
		ratio := float64(report.TotalLikes+report.TotalSaves) / float64(report.TotalReach)
		report.AvgEngagement = math.Round(ratio*1000) / 10
	}
	report.Recommendation = recommendationFor(topPost.PostType)

	r.deliver(ctx, formatWeeklyReport(report))

	r.logger.Info("Weekly report delivered",
		zap.Int("posts", report.Posts),
		zap.Int("total_reach", report.TotalReach))
	return report, nil
}

func (r *Reporter) deliver(ctx context.Context, text string) {
	if err := r.notifier.Digest(ctx, text); err != nil {
		r.logger.Error("Weekly report delivery failed", zap.Error(err))
	}
}

func formatWeeklyReport(report *WeeklyReport) string {
	return strings.Join([]string{
		"*Weekly performance report*",
		"",
		"Top post: instagram.com/p/" + report.TopItemID,
		fmt.Sprintf("Reach: %d", report.TotalReach),
		fmt.Sprintf("Likes: %d", report.TotalLikes),
		fmt.Sprintf("Saves: %d", report.TotalSaves),
		fmt.Sprintf("Avg engagement: %.1f%%", report.AvgEngagement),
		"",
		report.Recommendation,
	}, "\n")
}

// recommendationFor keys the next-week advice off the content type of
// the best performing post.
func recommendationFor(postType models.PostType) string {
	switch postType {
	case models.TypeEducational:
		return "Educational content performs best. Lean into tips and how-tos next week."
	case models.TypeSocialProof:
		return "Social proof resonates. Share more client results."
	case models.TypeBehindTheScenes:
		return "Behind-the-scenes content lands. Show more of the process."
	default:
		return "Keep the current strategy."
	}
}
