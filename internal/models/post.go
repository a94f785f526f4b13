package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge/pkg/util"
)

// StringArray represents a PostgreSQL text[] type
type StringArray []string

// Scan implements the sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		// Handle PostgreSQL array format: {value1,value2,value3}
		if v == "{}" || v == "" {
			*s = StringArray{}
			return nil
		}

		trimmed := strings.Trim(v, "{}")
		if trimmed == "" {
			*s = StringArray{}
			return nil
		}

		parts := strings.Split(trimmed, ",")
		result := make([]string, len(parts))
		for i, part := range parts {
			result[i] = strings.Trim(strings.TrimSpace(part), "\"")
		}
		*s = result
		return nil
	case []byte:
		// Try to parse as JSON first
		var arr []string
		if err := json.Unmarshal(v, &arr); err == nil {
			*s = arr
			return nil
		}
		return s.Scan(string(v))
	default:
		return errors.New(fmt.Sprintf("cannot scan %T into StringArray", value))
	}
}

// Value implements the driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}

	quoted := make([]string, len(s))
	for i, v := range s {
		escaped := strings.ReplaceAll(v, "\"", "\\\"")
		quoted[i] = fmt.Sprintf("\"%s\"", escaped)
	}

	return fmt.Sprintf("{%s}", strings.Join(quoted, ",")), nil
}

// PostStatus is the workflow state of a Post. Transitions happen only
// through the pipeline transition table, never by direct field writes.
type PostStatus string

const (
	StatusPendingReview  PostStatus = "pending_review"
	StatusApproved       PostStatus = "approved"
	StatusWaitingVideo   PostStatus = "waiting_for_video"
	StatusRendering      PostStatus = "rendering"
	StatusReadyForReview PostStatus = "ready_for_review"
	StatusScheduled      PostStatus = "scheduled"
	StatusPosted         PostStatus = "posted"
	StatusFailed         PostStatus = "failed"
)

// IsTerminal reports whether a Post in this status can never transition again.
func (s PostStatus) IsTerminal() bool {
	return s == StatusPosted || s == StatusFailed
}

// IsActive reports whether the Post holds its sibling slot (approved or
// later, excluding failed). At most one Post per (day, week) slot may be
// active at a time.
func (s PostStatus) IsActive() bool {
	switch s {
	case StatusApproved, StatusWaitingVideo, StatusRendering,
		StatusReadyForReview, StatusScheduled, StatusPosted:
		return true
	}
	return false
}

// PostType classifies the content angle of a draft. One type is produced
// per weekday on a rotating schedule.
type PostType string

const (
	TypeEducational     PostType = "educational"
	TypeSocialProof     PostType = "social_proof"
	TypeBehindTheScenes PostType = "behind_the_scenes"
	TypeProblemSolution PostType = "problem_solution"
	TypePromotional     PostType = "promotional"
	TypeInspirational   PostType = "inspirational"
	TypeTipsTricks      PostType = "tips_tricks"
)

// WeeklySchedule maps time.Weekday values to the post type produced that day.
var WeeklySchedule = map[int]PostType{
	0: TypeTipsTricks,
	1: TypeEducational,
	2: TypeSocialProof,
	3: TypeBehindTheScenes,
	4: TypeProblemSolution,
	5: TypePromotional,
	6: TypeInspirational,
}

// Payload holds the generated content of a Post. A regeneration replaces
// the whole payload at once together with the regeneration counter.
type Payload struct {
	Caption          string      `json:"caption"`
	Hashtags         StringArray `json:"hashtags"`
	VoiceoverScript  string      `json:"voiceover_script"`
	ShotList         string      `json:"shot_list"`
	EngagementScore  int         `json:"engagement_score"`
	EngagementReason string      `json:"engagement_reason"`
	BestTime         string      `json:"best_time"`
	CTA              string      `json:"cta"`
}

type Post struct {
	ID         string   `gorm:"primaryKey;size:64" json:"id"`
	PostType   PostType `gorm:"size:50;not null" json:"post_type"`
	DayOfWeek  int      `gorm:"not null;index:idx_posts_slot" json:"day_of_week"`
	WeekNumber int      `gorm:"not null;index:idx_posts_slot" json:"week_number"`

	Caption          string      `gorm:"type:text" json:"caption"`
	Hashtags         StringArray `gorm:"type:text[]" json:"hashtags"`
	VoiceoverScript  string      `gorm:"type:text" json:"voiceover_script"`
	ShotList         string      `gorm:"type:text" json:"shot_list"`
	EngagementScore  int         `gorm:"default:0" json:"engagement_score"`
	EngagementReason string      `gorm:"type:text" json:"engagement_reason"`
	BestTime         string      `gorm:"size:100" json:"best_time"`
	CTA              string      `gorm:"size:500" json:"cta"`

	Status            PostStatus `gorm:"size:50;not null;index" json:"status"`
	GeneratedAt       time.Time  `gorm:"not null" json:"generated_at"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	VideoUploadedAt   *time.Time `json:"video_uploaded_at,omitempty"`
	RenderStartedAt   *time.Time `json:"render_started_at,omitempty"`
	RenderCompletedAt *time.Time `json:"render_completed_at,omitempty"`
	PostedAt          *time.Time `json:"posted_at,omitempty"`

	RegenerationCount int         `gorm:"default:0" json:"regeneration_count"`
	RenderJobID       *string     `gorm:"uniqueIndex;size:255" json:"render_job_id,omitempty"`
	VideoURL          string      `gorm:"size:1000" json:"video_url,omitempty"`
	CoverURL          string      `gorm:"size:1000" json:"cover_url,omitempty"`
	PublishedItemID   string      `gorm:"size:255" json:"published_item_id,omitempty"`
	ScheduledFor      *time.Time  `gorm:"index" json:"scheduled_for,omitempty"`
	VideoClips        StringArray `gorm:"type:text[]" json:"video_clips"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewPost builds a fresh draft at pending_review for the given slot.
func NewPost(postType PostType, dayOfWeek, weekNumber int, payload Payload) *Post {
	return &Post{
		ID:         uuid.NewString(),
		PostType:   postType,
		DayOfWeek:  dayOfWeek,
		WeekNumber: weekNumber,

		Caption:          payload.Caption,
		Hashtags:         payload.Hashtags,
		VoiceoverScript:  payload.VoiceoverScript,
		ShotList:         payload.ShotList,
		EngagementScore:  payload.EngagementScore,
		EngagementReason: payload.EngagementReason,
		BestTime:         payload.BestTime,
		CTA:              payload.CTA,

		Status:      StatusPendingReview,
		GeneratedAt: time.Now().UTC(),
	}
}

// ReplacePayload swaps the whole content payload and bumps the regeneration
// counter. Workflow fields are untouched.
func (p *Post) ReplacePayload(payload Payload) {
	p.Caption = payload.Caption
	p.Hashtags = payload.Hashtags
	p.VoiceoverScript = payload.VoiceoverScript
	p.ShotList = payload.ShotList
	p.EngagementScore = payload.EngagementScore
	p.EngagementReason = payload.EngagementReason
	p.BestTime = payload.BestTime
	p.CTA = payload.CTA
	p.RegenerationCount++
}

// FullCaption is the publish-ready caption with hashtags appended.
func (p *Post) FullCaption() string {
	tags := util.NormalizeHashtags(p.Hashtags)
	if len(tags) == 0 {
		return p.Caption
	}
	return p.Caption + "\n\n" + strings.Join(tags, " ")
}
