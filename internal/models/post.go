package models

import "time"

// Workflow states a post moves through from idea to published.
const (
	StateDraft        = "draft"
	StateInDesign     = "in_design"
	StateDesignReview = "design_review"
	StateApproved     = "approved"
	StateScheduled    = "scheduled"
	StatePosted       = "posted"
)

// Publish states written by the dispatcher only.
const (
	PublishPending = "pending"
	PublishPosted  = "posted"
	PublishFailed  = "failed"
)

// Post content kinds.
const (
	PostTypePost  = "post"
	PostTypeStory = "story"
	PostTypeReel  = "reel"
	PostTypeVideo = "video"
)

// PostModel is a content item for a client. Platforms entries may carry
// a `_story` or `_reel` suffix ("instagram_story") which selects the
// publish format without changing the destination platform.
type PostModel struct {
	Base
	ClientID string       `json:"client_id" gorm:"index;not null"`
	Client   *ClientModel `json:"client,omitempty" gorm:"foreignKey:ClientID"`

	Topic     string      `json:"topic"    gorm:"not null"`
	Caption   string      `json:"caption"  gorm:"type:longtext"`
	PostType  string      `json:"post_type" gorm:"default:post"`
	MediaURLs StringArray `json:"media_urls" gorm:"type:longtext"`
	Platforms StringArray `json:"platforms"  gorm:"type:longtext"`

	ImageSize   string `json:"image_size"`
	ToneOfVoice string `json:"tone_of_voice"`
	BriefNotes  string `json:"brief_notes" gorm:"type:longtext"`
	Priority    string `json:"priority"    gorm:"default:normal"`

	DesignReferenceURLs StringArray `json:"design_reference_urls" gorm:"type:longtext"`
	DesignOutputURLs    StringArray `json:"design_output_urls"    gorm:"type:longtext"`

	WorkflowState string     `json:"workflow_state" gorm:"index;default:draft"`
	PublishState  string     `json:"publish_state"  gorm:"index;default:pending"`
	ScheduledAt   *time.Time `json:"scheduled_at"   gorm:"index"`

	DesignerID  *string `json:"designer_id"  gorm:"index"`
	MotionID    *string `json:"motion_id"    gorm:"index"`
	WriterID    *string `json:"writer_id"    gorm:"index"`
	SchedulerID *string `json:"scheduler_id" gorm:"index"`
	ManagerID   *string `json:"manager_id"   gorm:"index"`

	CreatedByID  string     `json:"created_by_id" gorm:"index"`
	ApprovedByID *string    `json:"approved_by_id"`
	ApprovedAt   *time.Time `json:"approved_at"`

	RevisionCount int `json:"revision_count" gorm:"default:0"`
}

func (PostModel) TableName() string { return "posts" }

// AllWorkflowStates lists every recognized workflow state.
func AllWorkflowStates() []string {
	return []string{StateDraft, StateInDesign, StateDesignReview, StateApproved, StateScheduled, StatePosted}
}

// IsWorkflowState reports whether s names a recognized workflow state.
func IsWorkflowState(s string) bool {
	switch s {
	case StateDraft, StateInDesign, StateDesignReview, StateApproved, StateScheduled, StatePosted:
		return true
	}
	return false
}
