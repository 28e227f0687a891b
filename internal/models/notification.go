package models

// Notification types emitted by workflow transitions and task updates.
const (
	NotifyDesignRequest  = "design_request"
	NotifyDesignReturned = "design_returned"
	NotifyDesignReview   = "design_review"
	NotifyPostApproved   = "post_approved"
	NotifyPostScheduled  = "post_scheduled"
	NotifyPostRejected   = "post_rejected"
	NotifyTaskAssigned   = "task_assigned"
	NotifyPublishFailed  = "publish_failed"
)

// NotificationModel is an in-app notification for one user.
type NotificationModel struct {
	Base
	UserID  string `json:"user_id" gorm:"index;not null"`
	Type    string `json:"type"    gorm:"index"`
	Title   string `json:"title"`
	Message string `json:"message" gorm:"type:text"`
	// RefType/RefID point at the post or task this notification concerns.
	RefType string `json:"ref_type"`
	RefID   string `json:"ref_id" gorm:"index"`
	Read    bool   `json:"read"   gorm:"index;default:false"`
}

func (NotificationModel) TableName() string { return "notifications" }
