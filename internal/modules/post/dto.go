package post

import "time"

// CreatePostDTO creates a content item under a client. Only the listed
// fields are recognized; anything else in the request body is dropped.
type CreatePostDTO struct {
	Topic               string     `json:"topic" binding:"required"`
	Caption             string     `json:"caption"`
	MediaURLs           []string   `json:"media_urls"`
	Platforms           []string   `json:"platforms"`
	ScheduledAt         *time.Time `json:"scheduled_at"`
	ImageSize           string     `json:"image_size"`
	PostType            string     `json:"post_type"`
	ToneOfVoice         string     `json:"tone_of_voice"`
	BriefNotes          string     `json:"brief_notes"`
	Priority            string     `json:"priority"`
	DesignReferenceURLs []string   `json:"design_reference_urls"`
	DesignerID          *string    `json:"designer_id"`
	MotionID            *string    `json:"motion_id"`
	WriterID            *string    `json:"writer_id"`
	SchedulerID         *string    `json:"scheduler_id"`
	ManagerID           *string    `json:"manager_id"`
	WorkflowState       string     `json:"workflow_state"`
}

// UpdatePostDTO updates editable columns. Nil means "leave unchanged".
type UpdatePostDTO struct {
	Topic               *string    `json:"topic"`
	Caption             *string    `json:"caption"`
	MediaURLs           *[]string  `json:"media_urls"`
	Platforms           *[]string  `json:"platforms"`
	ScheduledAt         *time.Time `json:"scheduled_at"`
	ImageSize           *string    `json:"image_size"`
	PostType            *string    `json:"post_type"`
	ToneOfVoice         *string    `json:"tone_of_voice"`
	BriefNotes          *string    `json:"brief_notes"`
	Priority            *string    `json:"priority"`
	DesignReferenceURLs *[]string  `json:"design_reference_urls"`
	DesignerID          *string    `json:"designer_id"`
	MotionID            *string    `json:"motion_id"`
	WriterID            *string    `json:"writer_id"`
	SchedulerID         *string    `json:"scheduler_id"`
	ManagerID           *string    `json:"manager_id"`
}

// RescheduleDTO moves a post's publish time (calendar drag-and-drop).
type RescheduleDTO struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

// CommentDTO adds a discussion entry to a post.
type CommentDTO struct {
	Content     string   `json:"content" binding:"required"`
	CommentType string   `json:"comment_type"`
	Attachments []string `json:"attachments"`
}

// UploadDesignDTO records design output files, optionally submitting
// the post for review in the same call.
type UploadDesignDTO struct {
	URLs            []string `json:"urls" binding:"required,min=1"`
	SubmitForReview bool     `json:"submit_for_review"`
}

// UploadReferenceDTO appends reference material for the designer.
type UploadReferenceDTO struct {
	URLs []string `json:"urls" binding:"required,min=1"`
}

// BulkItemDTO is one entry of a bulk-schedule request.
type BulkItemDTO struct {
	ClientID    string     `json:"client_id" binding:"required"`
	Topic       string     `json:"topic"     binding:"required"`
	Caption     string     `json:"caption"`
	MediaURLs   []string   `json:"media_urls"`
	Platforms   []string   `json:"platforms"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	ImageSize   string     `json:"image_size"`
	PostType    string     `json:"post_type"`
}

// BulkDTO schedules many posts at once.
type BulkDTO struct {
	Posts []BulkItemDTO `json:"posts" binding:"required,min=1"`
}
