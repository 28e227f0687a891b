package models

// Publish outcomes recorded per platform token.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// PublishLogModel records one publish attempt against one platform
// token. Append-only.
type PublishLogModel struct {
	HardBase
	PostID   string `json:"post_id"  gorm:"index;not null"`
	Platform string `json:"platform" gorm:"not null"`
	Outcome  string `json:"outcome"  gorm:"not null"`
	// Raw holds the platform response (external post id) or the error text.
	Raw string `json:"raw" gorm:"type:text"`
}

func (PublishLogModel) TableName() string { return "publish_logs" }
