package models

// WorkflowHistoryModel is the append-only audit trail of workflow
// transitions. Rows are removed only when their post is deleted.
type WorkflowHistoryModel struct {
	HardBase
	PostID    string `json:"post_id"    gorm:"index;not null"`
	ActorID   string `json:"actor_id"   gorm:"index"`
	FromState string `json:"from_state" gorm:"not null"`
	ToState   string `json:"to_state"   gorm:"not null"`
	Comment   string `json:"comment"    gorm:"type:text"`
}

func (WorkflowHistoryModel) TableName() string { return "workflow_history" }
