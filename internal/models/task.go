package models

import "time"

// Task statuses.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskInReview   = "in_review"
	TaskDone       = "done"
	TaskCancelled  = "cancelled"
)

// TaskModel is a work item, either created manually or generated by
// a workflow transition.
type TaskModel struct {
	Base
	Title       string       `json:"title" gorm:"not null"`
	Description string       `json:"description" gorm:"type:text"`
	ClientID    *string      `json:"client_id" gorm:"index"`
	Client      *ClientModel `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	AssigneeID  *string      `json:"assignee_id" gorm:"index"`
	Assignee    *UserModel   `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`
	CreatorID   string       `json:"creator_id" gorm:"index"`
	Status      string       `json:"status"   gorm:"index;default:todo"`
	Priority    string       `json:"priority" gorm:"default:normal"`
	Category    string       `json:"category"`
	DueDate     *time.Time   `json:"due_date"`
	PostID      *string      `json:"post_id" gorm:"index"`
}

func (TaskModel) TableName() string { return "tasks" }
