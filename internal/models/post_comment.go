package models

// Comment kinds on a post thread.
const (
	CommentTypeComment  = "comment"
	CommentTypeRevision = "revision_feedback"
)

// PostCommentModel is a discussion or revision-feedback entry on a post.
type PostCommentModel struct {
	Base
	PostID      string      `json:"post_id"     gorm:"index;not null"`
	UserID      string      `json:"user_id"     gorm:"index"`
	User        *UserModel  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Content     string      `json:"content"     gorm:"type:text;not null"`
	CommentType string      `json:"comment_type" gorm:"default:comment"`
	Attachments StringArray `json:"attachments" gorm:"type:longtext"`
}

func (PostCommentModel) TableName() string { return "post_comments" }
