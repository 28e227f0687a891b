package post

import (
	"errors"
	"fmt"
	"time"

	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/pkg/keylock"
	"github.com/social-agent/core/internal/pkg/pagination"
	"github.com/social-agent/core/internal/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("post not found")
	ErrNotReschedulable = errors.New("only scheduled or approved posts can be rescheduled")
)

// ListFilter narrows the post list.
type ListFilter struct {
	State        string
	PublishState string
	ClientID     string
	Platform     string
	AssignedTo   string
}

// WorkItem is a post plus the action it needs from the current user.
type WorkItem struct {
	models.PostModel
	Action string `json:"action"`
}

// CalendarView groups a month's posts for calendar display.
type CalendarView struct {
	Posts  []models.PostModel            `json:"posts"`
	ByDate map[string][]models.PostModel `json:"by_date"`
	Month  int                           `json:"month"`
	Year   int                           `json:"year"`
}

const priorityOrder = "CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END"

type Service struct {
	db    *gorm.DB
	locks *keylock.KeyLock
	now   func() time.Time
}

func NewService(db *gorm.DB, locks *keylock.KeyLock) *Service {
	return &Service{db: db, locks: locks, now: time.Now}
}

func (s *Service) List(q pagination.Query, f ListFilter) ([]models.PostModel, response.Pagination, error) {
	tx := s.db.Model(&models.PostModel{}).Preload("Client").
		Order("scheduled_at DESC, created_at DESC")
	if f.State != "" {
		tx = tx.Where("workflow_state = ?", f.State)
	}
	if f.PublishState != "" {
		tx = tx.Where("publish_state = ?", f.PublishState)
	}
	if f.ClientID != "" {
		tx = tx.Where("client_id = ?", f.ClientID)
	}
	if f.Platform != "" {
		tx = tx.Where("platforms LIKE ?", "%"+f.Platform+"%")
	}
	if f.AssignedTo != "" {
		tx = tx.Where(
			"designer_id = ? OR motion_id = ? OR writer_id = ? OR scheduler_id = ? OR manager_id = ? OR created_by_id = ?",
			f.AssignedTo, f.AssignedTo, f.AssignedTo, f.AssignedTo, f.AssignedTo, f.AssignedTo)
	}

	var posts []models.PostModel
	pag, err := pagination.Paginate(tx, q, &posts)
	return posts, pag, err
}

func (s *Service) GetByID(id string) (*models.PostModel, error) {
	var post models.PostModel
	err := s.db.Preload("Client").First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &post, err
}

// Create inserts a post. When an initial workflow state is supplied, the
// creation itself is recorded in history, and an in_design start with an
// assigned designer spawns the usual notification and design task.
func (s *Service) Create(clientID string, dto *CreatePostDTO, actorID string) (*models.PostModel, error) {
	state := dto.WorkflowState
	if state == "" {
		state = models.StateDraft
	}
	if !models.IsWorkflowState(state) {
		return nil, fmt.Errorf("unrecognized workflow state %q", state)
	}

	postType := dto.PostType
	if postType == "" {
		postType = models.PostTypePost
	}
	imageSize := dto.ImageSize
	if imageSize == "" {
		imageSize = "1080x1080"
	}
	priority := dto.Priority
	if priority == "" {
		priority = "normal"
	}

	post := models.PostModel{
		ClientID:            clientID,
		Topic:               dto.Topic,
		Caption:             dto.Caption,
		PostType:            postType,
		MediaURLs:           models.StringArray(dto.MediaURLs),
		Platforms:           models.StringArray(dto.Platforms),
		ScheduledAt:         dto.ScheduledAt,
		ImageSize:           imageSize,
		ToneOfVoice:         dto.ToneOfVoice,
		BriefNotes:          dto.BriefNotes,
		Priority:            priority,
		DesignReferenceURLs: models.StringArray(dto.DesignReferenceURLs),
		WorkflowState:       state,
		PublishState:        models.PublishPending,
		DesignerID:          dto.DesignerID,
		MotionID:            dto.MotionID,
		WriterID:            dto.WriterID,
		SchedulerID:         dto.SchedulerID,
		ManagerID:           dto.ManagerID,
		CreatedByID:         actorID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}

		if state == models.StateDraft {
			return nil
		}

		history := models.WorkflowHistoryModel{
			PostID:    post.ID,
			ActorID:   actorID,
			FromState: models.StateDraft,
			ToState:   state,
			Comment:   "Post created",
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		if state == models.StateInDesign && dto.DesignerID != nil {
			notif := models.NotificationModel{
				UserID:  *dto.DesignerID,
				Type:    models.NotifyDesignRequest,
				Title:   "New design brief",
				Message: "You have been assigned a new design brief: " + dto.Topic,
				RefType: "post",
				RefID:   post.ID,
			}
			if err := tx.Create(&notif).Error; err != nil {
				return err
			}
			postID := post.ID
			task := models.TaskModel{
				Title:       "Design: " + dto.Topic,
				Description: "Create design for post: " + dto.Topic,
				ClientID:    &clientID,
				AssigneeID:  dto.DesignerID,
				CreatorID:   actorID,
				Status:      models.TaskTodo,
				Priority:    priority,
				Category:    "design",
				PostID:      &postID,
			}
			if err := tx.Create(&task).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Service) Update(id string, dto *UpdatePostDTO) (*models.PostModel, error) {
	post, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Topic != nil {
		updates["topic"] = *dto.Topic
	}
	if dto.Caption != nil {
		updates["caption"] = *dto.Caption
	}
	if dto.MediaURLs != nil {
		updates["media_urls"] = models.StringArray(*dto.MediaURLs)
	}
	if dto.Platforms != nil {
		updates["platforms"] = models.StringArray(*dto.Platforms)
	}
	if dto.ScheduledAt != nil {
		updates["scheduled_at"] = *dto.ScheduledAt
	}
	if dto.ImageSize != nil {
		updates["image_size"] = *dto.ImageSize
	}
	if dto.PostType != nil {
		updates["post_type"] = *dto.PostType
	}
	if dto.ToneOfVoice != nil {
		updates["tone_of_voice"] = *dto.ToneOfVoice
	}
	if dto.BriefNotes != nil {
		updates["brief_notes"] = *dto.BriefNotes
	}
	if dto.Priority != nil {
		updates["priority"] = *dto.Priority
	}
	if dto.DesignReferenceURLs != nil {
		updates["design_reference_urls"] = models.StringArray(*dto.DesignReferenceURLs)
	}
	if dto.DesignerID != nil {
		updates["designer_id"] = *dto.DesignerID
	}
	if dto.MotionID != nil {
		updates["motion_id"] = *dto.MotionID
	}
	if dto.WriterID != nil {
		updates["writer_id"] = *dto.WriterID
	}
	if dto.SchedulerID != nil {
		updates["scheduler_id"] = *dto.SchedulerID
	}
	if dto.ManagerID != nil {
		updates["manager_id"] = *dto.ManagerID
	}
	if len(updates) == 0 {
		return post, nil
	}
	if err := s.db.Model(post).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Delete removes a post and cascades its comments, history and publish
// logs in one transaction.
func (s *Service) Delete(id string) error {
	post, err := s.GetByID(id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&models.PostCommentModel{}, "post_id = ?", post.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.WorkflowHistoryModel{}, "post_id = ?", post.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.PublishLogModel{}, "post_id = ?", post.ID).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.PostModel{}, "id = ?", post.ID).Error
	})
}

// BulkCreate schedules many posts, skipping the failures.
func (s *Service) BulkCreate(items []BulkItemDTO) (created int, err error) {
	for i := range items {
		item := &items[i]
		dto := CreatePostDTO{
			Topic:       item.Topic,
			Caption:     item.Caption,
			MediaURLs:   item.MediaURLs,
			Platforms:   item.Platforms,
			ScheduledAt: item.ScheduledAt,
			ImageSize:   item.ImageSize,
			PostType:    item.PostType,
		}
		if _, cerr := s.Create(item.ClientID, &dto, ""); cerr == nil {
			created++
		}
	}
	return created, nil
}

// Pipeline returns the board view: posts bucketed by workflow state.
// Posted items are deliberately omitted; unknown states land in draft.
func (s *Service) Pipeline(clientID, assignedTo string) (map[string][]models.PostModel, error) {
	tx := s.db.Preload("Client").
		Order(priorityOrder + ", created_at DESC")
	if clientID != "" {
		tx = tx.Where("client_id = ?", clientID)
	}
	if assignedTo != "" {
		tx = tx.Where(
			"designer_id = ? OR motion_id = ? OR writer_id = ? OR scheduler_id = ? OR manager_id = ? OR created_by_id = ?",
			assignedTo, assignedTo, assignedTo, assignedTo, assignedTo, assignedTo)
	}

	var posts []models.PostModel
	if err := tx.Find(&posts).Error; err != nil {
		return nil, err
	}

	board := map[string][]models.PostModel{
		models.StateDraft:        {},
		models.StateInDesign:     {},
		models.StateDesignReview: {},
		models.StateApproved:     {},
		models.StateScheduled:    {},
	}
	for _, p := range posts {
		state := p.WorkflowState
		if state == models.StatePosted {
			continue
		}
		if _, ok := board[state]; !ok {
			state = models.StateDraft
		}
		board[state] = append(board[state], p)
	}
	return board, nil
}

// Calendar returns a month's posts grouped by schedule date.
func (s *Service) Calendar(month, year int, clientID string, includeUnscheduled bool) (*CalendarView, error) {
	if month < 1 || month > 12 {
		now := s.now()
		month, year = int(now.Month()), now.Year()
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	tx := s.db.Preload("Client")
	if includeUnscheduled {
		tx = tx.Where(
			"(scheduled_at >= ? AND scheduled_at < ?) OR (scheduled_at IS NULL AND created_at >= ? AND created_at < ?)",
			start, end, start, end)
	} else {
		tx = tx.Where("scheduled_at >= ? AND scheduled_at < ?", start, end)
	}
	if clientID != "" {
		tx = tx.Where("client_id = ?", clientID)
	}

	var posts []models.PostModel
	if err := tx.Order("scheduled_at ASC, created_at ASC").Find(&posts).Error; err != nil {
		return nil, err
	}

	byDate := map[string][]models.PostModel{}
	for _, p := range posts {
		if p.ScheduledAt == nil {
			continue
		}
		key := p.ScheduledAt.Format("2006-01-02")
		byDate[key] = append(byDate[key], p)
	}

	return &CalendarView{Posts: posts, ByDate: byDate, Month: month, Year: year}, nil
}

// Reschedule moves a post's publish time. Only scheduled and approved
// posts qualify; an approved post flips to scheduled with a fresh
// pending publish state.
func (s *Service) Reschedule(id string, at time.Time) (*models.PostModel, error) {
	s.locks.Lock("post:" + id)
	defer s.locks.Unlock("post:" + id)

	post, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if post.WorkflowState != models.StateScheduled && post.WorkflowState != models.StateApproved {
		return nil, ErrNotReschedulable
	}

	updates := map[string]interface{}{
		"scheduled_at": at,
		"updated_at":   s.now(),
	}
	if post.WorkflowState == models.StateApproved {
		updates["workflow_state"] = models.StateScheduled
		updates["publish_state"] = models.PublishPending
	}
	if err := s.db.Model(post).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// MyWork returns the posts needing the user's attention, per role.
func (s *Service) MyWork(userID, role string) ([]WorkItem, error) {
	var items []WorkItem
	seen := map[string]bool{}

	add := func(posts []models.PostModel, action string) {
		for _, p := range posts {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			items = append(items, WorkItem{PostModel: p, Action: action})
		}
	}

	find := func(tx *gorm.DB) ([]models.PostModel, error) {
		var posts []models.PostModel
		err := tx.Preload("Client").Find(&posts).Error
		return posts, err
	}

	switch role {
	case models.RoleCopywriter:
		posts, err := find(s.db.Where("writer_id = ? AND workflow_state = ?", userID, models.StateDraft).
			Order(priorityOrder))
		if err != nil {
			return nil, err
		}
		add(posts, "needs_content")

	case models.RoleDesigner, models.RoleMotionEditor:
		returned, err := find(s.db.Where(
			"(designer_id = ? OR motion_id = ?) AND workflow_state = ? AND revision_count > 0",
			userID, userID, models.StateInDesign).Order("updated_at DESC"))
		if err != nil {
			return nil, err
		}
		add(returned, "returned_for_edits")

		assigned, err := find(s.db.Where(
			"(designer_id = ? OR motion_id = ?) AND workflow_state = ?",
			userID, userID, models.StateInDesign).Order(priorityOrder))
		if err != nil {
			return nil, err
		}
		add(assigned, "needs_design")

	case models.RoleManager:
		review, err := find(s.db.Where(
			"(manager_id = ? OR manager_id IS NULL) AND workflow_state = ?",
			userID, models.StateDesignReview).Order(priorityOrder))
		if err != nil {
			return nil, err
		}
		add(review, "needs_review")

		unscheduled, err := find(s.db.Where(
			"workflow_state = ? AND scheduled_at IS NULL", models.StateApproved).
			Order("updated_at DESC"))
		if err != nil {
			return nil, err
		}
		add(unscheduled, "ready_to_schedule")

	case models.RoleScheduler:
		unscheduled, err := find(s.db.Where(
			"(scheduler_id = ? OR scheduler_id IS NULL) AND workflow_state = ? AND scheduled_at IS NULL",
			userID, models.StateApproved).Order("updated_at DESC"))
		if err != nil {
			return nil, err
		}
		add(unscheduled, "ready_to_schedule")

	case models.RoleAdmin:
		unassigned, err := find(s.db.Where(
			"workflow_state = ? AND designer_id IS NULL", models.StateDraft).
			Order("created_at DESC").Limit(20))
		if err != nil {
			return nil, err
		}
		add(unassigned, "unassigned")

		overdue, err := find(s.db.Where(
			"publish_state = ? AND scheduled_at IS NOT NULL AND scheduled_at < ?",
			models.PublishPending, s.now()).Order("scheduled_at ASC").Limit(20))
		if err != nil {
			return nil, err
		}
		add(overdue, "overdue")

		review, err := find(s.db.Where("workflow_state = ?", models.StateDesignReview).
			Order("updated_at DESC").Limit(20))
		if err != nil {
			return nil, err
		}
		add(review, "needs_review")
	}

	if items == nil {
		items = []WorkItem{}
	}
	return items, nil
}

// Comments returns the discussion thread, oldest first.
func (s *Service) Comments(postID string) ([]models.PostCommentModel, error) {
	var rows []models.PostCommentModel
	err := s.db.Preload("User").Where("post_id = ?", postID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (s *Service) AddComment(postID, userID string, dto *CommentDTO) (*models.PostCommentModel, error) {
	if _, err := s.GetByID(postID); err != nil {
		return nil, err
	}
	commentType := dto.CommentType
	if commentType == "" {
		commentType = models.CommentTypeComment
	}
	comment := models.PostCommentModel{
		PostID:      postID,
		UserID:      userID,
		Content:     dto.Content,
		CommentType: commentType,
		Attachments: models.StringArray(dto.Attachments),
	}
	return &comment, s.db.Create(&comment).Error
}

// RecordDesignOutputs stores uploaded design URLs on the post.
func (s *Service) RecordDesignOutputs(postID string, urls []string) (*models.PostModel, error) {
	post, err := s.GetByID(postID)
	if err != nil {
		return nil, err
	}
	merged := append(models.StringArray{}, post.DesignOutputURLs...)
	merged = append(merged, urls...)
	if err := s.db.Model(post).Update("design_output_urls", merged).Error; err != nil {
		return nil, err
	}
	return s.GetByID(postID)
}

// RecordDesignReferences appends reference material URLs.
func (s *Service) RecordDesignReferences(postID string, urls []string) (*models.PostModel, error) {
	post, err := s.GetByID(postID)
	if err != nil {
		return nil, err
	}
	merged := append(models.StringArray{}, post.DesignReferenceURLs...)
	merged = append(merged, urls...)
	if err := s.db.Model(post).Update("design_reference_urls", merged).Error; err != nil {
		return nil, err
	}
	return s.GetByID(postID)
}
