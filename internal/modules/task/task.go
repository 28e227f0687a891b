package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/social-agent/core/internal/middleware"
	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/pkg/pagination"
	"github.com/social-agent/core/internal/pkg/response"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("task not found")

type CreateTaskDTO struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	ClientID    *string    `json:"client_id"`
	AssigneeID  *string    `json:"assignee_id"`
	Priority    string     `json:"priority"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"due_date"`
	PostID      *string    `json:"post_id"`
}

type UpdateTaskDTO struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	ClientID    *string    `json:"client_id"`
	AssigneeID  *string    `json:"assignee_id"`
	Priority    *string    `json:"priority"`
	Category    *string    `json:"category"`
	DueDate     *time.Time `json:"due_date"`
}

type StatusDTO struct {
	Status string `json:"status" binding:"required"`
}

type ListFilter struct {
	Status     string
	AssigneeID string
	ClientID   string
	Category   string
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List(q pagination.Query, f ListFilter) ([]models.TaskModel, response.Pagination, error) {
	tx := s.db.Model(&models.TaskModel{}).Preload("Client").Preload("Assignee").
		Order("created_at DESC")
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.AssigneeID != "" {
		tx = tx.Where("assignee_id = ?", f.AssigneeID)
	}
	if f.ClientID != "" {
		tx = tx.Where("client_id = ?", f.ClientID)
	}
	if f.Category != "" {
		tx = tx.Where("category = ?", f.Category)
	}

	var tasks []models.TaskModel
	pag, err := pagination.Paginate(tx, q, &tasks)
	return tasks, pag, err
}

func (s *Service) GetByID(id string) (*models.TaskModel, error) {
	var task models.TaskModel
	err := s.db.Preload("Client").Preload("Assignee").First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &task, err
}

// Create inserts a task and notifies the assignee when one is set.
func (s *Service) Create(dto *CreateTaskDTO, creatorID string) (*models.TaskModel, error) {
	priority := dto.Priority
	if priority == "" {
		priority = "normal"
	}
	task := models.TaskModel{
		Title:       dto.Title,
		Description: dto.Description,
		ClientID:    dto.ClientID,
		AssigneeID:  dto.AssigneeID,
		CreatorID:   creatorID,
		Status:      models.TaskTodo,
		Priority:    priority,
		Category:    dto.Category,
		DueDate:     dto.DueDate,
		PostID:      dto.PostID,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		if dto.AssigneeID == nil {
			return nil
		}
		return tx.Create(&models.NotificationModel{
			UserID:  *dto.AssigneeID,
			Type:    models.NotifyTaskAssigned,
			Title:   "New task assigned",
			Message: "You have been assigned a task: " + dto.Title,
			RefType: "task",
			RefID:   task.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Update edits task fields. Reassignment notifies the new assignee.
func (s *Service) Update(id string, dto *UpdateTaskDTO) (*models.TaskModel, error) {
	task, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.ClientID != nil {
		updates["client_id"] = *dto.ClientID
	}
	if dto.Priority != nil {
		updates["priority"] = *dto.Priority
	}
	if dto.Category != nil {
		updates["category"] = *dto.Category
	}
	if dto.DueDate != nil {
		updates["due_date"] = *dto.DueDate
	}

	reassigned := dto.AssigneeID != nil &&
		(task.AssigneeID == nil || *task.AssigneeID != *dto.AssigneeID)
	if dto.AssigneeID != nil {
		updates["assignee_id"] = *dto.AssigneeID
	}
	if len(updates) == 0 {
		return task, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(task).Updates(updates).Error; err != nil {
			return err
		}
		if !reassigned {
			return nil
		}
		return tx.Create(&models.NotificationModel{
			UserID:  *dto.AssigneeID,
			Type:    models.NotifyTaskAssigned,
			Title:   "New task assigned",
			Message: "You have been assigned a task: " + task.Title,
			RefType: "task",
			RefID:   task.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *Service) SetStatus(id, status string) (*models.TaskModel, error) {
	switch status {
	case models.TaskTodo, models.TaskInProgress, models.TaskInReview, models.TaskDone, models.TaskCancelled:
	default:
		return nil, fmt.Errorf("unrecognized task status %q", status)
	}
	task, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(task).Update("status", status).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *Service) Delete(id string) error {
	task, err := s.GetByID(id)
	if err != nil {
		return err
	}
	return s.db.Unscoped().Delete(&models.TaskModel{}, "id = ?", task.ID).Error
}

// Board buckets tasks by status, cancelled omitted.
func (s *Service) Board(clientID, assigneeID string) (map[string][]models.TaskModel, error) {
	tx := s.db.Preload("Client").Preload("Assignee").Order("created_at DESC")
	if clientID != "" {
		tx = tx.Where("client_id = ?", clientID)
	}
	if assigneeID != "" {
		tx = tx.Where("assignee_id = ?", assigneeID)
	}

	var tasks []models.TaskModel
	if err := tx.Find(&tasks).Error; err != nil {
		return nil, err
	}

	board := map[string][]models.TaskModel{
		models.TaskTodo:       {},
		models.TaskInProgress: {},
		models.TaskInReview:   {},
		models.TaskDone:       {},
	}
	for _, t := range tasks {
		if _, ok := board[t.Status]; !ok {
			continue
		}
		board[t.Status] = append(board[t.Status], t)
	}
	return board, nil
}

// MyTasks returns a user's open tasks, due-soonest first.
func (s *Service) MyTasks(userID string) ([]models.TaskModel, error) {
	var tasks []models.TaskModel
	err := s.db.Preload("Client").
		Where("assignee_id = ? AND status NOT IN ?", userID, []string{models.TaskDone, models.TaskCancelled}).
		Order("due_date ASC, created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/tasks", authMW)

	g.GET("", h.list)
	g.GET("/board", h.board)
	g.GET("/my-tasks", h.myTasks)
	g.GET("/:id", h.get)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.PUT("/:id/status", h.setStatus)
	g.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), h.delete)
}

func (h *Handler) list(c *gin.Context) {
	tasks, pag, err := h.svc.List(pagination.FromContext(c), ListFilter{
		Status:     c.Query("status"),
		AssigneeID: c.Query("assignee_id"),
		ClientID:   c.Query("client_id"),
		Category:   c.Query("category"),
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, tasks, pag)
}

func (h *Handler) board(c *gin.Context) {
	board, err := h.svc.Board(c.Query("client_id"), c.Query("assignee_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, board)
}

func (h *Handler) myTasks(c *gin.Context) {
	tasks, err := h.svc.MyTasks(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, tasks)
}

func (h *Handler) get(c *gin.Context) {
	task, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, task)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateTaskDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "title is required")
		return
	}
	task, err := h.svc.Create(&dto, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, task)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateTaskDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	task, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, task)
}

func (h *Handler) setStatus(c *gin.Context) {
	var dto StatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "status is required")
		return
	}
	task, err := h.svc.SetStatus(c.Param("id"), dto.Status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c)
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, task)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c)
		return
	}
	response.InternalError(c, err)
}
