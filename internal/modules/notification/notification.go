package notification

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/social-agent/core/internal/middleware"
	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/pkg/pagination"
	"github.com/social-agent/core/internal/pkg/response"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("notification not found")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns the user's notifications, newest first. unreadOnly narrows
// to notifications not yet read.
func (s *Service) List(userID string, q pagination.Query, unreadOnly bool) ([]models.NotificationModel, response.Pagination, error) {
	tx := s.db.Model(&models.NotificationModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if unreadOnly {
		tx = tx.Where("read = ?", false)
	}
	var rows []models.NotificationModel
	pag, err := pagination.Paginate(tx, q, &rows)
	return rows, pag, err
}

func (s *Service) UnreadCount(userID string) (int64, error) {
	var count int64
	err := s.db.Model(&models.NotificationModel{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips one notification. Only the owner can mark it.
func (s *Service) MarkRead(userID, id string) error {
	res := s.db.Model(&models.NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(userID string) (int64, error) {
	res := s.db.Model(&models.NotificationModel{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/notifications", authMW)

	g.GET("", h.list)
	g.GET("/unread-count", h.unreadCount)
	g.PUT("/:id/read", h.markRead)
	g.PUT("/read-all", h.markAllRead)
}

func (h *Handler) list(c *gin.Context) {
	rows, pag, err := h.svc.List(
		middleware.CurrentUserID(c),
		pagination.FromContext(c),
		c.Query("unread") == "1")
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, pag)
}

func (h *Handler) unreadCount(c *gin.Context) {
	count, err := h.svc.UnreadCount(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"count": count})
}

func (h *Handler) markRead(c *gin.Context) {
	err := h.svc.MarkRead(middleware.CurrentUserID(c), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c)
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) markAllRead(c *gin.Context) {
	count, err := h.svc.MarkAllRead(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"marked": count})
}
