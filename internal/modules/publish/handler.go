package publish

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/social-agent/core/internal/middleware"
	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/pkg/response"
	"gorm.io/gorm"
)

// PostNowDTO creates a post and publishes it immediately, skipping the
// editorial workflow.
type PostNowDTO struct {
	ClientID  string   `json:"client_id" binding:"required"`
	Topic     string   `json:"topic"     binding:"required"`
	Caption   string   `json:"caption"`
	MediaURLs []string `json:"media_urls"`
	Platforms []string `json:"platforms" binding:"required,min=1"`
	PostType  string   `json:"post_type"`
}

type Handler struct {
	db      *gorm.DB
	scanner *Scanner
}

func NewHandler(db *gorm.DB, scanner *Scanner) *Handler {
	return &Handler{db: db, scanner: scanner}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	publisherMW := middleware.RequireRoles(models.RoleAdmin, models.RoleManager, models.RoleScheduler)

	g := rg.Group("", authMW)
	g.GET("/posts/:id/publish-logs", h.logs)

	p := g.Group("", publisherMW)
	p.POST("/posts/:id/publish", h.publishNow)
	p.POST("/publish/run", h.runSweep)
	p.POST("/publish/force-all", h.forceAll)
	p.POST("/post-now", h.postNow)
}

func (h *Handler) publishNow(c *gin.Context) {
	results, err := h.scanner.PublishNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, results)
}

func (h *Handler) runSweep(c *gin.Context) {
	results, err := h.scanner.RunDueSweep(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"results": results, "count": len(results)})
}

func (h *Handler) forceAll(c *gin.Context) {
	summary, err := h.scanner.ForcePublishAll(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, summary)
}

func (h *Handler) postNow(c *gin.Context) {
	var dto PostNowDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	postType := dto.PostType
	if postType == "" {
		postType = models.PostTypePost
	}

	post := models.PostModel{
		ClientID:      dto.ClientID,
		Topic:         dto.Topic,
		Caption:       dto.Caption,
		PostType:      postType,
		MediaURLs:     models.StringArray(dto.MediaURLs),
		Platforms:     models.StringArray(dto.Platforms),
		WorkflowState: models.StateScheduled,
		PublishState:  models.PublishPending,
		CreatedByID:   middleware.CurrentUserID(c),
	}
	if err := h.db.Create(&post).Error; err != nil {
		response.InternalError(c, err)
		return
	}

	results, err := h.scanner.PublishNow(c.Request.Context(), post.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"post_id": post.ID, "results": results})
}

func (h *Handler) logs(c *gin.Context) {
	var rows []models.PublishLogModel
	err := h.db.Where("post_id = ?", c.Param("id")).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, rows)
}
