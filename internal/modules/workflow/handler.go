package workflow

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/social-agent/core/internal/middleware"
	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/pkg/response"
)

// TransitionDTO is the request body for the checked transition endpoint.
type TransitionDTO struct {
	Status      string     `json:"status" binding:"required"`
	Comment     string     `json:"comment"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// SetStateDTO is the request body for the administrative state write.
type SetStateDTO struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/posts", authMW)
	g.POST("/:id/transition", h.transition)
	g.GET("/:id/history", h.history)
	g.PUT("/:id/workflow", middleware.RequireRoles(models.RoleAdmin), h.setState)
}

func (h *Handler) transition(c *gin.Context) {
	var dto TransitionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "status is required")
		return
	}

	post, err := h.svc.Transition(c.Request.Context(), c.Param("id"), TransitionInput{
		Target:      dto.Status,
		ActorID:     middleware.CurrentUserID(c),
		ActorRole:   middleware.CurrentUserRole(c),
		Comment:     dto.Comment,
		ScheduledAt: dto.ScheduledAt,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) setState(c *gin.Context) {
	var dto SetStateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "status is required")
		return
	}

	post, err := h.svc.SetWorkflowState(c.Request.Context(), c.Param("id"), dto.Status,
		middleware.CurrentUserID(c), dto.Comment)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) history(c *gin.Context) {
	rows, err := h.svc.History(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, rows)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var illegal *IllegalTransitionError
	var precondition *PreconditionError

	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrRoleNotAllowed):
		response.ForbiddenMsg(c, err.Error())
	case errors.Is(err, ErrInvalidState):
		response.BadRequest(c, err.Error())
	case errors.As(err, &illegal), errors.As(err, &precondition):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
