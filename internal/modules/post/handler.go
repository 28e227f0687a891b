package post

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/social-agent/core/internal/middleware"
	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/modules/workflow"
	"github.com/social-agent/core/internal/pkg/pagination"
	"github.com/social-agent/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
	wf  *workflow.Service
}

func NewHandler(svc *Service, wf *workflow.Service) *Handler {
	return &Handler{svc: svc, wf: wf}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("", authMW)

	g.GET("/posts", h.list)
	g.GET("/posts/calendar", h.calendar)
	g.GET("/posts/my-work", h.myWork)
	g.GET("/posts/:id", h.get)
	g.PUT("/posts/:id", h.update)
	g.DELETE("/posts/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), h.delete)
	g.POST("/clients/:id/posts", h.create)
	g.POST("/posts/bulk", h.bulk)
	g.GET("/pipeline", h.pipeline)
	g.PUT("/posts/:id/reschedule", h.reschedule)
	g.GET("/posts/:id/comments", h.comments)
	g.POST("/posts/:id/comments", h.addComment)
	g.POST("/posts/:id/upload-design", h.uploadDesign)
	g.POST("/posts/:id/upload-reference", h.uploadReference)
}

func (h *Handler) list(c *gin.Context) {
	posts, pag, err := h.svc.List(pagination.FromContext(c), ListFilter{
		State:        c.Query("workflow_state"),
		PublishState: c.Query("publish_state"),
		ClientID:     c.Query("client_id"),
		Platform:     c.Query("platform"),
		AssignedTo:   c.Query("assigned_to"),
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, posts, pag)
}

func (h *Handler) get(c *gin.Context) {
	post, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreatePostDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.svc.Create(c.Param("id"), &dto, middleware.CurrentUserID(c))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Created(c, post)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdatePostDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) bulk(c *gin.Context) {
	var dto BulkDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	created, err := h.svc.BulkCreate(dto.Posts)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"success_count": created, "total": len(dto.Posts)})
}

func (h *Handler) pipeline(c *gin.Context) {
	board, err := h.svc.Pipeline(c.Query("client_id"), c.Query("assigned_to"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, board)
}

func (h *Handler) calendar(c *gin.Context) {
	month, _ := strconv.Atoi(c.Query("month"))
	year, _ := strconv.Atoi(c.Query("year"))
	view, err := h.svc.Calendar(month, year, c.Query("client_id"), c.Query("include_unscheduled") == "1")
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, view)
}

func (h *Handler) myWork(c *gin.Context) {
	items, err := h.svc.MyWork(middleware.CurrentUserID(c), middleware.CurrentUserRole(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) reschedule(c *gin.Context) {
	var dto RescheduleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "scheduled_at is required")
		return
	}
	post, err := h.svc.Reschedule(c.Param("id"), dto.ScheduledAt)
	if err != nil {
		if errors.Is(err, ErrNotReschedulable) {
			response.BadRequest(c, err.Error())
			return
		}
		h.writeError(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) comments(c *gin.Context) {
	rows, err := h.svc.Comments(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, rows)
}

func (h *Handler) addComment(c *gin.Context) {
	var dto CommentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "content is required")
		return
	}
	comment, err := h.svc.AddComment(c.Param("id"), middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, comment)
}

// uploadDesign records output URLs; with submit_for_review it also runs
// the in_design → design_review transition on the updated post.
func (h *Handler) uploadDesign(c *gin.Context) {
	var dto UploadDesignDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "urls is required")
		return
	}

	post, err := h.svc.RecordDesignOutputs(c.Param("id"), dto.URLs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if dto.SubmitForReview && post.WorkflowState == models.StateInDesign {
		post, err = h.wf.Transition(c.Request.Context(), post.ID, workflow.TransitionInput{
			Target:    models.StateDesignReview,
			ActorID:   middleware.CurrentUserID(c),
			ActorRole: middleware.CurrentUserRole(c),
		})
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	response.OK(c, post)
}

func (h *Handler) uploadReference(c *gin.Context) {
	var dto UploadReferenceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "urls is required")
		return
	}
	post, err := h.svc.RecordDesignReferences(c.Param("id"), dto.URLs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c)
		return
	}
	response.InternalError(c, err)
}
