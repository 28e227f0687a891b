package crontask

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/social-agent/core/internal/middleware"
	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/pkg/cron"
	"github.com/social-agent/core/internal/pkg/response"
	"github.com/social-agent/core/internal/pkg/taskqueue"
)

// Handler exposes the interval scheduler and the Redis job tracker over
// HTTP so operators can inspect and trigger background work.
type Handler struct {
	scheduler *cron.Scheduler
	jobs      *taskqueue.Service
}

func NewHandler(scheduler *cron.Scheduler, jobs *taskqueue.Service) *Handler {
	return &Handler{scheduler: scheduler, jobs: jobs}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	adminMW := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)

	g := rg.Group("/cron-task", authMW, adminMW)
	g.GET("", h.list)
	g.GET("/:name", h.status)
	g.POST("/:name/run", h.run)

	j := rg.Group("/jobs", authMW, adminMW)
	j.GET("", h.listJobs)
	j.GET("/:id", h.getJob)
	j.DELETE("/completed", h.deleteCompleted)
}

func (h *Handler) list(c *gin.Context) {
	response.OK(c, h.scheduler.List())
}

func (h *Handler) status(c *gin.Context) {
	result, err := h.scheduler.GetTask(c.Param("name"))
	if err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.OK(c, result)
}

func (h *Handler) run(c *gin.Context) {
	if err := h.scheduler.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.OK(c, gin.H{"triggered": c.Param("name")})
}

func (h *Handler) listJobs(c *gin.Context) {
	page, size := 1, 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("size", "20")); err == nil && v > 0 {
		size = v
	}

	var jobType *string
	if v := c.Query("type"); v != "" {
		jobType = &v
	}
	var status *taskqueue.JobStatus
	if v := c.Query("status"); v != "" {
		st := taskqueue.JobStatus(v)
		status = &st
	}

	jobs, total, err := h.jobs.List(c.Request.Context(), page, size, jobType, status)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"data": jobs, "total": total})
}

func (h *Handler) getJob(c *gin.Context) {
	job, err := h.jobs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if job == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, job)
}

func (h *Handler) deleteCompleted(c *gin.Context) {
	if err := h.jobs.DeleteCompleted(c.Request.Context(), 0); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
