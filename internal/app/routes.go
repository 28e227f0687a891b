package app

import (
	"github.com/gin-gonic/gin"
	"github.com/social-agent/core/internal/middleware"
	"github.com/social-agent/core/internal/modules/client"
	"github.com/social-agent/core/internal/modules/crontask"
	"github.com/social-agent/core/internal/modules/notification"
	"github.com/social-agent/core/internal/modules/post"
	"github.com/social-agent/core/internal/modules/publish"
	"github.com/social-agent/core/internal/modules/task"
	"github.com/social-agent/core/internal/modules/user"
	"github.com/social-agent/core/internal/modules/workflow"
	"github.com/social-agent/core/internal/pkg/response"
)

func (a *App) registerRoutes() {
	a.engine.Use(gin.Recovery())
	a.engine.Use(middleware.Logger(a.log))
	a.engine.Use(a.corsMiddleware())
	a.engine.Use(middleware.RateLimit(a.rdb.Raw()))
	a.engine.Use(middleware.Idempotence(a.rdb.Raw()))

	a.engine.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})
	a.engine.NoRoute(func(c *gin.Context) { response.NotFound(c) })
	a.engine.NoMethod(func(c *gin.Context) { response.MethodNotAllowed(c) })

	api := a.engine.Group("/api/v1")
	authMW := middleware.Auth()

	user.NewHandler(a.userSvc).RegisterRoutes(api, authMW)
	client.NewHandler(a.clientSvc).RegisterRoutes(api, authMW)
	post.NewHandler(a.postSvc, a.workflowSvc).RegisterRoutes(api, authMW)
	workflow.NewHandler(a.workflowSvc).RegisterRoutes(api, authMW)
	publish.NewHandler(a.db, a.scanner).RegisterRoutes(api, authMW)
	task.NewHandler(a.taskSvc).RegisterRoutes(api, authMW)
	notification.NewHandler(a.notifySvc).RegisterRoutes(api, authMW)
	crontask.NewHandler(a.scheduler, a.jobs).RegisterRoutes(api, authMW)
}
