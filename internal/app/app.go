package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/social-agent/core/internal/config"
	"github.com/social-agent/core/internal/database"
	"github.com/social-agent/core/internal/modules/client"
	"github.com/social-agent/core/internal/modules/notification"
	"github.com/social-agent/core/internal/modules/platform"
	"github.com/social-agent/core/internal/modules/post"
	"github.com/social-agent/core/internal/modules/publish"
	"github.com/social-agent/core/internal/modules/task"
	"github.com/social-agent/core/internal/modules/user"
	"github.com/social-agent/core/internal/modules/workflow"
	"github.com/social-agent/core/internal/pkg/cron"
	"github.com/social-agent/core/internal/pkg/jwt"
	"github.com/social-agent/core/internal/pkg/keylock"
	redisc "github.com/social-agent/core/internal/pkg/redis"
	"github.com/social-agent/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App owns the shared infrastructure and the wired-up modules.
type App struct {
	cfg    *config.AppConfig
	log    *zap.Logger
	db     *gorm.DB
	rdb    *redisc.Client
	engine *gin.Engine
	server *http.Server

	locks     *keylock.KeyLock
	scheduler *cron.Scheduler
	jobs      *taskqueue.Service

	registry   platform.Registry
	dispatcher *publish.Dispatcher
	scanner    *publish.Scanner

	workflowSvc *workflow.Service
	postSvc     *post.Service
	clientSvc   *client.Service
	taskSvc     *task.Service
	notifySvc   *notification.Service
	userSvc     *user.Service
}

// New builds the application: connections, services, routes and cron jobs.
func New(cfg *config.AppConfig, log *zap.Logger) (*App, error) {
	jwt.SetSecret(cfg.JWTSecret)

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rdb, err := redisc.Connect(cfg.Redis.URLValue())
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	a := &App{
		cfg:       cfg,
		log:       log,
		db:        db,
		rdb:       rdb,
		locks:     keylock.New(),
		scheduler: cron.New(),
		jobs:      taskqueue.NewService(rdb),
		registry:  platform.NewRegistry(log),
	}

	a.dispatcher = publish.NewDispatcher(db, a.registry, cfg, log)
	a.scanner = publish.NewScanner(db, a.dispatcher, a.locks, log)

	a.workflowSvc = workflow.NewService(db, a.locks, log)
	a.postSvc = post.NewService(db, a.locks)
	a.clientSvc = client.NewService(db)
	a.taskSvc = task.NewService(db)
	a.notifySvc = notification.NewService(db)
	a.userSvc = user.NewService(db)

	a.engine = gin.New()
	a.registerRoutes()
	a.registerCronJobs()

	return a, nil
}

// Run starts the HTTP server and the cron scheduler, blocking until ctx
// is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	cronCtx, cancelCron := context.WithCancel(ctx)
	defer cancelCron()
	a.scheduler.Start(cronCtx)

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Port),
		Handler: a.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening", zap.Int("port", a.cfg.Port), zap.String("env", a.cfg.Env))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}
