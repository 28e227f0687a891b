package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/pkg/keylock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service commits transition plans. All writes of one transition land in
// a single transaction; a failure anywhere rolls back everything.
type Service struct {
	db    *gorm.DB
	locks *keylock.KeyLock
	log   *zap.Logger
	now   func() time.Time
}

func NewService(db *gorm.DB, locks *keylock.KeyLock, log *zap.Logger) *Service {
	return &Service{db: db, locks: locks, log: log, now: time.Now}
}

// Transition applies one checked workflow transition to a post. The
// per-post lock guarantees the post is never read stale under concurrent
// transition or publish attempts.
func (s *Service) Transition(ctx context.Context, postID string, in TransitionInput) (*models.PostModel, error) {
	s.locks.Lock("post:" + postID)
	defer s.locks.Unlock("post:" + postID)

	post, err := s.loadPost(postID)
	if err != nil {
		return nil, err
	}

	if err := Authorize(in.ActorRole, post.WorkflowState, in.Target); err != nil {
		return nil, err
	}

	plan, err := BuildPlan(post, in, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.commit(ctx, postID, plan); err != nil {
		return nil, err
	}

	s.log.Info("workflow transition",
		zap.String("post_id", postID),
		zap.String("from", plan.From),
		zap.String("to", plan.To),
		zap.String("actor", in.ActorID),
	)

	return s.loadPost(postID)
}

// SetWorkflowState is the administrative write: it skips adjacency and
// precondition checks but still records the literal before/after history.
func (s *Service) SetWorkflowState(ctx context.Context, postID, target, actorID, comment string) (*models.PostModel, error) {
	if !models.IsWorkflowState(target) {
		return nil, ErrInvalidState
	}

	s.locks.Lock("post:" + postID)
	defer s.locks.Unlock("post:" + postID)

	post, err := s.loadPost(postID)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		From: post.WorkflowState,
		To:   target,
		Updates: map[string]interface{}{
			"workflow_state": target,
			"updated_at":     s.now(),
		},
		History: models.WorkflowHistoryModel{
			PostID:    post.ID,
			ActorID:   actorID,
			FromState: post.WorkflowState,
			ToState:   target,
			Comment:   comment,
		},
	}

	if err := s.commit(ctx, postID, plan); err != nil {
		return nil, err
	}

	s.log.Warn("administrative workflow state write",
		zap.String("post_id", postID),
		zap.String("from", plan.From),
		zap.String("to", plan.To),
		zap.String("actor", actorID),
	)

	return s.loadPost(postID)
}

// History returns the transition audit trail for a post, oldest first.
func (s *Service) History(postID string) ([]models.WorkflowHistoryModel, error) {
	var rows []models.WorkflowHistoryModel
	err := s.db.Where("post_id = ?", postID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (s *Service) loadPost(postID string) (*models.PostModel, error) {
	var post models.PostModel
	if err := s.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (s *Service) commit(ctx context.Context, postID string, plan *Plan) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PostModel{}).Where("id = ?", postID).Updates(plan.Updates).Error; err != nil {
			return err
		}
		if err := tx.Create(&plan.History).Error; err != nil {
			return err
		}
		if plan.Feedback != nil {
			if err := tx.Create(plan.Feedback).Error; err != nil {
				return err
			}
		}
		for i := range plan.Notifications {
			if err := tx.Create(&plan.Notifications[i]).Error; err != nil {
				return err
			}
		}
		for i := range plan.Tasks {
			if err := tx.Create(&plan.Tasks[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
