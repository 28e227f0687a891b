package publish

import (
	"context"
	"errors"
	"time"

	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/modules/platform"
	"github.com/social-agent/core/internal/pkg/keylock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SweepResult is the outcome of publishing one due post during a sweep.
type SweepResult struct {
	PostID  string                     `json:"post_id"`
	Skipped bool                       `json:"skipped,omitempty"`
	Results map[string]platform.Result `json:"results,omitempty"`
}

// SweepSummary aggregates a force-publish run.
type SweepSummary struct {
	Published int `json:"published"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// Scanner selects due pending posts and hands them to the dispatcher.
// The clock is injectable so sweeps are testable against a fixed now.
type Scanner struct {
	db         *gorm.DB
	dispatcher *Dispatcher
	locks      *keylock.KeyLock
	log        *zap.Logger
	now        func() time.Time
}

func NewScanner(db *gorm.DB, dispatcher *Dispatcher, locks *keylock.KeyLock, log *zap.Logger) *Scanner {
	return &Scanner{
		db:         db,
		dispatcher: dispatcher,
		locks:      locks,
		log:        log.Named("scanner"),
		now:        time.Now,
	}
}

// RunDueSweep publishes every pending post whose scheduled time has
// passed. Posts with an in-flight transition or publish are skipped,
// not blocked on; the next sweep picks them up. One post's failure
// never aborts the sweep.
func (s *Scanner) RunDueSweep(ctx context.Context) ([]SweepResult, error) {
	var due []models.PostModel
	err := s.db.Where("publish_state = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
		models.PublishPending, s.now()).
		Order("scheduled_at ASC").
		Find(&due).Error
	if err != nil {
		return nil, err
	}

	out := make([]SweepResult, 0, len(due))
	for i := range due {
		post := &due[i]
		key := "post:" + post.ID
		if !s.locks.TryLock(key) {
			out = append(out, SweepResult{PostID: post.ID, Skipped: true})
			continue
		}

		// The selection above ran before the lock was held, so another
		// sweep may have settled this post in the meantime. Re-check
		// under the lock before dispatching.
		fresh, err := s.reloadPending(post.ID)
		if err != nil {
			s.locks.Unlock(key)
			s.log.Error("sweep reload failed", zap.String("post_id", post.ID), zap.Error(err))
			out = append(out, SweepResult{PostID: post.ID, Results: map[string]platform.Result{}})
			continue
		}
		if fresh == nil {
			s.locks.Unlock(key)
			out = append(out, SweepResult{PostID: post.ID, Skipped: true})
			continue
		}

		results, err := s.dispatcher.Publish(ctx, fresh)
		s.locks.Unlock(key)
		if err != nil {
			s.log.Error("sweep publish failed", zap.String("post_id", post.ID), zap.Error(err))
			out = append(out, SweepResult{PostID: post.ID, Results: map[string]platform.Result{}})
			continue
		}
		out = append(out, SweepResult{PostID: post.ID, Results: results})
	}

	if len(due) > 0 {
		s.log.Info("due sweep complete", zap.Int("due", len(due)))
	}
	return out, nil
}

// ForcePublishAll publishes every pending post regardless of schedule.
func (s *Scanner) ForcePublishAll(ctx context.Context) (SweepSummary, error) {
	var pending []models.PostModel
	if err := s.db.Where("publish_state = ?", models.PublishPending).Find(&pending).Error; err != nil {
		return SweepSummary{}, err
	}

	var summary SweepSummary
	for i := range pending {
		post := &pending[i]
		key := "post:" + post.ID
		s.locks.Lock(key)
		fresh, err := s.reloadPending(post.ID)
		if err != nil || fresh == nil {
			s.locks.Unlock(key)
			if err != nil {
				summary.Total++
				summary.Failed++
			}
			continue
		}
		results, err := s.dispatcher.Publish(ctx, fresh)
		s.locks.Unlock(key)
		summary.Total++
		if err != nil {
			summary.Failed++
			continue
		}
		if allSucceeded(results) {
			summary.Published++
		} else {
			summary.Failed++
		}
	}
	return summary, nil
}

// reloadPending fetches the post again under the per-post lock. Returns
// nil when the post is gone or another worker already settled it.
func (s *Scanner) reloadPending(postID string) (*models.PostModel, error) {
	var post models.PostModel
	err := s.db.First(&post, "id = ?", postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if post.PublishState != models.PublishPending {
		return nil, nil
	}
	return &post, nil
}

// PublishNow publishes a single post immediately, blocking on the
// per-post lock so it never races a transition or a sweep.
func (s *Scanner) PublishNow(ctx context.Context, postID string) (map[string]platform.Result, error) {
	key := "post:" + postID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	var post models.PostModel
	if err := s.db.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.dispatcher.Publish(ctx, &post)
}

func allSucceeded(results map[string]platform.Result) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}
