package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	redisc "github.com/social-agent/core/internal/pkg/redis"
)

// JobStatus represents the lifecycle state of a background job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job is a unit of background work tracked in Redis. Publish sweeps and
// manual force-publish runs enqueue one job each so operators can audit
// what ran and with what outcome.
type Job struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    JobStatus       `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	DedupKey  string          `json:"dedup_key,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const (
	keyPrefix   = "sa:job:"
	keyIndex    = "sa:jobs:index"  // sorted set: score=created_at, member=job_id
	keyDedupSet = "sa:jobs:dedup:" // hash: dedup_key -> job_id
	jobTTL      = 7 * 24 * time.Hour
)

// Service manages the Redis-backed job tracker.
type Service struct {
	rc *redisc.Client
}

func NewService(rc *redisc.Client) *Service {
	return &Service{rc: rc}
}

func (s *Service) jobKey(id string) string { return keyPrefix + id }

// Enqueue records a new job, respecting deduplication. A non-empty
// dedupKey collapses concurrent enqueues of the same logical work onto
// the already-tracked job.
func (s *Service) Enqueue(ctx context.Context, jobType string, payload interface{}, dedupKey string) (*Job, error) {
	if dedupKey != "" {
		existing, err := s.rc.Raw().HGet(ctx, keyDedupSet+jobType, dedupKey).Result()
		if err == nil && existing != "" {
			return s.GetByID(ctx, existing)
		}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payloadBytes,
		Status:    JobPending,
		DedupKey:  dedupKey,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}

	pipe := s.rc.Raw().TxPipeline()
	pipe.Set(ctx, s.jobKey(job.ID), data, jobTTL)
	pipe.ZAdd(ctx, keyIndex, redis.Z{
		Score:  float64(job.CreatedAt.UnixMilli()),
		Member: job.ID,
	})
	if dedupKey != "" {
		pipe.HSet(ctx, keyDedupSet+jobType, dedupKey, job.ID)
		pipe.Expire(ctx, keyDedupSet+jobType, jobTTL)
	}
	_, err = pipe.Exec(ctx)
	return job, err
}

// GetByID retrieves a job by its ID. Returns (nil, nil) when not found.
func (s *Service) GetByID(ctx context.Context, id string) (*Job, error) {
	data, err := s.rc.Raw().Get(ctx, s.jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job Job
	return &job, json.Unmarshal(data, &job)
}

// UpdateStatus sets a job's status and optional result/error.
func (s *Service) UpdateStatus(ctx context.Context, id string, status JobStatus, result interface{}, errMsg string) error {
	job, err := s.GetByID(ctx, id)
	if err != nil || job == nil {
		return fmt.Errorf("job not found")
	}

	job.Status = status
	job.UpdatedAt = time.Now()
	job.Error = errMsg

	if result != nil {
		job.Result, _ = json.Marshal(result)
	}

	if (status == JobCompleted || status == JobFailed || status == JobCancelled) && job.DedupKey != "" {
		s.rc.Raw().HDel(ctx, keyDedupSet+job.Type, job.DedupKey)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.rc.Raw().Set(ctx, s.jobKey(id), data, jobTTL).Err()
}

// List returns jobs matching optional filters, newest first.
func (s *Service) List(ctx context.Context, page, size int, jobType *string, status *JobStatus) ([]*Job, int64, error) {
	ids, err := s.rc.Raw().ZRevRange(ctx, keyIndex, 0, -1).Result()
	if err != nil {
		return nil, 0, err
	}

	var jobs []*Job
	for _, id := range ids {
		job, err := s.GetByID(ctx, id)
		if err != nil || job == nil {
			continue
		}
		if jobType != nil && job.Type != *jobType {
			continue
		}
		if status != nil && job.Status != *status {
			continue
		}
		jobs = append(jobs, job)
	}

	total := int64(len(jobs))
	start := (page - 1) * size
	end := start + size
	if start >= len(jobs) {
		return []*Job{}, total, nil
	}
	if end > len(jobs) {
		end = len(jobs)
	}
	return jobs[start:end], total, nil
}

// DeleteCompleted removes completed/failed/cancelled jobs created
// before beforeMS (unix millis; 0 means all).
func (s *Service) DeleteCompleted(ctx context.Context, beforeMS int64) error {
	ids, _ := s.rc.Raw().ZRange(ctx, keyIndex, 0, -1).Result()
	pipe := s.rc.Raw().TxPipeline()
	for _, id := range ids {
		job, err := s.GetByID(ctx, id)
		if err != nil || job == nil {
			continue
		}
		if job.Status != JobCompleted && job.Status != JobFailed && job.Status != JobCancelled {
			continue
		}
		if beforeMS > 0 && job.CreatedAt.UnixMilli() >= beforeMS {
			continue
		}
		pipe.Del(ctx, s.jobKey(id))
		pipe.ZRem(ctx, keyIndex, id)
		if job.DedupKey != "" {
			pipe.HDel(ctx, keyDedupSet+job.Type, job.DedupKey)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}
