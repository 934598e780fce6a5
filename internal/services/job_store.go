package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"eventpass/internal/status"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

type ReminderJob struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	StartedBy string    `json:"startedBy"`
	Total     int       `json:"total"`
	Sent      int       `json:"sent"`
	Failed    []string  `json:"failed"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (j *ReminderJob) apply(r *ReminderReport) {
	j.Total = r.Total
	j.Sent = r.Sent
	j.Failed = append([]string{}, r.Failed...)
	j.UpdatedAt = time.Now().UTC()
}

func (j *ReminderJob) snapshot() *ReminderJob {
	cp := *j
	cp.Failed = append([]string{}, j.Failed...)
	return &cp
}

type JobStore interface {
	SaveJob(ctx context.Context, job *ReminderJob) error
	GetJob(ctx context.Context, id string) (*ReminderJob, error)
}

// RedisJobStore keeps reminder job progress in a Redis hash per job.
type RedisJobStore struct {
	Redis *redis.Client
	ttl   time.Duration
}

func NewRedisJobStore(redisClient *redis.Client, ttl time.Duration) *RedisJobStore {
	return &RedisJobStore{Redis: redisClient, ttl: ttl}
}

func jobKey(id string) string {
	return fmt.Sprintf("reminders:job:%s", id)
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job *ReminderJob) error {
	failed, err := json.Marshal(job.Failed)
	if err != nil {
		return err
	}

	key := jobKey(job.ID)
	if err := s.Redis.HSet(ctx, key,
		"state", job.State,
		"started_by", job.StartedBy,
		"total", job.Total,
		"sent", job.Sent,
		"failed", string(failed),
		"error", job.Error,
		"updated_at", job.UpdatedAt.Unix(),
	).Err(); err != nil {
		return fmt.Errorf("redis.HSet(%s) -> %w", key, err)
	}

	if err := s.Redis.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis.Expire(%s) -> %w", key, err)
	}
	return nil
}

func (s *RedisJobStore) GetJob(ctx context.Context, id string) (*ReminderJob, error) {
	data, err := s.Redis.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.HGetAll -> %w", err)
	}
	if len(data) == 0 {
		return nil, status.ErrJobNotFound
	}

	job := &ReminderJob{
		ID:        id,
		State:     data["state"],
		StartedBy: data["started_by"],
		Error:     data["error"],
		Failed:    []string{},
	}
	job.Total, _ = strconv.Atoi(data["total"])
	job.Sent, _ = strconv.Atoi(data["sent"])
	if ts, err := strconv.ParseInt(data["updated_at"], 10, 64); err == nil {
		job.UpdatedAt = time.Unix(ts, 0).UTC()
	}
	if raw := data["failed"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &job.Failed); err != nil {
			return nil, fmt.Errorf("decode failed recipients: %w", err)
		}
	}

	return job, nil
}
