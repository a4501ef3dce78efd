package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/maauso/wanvideo-api/internal/generation"
	"github.com/maauso/wanvideo-api/internal/wan"
)

// Compile-time check that RedisRepository implements Repository.
var _ Repository = (*RedisRepository)(nil)

// DefaultKeyPrefix namespaces all keys written by RedisRepository.
const DefaultKeyPrefix = "wanvideo"

// RedisRepository stores sessions as JSON strings with a TTL and indexes them
// per user in a sorted set scored by creation time.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisRepository creates a repository on top of client. A zero ttl keeps
// sessions forever.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{
		client: client,
		ttl:    ttl,
		prefix: DefaultKeyPrefix,
	}
}

// record is the persisted form of a Job.
type record struct {
	ID             string           `json:"id"`
	UserID         string           `json:"userId,omitempty"`
	Mode           wan.Mode         `json:"mode"`
	Prompt         string           `json:"prompt,omitempty"`
	NegativePrompt string           `json:"negativePrompt,omitempty"`
	Resolution     wan.Resolution   `json:"resolution,omitempty"`
	AspectRatio    wan.AspectRatio  `json:"aspectRatio,omitempty"`
	ImageURL       string           `json:"imageUrl,omitempty"`
	Handle         wan.TaskHandle   `json:"handle"`
	Status         generation.State `json:"status"`
	Progress       int              `json:"progress"`
	Attempts       int              `json:"attempts"`
	VideoURL       string           `json:"videoUrl,omitempty"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	CompletedAt    time.Time        `json:"completedAt,omitzero"`
}

func toRecord(j *Job) record {
	c := j.Clone()
	return record{
		ID:             c.ID,
		UserID:         c.UserID,
		Mode:           c.Mode,
		Prompt:         c.Prompt,
		NegativePrompt: c.NegativePrompt,
		Resolution:     c.Resolution,
		AspectRatio:    c.AspectRatio,
		ImageURL:       c.ImageURL,
		Handle:         c.Handle,
		Status:         c.Status,
		Progress:       c.Progress,
		Attempts:       c.Attempts,
		VideoURL:       c.VideoURL,
		Error:          c.Error,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		CompletedAt:    c.CompletedAt,
	}
}

func (r record) toJob() *Job {
	return &Job{
		ID:             r.ID,
		UserID:         r.UserID,
		Mode:           r.Mode,
		Prompt:         r.Prompt,
		NegativePrompt: r.NegativePrompt,
		Resolution:     r.Resolution,
		AspectRatio:    r.AspectRatio,
		ImageURL:       r.ImageURL,
		Handle:         r.Handle,
		Status:         r.Status,
		Progress:       r.Progress,
		Attempts:       r.Attempts,
		VideoURL:       r.VideoURL,
		Error:          r.Error,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		CompletedAt:    r.CompletedAt,
	}
}

func (r *RedisRepository) jobKey(id string) string {
	return r.prefix + ":job:" + id
}

func (r *RedisRepository) userKey(userID string) string {
	return r.prefix + ":user:" + userID + ":jobs"
}

// Save writes the job and, when it has an owner, refreshes the user index.
func (r *RedisRepository) Save(ctx context.Context, job *Job) error {
	rec := toRecord(job)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis repository: marshal %s: %w", rec.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.jobKey(rec.ID), data, r.ttl)
		if rec.UserID != "" {
			key := r.userKey(rec.UserID)
			pipe.ZAdd(ctx, key, &redis.Z{
				Score:  float64(rec.CreatedAt.UnixNano()),
				Member: rec.ID,
			})
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis repository: save %s: %w", rec.ID, err)
	}
	return nil
}

// FindByID retrieves a job by its ID.
func (r *RedisRepository) FindByID(ctx context.Context, id string) (*Job, error) {
	data, err := r.client.Get(ctx, r.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis repository: get %s: %w", id, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("redis repository: decode %s: %w", id, err)
	}
	return rec.toJob(), nil
}

// ListByUser returns the user's jobs, newest first. Index entries whose job
// has expired are pruned.
func (r *RedisRepository) ListByUser(ctx context.Context, userID string) ([]*Job, error) {
	key := r.userKey(userID)
	ids, err := r.client.ZRevRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis repository: list %s: %w", userID, err)
	}

	result := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := r.FindByID(ctx, id)
		if errors.Is(err, ErrJobNotFound) {
			r.client.ZRem(ctx, key, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, nil
}

// Delete removes a job and its user index entry.
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	job, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.jobKey(id))
		if job.UserID != "" {
			pipe.ZRem(ctx, r.userKey(job.UserID), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis repository: delete %s: %w", id, err)
	}
	return nil
}
