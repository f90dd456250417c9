package queue

import (
	"context"
	"encoding/json"
	"time"

	"orderflow/internal/pkg/config"
	"orderflow/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const replacementQueueKey = "orderflow:replacements:queue"

// Priority bands for replacement jobs. Lower scores drain first.
const (
	PriorityManual    float64 = 0
	PriorityScheduled float64 = 10
)

// ReplacementJob is the unit of work drained by the replacement pipeline.
// The serialized job is the ZSET member, so the struct must stay fully
// deterministic for a given JobID: re-enqueueing the same job is then a
// no-op, which keeps repeated run_now requests from stacking duplicate work.
type ReplacementJob struct {
	JobID         string    `json:"job_id"`
	ReplacementID uuid.UUID `json:"replacement_id"`
	OrderID       uuid.UUID `json:"order_id"`
}

func NewClient(cfg config.RedisConfig) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, errs.Wrap(err, "failed to ping redis")
	}

	cleanup := func() { _ = client.Close() }
	return client, cleanup, nil
}

// ReplacementQueue is a priority queue over a Redis sorted set. Members are
// serialized jobs, scores are priority bands, and draining pops atomically so
// concurrent sweeps never claim the same job.
type ReplacementQueue struct {
	client *redis.Client
}

func NewReplacementQueue(client *redis.Client) *ReplacementQueue {
	return &ReplacementQueue{client: client}
}

func (q *ReplacementQueue) Enqueue(ctx context.Context, job ReplacementJob, priority float64) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return errs.Wrap(err, "failed to encode replacement job")
	}
	err = q.client.ZAddNX(ctx, replacementQueueKey, redis.Z{
		Score:  priority,
		Member: string(payload),
	}).Err()
	if err != nil {
		return errs.Wrap(err, "failed to enqueue replacement job")
	}
	return nil
}

// Claim pops up to n jobs in priority order. Claimed jobs are gone from the
// queue; a worker crash loses them, and the next data_limite sweep or a
// manual run_now re-enqueues the work.
func (q *ReplacementQueue) Claim(ctx context.Context, n int) ([]ReplacementJob, error) {
	popped, err := q.client.ZPopMin(ctx, replacementQueueKey, int64(n)).Result()
	if err != nil {
		return nil, errs.Wrap(err, "failed to claim replacement jobs")
	}

	jobs := make([]ReplacementJob, 0, len(popped))
	for _, z := range popped {
		raw, ok := z.Member.(string)
		if !ok {
			continue
		}
		var job ReplacementJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			// A malformed member is dropped rather than poisoning the drain.
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (q *ReplacementQueue) Depth(ctx context.Context) (int64, error) {
	depth, err := q.client.ZCard(ctx, replacementQueueKey).Result()
	if err != nil {
		return 0, errs.Wrap(err, "failed to read queue depth")
	}
	return depth, nil
}

// Purge drops every queued job. Admin-only remediation for a wedged queue.
func (q *ReplacementQueue) Purge(ctx context.Context) (int64, error) {
	depth, err := q.client.ZCard(ctx, replacementQueueKey).Result()
	if err != nil {
		return 0, errs.Wrap(err, "failed to read queue depth before purge")
	}
	if err := q.client.Del(ctx, replacementQueueKey).Err(); err != nil {
		return 0, errs.Wrap(err, "failed to purge replacement queue")
	}
	return depth, nil
}
