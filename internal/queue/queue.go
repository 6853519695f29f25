package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const QueueGenerate = "queue:generate_episode"

// Queue is a Redis-backed work queue sitting between the API (which
// registers jobs) and the worker (which executes them).
type Queue struct {
	client *redis.Client
}

type Task struct {
	JobID     uuid.UUID `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// EnqueueGenerate queues a registered job for execution.
func (q *Queue) EnqueueGenerate(ctx context.Context, jobID uuid.UUID) error {
	task := Task{JobID: jobID, CreatedAt: time.Now()}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	return q.client.RPush(ctx, QueueGenerate, data).Err()
}

// Dequeue blocks up to timeout waiting for the next task. Returns nil when
// none is available.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueGenerate).Result()
	if err == redis.Nil {
		return nil, nil // No task available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	return &task, nil
}

func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, QueueGenerate).Result()
}
