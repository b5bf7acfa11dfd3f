package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// TaskDescriptor is the payload handed to the external worker pool.
type TaskDescriptor struct {
	TaskID    string   `json:"task_id"`
	ProjectID string   `json:"project_id"`
	VideoURL  string   `json:"video_url"`
	Languages []string `json:"languages"`
}

// Publisher hands a claimed task to a durable queue. The dispatcher treats a
// nil Publisher as "no queue configured" and keeps serving polls.
type Publisher interface {
	Publish(ctx context.Context, task TaskDescriptor) error
}

// RedisPublisher pushes task descriptors onto a Redis list consumed by the
// worker pool.
type RedisPublisher struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

func NewRedisPublisher(addr, key string) *RedisPublisher {
	return &RedisPublisher{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		key:     key,
		timeout: 2 * time.Second,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, task TaskDescriptor) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.client.LPush(ctx, p.key, payload).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
