// Package queue provides a Redis Streams transport for generation tasks, an
// alternative to the database-backed task store for multi-node deployments.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/helixml/snippets/domain/task"
	"github.com/redis/go-redis/v9"
)

// Defaults for RedisConfig.
const (
	DefaultStream    = "snippets:generation"
	DefaultGroup     = "snippets"
	DefaultClaimIdle = 5 * time.Minute
	DefaultMaxLen    = 10000
)

// RedisConfig configures a RedisTaskStore.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Stream    string
	Group     string
	Consumer  string
	ClaimIdle time.Duration
	MaxLen    int64
}

// RedisTaskStore implements task.TaskStore on a Redis stream with a consumer
// group. Delivered but unacknowledged tasks are reclaimed after ClaimIdle, so
// a crashed worker's task runs again. Streams are FIFO; priority is recorded
// but does not reorder delivery.
type RedisTaskStore struct {
	client    *redis.Client
	stream    string
	group     string
	consumer  string
	claimIdle time.Duration
	maxLen    int64
}

// NewRedisTaskStore connects to Redis and ensures the consumer group exists.
func NewRedisTaskStore(ctx context.Context, cfg RedisConfig) (*RedisTaskStore, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})
	return NewRedisTaskStoreWithClient(ctx, client, cfg)
}

// NewRedisTaskStoreWithClient creates a RedisTaskStore on an existing client.
func NewRedisTaskStoreWithClient(ctx context.Context, client *redis.Client, cfg RedisConfig) (*RedisTaskStore, error) {
	s := &RedisTaskStore{
		client:    client,
		stream:    orDefault(cfg.Stream, DefaultStream),
		group:     orDefault(cfg.Group, DefaultGroup),
		consumer:  orDefault(cfg.Consumer, "worker-"+uuid.NewString()),
		claimIdle: cfg.ClaimIdle,
		maxLen:    cfg.MaxLen,
	}
	if s.claimIdle <= 0 {
		s.claimIdle = DefaultClaimIdle
	}
	if s.maxLen <= 0 {
		s.maxLen = DefaultMaxLen
	}

	err := client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return s, nil
}

// Close closes the Redis client.
func (s *RedisTaskStore) Close() error {
	return s.client.Close()
}

// Save appends a task to the stream. A task whose dedup key is already queued
// is not appended again; the queued task is returned instead.
func (s *RedisTaskStore) Save(ctx context.Context, t task.Task) (task.Task, error) {
	id, err := s.client.Incr(ctx, s.key("seq")).Result()
	if err != nil {
		return task.Task{}, fmt.Errorf("allocate task id: %w", err)
	}
	now := time.Now().UTC()
	t = task.NewTaskWithID(id, t.DedupKey(), t.Operation(), t.Priority(), t.Payload(), t.Attempts(), now, now)

	fields, err := encode(t)
	if err != nil {
		return task.Task{}, err
	}

	claimed, err := s.client.SetNX(ctx, s.dedupKey(t.DedupKey()), id, 0).Result()
	if err != nil {
		return task.Task{}, fmt.Errorf("reserve dedup key: %w", err)
	}
	if !claimed {
		return s.queued(ctx, t.DedupKey())
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.taskKey(id), fields)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{"task_id": id},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		_ = s.client.Del(ctx, s.dedupKey(t.DedupKey())).Err()
		return task.Task{}, fmt.Errorf("enqueue task: %w", err)
	}
	return t, nil
}

// Dequeue hands out one task: first any delivery idle for longer than the
// claim timeout, then the next new message.
func (s *RedisTaskStore) Dequeue(ctx context.Context) (task.Task, bool, error) {
	msgs, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   s.stream,
		Group:    s.group,
		Consumer: s.consumer,
		MinIdle:  s.claimIdle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return task.Task{}, false, fmt.Errorf("claim idle task: %w", err)
	}

	if len(msgs) == 0 {
		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  []string{s.stream, ">"},
			Count:    1,
			Block:    -1,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return task.Task{}, false, nil
			}
			return task.Task{}, false, fmt.Errorf("read task: %w", err)
		}
		for _, stream := range streams {
			msgs = append(msgs, stream.Messages...)
		}
	}
	if len(msgs) == 0 {
		return task.Task{}, false, nil
	}

	msg := msgs[0]
	t, err := s.load(ctx, msg)
	if err != nil {
		// Undecodable messages would be redelivered forever.
		s.ack(ctx, msg.ID)
		return task.Task{}, false, err
	}
	return t.WithReceipt(msg.ID), true, nil
}

// Delete acknowledges the delivery and forgets the task.
func (s *RedisTaskStore) Delete(ctx context.Context, t task.Task) error {
	pipe := s.client.TxPipeline()
	if t.Receipt() != "" {
		pipe.XAck(ctx, s.stream, s.group, t.Receipt())
		pipe.XDel(ctx, s.stream, t.Receipt())
	}
	pipe.Del(ctx, s.taskKey(t.ID()))
	pipe.Del(ctx, s.dedupKey(t.DedupKey()))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// CountPending returns the number of tasks in the stream, delivered or not.
func (s *RedisTaskStore) CountPending(ctx context.Context) (int64, error) {
	n, err := s.client.XLen(ctx, s.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("count pending tasks: %w", err)
	}
	return n, nil
}

func (s *RedisTaskStore) queued(ctx context.Context, dedupKey string) (task.Task, error) {
	raw, err := s.client.Get(ctx, s.dedupKey(dedupKey)).Result()
	if err != nil {
		return task.Task{}, fmt.Errorf("read dedup key: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return task.Task{}, fmt.Errorf("parse task id %q: %w", raw, err)
	}
	return s.get(ctx, id)
}

func (s *RedisTaskStore) load(ctx context.Context, msg redis.XMessage) (task.Task, error) {
	raw, _ := msg.Values["task_id"].(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return task.Task{}, fmt.Errorf("message %s: invalid task id %q", msg.ID, raw)
	}
	return s.get(ctx, id)
}

func (s *RedisTaskStore) get(ctx context.Context, id int64) (task.Task, error) {
	data, err := s.client.HGetAll(ctx, s.taskKey(id)).Result()
	if err != nil {
		return task.Task{}, fmt.Errorf("read task %d: %w", id, err)
	}
	if len(data) == 0 {
		return task.Task{}, fmt.Errorf("task %d: not found", id)
	}
	return decode(id, data)
}

func (s *RedisTaskStore) ack(ctx context.Context, msgID string) {
	_, _ = s.client.XAck(ctx, s.stream, s.group, msgID).Result()
	_, _ = s.client.XDel(ctx, s.stream, msgID).Result()
}

func (s *RedisTaskStore) key(suffix string) string {
	return s.stream + ":" + suffix
}

func (s *RedisTaskStore) taskKey(id int64) string {
	return s.key("task:" + strconv.FormatInt(id, 10))
}

func (s *RedisTaskStore) dedupKey(dedupKey string) string {
	return s.key("dedup:" + dedupKey)
}

func encode(t task.Task) (map[string]any, error) {
	payload, err := t.PayloadJSON()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return map[string]any{
		"dedup_key":  t.DedupKey(),
		"type":       t.Operation().String(),
		"priority":   strconv.Itoa(t.Priority()),
		"attempts":   strconv.Itoa(t.Attempts()),
		"payload":    string(payload),
		"created_at": t.CreatedAt().Format(time.RFC3339Nano),
	}, nil
}

func decode(id int64, data map[string]string) (task.Task, error) {
	payload := map[string]any{}
	if err := json.Unmarshal([]byte(data["payload"]), &payload); err != nil {
		return task.Task{}, fmt.Errorf("decode payload of task %d: %w", id, err)
	}
	priority, _ := strconv.Atoi(data["priority"])
	attempts, _ := strconv.Atoi(data["attempts"])
	createdAt, _ := time.Parse(time.RFC3339Nano, data["created_at"])
	return task.NewTaskWithID(
		id,
		data["dedup_key"],
		task.Operation(data["type"]),
		priority,
		payload,
		attempts,
		createdAt,
		createdAt,
	), nil
}

func orDefault(v, fallback string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return fallback
}

var _ task.TaskStore = (*RedisTaskStore)(nil)
