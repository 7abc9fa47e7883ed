package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/taskmaster/internal/logging"
)

const (
	redisChannelPrefix = "taskmaster:tasks:"
	redisSeqKey        = "taskmaster:realtime:seq"
)

// RedisSequencer allocates sequence numbers with INCR so every instance
// shares one ordering.
type RedisSequencer struct {
	client *redis.Client
	key    string
}

func NewRedisSequencer(client *redis.Client) *RedisSequencer {
	return &RedisSequencer{client: client, key: redisSeqKey}
}

func (s *RedisSequencer) Next(ctx context.Context) (uint64, error) {
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate change sequence: %w", err)
	}
	return uint64(n), nil
}

func (s *RedisSequencer) Current(ctx context.Context) (uint64, error) {
	n, err := s.client.Get(ctx, s.key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read change sequence: %w", err)
	}
	return n, nil
}

// RedisBroker publishes changes on per-owner Redis channels. Every instance
// pattern-subscribes to all owners and delivers through its local Hub.
type RedisBroker struct {
	client *redis.Client
	seq    *RedisSequencer
	hub    *Hub
	pubsub *redis.PubSub
	log    logging.Logger
	done   chan struct{}
}

func NewRedisBroker(ctx context.Context, client *redis.Client, log logging.Logger) (*RedisBroker, error) {
	seq := NewRedisSequencer(client)
	pubsub := client.PSubscribe(ctx, redisChannelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to change channels: %w", err)
	}

	b := &RedisBroker{
		client: client,
		seq:    seq,
		hub:    newHub(seq),
		pubsub: pubsub,
		log:    log.With("component", "realtime.redis"),
		done:   make(chan struct{}),
	}
	go b.run()
	return b, nil
}

func (b *RedisBroker) run() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		c, err := decodeChange([]byte(msg.Payload))
		if err != nil {
			b.log.Warn(context.Background(), "dropping malformed change", "channel", msg.Channel, "error", err)
			continue
		}
		if err := b.hub.deliver(c); err != nil {
			return
		}
	}
}

func (b *RedisBroker) Publish(ctx context.Context, c Change) (uint64, error) {
	seq, err := b.seq.Next(ctx)
	if err != nil {
		return 0, err
	}
	c.Seq = seq
	if c.Table == "" {
		c.Table = TasksTable
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("failed to encode change: %w", err)
	}
	if err := b.client.Publish(ctx, redisChannelPrefix+c.UserID, payload).Err(); err != nil {
		return 0, fmt.Errorf("failed to publish change: %w", err)
	}
	return seq, nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	return b.hub.Subscribe(ctx, userID)
}

func (b *RedisBroker) Seq(ctx context.Context) (uint64, error) {
	return b.seq.Current(ctx)
}

func (b *RedisBroker) Close() error {
	err := b.pubsub.Close()
	<-b.done
	b.hub.Close()
	return err
}

func decodeChange(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, err
	}
	if c.UserID == "" {
		return Change{}, errors.New("change without owner")
	}
	return c, nil
}
