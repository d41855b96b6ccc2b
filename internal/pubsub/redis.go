package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroker implements Broker on redis pub/sub. One redis subscription is
// held per topic; local handlers fan in on it and are reference-counted so
// the subscription is torn down when the last handler unsubscribes.
type RedisBroker struct {
	client *redis.Client
	log    *zap.Logger

	mu     sync.Mutex
	topics map[string]*redisTopic
	closed bool
}

type redisTopic struct {
	sub      *redis.PubSub
	cancel   context.CancelFunc
	handlers map[int64]Handler
	nextID   int64
}

// NewRedisBroker connects to redis and verifies the connection.
func NewRedisBroker(host, port, password string, log *zap.Logger) (*RedisBroker, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}
	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("✅ Redis broker connected", zap.String("address", addr))

	return &RedisBroker{
		client: client,
		log:    log,
		topics: make(map[string]*redisTopic),
	}, nil
}

// Subscribe attaches handler to topic, opening the redis subscription on
// first use.
func (b *RedisBroker) Subscribe(topic string, handler Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	rt, ok := b.topics[topic]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		sub := b.client.Subscribe(ctx, topic)
		rt = &redisTopic{
			sub:      sub,
			cancel:   cancel,
			handlers: make(map[int64]Handler),
		}
		b.topics[topic] = rt
		go b.receiveLoop(topic, rt, ctx)
	}

	id := rt.nextID
	rt.nextID++
	rt.handlers[id] = handler

	return func() { b.unsubscribe(topic, id) }, nil
}

func (b *RedisBroker) unsubscribe(topic string, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rt, ok := b.topics[topic]
	if !ok {
		return
	}
	delete(rt.handlers, id)
	if len(rt.handlers) == 0 {
		rt.cancel()
		_ = rt.sub.Close()
		delete(b.topics, topic)
	}
}

// receiveLoop delivers redis messages to the topic's handlers until the
// subscription is torn down.
func (b *RedisBroker) receiveLoop(topic string, rt *redisTopic, ctx context.Context) {
	ch := rt.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("Dropping malformed pubsub event",
					zap.String("topic", topic),
					zap.Error(err),
				)
				continue
			}
			b.mu.Lock()
			handlers := make([]Handler, 0, len(rt.handlers))
			for _, h := range rt.handlers {
				handlers = append(handlers, h)
			}
			b.mu.Unlock()
			for _, h := range handlers {
				h(ev)
			}
		}
	}
}

// Publish sends event to topic as JSON.
func (b *RedisBroker) Publish(ctx context.Context, topic string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return b.client.Publish(ctx, topic, payload).Err()
}

// Close tears down all subscriptions and the redis connection.
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for topic, rt := range b.topics {
		rt.cancel()
		_ = rt.sub.Close()
		delete(b.topics, topic)
	}
	return b.client.Close()
}
