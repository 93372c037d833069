package replication

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"stallpos/terminal/internal/domain"
)

// RedisTransport fans replication messages out over a pub/sub channel
// shared by all terminals of one stall namespace. Pub/sub keeps no
// history, so a terminal that was offline calls Resync against the
// poll transport or simply converges from the next updates.
type RedisTransport struct {
	client  *redis.Client
	channel string
	log     *logrus.Entry

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisTransport(addr string, password string, db int, namespace string, log *logrus.Entry) (*RedisTransport, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisTransport{
		client:  client,
		channel: "stallpos:" + namespace,
		log:     log,
	}, nil
}

func (t *RedisTransport) Publish(ctx context.Context, msg domain.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return t.client.Publish(ctx, t.channel, payload).Err()
}

func (t *RedisTransport) Subscribe(h Handler) {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})

	sub := t.client.Subscribe(ctx, t.channel)
	go func() {
		defer close(t.done)
		defer func() { _ = sub.Close() }()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				var msg domain.Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					t.log.WithError(err).Warn("dropping malformed replication message")
					continue
				}
				h(ctx, msg)
			}
		}
	}()
}

func (t *RedisTransport) Resync(context.Context) ([]domain.Message, error) {
	return nil, nil
}

func (t *RedisTransport) Close() error {
	if t.cancel != nil {
		t.cancel()
		<-t.done
	}
	return t.client.Close()
}
