package mirror

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Relay mirrors bus traffic through a Redis channel so several server
// processes sharing one mirror database see each other's writes.
type Relay struct {
	rdb     *redis.Client
	channel string
	store   *Store
	log     *slog.Logger
}

func NewRelay(rdb *redis.Client, channel string, store *Store, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{rdb: rdb, channel: channel, store: store, log: log.With("component", "mirror_relay")}
}

func encodeChange(c Change) (string, error) {
	raw, err := json.Marshal(c)
	return string(raw), err
}

func decodeChange(payload string) (Change, error) {
	var c Change
	err := json.Unmarshal([]byte(payload), &c)
	return c, err
}

// Run blocks until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	self := r.store.Instance()
	stop := r.store.Bus().Subscribe(func(c Change) {
		if c.Origin != self {
			return
		}
		payload, err := encodeChange(c)
		if err != nil {
			r.log.Error("relay_encode_error", "key", c.Key, "error", err)
			return
		}
		if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
			r.log.Warn("relay_publish_error", "key", c.Key, "error", err)
		}
	})
	defer stop()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			c, err := decodeChange(msg.Payload)
			if err != nil {
				r.log.Warn("relay_decode_error", "error", err)
				continue
			}
			if c.Origin == self {
				continue
			}
			r.store.Bus().Publish(c)
		}
	}
}
