package prefs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis keeps preferences under a key namespace and announces every edit on
// a pub/sub channel, so other processes sharing the instance observe it too.
type Redis struct {
	client *redis.Client
	ns     string
	log    logrus.FieldLogger
}

// NewRedis wraps client. Keys are stored as "<namespace>:<key>".
func NewRedis(client *redis.Client, namespace string, log logrus.FieldLogger) *Redis {
	if namespace == "" {
		namespace = "timesheet_prefs"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Redis{client: client, ns: namespace, log: log}
}

func (r *Redis) key(k string) string { return r.ns + ":" + k }

func (r *Redis) channel() string { return r.ns + ":changes" }

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("prefs: get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *Redis) Edit(ctx context.Context, changes map[string]*string) error {
	keys := sortedKeys(changes)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			if v := changes[k]; v == nil {
				pipe.Del(ctx, r.key(k))
			} else {
				pipe.Set(ctx, r.key(k), *v, 0)
			}
		}
		pipe.Publish(ctx, r.channel(), strings.Join(keys, ","))
		return nil
	})
	if err != nil {
		return fmt.Errorf("prefs: edit: %w", err)
	}
	return nil
}

func (r *Redis) Watch(ctx context.Context) (<-chan Change, error) {
	sub := r.client.Subscribe(ctx, r.channel())
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("prefs: subscribe: %w", err)
	}

	out := make(chan Change, 1)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Close(); err != nil {
				r.log.WithError(err).Warn("close preference subscription")
			}
			r.log.WithField("channel", r.channel()).Debug("preference watch stopped")
		}()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				change := Change{Keys: strings.Split(msg.Payload, ",")}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close is a no-op; the client belongs to the caller.
func (r *Redis) Close() error { return nil }
