package prefs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Change lists the keys touched by one edit.
type Change struct {
	Keys []string
}

// Touches reports whether c includes any of keys.
func (c Change) Touches(keys ...string) bool {
	for _, k := range c.Keys {
		for _, want := range keys {
			if k == want {
				return true
			}
		}
	}
	return false
}

// Store is a durable key/value capability. Edit is atomic across all keys it
// names; a nil value deletes the key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Edit(ctx context.Context, changes map[string]*string) error
	Watch(ctx context.Context) (<-chan Change, error)
	Close() error
}

// Options carries backend specific settings for Open.
type Options struct {
	Path      string
	Namespace string
	Redis     *redis.Client
}

// Open builds the store selected by backend.
func Open(backend string, opts Options, log logrus.FieldLogger) (Store, error) {
	switch backend {
	case "memory":
		return NewMemory(), nil
	case "sqlite", "":
		s, err := OpenSQLite(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		if opts.Redis == nil {
			return nil, fmt.Errorf("prefs: redis backend needs a client")
		}
		return NewRedis(opts.Redis, opts.Namespace, log), nil
	default:
		return nil, fmt.Errorf("prefs: unknown backend %q", backend)
	}
}

func sortedKeys(changes map[string]*string) []string {
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// hub fans changes out to in-process watchers. Undelivered changes are
// merged so a slow watcher never misses a key.
type hub struct {
	mu   sync.Mutex
	subs map[int]chan Change
	next int
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Change)}
}

func (h *hub) subscribe(ctx context.Context) <-chan Change {
	ch := make(chan Change, 1)
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
		h.mu.Unlock()
	}()
	return ch
}

func (h *hub) publish(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		out := c
		select {
		case prev := <-ch:
			out = Change{Keys: mergeKeys(prev.Keys, c.Keys)}
		default:
		}
		ch <- out
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

func mergeKeys(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, k := range append(append([]string{}, a...), b...) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
