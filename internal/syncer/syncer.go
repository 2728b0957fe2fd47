// Package syncer turns application intents into store calls. A Synchronizer
// serializes the calls made against one collection and bounds each by a
// timeout; a LiveView keeps the current contents of a collection.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mindlab/cardshop/internal/events"
	"github.com/mindlab/cardshop/internal/store"
)

const DefaultTimeout = 10 * time.Second

var ErrTimeout = errors.New("syncer: operation timed out")

type Option func(*options)

type options struct {
	timeout time.Duration
	events  events.Publisher
	log     *slog.Logger
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithEvents(p events.Publisher) Option {
	return func(o *options) {
		if p != nil {
			o.events = p
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{timeout: DefaultTimeout, events: events.Discard{}, log: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

type Synchronizer[T store.Entity] struct {
	name  string
	store store.Store[T]
	opts  options

	mu   sync.Mutex
	view *LiveView[T]
}

func New[T store.Entity](name string, s store.Store[T], opts ...Option) *Synchronizer[T] {
	return &Synchronizer[T]{name: name, store: s, opts: buildOptions(opts)}
}

func (s *Synchronizer[T]) Name() string { return s.name }

func (s *Synchronizer[T]) Store() store.Store[T] { return s.store }

// Bind attaches the live view that deletions of the last entity must warn.
func (s *Synchronizer[T]) Bind(v *LiveView[T]) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

// do runs fn with the collection lock held, so calls apply in the order they
// were issued, and with the configured timeout.
func (s *Synchronizer[T]) do(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w after %s: %v", s.name, ErrTimeout, s.opts.timeout, err)
	}
	return err
}

func (s *Synchronizer[T]) publish(e events.Event) {
	e.Collection = s.name
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.opts.events.Publish(ctx, e); err != nil {
		s.opts.log.Warn("event_publish_error", "collection", s.name, "type", e.Type, "error", err)
	}
}

// Upsert merges f into the entity stored under key, creating it if needed.
func (s *Synchronizer[T]) Upsert(ctx context.Context, key string, f store.Fields) (T, error) {
	var out T
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.store.Upsert(ctx, key, f)
		return err
	})
	if err != nil {
		return out, err
	}
	s.publish(events.Event{Type: events.TypeUpserted, Key: key})
	return out, nil
}

func (s *Synchronizer[T]) BulkUpsert(ctx context.Context, rows []store.Fields) (int, error) {
	var n int
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.store.BulkUpsert(ctx, rows)
		return err
	})
	if n > 0 {
		s.publish(events.Event{Type: events.TypeBulkLoaded, Count: n})
	}
	return n, err
}

// Remove hard-deletes one entity. Removing the last one arms the bound view's
// allow-empty flag first, so the empty delivery that follows is not mistaken
// for a collection that needs reseeding.
func (s *Synchronizer[T]) Remove(ctx context.Context, key string) error {
	return s.remove(ctx, key, func(ctx context.Context) error { return s.store.Remove(ctx, key) }, func(item T) bool {
		return item.Key() == key
	})
}

// RemoveDocument deletes by remote document id.
func (s *Synchronizer[T]) RemoveDocument(ctx context.Context, docID string) error {
	return s.remove(ctx, docID, func(ctx context.Context) error { return s.store.RemoveDocument(ctx, docID) }, nil)
}

func (s *Synchronizer[T]) remove(ctx context.Context, key string, del func(context.Context) error, isTarget func(T) bool) error {
	err := s.do(ctx, func(ctx context.Context) error {
		armed := false
		if s.view != nil {
			items, err := s.store.List(ctx)
			if err != nil {
				return err
			}
			if len(items) == 1 && (isTarget == nil || isTarget(items[0])) {
				s.view.AllowEmpty()
				armed = true
			}
		}
		if err := del(ctx); err != nil {
			if armed {
				s.view.disarm()
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(events.Event{Type: events.TypeRemoved, Key: key})
	return nil
}

// RemoveAll deletes the whole collection. Callers confirm twice before calling.
func (s *Synchronizer[T]) RemoveAll(ctx context.Context) error {
	err := s.do(ctx, func(ctx context.Context) error {
		if s.view != nil {
			s.view.AllowEmpty()
		}
		if err := s.store.RemoveAll(ctx); err != nil {
			if s.view != nil {
				s.view.disarm()
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(events.Event{Type: events.TypeCleared})
	return nil
}

func (s *Synchronizer[T]) Get(ctx context.Context, key string) (T, error) {
	var out T
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.store.Get(ctx, key)
		return err
	})
	return out, err
}

func (s *Synchronizer[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.store.List(ctx)
		return err
	})
	return out, err
}
