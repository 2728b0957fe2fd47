package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mindlab/cardshop/internal/mirror"
	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/remote"
)

// Local keeps a collection as one JSON array in the mirror.
type Local[T Entity] struct {
	m     *mirror.Store
	c     Collection
	mu    sync.Mutex
	clock func() time.Time
}

func NewLocal[T Entity](m *mirror.Store, c Collection) *Local[T] {
	return &Local[T]{m: m, c: c, clock: time.Now}
}

func (l *Local[T]) load(ctx context.Context) ([]map[string]any, error) {
	var rows []map[string]any
	if _, err := l.m.Get(ctx, l.c.Mirror, &rows); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i] = remote.NormalizeMap(rows[i])
	}
	return rows, nil
}

func (l *Local[T]) save(ctx context.Context, rows []map[string]any) error {
	if rows == nil {
		rows = []map[string]any{}
	}
	return l.m.Set(ctx, l.c.Mirror, rows)
}

func indexOf(rows []map[string]any, key string) int {
	for i, r := range rows {
		if KeyString(r[KeyField]) == key {
			return i
		}
	}
	return -1
}

// resolveLocal replaces server timestamps with the local clock as an ISO string.
func resolveLocal(f map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		if k == DocIDField {
			continue
		}
		switch x := v.(type) {
		case map[string]any:
			out[k] = resolveLocal(x, now)
		default:
			if remote.IsServerTimestamp(v) {
				out[k] = models.NewTimestamp(now).ISO()
				continue
			}
			out[k] = v
		}
	}
	return out
}

func (l *Local[T]) apply(rows []map[string]any, key string, f Fields) ([]map[string]any, map[string]any) {
	patch := resolveLocal(remote.NormalizeMap(f), l.clock())
	if i := indexOf(rows, key); i >= 0 {
		rows[i] = merge(rows[i], patch)
		return rows, rows[i]
	}
	row := map[string]any{KeyField: idValue(key)}
	row = merge(row, patch)
	return append(rows, row), row
}

func (l *Local[T]) Upsert(ctx context.Context, key string, f Fields) (T, error) {
	var zero T
	if key == "" {
		return zero, ErrMissingKey
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.load(ctx)
	if err != nil {
		return zero, err
	}
	rows, row := l.apply(rows, key, f)
	if err := l.save(ctx, rows); err != nil {
		return zero, err
	}
	return decode[T](row)
}

func (l *Local[T]) BulkUpsert(ctx context.Context, batch []Fields) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	for i, f := range batch {
		key := KeyString(f[KeyField])
		if key == "" {
			return 0, fmt.Errorf("row %d: %w", i, ErrMissingKey)
		}
		rows, _ = l.apply(rows, key, f)
	}
	if err := l.save(ctx, rows); err != nil {
		return 0, err
	}
	return len(batch), nil
}

func (l *Local[T]) removeWhere(ctx context.Context, match func(map[string]any) bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.load(ctx)
	if err != nil {
		return err
	}
	kept := rows[:0]
	removed := false
	for _, r := range rows {
		if match(r) {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	if !removed {
		return ErrNotFound
	}
	return l.save(ctx, kept)
}

func (l *Local[T]) Remove(ctx context.Context, key string) error {
	return l.removeWhere(ctx, func(r map[string]any) bool { return KeyString(r[KeyField]) == key })
}

func (l *Local[T]) RemoveDocument(ctx context.Context, docID string) error {
	return l.removeWhere(ctx, func(r map[string]any) bool {
		return r[DocIDField] == docID || KeyString(r[KeyField]) == docID
	})
}

func (l *Local[T]) RemoveAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(ctx, nil)
}

func (l *Local[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	rows, err := l.load(ctx)
	if err != nil {
		return zero, err
	}
	i := indexOf(rows, key)
	if i < 0 {
		return zero, ErrNotFound
	}
	return decode[T](rows[i])
}

func (l *Local[T]) List(ctx context.Context) ([]T, error) {
	rows, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(rows))
	for _, r := range rows {
		item, err := decode[T](r)
		if err != nil {
			return nil, fmt.Errorf("decode %s row %v: %w", l.c.Mirror, r[KeyField], err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (l *Local[T]) Subscribe(ctx context.Context, fn func(Snapshot[T])) (Unsubscribe, error) {
	var (
		mu      sync.Mutex
		stopped bool
		once    sync.Once
	)
	done := make(chan struct{})

	deliver := func() {
		items, err := l.List(ctx)
		mu.Lock()
		skip := stopped
		mu.Unlock()
		if skip {
			return
		}
		fn(Snapshot[T]{Items: items, Err: err})
	}

	cancelWatch := l.m.Watch(l.c.Mirror, deliver)
	stop := func() {
		once.Do(func() {
			mu.Lock()
			stopped = true
			mu.Unlock()
			cancelWatch()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	deliver()
	return stop, nil
}
