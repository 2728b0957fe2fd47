// Package remotetest provides an in-memory remote.DocumentStore with fault
// injection hooks for tests.
package remotetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mindlab/cardshop/internal/remote"
)

type Memory struct {
	mu       sync.Mutex
	colls    map[string]map[string]map[string]any
	watchers map[string]map[int]remote.SnapshotFunc
	nextID   int

	calls       int
	commitCalls int
	commitSizes map[string][]int
	failCommit  map[int]error
	watchErr    map[string]error

	Clock func() time.Time
}

func New() *Memory {
	return &Memory{
		colls:       make(map[string]map[string]map[string]any),
		watchers:    make(map[string]map[int]remote.SnapshotFunc),
		commitSizes: make(map[string][]int),
		failCommit:  make(map[int]error),
		watchErr:    make(map[string]error),
		Clock:       time.Now,
	}
}

// FailCommit makes the nth Commit call (1-based, counted across collections)
// return err without applying any of its writes.
func (m *Memory) FailCommit(nth int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCommit[nth] = err
}

// FailWatch makes every later Watch on collection report err instead of data.
func (m *Memory) FailWatch(collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchErr[collection] = err
}

// Break delivers err to the live watchers of collection and drops them.
func (m *Memory) Break(collection string, err error) {
	m.mu.Lock()
	ws := m.watchers[collection]
	delete(m.watchers, collection)
	m.mu.Unlock()
	for _, fn := range ws {
		fn(nil, err)
	}
}

func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Memory) CommitSizes(collection string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.commitSizes[collection]...)
}

func (m *Memory) Watchers(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers[collection])
}

func (m *Memory) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	if err := ctx.Err(); err != nil {
		return remote.Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	data, ok := m.colls[collection][id]
	if !ok {
		return remote.Document{}, fmt.Errorf("%s/%s: %w", collection, id, remote.ErrNotFound)
	}
	return remote.Document{ID: id, Data: remote.NormalizeMap(data)}, nil
}

func (m *Memory) FindByField(ctx context.Context, collection, field string, value any) (remote.Document, error) {
	if err := ctx.Err(); err != nil {
		return remote.Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, id := range m.sortedIDs(collection) {
		data := m.colls[collection][id]
		if v, ok := data[field]; ok && remote.Equal(v, value) {
			return remote.Document{ID: id, Data: remote.NormalizeMap(data)}, nil
		}
	}
	return remote.Document{}, fmt.Errorf("%s where %s == %v: %w", collection, field, value, remote.ErrNotFound)
}

func (m *Memory) List(ctx context.Context, collection string, q remote.Query) ([]remote.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	docs := m.snapshot(collection)
	if q.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			c := compare(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	return docs, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]any) error {
	return m.apply(ctx, collection, []remote.Write{{ID: id, Data: data}}, false)
}

func (m *Memory) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	m.mu.Lock()
	m.nextID++
	id := fmt.Sprintf("auto-%06d", m.nextID)
	m.mu.Unlock()
	if err := m.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	return m.apply(ctx, collection, []remote.Write{{ID: id, Delete: true}}, false)
}

func (m *Memory) Commit(ctx context.Context, collection string, writes []remote.Write) error {
	if len(writes) > remote.MaxBatchWrites {
		return remote.ErrBatchTooLarge
	}
	return m.apply(ctx, collection, writes, true)
}

func (m *Memory) apply(ctx context.Context, collection string, writes []remote.Write, batch bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.calls++
	if batch {
		m.commitCalls++
		if err, ok := m.failCommit[m.commitCalls]; ok {
			m.mu.Unlock()
			return err
		}
		m.commitSizes[collection] = append(m.commitSizes[collection], len(writes))
	}

	coll := m.colls[collection]
	if coll == nil {
		coll = make(map[string]map[string]any)
		m.colls[collection] = coll
	}
	now := m.Clock().UTC()
	for _, w := range writes {
		if w.Delete {
			delete(coll, w.ID)
			continue
		}
		cur := coll[w.ID]
		if cur == nil {
			cur = make(map[string]any)
		}
		coll[w.ID] = merge(cur, resolve(remote.NormalizeMap(w.Data), now))
	}
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Watch(ctx context.Context, collection string, fn remote.SnapshotFunc) (func(), error) {
	m.mu.Lock()
	m.calls++
	if err := m.watchErr[collection]; err != nil {
		m.mu.Unlock()
		fn(nil, err)
		return func() {}, nil
	}
	m.nextID++
	id := m.nextID
	if m.watchers[collection] == nil {
		m.watchers[collection] = make(map[int]remote.SnapshotFunc)
	}
	m.watchers[collection][id] = fn
	docs := m.snapshot(collection)
	m.mu.Unlock()

	fn(docs, nil)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.watchers[collection], id)
			m.mu.Unlock()
		})
	}, nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) notify(collection string) {
	m.mu.Lock()
	fns := make([]remote.SnapshotFunc, 0, len(m.watchers[collection]))
	for _, fn := range m.watchers[collection] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		m.mu.Lock()
		docs := m.snapshot(collection)
		m.mu.Unlock()
		fn(docs, nil)
	}
}

func (m *Memory) sortedIDs(collection string) []string {
	ids := make([]string, 0, len(m.colls[collection]))
	for id := range m.colls[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Memory) snapshot(collection string) []remote.Document {
	ids := m.sortedIDs(collection)
	docs := make([]remote.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, remote.Document{ID: id, Data: remote.NormalizeMap(m.colls[collection][id])})
	}
	return docs
}

func resolve(data map[string]any, now time.Time) map[string]any {
	for k, v := range data {
		switch x := v.(type) {
		case map[string]any:
			data[k] = resolve(x, now)
		default:
			if remote.IsServerTimestamp(v) {
				data[k] = now
			}
		}
	}
	return data
}

func merge(dst, src map[string]any) map[string]any {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				dst[k] = merge(dm, sm)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}

func compare(a, b any) int {
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	}
	if a == nil && b != nil {
		return -1
	}
	if a != nil && b == nil {
		return 1
	}
	return 0
}
