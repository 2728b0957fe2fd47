package mirror

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func InitTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	return New(db, NewBus())
}

func TestGetMissingKey(t *testing.T) {
	s := InitTestStore(t)
	var out []int
	ok, err := s.Get(context.Background(), KeyProducts, &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetGetRemove(t *testing.T) {
	ctx := context.Background()
	s := InitTestStore(t)

	require.NoError(t, s.Set(ctx, KeyOrders, []map[string]any{{"id": 1}}))
	require.NoError(t, s.Set(ctx, KeyOrders, []map[string]any{{"id": 1}, {"id": 2}}))

	var out []map[string]any
	ok, err := s.Get(ctx, KeyOrders, &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, out, 2)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{KeyOrders}, keys)

	require.NoError(t, s.Remove(ctx, KeyOrders))
	ok, err = s.Get(ctx, KeyOrders, &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetSameBlobTwice(t *testing.T) {
	ctx := context.Background()
	s := InitTestStore(t)
	blob := map[string]any{"data": []int{1, 2}, "ts": 10}

	require.NoError(t, s.Set(ctx, KeyProductsCache, blob))
	require.NoError(t, s.Set(ctx, KeyProductsCache, blob))

	var out map[string]any
	_, err := s.Get(ctx, KeyProductsCache, &out)
	require.NoError(t, err)
	require.EqualValues(t, 10, out["ts"])
}

func TestCorruptBlob(t *testing.T) {
	ctx := context.Background()
	s := InitTestStore(t)
	require.NoError(t, s.Set(ctx, KeyUsers, "not a list"))

	var out []map[string]any
	_, err := s.Get(ctx, KeyUsers, &out)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestMutationsArePublished(t *testing.T) {
	ctx := context.Background()
	s := InitTestStore(t)

	var seen []Change
	cancel := s.Bus().Subscribe(func(c Change) { seen = append(seen, c) })

	var watched int
	stopWatch := s.Watch(KeyTables, func() { watched++ })
	defer stopWatch()

	require.NoError(t, s.Set(ctx, KeyTables, []int{1}))
	require.NoError(t, s.Remove(ctx, KeyTables))
	require.NoError(t, s.Set(ctx, KeySession, map[string]string{"id": "1"}))

	require.Len(t, seen, 3)
	require.Equal(t, KeyTables, seen[0].Key)
	require.Equal(t, s.Instance(), seen[0].Origin)
	require.Equal(t, 2, watched)

	cancel()
	cancel()
	require.NoError(t, s.Set(ctx, KeyTables, []int{2}))
	require.Len(t, seen, 3)
}

func TestBusHandlerMayUnsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	var cancel func()
	cancel = b.Subscribe(func(Change) {
		calls++
		cancel()
	})
	b.Publish(Change{Key: "a"})
	b.Publish(Change{Key: "a"})
	require.Equal(t, 1, calls)
}

func TestChangeCodec(t *testing.T) {
	payload, err := encodeChange(Change{Key: KeyOrders, Origin: "abc"})
	require.NoError(t, err)
	c, err := decodeChange(payload)
	require.NoError(t, err)
	require.Equal(t, Change{Key: KeyOrders, Origin: "abc"}, c)
}
