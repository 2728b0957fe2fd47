package remote_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mindlab/cardshop/internal/remote"
	"github.com/mindlab/cardshop/internal/remote/remotetest"
	"github.com/stretchr/testify/require"
)

func writes(n int) []remote.Write {
	out := make([]remote.Write, n)
	for i := range out {
		out[i] = remote.Write{ID: fmt.Sprintf("p-%d", i), Data: map[string]any{"id": i}}
	}
	return out
}

func TestCommitChunksSplitsAt500(t *testing.T) {
	mem := remotetest.New()
	n, err := remote.CommitChunks(context.Background(), mem, "products", writes(1234))
	require.NoError(t, err)
	require.Equal(t, 1234, n)
	require.Equal(t, []int{500, 500, 234}, mem.CommitSizes("products"))
}

func TestCommitChunksStopsAtFailure(t *testing.T) {
	mem := remotetest.New()
	boom := errors.New("deadline exceeded")
	mem.FailCommit(2, boom)

	n, err := remote.CommitChunks(context.Background(), mem, "products", writes(1234))
	require.ErrorIs(t, err, boom)
	require.Equal(t, 500, n)
	require.Equal(t, []int{500}, mem.CommitSizes("products"))

	docs, err := mem.List(context.Background(), "products", remote.Query{})
	require.NoError(t, err)
	require.Len(t, docs, 500)
}

func TestNormalize(t *testing.T) {
	m := remote.NormalizeMap(map[string]any{
		"id":    float64(1714559400000),
		"price": 12.5,
		"items": []any{map[string]any{"quantity": float64(2)}},
	})
	require.Equal(t, int64(1714559400000), m["id"])
	require.Equal(t, 12.5, m["price"])
	require.Equal(t, int64(2), m["items"].([]any)[0].(map[string]any)["quantity"])
}

func TestEqual(t *testing.T) {
	require.True(t, remote.Equal(float64(3), int64(3)))
	require.True(t, remote.Equal(3, int64(3)))
	require.True(t, remote.Equal("u1", "u1"))
	require.False(t, remote.Equal("3", int64(3)))
	require.False(t, remote.Equal(map[string]any{}, map[string]any{}))
}
