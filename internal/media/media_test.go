package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirUploadReportsProgress(t *testing.T) {
	d, err := NewDir(t.TempDir(), "http://localhost:8080/")
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("x"), 3*ChunkSize)
	var seen []int
	url, err := d.Upload(context.Background(), ObjectName("17", "Card.PNG"), "image/png",
		bytes.NewReader(payload), int64(len(payload)), func(p int) { seen = append(seen, p) })
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/media/products/17.png", url)

	require.NotEmpty(t, seen)
	require.Equal(t, 100, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		require.GreaterOrEqual(t, seen[i], seen[i-1])
	}

	got, err := os.ReadFile(filepath.Join(d.Root(), "products", "17.png"))
	require.NoError(t, err)
	require.Len(t, got, len(payload))
}

func TestDirUploadEmptyName(t *testing.T) {
	d, err := NewDir(t.TempDir(), "")
	require.NoError(t, err)
	_, err = d.Upload(context.Background(), "", "", bytes.NewReader(nil), 0, nil)
	require.ErrorIs(t, err, ErrEmptyName)
}

func TestPercent(t *testing.T) {
	require.Equal(t, 0, percent(10, 0))
	require.Equal(t, 50, percent(5, 10))
	require.Equal(t, 100, percent(20, 10))
}
