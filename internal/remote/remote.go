// Package remote is the contract every hosted document database adapter
// satisfies: merge writes addressed by <collection>/<documentId>, atomic
// batches and live collection snapshots.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// MaxBatchWrites is the largest atomic batch a backend accepts.
const MaxBatchWrites = 500

var (
	ErrNotFound         = errors.New("remote: document not found")
	ErrPermissionDenied = errors.New("remote: permission denied")
	ErrNotConfigured    = errors.New("remote: store is not configured")
	ErrBatchTooLarge    = fmt.Errorf("remote: batch exceeds %d writes", MaxBatchWrites)
)

type serverTimestamp struct{}

// ServerTimestamp placed as a field value asks the backend to store its own clock.
var ServerTimestamp any = serverTimestamp{}

func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

type Document struct {
	ID   string
	Data map[string]any
}

type Write struct {
	ID     string
	Data   map[string]any
	Delete bool
}

type Query struct {
	OrderBy string
	Desc    bool
}

// SnapshotFunc receives the complete current contents of a watched
// collection on each change, or a non-nil error once when the watch fails.
type SnapshotFunc func(docs []Document, err error)

type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	FindByField(ctx context.Context, collection, field string, value any) (Document, error)
	List(ctx context.Context, collection string, q Query) ([]Document, error)
	// Set merges data into the document, creating it when missing.
	Set(ctx context.Context, collection, id string, data map[string]any) error
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Delete(ctx context.Context, collection, id string) error
	// Commit applies writes atomically. Set writes merge.
	Commit(ctx context.Context, collection string, writes []Write) error
	Watch(ctx context.Context, collection string, fn SnapshotFunc) (stop func(), err error)
	Close() error
}

// CommitChunks commits writes in sequential batches of MaxBatchWrites. On
// failure it returns how many writes earlier batches applied together with the
// error of the failing batch. Committed batches are not rolled back.
func CommitChunks(ctx context.Context, ds DocumentStore, collection string, writes []Write) (int, error) {
	applied := 0
	for start := 0; start < len(writes); start += MaxBatchWrites {
		end := min(start+MaxBatchWrites, len(writes))
		if err := ds.Commit(ctx, collection, writes[start:end]); err != nil {
			return applied, fmt.Errorf("commit %s[%d:%d]: %w", collection, start, end, err)
		}
		applied += end - start
	}
	return applied, nil
}
