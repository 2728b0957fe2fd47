// Package firestore adapts Cloud Firestore to remote.DocumentStore.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mindlab/cardshop/internal/remote"
)

type Store struct {
	client *firestore.Client
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %v", remote.ErrPermissionDenied, err)
	case codes.NotFound:
		return fmt.Errorf("%w: %v", remote.ErrNotFound, err)
	}
	return err
}

// encode swaps the ServerTimestamp sentinel for Firestore's own.
func encode(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch x := v.(type) {
		case map[string]any:
			out[k] = encode(x)
		default:
			if remote.IsServerTimestamp(v) {
				out[k] = firestore.ServerTimestamp
				continue
			}
			out[k] = v
		}
	}
	return out
}

func decode(snap *firestore.DocumentSnapshot) remote.Document {
	return remote.Document{ID: snap.Ref.ID, Data: remote.NormalizeMap(snap.Data())}
}

func decodeAll(snaps []*firestore.DocumentSnapshot) []remote.Document {
	docs := make([]remote.Document, 0, len(snaps))
	for _, s := range snaps {
		docs = append(docs, decode(s))
	}
	return docs
}

func (s *Store) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return remote.Document{}, classify(err)
	}
	return decode(snap), nil
}

func (s *Store) FindByField(ctx context.Context, collection, field string, value any) (remote.Document, error) {
	snaps, err := s.client.Collection(collection).Where(field, "==", value).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return remote.Document{}, classify(err)
	}
	if len(snaps) == 0 {
		return remote.Document{}, fmt.Errorf("%s where %s == %v: %w", collection, field, value, remote.ErrNotFound)
	}
	return decode(snaps[0]), nil
}

func (s *Store) List(ctx context.Context, collection string, q remote.Query) ([]remote.Document, error) {
	query := s.client.Collection(collection).Query
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, classify(err)
	}
	return decodeAll(snaps), nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, encode(data), firestore.MergeAll)
	return classify(err)
}

func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, encode(data))
	if err != nil {
		return "", classify(err)
	}
	return ref.ID, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	return classify(err)
}

func (s *Store) Commit(ctx context.Context, collection string, writes []remote.Write) error {
	if len(writes) == 0 {
		return nil
	}
	if len(writes) > remote.MaxBatchWrites {
		return remote.ErrBatchTooLarge
	}
	batch := s.client.Batch()
	coll := s.client.Collection(collection)
	for _, w := range writes {
		if w.Delete {
			batch.Delete(coll.Doc(w.ID))
			continue
		}
		batch.Set(coll.Doc(w.ID), encode(w.Data), firestore.MergeAll)
	}
	_, err := batch.Commit(ctx)
	return classify(err)
}

// Watch streams full collection snapshots until stop is called or the
// listener fails. A failure is reported once through fn.
func (s *Store) Watch(ctx context.Context, collection string, fn remote.SnapshotFunc) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.client.Collection(collection).Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}
				fn(nil, classify(err))
				return
			}
			snaps, err := snap.Documents.GetAll()
			if err != nil {
				fn(nil, classify(err))
				return
			}
			fn(decodeAll(snaps), nil)
		}
	}()

	return cancel, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
