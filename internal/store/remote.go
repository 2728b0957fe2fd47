package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mindlab/cardshop/internal/remote"
)

// Remote stores entities as documents at <collection>/<id>. Documents
// created elsewhere under generated ids are still found through their id field.
type Remote[T Entity] struct {
	ds remote.DocumentStore
	c  Collection
}

func NewRemote[T Entity](ds remote.DocumentStore, c Collection) *Remote[T] {
	return &Remote[T]{ds: ds, c: c}
}

func (r *Remote[T]) strip(f map[string]any) map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = v
	}
	delete(out, DocIDField)
	for _, p := range r.c.Private {
		delete(out, p)
	}
	return out
}

func (r *Remote[T]) decode(doc remote.Document) (T, error) {
	data := r.strip(doc.Data)
	data[DocIDField] = doc.ID
	item, err := decode[T](data)
	if err != nil {
		return item, fmt.Errorf("decode %s/%s: %w", r.c.Name, doc.ID, err)
	}
	return item, nil
}

func (r *Remote[T]) locate(ctx context.Context, key string) (string, bool, error) {
	doc, err := r.ds.Get(ctx, r.c.Name, key)
	if err == nil {
		return doc.ID, true, nil
	}
	if !errors.Is(err, remote.ErrNotFound) {
		return "", false, err
	}
	doc, err = r.ds.FindByField(ctx, r.c.Name, KeyField, idValue(key))
	if err == nil {
		return doc.ID, true, nil
	}
	if errors.Is(err, remote.ErrNotFound) {
		return "", false, nil
	}
	return "", false, err
}

func (r *Remote[T]) Upsert(ctx context.Context, key string, f Fields) (T, error) {
	var zero T
	if key == "" {
		return zero, ErrMissingKey
	}
	docID, found, err := r.locate(ctx, key)
	if err != nil {
		return zero, err
	}
	data := r.strip(f)
	if !found {
		docID = key
		if _, ok := data[KeyField]; !ok {
			data[KeyField] = idValue(key)
		}
	}
	if err := r.ds.Set(ctx, r.c.Name, docID, data); err != nil {
		return zero, err
	}
	doc, err := r.ds.Get(ctx, r.c.Name, docID)
	if err != nil {
		return zero, err
	}
	return r.decode(doc)
}

func (r *Remote[T]) BulkUpsert(ctx context.Context, rows []Fields) (int, error) {
	writes := make([]remote.Write, 0, len(rows))
	for i, f := range rows {
		key := KeyString(f[KeyField])
		if key == "" {
			return 0, fmt.Errorf("row %d: %w", i, ErrMissingKey)
		}
		writes = append(writes, remote.Write{ID: key, Data: r.strip(f)})
	}
	return remote.CommitChunks(ctx, r.ds, r.c.Name, writes)
}

func (r *Remote[T]) Remove(ctx context.Context, key string) error {
	docID, found, err := r.locate(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return r.ds.Delete(ctx, r.c.Name, docID)
}

func (r *Remote[T]) RemoveDocument(ctx context.Context, docID string) error {
	return r.ds.Delete(ctx, r.c.Name, docID)
}

func (r *Remote[T]) RemoveAll(ctx context.Context) error {
	docs, err := r.ds.List(ctx, r.c.Name, remote.Query{})
	if err != nil {
		return err
	}
	writes := make([]remote.Write, 0, len(docs))
	for _, d := range docs {
		writes = append(writes, remote.Write{ID: d.ID, Delete: true})
	}
	_, err = remote.CommitChunks(ctx, r.ds, r.c.Name, writes)
	return err
}

func (r *Remote[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	docID, found, err := r.locate(ctx, key)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, ErrNotFound
	}
	doc, err := r.ds.Get(ctx, r.c.Name, docID)
	if err != nil {
		return zero, err
	}
	return r.decode(doc)
}

func (r *Remote[T]) decodeAll(docs []remote.Document) ([]T, error) {
	items := make([]T, 0, len(docs))
	for _, d := range docs {
		item, err := r.decode(d)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Remote[T]) List(ctx context.Context) ([]T, error) {
	docs, err := r.ds.List(ctx, r.c.Name, remote.Query{})
	if err != nil {
		return nil, err
	}
	return r.decodeAll(docs)
}

func (r *Remote[T]) Subscribe(ctx context.Context, fn func(Snapshot[T])) (Unsubscribe, error) {
	stop, err := r.ds.Watch(ctx, r.c.Name, func(docs []remote.Document, err error) {
		if err != nil {
			fn(Snapshot[T]{Err: err})
			return
		}
		items, err := r.decodeAll(docs)
		fn(Snapshot[T]{Items: items, Err: err})
	})
	if err != nil {
		return nil, err
	}
	return Unsubscribe(stop), nil
}
