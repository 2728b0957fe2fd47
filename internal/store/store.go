// Package store is the storage capability the rest of the application talks
// to. A Store is either backed by the local mirror or by a remote document
// store; which one is decided once when the Backend is built.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mindlab/cardshop/internal/config"
	"github.com/mindlab/cardshop/internal/mirror"
	"github.com/mindlab/cardshop/internal/remote"
)

var (
	ErrNotFound   = errors.New("store: entity not found")
	ErrMissingKey = errors.New("store: missing id")
)

// KeyField holds the merge key of every entity, in both backends.
const KeyField = "id"

// DocIDField carries the remote document id on reads and is never written.
const DocIDField = "firestoreId"

type Entity interface {
	Key() string
}

// Fields is a partial record keyed by JSON field name. Only the fields
// present are written; an explicit zero value clears a field.
type Fields map[string]any

type Snapshot[T any] struct {
	Items []T
	Err   error
}

type Unsubscribe func()

type Store[T Entity] interface {
	Upsert(ctx context.Context, key string, f Fields) (T, error)
	BulkUpsert(ctx context.Context, rows []Fields) (int, error)
	Remove(ctx context.Context, key string) error
	RemoveDocument(ctx context.Context, docID string) error
	RemoveAll(ctx context.Context) error
	Get(ctx context.Context, key string) (T, error)
	List(ctx context.Context) ([]T, error)
	// Subscribe delivers the full collection now and after every change until
	// the returned func is called or ctx ends.
	Subscribe(ctx context.Context, fn func(Snapshot[T])) (Unsubscribe, error)
}

type Collection struct {
	// Name is the remote collection.
	Name string
	// Mirror is the local mirror key.
	Mirror string
	// Private fields stay local and are stripped from remote reads and writes.
	Private []string
}

var (
	Products     = Collection{Name: "products", Mirror: mirror.KeyProducts}
	Orders       = Collection{Name: "orders", Mirror: mirror.KeyOrders}
	Reservations = Collection{Name: "table_reservations", Mirror: mirror.KeyReservations}
	Users        = Collection{Name: "users", Mirror: mirror.KeyUsers, Private: []string{"password", "passwordHash"}}
)

// Backend is the outcome of mode selection.
type Backend struct {
	Mode   config.Mode
	Mirror *mirror.Store
	Remote remote.DocumentStore
}

func Open[T Entity](b Backend, c Collection) Store[T] {
	if b.Mode == config.ModeRemote {
		return NewRemote[T](b.Remote, c)
	}
	return NewLocal[T](b.Mirror, c)
}

// FieldsOf converts a struct (typically with pointer fields and omitempty)
// or a map into Fields through its JSON form.
func FieldsOf(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var f Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("fields of %T: %w", v, err)
	}
	return Fields(remote.NormalizeMap(f)), nil
}

func decode[T any](m map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(m)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}

// KeyString renders an id field value the way Entity.Key does.
func KeyString(v any) string {
	switch x := remote.Normalize(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// idValue is the typed form of key stored in the id field.
func idValue(key string) any {
	if n, err := strconv.ParseInt(key, 10, 64); err == nil {
		return n
	}
	return key
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
