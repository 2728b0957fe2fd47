// Package catalog serves the bundled default product list and the
// short-lived products snapshot cache kept in the local mirror.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mindlab/cardshop/internal/mirror"
	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/store"
)

//go:embed products.json
var bundled []byte

var (
	ErrUnreadable = errors.New("cannot read products.json")
	ErrInvalid    = errors.New("invalid JSON format")
)

// Parse accepts either {"products":[...]} or a bare array.
func Parse(data []byte) ([]models.Product, error) {
	var wrapped struct {
		Products []models.Product `json:"products"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Products != nil {
		return wrapped.Products, nil
	}
	var list []models.Product
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return list, nil
}

// Defaults reads the catalog from path, or the embedded copy when path is empty.
func Defaults(path string) ([]models.Product, error) {
	data := bundled
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		data = raw
	}
	return Parse(data)
}

// Seed returns the defaults as rows ready for a bulk upsert.
func Seed(path string) ([]store.Fields, error) {
	products, err := Defaults(path)
	if err != nil {
		return nil, err
	}
	rows := make([]store.Fields, 0, len(products))
	for _, p := range products {
		f, err := store.FieldsOf(p)
		if err != nil {
			return nil, err
		}
		rows = append(rows, f)
	}
	return rows, nil
}

// CacheTTL is how long a cached products snapshot stays fresh.
const CacheTTL = 30 * time.Minute

type cacheBlob struct {
	Data []models.Product `json:"data"`
	TS   int64            `json:"ts"`
}

type Cache struct {
	m     *mirror.Store
	ttl   time.Duration
	clock func() time.Time
}

func NewCache(m *mirror.Store) *Cache {
	return &Cache{m: m, ttl: CacheTTL, clock: time.Now}
}

// Load returns the cached products if they are younger than the TTL.
func (c *Cache) Load(ctx context.Context) ([]models.Product, bool, error) {
	var blob cacheBlob
	ok, err := c.m.Get(ctx, mirror.KeyProductsCache, &blob)
	if err != nil || !ok {
		return nil, false, err
	}
	age := c.clock().Sub(time.UnixMilli(blob.TS))
	if age < 0 || age >= c.ttl {
		return nil, false, nil
	}
	return blob.Data, true, nil
}

func (c *Cache) Store(ctx context.Context, products []models.Product) error {
	return c.m.Set(ctx, mirror.KeyProductsCache, cacheBlob{Data: products, TS: c.clock().UnixMilli()})
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.m.Remove(ctx, mirror.KeyProductsCache)
}

// Fetch serves from the cache when fresh and otherwise calls load and caches
// its result.
func (c *Cache) Fetch(ctx context.Context, load func(context.Context) ([]models.Product, error)) ([]models.Product, error) {
	if cached, ok, err := c.Load(ctx); err == nil && ok {
		return cached, nil
	}
	products, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Store(ctx, products); err != nil {
		return products, err
	}
	return products, nil
}
