// Package search mirrors the products collection into Elasticsearch and
// serves fuzzy product queries from it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/syncer"
)

var ErrDisabled = errors.New("search is not configured")

func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	slog.Info("elasticsearch_connecting", "url", url, "user", user)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}
	return client, nil
}

type Index struct {
	es   *elasticsearch.Client
	name string
	log  *slog.Logger

	mu      sync.Mutex
	indexed map[string]bool
}

func NewIndex(es *elasticsearch.Client, name string, log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	return &Index{es: es, name: name, log: log, indexed: make(map[string]bool)}
}

func (ix *Index) Name() string { return ix.name }

// Replace makes the index hold exactly the given products.
func (ix *Index) Replace(ctx context.Context, products []models.Product) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	next := make(map[string]bool, len(products))
	for _, p := range products {
		id := strconv.FormatInt(p.ID, 10)
		next[id] = true
		p.DocID = ""
		if err := enc.Encode(map[string]any{"index": map[string]any{"_id": id}}); err != nil {
			return err
		}
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	for id := range ix.indexed {
		if !next[id] {
			if err := enc.Encode(map[string]any{"delete": map[string]any{"_id": id}}); err != nil {
				return err
			}
		}
	}
	if buf.Len() == 0 {
		ix.indexed = next
		return nil
	}

	res, err := ix.es.Bulk(&buf,
		ix.es.Bulk.WithContext(ctx),
		ix.es.Bulk.WithIndex(ix.name),
	)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index: %s", res.Status())
	}
	var r struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return fmt.Errorf("bulk index: decode: %w", err)
	}
	if r.Errors {
		return fmt.Errorf("bulk index: some items failed")
	}
	ix.indexed = next
	return nil
}

func (ix *Index) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description", "sku", "category"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode: %w", err)
	}

	res, err := ix.es.Search(
		ix.es.Search.WithContext(ctx),
		ix.es.Search.WithIndex(ix.name),
		ix.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search: decode: %w", err)
	}

	prods := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		prods[i] = hit.Source
	}
	return r.Hits.Total.Value, prods, nil
}

// Follow re-indexes on every products view change until ctx ends. Only the
// latest pending view is indexed; older ones are skipped.
func (ix *Index) Follow(ctx context.Context, view *syncer.LiveView[models.Product]) {
	pending := make(chan []models.Product, 1)
	var sendMu sync.Mutex
	cancel := view.Subscribe(func(v syncer.View[models.Product]) {
		if v.State != syncer.StateReady && v.State != syncer.StateEmpty {
			return
		}
		sendMu.Lock()
		defer sendMu.Unlock()
		select {
		case <-pending:
		default:
		}
		pending <- v.Items
	})

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case items := <-pending:
				if err := ix.Replace(ctx, items); err != nil && !errors.Is(err, context.Canceled) {
					ix.log.Error("search_reindex_error", "index", ix.name, "error", err)
					continue
				}
				ix.log.Debug("search_reindexed", "index", ix.name, "count", len(items))
			}
		}
	}()
}
