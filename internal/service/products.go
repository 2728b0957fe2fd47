package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/mindlab/cardshop/internal/catalog"
	"github.com/mindlab/cardshop/internal/media"
	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/store"
	"github.com/mindlab/cardshop/internal/syncer"
	"github.com/mindlab/cardshop/internal/transport"
)

type ImageUploader interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader, size int64, progress media.ProgressFunc) (string, error)
}

type ProductService struct {
	Sync  *syncer.Synchronizer[models.Product]
	View  *syncer.LiveView[models.Product]
	Cache *catalog.Cache
	Media ImageUploader
}

// CatalogReseed writes the bundled catalog into an empty products collection.
func CatalogReseed(s *syncer.Synchronizer[models.Product], path string) syncer.ReseedFunc {
	return func(ctx context.Context) error {
		rows, err := catalog.Seed(path)
		if err != nil {
			return err
		}
		_, err = s.BulkUpsert(ctx, rows)
		return err
	}
}

func fromView[T store.Entity](v *syncer.LiveView[T]) ([]T, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	cur := v.Current()
	switch cur.State {
	case syncer.StateReady, syncer.StateEmpty:
		return cur.Items, true, nil
	case syncer.StateFailed:
		return nil, true, cur.Err
	}
	return nil, false, nil
}

// List returns every product ordered by id.
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	items, ok, err := fromView(s.View)
	if err != nil {
		return nil, err
	}
	if !ok {
		if items, err = s.Sync.List(ctx); err != nil {
			return nil, err
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Catalog returns the active products, through the products cache.
func (s *ProductService) Catalog(ctx context.Context) ([]models.Product, error) {
	load := func(ctx context.Context) ([]models.Product, error) {
		all, err := s.List(ctx)
		if err != nil {
			return nil, err
		}
		active := make([]models.Product, 0, len(all))
		for _, p := range all {
			if p.Status == models.ProductActive || p.Status == "" {
				active = append(active, p)
			}
		}
		return active, nil
	}
	if s.Cache == nil {
		return load(ctx)
	}
	if !s.viewSettled() {
		// the live view has not delivered yet, so the fallback read may be
		// missing a reseed still in flight
		return load(ctx)
	}
	return s.Cache.Fetch(ctx, load)
}

func (s *ProductService) viewSettled() bool {
	if s.View == nil {
		return true
	}
	switch s.View.Current().State {
	case syncer.StateReady, syncer.StateEmpty:
		return true
	}
	return false
}

// InvalidateOnChange drops the products cache on every settled delivery of
// the live view, so reseeds and writes from other clients show up at once.
func (s *ProductService) InvalidateOnChange(ctx context.Context) (cancel func()) {
	if s.View == nil || s.Cache == nil {
		return func() {}
	}
	return s.View.Subscribe(func(v syncer.View[models.Product]) {
		if v.State == syncer.StateReady || v.State == syncer.StateEmpty {
			s.invalidate(ctx)
		}
	})
}

func (s *ProductService) invalidate(ctx context.Context) {
	if s.Cache != nil {
		_ = s.Cache.Invalidate(ctx)
	}
}

func validateProduct(req transport.ProductRequest, creating bool) error {
	if creating && (req.Name == nil || *req.Name == "") {
		return fmt.Errorf("name is required: %w", ErrValidation)
	}
	if req.Name != nil && *req.Name == "" {
		return fmt.Errorf("name cannot be empty: %w", ErrValidation)
	}
	if req.Price != nil && *req.Price < 0 {
		return fmt.Errorf("price cannot be negative: %w", ErrValidation)
	}
	if req.Stock != nil && *req.Stock < 0 {
		return fmt.Errorf("stock cannot be negative: %w", ErrValidation)
	}
	if req.Status != nil && !models.ValidProductStatus(*req.Status) {
		return fmt.Errorf("unknown status %q: %w", *req.Status, ErrValidation)
	}
	return nil
}

// Save creates a product with a fresh id, or merges into an existing one.
func (s *ProductService) Save(ctx context.Context, req transport.ProductRequest) (models.Product, error) {
	creating := req.ID == nil
	if err := validateProduct(req, creating); err != nil {
		return models.Product{}, err
	}
	if creating {
		id := models.NewID()
		req.ID = &id
		if req.Status == nil {
			status := models.ProductActive
			req.Status = &status
		}
	} else if _, err := s.Sync.Get(ctx, strconv.FormatInt(*req.ID, 10)); err != nil {
		return models.Product{}, err
	}

	f, err := store.FieldsOf(req)
	if err != nil {
		return models.Product{}, err
	}
	p, err := s.Sync.Upsert(ctx, strconv.FormatInt(*req.ID, 10), f)
	if err != nil {
		return models.Product{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

// BulkEdit applies one patch to several existing products in a single batch.
func (s *ProductService) BulkEdit(ctx context.Context, req transport.BulkEditRequest) (int, error) {
	if len(req.IDs) == 0 {
		return 0, fmt.Errorf("no products selected: %w", ErrValidation)
	}
	req.Patch.ID = nil
	if err := validateProduct(req.Patch, false); err != nil {
		return 0, err
	}
	patch, err := store.FieldsOf(req.Patch)
	if err != nil {
		return 0, err
	}
	if len(patch) == 0 {
		return 0, fmt.Errorf("nothing to change: %w", ErrValidation)
	}

	existing, err := s.Sync.List(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[int64]bool, len(existing))
	for _, p := range existing {
		known[p.ID] = true
	}

	rows := make([]store.Fields, 0, len(req.IDs))
	for _, id := range req.IDs {
		if !known[id] {
			return 0, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		row := store.Fields{store.KeyField: id}
		for k, v := range patch {
			row[k] = v
		}
		rows = append(rows, row)
	}
	n, err := s.Sync.BulkUpsert(ctx, rows)
	if n > 0 {
		s.invalidate(ctx)
	}
	return n, err
}

func (s *ProductService) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("delete product %d: %w", id, ErrConfirmation)
	}
	if err := s.Sync.Remove(ctx, strconv.FormatInt(id, 10)); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// DeleteAll empties the collection. Both confirmations must be given.
func (s *ProductService) DeleteAll(ctx context.Context, confirmed, confirmedAgain bool) error {
	if !confirmed || !confirmedAgain {
		return fmt.Errorf("delete all products needs two confirmations: %w", ErrConfirmation)
	}
	if err := s.Sync.RemoveAll(ctx); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ReplaceImage uploads a new image and points the product at it. The product
// is left unchanged when the upload fails.
func (s *ProductService) ReplaceImage(ctx context.Context, id int64, filename, contentType string, r io.Reader, size int64, progress media.ProgressFunc) (models.Product, error) {
	if s.Media == nil {
		return models.Product{}, fmt.Errorf("image upload: %w", ErrNotConfigured)
	}
	key := strconv.FormatInt(id, 10)
	if _, err := s.Sync.Get(ctx, key); err != nil {
		return models.Product{}, err
	}
	url, err := s.Media.Upload(ctx, media.ObjectName(key, filename), contentType, r, size, progress)
	if err != nil {
		return models.Product{}, fmt.Errorf("image upload: %w", err)
	}
	p, err := s.Sync.Upsert(ctx, key, store.Fields{"image": url})
	if err != nil {
		return models.Product{}, err
	}
	s.invalidate(ctx)
	return p, nil
}
