package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/remote"
	"github.com/mindlab/cardshop/internal/store"
	"github.com/mindlab/cardshop/internal/syncer"
	"github.com/mindlab/cardshop/internal/transport"
)

type OrderService struct {
	Sync     *syncer.Synchronizer[models.Order]
	View     *syncer.LiveView[models.Order]
	Products *syncer.Synchronizer[models.Product]
}

// Checkout turns a cart into a pending order. Product fields are copied into
// the order so later catalog edits do not change it.
func (s *OrderService) Checkout(ctx context.Context, req transport.CheckoutRequest) (models.Order, error) {
	customer := models.Customer{
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Address:  strings.TrimSpace(req.Address),
		Note:     strings.TrimSpace(req.Note),
	}
	switch {
	case customer.FullName == "":
		return models.Order{}, fmt.Errorf("full name is required: %w", ErrValidation)
	case customer.Phone == "":
		return models.Order{}, fmt.Errorf("phone is required: %w", ErrValidation)
	case customer.Address == "":
		return models.Order{}, fmt.Errorf("address is required: %w", ErrValidation)
	case len(req.Items) == 0:
		return models.Order{}, fmt.Errorf("cart is empty: %w", ErrValidation)
	}

	items := make([]models.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return models.Order{}, fmt.Errorf("quantity of product %d must be positive: %w", it.ID, ErrValidation)
		}
		p, err := s.Products.Get(ctx, strconv.FormatInt(it.ID, 10))
		if err != nil {
			return models.Order{}, fmt.Errorf("product %d: %w", it.ID, err)
		}
		items = append(items, models.SnapshotItem(p, it.Quantity))
	}

	order := models.Order{
		ID:       models.NewID(),
		Status:   models.OrderPending,
		Total:    models.OrderTotal(items),
		Customer: customer,
		Items:    items,
	}
	f, err := store.FieldsOf(order)
	if err != nil {
		return models.Order{}, err
	}
	f["createdAt"] = remote.ServerTimestamp
	return s.Sync.Upsert(ctx, order.Key(), f)
}

// CreateOrder merges a raw order document keyed by its id and stamps the
// creation time.
func (s *OrderService) CreateOrder(ctx context.Context, raw map[string]any) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("missing order: %w", ErrValidation)
	}
	id := store.KeyString(raw[store.KeyField])
	if id == "" || id == "0" {
		return "", fmt.Errorf("missing order id: %w", ErrValidation)
	}
	f := store.Fields(remote.NormalizeMap(raw))
	delete(f, store.DocIDField)
	f["createdAt"] = remote.ServerTimestamp
	if _, err := s.Sync.Upsert(ctx, id, f); err != nil {
		return "", err
	}
	return id, nil
}

// List returns orders newest first.
func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	items, ok, err := fromView(s.View)
	if err != nil {
		return nil, err
	}
	if !ok {
		if items, err = s.Sync.List(ctx); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.CreatedAt.Equal(b.CreatedAt.Time) {
			return a.CreatedAt.After(b.CreatedAt.Time)
		}
		return a.ID > b.ID
	})
	return items, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status string) (models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return models.Order{}, fmt.Errorf("unknown status %q: %w", status, ErrValidation)
	}
	key := strconv.FormatInt(id, 10)
	if _, err := s.Sync.Get(ctx, key); err != nil {
		return models.Order{}, err
	}
	return s.Sync.Upsert(ctx, key, store.Fields{"status": status})
}

// Delete removes an order by its remote document id.
func (s *OrderService) Delete(ctx context.Context, docID string) error {
	if docID == "" {
		return fmt.Errorf("missing firestoreId: %w", ErrValidation)
	}
	return s.Sync.RemoveDocument(ctx, docID)
}
