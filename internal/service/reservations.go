package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/remote"
	"github.com/mindlab/cardshop/internal/store"
	"github.com/mindlab/cardshop/internal/syncer"
	"github.com/mindlab/cardshop/internal/transport"
)

type ReservationService struct {
	Sync   *syncer.Synchronizer[models.Reservation]
	View   *syncer.LiveView[models.Reservation]
	Ledger TableLedger

	mu sync.Mutex
}

func (s *ReservationService) List(ctx context.Context) ([]models.Reservation, error) {
	items, ok, err := fromView(s.View)
	if err != nil {
		return nil, err
	}
	if !ok {
		if items, err = s.Sync.List(ctx); err != nil {
			return nil, err
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func activeOnly(all []models.Reservation) []models.Reservation {
	out := make([]models.Reservation, 0, len(all))
	for _, r := range all {
		if r.Status == models.ReservationActive {
			out = append(out, r)
		}
	}
	return out
}

func (s *ReservationService) Tables(ctx context.Context) ([]models.Table, error) {
	all, err := s.Sync.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.Ledger.Tables(ctx, activeOnly(all))
}

func validTableType(t string) error {
	if _, ok := models.TableTypes[t]; !ok {
		return fmt.Errorf("unknown table type %q: %w", t, ErrValidation)
	}
	return nil
}

// Reserve books the lowest numbered free table. When every table is taken it
// returns ErrTablesFull and nothing is written.
func (s *ReservationService) Reserve(ctx context.Context, req transport.ReservationRequest) (models.Reservation, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	switch {
	case req.Name == "":
		return models.Reservation{}, fmt.Errorf("name is required: %w", ErrValidation)
	case req.Phone == "":
		return models.Reservation{}, fmt.Errorf("phone is required: %w", ErrValidation)
	case req.Date == "" || req.Time == "":
		return models.Reservation{}, fmt.Errorf("date and time are required: %w", ErrValidation)
	}
	if req.TableType == "" {
		req.TableType = "general"
	}
	if err := validTableType(req.TableType); err != nil {
		return models.Reservation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.Sync.List(ctx)
	if err != nil {
		return models.Reservation{}, err
	}
	active := activeOnly(all)
	tables, err := s.Ledger.Tables(ctx, active)
	if err != nil {
		return models.Reservation{}, err
	}
	taken := make(map[int]bool, len(active))
	for _, r := range active {
		taken[r.TableID] = true
	}
	tableID := 0
	for _, t := range tables {
		if t.Status == models.TableAvailable && !taken[t.ID] {
			tableID = t.ID
			break
		}
	}
	if tableID == 0 {
		return models.Reservation{}, ErrTablesFull
	}

	r := models.Reservation{
		ID:        models.NewID(),
		TableID:   tableID,
		Name:      req.Name,
		Phone:     req.Phone,
		Date:      req.Date,
		Time:      req.Time,
		Players:   req.Players,
		TableType: req.TableType,
		Status:    models.ReservationActive,
	}
	f, err := store.FieldsOf(r)
	if err != nil {
		return models.Reservation{}, err
	}
	f["createdAt"] = remote.ServerTimestamp
	saved, err := s.Sync.Upsert(ctx, r.Key(), f)
	if err != nil {
		return models.Reservation{}, err
	}
	if err := s.Ledger.Mark(ctx, tableID, models.TableReserved); err != nil {
		return saved, err
	}
	return saved, nil
}

// Cancel keeps the reservation with status canceled and frees its table.
func (s *ReservationService) Cancel(ctx context.Context, id int64) (models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strconv.FormatInt(id, 10)
	r, err := s.Sync.Get(ctx, key)
	if err != nil {
		return models.Reservation{}, err
	}
	if r.Status == models.ReservationCanceled {
		return r, nil
	}
	r, err = s.Sync.Upsert(ctx, key, store.Fields{"status": models.ReservationCanceled})
	if err != nil {
		return models.Reservation{}, err
	}
	if err := s.Ledger.Mark(ctx, r.TableID, models.TableAvailable); err != nil {
		return r, err
	}
	return r, nil
}

func (s *ReservationService) Edit(ctx context.Context, id int64, patch transport.ReservationPatch) (models.Reservation, error) {
	if patch.TableType != nil {
		if err := validTableType(*patch.TableType); err != nil {
			return models.Reservation{}, err
		}
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.Reservation{}, fmt.Errorf("name cannot be empty: %w", ErrValidation)
	}
	f, err := store.FieldsOf(patch)
	if err != nil {
		return models.Reservation{}, err
	}
	if len(f) == 0 {
		return models.Reservation{}, fmt.Errorf("nothing to change: %w", ErrValidation)
	}

	key := strconv.FormatInt(id, 10)
	if _, err := s.Sync.Get(ctx, key); err != nil {
		return models.Reservation{}, err
	}
	return s.Sync.Upsert(ctx, key, f)
}
