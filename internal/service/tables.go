package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/mindlab/cardshop/internal/mirror"
	"github.com/mindlab/cardshop/internal/models"
)

// TableLedger tracks which of the tables are taken.
type TableLedger interface {
	Tables(ctx context.Context, active []models.Reservation) ([]models.Table, error)
	Mark(ctx context.Context, tableID int, status string) error
}

// MirroredTables keeps the table states in the local mirror.
type MirroredTables struct {
	M  *mirror.Store
	mu sync.Mutex
}

func (t *MirroredTables) load(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	ok, err := t.M.Get(ctx, mirror.KeyTables, &tables)
	if err != nil {
		return nil, err
	}
	if !ok || len(tables) == 0 {
		tables = models.InitialTables()
		if err := t.M.Set(ctx, mirror.KeyTables, tables); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

func (t *MirroredTables) Tables(ctx context.Context, _ []models.Reservation) ([]models.Table, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx)
}

func (t *MirroredTables) Mark(ctx context.Context, tableID int, status string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tables, err := t.load(ctx)
	if err != nil {
		return err
	}
	for i := range tables {
		if tables[i].ID == tableID {
			tables[i].Status = status
			return t.M.Set(ctx, mirror.KeyTables, tables)
		}
	}
	return fmt.Errorf("table %d: %w", tableID, ErrNotFound)
}

// DerivedTables computes table states from the active reservations.
type DerivedTables struct{}

func (DerivedTables) Tables(_ context.Context, active []models.Reservation) ([]models.Table, error) {
	tables := models.InitialTables()
	for _, r := range active {
		if r.TableID >= 1 && r.TableID <= len(tables) {
			tables[r.TableID-1].Status = models.TableReserved
		}
	}
	return tables, nil
}

func (DerivedTables) Mark(context.Context, int, string) error { return nil }
