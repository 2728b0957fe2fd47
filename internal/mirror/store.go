package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Keys of the persisted blobs.
const (
	KeyProducts      = "products"
	KeyOrders        = "orders"
	KeyReservations  = "table_reservations"
	KeyUsers         = "app_users"
	KeySession       = "auth_user"
	KeyTables        = "table_states"
	KeyProductsCache = "products_cache_v1"
)

var ErrCorrupt = errors.New("mirror: corrupt blob")

type Entry struct {
	Key       string         `gorm:"primaryKey;column:entry_key;size:191"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (Entry) TableName() string { return "mirror_entries" }

// Store keeps one JSON blob per key. Every Set and Remove is published on the
// bus after the write lands. There is no locking across keys; the last writer wins.
type Store struct {
	db       *gorm.DB
	bus      *Bus
	instance string
}

func New(db *gorm.DB, bus *Bus) *Store {
	if bus == nil {
		bus = NewBus()
	}
	return &Store{db: db, bus: bus, instance: uuid.NewString()}
}

func (s *Store) Bus() *Bus { return s.bus }

func (s *Store) Instance() string { return s.instance }

// Get decodes the blob under key into out. It reports false when nothing is stored.
func (s *Store) Get(ctx context.Context, key string, out any) (bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mirror get %s: %w", key, err)
	}
	if err := json.Unmarshal(e.Value, out); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

func (s *Store) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mirror encode %s: %w", key, err)
	}
	e := Entry{Key: key, Value: datatypes.JSON(raw), UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("mirror set %s: %w", key, err)
	}
	s.bus.Publish(Change{Key: key, Origin: s.instance})
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("mirror remove %s: %w", key, err)
	}
	s.bus.Publish(Change{Key: key, Origin: s.instance})
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.WithContext(ctx).Model(&Entry{}).Order("entry_key").Pluck("entry_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("mirror keys: %w", err)
	}
	return keys, nil
}

// Watch calls fn for every change to key, local or relayed from another process.
func (s *Store) Watch(key string, fn func()) (cancel func()) {
	return s.bus.Subscribe(func(c Change) {
		if c.Key == key {
			fn()
		}
	})
}
