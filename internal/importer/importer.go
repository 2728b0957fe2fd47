// Package importer holds the two administrative bulk jobs that fill the
// remote store: pushing a local snapshot and syncing auth-provider accounts.
package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mindlab/cardshop/internal/firebase"
	"github.com/mindlab/cardshop/internal/mirror"
	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/remote"
	"github.com/mindlab/cardshop/internal/store"
)

// UserPageSize is how many accounts one provider page returns.
const UserPageSize = 1000

// Directory lists auth-provider accounts a page at a time. An empty next
// token means there are no further pages.
type Directory interface {
	ListUsers(ctx context.Context, pageSize int, pageToken string) (users []firebase.AuthUser, next string, err error)
}

type Importer struct {
	Remote      remote.DocumentStore
	Users       Directory
	AdminEmails []string
	Clock       func() time.Time
}

type Snapshot struct {
	Products     []map[string]any `json:"products"`
	Orders       []map[string]any `json:"orders"`
	Reservations []map[string]any `json:"reservations"`
}

type Results struct {
	Products     int `json:"products"`
	Orders       int `json:"orders"`
	Reservations int `json:"reservations"`
}

func (im *Importer) now() time.Time {
	if im.Clock != nil {
		return im.Clock()
	}
	return time.Now()
}

// PushSnapshot upserts products, orders and reservations, in that order, in
// atomic batches of remote.MaxBatchWrites. It stops at the first failing
// batch and reports what was applied before it.
func (im *Importer) PushSnapshot(ctx context.Context, snap Snapshot) (Results, error) {
	var res Results
	if im.Remote == nil {
		return res, remote.ErrNotConfigured
	}

	steps := []struct {
		items      []map[string]any
		collection string
		count      *int
	}{
		{snap.Products, store.Products.Name, &res.Products},
		{snap.Orders, store.Orders.Name, &res.Orders},
		{snap.Reservations, store.Reservations.Name, &res.Reservations},
	}
	for _, step := range steps {
		n, err := remote.CommitChunks(ctx, im.Remote, step.collection, im.writes(step.items))
		*step.count = n
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// PushLocal pushes whatever the local mirror currently holds.
func (im *Importer) PushLocal(ctx context.Context, m *mirror.Store) (Results, error) {
	var snap Snapshot
	for _, part := range []struct {
		key string
		dst *[]map[string]any
	}{
		{mirror.KeyProducts, &snap.Products},
		{mirror.KeyOrders, &snap.Orders},
		{mirror.KeyReservations, &snap.Reservations},
	} {
		if _, err := m.Get(ctx, part.key, part.dst); err != nil {
			return Results{}, err
		}
	}
	return im.PushSnapshot(ctx, snap)
}

// writes keys every item by its id. Items without one get a
// creation-time id that is also written back into the document.
func (im *Importer) writes(items []map[string]any) []remote.Write {
	out := make([]remote.Write, 0, len(items))
	for _, item := range items {
		data := make(map[string]any, len(item)+1)
		for k, v := range item {
			if k == store.DocIDField {
				continue
			}
			data[k] = v
		}
		key := store.KeyString(data[store.KeyField])
		if key == "" {
			id := models.NewID()
			key = fmt.Sprint(id)
			data[store.KeyField] = id
		}
		out = append(out, remote.Write{ID: key, Data: data})
	}
	return out
}

func (im *Importer) isAdmin(email string) bool {
	if email == "" {
		return false
	}
	for _, a := range im.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(a), email) {
			return true
		}
	}
	return false
}

func (im *Importer) userDoc(u firebase.AuthUser) map[string]any {
	created := u.CreatedAt
	if created.IsZero() {
		created = im.now()
	}
	return map[string]any{
		"id":              u.UID,
		"uid":             u.UID,
		"name":            u.DisplayName,
		"email":           u.Email,
		"phone":           u.PhoneNumber,
		"address":         "",
		"isAdmin":         im.isAdmin(u.Email),
		"profileImage":    u.PhotoURL,
		"createdAt":       models.NewTimestamp(created).ISO(),
		"createdAtServer": remote.ServerTimestamp,
		"lastSyncedAt":    remote.ServerTimestamp,
	}
}

// SyncAuthUsers copies every auth-provider account into the remote user
// collection, one atomic batch per page, and returns how many were processed.
func (im *Importer) SyncAuthUsers(ctx context.Context) (int, error) {
	if im.Remote == nil || im.Users == nil {
		return 0, remote.ErrNotConfigured
	}

	total := 0
	token := ""
	for {
		users, next, err := im.Users.ListUsers(ctx, UserPageSize, token)
		if err != nil {
			return total, err
		}
		if len(users) > 0 {
			writes := make([]remote.Write, 0, len(users))
			for _, u := range users {
				writes = append(writes, remote.Write{ID: u.UID, Data: im.userDoc(u)})
			}
			n, err := remote.CommitChunks(ctx, im.Remote, store.Users.Name, writes)
			total += n
			if err != nil {
				return total, err
			}
		}
		if next == "" {
			return total, nil
		}
		token = next
	}
}
