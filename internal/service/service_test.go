package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindlab/cardshop/internal/catalog"
	"github.com/mindlab/cardshop/internal/config"
	"github.com/mindlab/cardshop/internal/firebase"
	"github.com/mindlab/cardshop/internal/media"
	"github.com/mindlab/cardshop/internal/mirror"
	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/store"
	"github.com/mindlab/cardshop/internal/syncer"
	"github.com/mindlab/cardshop/internal/tokens"
	"github.com/mindlab/cardshop/internal/transport"
)

type testEnv struct {
	mirror       *mirror.Store
	products     *ProductService
	orders       *OrderService
	reservations *ReservationService
	users        *UserService
	dashboard    *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := mirror.Open(context.Background(), mirror.DriverSQLite, ":memory:")
	require.NoError(t, err)
	m := mirror.New(db, nil)
	b := store.Backend{Mode: config.ModeLocal, Mirror: m}

	products := syncer.New("products", store.Open[models.Product](b, store.Products))
	orders := syncer.New("orders", store.Open[models.Order](b, store.Orders))
	reservations := syncer.New("table_reservations", store.Open[models.Reservation](b, store.Reservations))
	users := syncer.New("users", store.Open[models.User](b, store.Users))

	return &testEnv{
		mirror:       m,
		products:     &ProductService{Sync: products, Cache: catalog.NewCache(m)},
		orders:       &OrderService{Sync: orders, Products: products},
		reservations: &ReservationService{Sync: reservations, Ledger: &MirroredTables{M: m}},
		users: &UserService{
			Sync:        users,
			Session:     NewSession(m),
			Secret:      []byte("test-secret"),
			AdminEmails: []string{"owner@example.com"},
		},
		dashboard: &DashboardService{Users: users, Products: products, Orders: orders, Reservations: reservations},
	}
}

func ptr[T any](v T) *T { return &v }

func (e *testEnv) addProduct(t *testing.T, name string, price int64) models.Product {
	t.Helper()
	p, err := e.products.Save(context.Background(), transport.ProductRequest{Name: ptr(name), Price: ptr(price), Stock: ptr(5)})
	require.NoError(t, err)
	return p
}

func TestSaveCreatesThenMerges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.addProduct(t, "Booster Box", 4200)
	require.NotZero(t, p.ID)
	require.Equal(t, models.ProductActive, p.Status)

	edited, err := env.products.Save(ctx, transport.ProductRequest{ID: ptr(p.ID), Price: ptr(int64(3900))})
	require.NoError(t, err)
	require.Equal(t, "Booster Box", edited.Name)
	require.EqualValues(t, 3900, edited.Price)
	require.Equal(t, 5, edited.Stock)

	_, err = env.products.Save(ctx, transport.ProductRequest{ID: ptr(int64(999))})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  transport.ProductRequest
	}{
		{name: "missing name", req: transport.ProductRequest{Price: ptr(int64(1))}},
		{name: "negative price", req: transport.ProductRequest{Name: ptr("x"), Price: ptr(int64(-1))}},
		{name: "unknown status", req: transport.ProductRequest{Name: ptr("x"), Status: ptr("sold")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.products.Save(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.addProduct(t, "Sleeves", 150)
	env.addProduct(t, "Playmat", 690)

	require.ErrorIs(t, env.products.Delete(ctx, p.ID, false), ErrConfirmation)
	require.NoError(t, env.products.Delete(ctx, p.ID, true))
	require.ErrorIs(t, env.products.Delete(ctx, p.ID, true), ErrNotFound)

	require.ErrorIs(t, env.products.DeleteAll(ctx, true, false), ErrConfirmation)
	list, err := env.products.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, env.products.DeleteAll(ctx, true, true))
	list, err = env.products.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestBulkEdit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.addProduct(t, "A", 100)
	b := env.addProduct(t, "B", 200)

	_, err := env.products.BulkEdit(ctx, transport.BulkEditRequest{IDs: []int64{a.ID, 12345}, Patch: transport.ProductRequest{Category: ptr("Pokemon")}})
	require.ErrorIs(t, err, ErrNotFound)

	n, err := env.products.BulkEdit(ctx, transport.BulkEditRequest{IDs: []int64{a.ID, b.ID}, Patch: transport.ProductRequest{Category: ptr("Pokemon"), Status: ptr(models.ProductDraft)}})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	list, err := env.products.List(ctx)
	require.NoError(t, err)
	for _, p := range list {
		require.Equal(t, "Pokemon", p.Category)
		require.Equal(t, models.ProductDraft, p.Status)
	}
	require.Equal(t, "A", list[0].Name)
	require.EqualValues(t, 200, list[1].Price)
}

type failingUploader struct{}

func (failingUploader) Upload(context.Context, string, string, io.Reader, int64, media.ProgressFunc) (string, error) {
	return "", errors.New("network down")
}

func TestReplaceImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.addProduct(t, "Deck", 500)

	env.products.Media = failingUploader{}
	_, err := env.products.ReplaceImage(ctx, p.ID, "deck.png", "image/png", bytes.NewReader([]byte("img")), 3, nil)
	require.Error(t, err)
	got, err := env.products.Sync.Get(ctx, p.Key())
	require.NoError(t, err)
	require.Empty(t, got.Image)

	dir, err := media.NewDir(t.TempDir(), "http://shop.test")
	require.NoError(t, err)
	env.products.Media = dir
	var last int
	got, err = env.products.ReplaceImage(ctx, p.ID, "deck.png", "image/png", bytes.NewReader([]byte("img")), 3, func(pct int) { last = pct })
	require.NoError(t, err)
	require.Equal(t, "http://shop.test/media/products/"+p.Key()+".png", got.Image)
	require.Equal(t, 100, last)
}

func TestCatalogReseedAndActiveFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view := syncer.NewLiveView("products", env.products.Sync.Store(),
		syncer.WithReseed(CatalogReseed(env.products.Sync, "")))
	env.products.Sync.Bind(view)
	env.products.View = view
	require.NoError(t, view.Start(ctx))
	t.Cleanup(view.Stop)

	defaults, err := catalog.Defaults("")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(view.Current().Items) == len(defaults)
	}, 2*time.Second, 10*time.Millisecond)

	active, err := env.products.Catalog(ctx)
	require.NoError(t, err)
	require.Less(t, len(active), len(defaults))
	for _, p := range active {
		require.Equal(t, models.ProductActive, p.Status)
	}
}

func TestCatalogCacheFollowsLiveView(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view := syncer.NewLiveView("products", env.products.Sync.Store(),
		syncer.WithReseed(CatalogReseed(env.products.Sync, "")))
	env.products.Sync.Bind(view)
	env.products.View = view
	stop := env.products.InvalidateOnChange(ctx)
	t.Cleanup(stop)

	// read before the first delivery: nothing may be cached from it
	early, err := env.products.Catalog(ctx)
	require.NoError(t, err)
	require.Empty(t, early)
	_, cached, err := env.products.Cache.Load(ctx)
	require.NoError(t, err)
	require.False(t, cached)

	// a stale entry left by an earlier process
	require.NoError(t, env.products.Cache.Store(ctx, nil))

	require.NoError(t, view.Start(ctx))
	t.Cleanup(view.Stop)
	<-view.ReseedDone()

	defaults, err := catalog.Defaults("")
	require.NoError(t, err)
	var active int
	for _, p := range defaults {
		if p.Status == models.ProductActive || p.Status == "" {
			active++
		}
	}
	require.Eventually(t, func() bool {
		got, err := env.products.Catalog(ctx)
		return err == nil && len(got) == active
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCheckout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.addProduct(t, "Starter Deck", 500)

	first, err := env.orders.Checkout(ctx, transport.CheckoutRequest{
		FullName: "Ann", Phone: "0800000000", Address: "Bangkok",
		Items: []transport.CartItem{{ID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	order, err := env.orders.Checkout(ctx, transport.CheckoutRequest{
		FullName: "Somchai", Phone: "0812345678", Address: "Chiang Mai",
		Items: []transport.CartItem{{ID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderPending, order.Status)
	require.EqualValues(t, 1000, order.Total)
	require.False(t, order.CreatedAt.IsZero())

	_, err = env.products.Save(ctx, transport.ProductRequest{ID: ptr(p.ID), Price: ptr(int64(650))})
	require.NoError(t, err)

	list, err := env.orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, order.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
	require.EqualValues(t, 500, list[0].Items[0].Price)
}

func TestCheckoutValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.orders.Checkout(ctx, transport.CheckoutRequest{FullName: "A", Address: "B", Items: []transport.CartItem{{ID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.orders.Checkout(ctx, transport.CheckoutRequest{FullName: "A", Phone: "1", Address: "B"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.orders.Checkout(ctx, transport.CheckoutRequest{FullName: "A", Phone: "1", Address: "B", Items: []transport.CartItem{{ID: 77, Quantity: 1}}})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOrderAndStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.orders.CreateOrder(ctx, nil)
	require.ErrorIs(t, err, ErrValidation)
	_, err = env.orders.CreateOrder(ctx, map[string]any{"id": float64(0), "total": 10})
	require.ErrorIs(t, err, ErrValidation)
	_, err = env.orders.CreateOrder(ctx, map[string]any{"total": 10})
	require.ErrorIs(t, err, ErrValidation)

	id, err := env.orders.CreateOrder(ctx, map[string]any{"id": float64(1700000000000), "total": float64(250), "status": "pending"})
	require.NoError(t, err)
	require.Equal(t, "1700000000000", id)

	_, err = env.orders.UpdateStatus(ctx, 1700000000000, "lost")
	require.ErrorIs(t, err, ErrValidation)
	o, err := env.orders.UpdateStatus(ctx, 1700000000000, models.OrderShipped)
	require.NoError(t, err)
	require.Equal(t, models.OrderShipped, o.Status)
	require.EqualValues(t, 250, o.Total)

	require.ErrorIs(t, env.orders.Delete(ctx, ""), ErrValidation)
	require.NoError(t, env.orders.Delete(ctx, id))
	list, err := env.orders.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func reserveReq(name string) transport.ReservationRequest {
	return transport.ReservationRequest{Name: name, Phone: "0899999999", Date: "2024-06-01", Time: "18:00", Players: "2", TableType: "5hr"}
}

func TestReservationLifecycle(t *testing.T) {
	ledgers := map[string]func(env *testEnv) TableLedger{
		"mirrored": func(env *testEnv) TableLedger { return &MirroredTables{M: env.mirror} },
		"derived":  func(*testEnv) TableLedger { return DerivedTables{} },
	}
	for name, ledger := range ledgers {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			env.reservations.Ledger = ledger(env)
			runReservationLifecycle(t, env)
		})
	}
}

func runReservationLifecycle(t *testing.T, env *testEnv) {
	ctx := context.Background()
	svc := env.reservations

	var booked []models.Reservation
	for i := 1; i <= models.TableCount; i++ {
		r, err := svc.Reserve(ctx, reserveReq("guest"))
		require.NoError(t, err)
		require.Equal(t, i, r.TableID)
		booked = append(booked, r)
	}

	_, err := svc.Reserve(ctx, reserveReq("late"))
	require.ErrorIs(t, err, ErrTablesFull)
	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, models.TableCount)

	canceled, err := svc.Cancel(ctx, booked[2].ID)
	require.NoError(t, err)
	require.Equal(t, models.ReservationCanceled, canceled.Status)

	tables, err := svc.Tables(ctx)
	require.NoError(t, err)
	require.Equal(t, models.TableAvailable, tables[2].Status)

	r, err := svc.Reserve(ctx, reserveReq("walk-in"))
	require.NoError(t, err)
	require.Equal(t, 3, r.TableID)

	all, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, models.TableCount+1)
}

func TestReservationEdit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r, err := env.reservations.Reserve(ctx, reserveReq("Nok"))
	require.NoError(t, err)

	_, err = env.reservations.Edit(ctx, r.ID, transport.ReservationPatch{TableType: ptr("vip")})
	require.ErrorIs(t, err, ErrValidation)

	edited, err := env.reservations.Edit(ctx, r.ID, transport.ReservationPatch{Time: ptr("19:30"), TableType: ptr("student")})
	require.NoError(t, err)
	require.Equal(t, "19:30", edited.Time)
	require.Equal(t, "student", edited.TableType)
	require.Equal(t, "Nok", edited.Name)
	require.Equal(t, r.TableID, edited.TableID)

	_, err = env.reservations.Reserve(ctx, transport.ReservationRequest{Name: "x"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSeedSamplesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	n, err := env.users.SeedSamples(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	n, err = env.users.SeedSamples(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	res, err := env.users.Login(ctx, transport.LoginRequest{Email: "ADMIN@example.com", Password: "admin1234"})
	require.NoError(t, err)
	require.True(t, res.User.IsAdmin)
	require.Empty(t, res.User.PasswordHash)
}

func TestSignupLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.users.Signup(ctx, transport.SignupRequest{Name: "Mali", Email: "mali@example.com", Password: "12345"})
	require.ErrorIs(t, err, ErrValidation)

	res, err := env.users.Signup(ctx, transport.SignupRequest{Name: "Mali", Email: "Mali@Example.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, "mali@example.com", res.User.Email)
	require.NotEmpty(t, res.Token)

	claims, err := tokens.SessionClaimsFromToken(res.Token, env.users.Secret)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, claims.Subject)
	require.False(t, claims.Admin)

	_, err = env.users.Signup(ctx, transport.SignupRequest{Name: "Other", Email: "mali@example.com", Password: "secret2"})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = env.users.Login(ctx, transport.LoginRequest{Email: "mali@example.com", Password: "wrong!"})
	require.ErrorIs(t, err, ErrBadCredentials)

	_, err = env.users.Login(ctx, transport.LoginRequest{Email: "mali@example.com", Password: "secret1"})
	require.NoError(t, err)

	reloaded := NewSession(env.mirror)
	require.NoError(t, reloaded.Load(ctx))
	cur, ok := reloaded.Current()
	require.True(t, ok)
	require.Equal(t, res.User.ID, cur.ID)
	require.Empty(t, cur.PasswordHash)

	// someone else signing out leaves the record alone
	require.NoError(t, env.users.Logout(ctx, "another-user"))
	require.NoError(t, env.users.Logout(ctx, ""))
	require.NoError(t, reloaded.Load(ctx))
	_, ok = reloaded.Current()
	require.True(t, ok)

	require.NoError(t, env.users.Logout(ctx, res.User.ID))
	require.NoError(t, reloaded.Load(ctx))
	_, ok = reloaded.Current()
	require.False(t, ok)
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.users.Signup(ctx, transport.SignupRequest{Name: "Mali", Email: "mali@example.com", Password: "secret1"})
	require.NoError(t, err)

	u, err := env.users.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, u.ID)
	require.Empty(t, u.PasswordHash)

	_, err = env.users.Authenticate(ctx, "")
	require.ErrorIs(t, err, ErrNotSignedIn)
	_, err = env.users.Authenticate(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrNotSignedIn)

	forged, err := tokens.SignSession(res.User.ID, "mali@example.com", true, []byte("other-secret"))
	require.NoError(t, err)
	_, err = env.users.Authenticate(ctx, forged)
	require.ErrorIs(t, err, ErrNotSignedIn)
}

func TestTokensWithoutConfiguredSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.users.Secret = nil

	res, err := env.users.Signup(ctx, transport.SignupRequest{Name: "Mali", Email: "mali@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	u, err := env.users.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, u.ID)
}

func TestConcurrentSignupSameEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 4
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := env.users.Signup(ctx, transport.SignupRequest{Name: "Mali", Email: "mali@example.com", Password: "secret1"})
			errs <- err
		}()
	}

	var ok, taken int
	for i := 0; i < n; i++ {
		err := <-errs
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrEmailTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, n-1, taken)

	all, err := env.users.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestSignupAdminEmail(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.users.Signup(context.Background(), transport.SignupRequest{Name: "Owner", Email: "owner@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.True(t, res.User.IsAdmin)
}

func TestProfileAndAdminUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.users.Signup(ctx, transport.SignupRequest{Name: "Mali", Email: "mali@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = env.users.UpdateProfile(ctx, "", transport.ProfilePatch{Phone: ptr("0811111111")})
	require.ErrorIs(t, err, ErrNotSignedIn)

	u, err := env.users.UpdateProfile(ctx, res.User.ID, transport.ProfilePatch{Phone: ptr("0811111111"), Address: ptr("Phuket")})
	require.NoError(t, err)
	require.Equal(t, "Phuket", u.Address)
	cur, _ := env.users.Session.Current()
	require.Equal(t, "0811111111", cur.Phone)

	require.ErrorIs(t, env.users.AdminUpdate(ctx, "", map[string]any{"isAdmin": true}), ErrValidation)
	require.NoError(t, env.users.AdminUpdate(ctx, res.User.ID, map[string]any{"isAdmin": true, "passwordHash": "x"}))

	stored, err := env.users.Sync.Get(ctx, res.User.ID)
	require.NoError(t, err)
	require.True(t, stored.IsAdmin)
	require.NotEqual(t, "x", stored.PasswordHash)

	other, err := env.users.Signup(ctx, transport.SignupRequest{Name: "Niran", Email: "niran@example.com", Password: "secret2"})
	require.NoError(t, err)
	err = env.users.AdminUpdate(ctx, other.User.ID, map[string]any{"email": "MALI@example.com"})
	require.ErrorIs(t, err, ErrEmailTaken)
	require.ErrorIs(t, env.users.AdminUpdate(ctx, other.User.ID, map[string]any{"email": "nope"}), ErrValidation)

	// keeping one's own address is not a conflict
	require.NoError(t, env.users.AdminUpdate(ctx, res.User.ID, map[string]any{"email": "mali@example.com", "phone": "0822222222"}))
	require.NoError(t, env.users.AdminUpdate(ctx, other.User.ID, map[string]any{"email": "Niran.K@example.com"}))
	stored, err = env.users.Sync.Get(ctx, other.User.ID)
	require.NoError(t, err)
	require.Equal(t, "niran.k@example.com", stored.Email)
}

type fakeVerifier struct{ user firebase.AuthUser }

func (f fakeVerifier) VerifyIDToken(_ context.Context, tok string) (firebase.AuthUser, error) {
	if tok != "good" {
		return firebase.AuthUser{}, errors.New("bad token")
	}
	return f.user, nil
}

func TestExchange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.users.Exchange(ctx, "good")
	require.ErrorIs(t, err, ErrNotConfigured)

	env.users.Verifier = fakeVerifier{user: firebase.AuthUser{UID: "uid-1", Email: "owner@example.com", DisplayName: "Owner"}}
	_, err = env.users.Exchange(ctx, "bad")
	require.ErrorIs(t, err, ErrBadCredentials)

	res, err := env.users.Exchange(ctx, "good")
	require.NoError(t, err)
	require.Equal(t, "uid-1", res.User.ID)
	require.True(t, res.User.IsAdmin)

	again, err := env.users.Exchange(ctx, "good")
	require.NoError(t, err)
	require.Equal(t, res.User.ID, again.User.ID)
	all, err := env.users.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestDashboardSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.addProduct(t, "Deck", 500)
	_, err := env.users.SeedSamples(ctx)
	require.NoError(t, err)
	_, err = env.orders.Checkout(ctx, transport.CheckoutRequest{FullName: "A", Phone: "1", Address: "B", Items: []transport.CartItem{{ID: p.ID, Quantity: 1}}})
	require.NoError(t, err)
	r, err := env.reservations.Reserve(ctx, reserveReq("a"))
	require.NoError(t, err)
	_, err = env.reservations.Reserve(ctx, reserveReq("b"))
	require.NoError(t, err)
	_, err = env.reservations.Cancel(ctx, r.ID)
	require.NoError(t, err)

	sum, err := env.dashboard.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, Summary{Users: 2, Products: 1, Orders: 1, ActiveReservations: 1}, sum)
}

func TestReason(t *testing.T) {
	err := errors.New("x")
	require.Equal(t, "x", Reason(err))
	_, err = newTestEnv(t).orders.Checkout(context.Background(), transport.CheckoutRequest{})
	require.Equal(t, "full name is required", Reason(err))
}
