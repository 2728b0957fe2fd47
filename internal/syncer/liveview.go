package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mindlab/cardshop/internal/store"
)

type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateEmpty   State = "empty"
	// StateFailed means the live read failed. It is never reported as empty.
	StateFailed State = "failed"
)

var ErrLiveReadFailed = errors.New("live read failed")

// View is a read-only copy of a LiveView at one point in time.
type View[T any] struct {
	State State `json:"state"`
	Items []T   `json:"items"`
	Err   error `json:"-"`
}

func (v View[T]) Message() string {
	if v.Err == nil {
		return ""
	}
	return v.Err.Error()
}

// ReseedFunc writes the default data set into an empty collection.
type ReseedFunc func(ctx context.Context) error

type ViewOption func(*viewOptions)

type viewOptions struct {
	reseed  ReseedFunc
	timeout time.Duration
	log     *slog.Logger
}

func WithReseed(fn ReseedFunc) ViewOption {
	return func(o *viewOptions) { o.reseed = fn }
}

func WithReseedTimeout(d time.Duration) ViewOption {
	return func(o *viewOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithViewLogger(l *slog.Logger) ViewOption {
	return func(o *viewOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// LiveView owns the single in-process copy of a collection, fed by a store
// subscription. An empty delivery triggers at most one reseed per process,
// and only when no delivery has ever failed and the emptiness was not
// announced through AllowEmpty.
type LiveView[T store.Entity] struct {
	name  string
	store store.Store[T]
	opts  viewOptions

	mu         sync.Mutex
	state      State
	items      []T
	err        error
	reseeded   bool
	failed     bool
	allowEmpty bool
	stopped    bool
	unsub      store.Unsubscribe
	cancel     context.CancelFunc
	subs       map[int]func(View[T])
	nextSub    int
	reseedDone chan struct{}
}

func NewLiveView[T store.Entity](name string, s store.Store[T], opts ...ViewOption) *LiveView[T] {
	o := viewOptions{timeout: DefaultTimeout, log: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	return &LiveView[T]{
		name:  name,
		store: s,
		opts:  o,
		state: StateLoading,
		subs:  make(map[int]func(View[T])),
	}
}

// Start subscribes to the store. The subscription lives until Stop.
func (v *LiveView[T]) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	v.mu.Lock()
	v.cancel = cancel
	v.mu.Unlock()

	unsub, err := v.store.Subscribe(ctx, v.deliver)
	if err != nil {
		cancel()
		v.deliver(store.Snapshot[T]{Err: err})
		return fmt.Errorf("%s: subscribe: %w", v.name, err)
	}

	v.mu.Lock()
	v.unsub = unsub
	stopped := v.stopped
	v.mu.Unlock()
	if stopped {
		unsub()
	}
	return nil
}

// Stop tears the subscription down. Deliveries that race with Stop are dropped.
func (v *LiveView[T]) Stop() {
	v.mu.Lock()
	v.stopped = true
	unsub, cancel := v.unsub, v.cancel
	v.subs = make(map[int]func(View[T]))
	v.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
}

// AllowEmpty marks the next empty delivery as legitimate. The flag clears on
// the next delivery that carries data.
func (v *LiveView[T]) AllowEmpty() {
	v.mu.Lock()
	v.allowEmpty = true
	v.mu.Unlock()
}

func (v *LiveView[T]) disarm() {
	v.mu.Lock()
	v.allowEmpty = false
	v.mu.Unlock()
}

func (v *LiveView[T]) Current() View[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Subscribe calls fn with the current view and then after every change.
func (v *LiveView[T]) Subscribe(fn func(View[T])) (cancel func()) {
	v.mu.Lock()
	id := v.nextSub
	v.nextSub++
	v.subs[id] = fn
	cur := v.snapshotLocked()
	v.mu.Unlock()

	fn(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}

// ReseedDone is closed when the reseed attempt, if one was started, finishes.
func (v *LiveView[T]) ReseedDone() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reseedDone
}

func (v *LiveView[T]) snapshotLocked() View[T] {
	items := make([]T, len(v.items))
	copy(items, v.items)
	return View[T]{State: v.state, Items: items, Err: v.err}
}

func (v *LiveView[T]) deliver(snap store.Snapshot[T]) {
	v.mu.Lock()
	if v.stopped {
		v.mu.Unlock()
		return
	}

	startReseed := false
	switch {
	case snap.Err != nil:
		v.failed = true
		v.state = StateFailed
		v.items = nil
		v.err = fmt.Errorf("%s: %w: %w", v.name, ErrLiveReadFailed, snap.Err)
	case len(snap.Items) == 0:
		v.items = nil
		v.err = nil
		if v.allowEmpty || v.failed || v.reseeded || v.opts.reseed == nil {
			v.state = StateEmpty
		} else {
			v.reseeded = true
			v.state = StateLoading
			v.reseedDone = make(chan struct{})
			startReseed = true
		}
	default:
		v.items = snap.Items
		v.err = nil
		v.state = StateReady
		v.allowEmpty = false
	}

	view := v.snapshotLocked()
	subs := make([]func(View[T]), 0, len(v.subs))
	for _, fn := range v.subs {
		subs = append(subs, fn)
	}
	done := v.reseedDone
	v.mu.Unlock()

	if startReseed {
		go v.reseed(done)
	}
	for _, fn := range subs {
		fn(view)
	}
}

// reseed runs off the delivering goroutine: writing the defaults produces
// another delivery, which for a local store arrives synchronously.
func (v *LiveView[T]) reseed(done chan struct{}) {
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), v.opts.timeout)
	defer cancel()

	v.opts.log.Info("reseed_started", "collection", v.name)
	if err := v.opts.reseed(ctx); err != nil {
		v.opts.log.Error("reseed_error", "collection", v.name, "error", err)
		v.mu.Lock()
		if v.stopped || v.state != StateLoading {
			v.mu.Unlock()
			return
		}
		v.failed = true
		v.state = StateFailed
		v.err = fmt.Errorf("%s: reseed: %w", v.name, err)
		view := v.snapshotLocked()
		subs := make([]func(View[T]), 0, len(v.subs))
		for _, fn := range v.subs {
			subs = append(subs, fn)
		}
		v.mu.Unlock()
		for _, fn := range subs {
			fn(view)
		}
		return
	}
	v.opts.log.Info("reseed_completed", "collection", v.name)
}
