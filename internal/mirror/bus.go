package mirror

import "sync"

// Change announces that the blob stored under Key was rewritten or removed.
// Origin is the instance id of the process that made the change.
type Change struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// Bus fans changes out to every subscriber in the process. Handlers run on
// the publisher's goroutine with no lock held, so a handler may publish or
// unsubscribe.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Change)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Change))}
}

func (b *Bus) Subscribe(fn func(Change)) (cancel func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Publish(c Change) {
	b.mu.RLock()
	handlers := make([]func(Change), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(c)
	}
}
