package layout

import "sync"

// MemoryFeed is an in-process Feed implementation. The daemon bridges bus
// events into one; tests and embedders publish directly.
type MemoryFeed struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]func(Change)
}

// NewMemoryFeed constructs an empty feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[string]map[uint64]func(Change))}
}

// Subscribe registers fn for the named event. Nil callbacks get a handle
// whose Remove is a no-op.
func (f *MemoryFeed) Subscribe(event string, fn func(Change)) Handle {
	if fn == nil {
		return &memoryHandle{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	if _, ok := f.subs[event]; !ok {
		f.subs[event] = make(map[uint64]func(Change))
	}
	f.subs[event][id] = fn
	return &memoryHandle{feed: f, event: event, id: id}
}

// Publish delivers a change synchronously to every subscriber of the event.
func (f *MemoryFeed) Publish(event string, change Change) {
	f.mu.Lock()
	fns := make([]func(Change), 0, len(f.subs[event]))
	for _, fn := range f.subs[event] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

// SubscriberCount reports the number of live subscriptions for the event.
func (f *MemoryFeed) SubscriberCount(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[event])
}

type memoryHandle struct {
	feed  *MemoryFeed
	event string
	id    uint64

	once sync.Once
}

// Remove releases the subscription. Releasing an already-removed handle is
// a no-op, not an error.
func (h *memoryHandle) Remove() {
	h.once.Do(func() {
		if h.feed == nil {
			return
		}
		h.feed.mu.Lock()
		defer h.feed.mu.Unlock()
		if fns, ok := h.feed.subs[h.event]; ok {
			delete(fns, h.id)
			if len(fns) == 0 {
				delete(h.feed.subs, h.event)
			}
		}
	})
}
