package inventory

import (
	"fmt"
	"log/slog"
	"sync"
)

type subscriber struct {
	id uint64
	fn func(StateDocument)
}

// dispatcher delivers one factory's commits in the order they were made. Whoever
// finds it idle drains the queue; everyone else only appends.
type dispatcher struct {
	mu      sync.Mutex
	queue   []StateDocument
	running bool
}

// Subscribe registers fn for every committed change to the factory document.
// Subscribers are called in registration order, once per commit, in commit order.
// The returned function unregisters fn and is safe to call more than once.
func (r *Repository) Subscribe(factoryID string, fn func(StateDocument)) func() {
	r.mu.Lock()
	r.nextSubID++
	id := r.nextSubID
	r.subscribers[factoryID] = append(r.subscribers[factoryID], subscriber{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			current := r.subscribers[factoryID]
			kept := make([]subscriber, 0, len(current))
			for _, sub := range current {
				if sub.id != id {
					kept = append(kept, sub)
				}
			}
			if len(kept) == 0 {
				delete(r.subscribers, factoryID)
				return
			}
			r.subscribers[factoryID] = kept
		})
	}
}

func (r *Repository) dispatcherFor(factoryID string) *dispatcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dispatchers[factoryID]
	if !ok {
		d = &dispatcher{}
		r.dispatchers[factoryID] = d
	}
	return d
}

// enqueue must be called while the factory lock is held.
func (r *Repository) enqueue(factoryID string, doc StateDocument) {
	d := r.dispatcherFor(factoryID)
	d.mu.Lock()
	d.queue = append(d.queue, doc)
	d.mu.Unlock()
}

// drain delivers queued commits unless another goroutine, possibly a subscriber
// further up this stack, is already doing so.
func (r *Repository) drain(factoryID string) {
	d := r.dispatcherFor(factoryID)
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	for len(d.queue) > 0 {
		doc := d.queue[0]
		d.queue[0] = StateDocument{}
		d.queue = d.queue[1:]
		d.mu.Unlock()
		r.notify(factoryID, doc)
		d.mu.Lock()
	}
	d.running = false
	d.mu.Unlock()
}

func (r *Repository) notify(factoryID string, doc StateDocument) {
	r.mu.RLock()
	subs := r.subscribers[factoryID]
	r.mu.RUnlock()

	for _, sub := range subs {
		r.deliver(factoryID, sub.fn, doc.Clone())
	}
}

func (r *Repository) deliver(factoryID string, fn func(StateDocument), doc StateDocument) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("state subscriber panicked",
				slog.String("factory_id", factoryID),
				slog.Any("error", fmt.Errorf("%v", rec)),
			)
		}
	}()
	fn(doc)
}
