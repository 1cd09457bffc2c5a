package docstore

import (
	"context"
	"sync"
)

// Broadcaster fans collection snapshots out to watchers. A watcher only ever
// holds the latest snapshot; slow readers skip intermediate states.
type Broadcaster struct {
	mu       sync.Mutex
	watchers map[string]map[*watcher]struct{}
}

type watcher struct {
	ch chan Snapshot
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{watchers: make(map[string]map[*watcher]struct{})}
}

// Subscribe registers a watcher for collection and primes it with initial.
// The returned channel is closed once ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context, collection string, initial Snapshot) <-chan Snapshot {
	w := &watcher{ch: make(chan Snapshot, 1)}
	w.ch <- initial

	b.mu.Lock()
	set, ok := b.watchers[collection]
	if !ok {
		set = make(map[*watcher]struct{})
		b.watchers[collection] = set
	}
	set[w] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if _, ok := b.watchers[collection][w]; ok {
			delete(b.watchers[collection], w)
			close(w.ch)
		}
		b.mu.Unlock()
	}()

	return w.ch
}

// HasWatchers reports whether anyone listens to collection.
func (b *Broadcaster) HasWatchers(collection string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watchers[collection]) > 0
}

// Publish offers snap to every watcher of its collection.
func (b *Broadcaster) Publish(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for w := range b.watchers[snap.Collection] {
		w.offer(snap)
	}
}

// CloseAll closes every watcher channel.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for collection, set := range b.watchers {
		for w := range set {
			close(w.ch)
		}
		delete(b.watchers, collection)
	}
}

func (w *watcher) offer(snap Snapshot) {
	for {
		select {
		case w.ch <- snap:
			return
		default:
		}
		select {
		case <-w.ch:
		default:
		}
	}
}
