// internal/domain/cart/storage.go
package cart

import (
	"context"
	"sync"
)

// StorageEvent is a change notification published by a write to shared storage
type StorageEvent struct {
	Key      string `json:"key"`
	NewValue string `json:"new_value"`
	Origin   string `json:"origin"` // Tab ID of the writer
}

// SharedStorage is key/value storage shared by every tab of one browser profile.
// Set must persist the value before the change notification becomes visible to watchers.
type SharedStorage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value, origin string) error
	// Watch streams notifications for key until ctx is cancelled.
	Watch(ctx context.Context, key string) (<-chan StorageEvent, error)
}

// MemoryStorage is an in-process SharedStorage. Tabs living in the same
// process (tests, single-node deployments) share one instance.
type MemoryStorage struct {
	mu       sync.Mutex
	values   map[string]string
	watchers map[string]map[*memoryWatcher]struct{}
}

// NewMemoryStorage creates an empty in-process storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values:   make(map[string]string),
		watchers: make(map[string]map[*memoryWatcher]struct{}),
	}
}

// Get returns the stored value for key
func (m *MemoryStorage) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[key]
	return value, ok, nil
}

// Set stores value and queues a notification for every watcher of key
func (m *MemoryStorage) Set(ctx context.Context, key, value, origin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value

	event := StorageEvent{Key: key, NewValue: value, Origin: origin}
	for w := range m.watchers[key] {
		w.push(event)
	}
	return nil
}

// Corrupt writes a raw value without notifying watchers
func (m *MemoryStorage) Corrupt(key, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = raw
}

// Watch registers a watcher for key
func (m *MemoryStorage) Watch(ctx context.Context, key string) (<-chan StorageEvent, error) {
	w := &memoryWatcher{
		signal: make(chan struct{}, 1),
		out:    make(chan StorageEvent),
	}

	m.mu.Lock()
	if m.watchers[key] == nil {
		m.watchers[key] = make(map[*memoryWatcher]struct{})
	}
	m.watchers[key][w] = struct{}{}
	m.mu.Unlock()

	go func() {
		defer close(w.out)
		defer func() {
			m.mu.Lock()
			delete(m.watchers[key], w)
			m.mu.Unlock()
		}()
		w.pump(ctx)
	}()

	return w.out, nil
}

// memoryWatcher keeps an unbounded FIFO so Set never blocks on a slow reader
type memoryWatcher struct {
	mu     sync.Mutex
	queue  []StorageEvent
	signal chan struct{}
	out    chan StorageEvent
}

func (w *memoryWatcher) push(event StorageEvent) {
	w.mu.Lock()
	w.queue = append(w.queue, event)
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *memoryWatcher) pump(ctx context.Context) {
	for {
		w.mu.Lock()
		pending := w.queue
		w.queue = nil
		w.mu.Unlock()

		for _, event := range pending {
			select {
			case w.out <- event:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-w.signal:
		case <-ctx.Done():
			return
		}
	}
}
