// internal/domain/cart/store.go
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/pkg/metrics"
)

// StorageKey is the fixed slot holding the serialized cart
const StorageKey = "orient_cart"

// Store is the single source of truth for one tab's cart lines.
//
// Every mutation is written through to shared storage and published to the
// other tabs of the profile; changes coming from other tabs replace the
// in-memory lines (last write wins). Listeners run synchronously after each
// change, in mutation order, and must not call mutators re-entrantly.
type Store struct {
	mu     sync.Mutex // guards lines, serializes mutations
	emitMu sync.Mutex // keeps listener delivery in mutation order

	storage SharedStorage
	key     string
	tabID   string
	lines   []Line
	log     logrus.FieldLogger

	listenersMu  sync.Mutex
	listeners    map[uint64]func(Event)
	nextListener uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Store
type Option func(*Store)

// WithTabID sets the identifier used to recognise this tab's own writes
func WithTabID(tabID string) Option {
	return func(s *Store) {
		s.tabID = tabID
	}
}

// WithStorageKey overrides the storage slot name
func WithStorageKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore hydrates a store from shared storage and starts watching it for
// changes made by other tabs. Call Close when the tab goes away.
func NewStore(ctx context.Context, storage SharedStorage, opts ...Option) (*Store, error) {
	s := &Store{
		storage:   storage,
		key:       StorageKey,
		tabID:     uuid.New().String(),
		listeners: make(map[uint64]func(Event)),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.log = s.log.WithFields(logrus.Fields{"component": "cart_store", "tab_id": s.tabID})

	// Watch before the first read so a write landing in between is not lost.
	// The watcher must outlive the request that opened the tab.
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events, err := storage.Watch(watchCtx, s.key)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch cart storage: %w", err)
	}

	raw, found, err := storage.Get(ctx, s.key)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to load cart from storage: %w", err)
	}
	if found {
		lines, err := parseLines(raw)
		if err != nil {
			// Corrupt slot: start empty rather than fail the tab
			s.log.WithError(err).Warn("Discarding corrupt cart in storage")
			metrics.CartSyncEvents.WithLabelValues("corrupt").Inc()
		} else {
			s.lines = lines
		}
	}

	s.cancel = cancel

	go func() {
		defer close(s.done)
		for event := range events {
			if event.Origin == s.tabID {
				continue
			}
			s.applyRemote(event)
		}
	}()

	return s, nil
}

// TabID returns the tab identifier
func (s *Store) TabID() string {
	return s.tabID
}

// Close stops watching storage
func (s *Store) Close() {
	s.cancel()
	<-s.done
}

// AddItem adds quantity units of item, merging into an existing line with the same product ID
func (s *Store) AddItem(ctx context.Context, item Item, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	return s.mutate(ctx, "add", func(lines []Line) ([]Line, *Event, bool) {
		for i := range lines {
			if lines[i].ProductID == item.ProductID {
				lines[i].Quantity += quantity
				added := lines[i]
				return lines, &Event{Type: EventItemAdded, Origin: OriginLocal, Line: &added, Quantity: quantity}, true
			}
		}

		line := Line{
			ProductID:      item.ProductID,
			Name:           item.Name,
			CollectionName: item.CollectionName,
			UnitPrice:      item.UnitPrice,
			Image:          item.Image,
			Quantity:       quantity,
		}
		lines = append(lines, line)
		return lines, &Event{Type: EventItemAdded, Origin: OriginLocal, Line: &line, Quantity: quantity}, true
	})
}

// RemoveItem removes the line for productID if present
func (s *Store) RemoveItem(ctx context.Context, productID string) error {
	return s.mutate(ctx, "remove", func(lines []Line) ([]Line, *Event, bool) {
		for i := range lines {
			if lines[i].ProductID == productID {
				return append(lines[:i], lines[i+1:]...), nil, true
			}
		}
		return lines, nil, false
	})
}

// UpdateQuantity sets the quantity of a line; zero or less removes it
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}

	return s.mutate(ctx, "update", func(lines []Line) ([]Line, *Event, bool) {
		for i := range lines {
			if lines[i].ProductID == productID {
				if lines[i].Quantity == quantity {
					return lines, nil, false
				}
				lines[i].Quantity = quantity
				return lines, nil, true
			}
		}
		return lines, nil, false
	})
}

// Clear empties the cart
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, "clear", func(lines []Line) ([]Line, *Event, bool) {
		return []Line{}, nil, true
	})
}

// Lines returns a copy of the cart lines in insertion order
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

// IsEmpty reports whether the cart has no lines
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

// TotalItems returns the sum of all quantities
func (s *Store) TotalItems() int {
	return s.Totals().TotalQuantity
}

// TotalPrice returns the undiscounted subtotal
func (s *Store) TotalPrice() int64 {
	return s.Totals().SubTotal
}

// Totals returns the derived cart totals
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CalculateTotals(s.lines)
}

// Subscribe registers a same-tab listener and returns a function that removes it
func (s *Store) Subscribe(fn func(Event)) func() {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// Private helper methods

func (s *Store) mutate(ctx context.Context, op string, change func([]Line) ([]Line, *Event, bool)) error {
	s.mu.Lock()

	next, added, changed := change(cloneLines(s.lines))
	if !changed {
		s.mu.Unlock()
		return nil
	}

	metrics.CartMutations.WithLabelValues(op).Inc()

	// Write-through before anyone observes the change; a failed write keeps
	// the in-memory change since the cart is only a convenience cache.
	err := s.persist(ctx, next)
	if err != nil {
		s.log.WithError(err).WithField("operation", op).Error("Failed to persist cart")
	}

	s.replaceLocked(next, OriginLocal, added)
	return err
}

func (s *Store) persist(ctx context.Context, lines []Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := s.storage.Set(ctx, s.key, string(data), s.tabID); err != nil {
		return fmt.Errorf("failed to write cart to storage: %w", err)
	}
	return nil
}

func (s *Store) applyRemote(event StorageEvent) {
	lines, err := parseLines(event.NewValue)
	if err != nil {
		s.log.WithError(err).WithField("origin", event.Origin).Warn("Ignoring unreadable cart update from another tab")
		metrics.CartSyncEvents.WithLabelValues("corrupt").Inc()
		return
	}

	metrics.CartSyncEvents.WithLabelValues("applied").Inc()

	s.mu.Lock()
	s.replaceLocked(lines, OriginRemote, nil)
}

// replaceLocked is the only place that swaps the in-memory lines.
// It must be called with s.mu held and releases it.
func (s *Store) replaceLocked(lines []Line, origin Origin, added *Event) {
	s.lines = lines
	snapshot := cloneLines(lines)

	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	if added != nil {
		added.Lines = snapshot
		s.emit(*added)
	}
	s.emit(Event{Type: EventCartUpdated, Origin: origin, Lines: snapshot})
}

func (s *Store) emit(event Event) {
	s.listenersMu.Lock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

// parseLines decodes a stored cart, dropping lines that break the cart invariants
func parseLines(raw string) ([]Line, error) {
	var decoded []Line
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("invalid cart payload: %w", err)
	}

	lines := make([]Line, 0, len(decoded))
	index := make(map[string]int, len(decoded))
	for _, line := range decoded {
		if line.ProductID == "" || line.Quantity <= 0 {
			continue
		}
		if i, ok := index[line.ProductID]; ok {
			lines[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(lines)
		lines = append(lines, line)
	}

	return lines, nil
}
