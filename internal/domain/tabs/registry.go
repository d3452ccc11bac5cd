// internal/domain/tabs/registry.go
package tabs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/domain/cart"
	"github.com/your-org/storefront-checkout/internal/domain/checkout"
	"github.com/your-org/storefront-checkout/internal/domain/delivery"
	"github.com/your-org/storefront-checkout/internal/domain/promo"
	"github.com/your-org/storefront-checkout/internal/pkg/metrics"
)

// ErrTabNotFound is returned for unknown tabs and tabs of another profile
var ErrTabNotFound = errors.New("tab not found")

// StorageFactory returns the shared cart storage of a profile
type StorageFactory func(profileID string) cart.SharedStorage

// Dependencies are shared by every tab
type Dependencies struct {
	Storage    StorageFactory
	Validator  promo.Validator
	Submitter  checkout.OrderSubmitter
	Payments   checkout.PaymentInitializer
	Pricing    delivery.Config
	StorageKey string
}

// Tab is one open storefront tab: its cart view and its checkout flow
type Tab struct {
	ID        string
	ProfileID string
	Store     *cart.Store
	Flow      *checkout.Flow

	lastSeen time.Time
}

func (t *Tab) close() {
	t.Flow.Close()
	t.Store.Close()
}

// Registry keeps the live tabs of all profiles
type Registry struct {
	deps Dependencies
	now  func() time.Time
	log  logrus.FieldLogger

	mu   sync.Mutex
	tabs map[string]*Tab
}

// NewRegistry creates an empty tab registry
func NewRegistry(deps Dependencies, log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if deps.StorageKey == "" {
		deps.StorageKey = cart.StorageKey
	}
	return &Registry{
		deps: deps,
		now:  time.Now,
		log:  log.WithField("component", "tabs"),
		tabs: make(map[string]*Tab),
	}
}

// Open creates a tab for the profile, hydrated from the profile's shared cart
func (r *Registry) Open(ctx context.Context, profileID string) (*Tab, error) {
	tabID := uuid.New().String()
	log := r.log.WithFields(logrus.Fields{"profile_id": profileID, "tab_id": tabID})

	store, err := cart.NewStore(ctx, r.deps.Storage(profileID),
		cart.WithTabID(tabID),
		cart.WithStorageKey(r.deps.StorageKey),
		cart.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open cart: %w", err)
	}

	engine := promo.NewEngine(r.deps.Validator, promo.WithLogger(log))
	flow := checkout.NewFlow(store, engine, r.deps.Submitter, r.deps.Payments, r.deps.Pricing, log)

	tab := &Tab{
		ID:        tabID,
		ProfileID: profileID,
		Store:     store,
		Flow:      flow,
		lastSeen:  r.now(),
	}

	r.mu.Lock()
	r.tabs[tabID] = tab
	r.mu.Unlock()

	metrics.OpenTabs.Inc()
	log.Info("Tab opened")

	return tab, nil
}

// Get returns a tab of the profile and marks it as active
func (r *Registry) Get(profileID, tabID string) (*Tab, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tab, ok := r.tabs[tabID]
	if !ok || tab.ProfileID != profileID {
		return nil, ErrTabNotFound
	}
	tab.lastSeen = r.now()
	return tab, nil
}

// Close releases a tab of the profile
func (r *Registry) Close(profileID, tabID string) error {
	r.mu.Lock()
	tab, ok := r.tabs[tabID]
	if !ok || tab.ProfileID != profileID {
		r.mu.Unlock()
		return ErrTabNotFound
	}
	delete(r.tabs, tabID)
	r.mu.Unlock()

	tab.close()
	metrics.OpenTabs.Dec()
	r.log.WithFields(logrus.Fields{"profile_id": profileID, "tab_id": tabID}).Info("Tab closed")

	return nil
}

// Len returns the number of open tabs
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tabs)
}

// SweepIdle closes tabs not used for longer than maxIdle and returns how many were closed
func (r *Registry) SweepIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var idle []*Tab
	for id, tab := range r.tabs {
		if tab.lastSeen.Before(cutoff) {
			idle = append(idle, tab)
			delete(r.tabs, id)
		}
	}
	r.mu.Unlock()

	for _, tab := range idle {
		tab.close()
		metrics.OpenTabs.Dec()
	}
	if len(idle) > 0 {
		r.log.WithField("count", len(idle)).Info("Closed idle tabs")
	}

	return len(idle)
}

// RunJanitor sweeps idle tabs every interval until ctx is done
func (r *Registry) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepIdle(maxIdle)
		}
	}
}

// CloseAll releases every tab
func (r *Registry) CloseAll() {
	r.mu.Lock()
	tabs := r.tabs
	r.tabs = make(map[string]*Tab)
	r.mu.Unlock()

	for _, tab := range tabs {
		tab.close()
		metrics.OpenTabs.Dec()
	}
}
